package wizard

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/course-storefront/api"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/internal/validation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	MsgContentFields = "Please fill in all fields for each content item. Lectures Number and Time must be valid numbers greater than 0."
	MsgSaveFailed    = "Failed to save course contents"

	FieldLectureNumber = "lectureNumber"
	FieldTime          = "time"

	tempIDPrefix = "tmp-"
)

// ItemID is a server id for saved rows or a temporary id for rows not yet created.
type ItemID string

func persistedID(id int) ItemID {
	return ItemID(strconv.Itoa(id))
}

func newTempID() ItemID {
	return ItemID(tempIDPrefix + uuid.NewString())
}

// Persisted returns the server id of a saved row.
func (id ItemID) Persisted() (int, bool) {
	if strings.HasPrefix(string(id), tempIDPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(string(id))
	return n, err == nil
}

type ContentItem struct {
	ID            ItemID `json:"id"`
	Name          string `json:"name" validate:"notblank"`
	LectureNumber string `json:"lectureNumber" validate:"notblank,positive_int"`
	Time          string `json:"time" validate:"notblank,positive_int"`
}

func (c ContentItem) content(courseID int) api.Content {
	n, _ := strconv.Atoi(c.LectureNumber)
	t, _ := strconv.Atoi(c.Time)
	id, _ := c.ID.Persisted()
	return api.Content{ID: id, Name: strings.TrimSpace(c.Name), LectureNumber: n, Time: t, CourseID: courseID}
}

func itemFromContent(c api.Content) ContentItem {
	return ContentItem{
		ID:            persistedID(c.ID),
		Name:          c.Name,
		LectureNumber: strconv.Itoa(c.LectureNumber),
		Time:          strconv.Itoa(c.Time),
	}
}

// RowError is one failed row of a bulk save.
type RowError struct {
	ID      ItemID `json:"id"`
	Message string `json:"message"`
}

// ContentStep edits the ordered list of content rows of one course.
type ContentStep struct {
	op       sync.Mutex
	mu       sync.RWMutex
	api      API
	mode     Mode
	courseID int
	items    []ContentItem
	loadErr  error
}

func newContentStep(client API, mode Mode, courseID int) *ContentStep {
	return &ContentStep{api: client, mode: mode, courseID: courseID}
}

// Load starts add mode with one blank row. Edit mode fetches the stored rows;
// if that fails the step falls back to one blank row and keeps the error.
func (s *ContentStep) Load(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	mode, courseID := s.mode, s.courseID
	s.mu.RUnlock()

	if mode == ModeAdd || courseID == 0 {
		s.replace([]ContentItem{{ID: newTempID()}}, nil)
		return nil
	}
	contents, err := s.api.ListContents(ctx, courseID)
	if err != nil {
		if api.IsCanceled(err) {
			return err
		}
		log.Err(err).Int("courseId", courseID).Msg("loading course contents")
		s.replace([]ContentItem{{ID: newTempID()}}, err)
		return err
	}
	sort.SliceStable(contents, func(i, j int) bool { return contents[i].LectureNumber < contents[j].LectureNumber })
	items := make([]ContentItem, 0, len(contents))
	for _, c := range contents {
		items = append(items, itemFromContent(c))
	}
	if len(items) == 0 {
		items = append(items, ContentItem{ID: newTempID()})
	}
	s.replace(items, nil)
	return nil
}

func (s *ContentStep) replace(items []ContentItem, loadErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.loadErr = loadErr
}

func (s *ContentStep) setCourse(courseID int, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courseID = courseID
	s.mode = mode
}

func (s *ContentStep) Items() []ContentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ContentItem(nil), s.items...)
}

// LoadErr is the error of the last failed load, if the rows shown are a fallback.
func (s *ContentStep) LoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

func (s *ContentStep) CourseID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.courseID
}

// AddRow appends a blank row with a temporary id.
func (s *ContentStep) AddRow() ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := ContentItem{ID: newTempID()}
	s.items = append(s.items, item)
	return item
}

func (s *ContentStep) UpdateRow(id ItemID, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return apperrors.ErrRowNotFound
	}
	switch field {
	case FieldName:
		s.items[i].Name = value
	case FieldLectureNumber:
		s.items[i].LectureNumber = value
	case FieldTime:
		s.items[i].Time = value
	default:
		return errors.Wrapf(apperrors.ErrInvalidInput, "unknown field %q", field)
	}
	return nil
}

func (s *ContentStep) index(id ItemID) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// RemoveRow drops a row. When editing, the last row cannot be removed and a
// saved row is deleted on the server first.
func (s *ContentStep) RemoveRow(ctx context.Context, id ItemID) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	i, count, mode := s.index(id), len(s.items), s.mode
	s.mu.RUnlock()
	if i < 0 {
		return apperrors.ErrRowNotFound
	}
	if mode == ModeEdit {
		if count <= 1 {
			return apperrors.ErrLastContentItem
		}
		if serverID, ok := id.Persisted(); ok {
			if err := s.api.DeleteContent(ctx, serverID); err != nil {
				return err
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i = s.index(id); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	return nil
}

// SaveRow updates one saved row immediately. Only available when editing.
func (s *ContentStep) SaveRow(ctx context.Context, id ItemID) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	i, mode, courseID := s.index(id), s.mode, s.courseID
	var item ContentItem
	if i >= 0 {
		item = s.items[i]
	}
	s.mu.RUnlock()

	if mode != ModeEdit {
		return apperrors.ErrEditOnly
	}
	if i < 0 {
		return apperrors.ErrRowNotFound
	}
	if _, ok := id.Persisted(); !ok {
		return apperrors.ErrRowNotPersisted
	}
	if err := validation.Form(item, MsgContentFields, nil); err != nil {
		return err
	}
	return s.api.UpdateContent(ctx, item.content(courseID))
}

// Validate checks every row without touching the network.
func (s *ContentStep) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validate()
}

func (s *ContentStep) validate() error {
	fields := validation.FieldErrors{}
	for _, item := range s.items {
		err := validation.Struct(item, nil)
		if rowErrs, ok := err.(validation.FieldErrors); ok {
			for field, msg := range rowErrs {
				fields[string(item.ID)+"."+field] = msg
			}
		} else if err != nil {
			return err
		}
	}
	if len(fields) > 0 {
		return &validation.Error{Message: MsgContentFields, Fields: fields}
	}
	return nil
}

// SaveAll creates new rows and updates saved ones, all at once. It returns only
// when every call has finished. Failures are reported together as a partial
// batch; rows that did save stay saved and created rows take their server ids.
func (s *ContentStep) SaveAll(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	if err := s.validate(); err != nil {
		s.mu.RUnlock()
		return err
	}
	courseID := s.courseID
	items := append([]ContentItem(nil), s.items...)
	s.mu.RUnlock()

	if courseID == 0 {
		return apperrors.ErrNoCourseID
	}

	type outcome struct {
		created *api.Content
		err     error
	}
	outcomes := make([]outcome, len(items))
	// Row failures are kept per row, so one failing call never stops its siblings.
	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			content := item.content(courseID)
			if _, saved := item.ID.Persisted(); saved {
				outcomes[i].err = s.api.UpdateContent(ctx, content)
				return nil
			}
			outcomes[i].created, outcomes[i].err = s.api.CreateContent(ctx, content)
			return nil
		})
	}
	_ = g.Wait()

	created := make(map[ItemID]ItemID)
	var (
		rowErrs []RowError
		errs    []error
	)
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			rowErrs = append(rowErrs, RowError{ID: items[i].ID, Message: api.MessageOf(o.err)})
			errs = append(errs, o.err)
		case o.created != nil && o.created.ID != 0:
			created[items[i].ID] = persistedID(o.created.ID)
		}
	}

	s.mu.Lock()
	for i := range s.items {
		if serverID, ok := created[s.items[i].ID]; ok {
			s.items[i].ID = serverID
		}
	}
	s.mu.Unlock()

	if len(errs) == 0 {
		return nil
	}
	if ctx.Err() != nil {
		return &api.Error{Kind: api.KindCanceled, Message: ctx.Err().Error(), Err: ctx.Err()}
	}
	messages := make([]string, len(rowErrs))
	for i, r := range rowErrs {
		messages[i] = r.Message
	}
	return &api.Error{
		Kind:    api.KindPartialBatch,
		Message: fmt.Sprintf("%s: %s", MsgSaveFailed, strings.Join(messages, "; ")),
		Details: rowErrs,
		Err:     apperrors.Join(errs...),
	}
}
