package wizard

import (
	"context"
	"strconv"
	"sync"

	"github.com/jrsteele09/course-storefront/admin"
	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/catalog"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/internal/validation"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	MsgRequiredFields = "Please fill in all required fields, including uploading an image and selecting a rating."
	MsgHoursMinimum   = "Hours must be greater than or equal to 1"
	MsgHoursInteger   = "You must enter a positive integer (e.g. 1, 10)."
	MsgCostNumber     = "Cost must be a number (e.g., 99 or 99.99)."
)

// References are the choices offered by the metadata form.
type References struct {
	Categories  []api.Category   `json:"categories"`
	Levels      []api.Level      `json:"levels"`
	Instructors []api.Instructor `json:"instructors"`
}

// MetadataStep edits the course fields. It shares the draft with its wizard.
type MetadataStep struct {
	mu          sync.RWMutex
	api         API
	mode        Mode
	courseID    int
	draft       *CourseDraft
	refs        References
	fieldErrors validation.FieldErrors
}

func newMetadataStep(client API, mode Mode, courseID int, draft *CourseDraft) *MetadataStep {
	return &MetadataStep{api: client, mode: mode, courseID: courseID, draft: draft, fieldErrors: validation.FieldErrors{}}
}

// LoadReferences fetches categories, levels and instructors concurrently. A
// failing list is reported but does not stop the others.
func (s *MetadataStep) LoadReferences(ctx context.Context) error {
	var (
		refs References
		mu   sync.Mutex
		errs []error
	)
	record := func(what string, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, errors.Wrapf(err, "failed to load %s", what))
	}

	var g errgroup.Group
	g.Go(func() error {
		categories, err := s.api.ListCategories(ctx)
		if err != nil {
			record("categories", err)
			return nil
		}
		refs.Categories = categories
		return nil
	})
	g.Go(func() error {
		levels, err := s.api.ListLevels(ctx)
		if err != nil {
			record("levels", err)
			return nil
		}
		refs.Levels = levels
		return nil
	})
	g.Go(func() error {
		instructors, err := s.api.ListInstructors(ctx)
		if err != nil {
			record("instructors", err)
			return nil
		}
		refs.Instructors = instructors
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	s.refs = refs
	s.dropForeignInstructor()
	s.mu.Unlock()
	return apperrors.Join(errs...)
}

func (s *MetadataStep) References() References {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refs
}

// FilteredInstructors are the instructors of the selected category.
func (s *MetadataStep) FilteredInstructors() []api.Instructor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filteredInstructors()
}

func (s *MetadataStep) filteredInstructors() []api.Instructor {
	categoryID, err := strconv.Atoi(s.draft.CategoryID)
	if err != nil {
		return []api.Instructor{}
	}
	return catalog.InstructorsInCategory(s.refs.Instructors, categoryID)
}

// dropForeignInstructor clears an instructor that does not teach the selected
// category. Before the instructor list is known nothing is cleared.
func (s *MetadataStep) dropForeignInstructor() {
	if s.draft.InstructorID == "" || s.refs.Instructors == nil {
		return
	}
	for _, in := range s.filteredInstructors() {
		if strconv.Itoa(in.ID) == s.draft.InstructorID {
			return
		}
	}
	s.draft.InstructorID = ""
}

// SetField stores one typed value. Numeric fields are checked as they change;
// a bad value is kept and flagged rather than rejected.
func (s *MetadataStep) SetField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch field {
	case FieldName:
		s.draft.Name = value
	case FieldCategoryID:
		if value != s.draft.CategoryID {
			s.draft.CategoryID = value
			s.dropForeignInstructor()
		}
	case FieldLevelID:
		s.draft.LevelID = value
	case FieldInstructorID:
		s.draft.InstructorID = value
	case FieldCost:
		s.draft.Cost = value
		s.flag(FieldCost, costError(value))
	case FieldTotalHours:
		s.draft.TotalHours = value
		s.flag(FieldTotalHours, hoursError(value))
	case FieldDescription:
		s.draft.Description = value
	case FieldCertification:
		s.draft.Certification = value
	case FieldRating:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 5 {
			return errors.Wrapf(apperrors.ErrInvalidInput, "rating %q", value)
		}
		s.draft.Rating = n
	default:
		return errors.Wrapf(apperrors.ErrInvalidInput, "unknown field %q", field)
	}
	return nil
}

func (s *MetadataStep) SetImage(upload *api.Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Image = upload
	s.draft.HasImage = upload != nil
}

func hoursError(value string) string {
	switch {
	case value == "":
		return ""
	case validation.Validate.Var(value, validation.DigitsTag) != nil:
		return MsgHoursInteger
	case !validation.IsPositiveInt(value):
		return MsgHoursMinimum
	}
	return ""
}

func costError(value string) string {
	if validation.IsDecimal(value) {
		return ""
	}
	return MsgCostNumber
}

func (s *MetadataStep) flag(field, msg string) {
	if msg == "" {
		delete(s.fieldErrors, field)
		return
	}
	s.fieldErrors[field] = msg
}

func (s *MetadataStep) FieldErrors() validation.FieldErrors {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(validation.FieldErrors, len(s.fieldErrors))
	for k, v := range s.fieldErrors {
		out[k] = v
	}
	return out
}

func (s *MetadataStep) Draft() CourseDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.draft
}

func (s *MetadataStep) CourseID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.courseID
}

// Validate checks the whole form without touching the network.
func (s *MetadataStep) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validate()
}

func (s *MetadataStep) validate() error {
	err := validation.Form(*s.draft, MsgRequiredFields, validation.Messages{
		FieldTotalHours + "." + validation.PositiveIntTag: MsgHoursInteger,
		FieldRating: "Please select a rating",
	})
	var formErr *validation.Error
	if err != nil && !errors.As(err, &formErr) {
		return err
	}
	if formErr == nil {
		formErr = &validation.Error{Message: MsgRequiredFields, Fields: validation.FieldErrors{}}
	}
	if s.mode == ModeAdd && s.draft.Image == nil {
		formErr.Fields[FieldImage] = "Image is required"
	}
	for field, msg := range s.fieldErrors {
		formErr.Fields[field] = msg
	}
	if len(formErr.Fields) == 0 {
		return nil
	}
	return formErr
}

// Submit validates, applies the purchase guard when editing, then creates or
// updates the course. It returns the course id for the content step.
func (s *MetadataStep) Submit(ctx context.Context) (int, error) {
	s.mu.RLock()
	if err := s.validate(); err != nil {
		s.mu.RUnlock()
		return 0, err
	}
	form := s.draft.form()
	mode, courseID := s.mode, s.courseID
	s.mu.RUnlock()

	if mode == ModeEdit {
		if err := admin.EnsureNotPurchased(ctx, s.api, courseID); err != nil {
			return 0, err
		}
		if err := s.api.UpdateCourse(ctx, courseID, form); err != nil {
			return 0, err
		}
		return courseID, nil
	}

	id, err := s.api.CreateCourse(ctx, form)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.courseID = id
	s.mode = ModeEdit
	s.mu.Unlock()
	return id, nil
}
