package wizard

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/course-storefront/api"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/internal/validation"
)

type Stage string

const (
	StageMetadata Stage = "metadata"
	StageContents Stage = "contents"
	StageDone     Stage = "done"
)

// Wizard walks one course through both steps. Requests it issues are bound to
// its lifetime as well as to the caller's context, so Close cancels them.
type Wizard struct {
	ID string

	mu       sync.RWMutex
	mode     Mode
	stage    Stage
	draft    *CourseDraft
	metadata *MetadataStep
	contents *ContentStep
	loaded   bool

	life   context.Context
	cancel context.CancelFunc
}

// NewAdd starts a wizard for a new course.
func NewAdd(client API) *Wizard {
	return newWizard(client, ModeAdd, 0, &CourseDraft{})
}

// NewEdit starts a wizard seeded from a stored course.
func NewEdit(client API, course api.Course) *Wizard {
	draft := DraftFromCourse(course)
	return newWizard(client, ModeEdit, course.ID, &draft)
}

func newWizard(client API, mode Mode, courseID int, draft *CourseDraft) *Wizard {
	life, cancel := context.WithCancel(context.Background())
	return &Wizard{
		ID:       uuid.NewString(),
		mode:     mode,
		stage:    StageMetadata,
		draft:    draft,
		metadata: newMetadataStep(client, mode, courseID, draft),
		contents: newContentStep(client, mode, courseID),
		life:     life,
		cancel:   cancel,
	}
}

// scope derives a context that ends with either ctx or the wizard.
func (w *Wizard) scope(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if w.life.Err() != nil {
		return nil, nil, apperrors.ErrWizardClosed
	}
	scoped, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(w.life, cancel)
	return scoped, func() {
		stop()
		cancel()
	}, nil
}

// finish drops the result of a call that completed after Close.
func (w *Wizard) finish(err error) error {
	if w.life.Err() != nil {
		return apperrors.ErrWizardClosed
	}
	return err
}

func (w *Wizard) requireStage(stage Stage) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.life.Err() != nil {
		return apperrors.ErrWizardClosed
	}
	if w.stage != stage {
		return apperrors.Wrapf(apperrors.ErrWrongStage, "wizard is at %s", w.stage)
	}
	return nil
}

func (w *Wizard) Mode() Mode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.mode
}

func (w *Wizard) Stage() Stage {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stage
}

func (w *Wizard) Metadata() *MetadataStep { return w.metadata }

func (w *Wizard) Contents() *ContentStep { return w.contents }

// Start loads the metadata choices.
func (w *Wizard) Start(ctx context.Context) error {
	scoped, done, err := w.scope(ctx)
	if err != nil {
		return err
	}
	defer done()
	return w.finish(w.metadata.LoadReferences(scoped))
}

func (w *Wizard) SetField(field, value string) error {
	if err := w.requireStage(StageMetadata); err != nil {
		return err
	}
	return w.metadata.SetField(field, value)
}

func (w *Wizard) SetImage(upload *api.Upload) error {
	if err := w.requireStage(StageMetadata); err != nil {
		return err
	}
	w.metadata.SetImage(upload)
	return nil
}

// SubmitMetadata saves step one and moves to the content rows.
func (w *Wizard) SubmitMetadata(ctx context.Context) (int, error) {
	if err := w.requireStage(StageMetadata); err != nil {
		return 0, err
	}
	scoped, done, err := w.scope(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	courseID, err := w.metadata.Submit(scoped)
	if err = w.finish(err); err != nil {
		return 0, err
	}
	w.contents.setCourse(courseID, w.Mode())
	return courseID, w.enterContents(scoped)
}

// GoToContents skips straight to the rows of a stored course.
func (w *Wizard) GoToContents(ctx context.Context) error {
	if err := w.requireStage(StageMetadata); err != nil {
		return err
	}
	if w.Mode() != ModeEdit {
		return apperrors.ErrEditOnly
	}
	scoped, done, err := w.scope(ctx)
	if err != nil {
		return err
	}
	defer done()
	return w.enterContents(scoped)
}

// enterContents loads the rows the first time the step is shown. A failed load
// still enters the step with the fallback row; LoadErr reports it.
func (w *Wizard) enterContents(ctx context.Context) error {
	w.mu.RLock()
	loaded := w.loaded
	w.mu.RUnlock()

	if !loaded {
		if err := w.contents.Load(ctx); api.IsCanceled(err) || w.life.Err() != nil {
			return w.finish(err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.loaded = true
	w.stage = StageContents
	return nil
}

// Back returns to the metadata step keeping every typed value.
func (w *Wizard) Back() error {
	if err := w.requireStage(StageContents); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stage = StageMetadata
	return nil
}

func (w *Wizard) AddRow() (ContentItem, error) {
	if err := w.requireStage(StageContents); err != nil {
		return ContentItem{}, err
	}
	return w.contents.AddRow(), nil
}

func (w *Wizard) UpdateRow(id ItemID, field, value string) error {
	if err := w.requireStage(StageContents); err != nil {
		return err
	}
	return w.contents.UpdateRow(id, field, value)
}

func (w *Wizard) RemoveRow(ctx context.Context, id ItemID) error {
	return w.contentCall(ctx, func(scoped context.Context) error {
		return w.contents.RemoveRow(scoped, id)
	})
}

func (w *Wizard) SaveRow(ctx context.Context, id ItemID) error {
	return w.contentCall(ctx, func(scoped context.Context) error {
		return w.contents.SaveRow(scoped, id)
	})
}

// SaveContents saves every row and completes the wizard.
func (w *Wizard) SaveContents(ctx context.Context) error {
	err := w.contentCall(ctx, w.contents.SaveAll)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stage = StageDone
	return nil
}

func (w *Wizard) contentCall(ctx context.Context, fn func(context.Context) error) error {
	if err := w.requireStage(StageContents); err != nil {
		return err
	}
	scoped, done, err := w.scope(ctx)
	if err != nil {
		return err
	}
	defer done()
	return w.finish(fn(scoped))
}

// Close cancels outstanding requests. Later calls fail with ErrWizardClosed.
func (w *Wizard) Close() {
	w.cancel()
}

func (w *Wizard) Closed() bool {
	return w.life.Err() != nil
}

// View is the serialisable state of a wizard.
type View struct {
	ID          string                 `json:"id"`
	Mode        Mode                   `json:"mode"`
	Stage       Stage                  `json:"stage"`
	CourseID    int                    `json:"courseId,omitempty"`
	Draft       CourseDraft            `json:"draft"`
	FieldErrors validation.FieldErrors `json:"fieldErrors,omitempty"`
	References  References             `json:"references"`
	Instructors []api.Instructor       `json:"filteredInstructors"`
	Contents    []ContentItem          `json:"contents,omitempty"`
	LoadError   string                 `json:"loadError,omitempty"`
}

func (w *Wizard) View() View {
	w.mu.RLock()
	mode, stage := w.mode, w.stage
	w.mu.RUnlock()

	v := View{
		ID:          w.ID,
		Mode:        mode,
		Stage:       stage,
		CourseID:    w.metadata.CourseID(),
		Draft:       w.metadata.Draft(),
		FieldErrors: w.metadata.FieldErrors(),
		References:  w.metadata.References(),
		Instructors: w.metadata.FilteredInstructors(),
	}
	if stage != StageMetadata {
		v.Contents = w.contents.Items()
		if err := w.contents.LoadErr(); err != nil {
			v.LoadError = api.MessageOf(err)
		}
	}
	return v
}
