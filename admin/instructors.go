package admin

import (
	"context"
	"strconv"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/catalog"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/jrsteele09/course-storefront/internal/validation"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	MsgInstructorInvalid    = "Please correct the highlighted instructor fields."
	MsgInstructorHasCourses = "Cannot delete instructor because they are associated with one or more courses."
)

type InstructorsAPI interface {
	ListInstructors(ctx context.Context) ([]api.Instructor, error)
	ListCategories(ctx context.Context) ([]api.Category, error)
	ListCourses(ctx context.Context) ([]api.Course, error)
	CreateInstructor(ctx context.Context, form api.InstructorForm) (*api.Instructor, error)
	UpdateInstructor(ctx context.Context, id int, form api.InstructorForm) error
	DeleteInstructor(ctx context.Context, id int) error
}

// InstructorInput is the instructor form as typed.
type InstructorInput struct {
	Name        string      `json:"name" validate:"notblank"`
	CategoryID  string      `json:"categoryId" validate:"notblank"`
	Rating      int         `json:"rating" validate:"min=1,max=5"`
	Description string      `json:"description" validate:"notblank"`
	Image       *api.Upload `json:"-"`
}

var instructorMessages = validation.Messages{
	"name":        "Instructor name is required",
	"categoryId":  "Category is required",
	"description": "Description is required",
	"rating":      "Rating is required",
}

func (in InstructorInput) form() api.InstructorForm {
	return api.InstructorForm{
		Name:        in.Name,
		CategoryID:  in.CategoryID,
		Rate:        strconv.Itoa(in.Rating),
		Description: in.Description,
		Image:       in.Image,
	}
}

// Validate checks the form; an image is only required when creating.
func (in InstructorInput) Validate(create bool) error {
	fields := validation.FieldErrors{}
	if err := validation.Struct(in, instructorMessages); err != nil {
		fe, ok := err.(validation.FieldErrors)
		if !ok {
			return err
		}
		fields = fe
	}
	if create && in.Image == nil {
		fields["image"] = "Image is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return &validation.Error{Message: MsgInstructorInvalid, Fields: fields}
}

type Instructors struct {
	api InstructorsAPI
}

func NewInstructors(client InstructorsAPI) (*Instructors, error) {
	if client == nil {
		return nil, errors.New("[NewInstructors] api is required")
	}
	return &Instructors{api: client}, nil
}

// List returns every instructor with its category title.
func (s *Instructors) List(ctx context.Context) ([]catalog.InstructorRow, error) {
	var (
		instructors []api.Instructor
		categories  []api.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		instructors, err = s.api.ListInstructors(gctx)
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.api.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return catalog.JoinInstructors(instructors, categories), nil
}

func (s *Instructors) Create(ctx context.Context, in InstructorInput) (*api.Instructor, error) {
	if err := in.Validate(true); err != nil {
		return nil, err
	}
	return s.api.CreateInstructor(ctx, in.form())
}

func (s *Instructors) Update(ctx context.Context, id int, in InstructorInput) error {
	if err := in.Validate(false); err != nil {
		return err
	}
	return s.api.UpdateInstructor(ctx, id, in.form())
}

// Delete refuses while any course is taught by the instructor.
func (s *Instructors) Delete(ctx context.Context, id int) error {
	courses, err := s.api.ListCourses(ctx)
	if err != nil {
		return err
	}
	for _, c := range courses {
		if c.InstructorID == id {
			return &api.Error{Kind: api.KindConflict, Message: MsgInstructorHasCourses, Err: apperrors.ErrInstructorHasCourses}
		}
	}
	return s.api.DeleteInstructor(ctx, id)
}
