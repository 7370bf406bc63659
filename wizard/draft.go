// Package wizard is the two step course editor: course metadata first, then
// the list of content rows.
package wizard

import (
	"context"
	"strconv"

	"github.com/jrsteele09/course-storefront/api"
	"github.com/jrsteele09/course-storefront/internal/utils"
)

type Mode string

const (
	ModeAdd  Mode = "add"
	ModeEdit Mode = "edit"
)

// API is everything the wizard asks of the remote client.
type API interface {
	ListCategories(ctx context.Context) ([]api.Category, error)
	ListLevels(ctx context.Context) ([]api.Level, error)
	ListInstructors(ctx context.Context) ([]api.Instructor, error)
	ListPayments(ctx context.Context) ([]api.Payment, error)
	CreateCourse(ctx context.Context, form api.CourseForm) (int, error)
	UpdateCourse(ctx context.Context, id int, form api.CourseForm) error
	ListContents(ctx context.Context, courseID int) ([]api.Content, error)
	CreateContent(ctx context.Context, content api.Content) (*api.Content, error)
	UpdateContent(ctx context.Context, content api.Content) error
	DeleteContent(ctx context.Context, id int) error
}

const (
	FieldName          = "name"
	FieldCategoryID    = "categoryId"
	FieldLevelID       = "levelId"
	FieldInstructorID  = "instructorId"
	FieldCost          = "cost"
	FieldTotalHours    = "totalHours"
	FieldDescription   = "description"
	FieldCertification = "certification"
	FieldRating        = "rating"
	FieldImage         = "image"
)

// CourseDraft is the in-progress course. Values are kept as typed so partial
// input survives until submit.
type CourseDraft struct {
	Name          string      `json:"name" validate:"notblank"`
	CategoryID    string      `json:"categoryId" validate:"notblank"`
	LevelID       string      `json:"levelId" validate:"notblank"`
	InstructorID  string      `json:"instructorId" validate:"notblank"`
	Cost          string      `json:"cost" validate:"notblank,decimal_str"`
	TotalHours    string      `json:"totalHours" validate:"notblank,positive_int"`
	Description   string      `json:"description" validate:"notblank"`
	Certification string      `json:"certification" validate:"notblank"`
	Rating        int         `json:"rating" validate:"min=1,max=5"`
	Image         *api.Upload `json:"-"`
	HasImage      bool        `json:"hasImage"`
}

// DraftFromCourse seeds an edit from the stored course. The stored image stays
// on the server unless a new one is chosen.
func DraftFromCourse(c api.Course) CourseDraft {
	return CourseDraft{
		Name:          c.Name,
		CategoryID:    utils.Itoa(c.CategoryID),
		LevelID:       utils.Itoa(c.LevelID),
		InstructorID:  utils.Itoa(c.InstructorID),
		Cost:          strconv.FormatFloat(c.Cost, 'f', -1, 64),
		TotalHours:    utils.Itoa(c.TotalHours),
		Description:   c.Description,
		Certification: c.Certification,
		Rating:        c.Rate,
	}
}

func (d CourseDraft) form() api.CourseForm {
	return api.CourseForm{
		Name:          d.Name,
		CategoryID:    d.CategoryID,
		LevelID:       d.LevelID,
		InstructorID:  d.InstructorID,
		Cost:          d.Cost,
		TotalHours:    d.TotalHours,
		Rate:          strconv.Itoa(d.Rating),
		Description:   d.Description,
		Certification: d.Certification,
		Image:         d.Image,
	}
}
