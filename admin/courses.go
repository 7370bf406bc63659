// Package admin holds the console operations behind /dashboard: the purchase
// guard on courses, instructor maintenance and the summary figures.
package admin

import (
	"context"

	"github.com/jrsteele09/course-storefront/api"
	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/pkg/errors"
)

const (
	MsgCoursePurchased       = "This course cannot be updated because it has been purchased."
	MsgCoursePurchasedDelete = "This course cannot be deleted because it has been purchased."
)

type PaymentLister interface {
	ListPayments(ctx context.Context) ([]api.Payment, error)
}

// EnsureNotPurchased fails with a conflict when any payment references the course.
func EnsureNotPurchased(ctx context.Context, payments PaymentLister, courseID int) error {
	return ensureNotPurchased(ctx, payments, courseID, MsgCoursePurchased)
}

func ensureNotPurchased(ctx context.Context, payments PaymentLister, courseID int, message string) error {
	list, err := payments.ListPayments(ctx)
	if err != nil {
		return err
	}
	for _, p := range list {
		if p.CourseID == courseID {
			return &api.Error{Kind: api.KindConflict, Message: message, Err: apperrors.ErrCoursePurchased}
		}
	}
	return nil
}

type CoursesAPI interface {
	PaymentLister
	GetCourse(ctx context.Context, id int) (*api.Course, error)
	DeleteCourse(ctx context.Context, id int) error
}

// Courses guards edits and deletes of courses that have been sold.
type Courses struct {
	api CoursesAPI
}

func NewCourses(client CoursesAPI) (*Courses, error) {
	if client == nil {
		return nil, errors.New("[NewCourses] api is required")
	}
	return &Courses{api: client}, nil
}

// EnsureEditable returns the stored course when it may still be edited.
func (c *Courses) EnsureEditable(ctx context.Context, courseID int) (*api.Course, error) {
	if err := EnsureNotPurchased(ctx, c.api, courseID); err != nil {
		return nil, err
	}
	course, err := c.api.GetCourse(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "[Courses.EnsureEditable] loading course")
	}
	return course, nil
}

func (c *Courses) Delete(ctx context.Context, courseID int) error {
	if err := ensureNotPurchased(ctx, c.api, courseID, MsgCoursePurchasedDelete); err != nil {
		return err
	}
	return c.api.DeleteCourse(ctx, courseID)
}
