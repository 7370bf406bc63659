package errors

import (
	"errors"
	"fmt"
)

// Common error types for the storefront
var (
	// Session errors
	ErrNoSession      = errors.New("no session")
	ErrSessionExpired = errors.New("session expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrNoToken        = errors.New("no token found")

	// OAuth callback errors
	ErrInvalidCallback = errors.New("invalid callback parameters")

	// Draft wizard errors
	ErrNoCourseID      = errors.New("no course ID provided, complete step 1 first")
	ErrLastContentItem = errors.New("at least one content item is required")
	ErrRowNotPersisted = errors.New("content item has not been saved yet")
	ErrRowNotFound     = errors.New("content item not found")
	ErrWizardClosed    = errors.New("wizard closed")
	ErrWrongStage      = errors.New("wizard is not at this step")
	ErrEditOnly        = errors.New("only available when editing")

	// Business conflicts
	ErrCoursePurchased      = errors.New("this course cannot be updated because it has been purchased")
	ErrInstructorHasCourses = errors.New("cannot delete instructor because they are associated with one or more courses")

	// Checkout errors
	ErrEmptyCart = errors.New("no courses in cart to process payment")

	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join is errors.Join, re-exported so callers need only this package.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
