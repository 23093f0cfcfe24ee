// Package forms binds and validates the HTML forms of the site.
package forms

import (
	"context"
	"errors"
	"strings"

	"quill/internal/models"
)

const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
)

// Form collects validation errors. Errors under the empty key are shown above the form.
type Form struct {
	Errors         map[string][]string
	NonFieldErrors []string
}

// AddError records msg against field, or as a non-field error when field is empty.
func (f *Form) AddError(field, msg string) {
	if field == "" {
		f.NonFieldErrors = append(f.NonFieldErrors, msg)
		return
	}
	if f.Errors == nil {
		f.Errors = make(map[string][]string)
	}
	f.Errors[field] = append(f.Errors[field], msg)
}

// Valid reports whether no errors were recorded.
func (f *Form) Valid() bool {
	return len(f.Errors) == 0 && len(f.NonFieldErrors) == 0
}

// FieldErrors returns the messages recorded for field.
func (f *Form) FieldErrors(field string) []string {
	return f.Errors[field]
}

// HasError reports whether field has any message.
func (f *Form) HasError(field string) bool {
	return len(f.Errors[field]) > 0
}

func (f *Form) require(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		f.AddError(field, msgRequired)
		return false
	}
	return true
}

// Apply records a service-level input error on field. It returns false for errors that are not
// about user input, which the caller should handle.
func (f *Form) Apply(field string, err error) bool {
	switch models.ErrorCode(err) {
	case models.CodeValidation, models.CodeConflict, models.CodeUnauthorized:
		f.AddError(field, appMessage(err))
		return true
	default:
		return false
	}
}

func appMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// GroupLookup resolves a group by id.
type GroupLookup interface {
	GetByID(ctx context.Context, id uint) (*models.Group, error)
}

// ImageChecker validates uploaded image bytes.
type ImageChecker interface {
	Check(content []byte) error
}

// UsernameChecker reports whether a username is already taken.
type UsernameChecker interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

// PasswordVerifier checks a user's current password.
type PasswordVerifier interface {
	VerifyPassword(user *models.User, password string) bool
}
