package forms

import (
	"context"
	"strings"

	"quill/internal/models"
	"quill/internal/service"
	"quill/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const msgUsernameTaken = "A user with that username already exists."

// SignupForm registers a new account.
type SignupForm struct {
	Form
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password1 string
	Password2 string
}

func BindSignupForm(c *fiber.Ctx) *SignupForm {
	return &SignupForm{
		FirstName: strings.TrimSpace(c.FormValue("first_name")),
		LastName:  strings.TrimSpace(c.FormValue("last_name")),
		Username:  strings.TrimSpace(c.FormValue("username")),
		Email:     strings.TrimSpace(c.FormValue("email")),
		Password1: c.FormValue("password1"),
		Password2: c.FormValue("password2"),
	}
}

// Validate checks every field. Password strength is only checked once both entries match.
func (f *SignupForm) Validate(ctx context.Context, users UsernameChecker) (bool, error) {
	if err := validation.ValidateName(f.FirstName); err != nil {
		f.AddError("first_name", err.Error())
	}
	if err := validation.ValidateName(f.LastName); err != nil {
		f.AddError("last_name", err.Error())
	}
	if err := validation.ValidateEmail(f.Email); err != nil {
		f.AddError("email", err.Error())
	}

	if err := validation.ValidateUsername(f.Username); err != nil {
		f.AddError("username", err.Error())
	} else {
		taken, err := users.UsernameTaken(ctx, f.Username)
		if err != nil {
			return false, err
		}
		if taken {
			f.AddError("username", msgUsernameTaken)
		}
	}

	ok1 := f.require("password1", f.Password1)
	ok2 := f.require("password2", f.Password2)
	if ok1 && ok2 {
		if f.Password1 != f.Password2 {
			f.AddError("password2", validation.ErrPasswordMismatch.Error())
		} else {
			for _, err := range validation.ValidatePassword(f.Password2, f.Username, f.Email, f.FirstName, f.LastName) {
				f.AddError("password2", err.Error())
			}
		}
	}
	return f.Valid(), nil
}

// Input converts the bound form into a signup request.
func (f *SignupForm) Input() service.SignupInput {
	return service.SignupInput{
		Username:  f.Username,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Password:  f.Password1,
	}
}

// LoginForm authenticates an existing account.
type LoginForm struct {
	Form
	Username string
	Password string
	Next     string
}

func BindLoginForm(c *fiber.Ctx) *LoginForm {
	next := c.FormValue("next")
	if next == "" {
		next = c.Query("next")
	}
	return &LoginForm{
		Username: strings.TrimSpace(c.FormValue("username")),
		Password: c.FormValue("password"),
		Next:     next,
	}
}

func (f *LoginForm) Validate() bool {
	f.require("username", f.Username)
	f.require("password", f.Password)
	return f.Valid()
}

// PasswordChangeForm replaces the password of the logged-in user.
type PasswordChangeForm struct {
	Form
	OldPassword  string
	NewPassword1 string
	NewPassword2 string
}

func BindPasswordChangeForm(c *fiber.Ctx) *PasswordChangeForm {
	return &PasswordChangeForm{
		OldPassword:  c.FormValue("old_password"),
		NewPassword1: c.FormValue("new_password1"),
		NewPassword2: c.FormValue("new_password2"),
	}
}

func (f *PasswordChangeForm) Validate(user *models.User, verifier PasswordVerifier) bool {
	if f.require("old_password", f.OldPassword) && !verifier.VerifyPassword(user, f.OldPassword) {
		f.AddError("old_password", "Your old password was entered incorrectly. Please enter it again.")
	}
	ok1 := f.require("new_password1", f.NewPassword1)
	ok2 := f.require("new_password2", f.NewPassword2)
	if ok1 && ok2 {
		if f.NewPassword1 != f.NewPassword2 {
			f.AddError("new_password2", validation.ErrPasswordMismatch.Error())
		} else {
			for _, err := range validation.ValidatePassword(f.NewPassword2, user.Username, user.Email, user.FirstName, user.LastName) {
				f.AddError("new_password2", err.Error())
			}
		}
	}
	return f.Valid()
}
