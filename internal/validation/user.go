package validation

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxUsernameLength is the longest username the signup form accepts.
	MaxUsernameLength = 20
	// MaxNameLength bounds first and last names.
	MaxNameLength = 12
	maxEmailLength = 254
)

var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

var (
	ErrUsernameRequired = errors.New("This field is required.")
	ErrUsernameTooLong  = errors.New("Ensure this value has at most 20 characters.")
	ErrUsernameInvalid  = errors.New("Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	ErrNameTooLong      = errors.New("Ensure this value has at most 12 characters.")
	ErrEmailInvalid     = errors.New("Enter a valid email address.")
)

// ValidateUsername checks length and the allowed character set.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if !usernameRegex.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

// ValidateName checks an optional first or last name.
func ValidateName(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateEmail accepts an empty value or a bare address.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > maxEmailLength || strings.ContainsAny(email, " <>") {
		return ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return ErrEmailInvalid
	}
	return nil
}

// NormalizeEmail lowercases the domain part, leaving the local part untouched.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	return local + "@" + strings.ToLower(domain)
}
