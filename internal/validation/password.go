// Package validation provides input validation rules for accounts, passwords and groups.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
	maxPasswordLength = 128
	// maxSimilarity is the SequenceMatcher-style ratio above which a password is rejected as too
	// close to a user attribute.
	maxSimilarity = 0.7
)

var (
	ErrPasswordTooShort    = fmt.Errorf("This password is too short. It must contain at least %d characters.", MinPasswordLength)
	ErrPasswordTooLong     = fmt.Errorf("This password is too long. It must contain at most %d characters.", maxPasswordLength)
	ErrPasswordNumeric     = errors.New("This password is entirely numeric.")
	ErrPasswordCommon      = errors.New("This password is too common.")
	ErrPasswordTooSimilar  = errors.New("The password is too similar to your personal information.")
	ErrPasswordMismatch    = errors.New("The two password fields didn't match.")
	nonWordRegex           = regexp.MustCompile(`\W+`)
	allDigitsRegex         = regexp.MustCompile(`^[0-9]+$`)
)

// ValidatePassword checks password strength. attrs are user attributes (username, email, names)
// the password must not resemble. All failing rules are returned.
func ValidatePassword(password string, attrs ...string) []error {
	var errs []error

	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		errs = append(errs, ErrPasswordTooShort)
	}
	if n > maxPasswordLength {
		errs = append(errs, ErrPasswordTooLong)
	}
	if tooSimilar(password, attrs) {
		errs = append(errs, ErrPasswordTooSimilar)
	}
	if isCommonPassword(password) {
		errs = append(errs, ErrPasswordCommon)
	}
	if allDigitsRegex.MatchString(password) {
		errs = append(errs, ErrPasswordNumeric)
	}
	return errs
}

func tooSimilar(password string, attrs []string) bool {
	pw := strings.ToLower(password)
	for _, attr := range attrs {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" {
			continue
		}
		parts := append(nonWordRegex.Split(attr, -1), attr)
		for _, part := range parts {
			if part == "" {
				continue
			}
			if similarity(pw, part) >= maxSimilarity {
				return true
			}
		}
	}
	return false
}

// similarity is the Ratcliff/Obershelp ratio 2*M/T, where M is the number of characters in
// matching blocks found by repeatedly taking the longest common substring.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingChars(ra, rb)) / float64(total)
}

func matchingChars(a, b []rune) int {
	i, j, size := longestCommon(a, b)
	if size == 0 {
		return 0
	}
	return size + matchingChars(a[:i], b[:j]) + matchingChars(a[i+size:], b[j+size:])
}

func longestCommon(a, b []rune) (besti, bestj, bestSize int) {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestSize {
					bestSize = cur[j]
					besti, bestj = i-bestSize, j-bestSize
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return besti, bestj, bestSize
}
