package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var groupSlugRegex = regexp.MustCompile(`^[a-z0-9_-]{1,50}$`)

var reservedGroupSlugs = map[string]struct{}{
	"admin":   {},
	"auth":    {},
	"create":  {},
	"follow":  {},
	"media":   {},
	"metrics": {},
	"static":  {},
}

// ValidateGroupSlug validates group slug format and reserved names.
func ValidateGroupSlug(slug string) error {
	if !groupSlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 1-50 characters and contain only lowercase letters, numbers, underscores and hyphens")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}
	if _, exists := reservedGroupSlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}
	return nil
}

// ValidateGroupTitle requires a non-blank title of at most 200 characters.
func ValidateGroupTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if len([]rune(title)) > 200 {
		return fmt.Errorf("title must not exceed 200 characters")
	}
	return nil
}
