// Package middleware provides the HTTP middleware chain: logging, sessions, rate limiting, metrics and tracing.
package middleware

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals populated by LoadSession.
const (
	LocalUserID = "userID"
	LocalUser   = "user"
)

// SessionResolver returns the user owning the request's session, or nil for anonymous requests.
type SessionResolver interface {
	Resolve(c *fiber.Ctx) (*models.User, error)
}

// LoadSession attaches the current user, if any, to the request. A broken session is logged and
// treated as anonymous.
func LoadSession(r SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := r.Resolve(c)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "session rejected", slog.String("error", err.Error()))
		}
		if user != nil {
			c.Locals(LocalUserID, user.ID)
			c.Locals(LocalUser, user)
			c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, user.ID))
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}

// LoginRequired redirects anonymous requests to loginPath with the original URL in "next".
func LoginRequired(loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) != nil {
			return c.Next()
		}
		return c.Redirect(LoginURL(loginPath, c.OriginalURL()), fiber.StatusFound)
	}
}

// LoginURL builds "<loginPath>?next=<next>" keeping slashes readable.
func LoginURL(loginPath, next string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
	return loginPath + "?next=" + escaped
}

// SafeNext returns next if it is a local path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return next
}
