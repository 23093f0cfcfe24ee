package session

import (
	"context"

	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UserLookup loads a user by id.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// Resolver maps the session cookie of a request to its user.
type Resolver struct {
	manager *Manager
	users   UserLookup
}

// NewResolver returns a Resolver using users for lookups.
func NewResolver(manager *Manager, users UserLookup) *Resolver {
	return &Resolver{manager: manager, users: users}
}

// Resolve returns nil for anonymous requests. A session whose user is gone or whose password has
// changed is anonymous too.
func (r *Resolver) Resolve(c *fiber.Ctx) (*models.User, error) {
	token := c.Cookies(CookieName)
	if token == "" {
		return nil, nil
	}

	claims, err := r.manager.Parse(c.UserContext(), token)
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !r.manager.Matches(claims, user) {
		return nil, nil
	}
	return user, nil
}
