package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverStub struct {
	user *models.User
	err  error
}

func (r resolverStub) Resolve(*fiber.Ctx) (*models.User, error) {
	return r.user, r.err
}

func newAuthApp(r SessionResolver) *fiber.App {
	app := fiber.New()
	app.Use(LoadSession(r))
	app.Get("/create/", LoginRequired("/auth/login/"), func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c).Username)
	})
	return app
}

func TestLoginRequired(t *testing.T) {
	tests := []struct {
		name           string
		resolver       SessionResolver
		target         string
		expectedStatus int
		expectedLoc    string
	}{
		{
			name:           "Anonymous redirected with next",
			resolver:       resolverStub{},
			target:         "/create/",
			expectedStatus: http.StatusFound,
			expectedLoc:    "/auth/login/?next=/create/",
		},
		{
			name:           "Query string kept in next",
			resolver:       resolverStub{},
			target:         "/create/?page=2",
			expectedStatus: http.StatusFound,
			expectedLoc:    "/auth/login/?next=/create/%3Fpage%3D2",
		},
		{
			name:           "Broken session treated as anonymous",
			resolver:       resolverStub{err: errors.New("bad signature")},
			target:         "/create/",
			expectedStatus: http.StatusFound,
			expectedLoc:    "/auth/login/?next=/create/",
		},
		{
			name:           "Authenticated passes",
			resolver:       resolverStub{user: &models.User{ID: 3, Username: "leo"}},
			target:         "/create/",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAuthApp(tt.resolver)
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedLoc != "" {
				assert.Equal(t, tt.expectedLoc, resp.Header.Get("Location"))
			}
		})
	}
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/posts/1/", SafeNext("/posts/1/", "/"))
	assert.Equal(t, "/", SafeNext("", "/"))
	assert.Equal(t, "/", SafeNext("//evil.example", "/"))
	assert.Equal(t, "/", SafeNext("https://evil.example/", "/"))
	assert.Equal(t, "/", SafeNext("/\\evil.example", "/"))
}
