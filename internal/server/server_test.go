package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"quill/internal/config"
	"quill/internal/models"
	"quill/internal/service"
	"quill/internal/session"
	"quill/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "vEry-l0ng-pass"

type testEnv struct {
	srv   *Server
	app   *fiber.App
	redis *miniredis.Miniredis
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Port:                 "0",
		Env:                  "test",
		DBDriver:             "sqlite",
		SessionSecret:        "test-session-secret-of-32-characters",
		SessionTTLHours:      24,
		MediaRoot:            t.TempDir(),
		PageSize:             10,
		IndexCacheSeconds:    20,
		ImageMaxUploadSizeMB: 5,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv, err := NewServerWithDeps(testConfig(t), testutil.NewTestDB(t), rdb)
	require.NoError(t, err)
	srv.userService.WithHashCost(bcrypt.MinCost)

	return &testEnv{srv: srv, app: srv.App(), redis: mr}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.srv.userService.Signup(context.Background(), service.SignupInput{
		Username:  username,
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		Password:  testPassword,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createGroup(t *testing.T, slug string) *models.Group {
	t.Helper()
	group, err := e.srv.groupService.CreateGroup(context.Background(), service.CreateGroupInput{
		Title:       "Group " + slug,
		Slug:        slug,
		Description: "About " + slug,
	})
	require.NoError(t, err)
	return group
}

func (e *testEnv) createPost(t *testing.T, author *models.User, text string, group *models.Group) *models.Post {
	t.Helper()
	in := service.CreatePostInput{AuthorID: author.ID, Text: text}
	if group != nil {
		in.GroupID = &group.ID
	}
	post, err := e.srv.postService.CreatePost(context.Background(), in)
	require.NoError(t, err)
	return post
}

func (e *testEnv) cookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	token, _, err := e.srv.sessions.Issue(user)
	require.NoError(t, err)
	return &http.Cookie{Name: session.CookieName, Value: token}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookie *http.Cookie) *http.Response {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, target string, cookie *http.Cookie) *http.Response {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil), cookie)
}

func (e *testEnv) postForm(t *testing.T, target string, values url.Values, cookie *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, cookie)
}

type upload struct {
	field, filename string
	content         []byte
}

func (e *testEnv) postMultipart(t *testing.T, target string, fields map[string]string, file *upload, cookie *http.Cookie) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(t, req, cookie)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func assertTemplate(t *testing.T, body, name string) {
	t.Helper()
	assert.Contains(t, body, `data-template="`+name+`"`)
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, location, resp.Header.Get("Location"))
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c
		}
	}
	return nil
}
