package server

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countPosts(t *testing.T, env *testEnv) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.srv.db.Model(&models.Post{}).Count(&n).Error)
	return n
}

func latestPost(t *testing.T, env *testEnv) *models.Post {
	t.Helper()
	var post models.Post
	require.NoError(t, env.srv.db.Order("id DESC").First(&post).Error)
	return &post
}

func TestCreatePost_WithImageAndGroup(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	group := env.createGroup(t, "cats")
	cookie := env.cookie(t, leo)

	resp := env.postMultipart(t, "/create/", map[string]string{
		"text":  "Text with a picture",
		"group": strconv.FormatUint(uint64(group.ID), 10),
	}, &upload{field: "image", filename: "small.gif", content: testutil.SmallGIF}, cookie)
	assertRedirect(t, resp, "/profile/leo/")

	require.EqualValues(t, 1, countPosts(t, env))
	post := latestPost(t, env)
	assert.Equal(t, "Text with a picture", post.Text)
	assert.Equal(t, leo.ID, post.AuthorID)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, group.ID, *post.GroupID)
	assert.Equal(t, "posts/small.gif", post.Image)

	root := env.srv.config.MediaRoot
	assert.FileExists(t, filepath.Join(root, "posts", "small.gif"))
	assert.FileExists(t, filepath.Join(root, "posts", "thumbs", "small.gif.webp"))

	for _, path := range []string{"/", "/group/cats/", "/profile/leo/"} {
		body := readBody(t, env.get(t, path, nil))
		assert.Contains(t, body, `src="/media/posts/thumbs/small.gif.webp"`, path)
	}
	body := readBody(t, env.get(t, fmt.Sprintf("/posts/%d/", post.ID), nil))
	assert.Contains(t, body, `src="/media/posts/small.gif"`)

	media := env.get(t, "/media/posts/small.gif", nil)
	assert.Equal(t, fiber.StatusOK, media.StatusCode)
}

func TestCreatePost_IgnoresAuthorField(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	mia := env.createUser(t, "mia")

	resp := env.postForm(t, "/create/", url.Values{
		"text":   {"mine"},
		"author": {strconv.FormatUint(uint64(mia.ID), 10)},
	}, env.cookie(t, leo))
	assertRedirect(t, resp, "/profile/leo/")
	assert.Equal(t, leo.ID, latestPost(t, env).AuthorID)
}

func TestCreatePost_InvalidFormRerenders(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	cookie := env.cookie(t, leo)

	tests := []struct {
		name   string
		fields map[string]string
		file   *upload
		errMsg string
	}{
		{"blank text", map[string]string{"text": "   "}, nil, "This field is required."},
		{"unknown group", map[string]string{"text": "ok", "group": "999"}, nil, "Select a valid choice."},
		{"not an image", map[string]string{"text": "ok"},
			&upload{field: "image", filename: "notes.gif", content: []byte("plain text")}, "Upload a valid image."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.postMultipart(t, "/create/", tt.fields, tt.file, cookie)
			body := readBody(t, resp)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assertTemplate(t, body, "posts/create_post.html")
			assert.Contains(t, body, tt.errMsg)
		})
	}
	assert.Zero(t, countPosts(t, env))
}

func TestCreatePost_AnonymousIsRedirected(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, "/create/", url.Values{"text": {"sneaky"}}, nil)
	assertRedirect(t, resp, "/auth/login/?next=/create/")
	assert.Zero(t, countPosts(t, env))
}

func TestEditPost_AuthorUpdatesInPlace(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	cats := env.createGroup(t, "cats")
	dogs := env.createGroup(t, "dogs")
	post := env.createPost(t, leo, "before", cats)
	cookie := env.cookie(t, leo)
	path := fmt.Sprintf("/posts/%d/edit/", post.ID)

	body := readBody(t, env.get(t, path, cookie))
	assert.Contains(t, body, "before")

	resp := env.postMultipart(t, path, map[string]string{
		"text":  "after",
		"group": strconv.FormatUint(uint64(dogs.ID), 10),
	}, &upload{field: "image", filename: "small.gif", content: testutil.SmallGIF}, cookie)
	assertRedirect(t, resp, fmt.Sprintf("/posts/%d/", post.ID))

	require.EqualValues(t, 1, countPosts(t, env))
	edited := latestPost(t, env)
	assert.Equal(t, post.ID, edited.ID)
	assert.Equal(t, "after", edited.Text)
	assert.Equal(t, leo.ID, edited.AuthorID)
	require.NotNil(t, edited.GroupID)
	assert.Equal(t, dogs.ID, *edited.GroupID)
	assert.Equal(t, "posts/small.gif", edited.Image)

	catsPage := readBody(t, env.get(t, "/group/cats/", nil))
	assert.NotContains(t, catsPage, "after")

	resp = env.postForm(t, path, url.Values{"text": {"after"}, "image-clear": {"on"}}, cookie)
	assertRedirect(t, resp, fmt.Sprintf("/posts/%d/", post.ID))
	cleared := latestPost(t, env)
	assert.Empty(t, cleared.Image)
	assert.Nil(t, cleared.GroupID)
}

func TestEditPost_NonAuthorIsSilentlyRedirected(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	mia := env.createUser(t, "mia")
	post := env.createPost(t, leo, "original", nil)
	cookie := env.cookie(t, mia)
	path := fmt.Sprintf("/posts/%d/edit/", post.ID)
	detail := fmt.Sprintf("/posts/%d/", post.ID)

	assertRedirect(t, env.get(t, path, cookie), detail)
	assertRedirect(t, env.postForm(t, path, url.Values{"text": {"hijacked"}}, cookie), detail)

	assert.Equal(t, "original", latestPost(t, env).Text)
}

func TestEditPost_InvalidFormRerenders(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	post := env.createPost(t, leo, "original", nil)

	resp := env.postForm(t, fmt.Sprintf("/posts/%d/edit/", post.ID), url.Values{"text": {""}}, env.cookie(t, leo))
	body := readBody(t, resp)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assertTemplate(t, body, "posts/create_post.html")
	assert.Equal(t, "original", latestPost(t, env).Text)
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	mia := env.createUser(t, "mia")
	post := env.createPost(t, leo, "commentable", nil)
	target := fmt.Sprintf("/posts/%d/comment/", post.ID)
	detail := fmt.Sprintf("/posts/%d/", post.ID)

	countComments := func() int64 {
		var n int64
		require.NoError(t, env.srv.db.Model(&models.Comment{}).Count(&n).Error)
		return n
	}

	assertRedirect(t, env.postForm(t, target, url.Values{"text": {"anon"}}, nil), "/auth/login/?next="+target)
	assert.Zero(t, countComments())

	assertRedirect(t, env.postForm(t, target, url.Values{"text": {"Nice post!"}}, env.cookie(t, mia)), detail)
	assert.EqualValues(t, 1, countComments())

	var comment models.Comment
	require.NoError(t, env.srv.db.First(&comment).Error)
	assert.Equal(t, mia.ID, comment.AuthorID)
	assert.Equal(t, post.ID, comment.PostID)
	assert.Equal(t, "Nice post!", comment.Text)

	assertRedirect(t, env.postForm(t, target, url.Values{"text": {"  "}}, env.cookie(t, mia)), detail)
	assert.EqualValues(t, 1, countComments())

	body := readBody(t, env.get(t, detail, nil))
	assert.Contains(t, body, "Nice post!")

	resp := env.postForm(t, "/posts/9999/comment/", url.Values{"text": {"lost"}}, env.cookie(t, mia))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestIndex_ServedFromCacheWithinTTL(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	env.createPost(t, leo, "first entry", nil)

	body := readBody(t, env.get(t, "/", nil))
	assert.Contains(t, body, "first entry")

	env.createPost(t, leo, "second entry", nil)
	body = readBody(t, env.get(t, "/", nil))
	assert.NotContains(t, body, "second entry")

	env.redis.FlushAll()
	body = readBody(t, env.get(t, "/", nil))
	assert.Contains(t, body, "second entry")
}

func TestIndex_CacheIsPerViewer(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	env.createPost(t, leo, "entry", nil)

	anon := readBody(t, env.get(t, "/", nil))
	assert.NotContains(t, anon, "/auth/logout/")

	logged := readBody(t, env.get(t, "/", env.cookie(t, leo)))
	assert.Contains(t, logged, "/auth/logout/")
}

func TestMediaMissingFileIs404(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env.srv.config.MediaRoot, "posts"), 0o755))

	resp := env.get(t, "/media/posts/none.gif", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
