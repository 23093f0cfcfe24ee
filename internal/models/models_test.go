package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThumbnailPathFor(t *testing.T) {
	assert.Equal(t, "posts/thumbs/small.gif.webp", ThumbnailPathFor("posts/small.gif"))
	assert.Equal(t, "posts/thumbs/a.b.png.webp", ThumbnailPathFor("posts/a.b.png"))
	assert.NotEqual(t, ThumbnailPathFor("posts/cat.png"), ThumbnailPathFor("posts/cat.gif"))
	assert.Equal(t, "", Post{}.ThumbnailPath())
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Ann Lee", User{Username: "ann", FirstName: "Ann", LastName: "Lee"}.FullName())
	assert.Equal(t, "ann", User{Username: "ann"}.FullName())
}

func TestPostExcerpt(t *testing.T) {
	p := Post{Text: "привет мир"}
	assert.Equal(t, "привет", p.Excerpt(6))
	assert.Equal(t, "привет мир", p.Excerpt(50))
}

func TestErrorCodeUnwrapsChain(t *testing.T) {
	err := fmt.Errorf("load post: %w", NewNotFoundError("Post", 7))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
	assert.False(t, IsNotFound(nil))

	internal := NewInternalError(errors.New("db down"))
	assert.Equal(t, "Internal server error: db down", internal.Error())
	assert.ErrorIs(t, fmt.Errorf("wrap: %w", internal), internal)
}
