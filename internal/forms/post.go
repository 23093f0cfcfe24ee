package forms

import (
	"context"
	"io"
	"strconv"
	"strings"

	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostForm is the create/edit form for posts.
type PostForm struct {
	Form
	Text       string
	Group      string
	GroupID    *uint
	Image      *service.ImageUpload
	ClearImage bool
	// CurrentImage is the media path already attached, shown on edit.
	CurrentImage string
}

// NewPostForm returns an unbound form, prefilled from post when editing.
func NewPostForm(post *models.Post) *PostForm {
	f := &PostForm{}
	if post != nil {
		f.Text = post.Text
		f.CurrentImage = post.Image
		if post.GroupID != nil {
			f.GroupID = post.GroupID
			f.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
		}
	}
	return f
}

// BindPostForm reads text, group, image and image-clear from a urlencoded or multipart body.
// Any author field in the body is ignored.
func BindPostForm(c *fiber.Ctx, current *models.Post) (*PostForm, error) {
	f := NewPostForm(current)
	f.Text = c.FormValue("text")
	f.Group = strings.TrimSpace(c.FormValue("group"))
	f.GroupID = nil
	f.ClearImage = isChecked(c.FormValue("image-clear"))

	fh, err := c.FormFile("image")
	if err != nil || fh == nil || fh.Size == 0 {
		return f, nil
	}
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	f.Image = &service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}
	return f, nil
}

// Validate checks the text, resolves the group choice and sniffs the image.
func (f *PostForm) Validate(ctx context.Context, groups GroupLookup, images ImageChecker) (bool, error) {
	f.require("text", f.Text)

	if f.Group != "" {
		id, err := strconv.ParseUint(f.Group, 10, 64)
		if err != nil || id == 0 {
			f.AddError("group", msgInvalidChoice)
		} else if _, err := groups.GetByID(ctx, uint(id)); err != nil {
			if !models.IsNotFound(err) {
				return false, err
			}
			f.AddError("group", msgInvalidChoice)
		} else {
			gid := uint(id)
			f.GroupID = &gid
		}
	}

	if f.Image != nil && images != nil {
		if err := images.Check(f.Image.Content); err != nil {
			f.AddError("image", appMessage(err))
		}
	}
	return f.Valid(), nil
}

// SelectedGroup reports whether id is the chosen group, for rendering the select box.
func (f *PostForm) SelectedGroup(id uint) bool {
	return f.Group == strconv.FormatUint(uint64(id), 10)
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}
