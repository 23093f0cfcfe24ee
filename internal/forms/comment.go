package forms

import "github.com/gofiber/fiber/v2"

// CommentForm is the comment box under a post.
type CommentForm struct {
	Form
	Text string
}

func BindCommentForm(c *fiber.Ctx) *CommentForm {
	return &CommentForm{Text: c.FormValue("text")}
}

func (f *CommentForm) Validate() bool {
	f.require("text", f.Text)
	return f.Valid()
}
