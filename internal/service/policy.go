package service

import "quill/internal/models"

// Action names something a user may attempt on a resource.
type Action string

const (
	// ActionEditPost covers changing a post's text, group or image.
	ActionEditPost Action = "edit_post"
)

// Can reports whether actor may perform action on resource. Anonymous actors can do nothing.
func Can(actor *models.User, action Action, resource interface{}) bool {
	if actor == nil || actor.ID == 0 {
		return false
	}
	switch action {
	case ActionEditPost:
		post, ok := resource.(*models.Post)
		return ok && post != nil && post.AuthorID == actor.ID
	default:
		return false
	}
}
