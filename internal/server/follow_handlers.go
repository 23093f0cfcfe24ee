package server

import (
	"net/url"

	"quill/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// FollowProfile subscribes the current user to the author and returns to the author's profile.
// Repeating it, or following yourself, changes nothing.
func (s *Server) FollowProfile(c *fiber.Ctx) error {
	target, _, err := s.followService.Follow(c.UserContext(), middleware.CurrentUser(c), c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(profileURL(target.Username), fiber.StatusFound)
}

// UnfollowProfile removes the subscription. Without one there is nothing to show, so the
// viewer lands on the index.
func (s *Server) UnfollowProfile(c *fiber.Ctx) error {
	target, removed, err := s.followService.Unfollow(c.UserContext(), middleware.CurrentUser(c), c.Params("username"))
	if err != nil {
		return err
	}
	if !removed {
		return c.Redirect("/", fiber.StatusFound)
	}
	return c.Redirect(profileURL(target.Username), fiber.StatusFound)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}
