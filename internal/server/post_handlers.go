package server

import (
	"fmt"

	"quill/internal/cache"
	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/pagination"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Index renders the newest posts. The markup is cached per page and viewer for a short while.
func (s *Server) Index(c *fiber.Ctx) error {
	ctx := c.UserContext()
	rawPage := c.Query("page")

	var viewerID uint
	if user := middleware.CurrentUser(c); user != nil {
		viewerID = user.ID
	}
	key := cache.IndexPageKey(pagination.ParseNumber(rawPage), viewerID)

	body, hit, err := s.pageCache.Aside(ctx, key, s.config.IndexCacheTTL(), func() ([]byte, error) {
		page, err := s.postService.ListAll(ctx, rawPage)
		if err != nil {
			return nil, err
		}
		return s.renderBytes(c, "posts/index.html", fiber.Map{"Page": page})
	})
	if err != nil {
		return err
	}

	switch {
	case !s.pageCache.Enabled():
		observability.PageCacheResults.WithLabelValues("index", "disabled").Inc()
	case hit:
		observability.PageCacheResults.WithLabelValues("index", "hit").Inc()
	default:
		observability.PageCacheResults.WithLabelValues("index", "miss").Inc()
	}
	return sendHTML(c, fiber.StatusOK, body)
}

// GroupPosts lists the posts of one group.
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	group, page, err := s.postService.ListByGroup(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/group_list.html", fiber.Map{
		"Group": group,
		"Page":  page,
	})
}

// Profile lists an author's posts with follower counts and the viewer's follow state.
func (s *Server) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	author, err := s.userService.GetUserByUsername(ctx, c.Params("username"))
	if err != nil {
		return err
	}
	page, err := s.postService.ListByAuthor(ctx, author.ID, c.Query("page"))
	if err != nil {
		return err
	}
	stats, err := s.followService.Stats(ctx, author.ID)
	if err != nil {
		return err
	}
	following, err := s.followService.IsFollowing(ctx, middleware.CurrentUser(c), author.ID)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/profile.html", fiber.Map{
		"Author":    author,
		"Page":      page,
		"Stats":     stats,
		"Following": following,
	})
}

// PostDetail shows one post with its comments and an empty comment form.
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}
	return s.renderPostDetail(c, fiber.StatusOK, post, &forms.CommentForm{})
}

func (s *Server) renderPostDetail(c *fiber.Ctx, status int, post *models.Post, form *forms.CommentForm) error {
	ctx := c.UserContext()
	viewer := middleware.CurrentUser(c)

	comments, err := s.commentService.ListForPost(ctx, post.ID, c.Query("page"))
	if err != nil {
		return err
	}
	count, err := s.postService.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return err
	}
	following, err := s.followService.IsFollowing(ctx, viewer, post.AuthorID)
	if err != nil {
		return err
	}
	return s.render(c, status, "posts/post_detail.html", fiber.Map{
		"Post":       post,
		"Author":     &post.Author,
		"Page":       comments,
		"PostsCount": count,
		"Following":  following,
		"CanEdit":    service.Can(viewer, service.ActionEditPost, post),
		"Form":       form,
	})
}

// FollowIndex lists posts by everyone the current user follows.
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	page, err := s.postService.ListFeed(c.UserContext(), user.ID, c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/follow.html", fiber.Map{"Page": page})
}

// CreatePostForm renders an empty post form.
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, fiber.StatusOK, forms.NewPostForm(nil), nil)
}

// CreatePost stores a post authored by the current user and redirects to their profile.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := middleware.CurrentUser(c)

	form, err := forms.BindPostForm(c, nil)
	if err != nil {
		return err
	}
	ok, err := form.Validate(ctx, s.groupRepo, s.images)
	if err != nil {
		return err
	}
	if !ok {
		return s.renderPostForm(c, fiber.StatusOK, form, nil)
	}

	_, err = s.postService.CreatePost(ctx, service.CreatePostInput{
		AuthorID: user.ID,
		Text:     form.Text,
		GroupID:  form.GroupID,
		Image:    form.Image,
	})
	if err != nil {
		if form.Apply("image", err) {
			return s.renderPostForm(c, fiber.StatusOK, form, nil)
		}
		return err
	}
	return c.Redirect(profileURL(user.Username), fiber.StatusFound)
}

// EditPostForm renders the post form prefilled for its author; anyone else is sent back to the post.
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	post, err := s.editablePost(c)
	if err != nil || post == nil {
		return err
	}
	return s.renderPostForm(c, fiber.StatusOK, forms.NewPostForm(post), post)
}

// EditPost applies an author's changes in place and redirects to the post.
func (s *Server) EditPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	post, err := s.editablePost(c)
	if err != nil || post == nil {
		return err
	}

	form, err := forms.BindPostForm(c, post)
	if err != nil {
		return err
	}
	ok, err := form.Validate(ctx, s.groupRepo, s.images)
	if err != nil {
		return err
	}
	if !ok {
		return s.renderPostForm(c, fiber.StatusOK, form, post)
	}

	_, err = s.postService.UpdatePost(ctx, service.UpdatePostInput{
		Actor:      middleware.CurrentUser(c),
		PostID:     post.ID,
		Text:       form.Text,
		GroupID:    form.GroupID,
		Image:      form.Image,
		ClearImage: form.ClearImage,
	})
	switch {
	case models.IsForbidden(err):
		return c.Redirect(postURL(post.ID), fiber.StatusFound)
	case err != nil:
		if form.Apply("image", err) {
			return s.renderPostForm(c, fiber.StatusOK, form, post)
		}
		return err
	}
	return c.Redirect(postURL(post.ID), fiber.StatusFound)
}

// editablePost loads the post of the route. For a viewer who may not edit it, it writes the
// redirect and returns a nil post.
func (s *Server) editablePost(c *fiber.Ctx) (*models.Post, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if !service.Can(middleware.CurrentUser(c), service.ActionEditPost, post) {
		return nil, c.Redirect(postURL(post.ID), fiber.StatusFound)
	}
	return post, nil
}

func (s *Server) renderPostForm(c *fiber.Ctx, status int, form *forms.PostForm, post *models.Post) error {
	groups, err := s.postService.ListGroups(c.UserContext())
	if err != nil {
		return err
	}
	return s.render(c, status, "posts/create_post.html", fiber.Map{
		"Form":   form,
		"Groups": groups,
		"Post":   post,
		"IsEdit": post != nil,
	})
}

// AddComment attaches a comment to the post and always returns to it.
func (s *Server) AddComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return err
	}

	form := forms.BindCommentForm(c)
	if form.Validate() {
		_, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
			AuthorID: middleware.CurrentUser(c).ID,
			PostID:   post.ID,
			Text:     form.Text,
		})
		if err != nil && !models.IsValidation(err) {
			return err
		}
	}
	return c.Redirect(postURL(post.ID), fiber.StatusFound)
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}
