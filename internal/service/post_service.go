package service

import (
	"context"
	"log/slog"
	"strings"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/pagination"
	"quill/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// PostPage is one page of posts, newest first.
type PostPage = pagination.Page[*models.Post]

type PostService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
	images    ImageStore
	pageSize  int
}

type CreatePostInput struct {
	AuthorID uint
	Text     string
	GroupID  *uint
	Image    *ImageUpload
}

type UpdatePostInput struct {
	Actor      *models.User
	PostID     uint
	Text       string
	GroupID    *uint
	Image      *ImageUpload
	ClearImage bool
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	images ImageStore,
	pageSize int,
) *PostService {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &PostService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		images:    images,
		pageSize:  pageSize,
	}
}

func (s *PostService) ListAll(ctx context.Context, rawPage string) (*PostPage, error) {
	return pagination.Fetch[*models.Post](ctx, rawPage, s.pageSize, s.postRepo.CountAll, s.postRepo.ListAll)
}

// ListByGroup resolves slug and returns that group's posts.
func (s *PostService) ListByGroup(ctx context.Context, slug, rawPage string) (*models.Group, *PostPage, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	page, err := pagination.Fetch[*models.Post](ctx, rawPage, s.pageSize,
		func(ctx context.Context) (int64, error) { return s.postRepo.CountByGroup(ctx, group.ID) },
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.postRepo.ListByGroup(ctx, group.ID, limit, offset)
		},
	)
	if err != nil {
		return nil, nil, err
	}
	return group, page, nil
}

func (s *PostService) ListByAuthor(ctx context.Context, authorID uint, rawPage string) (*PostPage, error) {
	return pagination.Fetch[*models.Post](ctx, rawPage, s.pageSize,
		func(ctx context.Context) (int64, error) { return s.postRepo.CountByAuthor(ctx, authorID) },
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.postRepo.ListByAuthor(ctx, authorID, limit, offset)
		},
	)
}

// ListFeed returns posts by authors followerID follows.
func (s *PostService) ListFeed(ctx context.Context, followerID uint, rawPage string) (*PostPage, error) {
	return pagination.Fetch[*models.Post](ctx, rawPage, s.pageSize,
		func(ctx context.Context) (int64, error) { return s.postRepo.CountFeed(ctx, followerID) },
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.postRepo.ListFeed(ctx, followerID, limit, offset)
		},
	)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.postRepo.CountByAuthor(ctx, authorID)
}

func (s *PostService) ListGroups(ctx context.Context) ([]*models.Group, error) {
	return s.groupRepo.List(ctx)
}

// CreatePost stores a post. The author is always in.AuthorID.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "PostService.CreatePost", attribute.Int("author_id", int(in.AuthorID)))
	defer span.End()

	if in.AuthorID == 0 {
		return nil, models.NewUnauthorizedError("Login required")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("This field is required.")
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:     in.Text,
		AuthorID: in.AuthorID,
		GroupID:  in.GroupID,
	}
	var stored *StoredImage
	if in.Image != nil {
		var err error
		stored, err = s.saveImage(ctx, *in.Image)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		post.Image = stored.Path
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		span.SetError(err)
		s.discardImage(ctx, stored)
		return nil, err
	}
	observability.ContentCreated.WithLabelValues("post").Inc()
	middleware.Logger.InfoContext(ctx, "Post created",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.Uint64("author_id", uint64(post.AuthorID)),
	)
	return post, nil
}

// UpdatePost edits text, group and image in place. Non-authors get a forbidden error and nothing
// is written.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !Can(in.Actor, ActionEditPost, post) {
		return post, models.NewForbiddenError("Only the author can edit this post")
	}
	if strings.TrimSpace(in.Text) == "" {
		return post, models.NewValidationError("This field is required.")
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return post, err
	}

	post.Text = in.Text
	post.GroupID = in.GroupID
	post.Group = nil
	var stored *StoredImage
	switch {
	case in.Image != nil:
		stored, err = s.saveImage(ctx, *in.Image)
		if err != nil {
			return post, err
		}
		post.Image = stored.Path
	case in.ClearImage:
		post.Image = ""
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		s.discardImage(ctx, stored)
		return post, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) checkGroup(ctx context.Context, groupID *uint) error {
	if groupID == nil {
		return nil
	}
	if _, err := s.groupRepo.GetByID(ctx, *groupID); err != nil {
		if models.IsNotFound(err) {
			return models.NewValidationError("Select a valid choice. That choice is not one of the available choices.")
		}
		return err
	}
	return nil
}

// discardImage removes an upload whose row was never written.
func (s *PostService) discardImage(ctx context.Context, stored *StoredImage) {
	if stored == nil || s.images == nil {
		return
	}
	_ = s.images.Remove(ctx, stored)
}

func (s *PostService) saveImage(ctx context.Context, upload ImageUpload) (*StoredImage, error) {
	if s.images == nil {
		return nil, models.NewInternalError(errNoImageStore)
	}
	return s.images.Save(ctx, upload)
}
