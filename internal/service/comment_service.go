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
)

// CommentPage is one page of a post's comments, newest first.
type CommentPage = pagination.Page[*models.Comment]

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	pageSize    int
}

type CreateCommentInput struct {
	AuthorID uint
	PostID   uint
	Text     string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	pageSize int,
) *CommentService {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		pageSize:    pageSize,
	}
}

// CreateComment attaches a comment to an existing post.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if in.AuthorID == 0 {
		return nil, models.NewUnauthorizedError("Login required")
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, models.NewValidationError("This field is required.")
	}

	comment := &models.Comment{
		Text:     in.Text,
		AuthorID: in.AuthorID,
		PostID:   in.PostID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.ContentCreated.WithLabelValues("comment").Inc()
	middleware.Logger.InfoContext(ctx, "Comment created",
		slog.Uint64("comment_id", uint64(comment.ID)),
		slog.Uint64("post_id", uint64(comment.PostID)),
	)
	return comment, nil
}

func (s *CommentService) ListForPost(ctx context.Context, postID uint, rawPage string) (*CommentPage, error) {
	return pagination.Fetch[*models.Comment](ctx, rawPage, s.pageSize,
		func(ctx context.Context) (int64, error) { return s.commentRepo.CountByPost(ctx, postID) },
		func(ctx context.Context, limit, offset int) ([]*models.Comment, error) {
			return s.commentRepo.ListByPost(ctx, postID, limit, offset)
		},
	)
}
