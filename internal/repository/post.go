package repository

import (
	"context"

	"quill/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	CountAll(ctx context.Context) (int64, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.Post, error)
	CountByGroup(ctx context.Context, groupID uint) (int64, error)
	ListByGroup(ctx context.Context, groupID uint, limit, offset int) ([]*models.Post, error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
	ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]*models.Post, error)
	CountFeed(ctx context.Context, followerID uint) (int64, error)
	ListFeed(ctx context.Context, followerID uint, limit, offset int) ([]*models.Post, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

type postScope func(*gorm.DB) *gorm.DB

func allPosts(db *gorm.DB) *gorm.DB { return db }

func byGroup(groupID uint) postScope {
	return func(db *gorm.DB) *gorm.DB { return db.Where("group_id = ?", groupID) }
}

func byAuthor(authorID uint) postScope {
	return func(db *gorm.DB) *gorm.DB { return db.Where("author_id = ?", authorID) }
}

// followedBy selects posts whose author is followed by followerID.
func followedBy(followerID uint) postScope {
	return func(db *gorm.DB) *gorm.DB {
		authors := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Follow{}).
			Select("author_id").
			Where("user_id = ?", followerID)
		return db.Where("author_id IN (?)", authors)
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).
		Omit("Author", "Group").
		Create(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		First(&post, id).Error
	if err != nil {
		return nil, lookupError(err, "Post", id)
	}
	return &post, nil
}

// Update writes the editable columns. Author and creation time never change.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).
		Model(post).
		Select("text", "group_id", "image").
		Updates(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) CountAll(ctx context.Context) (int64, error) {
	return r.count(ctx, allPosts)
}

func (r *postRepository) ListAll(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return r.list(ctx, allPosts, limit, offset)
}

func (r *postRepository) CountByGroup(ctx context.Context, groupID uint) (int64, error) {
	return r.count(ctx, byGroup(groupID))
}

func (r *postRepository) ListByGroup(ctx context.Context, groupID uint, limit, offset int) ([]*models.Post, error) {
	return r.list(ctx, byGroup(groupID), limit, offset)
}

func (r *postRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return r.count(ctx, byAuthor(authorID))
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]*models.Post, error) {
	return r.list(ctx, byAuthor(authorID), limit, offset)
}

func (r *postRepository) CountFeed(ctx context.Context, followerID uint) (int64, error) {
	return r.count(ctx, followedBy(followerID))
}

func (r *postRepository) ListFeed(ctx context.Context, followerID uint, limit, offset int) ([]*models.Post, error) {
	return r.list(ctx, followedBy(followerID), limit, offset)
}

func (r *postRepository) count(ctx context.Context, scope postScope) (int64, error) {
	var count int64
	if err := scope(r.db.WithContext(ctx).Model(&models.Post{})).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *postRepository) list(ctx context.Context, scope postScope, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := scope(r.db.WithContext(ctx)).
		Preload("Author").
		Preload("Group").
		Order(postOrder).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
