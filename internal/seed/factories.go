// Package seed provides helpers to create demo data for the application database. These helpers
// are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"quill/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "quill-demo-pass"

const maxUsernameStem = 16

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	hash  string
	taken map[string]bool
}

// NewFactory creates a Factory bound to db. A non-zero opts.RandSeed makes the output repeatable.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:    db,
		opts:  opts,
		faker: gofakeit.New(seed),
		taken: make(map[string]bool),
	}
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	f.hash = string(h)
	return f.hash, nil
}

// username returns a fresh name that passes signup validation: word characters only, at most 20.
func (f *Factory) username(first string) string {
	stem := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return unicode.ToLower(r)
		}
		return -1
	}, first+"_"+f.faker.Username())
	if len(stem) > maxUsernameStem {
		stem = stem[:maxUsernameStem]
	}
	for {
		name := fmt.Sprintf("%s%d", stem, f.faker.Number(100, 999))
		if !f.taken[name] {
			f.taken[name] = true
			return name
		}
	}
}

// BuildUser constructs a user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	first := f.faker.FirstName()
	last := f.faker.LastName()
	user := &models.User{
		Username:  f.username(first),
		FirstName: truncate(first, 12),
		LastName:  truncate(last, 12),
		Email:     strings.ToLower(f.faker.Email()),
		Password:  hash,
	}
	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post by author with a created_at spread over the last MaxDays.
func (f *Factory) BuildPost(author *models.User, group *models.Group, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Text:      f.faker.Paragraph(1, f.faker.Number(1, 4), 12, "\n"),
		AuthorID:  author.ID,
		CreatedAt: f.createdAt(),
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists posts in batches of opts.BatchSize.
func (f *Factory) CreatePostsBatch(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(posts, f.batchSize()).Error
}

// CreateComment constructs and persists a comment by author on post.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Text:      f.faker.Sentence(f.faker.Number(4, 16)),
		AuthorID:  author.ID,
		PostID:    post.ID,
		CreatedAt: post.CreatedAt.Add(time.Duration(f.faker.Number(1, 48*60)) * time.Minute),
	}
	if now := time.Now().UTC(); comment.CreatedAt.After(now) {
		comment.CreatedAt = now
	}
	for _, override := range overrides {
		override(comment)
	}
	if err := f.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateFollow makes follower follow author. Existing edges and self-follows are skipped.
func (f *Factory) CreateFollow(ctx context.Context, follower, author *models.User) (bool, error) {
	if follower.ID == author.ID {
		return false, nil
	}
	res := f.db.WithContext(ctx).Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{UserID: follower.ID, AuthorID: author.ID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	now := time.Now()
	return f.faker.DateRange(now.AddDate(0, 0, -maxDays), now).UTC()
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize <= 0 {
		return 100
	}
	return f.opts.BatchSize
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
