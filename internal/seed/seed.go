package seed

import (
	"context"
	"fmt"
	"log/slog"

	"quill/internal/middleware"
	"quill/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// FastHash hashes the shared demo password with bcrypt.MinCost.
	FastHash  bool
	MaxDays   int
	BatchSize int
	RandSeed  int64
	// MaxCommentsPerPost and MaxFollowsPerUser cap the random social graph; zero picks a default.
	MaxCommentsPerPost int
	MaxFollowsPerUser  int
}

// Summary reports what a seeding run wrote.
type Summary struct {
	Users    int
	Groups   int
	Posts    int
	Comments int
	Follows  int
}

// contentTables lists tables in child-first order so plain deletes never trip a foreign key.
var contentTables = []string{"follows", "comments", "posts", "groups", "users"}

// Seed populates the database with demo data
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	middleware.Logger.InfoContext(ctx, "Starting database seeding",
		slog.Int("users", opts.NumUsers),
		slog.Int("posts", opts.NumPosts),
	)

	if opts.ShouldClean {
		if err := Clean(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	summary := &Summary{}
	f := NewFactory(db, opts)

	n, err := Groups(ctx, db)
	if err != nil {
		return nil, err
	}
	summary.Groups = n
	groups, err := loadGroups(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.faker.Number(0, len(users)-1)]
		// roughly a third of the posts stay outside any group
		var group *models.Group
		if len(groups) > 0 && f.faker.Number(0, 2) > 0 {
			group = groups[f.faker.Number(0, len(groups)-1)]
		}
		posts = append(posts, f.BuildPost(author, group))
	}
	if err := f.CreatePostsBatch(ctx, posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)

	maxComments := opts.MaxCommentsPerPost
	if maxComments <= 0 {
		maxComments = 3
	}
	for _, post := range posts {
		for j := f.faker.Number(0, maxComments); j > 0; j-- {
			author := users[f.faker.Number(0, len(users)-1)]
			if _, err := f.CreateComment(ctx, author, post); err != nil {
				return nil, fmt.Errorf("failed to create comment: %w", err)
			}
			summary.Comments++
		}
	}

	maxFollows := opts.MaxFollowsPerUser
	if maxFollows <= 0 {
		maxFollows = 5
	}
	if len(users) > 1 {
		maxFollows = min(maxFollows, len(users)-1)
		for _, follower := range users {
			for j := f.faker.Number(1, maxFollows); j > 0; j-- {
				author := users[f.faker.Number(0, len(users)-1)]
				created, err := f.CreateFollow(ctx, follower, author)
				if err != nil {
					return nil, fmt.Errorf("failed to create follow: %w", err)
				}
				if created {
					summary.Follows++
				}
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "Database seeding completed",
		slog.Int("users", summary.Users),
		slog.Int("groups", summary.Groups),
		slog.Int("posts", summary.Posts),
		slog.Int("comments", summary.Comments),
		slog.Int("follows", summary.Follows),
	)
	return summary, nil
}

// Clean removes every user, group, post, comment and follow.
func Clean(ctx context.Context, db *gorm.DB) error {
	middleware.Logger.InfoContext(ctx, "Clearing existing data")
	tx := db.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		return tx.Exec(`TRUNCATE TABLE follows, comments, posts, "groups", users RESTART IDENTITY CASCADE`).Error
	}
	return tx.Transaction(func(tx *gorm.DB) error {
		for _, table := range contentTables {
			if err := tx.Exec(`DELETE FROM "` + table + `"`).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
