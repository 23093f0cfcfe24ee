package seed

import (
	"context"
	"fmt"

	"quill/internal/models"
	"quill/internal/repository"

	"gorm.io/gorm"
)

// BuiltInGroup is a group every installation starts with.
type BuiltInGroup struct {
	Title       string
	Slug        string
	Description string
}

// BuiltInGroups defines the default groups.
var BuiltInGroups = []BuiltInGroup{
	{Title: "Lev Tolstoy", Slug: "tolstoy", Description: "Everything about the author of War and Peace."},
	{Title: "Cats", Slug: "cats", Description: "Photos and stories of cats."},
	{Title: "Books", Slug: "books", Description: "Books, writing and reading lists."},
	{Title: "Travel", Slug: "travel", Description: "Trips, routes and travel notes."},
	{Title: "Cooking", Slug: "cooking", Description: "Recipes and kitchen experiments."},
	{Title: "Programming", Slug: "programming", Description: "Code, tools and software craft."},
}

// Groups upserts the built-in groups by slug and returns how many were written.
func Groups(ctx context.Context, db *gorm.DB) (int, error) {
	repo := repository.NewGroupRepository(db)
	for _, item := range BuiltInGroups {
		group := &models.Group{Title: item.Title, Slug: item.Slug, Description: item.Description}
		if err := repo.Upsert(ctx, group); err != nil {
			return 0, fmt.Errorf("seed built-in group %s: %w", item.Slug, err)
		}
	}
	return len(BuiltInGroups), nil
}

func loadGroups(ctx context.Context, db *gorm.DB) ([]*models.Group, error) {
	return repository.NewGroupRepository(db).List(ctx)
}
