package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportGroups_Upserts(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "groups.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
- slug: cats
  title: Cats
  description: Everything feline
- slug: books
  title: Books
`), 0o600))

	require.NoError(t, run(ctx, db, "import-groups", []string{path}))
	require.NoError(t, run(ctx, db, "import-groups", []string{path}))

	var groups []models.Group
	require.NoError(t, db.Order("slug").Find(&groups).Error)
	require.Len(t, groups, 2)
	assert.Equal(t, "books", groups[0].Slug)
	assert.Equal(t, "Everything feline", groups[1].Description)
}

func TestCreateGroup_RejectsBadSlug(t *testing.T) {
	db := testutil.NewTestDB(t)

	assert.Error(t, run(context.Background(), db, "create-group", []string{"no spaces", "Title"}))
	assert.Error(t, run(context.Background(), db, "create-group", []string{"only-slug"}))
}

func TestPromoteAndDemote(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.User{Username: "leo", Password: "x"}).Error)

	require.NoError(t, run(ctx, db, "promote", []string{"leo"}))
	var user models.User
	require.NoError(t, db.Where("username = ?", "leo").First(&user).Error)
	assert.True(t, user.IsStaff)

	require.NoError(t, run(ctx, db, "demote", []string{"leo"}))
	require.NoError(t, db.Where("username = ?", "leo").First(&user).Error)
	assert.False(t, user.IsStaff)

	assert.Error(t, run(ctx, db, "promote", []string{"ghost"}))
}
