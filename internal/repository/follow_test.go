package repository

import (
	"context"
	"regexp"
	"testing"

	"quill/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_FollowIgnoresConflicts(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "follows" ("user_id","author_id") VALUES ($1,$2) ON CONFLICT DO NOTHING RETURNING "id"`)).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	created, err := repo.Follow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_UnfollowReportsRemoval(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "follows" WHERE user_id = $1 AND author_id = $2`)).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := repo.Unfollow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_RejectsSelfFollow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	created, err := repo.Follow(context.Background(), 5, 5)
	assert.False(t, created)
	assert.True(t, models.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_SQLiteIdempotent(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	repo := NewFollowRepository(f.db)

	created, err := repo.Follow(ctx, f.mia.ID, f.leo.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Follow(ctx, f.mia.ID, f.leo.ID)
	require.NoError(t, err)
	assert.False(t, created)

	var edges int64
	require.NoError(t, f.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.EqualValues(t, 1, edges)

	following, err := repo.IsFollowing(ctx, f.mia.ID, f.leo.ID)
	require.NoError(t, err)
	assert.True(t, following)

	reverse, err := repo.IsFollowing(ctx, f.leo.ID, f.mia.ID)
	require.NoError(t, err)
	assert.False(t, reverse)

	followers, err := repo.CountFollowers(ctx, f.leo.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, followers)

	followingCount, err := repo.CountFollowing(ctx, f.mia.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, followingCount)

	removed, err := repo.Unfollow(ctx, f.mia.ID, f.leo.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Unfollow(ctx, f.mia.ID, f.leo.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFollowRepository_SQLiteCheckConstraint(t *testing.T) {
	f := newPostFixture(t)

	err := f.db.Create(&models.Follow{UserID: f.leo.ID, AuthorID: f.leo.ID}).Error
	assert.Error(t, err)
}
