package repository_test

import (
	"context"
	"testing"

	"github.com/otcheredev/medorders/internal/database/dbtest"
	"github.com/otcheredev/medorders/internal/models"
	"github.com/otcheredev/medorders/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countUsers(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	return n
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "a@x.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "a@x.com", got.Email)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func TestUserRepository_GetMissing(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewUserRepository(db)

	_, err := repo.GetByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetByID(context.Background(), "missing-id")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "alice", Email: "a@x.com", PasswordHash: "h"}))

	err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)
	assert.Equal(t, int64(1), countUsers(t, db))
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "alice", Email: "a@x.com", PasswordHash: "h"}))

	err := repo.Create(ctx, &models.User{Username: "bob", Email: "a@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
	assert.Equal(t, int64(1), countUsers(t, db))
}
