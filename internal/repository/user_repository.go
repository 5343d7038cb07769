package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/otcheredev/medorders/internal/models"
	"gorm.io/gorm"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. Uniqueness of username and email is decided by the
// store: a unique violation is reported as ErrUsernameTaken or ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.duplicateCause(ctx, user)
	}
	return fmt.Errorf("failed to create user: %w", err)
}

// duplicateCause works out which unique index rejected the insert. The insert
// has already failed, so this lookup only picks the error to report.
func (r *UserRepository) duplicateCause(ctx context.Context, user *models.User) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", user.Username).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to classify duplicate user: %w", err)
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
