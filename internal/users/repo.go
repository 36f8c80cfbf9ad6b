package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/repo"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bound(tx)}
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Create(user).Error
}

// FindByEmail retrieves the user matching the provided (normalized) email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List pages through users ordered by name.
func (r *Repository) List(ctx context.Context, params pagination.PageParams) ([]models.User, int64, error) {
	var rows []models.User
	total, err := repo.CountAndFind(r.DB(ctx).Model(&models.User{}), params, "name ASC", &rows)
	return rows, total, err
}

// Save persists every column of the user.
func (r *Repository) Save(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Save(user).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.User{}).Error
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

// CountActiveByRole counts active users holding the role.
func (r *Repository) CountActiveByRole(ctx context.Context, role enums.UserRole) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.User{}).
		Where("role = ? AND is_active = ?", role, true).
		Count(&n).Error
	return n, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}
