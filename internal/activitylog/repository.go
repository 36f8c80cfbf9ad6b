package activitylog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/repo"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

// Repository persists activity log rows.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bound(tx)}
}

func (r *Repository) Create(ctx context.Context, row *models.ActivityLog) error {
	return r.DB(ctx).Create(row).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ActivityLog, error) {
	var row models.ActivityLog
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListFilter narrows a listing. Cursor, when set, resumes after that row.
type ListFilter struct {
	Entity string
	Action *enums.ActivityAction
	Cursor *pagination.Cursor
	Limit  int
}

// List returns up to Limit rows ordered newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.ActivityLog, error) {
	q := r.DB(ctx).Model(&models.ActivityLog{})
	if filter.Entity != "" {
		q = q.Where("entity = ?", filter.Entity)
	}
	if filter.Action != nil {
		q = q.Where("action = ?", *filter.Action)
	}
	if filter.Cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	var rows []models.ActivityLog
	err := q.Order("created_at DESC").Order("id DESC").Limit(filter.Limit).Find(&rows).Error
	return rows, err
}

// Recent returns the latest n rows.
func (r *Repository) Recent(ctx context.Context, n int) ([]models.ActivityLog, error) {
	var rows []models.ActivityLog
	err := r.DB(ctx).Order("created_at DESC").Order("id DESC").Limit(n).Find(&rows).Error
	return rows, err
}
