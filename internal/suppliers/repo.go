package suppliers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/repo"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bound(tx)}
}

func (r *Repository) Create(ctx context.Context, s *models.Supplier) error {
	return r.DB(ctx).Create(s).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var s models.Supplier
	if err := r.DB(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) List(ctx context.Context, search string, params pagination.PageParams) ([]models.Supplier, int64, error) {
	q := r.DB(ctx).Model(&models.Supplier{})
	if term := strings.TrimSpace(search); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	var rows []models.Supplier
	total, err := repo.CountAndFind(q, params, "name ASC", &rows)
	return rows, total, err
}

func (r *Repository) Save(ctx context.Context, s *models.Supplier) error {
	return r.DB(ctx).Save(s).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Supplier{}).Error
}

func (r *Repository) CountPurchases(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Purchase{}).Where("supplier_id = ?", id).Count(&n).Error
	return n, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Supplier{}).Count(&n).Error
	return n, err
}
