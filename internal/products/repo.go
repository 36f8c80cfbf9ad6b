package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/repo"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

// ErrNegativeStock is returned when a stock movement would take the product
// below zero.
var ErrNegativeStock = errors.New("stock cannot go below zero")

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bound(tx)}
}

func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	return r.DB(ctx).Create(p).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.DB(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := repo.ForUpdate(r.DB(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs loads products keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.PageParams) ([]models.Product, int64, error) {
	q := r.DB(ctx).Model(&models.Product{})
	if term := strings.TrimSpace(filter.Search); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if filter.UnitCategory != nil {
		q = q.Where("unit_category = ?", *filter.UnitCategory)
	}
	var rows []models.Product
	total, err := repo.CountAndFind(q, params, "name ASC", &rows)
	return rows, total, err
}

func (r *Repository) Save(ctx context.Context, p *models.Product) error {
	return r.DB(ctx).Save(p).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// MoveStock locks the product and applies the deltas. Bag counts clamp at
// zero; the base stock may not go negative.
func (r *Repository) MoveStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal, bagDelta int) (*models.Product, error) {
	p, err := r.FindForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	next := p.CurrentStock.Add(delta)
	if next.IsNegative() {
		return p, ErrNegativeStock
	}
	p.CurrentStock = next
	p.CurrentStockBag += bagDelta
	if p.CurrentStockBag < 0 {
		p.CurrentStockBag = 0
	}
	if err := r.DB(ctx).Model(p).Updates(map[string]any{
		"current_stock":     p.CurrentStock,
		"current_stock_bag": p.CurrentStockBag,
	}).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// IsReferenced reports whether purchases or sales point at the product.
func (r *Repository) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	if err := r.DB(ctx).Model(&models.Purchase{}).Where("product_id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if err := r.DB(ctx).Model(&models.SaleLine{}).Where("product_id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Product{}).Count(&n).Error
	return n, err
}
