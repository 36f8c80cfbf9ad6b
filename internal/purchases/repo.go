package purchases

import (
	"context"

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

func (r *Repository) Create(ctx context.Context, p *models.Purchase) error {
	return r.DB(ctx).Omit("Supplier", "Product", "Lot", "Payments").Create(p).Error
}

func (r *Repository) CreatePayment(ctx context.Context, p *models.PurchasePayment) error {
	return r.DB(ctx).Create(p).Error
}

// FindByID loads a purchase with its supplier, product, lot and payments.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var p models.Purchase
	err := r.DB(ctx).
		Preload("Supplier").
		Preload("Product").
		Preload("Lot").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var p models.Purchase
	if err := repo.ForUpdate(r.DB(ctx)).Preload("Product").First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var s models.Supplier
	if err := r.DB(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns purchases newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.PageParams) ([]models.Purchase, int64, error) {
	q := r.DB(ctx).Model(&models.Purchase{})
	if filter.Supplier != nil {
		q = q.Where("supplier_id = ?", *filter.Supplier)
	}
	if filter.Product != nil {
		q = q.Where("product_id = ?", *filter.Product)
	}
	if filter.StartDate != nil {
		q = q.Where("purchase_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("purchase_date <= ?", *filter.EndDate)
	}
	var rows []models.Purchase
	total, err := repo.CountAndFind(q, params, "purchase_date DESC, created_at DESC", &rows, "Supplier", "Product", "Lot")
	return rows, total, err
}

func (r *Repository) Save(ctx context.Context, p *models.Purchase) error {
	return r.DB(ctx).Omit("Supplier", "Product", "Lot", "Payments").Save(p).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.DB(ctx)
	if err := db.Where("purchase_id = ?", id).Delete(&models.PurchasePayment{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.Purchase{}).Error
}
