package lots

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/repo"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

var (
	// ErrExhausted is returned when a draw exceeds the pending quantity.
	ErrExhausted = errors.New("lot pending quantity exhausted")
	// ErrOverfilled is returned when a restore exceeds the received quantity.
	ErrOverfilled = errors.New("lot pending quantity exceeds received quantity")
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

func (r *Repository) Create(ctx context.Context, lot *models.Lot) error {
	return r.DB(ctx).Create(lot).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	if err := r.DB(ctx).Preload("Product").First(&lot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	if err := repo.ForUpdate(r.DB(ctx)).First(&lot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *Repository) FindByPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	if err := repo.ForUpdate(r.DB(ctx)).First(&lot, "purchase_id = ?", purchaseID).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

// Search lists lots oldest first so earlier stock is offered first.
func (r *Repository) Search(ctx context.Context, productID *uuid.UUID, pendingOnly bool, params pagination.PageParams) ([]models.Lot, int64, error) {
	q := r.DB(ctx).Model(&models.Lot{})
	if productID != nil {
		q = q.Where("product_id = ?", *productID)
	}
	if pendingOnly {
		q = q.Where("pending_quantity > 0")
	}
	var rows []models.Lot
	total, err := repo.CountAndFind(q, params, "received_at ASC, number ASC", &rows, "Product")
	return rows, total, err
}

// Move locks the lot and shifts its pending quantity and bags. Pending
// stays within [0, Quantity]; bags clamp at zero.
func (r *Repository) Move(ctx context.Context, id uuid.UUID, delta decimal.Decimal, bagDelta int) (*models.Lot, error) {
	lot, err := r.FindForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	next := lot.PendingQuantity.Add(delta)
	if next.IsNegative() {
		return lot, ErrExhausted
	}
	if next.GreaterThan(lot.Quantity) {
		return lot, ErrOverfilled
	}
	lot.PendingQuantity = next
	lot.PendingBag += bagDelta
	if lot.PendingBag < 0 {
		lot.PendingBag = 0
	}
	if err := r.DB(ctx).Model(lot).Updates(map[string]any{
		"pending_quantity": lot.PendingQuantity,
		"pending_bag":      lot.PendingBag,
	}).Error; err != nil {
		return nil, err
	}
	return lot, nil
}

func (r *Repository) Save(ctx context.Context, lot *models.Lot) error {
	return r.DB(ctx).Omit("Product").Save(lot).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Lot{}).Error
}
