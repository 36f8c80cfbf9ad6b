package returns

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

func (r *Repository) Create(ctx context.Context, ret *models.Return) error {
	return r.DB(ctx).Omit("Product").Create(ret).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	if err := r.DB(ctx).Preload("Product").First(&ret, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	if err := repo.ForUpdate(r.DB(ctx)).First(&ret, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ret, nil
}

// List returns newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.PageParams) ([]models.Return, int64, error) {
	q := r.DB(ctx).Model(&models.Return{})
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.SaleID != nil {
		q = q.Where("sale_id = ?", *filter.SaleID)
	}
	if filter.PurchaseID != nil {
		q = q.Where("purchase_id = ?", *filter.PurchaseID)
	}
	var rows []models.Return
	total, err := repo.CountAndFind(q, params, "created_at DESC", &rows, "Product")
	return rows, total, err
}

func (r *Repository) UpdateReason(ctx context.Context, id uuid.UUID, reason *string) error {
	return r.DB(ctx).Model(&models.Return{}).Where("id = ?", id).Update("reason", reason).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Return{}).Error
}

// SaleLines locks the lines of a sale in position order.
func (r *Repository) SaleLines(ctx context.Context, saleID uuid.UUID) ([]models.SaleLine, error) {
	var lines []models.SaleLine
	err := repo.ForUpdate(r.DB(ctx)).Where("sale_id = ?", saleID).Order("position ASC").Find(&lines).Error
	return lines, err
}

func (r *Repository) FindSaleLine(ctx context.Context, id uuid.UUID) (*models.SaleLine, error) {
	var line models.SaleLine
	if err := repo.ForUpdate(r.DB(ctx)).First(&line, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *Repository) SetReturnedQuantity(ctx context.Context, lineID uuid.UUID, qty decimal.Decimal) error {
	return r.DB(ctx).Model(&models.SaleLine{}).Where("id = ?", lineID).Update("returned_quantity", qty).Error
}

func (r *Repository) FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := repo.ForUpdate(r.DB(ctx)).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *Repository) FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var p models.Purchase
	if err := repo.ForUpdate(r.DB(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) SetPurchaseDue(ctx context.Context, id uuid.UUID, due decimal.Decimal) error {
	return r.DB(ctx).Model(&models.Purchase{}).Where("id = ?", id).Update("due_amount", due).Error
}
