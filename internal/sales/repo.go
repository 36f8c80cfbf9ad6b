package sales

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

// Create inserts the sale and its lines.
func (r *Repository) Create(ctx context.Context, sale *models.Sale) error {
	db := r.DB(ctx)
	lines := sale.Lines
	if err := db.Omit("Customer", "Lines").Create(sale).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].SaleID = sale.ID
		if err := db.Omit("Product", "Lot").Create(&lines[i]).Error; err != nil {
			return err
		}
	}
	sale.Lines = lines
	return nil
}

// FindByID loads a sale with customer, lines, line products and lots.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.DB(ctx).
		Preload("Customer").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Lines.Product").
		Preload("Lines.Lot").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := repo.ForUpdate(r.DB(ctx)).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// List returns sales newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.PageParams) ([]models.Sale, int64, error) {
	q := r.DB(ctx).Model(&models.Sale{})
	if filter.Customer != nil {
		q = q.Where("customer_id = ?", *filter.Customer)
	}
	if bill := strings.TrimSpace(filter.BillNo); bill != "" {
		q = q.Where("UPPER(bill_no) LIKE ?", "%"+strings.ToUpper(bill)+"%")
	}
	if filter.StartDate != nil {
		q = q.Where("sale_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("sale_date <= ?", *filter.EndDate)
	}
	var rows []models.Sale
	total, err := repo.CountAndFind(q, params, "sale_date DESC, bill_no DESC", &rows, "Customer")
	return rows, total, err
}

func (r *Repository) CountReturns(ctx context.Context, saleID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Return{}).Where("sale_id = ?", saleID).Count(&n).Error
	return n, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.DB(ctx)
	if err := db.Where("sale_id = ?", id).Delete(&models.SaleLine{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.Sale{}).Error
}
