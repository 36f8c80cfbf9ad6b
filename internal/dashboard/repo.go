package dashboard

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/repo"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

type saleTotals struct {
	Net decimal.Decimal
	Due decimal.Decimal
}

type purchaseTotals struct {
	Total decimal.Decimal
	Due   decimal.Decimal
}

// Counts returns the row count of each model keyed by name.
func (r *Repository) Counts(ctx context.Context) (Counts, error) {
	var out Counts
	db := r.DB(ctx)
	for _, c := range []struct {
		model any
		dest  *int64
	}{
		{&models.Customer{}, &out.Customers},
		{&models.Product{}, &out.Products},
		{&models.Supplier{}, &out.Suppliers},
		{&models.User{}, &out.Users},
	} {
		if err := db.Model(c.model).Count(c.dest).Error; err != nil {
			return Counts{}, err
		}
	}
	return out, nil
}

func (r *Repository) SaleTotals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var row saleTotals
	err := r.DB(ctx).Model(&models.Sale{}).
		Select("COALESCE(SUM(net_total), 0) AS net, COALESCE(SUM(sale_due), 0) AS due").
		Scan(&row).Error
	return row.Net, row.Due, err
}

func (r *Repository) PurchaseTotals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var row purchaseTotals
	err := r.DB(ctx).Model(&models.Purchase{}).
		Select("COALESCE(SUM(total_amount), 0) AS total, COALESCE(SUM(due_amount), 0) AS due").
		Scan(&row).Error
	return row.Total, row.Due, err
}
