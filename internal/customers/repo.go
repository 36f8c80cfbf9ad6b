package customers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/repo"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

// Repository persists customers and their payments.
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

func (r *Repository) Create(ctx context.Context, c *models.Customer) error {
	return r.DB(ctx).Create(c).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	if err := r.DB(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindForUpdate loads the customer and locks the row for the running
// transaction.
func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	if err := repo.ForUpdate(r.DB(ctx)).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// List pages customers by name, optionally filtered on name or phone.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.PageParams) ([]models.Customer, int64, error) {
	q := r.DB(ctx).Model(&models.Customer{})
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
	}
	var rows []models.Customer
	total, err := repo.CountAndFind(q, params, "name ASC", &rows)
	return rows, total, err
}

func (r *Repository) Save(ctx context.Context, c *models.Customer) error {
	return r.DB(ctx).Save(c).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Customer{}).Error
}

// SetBalance stores the running due and, when shopAt is set, the last shop
// date.
func (r *Repository) SetBalance(ctx context.Context, id uuid.UUID, totalDue decimal.Decimal, shopAt *time.Time) error {
	updates := map[string]any{"total_due": totalDue, "updated_at": time.Now().UTC()}
	if shopAt != nil {
		updates["last_shop"] = *shopAt
	}
	return r.DB(ctx).Model(&models.Customer{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) CreatePayment(ctx context.Context, p *models.CustomerPayment) error {
	return r.DB(ctx).Create(p).Error
}

// SalesPage lists the customer's sales, newest first.
func (r *Repository) SalesPage(ctx context.Context, customerID uuid.UUID, params pagination.PageParams) ([]models.Sale, int64, error) {
	q := r.DB(ctx).Model(&models.Sale{}).Where("customer_id = ?", customerID)
	var rows []models.Sale
	total, err := repo.CountAndFind(q, params, "sale_date DESC, created_at DESC", &rows)
	return rows, total, err
}

func (r *Repository) CountSales(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Sale{}).Where("customer_id = ?", customerID).Count(&n).Error
	return n, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Customer{}).Count(&n).Error
	return n, err
}
