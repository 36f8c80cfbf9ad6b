package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/internal/dashboard"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

const defaultPageSize = 20

// Service exposes product catalog and stock operations.
type Service interface {
	Create(ctx context.Context, actor activitylog.Actor, input CreateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, filter ListFilter, params pagination.PageParams) (pagination.Page[ProductDTO], error)
	Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error
	AdjustStock(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input StockAdjustment) (*ProductDTO, error)
}

type ServiceParams struct {
	Repo     *Repository
	DB       db.TxRunner
	Activity activitylog.Recorder
	Cache    dashboard.Invalidator
}

type service struct {
	repo     *Repository
	tx       db.TxRunner
	activity activitylog.Recorder
	cache    dashboard.Invalidator
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	return &service{repo: params.Repo, tx: params.DB, activity: params.Activity, cache: params.Cache}, nil
}

func (s *service) Create(ctx context.Context, actor activitylog.Actor, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category, err := enums.ParseUnitCategory(input.UnitCategory)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unitCategory")
	}
	product := &models.Product{Name: name, UnitCategory: category, CurrentStock: decimal.Zero}
	if input.CurrentStock != nil {
		if input.CurrentStock.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "currentStock cannot be negative")
		}
		product.CurrentStock = *input.CurrentStock
	}
	if input.CurrentStockBag != nil {
		if *input.CurrentStockBag < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "currentStockBag cannot be negative")
		}
		product.CurrentStockBag = *input.CurrentStockBag
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionCreate,
			Entity:      activitylog.EntityProduct,
			EntityID:    product.ID,
			Description: fmt.Sprintf("created product %s (%s)", product.Name, product.UnitCategory),
		})
	})
	if err != nil {
		return nil, err
	}
	dashboard.Invalidate(ctx, s.cache)
	return FromModel(product), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := Load(ctx, s.repo, id, false)
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.PageParams) (pagination.Page[ProductDTO], error) {
	params = params.Normalize(defaultPageSize)
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

// Update renames a product. The unit category only changes while the
// product holds no stock, since stored quantities are in its base unit.
func (s *service) Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := Load(ctx, txRepo, id, true)
		if err != nil {
			return err
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			product.Name = name
		}
		if input.UnitCategory != nil {
			category, err := enums.ParseUnitCategory(*input.UnitCategory)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unitCategory")
			}
			if category != product.UnitCategory && !product.CurrentStock.IsZero() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "unitCategory can only change while stock is zero")
			}
			product.UnitCategory = category
		}
		if err := txRepo.Save(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		updated = product
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionUpdate,
			Entity:      activitylog.EntityProduct,
			EntityID:    product.ID,
			Description: fmt.Sprintf("updated product %s", product.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := Load(ctx, txRepo, id, true)
		if err != nil {
			return err
		}
		referenced, err := txRepo.IsReferenced(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product usage")
		}
		if referenced {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product has purchases or sales and cannot be deleted")
		}
		if err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionDelete,
			Entity:      activitylog.EntityProduct,
			EntityID:    id,
			Description: fmt.Sprintf("deleted product %s", product.Name),
		})
	})
	if err != nil {
		return err
	}
	dashboard.Invalidate(ctx, s.cache)
	return nil
}

func (s *service) AdjustStock(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input StockAdjustment) (*ProductDTO, error) {
	if input.Delta.IsZero() && input.BagDelta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta or bagDelta is required")
	}
	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := MoveStock(ctx, s.repo.WithTx(tx), id, input.Delta, input.BagDelta)
		if err != nil {
			return err
		}
		updated = product
		description := fmt.Sprintf("adjusted %s stock by %s %s", product.Name, input.Delta.String(), product.UnitCategory.BaseUnit())
		if input.Reason != nil && strings.TrimSpace(*input.Reason) != "" {
			description += ": " + strings.TrimSpace(*input.Reason)
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionUpdate,
			Entity:      activitylog.EntityProduct,
			EntityID:    product.ID,
			Description: description,
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// Load fetches a product and maps lookup failures to API errors.
func Load(ctx context.Context, r *Repository, id uuid.UUID, lock bool) (*models.Product, error) {
	var (
		product *models.Product
		err     error
	)
	if lock {
		product, err = r.FindForUpdate(ctx, id)
	} else {
		product, err = r.FindByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// MoveStock applies a stock movement inside the caller's transaction and
// maps failures to API errors.
func MoveStock(ctx context.Context, r *Repository, id uuid.UUID, delta decimal.Decimal, bagDelta int) (*models.Product, error) {
	product, err := r.MoveStock(ctx, id, delta, bagDelta)
	switch {
	case err == nil:
		return product, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	case errors.Is(err, ErrNegativeStock):
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "insufficient stock for %s", product.Name).
			WithDetails(map[string]any{"productId": id, "currentStock": product.CurrentStock, "delta": delta})
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
	}
}
