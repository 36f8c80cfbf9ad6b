package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
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

type Service interface {
	Create(ctx context.Context, actor activitylog.Actor, input CreateSupplierInput) (*SupplierDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*SupplierDTO, error)
	List(ctx context.Context, search string, params pagination.PageParams) (pagination.Page[SupplierDTO], error)
	Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdateSupplierInput) (*SupplierDTO, error)
	Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error
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
		return nil, fmt.Errorf("supplier repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	return &service{repo: params.Repo, tx: params.DB, activity: params.Activity, cache: params.Cache}, nil
}

func (s *service) Create(ctx context.Context, actor activitylog.Actor, input CreateSupplierInput) (*SupplierDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	supplier := &models.Supplier{
		Name:    name,
		Phone:   trimmedOrNil(input.Phone),
		Address: trimmedOrNil(input.Address),
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, supplier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert supplier")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionCreate,
			Entity:      activitylog.EntitySupplier,
			EntityID:    supplier.ID,
			Description: fmt.Sprintf("created supplier %s", supplier.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	dashboard.Invalidate(ctx, s.cache)
	return FromModel(supplier), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SupplierDTO, error) {
	supplier, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return FromModel(supplier), nil
}

func (s *service) List(ctx context.Context, search string, params pagination.PageParams) (pagination.Page[SupplierDTO], error) {
	params = params.Normalize(defaultPageSize)
	rows, total, err := s.repo.List(ctx, search, params)
	if err != nil {
		return pagination.Page[SupplierDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	items := make([]SupplierDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

func (s *service) Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdateSupplierInput) (*SupplierDTO, error) {
	var updated *models.Supplier
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		supplier, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			supplier.Name = name
		}
		if input.Phone != nil {
			supplier.Phone = trimmedOrNil(input.Phone)
		}
		if input.Address != nil {
			supplier.Address = trimmedOrNil(input.Address)
		}
		if err := txRepo.Save(ctx, supplier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
		}
		updated = supplier
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionUpdate,
			Entity:      activitylog.EntitySupplier,
			EntityID:    supplier.ID,
			Description: fmt.Sprintf("updated supplier %s", supplier.Name),
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
		supplier, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		purchases, err := txRepo.CountPurchases(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count supplier purchases")
		}
		if purchases > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "supplier has purchases and cannot be deleted")
		}
		if err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete supplier")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionDelete,
			Entity:      activitylog.EntitySupplier,
			EntityID:    id,
			Description: fmt.Sprintf("deleted supplier %s", supplier.Name),
		})
	})
	if err != nil {
		return err
	}
	dashboard.Invalidate(ctx, s.cache)
	return nil
}

func (s *service) load(ctx context.Context, r *Repository, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := r.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return supplier, nil
}
