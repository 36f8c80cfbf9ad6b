package lots

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

// DefaultSearchLimit is the page size of a lot search without a limit.
const DefaultSearchLimit = 20

// Service is the read side of lots. Writes happen inside purchase, sale and
// return transactions through DrawDown and Replenish.
type Service interface {
	Search(ctx context.Context, input SearchInput) (pagination.Page[LotDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*LotDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("lot repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Search(ctx context.Context, input SearchInput) (pagination.Page[LotDTO], error) {
	params := pagination.PageParams{Page: input.Page, Limit: input.Limit}.Normalize(DefaultSearchLimit)
	rows, total, err := s.repo.Search(ctx, input.Product, input.PendingOnly, params)
	if err != nil {
		return pagination.Page[LotDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search lots")
	}
	items := make([]LotDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LotDTO, error) {
	lot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return FromModel(lot), nil
}

// DrawDown takes qty (base units) and bags out of a lot inside the caller's
// transaction.
func DrawDown(ctx context.Context, r *Repository, id uuid.UUID, qty decimal.Decimal, bags int) (*models.Lot, error) {
	return move(ctx, r, id, qty.Neg(), -bags)
}

// Replenish puts qty and bags back into a lot.
func Replenish(ctx context.Context, r *Repository, id uuid.UUID, qty decimal.Decimal, bags int) (*models.Lot, error) {
	return move(ctx, r, id, qty, bags)
}

// Lock loads a lot for update and maps lookup failures.
func Lock(ctx context.Context, r *Repository, id uuid.UUID) (*models.Lot, error) {
	lot, err := r.FindForUpdate(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return lot, nil
}

func move(ctx context.Context, r *Repository, id uuid.UUID, delta decimal.Decimal, bags int) (*models.Lot, error) {
	lot, err := r.Move(ctx, id, delta, bags)
	switch {
	case err == nil:
		return lot, nil
	case errors.Is(err, ErrExhausted):
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "lot %s has only %s pending", lot.Number, lot.PendingQuantity.String()).
			WithDetails(map[string]any{"lotId": id, "pendingQuantity": lot.PendingQuantity})
	case errors.Is(err, ErrOverfilled):
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "lot %s cannot hold more than %s", lot.Number, lot.Quantity.String())
	default:
		return nil, lookupError(err)
	}
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "lot not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lot")
}
