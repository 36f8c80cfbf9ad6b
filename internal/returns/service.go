package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/internal/customers"
	"github.com/angelmondragon/tradedesk-backend/internal/dashboard"
	"github.com/angelmondragon/tradedesk-backend/internal/lots"
	"github.com/angelmondragon/tradedesk-backend/internal/products"
	"github.com/angelmondragon/tradedesk-backend/pkg/calculator"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

const defaultPageSize = 20

// Service records sale and purchase returns and keeps lots, stock and dues
// in step with them.
type Service interface {
	Create(ctx context.Context, actor activitylog.Actor, input CreateReturnInput) (*ReturnDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ReturnDTO, error)
	List(ctx context.Context, filter ListFilter, params pagination.PageParams) (pagination.Page[ReturnDTO], error)
	Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdateReturnInput) (*ReturnDTO, error)
	Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error
}

type ServiceParams struct {
	Repo      *Repository
	Customers *customers.Repository
	Products  *products.Repository
	Lots      *lots.Repository
	DB        db.TxRunner
	Activity  activitylog.Recorder
	Outbox    outbox.Emitter
	Cache     dashboard.Invalidator
	Metrics   *metrics.BusinessMetrics
}

type service struct {
	repo      *Repository
	customers *customers.Repository
	products  *products.Repository
	lots      *lots.Repository
	tx        db.TxRunner
	activity  activitylog.Recorder
	outbox    outbox.Emitter
	cache     dashboard.Invalidator
	metrics   *metrics.BusinessMetrics
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("return repository required")
	case params.Customers == nil:
		return nil, fmt.Errorf("customer repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Lots == nil:
		return nil, fmt.Errorf("lot repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.Activity == nil:
		return nil, fmt.Errorf("activity recorder required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:      params.Repo,
		customers: params.Customers,
		products:  params.Products,
		lots:      params.Lots,
		tx:        params.DB,
		activity:  params.Activity,
		outbox:    params.Outbox,
		cache:     params.Cache,
		metrics:   params.Metrics,
	}, nil
}

// txRepos are the repositories bound to one transaction.
type txRepos struct {
	returns   *Repository
	customers *customers.Repository
	products  *products.Repository
	lots      *lots.Repository
}

func (s *service) bind(tx *gorm.DB) txRepos {
	return txRepos{
		returns:   s.repo.WithTx(tx),
		customers: s.customers.WithTx(tx),
		products:  s.products.WithTx(tx),
		lots:      s.lots.WithTx(tx),
	}
}

func (s *service) Create(ctx context.Context, actor activitylog.Actor, input CreateReturnInput) (*ReturnDTO, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be sale or purchase")
	}
	raw := strings.TrimSpace(string(input.Quantity))
	if raw == "" || !calculator.ValidEntry(raw, true) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity is not a valid entry")
	}
	qty := calculator.SumEntry(raw)
	if !qty.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	var ret *models.Return
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repos := s.bind(tx)
		var err error
		switch input.Type {
		case enums.ReturnTypeSale:
			ret, err = s.returnSale(ctx, repos, input, qty)
		default:
			ret, err = s.returnPurchase(ctx, repos, input, qty)
		}
		if err != nil {
			return err
		}
		ret.Reason = trimmedOrNil(input.Reason)
		ret.CreatedBy = actor.ID()
		if err := repos.returns.Create(ctx, ret); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert return")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnCreated,
			AggregateType: enums.AggregateReturn,
			AggregateID:   ret.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.ReturnCreatedEvent{
				ReturnID:  ret.ID,
				Type:      ret.Type,
				ProductID: ret.ProductID,
				Quantity:  ret.Quantity,
				Amount:    ret.Amount,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit return event")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionReturn,
			Entity:      activitylog.EntityReturn,
			EntityID:    ret.ID,
			Description: fmt.Sprintf("%s return of %s worth %s", ret.Type, ret.Quantity.String(), ret.Amount.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Record("return_"+string(ret.Type), ret.Amount)
	dashboard.Invalidate(ctx, s.cache)
	return s.Get(ctx, ret.ID)
}

// returnSale puts goods back into stock and credits the customer with
// quantity x line price. A line never takes back more than it sold.
func (s *service) returnSale(ctx context.Context, repos txRepos, input CreateReturnInput, qty decimal.Decimal) (*models.Return, error) {
	if input.SaleID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "saleId is required")
	}
	sale, err := repos.returns.FindSale(ctx, *input.SaleID)
	if err != nil {
		return nil, lookupError(err, "sale")
	}
	line, err := s.findSaleLine(ctx, repos.returns, sale.ID, input)
	if err != nil {
		return nil, err
	}
	returnable := line.Quantity.Sub(line.ReturnedQuantity)
	if qty.GreaterThan(returnable) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "only %s can be returned on this line", returnable.String()).
			WithDetails(map[string]any{"saleLineId": line.ID, "returnable": returnable})
	}

	if line.LotID != nil {
		if _, err := lots.Replenish(ctx, repos.lots, *line.LotID, qty, 0); err != nil {
			return nil, err
		}
	}
	if _, err := products.MoveStock(ctx, repos.products, line.ProductID, qty, 0); err != nil {
		return nil, err
	}
	if err := repos.returns.SetReturnedQuantity(ctx, line.ID, line.ReturnedQuantity.Add(qty)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale line")
	}

	amount := calculator.Round2(qty.Mul(line.UnitPrice))
	customer, err := customers.Lock(ctx, repos.customers, sale.CustomerID)
	if err != nil {
		return nil, err
	}
	due := decimal.Max(decimal.Zero, customer.TotalDue.Sub(amount))
	if err := repos.customers.SetBalance(ctx, customer.ID, due, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit customer")
	}

	saleID, lineID := sale.ID, line.ID
	return &models.Return{
		Type:       enums.ReturnTypeSale,
		SaleID:     &saleID,
		SaleLineID: &lineID,
		ProductID:  line.ProductID,
		LotID:      line.LotID,
		Quantity:   qty,
		Amount:     amount,
	}, nil
}

func (s *service) findSaleLine(ctx context.Context, r *Repository, saleID uuid.UUID, input CreateReturnInput) (*models.SaleLine, error) {
	if input.SaleLineID != nil {
		line, err := r.FindSaleLine(ctx, *input.SaleLineID)
		if err != nil {
			return nil, lookupError(err, "sale line")
		}
		if line.SaleID != saleID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "saleLineId does not belong to the sale")
		}
		return line, nil
	}
	if input.Product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "saleLineId or product is required")
	}
	lines, err := r.SaleLines(ctx, saleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale lines")
	}
	var match *models.SaleLine
	for i := range lines {
		line := &lines[i]
		if line.ProductID != *input.Product {
			continue
		}
		if input.Lot != nil && (line.LotID == nil || *line.LotID != *input.Lot) {
			continue
		}
		if match == nil {
			match = line
		}
		if line.Quantity.GreaterThan(line.ReturnedQuantity) {
			return line, nil
		}
	}
	if match == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product was not sold on this sale")
	}
	return match, nil
}

// returnPurchase sends goods back to the supplier out of the purchase's lot
// and lowers what is owed, never below zero.
func (s *service) returnPurchase(ctx context.Context, repos txRepos, input CreateReturnInput, qty decimal.Decimal) (*models.Return, error) {
	if input.PurchaseID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchaseId is required")
	}
	purchase, err := repos.returns.FindPurchase(ctx, *input.PurchaseID)
	if err != nil {
		return nil, lookupError(err, "purchase")
	}
	if input.Product != nil && *input.Product != purchase.ProductID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not match the purchase")
	}
	lot, err := repos.lots.FindByPurchase(ctx, purchase.ID)
	if err != nil {
		return nil, lookupError(err, "lot")
	}
	if input.Lot != nil && *input.Lot != lot.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lot does not belong to the purchase")
	}
	if _, err := lots.DrawDown(ctx, repos.lots, lot.ID, qty, 0); err != nil {
		return nil, err
	}
	if _, err := products.MoveStock(ctx, repos.products, purchase.ProductID, qty.Neg(), 0); err != nil {
		return nil, err
	}

	amount := calculator.Round2(qty.Mul(purchase.UnitPrice))
	due := decimal.Max(decimal.Zero, purchase.DueAmount.Sub(amount))
	if err := repos.returns.SetPurchaseDue(ctx, purchase.ID, due); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase due")
	}

	purchaseID, lotID := purchase.ID, lot.ID
	return &models.Return{
		Type:       enums.ReturnTypePurchase,
		PurchaseID: &purchaseID,
		ProductID:  purchase.ProductID,
		LotID:      &lotID,
		Quantity:   qty,
		Amount:     amount,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ReturnDTO, error) {
	ret, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "return")
	}
	return FromModel(ret), nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.PageParams) (pagination.Page[ReturnDTO], error) {
	if filter.Type != nil && !filter.Type.IsValid() {
		return pagination.Page[ReturnDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "type must be sale or purchase")
	}
	params = params.Normalize(defaultPageSize)
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[ReturnDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	items := make([]ReturnDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

// Update changes the reason only; quantities are fixed once recorded.
func (s *service) Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdateReturnInput) (*ReturnDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		ret, err := r.FindForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, "return")
		}
		if err := r.UpdateReason(ctx, ret.ID, trimmedOrNil(input.Reason)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionUpdate,
			Entity:      activitylog.EntityReturn,
			EntityID:    ret.ID,
			Description: "updated return reason",
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete reverses a return: stock and lots move back and the credited
// amount is owed again. A purchase due never exceeds total minus paid.
func (s *service) Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repos := s.bind(tx)
		ret, err := repos.returns.FindForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, "return")
		}
		switch ret.Type {
		case enums.ReturnTypeSale:
			err = s.reverseSale(ctx, repos, ret)
		default:
			err = s.reversePurchase(ctx, repos, ret)
		}
		if err != nil {
			return err
		}
		if err := repos.returns.Delete(ctx, ret.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete return")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionDelete,
			Entity:      activitylog.EntityReturn,
			EntityID:    ret.ID,
			Description: fmt.Sprintf("reversed %s return of %s", ret.Type, ret.Quantity.String()),
		})
	})
	if err != nil {
		return err
	}
	dashboard.Invalidate(ctx, s.cache)
	return nil
}

func (s *service) reverseSale(ctx context.Context, repos txRepos, ret *models.Return) error {
	if ret.SaleID == nil || ret.SaleLineID == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "return is not linked to a sale line")
	}
	sale, err := repos.returns.FindSale(ctx, *ret.SaleID)
	if err != nil {
		return lookupError(err, "sale")
	}
	line, err := repos.returns.FindSaleLine(ctx, *ret.SaleLineID)
	if err != nil {
		return lookupError(err, "sale line")
	}
	if ret.LotID != nil {
		if _, err := lots.DrawDown(ctx, repos.lots, *ret.LotID, ret.Quantity, 0); err != nil {
			return err
		}
	}
	if _, err := products.MoveStock(ctx, repos.products, ret.ProductID, ret.Quantity.Neg(), 0); err != nil {
		return err
	}
	returned := decimal.Max(decimal.Zero, line.ReturnedQuantity.Sub(ret.Quantity))
	if err := repos.returns.SetReturnedQuantity(ctx, line.ID, returned); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale line")
	}
	customer, err := customers.Lock(ctx, repos.customers, sale.CustomerID)
	if err != nil {
		return err
	}
	if err := repos.customers.SetBalance(ctx, customer.ID, customer.TotalDue.Add(ret.Amount), nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit customer")
	}
	return nil
}

func (s *service) reversePurchase(ctx context.Context, repos txRepos, ret *models.Return) error {
	if ret.PurchaseID == nil || ret.LotID == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "return is not linked to a purchase lot")
	}
	purchase, err := repos.returns.FindPurchase(ctx, *ret.PurchaseID)
	if err != nil {
		return lookupError(err, "purchase")
	}
	if _, err := lots.Replenish(ctx, repos.lots, *ret.LotID, ret.Quantity, 0); err != nil {
		return err
	}
	if _, err := products.MoveStock(ctx, repos.products, ret.ProductID, ret.Quantity, 0); err != nil {
		return err
	}
	ceiling := decimal.Max(decimal.Zero, purchase.TotalAmount.Sub(purchase.PaidAmount))
	due := decimal.Min(ceiling, purchase.DueAmount.Add(ret.Amount))
	if err := repos.returns.SetPurchaseDue(ctx, purchase.ID, due); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase due")
	}
	return nil
}

func lookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", what)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
