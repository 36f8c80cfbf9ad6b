package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/internal/dashboard"
	"github.com/angelmondragon/tradedesk-backend/internal/lots"
	"github.com/angelmondragon/tradedesk-backend/internal/products"
	"github.com/angelmondragon/tradedesk-backend/internal/sequence"
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

// Service records stock intake from suppliers. Every purchase opens one lot.
type Service interface {
	Create(ctx context.Context, actor activitylog.Actor, input CreatePurchaseInput) (*PurchaseDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PurchaseDTO, error)
	List(ctx context.Context, filter ListFilter, params pagination.PageParams) (pagination.Page[PurchaseDTO], error)
	Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdatePurchaseInput) (*PurchaseDTO, error)
	Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error
	AddPayment(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input PaymentInput) (*PurchaseDTO, error)
}

type ServiceParams struct {
	Repo     *Repository
	Products *products.Repository
	Lots     *lots.Repository
	DB       db.TxRunner
	Activity activitylog.Recorder
	Outbox   outbox.Emitter
	Cache    dashboard.Invalidator
	Metrics  *metrics.BusinessMetrics
}

type service struct {
	repo     *Repository
	products *products.Repository
	lots     *lots.Repository
	tx       db.TxRunner
	activity activitylog.Recorder
	outbox   outbox.Emitter
	cache    dashboard.Invalidator
	metrics  *metrics.BusinessMetrics
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("purchase repository required")
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
		repo:     params.Repo,
		products: params.Products,
		lots:     params.Lots,
		tx:       params.DB,
		activity: params.Activity,
		outbox:   params.Outbox,
		cache:    params.Cache,
		metrics:  params.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor activitylog.Actor, input CreatePurchaseInput) (*PurchaseDTO, error) {
	if input.Supplier == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier is required")
	}
	if input.Product == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}
	purchaseDate := s.now()
	if input.PurchaseDate != nil && !input.PurchaseDate.IsZero() {
		purchaseDate = input.PurchaseDate.UTC()
	}

	installments := make([]models.PurchasePayment, 0, len(input.Payments))
	paid := decimal.Zero
	for i, p := range input.Payments {
		amount := p.Amount.Round(2)
		if !amount.IsPositive() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "paidAmount[%d] must be greater than zero", i)
		}
		paidAt := purchaseDate
		if p.PaymentDate != nil && !p.PaymentDate.IsZero() {
			paidAt = p.PaymentDate.UTC()
		}
		installments = append(installments, models.PurchasePayment{Amount: amount, PaidAt: paidAt})
		paid = paid.Add(amount)
	}

	var (
		purchase *models.Purchase
		lot      *models.Lot
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		lotRepo := s.lots.WithTx(tx)

		if _, err := findSupplier(ctx, txRepo, input.Supplier); err != nil {
			return err
		}
		product, err := products.Load(ctx, productRepo, input.Product, true)
		if err != nil {
			return err
		}
		line, err := priceLine(product, nil, input.LineInput, paid)
		if err != nil {
			return err
		}
		bags, err := bagCount(line, input.TotalBag)
		if err != nil {
			return err
		}

		purchase = &models.Purchase{
			SupplierID:   input.Supplier,
			ProductID:    product.ID,
			Quantity:     line.QuantityValue(),
			UnitPrice:    calculator.Round2(line.UnitPriceValue()),
			Discount:     calculator.Round2(line.DiscountValue()),
			TotalAmount:  line.Total,
			PaidAmount:   calculator.Round2(paid),
			DueAmount:    line.Due,
			TotalBags:    bags,
			PurchaseDate: purchaseDate,
			Notes:        trimmedOrNil(input.Notes),
			CreatedBy:    actor.ID(),
		}
		if err := txRepo.Create(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert purchase")
		}
		for i := range installments {
			installments[i].PurchaseID = purchase.ID
			if err := txRepo.CreatePayment(ctx, &installments[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert purchase payment")
			}
		}

		number, err := sequence.NextNumber(tx, sequence.Lot)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate lot number")
		}
		lot = &models.Lot{
			Number:          number,
			PurchaseID:      purchase.ID,
			ProductID:       product.ID,
			SupplierID:      purchase.SupplierID,
			Quantity:        purchase.Quantity,
			PendingQuantity: purchase.Quantity,
			PendingBag:      bags,
			ReceivedAt:      purchaseDate,
		}
		if err := lotRepo.Create(ctx, lot); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert lot")
		}
		if _, err := products.MoveStock(ctx, productRepo, product.ID, purchase.Quantity, bags); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseCreated,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.PurchaseCreatedEvent{
				PurchaseID:  purchase.ID,
				LotID:       lot.ID,
				LotNumber:   lot.Number,
				SupplierID:  purchase.SupplierID,
				ProductID:   purchase.ProductID,
				Quantity:    purchase.Quantity,
				TotalAmount: purchase.TotalAmount,
				DueAmount:   purchase.DueAmount,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit purchase event")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionCreate,
			Entity:      activitylog.EntityPurchase,
			EntityID:    purchase.ID,
			Description: fmt.Sprintf("purchased %s %s of %s (lot %s)", purchase.Quantity.String(), product.UnitCategory.BaseUnit(), product.Name, lot.Number),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Record("purchase", purchase.TotalAmount)
	dashboard.Invalidate(ctx, s.cache)
	return s.Get(ctx, purchase.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PurchaseDTO, error) {
	purchase, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return FromModel(purchase), nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.PageParams) (pagination.Page[PurchaseDTO], error) {
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return pagination.Page[PurchaseDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "endDate is before startDate")
	}
	params = params.Normalize(defaultPageSize)
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[PurchaseDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	items := make([]PurchaseDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

// Update edits a purchase. Quantity and bag changes are only allowed while
// nothing has been drawn from the purchase's lot.
func (s *service) Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdatePurchaseInput) (*PurchaseDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		lotRepo := s.lots.WithTx(tx)

		purchase, err := txRepo.FindForUpdate(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if purchase.Product == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if input.Supplier != nil && *input.Supplier != purchase.SupplierID {
			if _, err := findSupplier(ctx, txRepo, *input.Supplier); err != nil {
				return err
			}
			purchase.SupplierID = *input.Supplier
		}

		line, err := priceLine(purchase.Product, purchase, input.LineInput, purchase.PaidAmount)
		if err != nil {
			return err
		}
		bags := purchase.TotalBags
		quantityEdited := input.Quantity != "" || input.DisplayQuantity != "" || input.BagQuantity != ""
		if input.TotalBag != nil || input.TotalBags != "" || (quantityEdited && purchase.Product.UnitCategory == enums.UnitCategoryBag) {
			if bags, err = bagCount(line, input.TotalBag); err != nil {
				return err
			}
		}

		lot, err := lotRepo.FindByPurchase(ctx, purchase.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase lot")
		}
		qty := line.QuantityValue()
		if !qty.Equal(purchase.Quantity) || bags != purchase.TotalBags {
			if drawn(lot) {
				return pkgerrors.Newf(pkgerrors.CodeStateConflict, "lot %s has already been drawn from", lot.Number)
			}
			if _, err := products.MoveStock(ctx, productRepo, purchase.ProductID, qty.Sub(purchase.Quantity), bags-purchase.TotalBags); err != nil {
				return err
			}
			lot.Quantity = qty
			lot.PendingQuantity = qty
			lot.PendingBag = bags
		}
		if input.PurchaseDate != nil && !input.PurchaseDate.IsZero() {
			purchase.PurchaseDate = input.PurchaseDate.UTC()
			lot.ReceivedAt = purchase.PurchaseDate
		}
		lot.SupplierID = purchase.SupplierID
		if err := lotRepo.Save(ctx, lot); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update lot")
		}

		purchase.Quantity = qty
		purchase.UnitPrice = calculator.Round2(line.UnitPriceValue())
		purchase.Discount = calculator.Round2(line.DiscountValue())
		purchase.TotalAmount = line.Total
		purchase.DueAmount = line.Due
		purchase.TotalBags = bags
		if input.Notes != nil {
			purchase.Notes = trimmedOrNil(input.Notes)
		}
		if err := txRepo.Save(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionUpdate,
			Entity:      activitylog.EntityPurchase,
			EntityID:    purchase.ID,
			Description: fmt.Sprintf("updated purchase of lot %s", lot.Number),
		})
	})
	if err != nil {
		return nil, err
	}
	dashboard.Invalidate(ctx, s.cache)
	return s.Get(ctx, id)
}

// Delete removes a purchase together with its untouched lot and takes the
// stock back out.
func (s *service) Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		lotRepo := s.lots.WithTx(tx)

		purchase, err := txRepo.FindForUpdate(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		lot, err := lotRepo.FindByPurchase(ctx, purchase.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase lot")
		}
		if drawn(lot) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "lot %s has already been drawn from", lot.Number).
				WithDetails(map[string]any{"lotId": lot.ID, "pendingQuantity": lot.PendingQuantity, "quantity": lot.Quantity})
		}
		if _, err := products.MoveStock(ctx, s.products.WithTx(tx), purchase.ProductID, purchase.Quantity.Neg(), -purchase.TotalBags); err != nil {
			return err
		}
		if err := lotRepo.Delete(ctx, lot.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete lot")
		}
		if err := txRepo.Delete(ctx, purchase.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete purchase")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseDeleted,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Actor:         actor.OutboxRef(),
			Data:          payloads.PurchaseDeletedEvent{PurchaseID: purchase.ID, LotNumber: lot.Number},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit purchase event")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionDelete,
			Entity:      activitylog.EntityPurchase,
			EntityID:    purchase.ID,
			Description: fmt.Sprintf("deleted purchase of lot %s", lot.Number),
		})
	})
	if err != nil {
		return err
	}
	dashboard.Invalidate(ctx, s.cache)
	return nil
}

// AddPayment appends a supplier installment. The amount may not exceed the
// remaining due.
func (s *service) AddPayment(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input PaymentInput) (*PurchaseDTO, error) {
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	paidAt := s.now()
	if input.PaymentDate != nil && !input.PaymentDate.IsZero() {
		paidAt = input.PaymentDate.UTC()
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		purchase, err := txRepo.FindForUpdate(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if amount.GreaterThan(purchase.DueAmount) {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "amount exceeds the due of %s", purchase.DueAmount.StringFixed(2))
		}
		payment := &models.PurchasePayment{PurchaseID: purchase.ID, Amount: amount, PaidAt: paidAt}
		if err := txRepo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert purchase payment")
		}
		purchase.PaidAmount = purchase.PaidAmount.Add(amount)
		purchase.DueAmount = purchase.DueAmount.Sub(amount)
		if err := txRepo.Save(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase due")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchasePaymentAdded,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.PurchasePaymentAddedEvent{
				PurchaseID: purchase.ID,
				PaymentID:  payment.ID,
				Amount:     amount,
				DueAmount:  purchase.DueAmount,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment event")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionPayment,
			Entity:      activitylog.EntityPurchase,
			EntityID:    purchase.ID,
			Description: fmt.Sprintf("paid %s to supplier", amount.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Record("purchase_payment", amount)
	dashboard.Invalidate(ctx, s.cache)
	return s.Get(ctx, id)
}

// priceLine runs the purchase through the calculator. Stored values seed the
// line when editing; paid is always the sum of recorded installments.
func priceLine(product *models.Product, stored *models.Purchase, edits calculator.LineInput, paid decimal.Decimal) (calculator.Line, error) {
	line := calculator.NewLine(products.Ref(product), calculator.SinglePayment)
	if stored != nil {
		line = calculator.ReduceAll(line,
			calculator.Edit{Field: calculator.FieldQuantity, Value: stored.Quantity.String()},
			calculator.Edit{Field: calculator.FieldUnitPrice, Value: stored.UnitPrice.String()},
			calculator.Edit{Field: calculator.FieldDiscount, Value: stored.Discount.String()},
		)
	}
	edits.PaidAmount, edits.PaidOnline, edits.PaidOffline = "", "", ""
	events, err := edits.Events(product.UnitCategory, calculator.SinglePayment)
	if err != nil {
		return line, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchase line")
	}
	events = append(events, calculator.Edit{Field: calculator.FieldPaidAmount, Value: paid.String()})
	line = calculator.ReduceAll(line, events...)

	switch {
	case !line.QuantityValue().IsPositive():
		return line, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	case line.Total.IsNegative():
		return line, pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds the purchase amount")
	case line.Due.IsNegative():
		return line, pkgerrors.New(pkgerrors.CodeValidation, "payments exceed the purchase total")
	}
	return line, nil
}

// bagCount resolves the bags received. An explicit count wins over the
// line's own bag count.
func bagCount(line calculator.Line, explicit *int) (int, error) {
	if explicit != nil {
		if *explicit < 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "totalBag cannot be negative")
		}
		return *explicit, nil
	}
	return line.BagCount(), nil
}

func drawn(lot *models.Lot) bool {
	return !lot.PendingQuantity.Equal(lot.Quantity)
}

func findSupplier(ctx context.Context, r *Repository, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := r.FindSupplier(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return supplier, nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
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
