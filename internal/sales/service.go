package sales

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
	"github.com/angelmondragon/tradedesk-backend/internal/customers"
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

// Service bills sales. Totals are always recomputed by the calculator;
// client supplied totals are never trusted.
type Service interface {
	Create(ctx context.Context, actor activitylog.Actor, input CreateSaleInput) (*SaleDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*SaleDTO, error)
	List(ctx context.Context, filter ListFilter, params pagination.PageParams) (pagination.Page[SaleDTO], error)
	ByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.PageParams) (pagination.Page[SaleDTO], error)
	Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error
	Receipt(ctx context.Context, id uuid.UUID) (*ReceiptDTO, error)
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
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("sale repository required")
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
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// pricedLine is a request line after the calculator has run over it.
type pricedLine struct {
	product *models.Product
	lot     *models.Lot
	line    calculator.Line
	note    *string
}

func (s *service) Create(ctx context.Context, actor activitylog.Actor, input CreateSaleInput) (*SaleDTO, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	newCustomer := strings.TrimSpace(input.NewCustomerName)
	if input.Customer == nil && newCustomer == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer or newCustomerName is required")
	}
	if !calculator.ValidEntry(string(input.DiscountTotal), false) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discountTotal is not a valid amount")
	}
	if !calculator.ValidEntry(string(input.Payment), false) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment is not a valid amount")
	}
	saleDate := s.now()
	if input.SaleDate != nil && !input.SaleDate.IsZero() {
		saleDate = input.SaleDate.UTC()
	}

	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customerRepo := s.customers.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		lotRepo := s.lots.WithTx(tx)

		customer, err := s.resolveCustomer(ctx, tx, actor, input.Customer, newCustomer)
		if err != nil {
			return err
		}
		priced, err := priceLines(ctx, productRepo, lotRepo, input.Lines)
		if err != nil {
			return err
		}
		if input.Payment != "" {
			lines := make([]calculator.Line, len(priced))
			for i := range priced {
				lines[i] = priced[i].line
			}
			lines, _ = calculator.DistributePayment(lines, calculator.SumEntry(string(input.Payment)))
			for i := range priced {
				priced[i].line = lines[i]
			}
		}

		lines := make([]calculator.Line, 0, len(priced))
		for i, p := range priced {
			if p.line.Due.IsNegative() {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "lines[%d]: paid exceeds the line total", i)
			}
			lines = append(lines, p.line)
		}
		summary := calculator.Summarize(lines, calculator.SumEntry(string(input.DiscountTotal)))
		if summary.NetDue.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discountTotal exceeds the amount due")
		}

		billNo, err := sequence.NextNumber(tx, sequence.Bill)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate bill number")
		}
		sale = buildSale(priced, summary, customer, saleDate)
		sale.BillNo = billNo
		sale.DagImage = trimmedOrNil(input.DagImage)
		sale.Notes = trimmedOrNil(input.Notes)
		if sale.Notes == nil {
			sale.Notes = joinNotes(priced)
		}
		sale.CreatedBy = actor.ID()
		if err := s.repo.WithTx(tx).Create(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert sale")
		}

		for _, p := range priced {
			qty := p.line.QuantityValue()
			bags := p.line.BagCount()
			if p.lot != nil {
				if _, err := lots.DrawDown(ctx, lotRepo, p.lot.ID, qty, bags); err != nil {
					return err
				}
			}
			if _, err := products.MoveStock(ctx, productRepo, p.product.ID, qty.Neg(), -bags); err != nil {
				return err
			}
		}
		if err := customerRepo.SetBalance(ctx, customer.ID, sale.TotalDue, &saleDate); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer due")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleCreated,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.SaleCreatedEvent{
				SaleID:     sale.ID,
				BillNo:     sale.BillNo,
				CustomerID: customer.ID,
				SaleDate:   sale.SaleDate,
				LineCount:  len(sale.Lines),
				NetTotal:   sale.NetTotal,
				PaidTotal:  sale.PaidTotal,
				SaleDue:    sale.SaleDue,
				TotalDue:   sale.TotalDue,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit sale event")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionCreate,
			Entity:      activitylog.EntitySale,
			EntityID:    sale.ID,
			Description: fmt.Sprintf("sold bill %s to %s for %s", sale.BillNo, customer.Name, sale.NetTotal.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Record("sale", sale.NetTotal)
	dashboard.Invalidate(ctx, s.cache)
	return s.Get(ctx, sale.ID)
}

func (s *service) resolveCustomer(ctx context.Context, tx *gorm.DB, actor activitylog.Actor, id *uuid.UUID, newName string) (*models.Customer, error) {
	repo := s.customers.WithTx(tx)
	if id != nil {
		return customers.Lock(ctx, repo, *id)
	}
	customer := &models.Customer{Name: newName}
	if err := repo.Create(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert customer")
	}
	if err := s.activity.Record(ctx, tx, activitylog.Entry{
		Actor:       actor,
		Action:      enums.ActivityActionCreate,
		Entity:      activitylog.EntityCustomer,
		EntityID:    customer.ID,
		Description: fmt.Sprintf("created customer %s at checkout", customer.Name),
	}); err != nil {
		return nil, err
	}
	return customer, nil
}

// priceLines locks products and lots and runs every line through the
// calculator. Lines sharing a lot share its pending quantity.
func priceLines(ctx context.Context, productRepo *products.Repository, lotRepo *lots.Repository, inputs []LineInput) ([]pricedLine, error) {
	productsByID := make(map[uuid.UUID]*models.Product)
	lotsByID := make(map[uuid.UUID]*models.Lot)
	remaining := make(map[uuid.UUID]decimal.Decimal)

	out := make([]pricedLine, 0, len(inputs))
	for i, in := range inputs {
		if in.Product == uuid.Nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "lines[%d]: product is required", i)
		}
		product, ok := productsByID[in.Product]
		if !ok {
			var err error
			if product, err = products.Load(ctx, productRepo, in.Product, true); err != nil {
				return nil, err
			}
			productsByID[in.Product] = product
		}

		line := calculator.NewLine(products.Ref(product), calculator.SplitPayment)
		var lot *models.Lot
		if in.Lot != nil {
			if lot, ok = lotsByID[*in.Lot]; !ok {
				var err error
				if lot, err = lots.Lock(ctx, lotRepo, *in.Lot); err != nil {
					return nil, err
				}
				lotsByID[lot.ID] = lot
				remaining[lot.ID] = lot.PendingQuantity
			}
			if lot.ProductID != product.ID {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "lines[%d]: lot %s does not hold %s", i, lot.Number, product.Name)
			}
			ref := lots.Ref(lot)
			ref.Pending = remaining[lot.ID]
			line = calculator.Reduce(line, calculator.SelectLot{Lot: *ref})
		}

		events, err := in.Events(product.UnitCategory, calculator.SplitPayment)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("lines[%d]", i))
		}
		line = calculator.ReduceAll(line, events...)
		qty := line.QuantityValue()
		if !qty.IsPositive() {
			if lot != nil && !remaining[lot.ID].IsPositive() {
				return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "lines[%d]: lot %s has no pending quantity", i, lot.Number)
			}
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "lines[%d]: quantity must be greater than zero", i)
		}
		if line.Total.IsNegative() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "lines[%d]: discount exceeds the line amount", i)
		}
		if lot != nil {
			remaining[lot.ID] = remaining[lot.ID].Sub(qty)
		}

		note := trimmedOrNil(in.Note)
		if note == nil && lot != nil {
			if n := calculator.LotNote(lot.Number, in.QuantityEntry()); n != "" {
				note = &n
			}
		}
		out = append(out, pricedLine{product: product, lot: lot, line: line, note: note})
	}
	return out, nil
}

func buildSale(priced []pricedLine, summary calculator.Summary, customer *models.Customer, saleDate time.Time) *models.Sale {
	online, offline := decimal.Zero, decimal.Zero
	rows := make([]models.SaleLine, 0, len(priced))
	for i, p := range priced {
		row := models.SaleLine{
			Position:         i + 1,
			ProductID:        p.product.ID,
			Quantity:         p.line.QuantityValue(),
			UnitPrice:        calculator.Round2(p.line.UnitPriceValue()),
			Discount:         calculator.Round2(p.line.DiscountValue()),
			TotalAmount:      p.line.Total,
			PaidOnline:       calculator.Round2(calculator.SumEntry(p.line.PaidOnline)),
			PaidOffline:      calculator.Round2(calculator.SumEntry(p.line.PaidOffline)),
			DueAmount:        p.line.Due,
			TotalBags:        p.line.BagCount(),
			ReturnedQuantity: decimal.Zero,
			Note:             p.note,
		}
		if p.lot != nil {
			id := p.lot.ID
			row.LotID = &id
		}
		online = online.Add(row.PaidOnline)
		offline = offline.Add(row.PaidOffline)
		rows = append(rows, row)
	}
	return &models.Sale{
		CustomerID:    customer.ID,
		SaleDate:      saleDate,
		PaymentMode:   paymentMode(online, offline),
		GrandTotal:    summary.GrandTotal,
		DiscountTotal: summary.DiscountTotal,
		NetTotal:      summary.NetTotal,
		PaidTotal:     online.Add(offline),
		SaleDue:       summary.NetDue,
		PreviousDue:   customer.TotalDue,
		TotalDue:      customer.TotalDue.Add(summary.NetDue),
		Lines:         rows,
	}
}

func joinNotes(priced []pricedLine) *string {
	var notes []string
	for _, p := range priced {
		if p.note != nil {
			notes = append(notes, *p.note)
		}
	}
	if len(notes) == 0 {
		return nil
	}
	joined := strings.Join(notes, ", ")
	return &joined
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SaleDTO, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return FromModel(sale), nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.PageParams) (pagination.Page[SaleDTO], error) {
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return pagination.Page[SaleDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "endDate is before startDate")
	}
	params = params.Normalize(defaultPageSize)
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[SaleDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	items := make([]SaleDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

func (s *service) ByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.PageParams) (pagination.Page[SaleDTO], error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pagination.Page[SaleDTO]{}, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return pagination.Page[SaleDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return s.List(ctx, ListFilter{Customer: &customerID}, params)
}

// Delete voids a sale: lots and stock are restored and the sale's due is
// taken off the customer, never below zero. Sales with returns are kept.
func (s *service) Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		lotRepo := s.lots.WithTx(tx)
		customerRepo := s.customers.WithTx(tx)

		sale, err := txRepo.FindForUpdate(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		returns, err := txRepo.CountReturns(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sale returns")
		}
		if returns > 0 {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "bill %s has returns and cannot be deleted", sale.BillNo)
		}

		for _, line := range sale.Lines {
			if line.LotID != nil {
				if _, err := lots.Replenish(ctx, lotRepo, *line.LotID, line.Quantity, line.TotalBags); err != nil {
					return err
				}
			}
			if _, err := products.MoveStock(ctx, productRepo, line.ProductID, line.Quantity, line.TotalBags); err != nil {
				return err
			}
		}

		customer, err := customers.Lock(ctx, customerRepo, sale.CustomerID)
		if err != nil {
			return err
		}
		due := decimal.Max(decimal.Zero, customer.TotalDue.Sub(sale.SaleDue))
		if err := customerRepo.SetBalance(ctx, customer.ID, due, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer due")
		}
		if err := txRepo.Delete(ctx, sale.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete sale")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleDeleted,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.SaleDeletedEvent{
				SaleID:     sale.ID,
				BillNo:     sale.BillNo,
				CustomerID: sale.CustomerID,
				SaleDue:    sale.SaleDue,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit sale event")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionDelete,
			Entity:      activitylog.EntitySale,
			EntityID:    sale.ID,
			Description: fmt.Sprintf("deleted bill %s", sale.BillNo),
		})
	})
	if err != nil {
		return err
	}
	dashboard.Invalidate(ctx, s.cache)
	return nil
}

func (s *service) Receipt(ctx context.Context, id uuid.UUID) (*ReceiptDTO, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return Receipt(sale), nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
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
