package customers

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
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

const (
	defaultPageSize = 20
	// SalesPageSize is the fixed page size of a customer's sales history.
	SalesPageSize = 10
)

// Service manages customer accounts and their running dues.
type Service interface {
	Create(ctx context.Context, actor activitylog.Actor, input CreateCustomerInput) (*CustomerDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error)
	List(ctx context.Context, filter ListFilter, params pagination.PageParams) (pagination.Page[CustomerDTO], error)
	Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdateCustomerInput) (*CustomerDTO, error)
	Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error
	Sales(ctx context.Context, id uuid.UUID, page int) (pagination.Page[SaleSummaryDTO], error)
	RecordPayment(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input PaymentInput) (*PaymentDTO, error)
}

// ServiceParams bundles the customer service dependencies. Cache and
// Metrics are optional.
type ServiceParams struct {
	Repo     *Repository
	DB       db.TxRunner
	Activity activitylog.Recorder
	Outbox   outbox.Emitter
	Cache    dashboard.Invalidator
	Metrics  *metrics.BusinessMetrics
}

type service struct {
	repo     *Repository
	tx       db.TxRunner
	activity activitylog.Recorder
	outbox   outbox.Emitter
	cache    dashboard.Invalidator
	metrics  *metrics.BusinessMetrics
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.DB,
		activity: params.Activity,
		outbox:   params.Outbox,
		cache:    params.Cache,
		metrics:  params.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor activitylog.Actor, input CreateCustomerInput) (*CustomerDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	opening := decimal.Zero
	if input.TotalDue != nil {
		if input.TotalDue.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "totalDue cannot be negative")
		}
		opening = input.TotalDue.Round(2)
	}

	customer := &models.Customer{
		Name:     name,
		Phone:    trimmedOrNil(input.Phone),
		WhatsApp: trimmedOrNil(input.WhatsApp),
		Address:  trimmedOrNil(input.Address),
		Notes:    trimmedOrNil(input.Notes),
		TotalDue: opening,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert customer")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionCreate,
			Entity:      activitylog.EntityCustomer,
			EntityID:    customer.ID,
			Description: fmt.Sprintf("created customer %s", customer.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	dashboard.Invalidate(ctx, s.cache)
	return FromModel(customer), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error) {
	customer, err := load(ctx, s.repo, id, false)
	if err != nil {
		return nil, err
	}
	return FromModel(customer), nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.PageParams) (pagination.Page[CustomerDTO], error) {
	params = params.Normalize(defaultPageSize)
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[CustomerDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	items := make([]CustomerDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

func (s *service) Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdateCustomerInput) (*CustomerDTO, error) {
	var updated *models.Customer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		customer, err := load(ctx, txRepo, id, true)
		if err != nil {
			return err
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			customer.Name = name
		}
		if input.Phone != nil {
			customer.Phone = trimmedOrNil(input.Phone)
		}
		if input.WhatsApp != nil {
			customer.WhatsApp = trimmedOrNil(input.WhatsApp)
		}
		if input.Address != nil {
			customer.Address = trimmedOrNil(input.Address)
		}
		if input.Notes != nil {
			customer.Notes = trimmedOrNil(input.Notes)
		}
		if err := txRepo.Save(ctx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
		}
		updated = customer
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionUpdate,
			Entity:      activitylog.EntityCustomer,
			EntityID:    customer.ID,
			Description: fmt.Sprintf("updated customer %s", customer.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// Delete removes a customer without sales history.
func (s *service) Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		customer, err := load(ctx, txRepo, id, true)
		if err != nil {
			return err
		}
		sales, err := txRepo.CountSales(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customer sales")
		}
		if sales > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "customer has sales and cannot be deleted")
		}
		if err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete customer")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionDelete,
			Entity:      activitylog.EntityCustomer,
			EntityID:    id,
			Description: fmt.Sprintf("deleted customer %s", customer.Name),
		})
	})
	if err != nil {
		return err
	}
	dashboard.Invalidate(ctx, s.cache)
	return nil
}

func (s *service) Sales(ctx context.Context, id uuid.UUID, page int) (pagination.Page[SaleSummaryDTO], error) {
	if _, err := load(ctx, s.repo, id, false); err != nil {
		return pagination.Page[SaleSummaryDTO]{}, err
	}
	params := pagination.PageParams{Page: page, Limit: SalesPageSize}.Normalize(SalesPageSize)
	rows, total, err := s.repo.SalesPage(ctx, id, params)
	if err != nil {
		return pagination.Page[SaleSummaryDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer sales")
	}
	items := make([]SaleSummaryDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, saleSummary(row))
	}
	return pagination.NewPage(items, params, total), nil
}

// RecordPayment lowers the customer's due by the amount, never below zero.
// The full amount is kept on the payment row.
func (s *service) RecordPayment(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input PaymentInput) (*PaymentDTO, error) {
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	paidAt := s.now()
	if input.PaymentDate != nil && !input.PaymentDate.IsZero() {
		paidAt = input.PaymentDate.UTC()
	}

	var out *PaymentDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		customer, err := load(ctx, txRepo, id, true)
		if err != nil {
			return err
		}

		payment := &models.CustomerPayment{
			CustomerID: customer.ID,
			Amount:     amount,
			PaidAt:     paidAt,
			Note:       trimmedOrNil(input.Note),
			CreatedBy:  actor.ID(),
		}
		if err := txRepo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert customer payment")
		}

		customer.TotalDue = decimal.Max(decimal.Zero, customer.TotalDue.Sub(amount))
		customer.LastPayment = amount
		customer.LastPaymentDate = &paidAt
		if err := txRepo.Save(ctx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer due")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCustomerPaymentRecorded,
			AggregateType: enums.AggregateCustomer,
			AggregateID:   customer.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.CustomerPaymentRecordedEvent{
				CustomerID: customer.ID,
				PaymentID:  payment.ID,
				Amount:     amount,
				TotalDue:   customer.TotalDue,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment event")
		}

		out = &PaymentDTO{
			ID:         payment.ID,
			CustomerID: customer.ID,
			Amount:     amount,
			PaidAt:     paidAt,
			Note:       payment.Note,
			TotalDue:   customer.TotalDue,
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionPayment,
			Entity:      activitylog.EntityCustomer,
			EntityID:    customer.ID,
			Description: fmt.Sprintf("received %s from %s", amount.StringFixed(2), customer.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Record("customer_payment", amount)
	dashboard.Invalidate(ctx, s.cache)
	return out, nil
}

// load fetches a customer, locking it when lock is set.
func load(ctx context.Context, r *Repository, id uuid.UUID, lock bool) (*models.Customer, error) {
	var (
		customer *models.Customer
		err      error
	)
	if lock {
		customer, err = r.FindForUpdate(ctx, id)
	} else {
		customer, err = r.FindByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

// Lock loads a customer for update inside the caller's transaction.
func Lock(ctx context.Context, r *Repository, id uuid.UUID) (*models.Customer, error) {
	return load(ctx, r, id, true)
}
