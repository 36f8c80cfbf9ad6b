package customers

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
)

// CustomerDTO is the API shape of a customer.
type CustomerDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Phone           *string         `json:"phone,omitempty"`
	WhatsApp        *string         `json:"whatsApp,omitempty"`
	Address         *string         `json:"address,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	TotalDue        decimal.Decimal `json:"totalDue"`
	LastPayment     decimal.Decimal `json:"lastPayment"`
	LastPaymentDate *time.Time      `json:"lastPaymentDate,omitempty"`
	LastShop        *time.Time      `json:"lastShop,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CreateCustomerInput opens a customer account. TotalDue carries an opening
// balance from before the system was in use.
type CreateCustomerInput struct {
	Name     string           `json:"name" validate:"required,max=120"`
	Phone    *string          `json:"phone" validate:"omitempty,max=32"`
	WhatsApp *string          `json:"whatsApp" validate:"omitempty,max=32"`
	Address  *string          `json:"address" validate:"omitempty,max=255"`
	Notes    *string          `json:"notes" validate:"omitempty,max=1000"`
	TotalDue *decimal.Decimal `json:"totalDue"`
}

// UpdateCustomerInput edits contact data. Balances only move through sales,
// returns and payments.
type UpdateCustomerInput struct {
	Name     *string `json:"name" validate:"omitempty,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	WhatsApp *string `json:"whatsApp" validate:"omitempty,max=32"`
	Address  *string `json:"address" validate:"omitempty,max=255"`
	Notes    *string `json:"notes" validate:"omitempty,max=1000"`
}

// PaymentInput settles part of a customer's due.
type PaymentInput struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentDate *time.Time      `json:"paymentDate"`
	Note        *string         `json:"note" validate:"omitempty,max=255"`
}

// PaymentDTO is the API shape of a recorded payment.
type PaymentDTO struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAt     time.Time       `json:"paidAt"`
	Note       *string         `json:"note,omitempty"`
	TotalDue   decimal.Decimal `json:"totalDue"`
}

// SaleSummaryDTO is one row of a customer's sales history.
type SaleSummaryDTO struct {
	ID          uuid.UUID       `json:"id"`
	BillNo      string          `json:"billNo"`
	SaleDate    time.Time       `json:"saleDate"`
	NetTotal    decimal.Decimal `json:"netTotal"`
	PaidTotal   decimal.Decimal `json:"paidTotal"`
	SaleDue     decimal.Decimal `json:"saleDue"`
	PreviousDue decimal.Decimal `json:"previousDue"`
	TotalDue    decimal.Decimal `json:"totalDue"`
	Notes       *string         `json:"notes,omitempty"`
}

// ListFilter narrows the customer listing by a name or phone fragment.
type ListFilter struct {
	Search string
}

func FromModel(m *models.Customer) *CustomerDTO {
	if m == nil {
		return nil
	}
	return &CustomerDTO{
		ID:              m.ID,
		Name:            m.Name,
		Phone:           m.Phone,
		WhatsApp:        m.WhatsApp,
		Address:         m.Address,
		Notes:           m.Notes,
		TotalDue:        m.TotalDue,
		LastPayment:     m.LastPayment,
		LastPaymentDate: m.LastPaymentDate,
		LastShop:        m.LastShop,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func saleSummary(m models.Sale) SaleSummaryDTO {
	return SaleSummaryDTO{
		ID:          m.ID,
		BillNo:      m.BillNo,
		SaleDate:    m.SaleDate,
		NetTotal:    m.NetTotal,
		PaidTotal:   m.PaidTotal,
		SaleDue:     m.SaleDue,
		PreviousDue: m.PreviousDue,
		TotalDue:    m.TotalDue,
		Notes:       m.Notes,
	}
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
