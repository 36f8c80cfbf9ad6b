package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/internal/lots"
	"github.com/angelmondragon/tradedesk-backend/pkg/calculator"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// PaymentInput is one installment in a purchase request.
type PaymentInput struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate *time.Time      `json:"paymentDate"`
}

// CreatePurchaseInput is the purchase form. The line fields are the
// calculator's; paidAmount carries the initial installments instead of a
// single paid entry.
type CreatePurchaseInput struct {
	Supplier uuid.UUID `json:"supplier"`
	Product  uuid.UUID `json:"product"`
	calculator.LineInput
	Payments     []PaymentInput `json:"paidAmount"`
	PurchaseDate *time.Time     `json:"purchaseDate"`
	TotalBag     *int           `json:"totalBag"`
	Notes        *string        `json:"notes"`
}

// UpdatePurchaseInput edits a purchase. Empty line fields keep their
// stored values. Payments are appended through AddPayment only.
type UpdatePurchaseInput struct {
	Supplier *uuid.UUID `json:"supplier"`
	calculator.LineInput
	PurchaseDate *time.Time `json:"purchaseDate"`
	TotalBag     *int       `json:"totalBag"`
	Notes        *string    `json:"notes"`
}

// ListFilter narrows a purchase listing. EndDate is inclusive.
type ListFilter struct {
	Supplier  *uuid.UUID
	Product   *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}

type PartyDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ProductDTO struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	UnitCategory enums.UnitCategory `json:"unitCategory"`
}

type PaymentDTO struct {
	ID     uuid.UUID       `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	PaidAt time.Time       `json:"paymentDate"`
}

// PurchaseDTO is the API shape of a purchase. AltQuantity and AltPrice
// are the mon, kg-for-bag or peti equivalents.
type PurchaseDTO struct {
	ID           uuid.UUID       `json:"id"`
	Supplier     PartyDTO        `json:"supplier"`
	Product      ProductDTO      `json:"product"`
	Quantity     decimal.Decimal `json:"quantity"`
	AltQuantity  string          `json:"displayQuantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	AltPrice     decimal.Decimal `json:"altPrice"`
	Discount     decimal.Decimal `json:"discount"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	PaidAmount   decimal.Decimal `json:"paidAmount"`
	DueAmount    decimal.Decimal `json:"dueAmount"`
	TotalBag     int             `json:"totalBag"`
	PurchaseDate time.Time       `json:"purchaseDate"`
	Notes        *string         `json:"notes,omitempty"`
	Lat          *lots.LotDTO    `json:"lat,omitempty"`
	Payments     []PaymentDTO    `json:"payments"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func FromModel(m *models.Purchase) *PurchaseDTO {
	if m == nil {
		return nil
	}
	out := &PurchaseDTO{
		ID:           m.ID,
		Supplier:     PartyDTO{ID: m.SupplierID},
		Product:      ProductDTO{ID: m.ProductID},
		Quantity:     m.Quantity,
		UnitPrice:    m.UnitPrice,
		AltPrice:     m.UnitPrice,
		Discount:     m.Discount,
		TotalAmount:  m.TotalAmount,
		PaidAmount:   m.PaidAmount,
		DueAmount:    m.DueAmount,
		TotalBag:     m.TotalBags,
		PurchaseDate: m.PurchaseDate,
		Notes:        m.Notes,
		Payments:     make([]PaymentDTO, 0, len(m.Payments)),
		CreatedAt:    m.CreatedAt,
	}
	if m.Supplier != nil {
		out.Supplier.Name = m.Supplier.Name
	}
	if m.Product != nil {
		category := m.Product.UnitCategory
		out.Product.Name = m.Product.Name
		out.Product.UnitCategory = category
		out.AltQuantity = calculator.Format(calculator.AltQuantity(category, m.Quantity))
		out.AltPrice = calculator.Round2(calculator.AltPrice(category, m.UnitPrice))
	}
	if m.Lot != nil {
		lot := *m.Lot
		lot.Product = m.Product
		out.Lat = lots.FromModel(&lot)
	}
	for _, p := range m.Payments {
		out.Payments = append(out.Payments, PaymentDTO{ID: p.ID, Amount: p.Amount, PaidAt: p.PaidAt})
	}
	return out
}
