// Package payloads holds the versioned data blocks carried inside outbox
// envelopes. Amounts are decimals encoded as JSON strings.
package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// SaleCreatedEvent is emitted once a sale and its stock movements commit.
type SaleCreatedEvent struct {
	SaleID     uuid.UUID       `json:"sale_id"`
	BillNo     string          `json:"bill_no"`
	CustomerID uuid.UUID       `json:"customer_id"`
	SaleDate   time.Time       `json:"sale_date"`
	LineCount  int             `json:"line_count"`
	NetTotal   decimal.Decimal `json:"net_total"`
	PaidTotal  decimal.Decimal `json:"paid_total"`
	SaleDue    decimal.Decimal `json:"sale_due"`
	TotalDue   decimal.Decimal `json:"total_due"`
}

// SaleDeletedEvent is emitted when a sale is removed and its stock restored.
type SaleDeletedEvent struct {
	SaleID     uuid.UUID       `json:"sale_id"`
	BillNo     string          `json:"bill_no"`
	CustomerID uuid.UUID       `json:"customer_id"`
	SaleDue    decimal.Decimal `json:"sale_due"`
}

// PurchaseCreatedEvent is emitted with the lot opened by the purchase.
type PurchaseCreatedEvent struct {
	PurchaseID  uuid.UUID       `json:"purchase_id"`
	LotID       uuid.UUID       `json:"lot_id"`
	LotNumber   string          `json:"lot_number"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	DueAmount   decimal.Decimal `json:"due_amount"`
}

// PurchasePaymentAddedEvent is emitted per supplier installment.
type PurchasePaymentAddedEvent struct {
	PurchaseID uuid.UUID       `json:"purchase_id"`
	PaymentID  uuid.UUID       `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	DueAmount  decimal.Decimal `json:"due_amount"`
}

// PurchaseDeletedEvent is emitted when an unused purchase is removed.
type PurchaseDeletedEvent struct {
	PurchaseID uuid.UUID `json:"purchase_id"`
	LotNumber  string    `json:"lot_number"`
}

// ReturnCreatedEvent is emitted for sale and purchase returns.
type ReturnCreatedEvent struct {
	ReturnID  uuid.UUID        `json:"return_id"`
	Type      enums.ReturnType `json:"type"`
	ProductID uuid.UUID        `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Amount    decimal.Decimal  `json:"amount"`
}

// CustomerPaymentRecordedEvent is emitted when a customer settles dues.
type CustomerPaymentRecordedEvent struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	PaymentID  uuid.UUID       `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	TotalDue   decimal.Decimal `json:"total_due"`
}
