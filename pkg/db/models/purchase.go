package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase is a stock intake from a supplier. PaidAmount is the sum of its
// payments and DueAmount the remainder.
type Purchase struct {
	Base
	SupplierID   uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Discount     decimal.Decimal `gorm:"column:discount;type:numeric(14,2);not null;default:0"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null"`
	PaidAmount   decimal.Decimal `gorm:"column:paid_amount;type:numeric(14,2);not null;default:0"`
	DueAmount    decimal.Decimal `gorm:"column:due_amount;type:numeric(14,2);not null"`
	TotalBags    int             `gorm:"column:total_bags;not null;default:0"`
	PurchaseDate time.Time       `gorm:"column:purchase_date;not null;index"`
	Notes        *string         `gorm:"column:notes"`
	CreatedBy    *uuid.UUID      `gorm:"column:created_by;type:uuid"`

	Supplier *Supplier         `gorm:"foreignKey:SupplierID"`
	Product  *Product          `gorm:"foreignKey:ProductID"`
	Lot      *Lot              `gorm:"foreignKey:PurchaseID"`
	Payments []PurchasePayment `gorm:"foreignKey:PurchaseID"`
}

// PurchasePayment is one installment paid to the supplier.
type PurchasePayment struct {
	Base
	PurchaseID uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	PaidAt     time.Time       `gorm:"column:paid_at;not null"`
}
