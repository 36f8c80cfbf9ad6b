package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is a billed document. PreviousDue snapshots the customer's balance
// before the sale; TotalDue = PreviousDue + SaleDue.
type Sale struct {
	Base
	BillNo        string          `gorm:"column:bill_no;type:text;not null;uniqueIndex"`
	CustomerID    uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index"`
	SaleDate      time.Time       `gorm:"column:sale_date;not null;index"`
	PaymentMode   string          `gorm:"column:payment_mode;type:text;not null"`
	GrandTotal    decimal.Decimal `gorm:"column:grand_total;type:numeric(14,2);not null"`
	DiscountTotal decimal.Decimal `gorm:"column:discount_total;type:numeric(14,2);not null;default:0"`
	NetTotal      decimal.Decimal `gorm:"column:net_total;type:numeric(14,2);not null"`
	PaidTotal     decimal.Decimal `gorm:"column:paid_total;type:numeric(14,2);not null;default:0"`
	SaleDue       decimal.Decimal `gorm:"column:sale_due;type:numeric(14,2);not null"`
	PreviousDue   decimal.Decimal `gorm:"column:previous_due;type:numeric(14,2);not null;default:0"`
	TotalDue      decimal.Decimal `gorm:"column:total_due;type:numeric(14,2);not null"`
	DagImage      *string         `gorm:"column:dag_image"`
	Notes         *string         `gorm:"column:notes"`
	CreatedBy     *uuid.UUID      `gorm:"column:created_by;type:uuid"`

	Customer *Customer  `gorm:"foreignKey:CustomerID"`
	Lines    []SaleLine `gorm:"foreignKey:SaleID"`
}

// SaleLine is one product row of a sale. Quantity is in the product's base
// unit. ReturnedQuantity accumulates sale returns against the line.
type SaleLine struct {
	Base
	SaleID           uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	Position         int             `gorm:"column:position;not null"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	LotID            *uuid.UUID      `gorm:"column:lot_id;type:uuid;index"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Discount         decimal.Decimal `gorm:"column:discount;type:numeric(14,2);not null;default:0"`
	TotalAmount      decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null"`
	PaidOnline       decimal.Decimal `gorm:"column:paid_online;type:numeric(14,2);not null;default:0"`
	PaidOffline      decimal.Decimal `gorm:"column:paid_offline;type:numeric(14,2);not null;default:0"`
	DueAmount        decimal.Decimal `gorm:"column:due_amount;type:numeric(14,2);not null"`
	TotalBags        int             `gorm:"column:total_bags;not null;default:0"`
	ReturnedQuantity decimal.Decimal `gorm:"column:returned_quantity;type:numeric(14,3);not null;default:0"`
	Note             *string         `gorm:"column:note"`

	Product *Product `gorm:"foreignKey:ProductID"`
	Lot     *Lot     `gorm:"foreignKey:LotID"`
}
