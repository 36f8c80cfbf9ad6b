package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot is the stock received by one purchase. Sales draw PendingQuantity down.
type Lot struct {
	Base
	Number          string          `gorm:"column:number;type:text;not null;uniqueIndex"`
	PurchaseID      uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null;uniqueIndex"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	SupplierID      uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null"`
	Quantity        decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	PendingQuantity decimal.Decimal `gorm:"column:pending_quantity;type:numeric(14,3);not null"`
	PendingBag      int             `gorm:"column:pending_bag;not null;default:0"`
	ReceivedAt      time.Time       `gorm:"column:received_at;not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}
