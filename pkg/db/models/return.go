package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// Return records goods coming back against a sale line or a purchase.
type Return struct {
	Base
	Type       enums.ReturnType `gorm:"column:type;type:text;not null;index"`
	SaleID     *uuid.UUID       `gorm:"column:sale_id;type:uuid;index"`
	SaleLineID *uuid.UUID       `gorm:"column:sale_line_id;type:uuid"`
	PurchaseID *uuid.UUID       `gorm:"column:purchase_id;type:uuid;index"`
	ProductID  uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	LotID      *uuid.UUID       `gorm:"column:lot_id;type:uuid"`
	Quantity   decimal.Decimal  `gorm:"column:quantity;type:numeric(14,3);not null"`
	Amount     decimal.Decimal  `gorm:"column:amount;type:numeric(14,2);not null"`
	Reason     *string          `gorm:"column:reason"`
	CreatedBy  *uuid.UUID       `gorm:"column:created_by;type:uuid"`

	Product *Product `gorm:"foreignKey:ProductID"`
}
