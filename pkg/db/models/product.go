package models

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// Product is a stocked item. CurrentStock is in the category's base unit
// (kg, bags or trays); CurrentStockBag counts physical bags for KG goods.
type Product struct {
	Base
	Name            string             `gorm:"column:name;type:text;not null;uniqueIndex"`
	UnitCategory    enums.UnitCategory `gorm:"column:unit_category;type:text;not null"`
	CurrentStock    decimal.Decimal    `gorm:"column:current_stock;type:numeric(14,3);not null;default:0"`
	CurrentStockBag int                `gorm:"column:current_stock_bag;not null;default:0"`
}
