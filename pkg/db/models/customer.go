package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer buys on credit; TotalDue is the running balance owed.
type Customer struct {
	Base
	Name            string          `gorm:"column:name;type:text;not null;index"`
	Phone           *string         `gorm:"column:phone"`
	WhatsApp        *string         `gorm:"column:whatsapp"`
	Address         *string         `gorm:"column:address"`
	Notes           *string         `gorm:"column:notes"`
	TotalDue        decimal.Decimal `gorm:"column:total_due;type:numeric(14,2);not null;default:0"`
	LastPayment     decimal.Decimal `gorm:"column:last_payment;type:numeric(14,2);not null;default:0"`
	LastPaymentDate *time.Time      `gorm:"column:last_payment_date"`
	LastShop        *time.Time      `gorm:"column:last_shop"`
}

// CustomerPayment records money received from a customer outside of a sale.
type CustomerPayment struct {
	Base
	CustomerID uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	PaidAt     time.Time       `gorm:"column:paid_at;not null"`
	Note       *string         `gorm:"column:note"`
	CreatedBy  *uuid.UUID      `gorm:"column:created_by;type:uuid"`
}
