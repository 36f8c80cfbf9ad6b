package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the identity and audit columns shared by every table.
// IDs are assigned in Go so the same models work against sqlite.
type Base struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns a random UUID when the caller did not set one.
func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every model in dependency order, for AutoMigrate in tests and
// dev bootstrap.
func All() []any {
	return []any{
		&User{},
		&Customer{},
		&Supplier{},
		&Product{},
		&Purchase{},
		&PurchasePayment{},
		&Lot{},
		&Sale{},
		&SaleLine{},
		&CustomerPayment{},
		&Return{},
		&ActivityLog{},
		&Counter{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
