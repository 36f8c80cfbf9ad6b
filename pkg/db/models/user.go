package models

import (
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// User is a dashboard operator.
type User struct {
	Base
	Name         string         `gorm:"column:name;type:text;not null"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null"`
	Phone        *string        `gorm:"column:phone"`
	WhatsApp     *string        `gorm:"column:whatsapp"`
	Address      *string        `gorm:"column:address"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
}
