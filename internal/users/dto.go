package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Role        enums.UserRole `json:"role"`
	Phone       *string        `json:"phone,omitempty"`
	WhatsApp    *string        `json:"whatsapp,omitempty"`
	Address     *string        `json:"address,omitempty"`
	IsActive    bool           `json:"isActive"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// CreateUserInput is the validated payload for a new user.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     enums.UserRole
	Phone    *string
	WhatsApp *string
	Address  *string
}

// UpdateUserInput carries optional changes; nil fields are left untouched.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *enums.UserRole
	Phone    *string
	WhatsApp *string
	Address  *string
	IsActive *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Phone:       u.Phone,
		WhatsApp:    u.WhatsApp,
		Address:     u.Address,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// NormalizeEmail lowercases and trims an address; emails are unique
// case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c CreateUserInput) toModel(hash string) *models.User {
	return &models.User{
		Name:         strings.TrimSpace(c.Name),
		Email:        NormalizeEmail(c.Email),
		PasswordHash: hash,
		Role:         c.Role,
		Phone:        trimmedOrNil(c.Phone),
		WhatsApp:     trimmedOrNil(c.WhatsApp),
		Address:      trimmedOrNil(c.Address),
		IsActive:     true,
	}
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
