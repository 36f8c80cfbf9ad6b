package suppliers

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
)

type SupplierDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateSupplierInput struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Address *string `json:"address" validate:"omitempty,max=255"`
}

type UpdateSupplierInput struct {
	Name    *string `json:"name" validate:"omitempty,max=120"`
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Address *string `json:"address" validate:"omitempty,max=255"`
}

func FromModel(m *models.Supplier) *SupplierDTO {
	if m == nil {
		return nil
	}
	return &SupplierDTO{
		ID:        m.ID,
		Name:      m.Name,
		Phone:     m.Phone,
		Address:   m.Address,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
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
