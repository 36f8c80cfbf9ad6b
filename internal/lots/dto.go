package lots

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/calculator"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// LotDTO is the API shape of a lot. Field names keep the "lat" spelling
// the dashboard uses.
type LotDTO struct {
	ID              uuid.UUID          `json:"id"`
	LatNumber       string             `json:"latNumber"`
	PurchaseID      uuid.UUID          `json:"purchaseId"`
	SupplierID      uuid.UUID          `json:"supplierId"`
	ProductID       uuid.UUID          `json:"productId"`
	ProductName     string             `json:"productName,omitempty"`
	UnitCategory    enums.UnitCategory `json:"unitCategory,omitempty"`
	Quantity        decimal.Decimal    `json:"quantity"`
	PendingQuantity decimal.Decimal    `json:"pendingQuantity"`
	PendingAlt      string             `json:"pendingAlt"`
	PendingBag      int                `json:"pendingBag"`
	ReceivedAt      time.Time          `json:"receivedAt"`
}

// SearchInput mirrors the dashboard's lot lookup.
type SearchInput struct {
	Product     *uuid.UUID `json:"product"`
	PendingOnly bool       `json:"pendingOnly"`
	Page        int        `json:"page"`
	Limit       int        `json:"limit"`
}

func FromModel(m *models.Lot) *LotDTO {
	if m == nil {
		return nil
	}
	out := &LotDTO{
		ID:              m.ID,
		LatNumber:       m.Number,
		PurchaseID:      m.PurchaseID,
		SupplierID:      m.SupplierID,
		ProductID:       m.ProductID,
		Quantity:        m.Quantity,
		PendingQuantity: m.PendingQuantity,
		PendingBag:      m.PendingBag,
		ReceivedAt:      m.ReceivedAt,
	}
	if m.Product != nil {
		out.ProductName = m.Product.Name
		out.UnitCategory = m.Product.UnitCategory
		out.PendingAlt = calculator.Format(calculator.AltQuantity(m.Product.UnitCategory, m.PendingQuantity))
	}
	return out
}

// Ref is the calculator view of a lot; its pending quantity caps sale lines.
func Ref(m *models.Lot) *calculator.LotRef {
	return &calculator.LotRef{ID: m.ID.String(), Number: m.Number, Pending: m.PendingQuantity}
}
