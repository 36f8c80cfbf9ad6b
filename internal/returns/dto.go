package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/calculator"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// CreateReturnInput records goods coming back. Sale returns name the sale
// and either the line or the product (plus lot) it was sold on. Purchase
// returns name the purchase. Quantity is in the product's base unit.
type CreateReturnInput struct {
	Type       enums.ReturnType `json:"type"`
	SaleID     *uuid.UUID       `json:"saleId"`
	SaleLineID *uuid.UUID       `json:"saleLineId"`
	PurchaseID *uuid.UUID       `json:"purchaseId"`
	Product    *uuid.UUID       `json:"product"`
	Lot        *uuid.UUID       `json:"lot"`
	Quantity   calculator.Entry `json:"quantity"`
	Reason     *string          `json:"reason"`
}

type UpdateReturnInput struct {
	Reason *string `json:"reason"`
}

type ListFilter struct {
	Type       *enums.ReturnType
	SaleID     *uuid.UUID
	PurchaseID *uuid.UUID
}

type ProductDTO struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	UnitCategory enums.UnitCategory `json:"unitCategory"`
}

type ReturnDTO struct {
	ID              uuid.UUID        `json:"id"`
	Type            enums.ReturnType `json:"type"`
	SaleID          *uuid.UUID       `json:"saleId,omitempty"`
	SaleLineID      *uuid.UUID       `json:"saleLineId,omitempty"`
	PurchaseID      *uuid.UUID       `json:"purchaseId,omitempty"`
	Product         ProductDTO       `json:"product"`
	LotID           *uuid.UUID       `json:"lot,omitempty"`
	Quantity        decimal.Decimal  `json:"quantity"`
	DisplayQuantity string           `json:"displayQuantity"`
	Amount          decimal.Decimal  `json:"amount"`
	Reason          *string          `json:"reason,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

func FromModel(m *models.Return) *ReturnDTO {
	if m == nil {
		return nil
	}
	out := &ReturnDTO{
		ID:         m.ID,
		Type:       m.Type,
		SaleID:     m.SaleID,
		SaleLineID: m.SaleLineID,
		PurchaseID: m.PurchaseID,
		Product:    ProductDTO{ID: m.ProductID},
		LotID:      m.LotID,
		Quantity:   m.Quantity,
		Amount:     m.Amount,
		Reason:     m.Reason,
		CreatedAt:  m.CreatedAt,
	}
	if m.Product != nil {
		out.Product.Name = m.Product.Name
		out.Product.UnitCategory = m.Product.UnitCategory
		out.DisplayQuantity = calculator.Format(calculator.AltQuantity(m.Product.UnitCategory, m.Quantity))
	}
	return out
}
