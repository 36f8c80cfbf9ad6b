package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/calculator"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// ProductDTO is the API shape of a product. AltStock renders CurrentStock
// in the category's display unit (mon, kg or peti).
type ProductDTO struct {
	ID              uuid.UUID          `json:"id"`
	Name            string             `json:"name"`
	UnitCategory    enums.UnitCategory `json:"unitCategory"`
	BaseUnit        string             `json:"baseUnit"`
	CurrentStock    decimal.Decimal    `json:"currentStock"`
	CurrentStockBag int                `json:"currentStockBag"`
	AltStock        string             `json:"altStock"`
	AltUnit         string             `json:"altUnit"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

type CreateProductInput struct {
	Name            string           `json:"name" validate:"required,max=120"`
	UnitCategory    string           `json:"unitCategory" validate:"required"`
	CurrentStock    *decimal.Decimal `json:"currentStock" validate:"omitempty,gte=0"`
	CurrentStockBag *int             `json:"currentStockBag" validate:"omitempty,min=0"`
}

// UpdateProductInput renames or recategorizes a product. Stock moves only
// through purchases, sales, returns and stock adjustments.
type UpdateProductInput struct {
	Name         *string `json:"name" validate:"omitempty,max=120"`
	UnitCategory *string `json:"unitCategory"`
}

// StockAdjustment is a manual correction in base units and bags.
type StockAdjustment struct {
	Delta    decimal.Decimal `json:"delta"`
	BagDelta int             `json:"bagDelta"`
	Reason   *string         `json:"reason" validate:"omitempty,max=255"`
}

type ListFilter struct {
	Search       string
	UnitCategory *enums.UnitCategory
}

func FromModel(m *models.Product) *ProductDTO {
	if m == nil {
		return nil
	}
	return &ProductDTO{
		ID:              m.ID,
		Name:            m.Name,
		UnitCategory:    m.UnitCategory,
		BaseUnit:        m.UnitCategory.BaseUnit(),
		CurrentStock:    m.CurrentStock,
		CurrentStockBag: m.CurrentStockBag,
		AltStock:        calculator.Format(calculator.AltQuantity(m.UnitCategory, m.CurrentStock)),
		AltUnit:         m.UnitCategory.AltUnit(),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// Ref is the calculator view of a product.
func Ref(m *models.Product) *calculator.ProductRef {
	return &calculator.ProductRef{ID: m.ID.String(), Name: m.Name, Category: m.UnitCategory}
}
