package calculator

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// PaymentMode selects which paid fields a line carries.
type PaymentMode string

const (
	// SplitPayment tracks online and offline payments separately (sales).
	SplitPayment PaymentMode = "split"
	// SinglePayment tracks one paid amount (purchases).
	SinglePayment PaymentMode = "single"
)

// ProductRef is the catalog data a line needs to pick its conversion rules.
type ProductRef struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Category enums.UnitCategory `json:"unitCategory"`
}

// LotRef is the stock lot a line draws from. Pending is the quantity still
// available in base units and caps the line quantity.
type LotRef struct {
	ID      string          `json:"id"`
	Number  string          `json:"latNumber"`
	Pending decimal.Decimal `json:"pendingQuantity"`
}

// Units holds the category specific display fields of a line.
type Units interface {
	Category() enums.UnitCategory
}

// KGUnits are the extra fields of a KG line. ExtraBags is a free annotation
// entered by the operator and is never derived from the quantity.
type KGUnits struct {
	Mon         string
	PricePerMon string
	PricePerKG  string
	ExtraBags   string
}

// Category implements Units.
func (KGUnits) Category() enums.UnitCategory { return enums.UnitCategoryKG }

// BagUnits are the extra fields of a BAG line. Kg is the kilogram
// equivalent of the bag count.
type BagUnits struct {
	Kg          string
	PricePerBag string
}

// Category implements Units.
func (BagUnits) Category() enums.UnitCategory { return enums.UnitCategoryBag }

// TrayUnits are the extra fields of a TRAY line.
type TrayUnits struct {
	Peti         string
	PricePerPeti string
}

// Category implements Units.
func (TrayUnits) Category() enums.UnitCategory { return enums.UnitCategoryTray }

// NewUnits returns the empty variant for a category, or nil when the
// category is unknown.
func NewUnits(category enums.UnitCategory) Units {
	switch category {
	case enums.UnitCategoryKG:
		return KGUnits{}
	case enums.UnitCategoryBag:
		return BagUnits{}
	case enums.UnitCategoryTray:
		return TrayUnits{}
	default:
		return nil
	}
}

// Line is the editable state of one sale or purchase line item. Quantity is
// in base units and UnitPrice is per base unit. Total and Due are derived on
// every change and must not be set directly.
type Line struct {
	Product     *ProductRef
	Lot         *LotRef
	Mode        PaymentMode
	Quantity    string
	UnitPrice   string
	Discount    string
	PaidOnline  string
	PaidOffline string
	Paid        string
	Units       Units

	Total decimal.Decimal
	Due   decimal.Decimal
}

// NewLine returns an empty line for the product. A nil product yields a line
// that only accepts amount edits until a product is selected.
func NewLine(product *ProductRef, mode PaymentMode) Line {
	if mode != SinglePayment {
		mode = SplitPayment
	}
	line := Line{Mode: mode}
	if product != nil {
		p := *product
		line.Product = &p
		line.Units = NewUnits(p.Category)
	}
	return line
}

// Category returns the unit category of the line, or "" when no product is
// loaded yet.
func (l Line) Category() enums.UnitCategory {
	if l.Units == nil {
		return ""
	}
	return l.Units.Category()
}

// QuantityValue parses the base quantity.
func (l Line) QuantityValue() decimal.Decimal { return SumEntry(l.Quantity) }

// UnitPriceValue parses the price per base unit.
func (l Line) UnitPriceValue() decimal.Decimal { return SumEntry(l.UnitPrice) }

// DiscountValue parses the discount.
func (l Line) DiscountValue() decimal.Decimal { return SumEntry(l.Discount) }

// PaidValue returns everything paid against the line.
func (l Line) PaidValue() decimal.Decimal {
	if l.Mode == SinglePayment {
		return SumEntry(l.Paid)
	}
	return SumEntry(l.PaidOnline).Add(SumEntry(l.PaidOffline))
}

// AltQuantity returns the mon, kilogram or peti display for the line.
func (l Line) AltQuantity() string {
	switch u := l.Units.(type) {
	case KGUnits:
		return u.Mon
	case BagUnits:
		return u.Kg
	case TrayUnits:
		return u.Peti
	default:
		return ""
	}
}

// ExtraBags returns the bag annotation of a KG line.
func (l Line) ExtraBags() string {
	if u, ok := l.Units.(KGUnits); ok {
		return u.ExtraBags
	}
	return ""
}

// BagCount is the number of bags the line moves: the annotation on a KG
// line and the whole bag quantity, rounded up, on a BAG line.
func (l Line) BagCount() int {
	switch u := l.Units.(type) {
	case KGUnits:
		n, err := strconv.Atoi(u.ExtraBags)
		if err != nil {
			return 0
		}
		return n
	case BagUnits:
		return int(l.QuantityValue().Ceil().IntPart())
	default:
		return 0
	}
}

// Recalculate derives Total and Due from the current inputs:
// total = round2(qty*price - discount) and due = round2(total - paid).
func Recalculate(l Line) Line {
	discount := nonNegative(l.DiscountValue())
	l.Total = Round2(l.QuantityValue().Mul(l.UnitPriceValue()).Sub(discount))
	l.Due = Round2(l.Total.Sub(l.PaidValue()))
	return l
}

func (l Line) String() string {
	return fmt.Sprintf("line{category=%s qty=%q price=%q total=%s due=%s}",
		l.Category(), l.Quantity, l.UnitPrice, l.Total.StringFixed(2), l.Due.StringFixed(2))
}
