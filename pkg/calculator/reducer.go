package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// Field names an editable input of a line.
type Field string

const (
	FieldQuantity        Field = "quantity"
	FieldDisplayQuantity Field = "displayQuantity"
	FieldBagQuantity     Field = "bagQuantity"
	FieldUnitPrice       Field = "unitPrice"
	FieldUnitPriceMon    Field = "unitPriceMon"
	FieldUnitPriceKG     Field = "unitPriceKG"
	FieldUnitPriceBag    Field = "unitPriceBag"
	FieldUnitPricePeti   Field = "unitPricePeti"
	FieldDiscount        Field = "discount"
	FieldPaidOnline      Field = "paidOnline"
	FieldPaidOffline     Field = "paidOffline"
	FieldPaidAmount      Field = "paidAmount"
	FieldTotalBags       Field = "totalBags"
)

type fieldFamily int

const (
	familyUnknown fieldFamily = iota
	familyQuantity
	familyPrice
	familyAmount
	familyAnnotation
)

func (f Field) family() fieldFamily {
	switch f {
	case FieldQuantity, FieldDisplayQuantity, FieldBagQuantity:
		return familyQuantity
	case FieldUnitPrice, FieldUnitPriceMon, FieldUnitPriceKG, FieldUnitPriceBag, FieldUnitPricePeti:
		return familyPrice
	case FieldDiscount, FieldPaidOnline, FieldPaidOffline, FieldPaidAmount:
		return familyAmount
	case FieldTotalBags:
		return familyAnnotation
	default:
		return familyUnknown
	}
}

// IsValid reports whether the value is a known Field.
func (f Field) IsValid() bool {
	return f.family() != familyUnknown
}

// ParseField converts raw input into a Field.
func ParseField(value string) (Field, error) {
	f := Field(value)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid field %q", value)
	}
	return f, nil
}

// supports reports whether the field exists on a line of the category.
func (f Field) supports(category enums.UnitCategory) bool {
	switch f {
	case FieldQuantity, FieldUnitPrice:
		return category.IsValid()
	case FieldDisplayQuantity:
		return category == enums.UnitCategoryKG || category == enums.UnitCategoryTray
	case FieldBagQuantity, FieldUnitPriceBag:
		return category == enums.UnitCategoryBag
	case FieldUnitPriceMon, FieldUnitPriceKG, FieldTotalBags:
		return category == enums.UnitCategoryKG
	case FieldUnitPricePeti:
		return category == enums.UnitCategoryTray
	default:
		return false
	}
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// SelectProduct replaces the product and resets every input of the line.
type SelectProduct struct {
	Product ProductRef
}

// SelectLot attaches a stock lot. An existing quantity above the lot's
// pending quantity is clamped.
type SelectLot struct {
	Lot LotRef
}

// ClearLot detaches the lot and clears quantity and price inputs.
type ClearLot struct{}

// Edit sets one field to the raw text typed by the operator.
type Edit struct {
	Field Field
	Value string
}

func (SelectProduct) isEvent() {}
func (SelectLot) isEvent()     {}
func (ClearLot) isEvent()      {}
func (Edit) isEvent()          {}

// Reduce applies an event to a line and returns the next line. The input
// line is not modified. Rejected edits return the line unchanged.
func Reduce(line Line, event Event) Line {
	switch e := event.(type) {
	case SelectProduct:
		return Recalculate(NewLine(&e.Product, line.Mode))
	case SelectLot:
		lot := e.Lot
		next := line
		next.Lot = &lot
		if next.Units != nil && next.Quantity != "" && next.QuantityValue().GreaterThan(lot.Pending) {
			next = setQuantity(next, FieldQuantity, lot.Pending.String())
		}
		return Recalculate(next)
	case ClearLot:
		next := line
		next.Lot = nil
		next = clearQuantity(next)
		next = clearPrices(next)
		return Recalculate(next)
	case Edit:
		return edit(line, e.Field, e.Value)
	default:
		return line
	}
}

// ReduceAll folds events over a line in order.
func ReduceAll(line Line, events ...Event) Line {
	for _, event := range events {
		line = Reduce(line, event)
	}
	return line
}

func edit(line Line, field Field, value string) Line {
	family := field.family()
	switch family {
	case familyUnknown:
		return line
	case familyAnnotation:
		kg, ok := line.Units.(KGUnits)
		if !ok {
			return line
		}
		kg.ExtraBags = digitsOnly(value)
		next := line
		next.Units = kg
		return next
	}

	if !ValidEntry(value, family != familyAmount) {
		return line
	}

	switch family {
	case familyQuantity:
		if line.Units == nil || !field.supports(line.Category()) {
			return line
		}
		return Recalculate(setQuantity(line, field, value))
	case familyPrice:
		if line.Units == nil || !field.supports(line.Category()) {
			return line
		}
		return Recalculate(setPrice(line, field, value))
	default:
		next, ok := setAmount(line, field, value)
		if !ok {
			return line
		}
		return Recalculate(next)
	}
}

func setQuantity(line Line, field Field, raw string) Line {
	if raw == "" {
		return clearQuantity(line)
	}

	category := line.Category()
	entered := SumEntry(raw)
	base := entered
	if field != FieldQuantity {
		base = BaseFromAlt(category, entered)
	}

	rewrite := IsSum(raw)
	if line.Lot != nil && base.GreaterThan(line.Lot.Pending) {
		base = line.Lot.Pending
		rewrite = true
	}

	// The base quantity keeps full precision; only the display is rounded.
	show := func(target Field, value decimal.Decimal) string {
		if target == field && !rewrite {
			return raw
		}
		return Format(value)
	}

	next := line
	next.Quantity = raw
	if field != FieldQuantity || rewrite {
		next.Quantity = base.String()
	}
	alt := AltQuantity(category, base)
	switch u := next.Units.(type) {
	case KGUnits:
		u.Mon = show(FieldDisplayQuantity, alt)
		next.Units = u
	case BagUnits:
		u.Kg = show(FieldBagQuantity, alt)
		next.Units = u
	case TrayUnits:
		u.Peti = show(FieldDisplayQuantity, alt)
		next.Units = u
	}
	return next
}

func clearQuantity(line Line) Line {
	line.Quantity = ""
	switch u := line.Units.(type) {
	case KGUnits:
		u.Mon = ""
		line.Units = u
	case BagUnits:
		u.Kg = ""
		line.Units = u
	case TrayUnits:
		u.Peti = ""
		line.Units = u
	}
	return line
}

// setPrice applies the price rules. Mon and kg prices convert by 40 in both
// directions while bag and peti prices are whole-unit prices and pass through.
func setPrice(line Line, field Field, raw string) Line {
	if raw == "" {
		return clearPrices(line)
	}

	entered := SumEntry(raw)
	keepRaw := !IsSum(raw)
	show := func(target Field, value decimal.Decimal) string {
		if target == field && keepRaw {
			return raw
		}
		return Format(value)
	}

	next := line
	switch u := next.Units.(type) {
	case KGUnits:
		perKg := entered
		if field == FieldUnitPriceMon {
			perKg = entered.Div(KgPerMon)
			u.PricePerMon = show(FieldUnitPriceMon, entered)
		} else {
			u.PricePerMon = Format(entered.Mul(KgPerMon))
		}
		u.PricePerKG = show(FieldUnitPriceKG, perKg)
		next.UnitPrice = show(FieldUnitPrice, perKg)
		next.Units = u
	case BagUnits:
		u.PricePerBag = show(FieldUnitPriceBag, entered)
		next.UnitPrice = show(FieldUnitPrice, entered)
		next.Units = u
	case TrayUnits:
		u.PricePerPeti = show(FieldUnitPricePeti, entered)
		next.UnitPrice = show(FieldUnitPrice, entered)
		next.Units = u
	}
	return next
}

func clearPrices(line Line) Line {
	line.UnitPrice = ""
	switch u := line.Units.(type) {
	case KGUnits:
		u.PricePerMon = ""
		u.PricePerKG = ""
		line.Units = u
	case BagUnits:
		u.PricePerBag = ""
		line.Units = u
	case TrayUnits:
		u.PricePerPeti = ""
		line.Units = u
	}
	return line
}

func setAmount(line Line, field Field, raw string) (Line, bool) {
	switch field {
	case FieldDiscount:
		line.Discount = raw
	case FieldPaidOnline:
		if line.Mode == SinglePayment {
			return line, false
		}
		line.PaidOnline = raw
	case FieldPaidOffline:
		if line.Mode == SinglePayment {
			return line, false
		}
		line.PaidOffline = raw
	case FieldPaidAmount:
		if line.Mode != SinglePayment {
			return line, false
		}
		line.Paid = raw
	default:
		return line, false
	}
	return line, true
}
