package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

var (
	// KgPerMon is the number of kilograms in one mon.
	KgPerMon = decimal.NewFromInt(40)
	// KgPerBag is the number of kilograms in one bag.
	KgPerBag = decimal.NewFromInt(50)
	// TraysPerPeti is the number of trays in one peti.
	TraysPerPeti = decimal.NewFromInt(7)
)

// ToMon converts kilograms to mon.
func ToMon(kg decimal.Decimal) decimal.Decimal {
	return kg.Div(KgPerMon)
}

// FromMon converts mon to kilograms.
func FromMon(mon decimal.Decimal) decimal.Decimal {
	return mon.Mul(KgPerMon)
}

// ToPeti converts a tray count to peti.
func ToPeti(trays decimal.Decimal) decimal.Decimal {
	return trays.Div(TraysPerPeti)
}

// FromPeti converts peti to a tray count.
func FromPeti(peti decimal.Decimal) decimal.Decimal {
	return peti.Mul(TraysPerPeti)
}

// BagsToKg returns the kilogram equivalent of a bag count.
func BagsToKg(bags decimal.Decimal) decimal.Decimal {
	return bags.Mul(KgPerBag)
}

// KgToBags returns the bag count holding the given kilograms.
func KgToBags(kg decimal.Decimal) decimal.Decimal {
	return kg.Div(KgPerBag)
}

// AltQuantity returns the alternate display quantity for a base quantity:
// mon for KG, kilograms for BAG and peti for TRAY.
func AltQuantity(category enums.UnitCategory, base decimal.Decimal) decimal.Decimal {
	switch category {
	case enums.UnitCategoryKG:
		return ToMon(base)
	case enums.UnitCategoryBag:
		return BagsToKg(base)
	case enums.UnitCategoryTray:
		return ToPeti(base)
	default:
		return decimal.Zero
	}
}

// BaseFromAlt is the inverse of AltQuantity.
func BaseFromAlt(category enums.UnitCategory, alt decimal.Decimal) decimal.Decimal {
	switch category {
	case enums.UnitCategoryKG:
		return FromMon(alt)
	case enums.UnitCategoryBag:
		return KgToBags(alt)
	case enums.UnitCategoryTray:
		return FromPeti(alt)
	default:
		return decimal.Zero
	}
}

// AltPrice converts a price per base unit to the price per display unit.
// Only kilogram prices convert (to mon); bag and peti prices are whole-unit
// prices and pass through.
func AltPrice(category enums.UnitCategory, perBase decimal.Decimal) decimal.Decimal {
	if category == enums.UnitCategoryKG {
		return perBase.Mul(KgPerMon)
	}
	return perBase
}
