package enums

import (
	"fmt"
	"strings"
)

// UnitCategory selects the conversion rule set for a product.
type UnitCategory string

const (
	UnitCategoryKG   UnitCategory = "KG"
	UnitCategoryBag  UnitCategory = "BAG"
	UnitCategoryTray UnitCategory = "TRAY"
)

var validUnitCategories = []UnitCategory{
	UnitCategoryKG,
	UnitCategoryBag,
	UnitCategoryTray,
}

// String implements fmt.Stringer.
func (u UnitCategory) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UnitCategory.
func (u UnitCategory) IsValid() bool {
	for _, candidate := range validUnitCategories {
		if candidate == u {
			return true
		}
	}
	return false
}

// BaseUnit names the unit quantities are stored in for the category.
func (u UnitCategory) BaseUnit() string {
	switch u {
	case UnitCategoryKG:
		return "kg"
	case UnitCategoryBag:
		return "bag"
	case UnitCategoryTray:
		return "tray"
	default:
		return ""
	}
}

// AltUnit names the display unit AltQuantity converts to.
func (u UnitCategory) AltUnit() string {
	switch u {
	case UnitCategoryKG:
		return "mon"
	case UnitCategoryBag:
		return "kg"
	case UnitCategoryTray:
		return "peti"
	default:
		return ""
	}
}

// ParseUnitCategory converts raw input into a UnitCategory. Matching is
// case-insensitive so legacy values such as "bag" and "tray" are accepted.
func ParseUnitCategory(value string) (UnitCategory, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validUnitCategories {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit category %q", value)
}
