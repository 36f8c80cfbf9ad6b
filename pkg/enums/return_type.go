package enums

import "fmt"

// ReturnType distinguishes goods coming back from a customer from goods sent
// back to a supplier.
type ReturnType string

const (
	ReturnTypeSale     ReturnType = "sale"
	ReturnTypePurchase ReturnType = "purchase"
)

var validReturnTypes = []ReturnType{
	ReturnTypeSale,
	ReturnTypePurchase,
}

func (r ReturnType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnType.
func (r ReturnType) IsValid() bool {
	for _, candidate := range validReturnTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnType converts raw input into a ReturnType.
func ParseReturnType(value string) (ReturnType, error) {
	for _, candidate := range validReturnTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return type %q", value)
}
