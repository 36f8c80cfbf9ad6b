package calculator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// Entry is a numeric field as typed by the operator. It decodes from a JSON
// string or a JSON number.
type Entry string

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Entry(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("entry must be a string or number")
	}
	*e = Entry(n.String())
	return nil
}

// LineInput is a line as submitted through the API. Only one field of each
// quantity and price group is applied: the first non-empty one in
// declaration order.
type LineInput struct {
	Quantity        Entry `json:"quantity"`
	DisplayQuantity Entry `json:"displayQuantity"`
	BagQuantity     Entry `json:"bagQuantity"`
	UnitPrice       Entry `json:"unitPrice"`
	UnitPriceMon    Entry `json:"unitPriceMon"`
	UnitPriceKG     Entry `json:"unitPriceKG"`
	UnitPriceBag    Entry `json:"unitPriceBag"`
	UnitPricePeti   Entry `json:"unitPricePeti"`
	Discount        Entry `json:"discount"`
	PaidOnline      Entry `json:"paidOnline"`
	PaidOffline     Entry `json:"paidOffline"`
	PaidAmount      Entry `json:"paidAmount"`
	TotalBags       Entry `json:"totalBags"`

	// Dashboard spellings of the display prices.
	PriceMon  Entry `json:"priceMon"`
	PriceBag  Entry `json:"priceBag"`
	PricePeti Entry `json:"pricePeti"`
}

type fieldEntry struct {
	field Field
	value Entry
}

// Events converts the input into reducer edits for a line of the given
// category and payment mode. Malformed entries and fields the category or
// mode does not carry are reported instead of being silently dropped.
func (in LineInput) Events(category enums.UnitCategory, mode PaymentMode) ([]Event, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("invalid unit category %q", category)
	}
	var picked []fieldEntry

	if q, ok := firstSet(
		fieldEntry{FieldQuantity, in.Quantity},
		fieldEntry{FieldDisplayQuantity, in.DisplayQuantity},
		fieldEntry{FieldBagQuantity, in.BagQuantity},
	); ok {
		picked = append(picked, q)
	}
	if p, ok := firstSet(
		fieldEntry{FieldUnitPrice, in.UnitPrice},
		fieldEntry{FieldUnitPriceMon, orEntry(in.UnitPriceMon, in.PriceMon)},
		fieldEntry{FieldUnitPriceKG, in.UnitPriceKG},
		fieldEntry{FieldUnitPriceBag, orEntry(in.UnitPriceBag, in.PriceBag)},
		fieldEntry{FieldUnitPricePeti, orEntry(in.UnitPricePeti, in.PricePeti)},
	); ok {
		picked = append(picked, p)
	}
	for _, fe := range []fieldEntry{
		{FieldDiscount, in.Discount},
		{FieldPaidOnline, in.PaidOnline},
		{FieldPaidOffline, in.PaidOffline},
		{FieldPaidAmount, in.PaidAmount},
		{FieldTotalBags, in.TotalBags},
	} {
		if fe.value != "" {
			picked = append(picked, fe)
		}
	}

	events := make([]Event, 0, len(picked))
	for _, fe := range picked {
		raw := string(fe.value)
		switch fe.field.family() {
		case familyQuantity, familyPrice:
			if !fe.field.supports(category) {
				return nil, fmt.Errorf("%s is not available for %s products", fe.field, category)
			}
			if !ValidEntry(raw, true) {
				return nil, fmt.Errorf("%s: %q is not a valid entry", fe.field, raw)
			}
		case familyAmount:
			if !ValidEntry(raw, false) {
				return nil, fmt.Errorf("%s: %q is not a valid amount", fe.field, raw)
			}
			if !modeCarries(mode, fe.field) {
				return nil, fmt.Errorf("%s is not used for %s payments", fe.field, mode)
			}
		case familyAnnotation:
			if !fe.field.supports(category) {
				return nil, fmt.Errorf("%s is not available for %s products", fe.field, category)
			}
		}
		events = append(events, Edit{Field: fe.field, Value: raw})
	}
	return events, nil
}

// QuantityEntry returns the quantity as typed, in whichever unit it was
// entered.
func (in LineInput) QuantityEntry() string {
	for _, e := range []Entry{in.Quantity, in.DisplayQuantity, in.BagQuantity} {
		if e != "" {
			return string(e)
		}
	}
	return ""
}

func firstSet(entries ...fieldEntry) (fieldEntry, bool) {
	for _, fe := range entries {
		if fe.value != "" {
			return fe, true
		}
	}
	return fieldEntry{}, false
}

func orEntry(primary, alias Entry) Entry {
	if primary != "" {
		return primary
	}
	return alias
}

func modeCarries(mode PaymentMode, field Field) bool {
	switch field {
	case FieldPaidAmount:
		return mode == SinglePayment
	case FieldPaidOnline, FieldPaidOffline:
		return mode != SinglePayment
	default:
		return true
	}
}
