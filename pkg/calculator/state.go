package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// LineState is the flat wire form of a Line. Fields that do not apply to the
// line's category are left empty.
type LineState struct {
	Product         *ProductRef `json:"product,omitempty"`
	Lot             *LotRef     `json:"lot,omitempty"`
	PaymentMode     PaymentMode `json:"paymentMode,omitempty"`
	Quantity        string      `json:"quantity"`
	DisplayQuantity string      `json:"displayQuantity"`
	BagQuantity     string      `json:"bagQuantity"`
	UnitPrice       string      `json:"unitPrice"`
	UnitPriceMon    string      `json:"unitPriceMon"`
	UnitPriceKG     string      `json:"unitPriceKG"`
	UnitPriceBag    string      `json:"unitPriceBag"`
	UnitPricePeti   string      `json:"unitPricePeti"`
	Discount        string      `json:"discount"`
	PaidOnline      string      `json:"paidOnline"`
	PaidOffline     string      `json:"paidOffline"`
	PaidAmount      string      `json:"paidAmount"`
	TotalBags       string      `json:"totalBags"`
	TotalAmount     string      `json:"totalAmount"`
	DueAmount       string      `json:"dueAmount"`
}

// ToState flattens a line for transport.
func ToState(l Line) LineState {
	state := LineState{
		Product:     l.Product,
		Lot:         l.Lot,
		PaymentMode: l.Mode,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		Discount:    l.Discount,
		PaidOnline:  l.PaidOnline,
		PaidOffline: l.PaidOffline,
		PaidAmount:  l.Paid,
		TotalAmount: l.Total.StringFixed(2),
		DueAmount:   l.Due.StringFixed(2),
	}
	switch u := l.Units.(type) {
	case KGUnits:
		state.DisplayQuantity = u.Mon
		state.UnitPriceMon = u.PricePerMon
		state.UnitPriceKG = u.PricePerKG
		state.TotalBags = u.ExtraBags
	case BagUnits:
		state.BagQuantity = u.Kg
		state.UnitPriceBag = u.PricePerBag
	case TrayUnits:
		state.DisplayQuantity = u.Peti
		state.UnitPricePeti = u.PricePerPeti
	}
	return state
}

// FromState rebuilds a line from its wire form. Totals are recomputed rather
// than trusted.
func FromState(s LineState) Line {
	line := NewLine(s.Product, s.PaymentMode)
	if s.Lot != nil {
		lot := *s.Lot
		line.Lot = &lot
	}
	line.Quantity = s.Quantity
	line.UnitPrice = s.UnitPrice
	line.Discount = s.Discount
	line.PaidOnline = s.PaidOnline
	line.PaidOffline = s.PaidOffline
	line.Paid = s.PaidAmount

	switch line.Category() {
	case enums.UnitCategoryKG:
		line.Units = KGUnits{
			Mon:         s.DisplayQuantity,
			PricePerMon: s.UnitPriceMon,
			PricePerKG:  s.UnitPriceKG,
			ExtraBags:   digitsOnly(s.TotalBags),
		}
	case enums.UnitCategoryBag:
		line.Units = BagUnits{Kg: s.BagQuantity, PricePerBag: s.UnitPriceBag}
	case enums.UnitCategoryTray:
		line.Units = TrayUnits{Peti: s.DisplayQuantity, PricePerPeti: s.UnitPricePeti}
	}
	return Recalculate(line)
}

// SummaryState is the display form of a Summary.
type SummaryState struct {
	GrandTotal    string `json:"grandTotal"`
	TotalDue      string `json:"totalDue"`
	DiscountTotal string `json:"discountTotal"`
	NetTotal      string `json:"netTotal"`
	NetDue        string `json:"netDue"`
}

// ToSummaryState formats a Summary with two fixed decimals.
func ToSummaryState(s Summary) SummaryState {
	return SummaryState{
		GrandTotal:    s.GrandTotal.StringFixed(2),
		TotalDue:      s.TotalDue.StringFixed(2),
		DiscountTotal: s.DiscountTotal.StringFixed(2),
		NetTotal:      s.NetTotal.StringFixed(2),
		NetDue:        s.NetDue.StringFixed(2),
	}
}

// DocumentState is the wire form of a Document.
type DocumentState struct {
	PaymentMode   PaymentMode  `json:"paymentMode,omitempty"`
	Lines         []LineState  `json:"lines"`
	DiscountTotal string       `json:"discountTotal"`
	Payment       string       `json:"payment"`
	Summary       SummaryState `json:"summary"`
}

// ToDocumentState flattens a document and its summary.
func ToDocumentState(d Document) DocumentState {
	lines := make([]LineState, 0, len(d.Lines))
	for _, line := range d.Lines {
		lines = append(lines, ToState(line))
	}
	return DocumentState{
		PaymentMode:   d.Mode,
		Lines:         lines,
		DiscountTotal: d.DiscountTotal,
		Payment:       d.Payment,
		Summary:       ToSummaryState(d.Summary()),
	}
}

// FromDocumentState rebuilds a document. Line modes follow the document.
func FromDocumentState(s DocumentState) Document {
	doc := NewDocument(s.PaymentMode)
	doc.DiscountTotal = s.DiscountTotal
	doc.Payment = s.Payment
	for _, ls := range s.Lines {
		ls.PaymentMode = doc.Mode
		doc.Lines = append(doc.Lines, FromState(ls))
	}
	return doc
}

// Decimal parses a display value, treating "" as zero.
func Decimal(display string) decimal.Decimal {
	return SumEntry(display)
}
