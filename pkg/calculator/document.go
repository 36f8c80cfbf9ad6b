package calculator

import (
	"github.com/shopspring/decimal"
)

// Summary holds the aggregate totals of a sale or purchase.
type Summary struct {
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	TotalDue      decimal.Decimal `json:"totalDue"`
	DiscountTotal decimal.Decimal `json:"discountTotal"`
	NetTotal      decimal.Decimal `json:"netTotal"`
	NetDue        decimal.Decimal `json:"netDue"`
}

// Summarize adds up line totals and dues. The flat document discount is
// subtracted from the net figures only; it is never spread across lines.
// Negative discounts count as zero.
func Summarize(lines []Line, discountTotal decimal.Decimal) Summary {
	grand := decimal.Zero
	due := decimal.Zero
	for _, line := range lines {
		grand = grand.Add(line.Total)
		due = due.Add(line.Due)
	}
	discount := Round2(nonNegative(discountTotal))
	return Summary{
		GrandTotal:    Round2(grand),
		TotalDue:      Round2(due),
		DiscountTotal: discount,
		NetTotal:      Round2(grand.Sub(discount)),
		NetDue:        Round2(due.Sub(discount)),
	}
}

// DistributePayment spreads a single payment over the lines in order. Each
// line receives min(remaining, outstanding) in its offline (or single) paid
// field until the payment runs out, where outstanding is the line total less
// any online payment already recorded. The payment is clamped to
// [0, sum of outstanding] and the applied amount is returned. The input slice
// is not modified.
func DistributePayment(lines []Line, payment decimal.Decimal) ([]Line, decimal.Decimal) {
	outstanding := make([]decimal.Decimal, len(lines))
	open := decimal.Zero
	for i, line := range lines {
		outstanding[i] = line.outstanding()
		open = open.Add(outstanding[i])
	}
	applied := Round2(decimal.Min(nonNegative(payment), open))

	remaining := applied
	out := make([]Line, len(lines))
	for i, line := range lines {
		share := decimal.Min(remaining, outstanding[i])
		remaining = remaining.Sub(share)
		if line.Mode == SinglePayment {
			line.Paid = Format(share)
		} else {
			line.PaidOffline = Format(share)
		}
		out[i] = Recalculate(line)
	}
	return out, applied
}

// outstanding is what a distributed payment may still cover on the line.
func (l Line) outstanding() decimal.Decimal {
	open := nonNegative(l.Total)
	if l.Mode != SinglePayment {
		open = nonNegative(open.Sub(SumEntry(l.PaidOnline)))
	}
	return open
}

// Document is the editable state of a whole sale or purchase.
type Document struct {
	Mode          PaymentMode
	Lines         []Line
	DiscountTotal string
	Payment       string
}

// NewDocument returns an empty document using the given payment mode.
func NewDocument(mode PaymentMode) Document {
	if mode != SinglePayment {
		mode = SplitPayment
	}
	return Document{Mode: mode}
}

// Summary returns the aggregate totals of the document.
func (d Document) Summary() Summary {
	return Summarize(d.Lines, SumEntry(d.DiscountTotal))
}

// DocumentEvent is an input to Document.Apply.
type DocumentEvent interface {
	isDocumentEvent()
}

// AddLine appends an empty line, optionally for a known product.
type AddLine struct {
	Product *ProductRef
}

// RemoveLine drops the line at Index.
type RemoveLine struct {
	Index int
}

// EditLine applies a line event to the line at Index.
type EditLine struct {
	Index int
	Event Event
}

// SetDiscountTotal sets the flat document discount.
type SetDiscountTotal struct {
	Value string
}

// SetPayment sets the total payment and redistributes it over the lines.
type SetPayment struct {
	Value string
}

func (AddLine) isDocumentEvent()          {}
func (RemoveLine) isDocumentEvent()       {}
func (EditLine) isDocumentEvent()         {}
func (SetDiscountTotal) isDocumentEvent() {}
func (SetPayment) isDocumentEvent()       {}

// Apply returns the document after the event. While a total payment is set
// it is redistributed after every line change so the paid amount never
// exceeds the outstanding total.
func (d Document) Apply(event DocumentEvent) Document {
	next := d
	next.Lines = append([]Line(nil), d.Lines...)

	switch e := event.(type) {
	case AddLine:
		next.Lines = append(next.Lines, Recalculate(NewLine(e.Product, d.Mode)))
	case RemoveLine:
		if e.Index < 0 || e.Index >= len(next.Lines) {
			return d
		}
		next.Lines = append(next.Lines[:e.Index], next.Lines[e.Index+1:]...)
	case EditLine:
		if e.Index < 0 || e.Index >= len(next.Lines) || e.Event == nil {
			return d
		}
		next.Lines[e.Index] = Reduce(next.Lines[e.Index], e.Event)
	case SetDiscountTotal:
		if !ValidEntry(e.Value, false) {
			return d
		}
		next.DiscountTotal = e.Value
		return next
	case SetPayment:
		if !ValidEntry(e.Value, false) {
			return d
		}
		next.Payment = e.Value
		return next.redistribute()
	default:
		return d
	}

	if next.Payment != "" {
		return next.redistribute()
	}
	return next
}

func (d Document) redistribute() Document {
	requested := SumEntry(d.Payment)
	lines, applied := DistributePayment(d.Lines, requested)
	d.Lines = lines
	if d.Payment != "" && !applied.Equal(requested) {
		d.Payment = Format(applied)
	}
	return d
}
