package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/pkg/calculator"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// Payment mode labels derived from how a sale was paid.
const (
	PaymentModeOffline = "offline"
	PaymentModeOnline  = "online"
	PaymentModeMixed   = "mixed"
	PaymentModeDue     = "due"
)

// LineInput is one sale line as submitted. Lot is optional; when present its
// pending quantity caps the line.
type LineInput struct {
	Product uuid.UUID  `json:"product"`
	Lot     *uuid.UUID `json:"lot"`
	calculator.LineInput
	Note *string `json:"note"`
}

// CreateSaleInput is the sale form. Either Customer or NewCustomerName is
// required. A non-empty Payment is spread over the lines in order as their
// offline payment.
type CreateSaleInput struct {
	Customer        *uuid.UUID       `json:"customer"`
	NewCustomerName string           `json:"newCustomerName"`
	Lines           []LineInput      `json:"lines"`
	DiscountTotal   calculator.Entry `json:"discountTotal"`
	Payment         calculator.Entry `json:"payment"`
	Notes           *string          `json:"notes"`
	SaleDate        *time.Time       `json:"saleDate"`
	DagImage        *string          `json:"dagImage"`
}

// ListFilter narrows a sale listing. EndDate is inclusive.
type ListFilter struct {
	Customer  *uuid.UUID
	BillNo    string
	StartDate *time.Time
	EndDate   *time.Time
}

type CustomerDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ProductDTO struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	UnitCategory enums.UnitCategory `json:"unitCategory"`
}

type LotDTO struct {
	ID        uuid.UUID `json:"id"`
	LatNumber string    `json:"latNumber"`
}

type SaleLineDTO struct {
	ID               uuid.UUID       `json:"id"`
	Position         int             `json:"position"`
	Product          ProductDTO      `json:"product"`
	Lat              *LotDTO         `json:"lat,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	DisplayQuantity  string          `json:"displayQuantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	AltPrice         decimal.Decimal `json:"altPrice"`
	Discount         decimal.Decimal `json:"discount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	PaidOnline       decimal.Decimal `json:"paidOnline"`
	PaidOffline      decimal.Decimal `json:"paidOffline"`
	DueAmount        decimal.Decimal `json:"dueAmount"`
	TotalBags        int             `json:"totalBags"`
	ReturnedQuantity decimal.Decimal `json:"returnedQuantity"`
	Note             *string         `json:"note,omitempty"`
}

type SaleDTO struct {
	ID            uuid.UUID       `json:"id"`
	BillNo        string          `json:"billNo"`
	Customer      CustomerDTO     `json:"customer"`
	SaleDate      time.Time       `json:"saleDate"`
	PaymentMode   string          `json:"paymentMode"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	DiscountTotal decimal.Decimal `json:"discountTotal"`
	NetTotal      decimal.Decimal `json:"netTotal"`
	PaidTotal     decimal.Decimal `json:"paidTotal"`
	SaleDue       decimal.Decimal `json:"saleDue"`
	PreviousDue   decimal.Decimal `json:"previousDue"`
	TotalDue      decimal.Decimal `json:"totalDue"`
	DagImage      *string         `json:"dagImage,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	Lines         []SaleLineDTO   `json:"lines"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ReceiptItem is one printed bill row. Display is the mon, kg or peti
// equivalent with its unit, empty when it adds nothing.
type ReceiptItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Display  string          `json:"display,omitempty"`
	Rate     decimal.Decimal `json:"rate"`
	Amount   decimal.Decimal `json:"amount"`
}

type ReceiptCustomer struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// ReceiptDTO is the printable bill. TotalDue is the balance as of the sale;
// CustomerTotalDue is the customer's balance now.
type ReceiptDTO struct {
	BillNo           string          `json:"billNo"`
	SaleDate         time.Time       `json:"saleDate"`
	Customer         ReceiptCustomer `json:"customer"`
	Items            []ReceiptItem   `json:"items"`
	GrandTotal       decimal.Decimal `json:"grandTotal"`
	DiscountTotal    decimal.Decimal `json:"discountTotal"`
	Total            decimal.Decimal `json:"total"`
	Paid             decimal.Decimal `json:"paid"`
	SaleDue          decimal.Decimal `json:"saleDue"`
	PreviousDue      decimal.Decimal `json:"previousDue"`
	TotalDue         decimal.Decimal `json:"totalDue"`
	CustomerTotalDue decimal.Decimal `json:"customerTotalDue"`
	Notes            *string         `json:"notes,omitempty"`
}

func FromModel(m *models.Sale) *SaleDTO {
	if m == nil {
		return nil
	}
	out := &SaleDTO{
		ID:            m.ID,
		BillNo:        m.BillNo,
		Customer:      CustomerDTO{ID: m.CustomerID},
		SaleDate:      m.SaleDate,
		PaymentMode:   m.PaymentMode,
		GrandTotal:    m.GrandTotal,
		DiscountTotal: m.DiscountTotal,
		NetTotal:      m.NetTotal,
		PaidTotal:     m.PaidTotal,
		SaleDue:       m.SaleDue,
		PreviousDue:   m.PreviousDue,
		TotalDue:      m.TotalDue,
		DagImage:      m.DagImage,
		Notes:         m.Notes,
		Lines:         make([]SaleLineDTO, 0, len(m.Lines)),
		CreatedAt:     m.CreatedAt,
	}
	if m.Customer != nil {
		out.Customer.Name = m.Customer.Name
	}
	for i := range m.Lines {
		out.Lines = append(out.Lines, lineFromModel(&m.Lines[i]))
	}
	return out
}

func lineFromModel(m *models.SaleLine) SaleLineDTO {
	out := SaleLineDTO{
		ID:               m.ID,
		Position:         m.Position,
		Product:          ProductDTO{ID: m.ProductID},
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		AltPrice:         m.UnitPrice,
		Discount:         m.Discount,
		TotalAmount:      m.TotalAmount,
		PaidOnline:       m.PaidOnline,
		PaidOffline:      m.PaidOffline,
		DueAmount:        m.DueAmount,
		TotalBags:        m.TotalBags,
		ReturnedQuantity: m.ReturnedQuantity,
		Note:             m.Note,
	}
	if m.Product != nil {
		category := m.Product.UnitCategory
		out.Product.Name = m.Product.Name
		out.Product.UnitCategory = category
		out.DisplayQuantity = calculator.Format(calculator.AltQuantity(category, m.Quantity))
		out.AltPrice = calculator.Round2(calculator.AltPrice(category, m.UnitPrice))
	}
	if m.LotID != nil {
		out.Lat = &LotDTO{ID: *m.LotID}
		if m.Lot != nil {
			out.Lat.LatNumber = m.Lot.Number
		}
	}
	return out
}

// Receipt renders the printable bill of a loaded sale.
func Receipt(m *models.Sale) *ReceiptDTO {
	out := &ReceiptDTO{
		BillNo:        m.BillNo,
		SaleDate:      m.SaleDate,
		GrandTotal:    m.GrandTotal,
		DiscountTotal: m.DiscountTotal,
		Total:         m.NetTotal,
		Paid:          m.PaidTotal,
		SaleDue:       m.SaleDue,
		PreviousDue:   m.PreviousDue,
		TotalDue:      m.TotalDue,
		Notes:         m.Notes,
		Items:         make([]ReceiptItem, 0, len(m.Lines)),
	}
	if m.Customer != nil {
		out.Customer = ReceiptCustomer{Name: m.Customer.Name, Phone: m.Customer.Phone, Address: m.Customer.Address}
		out.CustomerTotalDue = m.Customer.TotalDue
	}
	for _, line := range m.Lines {
		item := ReceiptItem{Quantity: line.Quantity, Rate: line.UnitPrice, Amount: line.TotalAmount}
		if line.Product != nil {
			category := line.Product.UnitCategory
			item.Name = line.Product.Name
			item.Unit = category.BaseUnit()
			if category != enums.UnitCategoryBag {
				if alt := calculator.Format(calculator.AltQuantity(category, line.Quantity)); alt != "" {
					item.Display = alt + " " + category.AltUnit()
				}
			}
		}
		out.Items = append(out.Items, item)
	}
	return out
}

func paymentMode(online, offline decimal.Decimal) string {
	switch {
	case online.IsPositive() && offline.IsPositive():
		return PaymentModeMixed
	case online.IsPositive():
		return PaymentModeOnline
	case offline.IsPositive():
		return PaymentModeOffline
	default:
		return PaymentModeDue
	}
}
