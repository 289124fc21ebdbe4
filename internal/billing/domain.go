package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates invoice payment statuses.
type InvoiceStatus string

const (
	StatusOpen    InvoiceStatus = "OPEN"
	StatusPartial InvoiceStatus = "PARTIAL"
	StatusPaid    InvoiceStatus = "PAID"
	// StatusVoid is terminal. It is set through VoidInvoice only and is never
	// overwritten by payment-driven recomputation.
	StatusVoid InvoiceStatus = "VOID"
)

// Invoice is the billable document header. Total is always the sum of the
// current line item subtotals, rounded to the currency minor unit.
type Invoice struct {
	ID        int64
	ClientID  int64
	ProjectID *int64
	Number    string
	IssueDate time.Time
	DueDate   *time.Time
	Status    InvoiceStatus
	Total     decimal.Decimal
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem is one billable entry on an invoice. TaxPct is a percentage in
// [0,100]; nil means no tax.
type LineItem struct {
	ID          int64
	InvoiceID   int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxPct      *decimal.Decimal
}

// Subtotal returns the taxed line amount.
func (it LineItem) Subtotal() decimal.Decimal {
	return LineSubtotal(it.Quantity, it.UnitPrice, it.TaxPct)
}

// Payment is an immutable cash receipt applied against one invoice.
type Payment struct {
	ID        int64
	InvoiceID int64
	Date      time.Time
	Amount    decimal.Decimal
	Method    string
	Reference string
	CreatedAt time.Time
}

// InvoiceWithDetails is the fully resolved read view consumed by the document
// dispatcher and the invoice detail endpoint.
type InvoiceWithDetails struct {
	Invoice
	ClientName  string
	ClientEmail string
	Items       []LineItem
	Payments    []Payment
	PaidAmount  decimal.Decimal
	Balance     decimal.Decimal
}
