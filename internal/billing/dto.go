package billing

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// LineItemRequest is one line of an invoice create or item replace payload.
// Amounts travel as strings so clients control precision.
type LineItemRequest struct {
	Description string  `json:"description" validate:"required,max=255"`
	Quantity    string  `json:"quantity" validate:"required"`
	UnitPrice   string  `json:"unit_price" validate:"required"`
	TaxPct      *string `json:"tax_pct,omitempty"`
}

// CreateInvoiceRequest is the POST /invoices payload.
type CreateInvoiceRequest struct {
	ClientID  int64             `json:"client_id" validate:"required,gt=0"`
	ProjectID *int64            `json:"project_id,omitempty"`
	Number    string            `json:"number" validate:"required,max=64"`
	IssueDate string            `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate   *string           `json:"due_date,omitempty"`
	Currency  string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Items     []LineItemRequest `json:"items" validate:"dive"`
}

// RecordPaymentRequest is the POST /payments payload.
type RecordPaymentRequest struct {
	InvoiceID int64  `json:"invoice_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Amount    string `json:"amount" validate:"required"`
	Method    string `json:"method,omitempty" validate:"omitempty,max=32"`
	Reference string `json:"reference,omitempty" validate:"omitempty,max=128"`
}

// ReplaceItemsRequest is the PUT /invoices/{id}/items payload.
type ReplaceItemsRequest struct {
	Items []LineItemRequest `json:"items" validate:"dive"`
}

// InvoiceResponse is the serialized invoice header.
type InvoiceResponse struct {
	ID        int64   `json:"id"`
	ClientID  int64   `json:"client_id"`
	ProjectID *int64  `json:"project_id,omitempty"`
	Number    string  `json:"number"`
	IssueDate string  `json:"issue_date"`
	DueDate   *string `json:"due_date,omitempty"`
	Status    string  `json:"status"`
	Total     string  `json:"total"`
	Currency  string  `json:"currency"`
}

// LineItemResponse serializes one invoice line.
type LineItemResponse struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Quantity    string  `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	TaxPct      *string `json:"tax_pct,omitempty"`
	Subtotal    string  `json:"subtotal"`
}

// PaymentResponse serializes one payment.
type PaymentResponse struct {
	ID        int64  `json:"id"`
	InvoiceID int64  `json:"invoice_id"`
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Method    string `json:"method,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// InvoiceDetailResponse is the full detail view.
type InvoiceDetailResponse struct {
	InvoiceResponse
	ClientName string             `json:"client_name"`
	Items      []LineItemResponse `json:"items"`
	Payments   []PaymentResponse  `json:"payments"`
	PaidAmount string             `json:"paid_amount"`
	Balance    string             `json:"balance"`
}

const dateLayout = "2006-01-02"

func toInvoiceResponse(inv Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:        inv.ID,
		ClientID:  inv.ClientID,
		ProjectID: inv.ProjectID,
		Number:    inv.Number,
		IssueDate: inv.IssueDate.Format(dateLayout),
		Status:    string(inv.Status),
		Total:     inv.Total.StringFixed(2),
		Currency:  inv.Currency,
	}
	if inv.DueDate != nil {
		due := inv.DueDate.Format(dateLayout)
		resp.DueDate = &due
	}
	return resp
}

func toLineItemResponse(it LineItem) LineItemResponse {
	resp := LineItemResponse{
		ID:          it.ID,
		Description: it.Description,
		Quantity:    it.Quantity.String(),
		UnitPrice:   it.UnitPrice.StringFixed(2),
		Subtotal:    it.Subtotal().StringFixed(2),
	}
	if it.TaxPct != nil {
		tax := it.TaxPct.String()
		resp.TaxPct = &tax
	}
	return resp
}

func toPaymentResponse(p Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		InvoiceID: p.InvoiceID,
		Date:      p.Date.Format(dateLayout),
		Amount:    p.Amount.StringFixed(2),
		Method:    p.Method,
		Reference: p.Reference,
	}
}

func toDetailResponse(det InvoiceWithDetails) InvoiceDetailResponse {
	resp := InvoiceDetailResponse{
		InvoiceResponse: toInvoiceResponse(det.Invoice),
		ClientName:      det.ClientName,
		Items:           make([]LineItemResponse, 0, len(det.Items)),
		Payments:        make([]PaymentResponse, 0, len(det.Payments)),
		PaidAmount:      det.PaidAmount.StringFixed(2),
		Balance:         det.Balance.StringFixed(2),
	}
	for _, it := range det.Items {
		resp.Items = append(resp.Items, toLineItemResponse(it))
	}
	for _, p := range det.Payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(p))
	}
	return resp
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, shared.Invalid(field, "must be a decimal number")
	}
	return d, nil
}
