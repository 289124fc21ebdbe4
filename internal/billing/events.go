package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceCreatedEvent carries the data the history timeline records when an
// invoice is created.
type InvoiceCreatedEvent struct {
	InvoiceID int64
	ClientID  int64
	Number    string
	Total     decimal.Decimal
	IssueDate time.Time
}

// PaymentRecordedEvent carries the data recorded after a payment lands.
type PaymentRecordedEvent struct {
	PaymentID int64
	InvoiceID int64
	ClientID  int64
	Number    string
	Amount    decimal.Decimal
	NewStatus InvoiceStatus
	Date      time.Time
}

// HistoryRecorder receives billing events for the client timeline. Recording
// failures are logged by the consumer and never abort the billing operation.
type HistoryRecorder interface {
	HandleInvoiceCreated(ctx context.Context, evt InvoiceCreatedEvent)
	HandlePaymentRecorded(ctx context.Context, evt PaymentRecordedEvent)
}

// NopRecorder satisfies HistoryRecorder with no side effects.
type NopRecorder struct{}

func (NopRecorder) HandleInvoiceCreated(context.Context, InvoiceCreatedEvent)   {}
func (NopRecorder) HandlePaymentRecorded(context.Context, PaymentRecordedEvent) {}
