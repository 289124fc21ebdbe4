package app

import (
	"context"

	"github.com/ledgerline/ledgerline/internal/billing"
	"github.com/ledgerline/ledgerline/internal/observability"
)

// LedgerRecorder fans out billing events to the history timeline and the
// Prometheus counters.
type LedgerRecorder struct {
	history billing.HistoryRecorder
	metrics *observability.Metrics
}

// NewLedgerRecorder builds the fan-out recorder.
func NewLedgerRecorder(history billing.HistoryRecorder, metrics *observability.Metrics) *LedgerRecorder {
	if history == nil {
		history = billing.NopRecorder{}
	}
	return &LedgerRecorder{history: history, metrics: metrics}
}

// HandleInvoiceCreated implements billing.HistoryRecorder.
func (r *LedgerRecorder) HandleInvoiceCreated(ctx context.Context, evt billing.InvoiceCreatedEvent) {
	r.metrics.InvoiceCreated()
	r.history.HandleInvoiceCreated(ctx, evt)
}

// HandlePaymentRecorded implements billing.HistoryRecorder.
func (r *LedgerRecorder) HandlePaymentRecorded(ctx context.Context, evt billing.PaymentRecordedEvent) {
	r.metrics.PaymentRecorded()
	r.history.HandlePaymentRecorded(ctx, evt)
}
