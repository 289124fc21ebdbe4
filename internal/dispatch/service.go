package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ledgerline/ledgerline/internal/billing"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/jobs"
)

// InvoiceSource loads the full invoice view to render.
type InvoiceSource interface {
	GetInvoice(ctx context.Context, id int64) (billing.InvoiceWithDetails, error)
}

// Renderer converts invoice HTML to PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Queue hands the rendered document to the background mailer.
type Queue interface {
	EnqueueSendInvoiceEmail(ctx context.Context, payload jobs.SendInvoiceEmailPayload) (*asynq.TaskInfo, error)
}

// Service renders invoice documents and queues their delivery. Delivery
// failures surface to the caller but never touch the ledger rows that
// triggered them.
type Service struct {
	invoices InvoiceSource
	renderer Renderer
	queue    Queue
	logger   *slog.Logger
	printer  *message.Printer
}

// NewService builds Service instance.
func NewService(invoices InvoiceSource, renderer Renderer, queue Queue, logger *slog.Logger) *Service {
	return &Service{
		invoices: invoices,
		renderer: renderer,
		queue:    queue,
		logger:   logger,
		printer:  message.NewPrinter(language.EuropeanSpanish),
	}
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{.Number}}</title></head>
<body>
  <h1>Invoice {{.Number}}</h1>
  <p>Client: {{.ClientName}}</p>
  <p>Issued: {{.IssueDate}}{{if .DueDate}} &middot; Due: {{.DueDate}}{{end}}</p>
  <table border="1" cellspacing="0" cellpadding="6">
    <tr><th>Description</th><th>Qty</th><th>Unit price</th><th>Subtotal</th></tr>
    {{range .Items}}
    <tr><td>{{.Description}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.Subtotal}}</td></tr>
    {{end}}
  </table>
  <p><strong>Total: {{.Total}} {{.Currency}}</strong></p>
  <p>Paid: {{.Paid}} &middot; Balance: {{.Balance}}</p>
</body>
</html>`))

type invoiceView struct {
	Number     string
	ClientName string
	IssueDate  string
	DueDate    string
	Currency   string
	Total      string
	Paid       string
	Balance    string
	Items      []itemView
}

type itemView struct {
	Description string
	Quantity    string
	UnitPrice   string
	Subtotal    string
}

// SendInvoice renders the invoice to PDF and queues an email to the client.
func (s *Service) SendInvoice(ctx context.Context, invoiceID int64) error {
	det, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if det.ClientEmail == "" {
		return shared.Invalid("email", "client has no email address")
	}

	html, err := s.renderInvoiceHTML(det)
	if err != nil {
		return fmt.Errorf("dispatch: render html: %v: %w", err, shared.ErrDeliveryFailure)
	}
	pdf, err := s.renderer.RenderHTML(ctx, html)
	if err != nil {
		s.logger.ErrorContext(ctx, "render invoice pdf", slog.Int64("invoice_id", invoiceID), slog.Any("error", err))
		return fmt.Errorf("dispatch: render pdf: %v: %w", err, shared.ErrDeliveryFailure)
	}

	payload := jobs.SendInvoiceEmailPayload{
		MessageID:     uuid.NewString(),
		InvoiceNumber: det.Number,
		To:            det.ClientEmail,
		Subject:       fmt.Sprintf("Invoice %s", det.Number),
		Body: s.printer.Sprintf("Dear %s,\n\nPlease find attached invoice %s for %.2f %s.\n",
			det.ClientName, det.Number, det.Total.InexactFloat64(), det.Currency),
		PDF: pdf,
	}
	if _, err := s.queue.EnqueueSendInvoiceEmail(ctx, payload); err != nil {
		s.logger.ErrorContext(ctx, "enqueue invoice email", slog.Int64("invoice_id", invoiceID), slog.Any("error", err))
		return fmt.Errorf("dispatch: enqueue email: %v: %w", err, shared.ErrDeliveryFailure)
	}
	s.logger.InfoContext(ctx, "invoice dispatch queued",
		slog.Int64("invoice_id", invoiceID),
		slog.String("message_id", payload.MessageID))
	return nil
}

func (s *Service) renderInvoiceHTML(det billing.InvoiceWithDetails) (string, error) {
	view := invoiceView{
		Number:     det.Number,
		ClientName: det.ClientName,
		IssueDate:  det.IssueDate.Format("2006-01-02"),
		Currency:   det.Currency,
		Total:      s.printer.Sprintf("%.2f", det.Total.InexactFloat64()),
		Paid:       s.printer.Sprintf("%.2f", det.PaidAmount.InexactFloat64()),
		Balance:    s.printer.Sprintf("%.2f", det.Balance.InexactFloat64()),
	}
	if det.DueDate != nil {
		view.DueDate = det.DueDate.Format("2006-01-02")
	}
	for _, it := range det.Items {
		view.Items = append(view.Items, itemView{
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   s.printer.Sprintf("%.2f", it.UnitPrice.InexactFloat64()),
			Subtotal:    s.printer.Sprintf("%.2f", it.Subtotal().InexactFloat64()),
		})
	}
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
