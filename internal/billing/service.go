package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	ClientID  int64
	ProjectID int64
	Status    InvoiceStatus
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	InvoiceID int64
	ClientID  int64
}

// TxRepository exposes the write operations available inside an invoice
// transaction. The invoice row is locked for the whole callback.
type TxRepository interface {
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ReplaceItems(ctx context.Context, invoiceID int64, items []LineItem) ([]LineItem, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error)
	UpdateTotals(ctx context.Context, invoiceID int64, total decimal.Decimal, status InvoiceStatus) error
	UpdateStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error
}

// RepositoryPort describes data access used by Service.
type RepositoryPort interface {
	WithInvoiceTx(ctx context.Context, invoiceID int64, fn func(context.Context, TxRepository) error) error
	CreateInvoice(ctx context.Context, inv Invoice, items []LineItem) (Invoice, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	GetInvoiceDetails(ctx context.Context, id int64) (InvoiceWithDetails, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
	HasPayments(ctx context.Context, invoiceID int64) (bool, error)
	DeleteInvoice(ctx context.Context, id int64) error
}

// ClientPort validates client references.
type ClientPort interface {
	ClientExists(ctx context.Context, id int64) (bool, error)
}

// ProjectPort resolves project ownership.
type ProjectPort interface {
	ProjectClient(ctx context.Context, projectID int64) (int64, error)
}

// ReportInvalidator drops cached report payloads after a ledger mutation.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service orchestrates invoicing and payment flows.
type Service struct {
	repo     RepositoryPort
	clients  ClientPort
	projects ProjectPort
	recorder HistoryRecorder
	reports  ReportInvalidator
	logger   *slog.Logger
	currency string
}

// NewService constructs billing service.
func NewService(repo RepositoryPort, clients ClientPort, projects ProjectPort, recorder HistoryRecorder, reports ReportInvalidator, logger *slog.Logger, defaultCurrency string) *Service {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Service{repo: repo, clients: clients, projects: projects, recorder: recorder, reports: reports, logger: logger, currency: defaultCurrency}
}

// invalidateReports drops cached report payloads. Failures are logged; report
// reads fall back to the TTL for eventual freshness.
func (s *Service) invalidateReports(ctx context.Context) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "invalidate report cache", slog.Any("error", err))
	}
}

// CreateInvoice validates the payload, computes the total from the line items
// and persists the invoice as OPEN.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (Invoice, error) {
	issueDate, err := time.Parse(dateLayout, req.IssueDate)
	if err != nil {
		return Invoice{}, shared.Invalid("issue_date", "must be formatted YYYY-MM-DD")
	}
	var dueDate *time.Time
	if req.DueDate != nil {
		due, err := time.Parse(dateLayout, *req.DueDate)
		if err != nil {
			return Invoice{}, shared.Invalid("due_date", "must be formatted YYYY-MM-DD")
		}
		if due.Before(issueDate) {
			return Invoice{}, shared.Invalid("due_date", "must not precede issue date")
		}
		dueDate = &due
	}
	exists, err := s.clients.ClientExists(ctx, req.ClientID)
	if err != nil {
		return Invoice{}, fmt.Errorf("billing: check client: %w", err)
	}
	if !exists {
		return Invoice{}, shared.Invalid("client_id", "client does not exist")
	}
	if req.ProjectID != nil {
		ownerID, err := s.projects.ProjectClient(ctx, *req.ProjectID)
		if err != nil {
			return Invoice{}, shared.Invalid("project_id", "project does not exist")
		}
		if ownerID != req.ClientID {
			return Invoice{}, shared.Invalid("project_id", "project belongs to a different client")
		}
	}
	items, err := buildItems(req.Items)
	if err != nil {
		return Invoice{}, err
	}
	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}
	inv := Invoice{
		ClientID:  req.ClientID,
		ProjectID: req.ProjectID,
		Number:    req.Number,
		IssueDate: issueDate,
		DueDate:   dueDate,
		Status:    StatusOpen,
		Total:     InvoiceTotal(items),
		Currency:  currency,
	}
	created, err := s.repo.CreateInvoice(ctx, inv, items)
	if err != nil {
		return Invoice{}, err
	}
	s.recorder.HandleInvoiceCreated(ctx, InvoiceCreatedEvent{
		InvoiceID: created.ID,
		ClientID:  created.ClientID,
		Number:    created.Number,
		Total:     created.Total,
		IssueDate: created.IssueDate,
	})
	s.invalidateReports(ctx)
	return created, nil
}

// GetInvoice returns the full detail view.
func (s *Service) GetInvoice(ctx context.Context, id int64) (InvoiceWithDetails, error) {
	return s.repo.GetInvoiceDetails(ctx, id)
}

// ListInvoices returns invoice headers matching the filter.
func (s *Service) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

// ListPayments returns payments matching the filter.
func (s *Service) ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	return s.repo.ListPayments(ctx, filter)
}

// ReplaceItems swaps the full line item set of an invoice, recomputes the
// total and re-derives the status against payments already received. The
// invoice row stays locked for the whole operation.
func (s *Service) ReplaceItems(ctx context.Context, invoiceID int64, req ReplaceItemsRequest) (Invoice, error) {
	items, err := buildItems(req.Items)
	if err != nil {
		return Invoice{}, err
	}
	var updated Invoice
	err = s.repo.WithInvoiceTx(ctx, invoiceID, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == StatusVoid {
			return shared.Invalid("status", "void invoices cannot be edited")
		}
		stored, err := tx.ReplaceItems(ctx, invoiceID, items)
		if err != nil {
			return err
		}
		paid, err := tx.SumPayments(ctx, invoiceID)
		if err != nil {
			return err
		}
		total := InvoiceTotal(stored)
		status := DeriveStatus(total, paid)
		if err := tx.UpdateTotals(ctx, invoiceID, total, status); err != nil {
			return err
		}
		inv.Total = total
		inv.Status = status
		updated = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.invalidateReports(ctx)
	return updated, nil
}

// RecordPayment appends an immutable payment and moves the invoice status
// forward. Payments against VOID invoices are rejected.
func (s *Service) RecordPayment(ctx context.Context, req RecordPaymentRequest) (Payment, Invoice, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return Payment{}, Invoice{}, shared.Invalid("date", "must be formatted YYYY-MM-DD")
	}
	// Amount sign and magnitude are not policed. A negative payment models a
	// refund and simply feeds the same status derivation.
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return Payment{}, Invoice{}, err
	}
	var (
		payment Payment
		updated Invoice
	)
	err = s.repo.WithInvoiceTx(ctx, req.InvoiceID, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoice(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if inv.Status == StatusVoid {
			return shared.Invalid("invoice_id", "void invoices do not accept payments")
		}
		payment, err = tx.InsertPayment(ctx, Payment{
			InvoiceID: req.InvoiceID,
			Date:      date,
			Amount:    amount,
			Method:    req.Method,
			Reference: req.Reference,
		})
		if err != nil {
			return err
		}
		paid, err := tx.SumPayments(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		status := DeriveStatus(inv.Total, paid)
		if status != inv.Status {
			if err := tx.UpdateStatus(ctx, req.InvoiceID, status); err != nil {
				return err
			}
		}
		inv.Status = status
		updated = inv
		return nil
	})
	if err != nil {
		return Payment{}, Invoice{}, err
	}
	s.recorder.HandlePaymentRecorded(ctx, PaymentRecordedEvent{
		PaymentID: payment.ID,
		InvoiceID: updated.ID,
		ClientID:  updated.ClientID,
		Number:    updated.Number,
		Amount:    payment.Amount,
		NewStatus: updated.Status,
		Date:      payment.Date,
	})
	s.invalidateReports(ctx)
	return payment, updated, nil
}

// VoidInvoice marks an invoice VOID. Voiding is idempotent and terminal.
func (s *Service) VoidInvoice(ctx context.Context, id int64) (Invoice, error) {
	var voided Invoice
	err := s.repo.WithInvoiceTx(ctx, id, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status != StatusVoid {
			if err := tx.UpdateStatus(ctx, id, StatusVoid); err != nil {
				return err
			}
			inv.Status = StatusVoid
		}
		voided = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.logger.InfoContext(ctx, "invoice voided", slog.Int64("invoice_id", id))
	s.invalidateReports(ctx)
	return voided, nil
}

// DeleteInvoice removes an invoice without payments. Invoices that already
// received money are kept and can only be voided.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	has, err := s.repo.HasPayments(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("billing: invoice %d has payments: %w", id, shared.ErrReferentialConflict)
	}
	if err := s.repo.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	s.invalidateReports(ctx)
	return nil
}

func buildItems(reqs []LineItemRequest) ([]LineItem, error) {
	items := make([]LineItem, 0, len(reqs))
	for i, r := range reqs {
		qty, err := parseAmount(fmt.Sprintf("items[%d].quantity", i), r.Quantity)
		if err != nil {
			return nil, err
		}
		if qty.LessThanOrEqual(decimal.Zero) {
			return nil, shared.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		price, err := parseAmount(fmt.Sprintf("items[%d].unit_price", i), r.UnitPrice)
		if err != nil {
			return nil, err
		}
		if price.IsNegative() {
			return nil, shared.Invalid(fmt.Sprintf("items[%d].unit_price", i), "must not be negative")
		}
		item := LineItem{Description: r.Description, Quantity: qty, UnitPrice: price}
		if r.TaxPct != nil {
			tax, err := parseAmount(fmt.Sprintf("items[%d].tax_pct", i), *r.TaxPct)
			if err != nil {
				return nil, err
			}
			if tax.IsNegative() || tax.GreaterThan(hundred) {
				return nil, shared.Invalid(fmt.Sprintf("items[%d].tax_pct", i), "must be between 0 and 100")
			}
			item.TaxPct = &tax
		}
		items = append(items, item)
	}
	return items, nil
}
