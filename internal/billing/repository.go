package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Repository provides PostgreSQL backed persistence for invoices and payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, client_id, project_id, number, issue_date, due_date, status, total, currency, created_at, updated_at`

// WithInvoiceTx runs fn inside a repeatable-read transaction with the invoice
// row locked. Concurrent payments and item edits against the same invoice
// serialize on this lock.
func (r *Repository) WithInvoiceTx(ctx context.Context, invoiceID int64, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepo{tx: tx}
	if _, err := wrapper.lockInvoice(ctx, invoiceID); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// CreateInvoice inserts the invoice header and its line items atomically.
func (r *Repository) CreateInvoice(ctx context.Context, inv Invoice, items []LineItem) (Invoice, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Invoice{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO invoices (client_id, project_id, number, issue_date, due_date, status, total, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+invoiceColumns,
		inv.ClientID, inv.ProjectID, inv.Number, inv.IssueDate, inv.DueDate, inv.Status, inv.Total, inv.Currency)
	created, err := scanInvoice(row)
	if err != nil {
		return Invoice{}, fmt.Errorf("billing: insert invoice: %w", db.ConstraintError(err))
	}
	for _, it := range items {
		if err := insertItem(ctx, tx, created.ID, it); err != nil {
			return Invoice{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Invoice{}, err
	}
	return created, nil
}

// GetInvoice returns a single invoice header.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.ErrNotFound
	}
	return inv, err
}

// GetInvoiceDetails returns the invoice with client, items and payments.
func (r *Repository) GetInvoiceDetails(ctx context.Context, id int64) (InvoiceWithDetails, error) {
	inv, err := r.GetInvoice(ctx, id)
	if err != nil {
		return InvoiceWithDetails{}, err
	}
	det := InvoiceWithDetails{Invoice: inv}

	err = r.pool.QueryRow(ctx, `SELECT name, COALESCE(email, '') FROM clients WHERE id=$1`, inv.ClientID).
		Scan(&det.ClientName, &det.ClientEmail)
	if err != nil {
		return InvoiceWithDetails{}, fmt.Errorf("billing: load client: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, tax_pct::text
		FROM invoice_items WHERE invoice_id=$1 ORDER BY id`, id)
	if err != nil {
		return InvoiceWithDetails{}, err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return InvoiceWithDetails{}, err
		}
		det.Items = append(det.Items, it)
	}
	if err := rows.Err(); err != nil {
		return InvoiceWithDetails{}, err
	}

	det.Payments, err = r.ListPayments(ctx, PaymentFilter{InvoiceID: id})
	if err != nil {
		return InvoiceWithDetails{}, err
	}
	det.PaidAmount = decimal.Zero
	for _, p := range det.Payments {
		det.PaidAmount = det.PaidAmount.Add(p.Amount)
	}
	det.Balance = inv.Total.Sub(det.PaidAmount)
	return det, nil
}

// ListInvoices returns invoice headers newest first.
func (r *Repository) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := make([]any, 0, 3)
	if filter.ClientID != 0 {
		args = append(args, filter.ClientID)
		query += fmt.Sprintf(" AND client_id=$%d", len(args))
	}
	if filter.ProjectID != 0 {
		args = append(args, filter.ProjectID)
		query += fmt.Sprintf(" AND project_id=$%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	query += " ORDER BY issue_date DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ListPayments returns payments newest first.
func (r *Repository) ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	query := `
		SELECT p.id, p.invoice_id, p.paid_on, p.amount, COALESCE(p.method, ''), COALESCE(p.reference, ''), p.created_at
		FROM payments p`
	args := make([]any, 0, 2)
	switch {
	case filter.InvoiceID != 0:
		args = append(args, filter.InvoiceID)
		query += " WHERE p.invoice_id=$1"
	case filter.ClientID != 0:
		args = append(args, filter.ClientID)
		query += " JOIN invoices i ON i.id = p.invoice_id WHERE i.client_id=$1"
	}
	query += " ORDER BY p.paid_on DESC, p.id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Date, &p.Amount, &p.Method, &p.Reference, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HasPayments reports whether any payment references the invoice.
func (r *Repository) HasPayments(ctx context.Context, invoiceID int64) (bool, error) {
	var has bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE invoice_id=$1)`, invoiceID).Scan(&has)
	return has, err
}

// DeleteInvoice removes the invoice and its items.
func (r *Repository) DeleteInvoice(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id=$1`, id)
	if err != nil {
		return db.ConstraintError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) lockInvoice(ctx context.Context, id int64) (Invoice, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1 FOR UPDATE`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.ErrNotFound
	}
	return inv, err
}

func (t *txRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return t.lockInvoice(ctx, id)
}

func (t *txRepo) ReplaceItems(ctx context.Context, invoiceID int64, items []LineItem) ([]LineItem, error) {
	if _, err := t.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id=$1`, invoiceID); err != nil {
		return nil, err
	}
	stored := make([]LineItem, 0, len(items))
	for _, it := range items {
		if err := insertItem(ctx, t.tx, invoiceID, it); err != nil {
			return nil, err
		}
		it.InvoiceID = invoiceID
		stored = append(stored, it)
	}
	return stored, nil
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, paid_on, amount, method, reference)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING id, created_at`,
		p.InvoiceID, p.Date, p.Amount, p.Method, p.Reference).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Payment{}, fmt.Errorf("billing: insert payment: %w", db.ConstraintError(err))
	}
	return p, nil
}

func (t *txRepo) SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id=$1`, invoiceID).Scan(&sum)
	return sum, err
}

func (t *txRepo) UpdateTotals(ctx context.Context, invoiceID int64, total decimal.Decimal, status InvoiceStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET total=$2, status=$3, updated_at=now() WHERE id=$1`, invoiceID, total, status)
	return err
}

func (t *txRepo) UpdateStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET status=$2, updated_at=now() WHERE id=$1`, invoiceID, status)
	return err
}

func insertItem(ctx context.Context, tx pgx.Tx, invoiceID int64, it LineItem) error {
	var tax any
	if it.TaxPct != nil {
		tax = *it.TaxPct
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, tax_pct)
		VALUES ($1, $2, $3, $4, $5)`,
		invoiceID, it.Description, it.Quantity, it.UnitPrice, tax)
	if err != nil {
		return fmt.Errorf("billing: insert item: %w", db.ConstraintError(err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var (
		inv     Invoice
		project pgtype.Int8
		due     pgtype.Date
	)
	err := row.Scan(&inv.ID, &inv.ClientID, &project, &inv.Number, &inv.IssueDate, &due,
		&inv.Status, &inv.Total, &inv.Currency, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	if project.Valid {
		inv.ProjectID = &project.Int64
	}
	if due.Valid {
		d := due.Time
		inv.DueDate = &d
	}
	return inv, nil
}

func scanItem(row rowScanner) (LineItem, error) {
	var (
		it  LineItem
		tax pgtype.Text
	)
	if err := row.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice, &tax); err != nil {
		return LineItem{}, err
	}
	if tax.Valid {
		d, err := decimal.NewFromString(tax.String)
		if err != nil {
			return LineItem{}, fmt.Errorf("billing: parse tax_pct: %w", err)
		}
		it.TaxPct = &d
	}
	return it, nil
}
