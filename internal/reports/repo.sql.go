package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides the PostgreSQL aggregation queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OutstandingInvoices returns OPEN and PARTIAL invoices with their balance.
func (r *Repository) OutstandingInvoices(ctx context.Context) ([]OutstandingInvoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id,
		       i.total - COALESCE(paid.amount, 0) AS balance,
		       i.due_date
		FROM invoices i
		LEFT JOIN (
			SELECT invoice_id, SUM(amount) AS amount
			FROM payments
			GROUP BY invoice_id
		) paid ON paid.invoice_id = i.id
		WHERE i.status IN ('OPEN', 'PARTIAL')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OutstandingInvoice
	for rows.Next() {
		var (
			row OutstandingInvoice
			due pgtype.Date
		)
		if err := rows.Scan(&row.InvoiceID, &row.Balance, &due); err != nil {
			return nil, err
		}
		if due.Valid {
			d := due.Time
			row.DueDate = &d
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MonthlyPayments sums payments per calendar month inside [from, to).
func (r *Repository) MonthlyPayments(ctx context.Context, from, to time.Time) ([]MonthlyPayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('month', paid_on)::date AS month, SUM(amount)
		FROM payments
		WHERE paid_on >= $1 AND paid_on < $2
		GROUP BY 1
		ORDER BY 1`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthlyPayment
	for rows.Next() {
		var row MonthlyPayment
		if err := rows.Scan(&row.Month, &row.Amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// PaidInvoiceStats returns every fully paid invoice with the cash received
// on or before its due date. Fully paid means the payment sum covers a
// positive total, regardless of stored status.
func (r *Repository) PaidInvoiceStats(ctx context.Context) ([]PaidInvoiceStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id,
		       i.client_id,
		       c.name,
		       i.total,
		       i.due_date,
		       COALESCE(SUM(p.amount) FILTER (WHERE i.due_date IS NULL OR p.paid_on <= i.due_date), 0)
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		JOIN payments p ON p.invoice_id = i.id
		WHERE i.total > 0
		GROUP BY i.id, i.client_id, c.name, i.total, i.due_date
		HAVING SUM(p.amount) >= i.total`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaidInvoiceStat
	for rows.Next() {
		var (
			row PaidInvoiceStat
			due pgtype.Date
		)
		if err := rows.Scan(&row.InvoiceID, &row.ClientID, &row.ClientName, &row.Total, &due, &row.PaidBeforeDue); err != nil {
			return nil, err
		}
		if due.Valid {
			d := due.Time
			row.DueDate = &d
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CashByClient sums payments on PAID invoices per client, largest first.
func (r *Repository) CashByClient(ctx context.Context, limit int) ([]ClientCash, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.client_id, SUM(p.amount) AS collected
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.status = 'PAID'
		GROUP BY i.client_id
		ORDER BY collected DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClientCash
	for rows.Next() {
		var row ClientCash
		if err := rows.Scan(&row.ClientID, &row.Amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
