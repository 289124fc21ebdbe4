package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Repository provides PostgreSQL backed persistence for clients.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, name, COALESCE(email, ''), COALESCE(tax_id, ''), COALESCE(phone, ''), COALESCE(address, ''), COALESCE(notes, ''), active, created_at, updated_at`

// Create inserts a client.
func (r *Repository) Create(ctx context.Context, c Client) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, email, tax_id, phone, address, notes, active)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING `+clientColumns,
		c.Name, c.Email, c.TaxID, c.Phone, c.Address, c.Notes, c.Active)
	created, err := scanClient(row)
	if err != nil {
		return Client{}, fmt.Errorf("clients: insert: %w", err)
	}
	return created, nil
}

// Update rewrites editable fields.
func (r *Repository) Update(ctx context.Context, c Client) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clients
		SET name=$2, email=NULLIF($3, ''), tax_id=NULLIF($4, ''), phone=NULLIF($5, ''),
		    address=NULLIF($6, ''), notes=NULLIF($7, ''), updated_at=now()
		WHERE id=$1
		RETURNING `+clientColumns,
		c.ID, c.Name, c.Email, c.TaxID, c.Phone, c.Address, c.Notes)
	updated, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, shared.ErrNotFound
	}
	return updated, err
}

// Get returns one client.
func (r *Repository) Get(ctx context.Context, id int64) (Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=$1`, id)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, shared.ErrNotFound
	}
	return c, err
}

// List returns clients, optionally searching by name or tax id.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE 1=1`
	args := make([]any, 0, 2)
	if filter.ActiveOnly {
		query += " AND active"
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%d OR tax_id ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetActive flips the active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE clients SET active=$2, updated_at=now() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// HasDependents reports whether invoices or projects reference the client.
func (r *Repository) HasDependents(ctx context.Context, id int64) (bool, error) {
	var has bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM invoices WHERE client_id=$1)
		    OR EXISTS (SELECT 1 FROM projects WHERE client_id=$1)`, id).Scan(&has)
	return has, err
}

// Delete removes the client row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id=$1`, id)
	if err != nil {
		return db.ConstraintError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Exists reports whether the client id is known.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.TaxID, &c.Phone, &c.Address, &c.Notes, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
