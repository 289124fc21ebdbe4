package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for the timeline.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one entry.
func (r *Repository) Insert(ctx context.Context, e Entry) (Entry, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO client_history (client_id, type, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		e.ClientID, e.Type, e.Description).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("history: insert: %w", err)
	}
	return e, nil
}

// ForClient returns newest entries for one client.
func (r *Repository) ForClient(ctx context.Context, clientID int64, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, type, description, created_at
		FROM client_history
		WHERE client_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Global returns newest entries across clients, optionally filtered by type.
func (r *Repository) Global(ctx context.Context, types []EntryType, limit int) ([]Entry, error) {
	query := `SELECT id, client_id, type, description, created_at FROM client_history`
	args := []any{limit}
	if len(types) > 0 {
		typed := make([]string, len(types))
		for i, t := range types {
			typed[i] = string(t)
		}
		args = append(args, typed)
		query += ` WHERE type = ANY($2)`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collect(rows rowsScanner) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Type, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
