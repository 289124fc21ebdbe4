package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Repository provides PostgreSQL backed persistence for projects.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `id, client_id, name, COALESCE(description, ''), status, start_date, end_date, created_at, updated_at`

// Create inserts a project.
func (r *Repository) Create(ctx context.Context, p Project) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO projects (client_id, name, description, status, start_date, end_date)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		RETURNING `+projectColumns,
		p.ClientID, p.Name, p.Description, p.Status, p.StartDate, p.EndDate)
	created, err := scanProject(row)
	if err != nil {
		return Project{}, fmt.Errorf("projects: insert: %w", db.ConstraintError(err))
	}
	return created, nil
}

// Update rewrites a project.
func (r *Repository) Update(ctx context.Context, p Project) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE projects
		SET name=$2, description=NULLIF($3, ''), status=$4, start_date=$5, end_date=$6, updated_at=now()
		WHERE id=$1
		RETURNING `+projectColumns,
		p.ID, p.Name, p.Description, p.Status, p.StartDate, p.EndDate)
	updated, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, shared.ErrNotFound
	}
	return updated, err
}

// Get returns one project.
func (r *Repository) Get(ctx context.Context, id int64) (Project, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, shared.ErrNotFound
	}
	return p, err
}

// List returns projects matching the filter.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE 1=1`
	args := make([]any, 0, 2)
	if filter.ClientID != 0 {
		args = append(args, filter.ClientID)
		query += fmt.Sprintf(" AND client_id=$%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	query += " ORDER BY name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HasInvoices reports whether invoices reference the project.
func (r *Repository) HasInvoices(ctx context.Context, id int64) (bool, error) {
	var has bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE project_id=$1)`, id).Scan(&has)
	return has, err
}

// Delete removes the project row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id=$1`, id)
	if err != nil {
		return db.ConstraintError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var (
		p     Project
		start pgtype.Date
		end   pgtype.Date
	)
	err := row.Scan(&p.ID, &p.ClientID, &p.Name, &p.Description, &p.Status, &start, &end, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	if start.Valid {
		d := start.Time
		p.StartDate = &d
	}
	if end.Valid {
		d := end.Time
		p.EndDate = &d
	}
	return p, nil
}
