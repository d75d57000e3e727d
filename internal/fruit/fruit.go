package fruit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Option is a row of fruit_options offered as a selectable ingredient.
type Option struct {
	Name     string `db:"fruit_name" yaml:"name"`
	SearchOn string `db:"search_on" yaml:"search_on,omitempty"`
}

// Repository is a database-backed repository for fruit options.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type optionRow struct {
	Name     string         `db:"fruit_name"`
	SearchOn sql.NullString `db:"search_on"`
}

// List returns every fruit option ordered by name.
func (r *Repository) List(ctx context.Context) ([]Option, error) {
	var rows []optionRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT fruit_name, search_on FROM fruit_options ORDER BY fruit_name"); err != nil {
		return nil, fmt.Errorf("failed to list fruit options: %w", err)
	}

	options := make([]Option, 0, len(rows))
	for _, row := range rows {
		options = append(options, Option{
			Name:     row.Name,
			SearchOn: strings.TrimSpace(row.SearchOn.String),
		})
	}
	return options, nil
}

// Upsert inserts the given options, replacing the search key of names that already exist.
func (r *Repository) Upsert(ctx context.Context, options []Option) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`INSERT INTO fruit_options (fruit_name, search_on) VALUES (?, ?)
		ON CONFLICT (fruit_name) DO UPDATE SET search_on = excluded.search_on`)

	saved := 0
	for _, opt := range options {
		name := strings.TrimSpace(opt.Name)
		if name == "" {
			continue
		}
		var searchOn sql.NullString
		if s := strings.TrimSpace(opt.SearchOn); s != "" {
			searchOn = sql.NullString{String: s, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, query, name, searchOn); err != nil {
			return 0, fmt.Errorf("failed to upsert fruit option %q: %w", name, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit fruit options: %w", err)
	}
	return saved, nil
}
