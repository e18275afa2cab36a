package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/libinstruct/lir-api/internal/models"
)

// CatalogRepository stores the admin-managed option lists and the flag
// definitions that drive the record form.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ValuesByKind returns one catalog list in stored position order.
func (r *CatalogRepository) ValuesByKind(ctx context.Context, kind models.CatalogKind) ([]string, error) {
	var values []string
	const query = `SELECT value FROM catalog_values WHERE kind = $1 ORDER BY position ASC`
	if err := r.db.SelectContext(ctx, &values, query, kind); err != nil {
		return nil, fmt.Errorf("list catalog values %s: %w", kind, err)
	}
	return values, nil
}

// ReplaceValues rewrites one catalog list atomically. An empty slice deletes
// the list outright.
func (r *CatalogRepository) ReplaceValues(ctx context.Context, kind models.CatalogKind, values []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace catalog tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_values WHERE kind = $1`, kind); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear catalog values %s: %w", kind, err)
	}
	const insert = `INSERT INTO catalog_values (kind, position, value) VALUES ($1, $2, $3)`
	for i, value := range values {
		if _, err := tx.ExecContext(ctx, insert, kind, i, value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert catalog value %s: %w", kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace catalog tx: %w", err)
	}
	return nil
}

// FlagDefinitions returns the configured flags in stored position order.
func (r *CatalogRepository) FlagDefinitions(ctx context.Context) ([]models.FlagDefinition, error) {
	var defs []models.FlagDefinition
	const query = `SELECT name, enabled, position FROM flag_definitions ORDER BY position ASC`
	if err := r.db.SelectContext(ctx, &defs, query); err != nil {
		return nil, fmt.Errorf("list flag definitions: %w", err)
	}
	return defs, nil
}

// ReplaceFlagDefinitions overwrites the whole flag definition set.
func (r *CatalogRepository) ReplaceFlagDefinitions(ctx context.Context, defs []models.FlagDefinition) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace flag definitions tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM flag_definitions`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear flag definitions: %w", err)
	}
	const insert = `INSERT INTO flag_definitions (name, enabled, position) VALUES ($1, $2, $3)`
	for i, def := range defs {
		if _, err := tx.ExecContext(ctx, insert, def.Name, def.Enabled, i); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert flag definition %s: %w", def.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace flag definitions tx: %w", err)
	}
	return nil
}
