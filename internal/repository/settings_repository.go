package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/libinstruct/lir-api/internal/models"
)

// SettingsRepository manages the single app_settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get reads the settings row.
func (r *SettingsRepository) Get(ctx context.Context) (*models.AppSettings, error) {
	const query = `SELECT display_name, slug, interval_length, interval_count, debug, schema_version, updated_at
FROM app_settings WHERE id = 1`
	var settings models.AppSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save upserts the settings row. The table is keyed on a constant id so the
// process always works against one row.
func (r *SettingsRepository) Save(ctx context.Context, settings *models.AppSettings) error {
	const query = `INSERT INTO app_settings (id, display_name, slug, interval_length, interval_count, debug, schema_version, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, slug = EXCLUDED.slug,
interval_length = EXCLUDED.interval_length, interval_count = EXCLUDED.interval_count,
debug = EXCLUDED.debug, schema_version = EXCLUDED.schema_version, updated_at = EXCLUDED.updated_at`

	settings.UpdatedAt = time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query,
		settings.DisplayName, settings.Slug, settings.IntervalLength, settings.IntervalCount,
		settings.Debug, settings.SchemaVersion, settings.UpdatedAt,
	); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
