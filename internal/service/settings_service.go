package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
	appErrors "github.com/libinstruct/lir-api/pkg/errors"
)

type settingsStore interface {
	Get(ctx context.Context) (*models.AppSettings, error)
	Save(ctx context.Context, settings *models.AppSettings) error
}

// SettingsService manages the single application settings row and derives
// the class duration choices from it.
type SettingsService struct {
	store  settingsStore
	logger *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(store settingsStore, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{store: store, logger: logger}
}

// Ensure seeds defaults on first startup and upgrades the stored schema
// version in place when this build carries a newer one. Only the version
// field changes automatically; admin-set values are preserved.
func (s *SettingsService) Ensure(ctx context.Context) error {
	settings, err := s.store.Get(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		seeded := models.DefaultSettings()
		if err := s.store.Save(ctx, &seeded); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
		s.logger.Info("settings seeded with defaults", zap.String("schema_version", seeded.SchemaVersion))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.SchemaVersion != models.SchemaVersion {
		old := settings.SchemaVersion
		settings.SchemaVersion = models.SchemaVersion
		if err := s.store.Save(ctx, settings); err != nil {
			return fmt.Errorf("upgrade settings version: %w", err)
		}
		s.logger.Info("settings schema version upgraded",
			zap.String("from", old), zap.String("to", models.SchemaVersion))
	}
	return nil
}

// Current returns the stored settings, falling back to defaults when the
// row is missing.
func (s *SettingsService) Current(ctx context.Context) (*models.AppSettings, error) {
	settings, err := s.store.Get(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := models.DefaultSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return settings, nil
}

// Update applies the admin-controlled fields. The schema version is never
// client-writable.
func (s *SettingsService) Update(ctx context.Context, req dto.UpdateSettingsRequest) (*models.AppSettings, error) {
	var violations []string
	if strings.TrimSpace(req.DisplayName) == "" {
		violations = append(violations, "Missing Field: Display Name")
	}
	if strings.TrimSpace(req.Slug) == "" {
		violations = append(violations, "Missing Field: Slug")
	}
	if req.IntervalLength < 1 {
		violations = append(violations, "Interval Length must be at least 1")
	}
	if req.IntervalCount < 1 {
		violations = append(violations, "Interval Count must be at least 1")
	}
	if len(violations) > 0 {
		return nil, appErrors.Validation(violations)
	}

	settings, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	settings.DisplayName = strings.TrimSpace(req.DisplayName)
	settings.Slug = strings.TrimSpace(req.Slug)
	settings.IntervalLength = req.IntervalLength
	settings.IntervalCount = req.IntervalCount
	settings.Debug = req.Debug
	if err := s.store.Save(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store settings")
	}
	s.logger.Info("settings updated", zap.String("slug", settings.Slug))
	return settings, nil
}

// Durations lists the selectable class lengths: intervalCount multiples of
// intervalLength minutes, each with a human label.
func (s *SettingsService) Durations(ctx context.Context) ([]dto.DurationOption, error) {
	settings, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]dto.DurationOption, 0, settings.IntervalCount)
	for i := 1; i <= settings.IntervalCount; i++ {
		minutes := i * settings.IntervalLength
		options = append(options, dto.DurationOption{Minutes: minutes, Label: DurationLabel(minutes)})
	}
	return options, nil
}

// DurationLabel renders minutes as "15 minutes", "1 hour", "1 hour 15
// minutes" and so on.
func DurationLabel(minutes int) string {
	hours := minutes / 60
	rest := minutes % 60
	var parts []string
	switch {
	case hours == 1:
		parts = append(parts, "1 hour")
	case hours > 1:
		parts = append(parts, fmt.Sprintf("%d hours", hours))
	}
	switch {
	case rest == 1:
		parts = append(parts, "1 minute")
	case rest > 1 || (rest == 0 && hours == 0):
		parts = append(parts, fmt.Sprintf("%d minutes", rest))
	}
	return strings.Join(parts, " ")
}
