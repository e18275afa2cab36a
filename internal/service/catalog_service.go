package service

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
	"github.com/libinstruct/lir-api/internal/repository"
	appErrors "github.com/libinstruct/lir-api/pkg/errors"
)

type catalogStore interface {
	ValuesByKind(ctx context.Context, kind models.CatalogKind) ([]string, error)
	ReplaceValues(ctx context.Context, kind models.CatalogKind, values []string) error
	FlagDefinitions(ctx context.Context) ([]models.FlagDefinition, error)
	ReplaceFlagDefinitions(ctx context.Context, defs []models.FlagDefinition) error
}

type catalogCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CatalogService manages the admin-configurable value lists and flag
// definitions backing the class entry form.
type CatalogService struct {
	store    catalogStore
	cache    catalogCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCatalogService constructs the service. cache may be nil.
func NewCatalogService(store catalogStore, cache catalogCache, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{store: store, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Values returns one catalog list. Lists are stored in natural
// case-insensitive order, so the stored order is the display order.
func (s *CatalogService) Values(ctx context.Context, kind models.CatalogKind) (*dto.ValueListResponse, error) {
	key := repository.CatalogKey(string(kind))
	if s.cache != nil {
		var cached []string
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return &dto.ValueListResponse{Kind: string(kind), Values: cached}, nil
		}
	}
	values, err := s.store.ValuesByKind(ctx, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog values")
	}
	if values == nil {
		values = []string{}
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, values, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	return &dto.ValueListResponse{Kind: string(kind), Values: values}, nil
}

// AddValue appends a value to a list, re-sorts it naturally and persists the
// whole list. Duplicate values (case-insensitive) are rejected.
func (s *CatalogService) AddValue(ctx context.Context, kind models.CatalogKind, value string) (*dto.ValueListResponse, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, appErrors.Validation([]string{"Missing Field: Value"})
	}
	values, err := s.store.ValuesByKind(ctx, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog values")
	}
	for _, existing := range values {
		if strings.EqualFold(existing, value) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "value already exists")
		}
	}
	values = append(values, value)
	SortNatural(values)
	if err := s.store.ReplaceValues(ctx, kind, values); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store catalog values")
	}
	s.invalidate(ctx, kind)
	s.logger.Info("catalog value added", zap.String("kind", string(kind)), zap.String("value", value))
	return &dto.ValueListResponse{Kind: string(kind), Values: values}, nil
}

// RemoveValue deletes a value from a list. Removing the last value deletes
// the list itself, and removing a value that is not present is a silent
// no-op. Existing class records keep whatever value they stored.
func (s *CatalogService) RemoveValue(ctx context.Context, kind models.CatalogKind, value string) (*dto.ValueListResponse, error) {
	values, err := s.store.ValuesByKind(ctx, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog values")
	}
	kept := make([]string, 0, len(values))
	found := false
	for _, existing := range values {
		if existing == value {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return &dto.ValueListResponse{Kind: string(kind), Values: kept}, nil
	}
	if err := s.store.ReplaceValues(ctx, kind, kept); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store catalog values")
	}
	s.invalidate(ctx, kind)
	s.logger.Info("catalog value removed", zap.String("kind", string(kind)), zap.String("value", value))
	return &dto.ValueListResponse{Kind: string(kind), Values: kept}, nil
}

// Flags returns the configured flag definitions in form order.
func (s *CatalogService) Flags(ctx context.Context) ([]dto.FlagDefinitionItem, error) {
	defs, err := s.store.FlagDefinitions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load flag definitions")
	}
	items := make([]dto.FlagDefinitionItem, 0, len(defs))
	for _, def := range defs {
		items = append(items, dto.FlagDefinitionItem{Name: def.Name, Enabled: def.Enabled})
	}
	return items, nil
}

// SaveFlags replaces the whole definition set with the submission. Flags
// omitted from the submission cease to exist as definitions; flag values
// already attached to records are untouched.
func (s *CatalogService) SaveFlags(ctx context.Context, req dto.SaveFlagDefinitionsRequest) ([]dto.FlagDefinitionItem, error) {
	var violations []string
	seen := make(map[string]struct{}, len(req.Flags))
	for _, item := range req.Flags {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			violations = append(violations, "Missing Field: Flag Name")
			continue
		}
		lower := strings.ToLower(name)
		if _, dup := seen[lower]; dup {
			violations = append(violations, "Duplicate Flag: "+name)
		}
		seen[lower] = struct{}{}
	}
	if len(violations) > 0 {
		return nil, appErrors.Validation(violations)
	}

	defs := make([]models.FlagDefinition, 0, len(req.Flags))
	for i, item := range req.Flags {
		defs = append(defs, models.FlagDefinition{Name: strings.TrimSpace(item.Name), Enabled: item.Enabled, Position: i})
	}
	if err := s.store.ReplaceFlagDefinitions(ctx, defs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store flag definitions")
	}
	s.logger.Info("flag definitions replaced", zap.Int("count", len(defs)))

	items := make([]dto.FlagDefinitionItem, 0, len(defs))
	for _, def := range defs {
		items = append(items, dto.FlagDefinitionItem{Name: def.Name, Enabled: def.Enabled})
	}
	return items, nil
}

func (s *CatalogService) invalidate(ctx context.Context, kind models.CatalogKind) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.CatalogKey(string(kind))); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// SortNatural orders strings case-insensitively with embedded numbers
// compared by value, so "Room 9" sorts before "Room 10".
func SortNatural(values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		return naturalLess(values[i], values[j])
	})
}

func naturalLess(a, b string) bool {
	ar, br := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		if unicode.IsDigit(ar[i]) && unicode.IsDigit(br[j]) {
			iStart, jStart := i, j
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			aNum := strings.TrimLeft(string(ar[iStart:i]), "0")
			bNum := strings.TrimLeft(string(br[jStart:j]), "0")
			if len(aNum) != len(bNum) {
				return len(aNum) < len(bNum)
			}
			if aNum != bNum {
				return aNum < bNum
			}
			continue
		}
		if ar[i] != br[j] {
			return ar[i] < br[j]
		}
		i++
		j++
	}
	return len(ar)-i < len(br)-j
}
