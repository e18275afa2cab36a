package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
	"github.com/libinstruct/lir-api/internal/repository"
	appErrors "github.com/libinstruct/lir-api/pkg/errors"
)

type classStore interface {
	Create(ctx context.Context, rec *models.ClassRecord, flags []models.ClassFlag) (int64, error)
	Update(ctx context.Context, rec *models.ClassRecord, flags []models.ClassFlag, replaceFlags bool) error
	Delete(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.ClassRecord, error)
	FlagsByClassID(ctx context.Context, id int64) ([]models.ClassFlag, error)
	ListBucket(ctx context.Context, bucket models.Bucket, actorID string, now time.Time) ([]models.ClassRecord, error)
	CountBuckets(ctx context.Context, actorID string, now time.Time) (models.BucketCounts, error)
}

type catalogReader interface {
	ValuesByKind(ctx context.Context, kind models.CatalogKind) ([]string, error)
}

type deleteTokenStore interface {
	Issue(ctx context.Context, classID int64, actorID string) (string, time.Time, error)
	Redeem(ctx context.Context, classID int64, actorID, token string) (bool, error)
}

type countCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ClassService owns the class record lifecycle: validated writes, bucket
// listings and the two-step confirmed delete.
type ClassService struct {
	classes  classStore
	catalog  catalogReader
	tokens   deleteTokenStore
	cache    countCache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewClassService constructs the service. cache may be nil when Redis is
// not configured; counts then always hit the database.
func NewClassService(classes classStore, catalog catalogReader, tokens deleteTokenStore, cache countCache, cacheTTL time.Duration, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		classes:  classes,
		catalog:  catalog,
		tokens:   tokens,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// requiredFields pairs the submission fields that must be present with the
// label used in the violation message.
var requiredFields = []struct {
	label   string
	missing func(req dto.ClassRecordRequest) bool
}{
	{"Librarian Name", func(r dto.ClassRecordRequest) bool { return r.LibrarianName == "" }},
	{"Instructor Name", func(r dto.ClassRecordRequest) bool { return r.InstructorName == "" }},
	{"Class Start", func(r dto.ClassRecordRequest) bool { return r.ClassStart.IsZero() }},
	{"Class Length", func(r dto.ClassRecordRequest) bool { return r.DurationMinutes <= 0 }},
	{"Class Location", func(r dto.ClassRecordRequest) bool { return r.ClassLocation == "" }},
	{"Class Type", func(r dto.ClassRecordRequest) bool { return r.ClassType == "" }},
	{"Audience", func(r dto.ClassRecordRequest) bool { return r.Audience == "" }},
	{"Department Group", func(r dto.ClassRecordRequest) bool { return r.DepartmentGroup == "" }},
}

// validate collects every violation in one pass rather than stopping at the
// first, so the caller can fix the whole form at once. Flag names are not
// checked against the definitions: records legitimately carry flags whose
// definition has since been retired.
func (s *ClassService) validate(ctx context.Context, req dto.ClassRecordRequest) ([]string, error) {
	var violations []string
	for _, field := range requiredFields {
		if field.missing(req) {
			violations = append(violations, "Missing Field: "+field.label)
		}
	}
	if req.Attendance != nil && *req.Attendance < 0 {
		violations = append(violations, "Attendance must not be negative")
	}

	catalogChecks := []struct {
		kind  models.CatalogKind
		label string
		value string
	}{
		{models.CatalogClassLocation, "Class Location", req.ClassLocation},
		{models.CatalogClassType, "Class Type", req.ClassType},
		{models.CatalogAudience, "Audience", req.Audience},
		{models.CatalogDepartmentGroup, "Department Group", req.DepartmentGroup},
	}
	for _, check := range catalogChecks {
		if check.value == "" {
			continue
		}
		values, err := s.catalog.ValuesByKind(ctx, check.kind)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog values for validation")
		}
		if !containsString(values, check.value) {
			violations = append(violations, fmt.Sprintf("Unknown %s: %s", check.label, check.value))
		}
	}
	return violations, nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func toFlags(inputs []dto.FlagInput) []models.ClassFlag {
	flags := make([]models.ClassFlag, 0, len(inputs))
	for _, in := range inputs {
		if in.Name == "" {
			continue
		}
		flags = append(flags, models.ClassFlag{Name: in.Name, Value: in.Value})
	}
	return flags
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *ClassService) applyRequest(rec *models.ClassRecord, req dto.ClassRecordRequest) {
	rec.LibrarianName = req.LibrarianName
	rec.Librarian2Name = optional(req.Librarian2Name)
	rec.InstructorName = req.InstructorName
	rec.InstructorEmail = optional(req.InstructorEmail)
	rec.InstructorPhone = optional(req.InstructorPhone)
	rec.ClassStart = req.ClassStart
	rec.ClassEnd = req.ClassStart.Add(time.Duration(req.DurationMinutes) * time.Minute)
	rec.ClassLocation = req.ClassLocation
	rec.ClassType = req.ClassType
	rec.Audience = req.Audience
	rec.ClassDescription = optional(req.ClassDescription)
	rec.DepartmentGroup = req.DepartmentGroup
	rec.CourseNumber = optional(req.CourseNumber)
	rec.Attendance = req.Attendance
}

// Create validates and stores a new record owned by the acting user.
func (s *ClassService) Create(ctx context.Context, actor *models.JWTClaims, req dto.ClassRecordRequest) (*dto.ClassRecordResponse, error) {
	if !actor.Can(models.CapabilityCreate) {
		return nil, appErrors.ErrForbidden
	}
	violations, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, appErrors.Validation(violations)
	}

	rec := &models.ClassRecord{OwnerID: actor.UserID, LastUpdatedBy: actor.UserID}
	s.applyRequest(rec, req)

	if _, err := s.classes.Create(ctx, rec, toFlags(req.Flags)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class record")
	}
	s.invalidateCounts(ctx)
	s.logger.Info("class record created",
		zap.Int64("id", rec.ID),
		zap.String("owner", actor.UserID),
		zap.Time("class_start", rec.ClassStart))

	flags, err := s.classes.FlagsByClassID(ctx, rec.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class flags")
	}
	return &dto.ClassRecordResponse{ClassRecord: *rec, Flags: flags}, nil
}

// Update rewrites an existing record. Owners may edit their own records;
// anyone with the manage capability may edit any record. Ownership never
// changes on update.
func (s *ClassService) Update(ctx context.Context, actor *models.JWTClaims, id int64, req dto.ClassRecordRequest) (*dto.ClassRecordResponse, error) {
	rec, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	violations, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, appErrors.Validation(violations)
	}

	s.applyRequest(rec, req)
	rec.LastUpdatedBy = actor.UserID

	if err := s.classes.Update(ctx, rec, toFlags(req.Flags), req.ReplaceFlags); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "there was a problem updating the class")
	}
	s.invalidateCounts(ctx)
	s.logger.Info("class record updated", zap.Int64("id", id), zap.String("actor", actor.UserID))

	flags, err := s.classes.FlagsByClassID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class flags")
	}
	return &dto.ClassRecordResponse{ClassRecord: *rec, Flags: flags}, nil
}

// Get returns a record with its flags.
func (s *ClassService) Get(ctx context.Context, id int64) (*dto.ClassRecordResponse, error) {
	rec, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class record")
	}
	flags, err := s.classes.FlagsByClassID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class flags")
	}
	return &dto.ClassRecordResponse{ClassRecord: *rec, Flags: flags}, nil
}

// List returns one bucket's records plus all bucket counts for the actor.
func (s *ClassService) List(ctx context.Context, actor *models.JWTClaims, bucket models.Bucket) (*dto.ClassListResponse, error) {
	now := s.now()
	records, err := s.classes.ListBucket(ctx, bucket, actor.UserID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class records")
	}
	counts, err := s.bucketCounts(ctx, actor.UserID, now)
	if err != nil {
		return nil, err
	}
	return &dto.ClassListResponse{Bucket: bucket, Counts: counts, Records: records}, nil
}

func (s *ClassService) bucketCounts(ctx context.Context, actorID string, now time.Time) (models.BucketCounts, error) {
	key := repository.BucketCountKey(actorID)
	if s.cache != nil {
		var cached models.BucketCounts
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}
	counts, err := s.classes.CountBuckets(ctx, actorID, now)
	if err != nil {
		return models.BucketCounts{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count class buckets")
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, counts, s.cacheTTL); err != nil {
			s.logger.Warn("bucket count cache write failed", zap.Error(err))
		}
	}
	return counts, nil
}

func (s *ClassService) invalidateCounts(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, repository.BucketCountPattern()); err != nil {
		s.logger.Warn("bucket count cache invalidation failed", zap.Error(err))
	}
}

// RequestDelete authorizes the actor against the record and issues a
// single-use confirmation token. Deletion only happens on confirm.
func (s *ClassService) RequestDelete(ctx context.Context, actor *models.JWTClaims, id int64) (*dto.DeleteTokenResponse, error) {
	if _, err := s.authorizeWrite(ctx, actor, id); err != nil {
		return nil, err
	}
	token, expires, err := s.tokens.Issue(ctx, id, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue delete token")
	}
	return &dto.DeleteTokenResponse{Token: token, ExpiresAt: expires}, nil
}

// ConfirmDelete redeems the token and removes the record. A stale, reused or
// foreign token is rejected without touching the record.
func (s *ClassService) ConfirmDelete(ctx context.Context, actor *models.JWTClaims, id int64, token string) error {
	if _, err := s.authorizeWrite(ctx, actor, id); err != nil {
		return err
	}
	ok, err := s.tokens.Redeem(ctx, id, actor.UserID, token)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to redeem delete token")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "delete confirmation token is invalid or expired")
	}
	removed, err := s.classes.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "there was a problem removing the class")
	}
	if !removed {
		return appErrors.ErrNotFound
	}
	s.invalidateCounts(ctx)
	s.logger.Info("class record deleted", zap.Int64("id", id), zap.String("actor", actor.UserID))
	return nil
}

// authorizeWrite loads the record and checks the actor may modify it: owners
// edit their own, the manage capability covers everything else.
func (s *ClassService) authorizeWrite(ctx context.Context, actor *models.JWTClaims, id int64) (*models.ClassRecord, error) {
	rec, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class record")
	}
	if rec.OwnerID != actor.UserID && !actor.Can(models.CapabilityManage) {
		return nil, appErrors.ErrForbidden
	}
	if !actor.Can(models.CapabilityCreate) {
		return nil, appErrors.ErrForbidden
	}
	return rec, nil
}
