package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
	appErrors "github.com/libinstruct/lir-api/pkg/errors"
)

type classStoreStub struct {
	nextID  int64
	records map[int64]*models.ClassRecord
	flags   map[int64]map[string]bool
	deleted []int64
}

func newClassStoreStub() *classStoreStub {
	return &classStoreStub{
		nextID:  1,
		records: make(map[int64]*models.ClassRecord),
		flags:   make(map[int64]map[string]bool),
	}
}

func (s *classStoreStub) Create(ctx context.Context, rec *models.ClassRecord, flags []models.ClassFlag) (int64, error) {
	id := s.nextID
	s.nextID++
	rec.ID = id
	copy := *rec
	s.records[id] = &copy
	s.flags[id] = make(map[string]bool)
	for _, flag := range flags {
		s.flags[id][flag.Name] = flag.Value
	}
	return id, nil
}

func (s *classStoreStub) Update(ctx context.Context, rec *models.ClassRecord, flags []models.ClassFlag, replaceFlags bool) error {
	if _, ok := s.records[rec.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *rec
	s.records[rec.ID] = &copy
	if replaceFlags {
		s.flags[rec.ID] = make(map[string]bool)
	}
	for _, flag := range flags {
		s.flags[rec.ID][flag.Name] = flag.Value
	}
	return nil
}

func (s *classStoreStub) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	delete(s.flags, id)
	s.deleted = append(s.deleted, id)
	return true, nil
}

func (s *classStoreStub) GetByID(ctx context.Context, id int64) (*models.ClassRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *rec
	return &copy, nil
}

func (s *classStoreStub) FlagsByClassID(ctx context.Context, id int64) ([]models.ClassFlag, error) {
	var out []models.ClassFlag
	for name, value := range s.flags[id] {
		out = append(out, models.ClassFlag{ClassID: id, Name: name, Value: value})
	}
	return out, nil
}

func (s *classStoreStub) ListBucket(ctx context.Context, bucket models.Bucket, actorID string, now time.Time) ([]models.ClassRecord, error) {
	var out []models.ClassRecord
	for _, rec := range s.records {
		switch bucket {
		case models.BucketIncomplete:
			if rec.ClassEnd.Before(now) && rec.Attendance == nil {
				out = append(out, *rec)
			}
		case models.BucketPrevious:
			if rec.ClassEnd.Before(now) {
				out = append(out, *rec)
			}
		case models.BucketMine:
			if rec.OwnerID == actorID {
				out = append(out, *rec)
			}
		default:
			if !rec.ClassEnd.Before(now) {
				out = append(out, *rec)
			}
		}
	}
	return out, nil
}

func (s *classStoreStub) CountBuckets(ctx context.Context, actorID string, now time.Time) (models.BucketCounts, error) {
	var counts models.BucketCounts
	for _, rec := range s.records {
		if !rec.ClassEnd.Before(now) {
			counts.Upcoming++
		} else {
			counts.Previous++
			if rec.Attendance == nil {
				counts.Incomplete++
			}
		}
		if rec.OwnerID == actorID {
			counts.Mine++
		}
	}
	return counts, nil
}

type catalogReaderStub struct {
	values map[models.CatalogKind][]string
	err    error
}

func newCatalogReaderStub() *catalogReaderStub {
	return &catalogReaderStub{
		values: map[models.CatalogKind][]string{
			models.CatalogClassLocation:   {"Main Library Room 101"},
			models.CatalogClassType:       {"Hands-on"},
			models.CatalogAudience:        {"Undergraduate"},
			models.CatalogDepartmentGroup: {"History"},
		},
	}
}

func (s *catalogReaderStub) ValuesByKind(ctx context.Context, kind models.CatalogKind) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.values[kind], nil
}

type tokenStoreStub struct {
	issued map[string]string
}

func newTokenStoreStub() *tokenStoreStub {
	return &tokenStoreStub{issued: make(map[string]string)}
}

func (s *tokenStoreStub) key(classID int64, actorID string) string {
	return fmt.Sprintf("%d/%s", classID, actorID)
}

func (s *tokenStoreStub) Issue(ctx context.Context, classID int64, actorID string) (string, time.Time, error) {
	token := "token-1"
	s.issued[s.key(classID, actorID)] = token
	return token, time.Now().Add(time.Minute), nil
}

func (s *tokenStoreStub) Redeem(ctx context.Context, classID int64, actorID, token string) (bool, error) {
	stored, ok := s.issued[s.key(classID, actorID)]
	if !ok || stored != token {
		return false, nil
	}
	delete(s.issued, s.key(classID, actorID))
	return true, nil
}

func librarianActor(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleLibrarian}
}

func validClassRequest() dto.ClassRecordRequest {
	return dto.ClassRecordRequest{
		LibrarianName:   "Ada Park",
		InstructorName:  "Sam Doyle",
		ClassStart:      time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 75,
		ClassLocation:   "Main Library Room 101",
		ClassType:       "Hands-on",
		Audience:        "Undergraduate",
		DepartmentGroup: "History",
	}
}

func newTestClassService(store *classStoreStub) *ClassService {
	return NewClassService(store, newCatalogReaderStub(), newTokenStoreStub(), nil, 0, nil)
}

func TestClassServiceCreateDerivesClassEnd(t *testing.T) {
	store := newClassStoreStub()
	svc := newTestClassService(store)

	resp, err := svc.Create(context.Background(), librarianActor("user-1"), validClassRequest())
	require.NoError(t, err)
	require.Equal(t, resp.ClassStart.Add(75*time.Minute), resp.ClassEnd)
	require.Equal(t, "user-1", resp.OwnerID)
	require.Equal(t, "user-1", resp.LastUpdatedBy)
}

func TestClassServiceCreateCollectsAllViolations(t *testing.T) {
	svc := newTestClassService(newClassStoreStub())

	req := dto.ClassRecordRequest{
		ClassLocation: "Nowhere Hall",
	}
	_, err := svc.Create(context.Background(), librarianActor("user-1"), req)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Contains(t, appErr.Details, "Missing Field: Librarian Name")
	require.Contains(t, appErr.Details, "Missing Field: Instructor Name")
	require.Contains(t, appErr.Details, "Missing Field: Class Start")
	require.Contains(t, appErr.Details, "Missing Field: Class Length")
	require.Contains(t, appErr.Details, "Unknown Class Location: Nowhere Hall")
}

func TestClassServiceFlagNamesNotCheckedAgainstDefinitions(t *testing.T) {
	store := newClassStoreStub()
	svc := newTestClassService(store)
	actor := librarianActor("owner-1")

	// Records keep carrying flags whose definition was later retired, so a
	// record fetched with such a flag must round-trip through Update.
	req := validClassRequest()
	req.Flags = []dto.FlagInput{{Name: "Embedded Librarian", Value: true}}
	created, err := svc.Create(context.Background(), actor, req)
	require.NoError(t, err)

	resubmit := validClassRequest()
	resubmit.ReplaceFlags = true
	resubmit.Flags = []dto.FlagInput{{Name: "Embedded Librarian", Value: true}}
	updated, err := svc.Update(context.Background(), actor, created.ID, resubmit)
	require.NoError(t, err)
	require.Len(t, updated.Flags, 1)
	require.True(t, store.flags[created.ID]["Embedded Librarian"])
}

func TestClassServiceCreateFailsWhenCatalogUnavailable(t *testing.T) {
	store := newClassStoreStub()
	catalog := newCatalogReaderStub()
	catalog.err = context.DeadlineExceeded
	svc := NewClassService(store, catalog, newTokenStoreStub(), nil, 0, nil)

	_, err := svc.Create(context.Background(), librarianActor("user-1"), validClassRequest())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	require.Empty(t, store.records)
}

func TestClassServiceCreateRejectsZeroDuration(t *testing.T) {
	svc := newTestClassService(newClassStoreStub())

	req := validClassRequest()
	req.DurationMinutes = 0
	_, err := svc.Create(context.Background(), librarianActor("user-1"), req)
	require.Error(t, err)
	require.Contains(t, appErrors.FromError(err).Details, "Missing Field: Class Length")
}

func TestClassServiceCreateForbiddenForViewer(t *testing.T) {
	svc := newTestClassService(newClassStoreStub())

	viewer := &models.JWTClaims{UserID: "viewer-1", Role: models.RoleViewer}
	_, err := svc.Create(context.Background(), viewer, validClassRequest())
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestClassServiceCreateStoresZeroAttendance(t *testing.T) {
	store := newClassStoreStub()
	svc := newTestClassService(store)

	zero := 0
	req := validClassRequest()
	req.Attendance = &zero
	resp, err := svc.Create(context.Background(), librarianActor("user-1"), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Attendance)
	require.Equal(t, 0, *resp.Attendance)
}

func TestClassServiceUpdatePermissions(t *testing.T) {
	store := newClassStoreStub()
	svc := newTestClassService(store)

	created, err := svc.Create(context.Background(), librarianActor("owner-1"), validClassRequest())
	require.NoError(t, err)

	// Another librarian cannot edit a record they do not own.
	req := validClassRequest()
	_, err = svc.Update(context.Background(), librarianActor("other-1"), created.ID, req)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	// An admin can, and the ownership never changes.
	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	updated, err := svc.Update(context.Background(), admin, created.ID, req)
	require.NoError(t, err)
	require.Equal(t, "owner-1", updated.OwnerID)
	require.Equal(t, "admin-1", updated.LastUpdatedBy)
}

func TestClassServiceUpdateFlagUpsertAndReplace(t *testing.T) {
	store := newClassStoreStub()
	svc := newTestClassService(store)

	req := validClassRequest()
	req.Flags = []dto.FlagInput{{Name: "Embedded Librarian", Value: true}}
	created, err := svc.Create(context.Background(), librarianActor("owner-1"), req)
	require.NoError(t, err)

	// Default update leaves unmentioned flags in place.
	update := validClassRequest()
	_, err = svc.Update(context.Background(), librarianActor("owner-1"), created.ID, update)
	require.NoError(t, err)
	require.True(t, store.flags[created.ID]["Embedded Librarian"])

	// Replace mode drops flags absent from the submission.
	update.ReplaceFlags = true
	_, err = svc.Update(context.Background(), librarianActor("owner-1"), created.ID, update)
	require.NoError(t, err)
	require.Empty(t, store.flags[created.ID])
}

func TestClassServiceDeleteRequiresValidToken(t *testing.T) {
	store := newClassStoreStub()
	svc := newTestClassService(store)
	actor := librarianActor("owner-1")

	created, err := svc.Create(context.Background(), actor, validClassRequest())
	require.NoError(t, err)

	err = svc.ConfirmDelete(context.Background(), actor, created.ID, "bogus")
	require.Error(t, err)
	require.Len(t, store.records, 1)

	issued, err := svc.RequestDelete(context.Background(), actor, created.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmDelete(context.Background(), actor, created.ID, issued.Token))
	require.Empty(t, store.records)
}

func TestClassServiceDeleteWrongGuessKeepsTokenAlive(t *testing.T) {
	store := newClassStoreStub()
	svc := newTestClassService(store)
	actor := librarianActor("owner-1")

	created, err := svc.Create(context.Background(), actor, validClassRequest())
	require.NoError(t, err)

	issued, err := svc.RequestDelete(context.Background(), actor, created.ID)
	require.NoError(t, err)

	// A mismatched token fails without consuming the issued one.
	err = svc.ConfirmDelete(context.Background(), actor, created.ID, "wrong-token")
	require.Error(t, err)
	require.Len(t, store.records, 1)

	require.NoError(t, svc.ConfirmDelete(context.Background(), actor, created.ID, issued.Token))
	require.Empty(t, store.records)
}

func TestClassServiceDeleteTokenIsSingleUse(t *testing.T) {
	store := newClassStoreStub()
	svc := newTestClassService(store)
	actor := librarianActor("owner-1")

	first, err := svc.Create(context.Background(), actor, validClassRequest())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), actor, validClassRequest())
	require.NoError(t, err)

	issued, err := svc.RequestDelete(context.Background(), actor, first.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmDelete(context.Background(), actor, first.ID, issued.Token))

	// The spent token cannot confirm a second deletion.
	err = svc.ConfirmDelete(context.Background(), actor, second.ID, issued.Token)
	require.Error(t, err)
	require.Len(t, store.records, 1)
}

func TestClassServiceListReturnsBucketAndCounts(t *testing.T) {
	store := newClassStoreStub()
	svc := newTestClassService(store)
	actor := librarianActor("owner-1")

	past := validClassRequest()
	past.ClassStart = time.Now().Add(-48 * time.Hour)
	_, err := svc.Create(context.Background(), actor, past)
	require.NoError(t, err)

	future := validClassRequest()
	future.ClassStart = time.Now().Add(48 * time.Hour)
	_, err = svc.Create(context.Background(), actor, future)
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), actor, models.BucketIncomplete)
	require.NoError(t, err)
	require.Equal(t, models.BucketIncomplete, resp.Bucket)
	require.Len(t, resp.Records, 1)
	require.Equal(t, 1, resp.Counts.Upcoming)
	require.Equal(t, 1, resp.Counts.Incomplete)
	require.Equal(t, 1, resp.Counts.Previous)
	require.Equal(t, 2, resp.Counts.Mine)
}
