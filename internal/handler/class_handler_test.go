package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/middleware"
	"github.com/libinstruct/lir-api/internal/models"
	appErrors "github.com/libinstruct/lir-api/pkg/errors"
)

type classServiceMock struct {
	createResp *dto.ClassRecordResponse
	createErr  error
	listResp   *dto.ClassListResponse
	listBucket models.Bucket
	deleteErr  error
	tokenResp  *dto.DeleteTokenResponse
}

func (m *classServiceMock) Create(ctx context.Context, actor *models.JWTClaims, req dto.ClassRecordRequest) (*dto.ClassRecordResponse, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResp, nil
}

func (m *classServiceMock) Update(ctx context.Context, actor *models.JWTClaims, id int64, req dto.ClassRecordRequest) (*dto.ClassRecordResponse, error) {
	return m.createResp, m.createErr
}

func (m *classServiceMock) Get(ctx context.Context, id int64) (*dto.ClassRecordResponse, error) {
	return m.createResp, m.createErr
}

func (m *classServiceMock) List(ctx context.Context, actor *models.JWTClaims, bucket models.Bucket) (*dto.ClassListResponse, error) {
	m.listBucket = bucket
	return m.listResp, nil
}

func (m *classServiceMock) RequestDelete(ctx context.Context, actor *models.JWTClaims, id int64) (*dto.DeleteTokenResponse, error) {
	return m.tokenResp, nil
}

func (m *classServiceMock) ConfirmDelete(ctx context.Context, actor *models.JWTClaims, id int64, token string) error {
	return m.deleteErr
}

func newClassTestContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleLibrarian})
	return c, w
}

func TestClassHandlerCreate(t *testing.T) {
	mock := &classServiceMock{createResp: &dto.ClassRecordResponse{
		ClassRecord: models.ClassRecord{ID: 7, LibrarianName: "Ada Park"},
	}}
	h := NewClassHandler(mock)

	c, w := newClassTestContext(t, http.MethodPost, "/classes", dto.ClassRecordRequest{
		LibrarianName:   "Ada Park",
		InstructorName:  "Sam Doyle",
		ClassStart:      time.Now(),
		DurationMinutes: 60,
	})
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"id":7`)
}

func TestClassHandlerCreateValidationErrorListsViolations(t *testing.T) {
	mock := &classServiceMock{createErr: appErrors.Validation([]string{
		"Missing Field: Librarian Name",
		"Missing Field: Class Length",
	})}
	h := NewClassHandler(mock)

	c, w := newClassTestContext(t, http.MethodPost, "/classes", dto.ClassRecordRequest{})
	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Missing Field: Librarian Name")
	require.Contains(t, w.Body.String(), "Missing Field: Class Length")
}

func TestClassHandlerListDefaultsToUpcoming(t *testing.T) {
	mock := &classServiceMock{listResp: &dto.ClassListResponse{Bucket: models.BucketUpcoming}}
	h := NewClassHandler(mock)

	c, w := newClassTestContext(t, http.MethodGet, "/classes?bucket=nonsense", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.BucketUpcoming, mock.listBucket)
}

func TestClassHandlerGetRejectsBadID(t *testing.T) {
	h := NewClassHandler(&classServiceMock{})

	c, w := newClassTestContext(t, http.MethodGet, "/classes/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassHandlerDeleteRequiresToken(t *testing.T) {
	h := NewClassHandler(&classServiceMock{})

	c, w := newClassTestContext(t, http.MethodDelete, "/classes/3", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Delete(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "missing delete confirmation token")
}

func TestClassHandlerDeleteFlow(t *testing.T) {
	mock := &classServiceMock{tokenResp: &dto.DeleteTokenResponse{Token: "token-1", ExpiresAt: time.Now().Add(time.Minute)}}
	h := NewClassHandler(mock)

	c, w := newClassTestContext(t, http.MethodPost, "/classes/3/delete-token", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.RequestDelete(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "token-1")

	c, w = newClassTestContext(t, http.MethodDelete, "/classes/3?token=token-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}
