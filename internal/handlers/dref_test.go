package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-api/internal/auth"
	"go-api/internal/middleware"
	"go-api/internal/models"
	"go-api/internal/services"
	"go-api/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDrefs embeds the interface so tests only implement what they call.
type fakeDrefs struct {
	DrefStore
	publishErr error
	createdBy  *uuid.UUID
	opUpdate   models.DrefOperationalUpdateInput
	drefFilter []int64
}

func (f *fakeDrefs) CreateDref(_ context.Context, in models.DrefInput, createdBy *uuid.UUID) (*models.Dref, error) {
	f.createdBy = createdBy
	return &models.Dref{ID: 1, Title: in.Title, CreatedBy: createdBy}, nil
}

func (f *fakeDrefs) PublishDref(_ context.Context, id int64) (*models.Dref, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	return &models.Dref{ID: id, IsPublished: true}, nil
}

func (f *fakeDrefs) CreateOperationalUpdate(_ context.Context, in models.DrefOperationalUpdateInput) (*models.DrefOperationalUpdate, error) {
	f.opUpdate = in
	return nil, services.ErrUnpublishedUpdateExists
}

func (f *fakeDrefs) ListFinalReports(_ context.Context, drefs []int64, _ utils.Pagination) ([]models.DrefFinalReport, int, error) {
	f.drefFilter = drefs
	return []models.DrefFinalReport{}, 0, nil
}

func drefRouter(svc DrefStore) http.Handler {
	h := NewDrefHandler(svc, zap.NewNop(), "")
	r := chi.NewRouter()
	r.Post("/dref", h.CreateDref)
	r.Post("/dref/{id}/publish", h.PublishDref)
	r.Post("/dref_op_update", h.CreateOperationalUpdate)
	r.Get("/dref_final_report", h.ListFinalReports)
	return r
}

func TestPublishDref(t *testing.T) {
	rec := httptest.NewRecorder()
	drefRouter(&fakeDrefs{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dref/4/publish", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_published":true`)
}

func TestPublishDref_LifecycleErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not approved", services.ErrDrefNotApproved, http.StatusBadRequest},
		{"wrapped", fmt.Errorf("update dref: %w", services.ErrPublished), http.StatusBadRequest},
		{"missing", sql.ErrNoRows, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			drefRouter(&fakeDrefs{publishErr: tt.err}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dref/4/publish", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCreateOperationalUpdate_Conflict(t *testing.T) {
	svc := &fakeDrefs{}
	rec := httptest.NewRecorder()
	drefRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dref_op_update", strings.NewReader(`{"dref":9}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"`+services.ErrUnpublishedUpdateExists.Error()+`"}`, rec.Body.String())
	assert.Equal(t, int64(9), svc.opUpdate.DrefID)
}

func TestCreateDref_RecordsCaller(t *testing.T) {
	userID := uuid.New()
	svc := &fakeDrefs{}
	req := httptest.NewRequest(http.MethodPost, "/dref", strings.NewReader(`{"title":"Cyclone"}`))
	req = req.WithContext(middleware.WithClaims(req.Context(), &auth.Claims{UserID: userID.String(), Kind: auth.AccessToken}))
	rec := httptest.NewRecorder()
	drefRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.createdBy)
	assert.Equal(t, userID, *svc.createdBy)
}

func TestListFinalReports_Filter(t *testing.T) {
	svc := &fakeDrefs{}
	rec := httptest.NewRecorder()
	drefRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dref_final_report?dref=3,5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{3, 5}, svc.drefFilter)
	assert.JSONEq(t, `{"count":0,"next":null,"previous":null,"results":[]}`, rec.Body.String())
}
