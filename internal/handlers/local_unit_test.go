package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLocalUnits struct {
	fc         *geojson.FeatureCollection
	lastParams models.LocalUnitFilterParams
}

func (f *fakeLocalUnits) ListLocalUnits(context.Context, models.LocalUnitFilterParams, string, utils.Pagination) ([]models.LocalUnit, int, error) {
	return []models.LocalUnit{}, 0, nil
}

func (f *fakeLocalUnits) GetLocalUnit(context.Context, int64) (*models.LocalUnit, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeLocalUnits) CreateLocalUnit(context.Context, models.LocalUnitInput) (*models.LocalUnit, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeLocalUnits) UpdateLocalUnit(context.Context, int64, models.LocalUnitInput) (*models.LocalUnit, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeLocalUnits) ValidateLocalUnit(context.Context, int64) (*models.LocalUnit, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeLocalUnits) GeoJSON(_ context.Context, params models.LocalUnitFilterParams) (*geojson.FeatureCollection, error) {
	f.lastParams = params
	return f.fc, nil
}

func localUnitRouter(svc LocalUnitStore) http.Handler {
	h := NewLocalUnitHandler(svc, zap.NewNop(), "https://go.example.org")
	r := chi.NewRouter()
	r.Get("/api/v2/local_units/geojson", h.GeoJSON)
	return r
}

func TestLocalUnitGeoJSON(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	feature := geojson.NewFeature(orb.Point{-0.19, 5.6})
	feature.Properties["local_branch_name"] = "Accra branch"
	fc.Append(feature)
	svc := &fakeLocalUnits{fc: fc}

	rec := httptest.NewRecorder()
	localUnitRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/local_units/geojson?country=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, []int64{3}, svc.lastParams.Countries)

	var body struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FeatureCollection", body.Type)
	require.Len(t, body.Features, 1)
	assert.Equal(t, "Accra branch", body.Features[0].Properties["local_branch_name"])
}

func TestLocalUnitGeoJSON_EncodeFailureIsServerError(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	feature := geojson.NewFeature(orb.Point{0, 0})
	feature.Properties["score"] = math.NaN()
	fc.Append(feature)

	rec := httptest.NewRecorder()
	localUnitRouter(&fakeLocalUnits{fc: fc}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/local_units/geojson", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEqual(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
