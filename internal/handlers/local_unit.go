package handlers

import (
	"context"
	"net/http"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

type LocalUnitStore interface {
	ListLocalUnits(ctx context.Context, params models.LocalUnitFilterParams, lang string, p utils.Pagination) ([]models.LocalUnit, int, error)
	GetLocalUnit(ctx context.Context, id int64) (*models.LocalUnit, error)
	CreateLocalUnit(ctx context.Context, in models.LocalUnitInput) (*models.LocalUnit, error)
	UpdateLocalUnit(ctx context.Context, id int64, in models.LocalUnitInput) (*models.LocalUnit, error)
	ValidateLocalUnit(ctx context.Context, id int64) (*models.LocalUnit, error)
	GeoJSON(ctx context.Context, params models.LocalUnitFilterParams) (*geojson.FeatureCollection, error)
}

type LocalUnitHandler struct {
	responder
	svc LocalUnitStore
}

func NewLocalUnitHandler(svc LocalUnitStore, logr *zap.Logger, baseURL string) *LocalUnitHandler {
	return &LocalUnitHandler{responder: responder{logr: logr, baseURL: baseURL}, svc: svc}
}

func localUnitFilters(r *http.Request) (models.LocalUnitFilterParams, error) {
	f := newFilters(r)
	params := models.LocalUnitFilterParams{
		Countries: f.ids("country"),
		Types:     f.ints("type"),
		Validated: f.boolean("validated"),
		Search:    f.str("search"),
	}
	return params, f.err()
}

// GET /local_units
func (h *LocalUnitHandler) ListLocalUnits(w http.ResponseWriter, r *http.Request) {
	params, err := localUnitFilters(r)
	if err != nil {
		h.fail(w, r, "invalid local unit filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	units, count, err := h.svc.ListLocalUnits(r.Context(), params, language(r), p)
	if err != nil {
		h.fail(w, r, "failed to list local units", err)
		return
	}
	h.page(w, r, p, count, units)
}

// GET /local_units/geojson
func (h *LocalUnitHandler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	params, err := localUnitFilters(r)
	if err != nil {
		h.fail(w, r, "invalid local unit filters", err)
		return
	}
	fc, err := h.svc.GeoJSON(r.Context(), params)
	if err != nil {
		h.fail(w, r, "failed to build local unit geojson", err)
		return
	}
	raw, err := fc.MarshalJSON()
	if err != nil {
		h.fail(w, r, "failed to encode local unit geojson", err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// GET /local_units/{id}
func (h *LocalUnitHandler) GetLocalUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	unit, err := h.svc.GetLocalUnit(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to get local unit", err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

// POST /local_units
func (h *LocalUnitHandler) CreateLocalUnit(w http.ResponseWriter, r *http.Request) {
	var in models.LocalUnitInput
	if !decodeJSON(w, r, &in) {
		return
	}
	unit, err := h.svc.CreateLocalUnit(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to create local unit", err)
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

// PUT /local_units/{id}
func (h *LocalUnitHandler) UpdateLocalUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.LocalUnitInput
	if !decodeJSON(w, r, &in) {
		return
	}
	unit, err := h.svc.UpdateLocalUnit(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "failed to update local unit", err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

// POST /local_units/{id}/validate
func (h *LocalUnitHandler) ValidateLocalUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	unit, err := h.svc.ValidateLocalUnit(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to validate local unit", err)
		return
	}
	h.logr.Info("local unit validated", zap.Int64("id", id))
	writeJSON(w, http.StatusOK, unit)
}
