package handlers

import (
	"context"
	"net/http"

	"go-api/internal/models"
	"go-api/internal/utils"

	"go.uber.org/zap"
)

type GeoStore interface {
	ListRegions(ctx context.Context) ([]models.Region, error)
	ListCountries(ctx context.Context, params models.CountryFilterParams, p utils.Pagination) ([]models.Country, int, error)
	GetCountry(ctx context.Context, id int64) (*models.Country, error)
	ListDistricts(ctx context.Context, params models.DistrictFilterParams, p utils.Pagination) ([]models.District, int, error)
	GetDistrict(ctx context.Context, id int64) (*models.District, error)
	ListAdmin2(ctx context.Context, districts []int64, p utils.Pagination) ([]models.Admin2, int, error)
	ListDisasterTypes(ctx context.Context) ([]models.DisasterType, error)
}

type GeoHandler struct {
	responder
	svc GeoStore
}

func NewGeoHandler(svc GeoStore, logr *zap.Logger, baseURL string) *GeoHandler {
	return &GeoHandler{responder: responder{logr: logr, baseURL: baseURL}, svc: svc}
}

// GET /regions
func (h *GeoHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.svc.ListRegions(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list regions", err)
		return
	}
	p := utils.Pagination{Limit: max(len(regions), 1)}
	h.page(w, r, p, len(regions), regions)
}

// GET /countries
func (h *GeoHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.CountryFilterParams{
		Regions:     f.ints("region"),
		ISO:         f.strings("iso"),
		ISO3:        f.strings("iso3"),
		RecordTypes: f.ints("record_type"),
		Search:      f.str("search"),
		Deprecated:  f.boolean("is_deprecated"),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid country filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	countries, count, err := h.svc.ListCountries(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list countries", err)
		return
	}
	h.page(w, r, p, count, countries)
}

// GET /countries/{id}
func (h *GeoHandler) GetCountry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	country, err := h.svc.GetCountry(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to get country", err)
		return
	}
	writeJSON(w, http.StatusOK, country)
}

// GET /countries/{id}/districts
func (h *GeoHandler) CountryDistricts(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.GetCountry(r.Context(), id); err != nil {
		h.fail(w, r, "failed to get country", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	districts, count, err := h.svc.ListDistricts(r.Context(), models.DistrictFilterParams{Countries: []int64{id}}, p)
	if err != nil {
		h.fail(w, r, "failed to list districts", err)
		return
	}
	h.page(w, r, p, count, districts)
}

// GET /districts
func (h *GeoHandler) ListDistricts(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.DistrictFilterParams{
		Countries: f.ids("country"),
		Search:    f.str("search"),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid district filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	districts, count, err := h.svc.ListDistricts(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list districts", err)
		return
	}
	h.page(w, r, p, count, districts)
}

// GET /districts/{id}
func (h *GeoHandler) GetDistrict(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	district, err := h.svc.GetDistrict(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to get district", err)
		return
	}
	writeJSON(w, http.StatusOK, district)
}

// GET /admin2
func (h *GeoHandler) ListAdmin2(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	districts := f.ids("district")
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid admin2 filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	areas, count, err := h.svc.ListAdmin2(r.Context(), districts, p)
	if err != nil {
		h.fail(w, r, "failed to list admin2", err)
		return
	}
	h.page(w, r, p, count, areas)
}

// GET /disaster_types
func (h *GeoHandler) ListDisasterTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.ListDisasterTypes(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list disaster types", err)
		return
	}
	h.page(w, r, utils.Pagination{Limit: max(len(types), 1)}, len(types), types)
}
