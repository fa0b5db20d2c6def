package handlers

import (
	"context"
	"net/http"

	"go-api/internal/models"
	"go-api/internal/utils"

	"go.uber.org/zap"
)

type PerStore interface {
	ListOverviews(ctx context.Context, params models.PerOverviewFilterParams, p utils.Pagination) ([]models.PerOverview, int, error)
	GetOverview(ctx context.Context, id int64) (*models.PerOverview, error)
	CreateOverview(ctx context.Context, in models.PerOverviewInput) (*models.PerOverview, error)
	UpdateOverview(ctx context.Context, id int64, in models.PerOverviewInput) (*models.PerOverview, error)
	PutRatings(ctx context.Context, overviewID int64, ratings []models.RatingInput) (*models.PerOverview, error)
	ListAreas(ctx context.Context) ([]models.FormArea, error)
	ListComponents(ctx context.Context, areas []int64) ([]models.FormComponent, error)
	Stats(ctx context.Context, params models.PerStatsFilterParams) (*models.PerStats, error)
}

type PerHandler struct {
	responder
	svc PerStore
}

func NewPerHandler(svc PerStore, logr *zap.Logger, baseURL string) *PerHandler {
	return &PerHandler{responder: responder{logr: logr, baseURL: baseURL}, svc: svc}
}

// GET /per_overview
func (h *PerHandler) ListOverviews(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.PerOverviewFilterParams{
		Countries: f.ids("country"),
		Phases:    f.ints("phase"),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid per overview filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	overviews, count, err := h.svc.ListOverviews(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list per overviews", err)
		return
	}
	h.page(w, r, p, count, overviews)
}

// GET /per_overview/{id}
func (h *PerHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	overview, err := h.svc.GetOverview(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to get per overview", err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// POST /per_overview
func (h *PerHandler) CreateOverview(w http.ResponseWriter, r *http.Request) {
	var in models.PerOverviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	overview, err := h.svc.CreateOverview(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to create per overview", err)
		return
	}
	h.logr.Info("per overview created",
		zap.Int64("id", overview.ID),
		zap.Int64("country", overview.CountryID),
		zap.Int("assessment_number", overview.AssessmentNumber),
	)
	writeJSON(w, http.StatusCreated, overview)
}

// PUT /per_overview/{id}
func (h *PerHandler) UpdateOverview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.PerOverviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	overview, err := h.svc.UpdateOverview(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "failed to update per overview", err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// PUT /per_overview/{id}/ratings
func (h *PerHandler) PutRatings(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var ratings []models.RatingInput
	if !decodeJSON(w, r, &ratings) {
		return
	}
	overview, err := h.svc.PutRatings(r.Context(), id, ratings)
	if err != nil {
		h.fail(w, r, "failed to store per ratings", err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// GET /per_stats
func (h *PerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.PerStatsFilterParams{
		Countries: f.ids("country"),
		Regions:   f.ints("region"),
		Phases:    f.ints("phase"),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid per stats filters", err)
		return
	}
	stats, err := h.svc.Stats(r.Context(), params)
	if err != nil {
		h.fail(w, r, "failed to compute per stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /per_formarea
func (h *PerHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.svc.ListAreas(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list per areas", err)
		return
	}
	h.page(w, r, utils.Pagination{Limit: max(len(areas), 1)}, len(areas), areas)
}

// GET /per_formcomponent
func (h *PerHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	areas := f.ids("area")
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid per component filters", err)
		return
	}
	components, err := h.svc.ListComponents(r.Context(), areas)
	if err != nil {
		h.fail(w, r, "failed to list per components", err)
		return
	}
	h.page(w, r, utils.Pagination{Limit: max(len(components), 1)}, len(components), components)
}
