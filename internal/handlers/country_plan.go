package handlers

import (
	"context"
	"net/http"

	"go-api/internal/middleware"
	"go-api/internal/models"
	"go-api/internal/utils"

	"go.uber.org/zap"
)

type CountryPlanStore interface {
	ListCountryPlans(ctx context.Context, params models.CountryPlanFilterParams, p utils.Pagination) ([]models.CountryPlan, int, error)
	GetCountryPlan(ctx context.Context, id int64, publishedOnly bool) (*models.CountryPlan, error)
}

type CountryPlanHandler struct {
	responder
	svc CountryPlanStore
}

func NewCountryPlanHandler(svc CountryPlanStore, logr *zap.Logger, baseURL string) *CountryPlanHandler {
	return &CountryPlanHandler{responder: responder{logr: logr, baseURL: baseURL}, svc: svc}
}

// anonymous callers only see published plans
func publishedOnly(r *http.Request) bool {
	_, ok := middleware.ClaimsFromContext(r.Context())
	return !ok
}

// GET /country_plan
func (h *CountryPlanHandler) ListCountryPlans(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.CountryPlanFilterParams{
		Countries:     f.ids("country"),
		Regions:       f.ints("region"),
		PublishedOnly: publishedOnly(r),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid country plan filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	plans, count, err := h.svc.ListCountryPlans(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list country plans", err)
		return
	}
	h.page(w, r, p, count, plans)
}

// GET /country_plan/{id}
func (h *CountryPlanHandler) GetCountryPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	plan, err := h.svc.GetCountryPlan(r.Context(), id, publishedOnly(r))
	if err != nil {
		h.fail(w, r, "failed to get country plan", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
