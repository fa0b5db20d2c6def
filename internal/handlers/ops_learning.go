package handlers

import (
	"context"
	"net/http"

	"go-api/internal/metrics"
	"go-api/internal/models"
	"go-api/internal/utils"

	"go.uber.org/zap"
)

type OpsLearningStore interface {
	ListLearnings(ctx context.Context, params models.OpsLearningFilterParams, lang string, p utils.Pagination) ([]models.OpsLearning, int, error)
	GetOrCreateSummary(ctx context.Context, params models.OpsLearningFilterParams) (*models.OpsLearningCacheResponse, error)
}

type OpsLearningHandler struct {
	responder
	svc     OpsLearningStore
	metrics *metrics.Metrics
}

// NewOpsLearningHandler builds the handler; m may be nil.
func NewOpsLearningHandler(svc OpsLearningStore, logr *zap.Logger, baseURL string, m *metrics.Metrics) *OpsLearningHandler {
	return &OpsLearningHandler{responder: responder{logr: logr, baseURL: baseURL}, svc: svc, metrics: m}
}

func opsLearningFilters(r *http.Request) (models.OpsLearningFilterParams, error) {
	f := newFilters(r)
	params := models.OpsLearningFilterParams{
		Countries:     f.ids("country"),
		Regions:       f.ints("region"),
		Sectors:       f.strings("sector"),
		PerComponents: f.ids("per_component"),
		AppealCodes:   f.strings("appeal_code"),
		IsValidated:   f.boolean("is_validated"),
		Search:        f.str("search"),
	}
	return params, f.err()
}

// GET /ops_learning
func (h *OpsLearningHandler) ListLearnings(w http.ResponseWriter, r *http.Request) {
	params, err := opsLearningFilters(r)
	if err != nil {
		h.fail(w, r, "invalid ops learning filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	learnings, count, err := h.svc.ListLearnings(r.Context(), params, language(r), p)
	if err != nil {
		h.fail(w, r, "failed to list ops learnings", err)
		return
	}
	h.page(w, r, p, count, learnings)
}

// GET /ops_learning/summary
func (h *OpsLearningHandler) Summary(w http.ResponseWriter, r *http.Request) {
	params, err := opsLearningFilters(r)
	if err != nil {
		h.fail(w, r, "invalid ops learning filters", err)
		return
	}
	summary, err := h.svc.GetOrCreateSummary(r.Context(), params)
	if err != nil {
		h.fail(w, r, "failed to build ops learning summary", err)
		return
	}
	if h.metrics != nil {
		h.metrics.SummaryRuns.WithLabelValues(models.CacheStatusNames[summary.Status]).Inc()
	}
	writeJSON(w, http.StatusOK, summary)
}
