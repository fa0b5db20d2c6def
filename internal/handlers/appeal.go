package handlers

import (
	"context"
	"net/http"

	"go-api/internal/models"
	"go-api/internal/utils"

	"go.uber.org/zap"
)

type AppealStore interface {
	ListAppeals(ctx context.Context, params models.AppealFilterParams, p utils.Pagination) ([]models.Appeal, int, error)
	GetAppeal(ctx context.Context, id int64, lang string) (*models.Appeal, error)
	CreateAppeal(ctx context.Context, in models.AppealInput) (*models.Appeal, error)
	UpdateAppeal(ctx context.Context, id int64, in models.AppealInput) (*models.Appeal, error)
	Aggregate(ctx context.Context, params models.AppealFilterParams) (*models.AppealAggregate, error)
	ListDocuments(ctx context.Context, params models.AppealDocumentFilterParams, p utils.Pagination) ([]models.AppealDocument, int, error)
}

type AppealHandler struct {
	responder
	svc AppealStore
}

func NewAppealHandler(svc AppealStore, logr *zap.Logger, baseURL string) *AppealHandler {
	return &AppealHandler{responder: responder{logr: logr, baseURL: baseURL}, svc: svc}
}

func appealFilters(r *http.Request) (models.AppealFilterParams, error) {
	f := newFilters(r)
	params := models.AppealFilterParams{
		ATypes:      f.ints("atype"),
		Statuses:    f.ints("status"),
		Countries:   f.ids("country"),
		Regions:     f.ints("region"),
		Codes:       f.strings("code"),
		Events:      f.ids("event"),
		StartAfter:  f.date("start_date__gte"),
		StartBefore: f.date("start_date__lte"),
		EndAfter:    f.date("end_date__gte"),
		EndBefore:   f.date("end_date__lte"),
		Search:      f.str("search"),
		Lang:        language(r),
	}
	return params, f.err()
}

// GET /appeals
func (h *AppealHandler) ListAppeals(w http.ResponseWriter, r *http.Request) {
	params, err := appealFilters(r)
	if err != nil {
		h.fail(w, r, "invalid appeal filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	appeals, count, err := h.svc.ListAppeals(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list appeals", err)
		return
	}
	h.page(w, r, p, count, appeals)
}

// GET /appeals/aggregate
func (h *AppealHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	params, err := appealFilters(r)
	if err != nil {
		h.fail(w, r, "invalid appeal filters", err)
		return
	}
	agg, err := h.svc.Aggregate(r.Context(), params)
	if err != nil {
		h.fail(w, r, "failed to aggregate appeals", err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

// GET /appeals/{id}
func (h *AppealHandler) GetAppeal(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	appeal, err := h.svc.GetAppeal(r.Context(), id, language(r))
	if err != nil {
		h.fail(w, r, "failed to get appeal", err)
		return
	}
	writeJSON(w, http.StatusOK, appeal)
}

// POST /appeals
func (h *AppealHandler) CreateAppeal(w http.ResponseWriter, r *http.Request) {
	var in models.AppealInput
	if !decodeJSON(w, r, &in) {
		return
	}
	appeal, err := h.svc.CreateAppeal(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to create appeal", err)
		return
	}
	h.logr.Info("appeal created", zap.Int64("id", appeal.ID), zap.String("code", appeal.Code))
	writeJSON(w, http.StatusCreated, appeal)
}

// PUT /appeals/{id}
func (h *AppealHandler) UpdateAppeal(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.AppealInput
	if !decodeJSON(w, r, &in) {
		return
	}
	appeal, err := h.svc.UpdateAppeal(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "failed to update appeal", err)
		return
	}
	writeJSON(w, http.StatusOK, appeal)
}

// GET /appeal_documents
func (h *AppealHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.AppealDocumentFilterParams{
		Appeals:     f.ids("appeal"),
		AppealCodes: f.strings("appeal_code"),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid appeal document filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	docs, count, err := h.svc.ListDocuments(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list appeal documents", err)
		return
	}
	h.page(w, r, p, count, docs)
}
