package handlers

import (
	"context"
	"net/http"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DrefStore interface {
	ListDrefs(ctx context.Context, params models.DrefFilterParams, p utils.Pagination) ([]models.Dref, int, error)
	GetDref(ctx context.Context, id int64) (*models.Dref, error)
	CreateDref(ctx context.Context, in models.DrefInput, createdBy *uuid.UUID) (*models.Dref, error)
	UpdateDref(ctx context.Context, id int64, in models.DrefInput) (*models.Dref, error)
	PublishDref(ctx context.Context, id int64) (*models.Dref, error)

	ListOperationalUpdates(ctx context.Context, drefs []int64, p utils.Pagination) ([]models.DrefOperationalUpdate, int, error)
	GetOperationalUpdate(ctx context.Context, id int64) (*models.DrefOperationalUpdate, error)
	CreateOperationalUpdate(ctx context.Context, in models.DrefOperationalUpdateInput) (*models.DrefOperationalUpdate, error)
	UpdateOperationalUpdate(ctx context.Context, id int64, in models.DrefOperationalUpdateInput) (*models.DrefOperationalUpdate, error)
	PublishOperationalUpdate(ctx context.Context, id int64) (*models.DrefOperationalUpdate, error)

	ListFinalReports(ctx context.Context, drefs []int64, p utils.Pagination) ([]models.DrefFinalReport, int, error)
	GetFinalReport(ctx context.Context, id int64) (*models.DrefFinalReport, error)
	CreateFinalReport(ctx context.Context, in models.DrefFinalReportInput) (*models.DrefFinalReport, error)
	UpdateFinalReport(ctx context.Context, id int64, in models.DrefFinalReportInput) (*models.DrefFinalReport, error)
	PublishFinalReport(ctx context.Context, id int64) (*models.DrefFinalReport, error)
}

// DrefHandler serves DREF applications together with their operational
// updates and final reports.
type DrefHandler struct {
	responder
	svc DrefStore
}

func NewDrefHandler(svc DrefStore, logr *zap.Logger, baseURL string) *DrefHandler {
	return &DrefHandler{responder: responder{logr: logr, baseURL: baseURL}, svc: svc}
}

// GET /dref
func (h *DrefHandler) ListDrefs(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.DrefFilterParams{
		Statuses:    f.ints("status"),
		Countries:   f.ids("country"),
		TypeOfDref:  f.ints("type_of_dref"),
		IsPublished: f.boolean("is_published"),
		Search:      f.str("search"),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid dref filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	drefs, count, err := h.svc.ListDrefs(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list drefs", err)
		return
	}
	h.page(w, r, p, count, drefs)
}

// GET /dref/{id}
func (h *DrefHandler) GetDref(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	dref, err := h.svc.GetDref(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to get dref", err)
		return
	}
	writeJSON(w, http.StatusOK, dref)
}

// POST /dref
func (h *DrefHandler) CreateDref(w http.ResponseWriter, r *http.Request) {
	var in models.DrefInput
	if !decodeJSON(w, r, &in) {
		return
	}
	dref, err := h.svc.CreateDref(r.Context(), in, callerID(r))
	if err != nil {
		h.fail(w, r, "failed to create dref", err)
		return
	}
	h.logr.Info("dref created", zap.Int64("id", dref.ID))
	writeJSON(w, http.StatusCreated, dref)
}

// PUT /dref/{id}
func (h *DrefHandler) UpdateDref(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.DrefInput
	if !decodeJSON(w, r, &in) {
		return
	}
	dref, err := h.svc.UpdateDref(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "failed to update dref", err)
		return
	}
	writeJSON(w, http.StatusOK, dref)
}

// POST /dref/{id}/publish
func (h *DrefHandler) PublishDref(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	dref, err := h.svc.PublishDref(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to publish dref", err)
		return
	}
	h.logr.Info("dref published", zap.Int64("id", id))
	writeJSON(w, http.StatusOK, dref)
}

// GET /dref_op_update
func (h *DrefHandler) ListOperationalUpdates(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	drefs := f.ids("dref")
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid operational update filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	updates, count, err := h.svc.ListOperationalUpdates(r.Context(), drefs, p)
	if err != nil {
		h.fail(w, r, "failed to list operational updates", err)
		return
	}
	h.page(w, r, p, count, updates)
}

// GET /dref_op_update/{id}
func (h *DrefHandler) GetOperationalUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	update, err := h.svc.GetOperationalUpdate(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to get operational update", err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

// POST /dref_op_update
func (h *DrefHandler) CreateOperationalUpdate(w http.ResponseWriter, r *http.Request) {
	var in models.DrefOperationalUpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	update, err := h.svc.CreateOperationalUpdate(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to create operational update", err)
		return
	}
	h.logr.Info("operational update created",
		zap.Int64("id", update.ID),
		zap.Int64("dref", update.DrefID),
		zap.Int("number", update.OperationalUpdateNumber),
	)
	writeJSON(w, http.StatusCreated, update)
}

// PUT /dref_op_update/{id}
func (h *DrefHandler) UpdateOperationalUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.DrefOperationalUpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	update, err := h.svc.UpdateOperationalUpdate(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "failed to update operational update", err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

// POST /dref_op_update/{id}/publish
func (h *DrefHandler) PublishOperationalUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	update, err := h.svc.PublishOperationalUpdate(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to publish operational update", err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

// GET /dref_final_report
func (h *DrefHandler) ListFinalReports(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	drefs := f.ids("dref")
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid final report filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	reports, count, err := h.svc.ListFinalReports(r.Context(), drefs, p)
	if err != nil {
		h.fail(w, r, "failed to list final reports", err)
		return
	}
	h.page(w, r, p, count, reports)
}

// GET /dref_final_report/{id}
func (h *DrefHandler) GetFinalReport(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	report, err := h.svc.GetFinalReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to get final report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// POST /dref_final_report
func (h *DrefHandler) CreateFinalReport(w http.ResponseWriter, r *http.Request) {
	var in models.DrefFinalReportInput
	if !decodeJSON(w, r, &in) {
		return
	}
	report, err := h.svc.CreateFinalReport(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to create final report", err)
		return
	}
	h.logr.Info("final report created", zap.Int64("id", report.ID), zap.Int64("dref", report.DrefID))
	writeJSON(w, http.StatusCreated, report)
}

// PUT /dref_final_report/{id}
func (h *DrefHandler) UpdateFinalReport(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.DrefFinalReportInput
	if !decodeJSON(w, r, &in) {
		return
	}
	report, err := h.svc.UpdateFinalReport(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "failed to update final report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// POST /dref_final_report/{id}/publish
func (h *DrefHandler) PublishFinalReport(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	report, err := h.svc.PublishFinalReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to publish final report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
