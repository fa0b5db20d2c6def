package handlers

import (
	"context"
	"net/http"

	"go-api/internal/middleware"
	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FieldReportStore interface {
	ListFieldReports(ctx context.Context, params models.FieldReportFilterParams, p utils.Pagination) ([]models.FieldReport, int, error)
	GetFieldReport(ctx context.Context, id int64, lang string) (*models.FieldReport, error)
	CreateFieldReport(ctx context.Context, in models.FieldReportInput, userID *uuid.UUID) (*models.FieldReport, error)
	UpdateFieldReport(ctx context.Context, id int64, in models.FieldReportInput) (*models.FieldReport, error)
}

type FieldReportHandler struct {
	responder
	svc FieldReportStore
}

func NewFieldReportHandler(svc FieldReportStore, logr *zap.Logger, baseURL string) *FieldReportHandler {
	return &FieldReportHandler{responder: responder{logr: logr, baseURL: baseURL}, svc: svc}
}

// callerID returns the authenticated user's id, if the token carries one.
func callerID(r *http.Request) *uuid.UUID {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return nil
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil
	}
	return &id
}

// GET /field_reports
func (h *FieldReportHandler) ListFieldReports(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.FieldReportFilterParams{
		DTypes:     f.ids("dtype"),
		Countries:  f.ids("countries"),
		Regions:    f.ints("regions"),
		Events:     f.ids("event"),
		Statuses:   f.ints("status"),
		Visibility: f.ints("visibility"),
		Search:     f.str("search"),
		Lang:       language(r),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid field report filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	reports, count, err := h.svc.ListFieldReports(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list field reports", err)
		return
	}
	h.page(w, r, p, count, reports)
}

// GET /field_reports/{id}
func (h *FieldReportHandler) GetFieldReport(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	report, err := h.svc.GetFieldReport(r.Context(), id, language(r))
	if err != nil {
		h.fail(w, r, "failed to get field report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// POST /field_reports
func (h *FieldReportHandler) CreateFieldReport(w http.ResponseWriter, r *http.Request) {
	var in models.FieldReportInput
	if !decodeJSON(w, r, &in) {
		return
	}
	report, err := h.svc.CreateFieldReport(r.Context(), in, callerID(r))
	if err != nil {
		h.fail(w, r, "failed to create field report", err)
		return
	}
	h.logr.Info("field report created",
		zap.Int64("id", report.ID),
		zap.Bool("create_event", in.CreateEvent),
	)
	writeJSON(w, http.StatusCreated, report)
}

// PUT /field_reports/{id}
func (h *FieldReportHandler) UpdateFieldReport(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.FieldReportInput
	if !decodeJSON(w, r, &in) {
		return
	}
	report, err := h.svc.UpdateFieldReport(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "failed to update field report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
