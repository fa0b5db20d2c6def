package handlers

import (
	"context"
	"net/http"

	"go-api/internal/models"
	"go-api/internal/utils"

	"go.uber.org/zap"
)

type EventStore interface {
	ListEvents(ctx context.Context, params models.EventFilterParams, p utils.Pagination) ([]models.Event, int, error)
	GetEvent(ctx context.Context, id int64, lang string) (*models.Event, error)
	CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error)
	UpdateEvent(ctx context.Context, id int64, in models.EventInput) (*models.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

type EventHandler struct {
	responder
	svc EventStore
}

func NewEventHandler(svc EventStore, logr *zap.Logger, baseURL string) *EventHandler {
	return &EventHandler{responder: responder{logr: logr, baseURL: baseURL}, svc: svc}
}

// GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.EventFilterParams{
		DTypes:      f.ids("dtype"),
		Countries:   f.ids("countries"),
		Regions:     f.ints("regions"),
		StartAfter:  f.date("disaster_start_date__gte"),
		StartBefore: f.date("disaster_start_date__lte"),
		IsFeatured:  f.boolean("is_featured"),
		Search:      f.str("search"),
		Lang:        language(r),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid event filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	events, count, err := h.svc.ListEvents(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list events", err)
		return
	}
	h.page(w, r, p, count, events)
}

// GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	event, err := h.svc.GetEvent(r.Context(), id, language(r))
	if err != nil {
		h.fail(w, r, "failed to get event", err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in models.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	event, err := h.svc.CreateEvent(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to create event", err)
		return
	}
	h.logr.Info("event created", zap.Int64("id", event.ID))
	writeJSON(w, http.StatusCreated, event)
}

// PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in models.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	event, err := h.svc.UpdateEvent(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "failed to update event", err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteEvent(r.Context(), id); err != nil {
		h.fail(w, r, "failed to delete event", err)
		return
	}
	h.logr.Info("event deleted", zap.Int64("id", id))
	w.WriteHeader(http.StatusNoContent)
}
