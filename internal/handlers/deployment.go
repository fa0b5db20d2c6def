package handlers

import (
	"context"
	"net/http"

	"go-api/internal/models"
	"go-api/internal/utils"

	"go.uber.org/zap"
)

type DeploymentStore interface {
	ListDeployments(ctx context.Context, events []int64, p utils.Pagination) ([]models.PersonnelDeployment, int, error)
	CreateDeployment(ctx context.Context, in models.PersonnelDeploymentInput) (*models.PersonnelDeployment, error)
	ListPersonnel(ctx context.Context, params models.PersonnelFilterParams, p utils.Pagination) ([]models.Personnel, int, error)
	CreatePersonnel(ctx context.Context, in models.PersonnelInput) (*models.Personnel, error)
	ListERUs(ctx context.Context, params models.ERUFilterParams, p utils.Pagination) ([]models.ERU, int, error)
	Readiness(ctx context.Context) ([]models.ERUReadiness, error)
}

type DeploymentHandler struct {
	responder
	svc DeploymentStore
}

func NewDeploymentHandler(svc DeploymentStore, logr *zap.Logger, baseURL string) *DeploymentHandler {
	return &DeploymentHandler{responder: responder{logr: logr, baseURL: baseURL}, svc: svc}
}

// GET /deployments/deployment
func (h *DeploymentHandler) ListDeployments(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	events := f.ids("event_deployed_to")
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid deployment filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	deployments, count, err := h.svc.ListDeployments(r.Context(), events, p)
	if err != nil {
		h.fail(w, r, "failed to list deployments", err)
		return
	}
	h.page(w, r, p, count, deployments)
}

// POST /deployments/deployment
func (h *DeploymentHandler) CreateDeployment(w http.ResponseWriter, r *http.Request) {
	var in models.PersonnelDeploymentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	d, err := h.svc.CreateDeployment(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to create deployment", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GET /deployments/personnel
func (h *DeploymentHandler) ListPersonnel(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.PersonnelFilterParams{
		Types:       f.strings("type"),
		CountryFrom: f.ids("country_from"),
		DeployedTo:  f.ids("deployed_to"),
		Events:      f.ids("event_deployed_to"),
		IsActive:    f.boolean("is_active"),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid personnel filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	people, count, err := h.svc.ListPersonnel(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list personnel", err)
		return
	}
	h.page(w, r, p, count, people)
}

// POST /deployments/personnel
func (h *DeploymentHandler) CreatePersonnel(w http.ResponseWriter, r *http.Request) {
	var in models.PersonnelInput
	if !decodeJSON(w, r, &in) {
		return
	}
	person, err := h.svc.CreatePersonnel(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to create personnel", err)
		return
	}
	writeJSON(w, http.StatusCreated, person)
}

// GET /eru
func (h *DeploymentHandler) ListERUs(w http.ResponseWriter, r *http.Request) {
	f := newFilters(r)
	params := models.ERUFilterParams{
		Types:        f.ints("type"),
		Available:    f.boolean("available"),
		OwnerCountry: f.ids("eru_owner__national_society_country"),
		DeployedTo:   f.ids("deployed_to"),
	}
	if err := f.err(); err != nil {
		h.fail(w, r, "invalid eru filters", err)
		return
	}

	p := utils.ParsePagination(r.URL.Query())
	erus, count, err := h.svc.ListERUs(r.Context(), params, p)
	if err != nil {
		h.fail(w, r, "failed to list erus", err)
		return
	}
	h.page(w, r, p, count, erus)
}

// GET /eru/readiness
func (h *DeploymentHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Readiness(r.Context())
	if err != nil {
		h.fail(w, r, "failed to compute eru readiness", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
