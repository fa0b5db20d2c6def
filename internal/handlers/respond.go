package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go-api/internal/services"
	"go-api/internal/utils"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// responder carries what every handler needs to answer a request.
type responder struct {
	logr    *zap.Logger
	baseURL string
}

func (rs responder) page(w http.ResponseWriter, r *http.Request, p utils.Pagination, count int, results any) {
	writeJSON(w, http.StatusOK, utils.NewPage(r, rs.baseURL, p, count, results))
}

// fail maps service errors onto HTTP answers. Anything unrecognised is a
// 500, logged and reported to Sentry.
func (rs responder) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, sql.ErrNoRows):
		writeDetail(w, http.StatusNotFound, "Not found.")
	case services.IsLifecycleError(err):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrForbidden):
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, context.Canceled):
		rs.logr.Debug("request cancelled", zap.String("path", r.URL.Path))
	default:
		rs.logr.Error(msg, zap.Error(err), zap.String("path", r.URL.Path))
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// idParam reads the {id} URL param. It answers 404 itself when the id is
// not a positive integer.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func language(r *http.Request) string {
	return utils.PreferredLanguage(r.Header.Get("Accept-Language"))
}

// filters collects query parsing problems into one validation error.
type filters struct {
	q url.Values
	v *services.ValidationError
}

func newFilters(r *http.Request) *filters {
	return &filters{q: r.URL.Query(), v: services.NewValidationError()}
}

func (f *filters) ids(key string) []int64 {
	out, bad := utils.ParseInt64List(f.q, key)
	for range bad {
		f.v.Add(key, "Enter a number.")
	}
	return out
}

func (f *filters) ints(key string) []int {
	out, bad := utils.ParseIntList(f.q, key)
	for range bad {
		f.v.Add(key, "Enter a number.")
	}
	return out
}

func (f *filters) strings(key string) []string {
	return utils.ParseQueryList(f.q, key)
}

func (f *filters) str(key string) string {
	return f.q.Get(key)
}

func (f *filters) boolean(key string) *bool {
	return utils.ParseBool(f.q, key)
}

func (f *filters) date(key string) *time.Time {
	d, err := utils.ParseDate(f.q, key)
	if err != nil {
		f.v.Add(key, "Enter a valid date.")
		return nil
	}
	return d
}

func (f *filters) err() error {
	return f.v.Err()
}
