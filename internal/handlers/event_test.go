package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-api/internal/models"
	"go-api/internal/services"
	"go-api/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEvents struct {
	events     []models.Event
	lastParams models.EventFilterParams
	lastPage   utils.Pagination
	createErr  error
}

func (f *fakeEvents) ListEvents(_ context.Context, params models.EventFilterParams, p utils.Pagination) ([]models.Event, int, error) {
	f.lastParams, f.lastPage = params, p
	end := min(p.Offset+p.Limit, len(f.events))
	if p.Offset >= len(f.events) {
		return []models.Event{}, len(f.events), nil
	}
	return f.events[p.Offset:end], len(f.events), nil
}

func (f *fakeEvents) GetEvent(_ context.Context, id int64, _ string) (*models.Event, error) {
	for i := range f.events {
		if f.events[i].ID == id {
			return &f.events[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEvents) CreateEvent(_ context.Context, in models.EventInput) (*models.Event, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	e := models.Event{ID: int64(len(f.events) + 1), Name: in.Name}
	f.events = append(f.events, e)
	return &e, nil
}

func (f *fakeEvents) UpdateEvent(_ context.Context, id int64, in models.EventInput) (*models.Event, error) {
	e, err := f.GetEvent(context.Background(), id, "")
	if err != nil {
		return nil, err
	}
	e.Name = in.Name
	return e, nil
}

func (f *fakeEvents) DeleteEvent(_ context.Context, id int64) error {
	_, err := f.GetEvent(context.Background(), id, "")
	return err
}

func eventRouter(svc EventStore) http.Handler {
	h := NewEventHandler(svc, zap.NewNop(), "https://go.example.org")
	r := chi.NewRouter()
	r.Get("/api/v2/events", h.ListEvents)
	r.Get("/api/v2/events/{id}", h.GetEvent)
	r.Post("/api/v2/events", h.CreateEvent)
	r.Put("/api/v2/events/{id}", h.UpdateEvent)
	r.Delete("/api/v2/events/{id}", h.DeleteEvent)
	return r
}

func seedEvents(n int) *fakeEvents {
	f := &fakeEvents{}
	for i := 1; i <= n; i++ {
		f.events = append(f.events, models.Event{ID: int64(i), Name: fmt.Sprintf("event %d", i)})
	}
	return f
}

func TestListEvents_Envelope(t *testing.T) {
	svc := seedEvents(5)
	rec := httptest.NewRecorder()
	eventRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/events?limit=2&offset=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Count    int            `json:"count"`
		Next     *string        `json:"next"`
		Previous *string        `json:"previous"`
		Results  []models.Event `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 5, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, int64(3), page.Results[0].ID)
	require.NotNil(t, page.Next)
	assert.Equal(t, "https://go.example.org/api/v2/events?limit=2&offset=4", *page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "https://go.example.org/api/v2/events?limit=2", *page.Previous)
}

func TestListEvents_Filters(t *testing.T) {
	svc := seedEvents(1)
	req := httptest.NewRequest(http.MethodGet, "/api/v2/events?countries=3,4&countries=5&dtype=2&is_featured=true&disaster_start_date__gte=2024-01-01", nil)
	req.Header.Set("Accept-Language", "fr-CH, fr;q=0.9")
	rec := httptest.NewRecorder()
	eventRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{3, 4, 5}, svc.lastParams.Countries)
	assert.Equal(t, []int64{2}, svc.lastParams.DTypes)
	require.NotNil(t, svc.lastParams.IsFeatured)
	assert.True(t, *svc.lastParams.IsFeatured)
	require.NotNil(t, svc.lastParams.StartAfter)
	assert.Equal(t, "2024-01-01", svc.lastParams.StartAfter.Format("2006-01-02"))
	assert.Equal(t, "fr", svc.lastParams.Lang)
	assert.Equal(t, utils.DefaultLimit, svc.lastPage.Limit)
}

func TestListEvents_BadFilter(t *testing.T) {
	rec := httptest.NewRecorder()
	eventRouter(seedEvents(1)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/events?countries=abc&disaster_start_date__lte=yesterday", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Enter a number."}, body["countries"])
	assert.Equal(t, []string{"Enter a valid date."}, body["disaster_start_date__lte"])
}

func TestGetEvent_NotFound(t *testing.T) {
	for _, path := range []string{"/api/v2/events/99", "/api/v2/events/abc", "/api/v2/events/0"} {
		rec := httptest.NewRecorder()
		eventRouter(seedEvents(1)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"detail":"Not found."}`, rec.Body.String(), path)
	}
}

func TestCreateEvent(t *testing.T) {
	svc := seedEvents(0)
	rec := httptest.NewRecorder()
	eventRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v2/events", strings.NewReader(`{"name":"Floods"}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var e models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "Floods", e.Name)
}

func TestCreateEvent_Errors(t *testing.T) {
	t.Run("bad body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		eventRouter(seedEvents(0)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v2/events", strings.NewReader(`{`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"detail":"Invalid request body"}`, rec.Body.String())
	})

	t.Run("validation", func(t *testing.T) {
		svc := &fakeEvents{createErr: services.FieldError("name", "This field is required.")}
		rec := httptest.NewRecorder()
		eventRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v2/events", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"name":["This field is required."]}`, rec.Body.String())
	})

	t.Run("unexpected", func(t *testing.T) {
		svc := &fakeEvents{createErr: fmt.Errorf("insert event: %w", sql.ErrConnDone)}
		rec := httptest.NewRecorder()
		eventRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v2/events", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"detail":"Internal server error"}`, rec.Body.String())
	})
}

func TestDeleteEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	eventRouter(seedEvents(2)).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v2/events/2", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	eventRouter(seedEvents(2)).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v2/events/7", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
