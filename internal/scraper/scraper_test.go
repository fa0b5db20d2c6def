package scraper

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-api/internal/metrics"
	"go-api/internal/models"
	"go-api/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAppeals struct {
	mu      sync.Mutex
	appeals map[string]*models.Appeal
	docs    []models.AppealDocument
	filled  map[int64]models.AppealExtract
}

func newFakeAppeals(appeals ...*models.Appeal) *fakeAppeals {
	f := &fakeAppeals{appeals: map[string]*models.Appeal{}, filled: map[int64]models.AppealExtract{}}
	for _, a := range appeals {
		f.appeals[a.Code] = a
	}
	return f
}

func (f *fakeAppeals) FindByCode(_ context.Context, code string) (*models.Appeal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appeals[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func (f *fakeAppeals) UpsertDocument(_ context.Context, doc *models.AppealDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, *doc)
	return nil
}

func (f *fakeAppeals) FillMissingFields(_ context.Context, id int64, ex models.AppealExtract) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ex.Empty() {
		return false, nil
	}
	f.filled[id] = ex
	return true, nil
}

func strptr(s string) *string { return &s }

// docServer serves a feed and the documents it lists. The MDRKE050 document
// fails once before succeeding.
func docServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var flaky atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>docs</title>`)
		for _, code := range []string{"MDRPH052", "MDRXX999", "MDRKE050", "MDRBD001"} {
			fmt.Fprintf(&b, `<item><title>%s document</title><link>%s/docs/%s.pdf</link></item>`, code, base, code)
		}
		b.WriteString(`</channel></rss>`)
		_, _ = w.Write([]byte(b.String()))
	})
	mux.HandleFunc("/docs/MDRPH052.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleDocument))
	})
	mux.HandleFunc("/docs/MDRKE050.pdf", func(w http.ResponseWriter, r *http.Request) {
		if flaky.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("nothing to see here"))
	})
	mux.HandleFunc("/docs/MDRBD001.pdf", http.NotFound)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &flaky
}

func newTestScraper(t *testing.T, feedURL string, store AppealStore, root string, m *metrics.Metrics) *Scraper {
	t.Helper()
	opts := Options{FeedURL: feedURL, Concurrency: 2, Retries: 3, RetryDelay: time.Millisecond}
	s := New(opts, store, storage.NewFS(root), newTestExtractor(t), zap.NewNop(), m)
	return s.WithTextFunc(func(doc []byte) (string, error) { return string(doc), nil })
}

func TestScraper_Run(t *testing.T) {
	srv, flaky := docServer(t)
	store := newFakeAppeals(
		&models.Appeal{ID: 1, Code: "MDRPH052", Country: &models.Country{ISO: strptr("PH")}},
		&models.Appeal{ID: 2, Code: "MDRKE050"},
		&models.Appeal{ID: 3, Code: "MDRBD001"},
	)
	root := t.TempDir()
	m := metrics.New(prometheus.NewRegistry())

	report, err := newTestScraper(t, srv.URL+"/feed", store, root, m).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 4, report.Items)
	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped, "no appeal for MDRXX999")
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "MDRBD001", report.Errors[0].Code)
	assert.Contains(t, report.Errors[0].Err, "404")
	assert.Equal(t, int32(2), flaky.Load(), "503 retried once")

	b, err := os.ReadFile(filepath.Join(root, "appeals", "MDRPH052", "MDRPH052.pdf"))
	require.NoError(t, err)
	assert.Equal(t, sampleDocument, string(b))

	require.Len(t, store.docs, 2)
	for _, d := range store.docs {
		if d.AppealID == 1 {
			assert.Equal(t, "PH", d.ISO)
			assert.Equal(t, "MDRPH052 document", d.Name)
			assert.Equal(t, "appeals/MDRPH052/MDRPH052.pdf", d.Document)
		}
	}
	ex, ok := store.filled[1]
	require.True(t, ok)
	require.NotNil(t, ex.NumBeneficiaries)
	assert.Equal(t, 12500, *ex.NumBeneficiaries)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScrapedDocuments.WithLabelValues("stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScrapedDocuments.WithLabelValues("failed")))
}

func TestScraper_RunWithoutFeed(t *testing.T) {
	_, err := newTestScraper(t, "", newFakeAppeals(), t.TempDir(), nil).Run(context.Background())
	assert.Error(t, err)
}

func TestScraper_ProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []Item{
		{Code: "MDRPH052", URL: "http://127.0.0.1:1/a.pdf"},
		{Code: "MDRKE050", URL: "http://127.0.0.1:1/b.pdf"},
	}
	store := newFakeAppeals(&models.Appeal{ID: 1, Code: "MDRPH052"}, &models.Appeal{ID: 2, Code: "MDRKE050"})
	report := newTestScraper(t, "", store, t.TempDir(), nil).Process(ctx, items)

	assert.Equal(t, 2, report.Failed)
	assert.Zero(t, report.Stored)
	assert.Empty(t, store.docs)
}

func TestDocumentName(t *testing.T) {
	assert.Equal(t, "report.pdf", documentName("https://example.org/a/report.pdf?x=1"))
	assert.True(t, strings.HasSuffix(documentName("https://example.org/"), ".pdf"))
}
