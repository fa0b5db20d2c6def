package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "go_api"

// Metrics groups every collector the API and the batch jobs update.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	ScrapedDocuments *prometheus.CounterVec
	ScrapeDuration   prometheus.Summary
	ImportedRows     *prometheus.CounterVec
	Translations     *prometheus.CounterVec
	SummaryRuns      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{}
	m.RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status code",
	}, []string{"method", "route", "status"})
	m.RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	m.ScrapedDocuments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scraper_documents_total",
		Help:      "Appeal documents processed by the scraper by outcome",
	}, []string{"status"})
	m.ScrapeDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "scraper_run_duration_seconds",
		Help:      "Time spent in a full scraper run",
	})
	m.ImportedRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "importer_rows_total",
		Help:      "Country plan spreadsheet rows by outcome",
	}, []string{"status"})
	m.Translations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "translations_total",
		Help:      "Machine translated fields by target language and outcome",
	}, []string{"language", "status"})
	m.SummaryRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ops_learning_summaries_total",
		Help:      "Ops learning summary requests by resulting cache status",
	}, []string{"status"})

	if reg != nil {
		reg.MustRegister(
			m.RequestsTotal, m.RequestDuration,
			m.ScrapedDocuments, m.ScrapeDuration,
			m.ImportedRows, m.Translations, m.SummaryRuns,
		)
	}
	return m
}
