package translate

import (
	"context"

	"go-api/internal/metrics"
	"go-api/internal/models"
	"go-api/internal/services"

	"go.uber.org/zap"
)

// Store is the part of the translation service the runner uses.
type Store interface {
	Pending(ctx context.Context, f models.TranslatableField, lang string, afterID int64, limit int) ([]services.PendingItem, error)
	Save(ctx context.Context, t *models.Translation) error
}

type Runner struct {
	store     Store
	provider  Provider
	languages []string
	batchSize int
	logr      *zap.Logger
	metrics   *metrics.Metrics
}

// NewRunner builds a runner. m may be nil.
func NewRunner(store Store, provider Provider, languages []string, batchSize int, logr *zap.Logger, m *metrics.Metrics) *Runner {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Runner{store: store, provider: provider, languages: languages, batchSize: batchSize, logr: logr, metrics: m}
}

// Result counts what a run did.
type Result struct {
	Translated int `json:"translated"`
	Failed     int `json:"failed"`
}

// Run translates every pending field into every configured language. Provider
// errors are logged per item; only store errors and cancellation stop the run.
func (r *Runner) Run(ctx context.Context, fields []models.TranslatableField) (Result, error) {
	var total Result
	for _, f := range fields {
		for _, lang := range r.languages {
			res, err := r.runField(ctx, f, lang)
			total.Translated += res.Translated
			total.Failed += res.Failed
			if err != nil {
				return total, err
			}
			if res.Translated+res.Failed > 0 {
				r.logr.Info("translated field",
					zap.String("model", f.Model),
					zap.String("field", f.Field),
					zap.String("language", lang),
					zap.Int("translated", res.Translated),
					zap.Int("failed", res.Failed),
				)
			}
		}
	}
	return total, nil
}

// runField pages through the pending rows by id, so every row is tried once
// per run whether or not the provider accepts it.
func (r *Runner) runField(ctx context.Context, f models.TranslatableField, lang string) (Result, error) {
	var (
		res    Result
		cursor int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		items, err := r.store.Pending(ctx, f, lang, cursor, r.batchSize)
		if err != nil {
			return res, err
		}

		for _, item := range items {
			cursor = item.ObjectID
			text, err := r.provider.Translate(ctx, item.Text, lang)
			if err != nil {
				res.Failed++
				r.count(lang, "failed")
				r.logr.Warn("translation failed",
					zap.String("model", f.Model),
					zap.String("field", f.Field),
					zap.Int64("id", item.ObjectID),
					zap.String("language", lang),
					zap.Error(err),
				)
				continue
			}
			err = r.store.Save(ctx, &models.Translation{
				Model:    f.Model,
				ObjectID: item.ObjectID,
				Field:    f.Field,
				Language: lang,
				Text:     text,
			})
			if err != nil {
				return res, err
			}
			res.Translated++
			r.count(lang, "ok")
		}

		if len(items) < r.batchSize {
			return res, nil
		}
	}
}

func (r *Runner) count(lang, status string) {
	if r.metrics != nil {
		r.metrics.Translations.WithLabelValues(lang, status).Inc()
	}
}
