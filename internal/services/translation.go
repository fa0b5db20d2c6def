package services

import (
	"context"
	"fmt"

	"go-api/internal/models"

	"github.com/uptrace/bun"
)

// TranslationService reads and writes machine translations of text fields.
type TranslationService struct {
	db *bun.DB
}

func NewTranslationService(db *bun.DB) *TranslationService {
	return &TranslationService{db: db}
}

// Lookup returns objectID → field → text for the given model and language.
func (s *TranslationService) Lookup(ctx context.Context, model string, ids []int64, lang string) (map[int64]map[string]string, error) {
	out := map[int64]map[string]string{}
	if lang == "" || len(ids) == 0 {
		return out, nil
	}

	var rows []models.Translation
	err := s.db.NewSelect().
		Model(&rows).
		Where("tr.model = ?", model).
		Where("tr.language = ?", lang).
		Where("tr.object_id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup translations: %w", err)
	}

	for _, row := range rows {
		if out[row.ObjectID] == nil {
			out[row.ObjectID] = map[string]string{}
		}
		out[row.ObjectID][row.Field] = row.Text
	}
	return out, nil
}

// PendingItem is a field value that has no translation yet.
type PendingItem struct {
	ObjectID int64  `bun:"id"`
	Text     string `bun:"text"`
}

// Pending lists up to limit rows of f with an id above afterID that lack a
// translation into lang, in id order. Empty source texts are skipped.
func (s *TranslationService) Pending(ctx context.Context, f models.TranslatableField, lang string, afterID int64, limit int) ([]PendingItem, error) {
	var items []PendingItem
	err := s.db.NewSelect().
		ColumnExpr("src.id").
		ColumnExpr("src.? AS text", bun.Ident(f.Field)).
		TableExpr("? AS src", bun.Ident(f.Table)).
		Where("src.id > ?", afterID).
		Where("COALESCE(src.?, '') <> ''", bun.Ident(f.Field)).
		Where(`NOT EXISTS (
			SELECT 1 FROM translations t
			WHERE t.model = ? AND t.field = ? AND t.language = ? AND t.object_id = src.id)`,
			f.Model, f.Field, lang).
		OrderExpr("src.id ASC").
		Limit(limit).
		Scan(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("pending %s.%s: %w", f.Table, f.Field, err)
	}
	return items, nil
}

// Save upserts a translation.
func (s *TranslationService) Save(ctx context.Context, t *models.Translation) error {
	_, err := s.db.NewInsert().
		Model(t).
		On("CONFLICT (model, object_id, field, language) DO UPDATE").
		Set("text = EXCLUDED.text").
		Exec(ctx)
	return err
}

// overlay replaces translatable fields of each object with their stored
// translation, leaving fields without one untouched.
func (s *TranslationService) overlay(ctx context.Context, model, lang string, ids []int64, apply func(id int64, fields map[string]string)) error {
	if s == nil || lang == "" || len(ids) == 0 {
		return nil
	}
	found, err := s.Lookup(ctx, model, ids, lang)
	if err != nil {
		return err
	}
	for id, fields := range found {
		apply(id, fields)
	}
	return nil
}
