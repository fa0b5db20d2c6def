package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// summaryInputLimit bounds how many learnings feed one summary.
const summaryInputLimit = 500

type Insight struct {
	Title   string
	Content string
}

// Summary is what a Summarizer produces for a set of learnings.
type Summary struct {
	Insights             []Insight
	SectorSummaries      []models.SectorSummary
	ContradictoryReports string
}

// Summarizer condenses operational learnings. An empty Summary with no
// error means there was nothing to summarise.
type Summarizer interface {
	Summarize(ctx context.Context, learnings []models.OpsLearning) (*Summary, error)
}

type OpsLearningService struct {
	db         *bun.DB
	tr         *TranslationService
	summarizer Summarizer
	logr       *zap.Logger
}

func NewOpsLearningService(db *bun.DB, tr *TranslationService, summarizer Summarizer, logr *zap.Logger) *OpsLearningService {
	return &OpsLearningService{db: db, tr: tr, summarizer: summarizer, logr: logr}
}

func applyOpsLearningFilters(q *bun.SelectQuery, params models.OpsLearningFilterParams) *bun.SelectQuery {
	if len(params.Countries) > 0 {
		q = q.Where("ol.country_id IN (?)", bun.In(params.Countries))
	}
	if len(params.Regions) > 0 {
		q = q.Where("ol.country_id IN (SELECT id FROM countries WHERE region_id IN (?))", bun.In(params.Regions))
	}
	if len(params.Sectors) > 0 {
		q = q.Where("LOWER(ol.sector) IN (?)", bun.In(stringsToLower(params.Sectors)))
	}
	if len(params.PerComponents) > 0 {
		q = q.Where("ol.per_component_id IN (?)", bun.In(params.PerComponents))
	}
	if len(params.AppealCodes) > 0 {
		q = q.Where("UPPER(ol.appeal_code) IN (?)", bun.In(stringsToUpper(params.AppealCodes)))
	}
	if params.IsValidated != nil {
		q = q.Where("ol.is_validated = ?", *params.IsValidated)
	}
	if params.Search != "" {
		q = q.Where("ol.learning ILIKE ?", "%"+params.Search+"%")
	}
	return q
}

func (s *OpsLearningService) ListLearnings(ctx context.Context, params models.OpsLearningFilterParams, lang string, p utils.Pagination) ([]models.OpsLearning, int, error) {
	var learnings []models.OpsLearning
	q := applyOpsLearningFilters(s.db.NewSelect().Model(&learnings).Relation("PerComponent"), params)

	count, err := q.OrderExpr("ol.created_at DESC, ol.id DESC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int64, len(learnings))
	index := make(map[int64]int, len(learnings))
	for i, l := range learnings {
		ids[i] = l.ID
		index[l.ID] = i
	}
	err = s.tr.overlay(ctx, "ops_learning", lang, ids, func(id int64, fields map[string]string) {
		if v, ok := fields["learning"]; ok {
			learnings[index[id]].Learning = v
		}
	})
	return learnings, count, err
}

// NormalizeFilters sorts list values and drops empties so equal filter sets
// produce equal keys. is_validated is left out since summaries always read
// validated learnings.
func NormalizeFilters(params models.OpsLearningFilterParams) map[string]any {
	out := map[string]any{}
	if ids := uniqueIDs(params.Countries); len(ids) > 0 {
		out["country"] = ids
	}
	if len(params.Regions) > 0 {
		regions := append([]int(nil), params.Regions...)
		sort.Ints(regions)
		out["region"] = dedupeInts(regions)
	}
	if v := normalizeStrings(params.Sectors, strings.ToLower); len(v) > 0 {
		out["sector"] = v
	}
	if ids := uniqueIDs(params.PerComponents); len(ids) > 0 {
		out["per_component"] = ids
	}
	if v := normalizeStrings(params.AppealCodes, strings.ToUpper); len(v) > 0 {
		out["appeal_code"] = v
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		out["search"] = search
	}
	return out
}

// FilterHash is the sha256 hex of the canonical JSON of the normalised
// filters, returned with those filters. encoding/json writes map keys sorted.
func FilterHash(params models.OpsLearningFilterParams) (string, map[string]any, error) {
	filters := NormalizeFilters(params)
	canonical, err := json.Marshal(filters)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), filters, nil
}

// GetOrCreateSummary returns the cached summary for the filter set,
// computing it on a miss. Concurrent callers for the same filters serialise
// on the cache row, so the summariser runs once.
func (s *OpsLearningService) GetOrCreateSummary(ctx context.Context, params models.OpsLearningFilterParams) (*models.OpsLearningCacheResponse, error) {
	hash, filters, err := FilterHash(params)
	if err != nil {
		return nil, fmt.Errorf("hash filters: %w", err)
	}

	cached := new(models.OpsLearningCacheResponse)
	err = s.db.NewSelect().Model(cached).Where("olc.used_filters_hash = ?", hash).Scan(ctx)
	if err == nil && isFinalCacheStatus(cached.Status) {
		return cached, nil
	}

	row := new(models.OpsLearningCacheResponse)
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		pending := &models.OpsLearningCacheResponse{
			UsedFiltersHash: hash,
			UsedFilters:     filters,
			Status:          models.CacheStatusPending,
			SectorSummaries: []models.SectorSummary{},
		}
		_, err := tx.NewInsert().
			Model(pending).
			On("CONFLICT (used_filters_hash) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}

		if err := tx.NewSelect().Model(row).Where("olc.used_filters_hash = ?", hash).For("UPDATE").Scan(ctx); err != nil {
			return err
		}
		if isFinalCacheStatus(row.Status) {
			return nil
		}

		learnings, err := s.summaryInput(ctx, tx, params)
		if err != nil {
			return err
		}

		summary, sumErr := s.summarize(ctx, learnings)
		applySummary(row, summary, sumErr)
		if sumErr != nil {
			s.logr.Error("ops learning summary failed", zap.String("hash", hash), zap.Error(sumErr))
		}
		row.ModifiedAt = time.Now().UTC()

		_, err = tx.NewUpdate().
			Model(row).
			Column("status", "insight1_title", "insight1_content", "insight2_title", "insight2_content",
				"insight3_title", "insight3_content", "sector_summaries", "contradictory_reports", "modified_at").
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *OpsLearningService) summarize(ctx context.Context, learnings []models.OpsLearning) (*Summary, error) {
	if len(learnings) == 0 {
		return &Summary{}, nil
	}
	return s.summarizer.Summarize(ctx, learnings)
}

// summaryInput loads validated learnings matching the filters, newest first.
func (s *OpsLearningService) summaryInput(ctx context.Context, db bun.IDB, params models.OpsLearningFilterParams) ([]models.OpsLearning, error) {
	validated := true
	params.IsValidated = &validated

	var learnings []models.OpsLearning
	q := applyOpsLearningFilters(db.NewSelect().Model(&learnings).Relation("PerComponent"), params)
	err := q.OrderExpr("ol.created_at DESC, ol.id DESC").Limit(summaryInputLimit).Scan(ctx)
	return learnings, err
}

// applySummary writes the outcome onto the cache row.
func applySummary(row *models.OpsLearningCacheResponse, summary *Summary, err error) {
	switch {
	case err != nil:
		row.Status = models.CacheStatusFailed
		return
	case summary == nil || len(summary.Insights) == 0:
		row.Status = models.CacheStatusNoEvidence
		row.SectorSummaries = []models.SectorSummary{}
		return
	}

	row.Status = models.CacheStatusSuccess
	titles := []*string{&row.Insight1Title, &row.Insight2Title, &row.Insight3Title}
	contents := []*string{&row.Insight1Content, &row.Insight2Content, &row.Insight3Content}
	for i := range titles {
		*titles[i], *contents[i] = "", ""
		if i < len(summary.Insights) {
			*titles[i] = summary.Insights[i].Title
			*contents[i] = summary.Insights[i].Content
		}
	}
	row.SectorSummaries = summary.SectorSummaries
	if row.SectorSummaries == nil {
		row.SectorSummaries = []models.SectorSummary{}
	}
	row.ContradictoryReports = summary.ContradictoryReports
}

func isFinalCacheStatus(status int) bool {
	return status == models.CacheStatusSuccess || status == models.CacheStatusNoEvidence
}

func normalizeStrings(values []string, fold func(string) string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = fold(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func dedupeInts(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
