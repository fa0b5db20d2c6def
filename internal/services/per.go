package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/uptrace/bun"
)

type PerService struct {
	db *bun.DB
}

func NewPerService(db *bun.DB) *PerService {
	return &PerService{db: db}
}

func (s *PerService) ListOverviews(ctx context.Context, params models.PerOverviewFilterParams, p utils.Pagination) ([]models.PerOverview, int, error) {
	var overviews []models.PerOverview
	q := s.db.NewSelect().Model(&overviews).Relation("Country")

	if len(params.Countries) > 0 {
		q = q.Where("po.country_id IN (?)", bun.In(params.Countries))
	}
	if len(params.Phases) > 0 {
		q = q.Where("po.phase IN (?)", bun.In(params.Phases))
	}

	count, err := q.
		Order("po.country_id ASC", "po.assessment_number DESC").
		Limit(p.Limit).
		Offset(p.Offset).
		ScanAndCount(ctx)
	return overviews, count, err
}

func (s *PerService) GetOverview(ctx context.Context, id int64) (*models.PerOverview, error) {
	overview := new(models.PerOverview)
	err := s.db.NewSelect().
		Model(overview).
		Relation("Country").
		Relation("Ratings", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("pcr.component_id ASC")
		}).
		Where("po.id = ?", id).
		Scan(ctx)
	return overview, err
}

// CreateOverview numbers the assessment after the country's latest one.
func (s *PerService) CreateOverview(ctx context.Context, in models.PerOverviewInput) (*models.PerOverview, error) {
	if err := validateOverview(in); err != nil {
		return nil, err
	}

	overview := overviewFromInput(in)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Serialise numbering per country.
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", in.CountryID); err != nil {
			return err
		}
		var last sql.NullInt64
		err := tx.NewSelect().
			Model((*models.PerOverview)(nil)).
			ColumnExpr("MAX(assessment_number)").
			Where("country_id = ?", in.CountryID).
			Scan(ctx, &last)
		if err != nil {
			return err
		}
		overview.AssessmentNumber = int(last.Int64) + 1

		_, err = tx.NewInsert().Model(overview).Returning("*").Exec(ctx)
		return constraintError(err, "country")
	})
	if err != nil {
		return nil, err
	}
	return s.GetOverview(ctx, overview.ID)
}

func (s *PerService) UpdateOverview(ctx context.Context, id int64, in models.PerOverviewInput) (*models.PerOverview, error) {
	if err := validateOverview(in); err != nil {
		return nil, err
	}
	overview := overviewFromInput(in)
	overview.ID = id
	overview.UpdatedAt = time.Now().UTC()

	res, err := s.db.NewUpdate().
		Model(overview).
		Column("date_of_assessment", "type_of_assessment", "phase", "is_draft", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureAffected(res); err != nil {
		return nil, err
	}
	return s.GetOverview(ctx, id)
}

// PutRatings upserts component ratings of an overview. Ratings run 0..5.
func (s *PerService) PutRatings(ctx context.Context, overviewID int64, ratings []models.RatingInput) (*models.PerOverview, error) {
	if err := validateRatings(ratings); err != nil {
		return nil, err
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.PerOverview)(nil)).Where("id = ?", overviewID).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return sql.ErrNoRows
		}
		if len(ratings) == 0 {
			return nil
		}

		rows := make([]models.FormComponentRating, len(ratings))
		for i, r := range ratings {
			rows[i] = models.FormComponentRating{
				OverviewID:  overviewID,
				ComponentID: r.ComponentID,
				Rating:      r.Rating,
				Notes:       r.Notes,
			}
		}
		_, err = tx.NewInsert().
			Model(&rows).
			On("CONFLICT (overview_id, component_id) DO UPDATE").
			Set("rating = EXCLUDED.rating").
			Set("notes = EXCLUDED.notes").
			Exec(ctx)
		if err := constraintError(err, "component"); err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.PerOverview)(nil)).
			Set("updated_at = now()").
			Where("id = ?", overviewID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetOverview(ctx, overviewID)
}

// validateRatings checks each rating and rejects a component listed twice,
// which a single multi-row upsert cannot apply.
func validateRatings(ratings []models.RatingInput) error {
	v := NewValidationError()
	seen := make(map[int64]bool, len(ratings))
	for i, r := range ratings {
		if r.ComponentID <= 0 {
			v.Add(fmt.Sprintf("ratings[%d].component", i), "This field is required.")
		} else if seen[r.ComponentID] {
			v.Add(fmt.Sprintf("ratings[%d].component", i), "Duplicate component.")
		}
		seen[r.ComponentID] = true
		if r.Rating < 0 || r.Rating > models.MaxRating {
			v.Add(fmt.Sprintf("ratings[%d].rating", i), fmt.Sprintf("Ensure this value is between 0 and %d.", models.MaxRating))
		}
	}
	return v.Err()
}

func (s *PerService) ListAreas(ctx context.Context) ([]models.FormArea, error) {
	var areas []models.FormArea
	err := s.db.NewSelect().Model(&areas).Order("pfa.area_num ASC").Scan(ctx)
	return areas, err
}

func (s *PerService) ListComponents(ctx context.Context, areas []int64) ([]models.FormComponent, error) {
	var components []models.FormComponent
	q := s.db.NewSelect().Model(&components).Relation("Area")
	if len(areas) > 0 {
		q = q.Where("pfc.area_id IN (?)", bun.In(areas))
	}
	err := q.Order("area.area_num ASC", "pfc.component_num ASC", "pfc.component_letter ASC").Scan(ctx)
	return components, err
}

// Stats averages the reviewed ratings of the filtered assessments.
func (s *PerService) Stats(ctx context.Context, params models.PerStatsFilterParams) (*models.PerStats, error) {
	var rows []models.RatingRow
	q := s.db.NewSelect().
		TableExpr("per_component_ratings AS pcr").
		ColumnExpr("pcr.overview_id, po.country_id").
		ColumnExpr("pfa.area_num, pfa.title AS area_title").
		ColumnExpr("pcr.component_id, pfc.title AS component_title, pcr.rating").
		Join("JOIN per_overviews AS po ON po.id = pcr.overview_id").
		Join("JOIN per_form_components AS pfc ON pfc.id = pcr.component_id").
		Join("JOIN per_form_areas AS pfa ON pfa.id = pfc.area_id").
		Where("pcr.rating > 0")

	if len(params.Countries) > 0 {
		q = q.Where("po.country_id IN (?)", bun.In(params.Countries))
	}
	if len(params.Regions) > 0 {
		q = q.Where("po.country_id IN (SELECT id FROM countries WHERE region_id IN (?))", bun.In(params.Regions))
	}
	if len(params.Phases) > 0 {
		q = q.Where("po.phase IN (?)", bun.In(params.Phases))
	}

	if err := q.Scan(ctx, &rows); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("per stats: %w", err)
	}
	return ComputePerStats(rows), nil
}

// ComputePerStats aggregates rating rows per area and per component.
// Unreviewed (0) ratings are ignored. Averages are rounded to two places.
func ComputePerStats(rows []models.RatingRow) *models.PerStats {
	type acc struct {
		sum   int
		count int
	}
	overviews := map[int64]struct{}{}
	countries := map[int64]struct{}{}
	areas := map[int]*acc{}
	areaTitles := map[int]string{}
	components := map[int64]*acc{}
	componentInfo := map[int64]models.RatingRow{}

	for _, r := range rows {
		if r.Rating <= 0 {
			continue
		}
		overviews[r.OverviewID] = struct{}{}
		countries[r.CountryID] = struct{}{}

		if areas[r.AreaNum] == nil {
			areas[r.AreaNum] = &acc{}
			areaTitles[r.AreaNum] = r.AreaTitle
		}
		areas[r.AreaNum].sum += r.Rating
		areas[r.AreaNum].count++

		if components[r.ComponentID] == nil {
			components[r.ComponentID] = &acc{}
			componentInfo[r.ComponentID] = r
		}
		components[r.ComponentID].sum += r.Rating
		components[r.ComponentID].count++
	}

	stats := &models.PerStats{
		Assessments: len(overviews),
		Countries:   len(countries),
		Areas:       make([]models.AreaStat, 0, len(areas)),
		Components:  make([]models.ComponentStat, 0, len(components)),
	}
	for num, a := range areas {
		stats.Areas = append(stats.Areas, models.AreaStat{
			AreaNum:       num,
			Title:         areaTitles[num],
			AverageRating: round2(float64(a.sum) / float64(a.count)),
			RatingCount:   a.count,
		})
	}
	for id, c := range components {
		info := componentInfo[id]
		stats.Components = append(stats.Components, models.ComponentStat{
			ComponentID:   id,
			Title:         info.ComponentTitle,
			AreaNum:       info.AreaNum,
			AverageRating: round2(float64(c.sum) / float64(c.count)),
			RatingCount:   c.count,
		})
	}
	sort.Slice(stats.Areas, func(i, j int) bool { return stats.Areas[i].AreaNum < stats.Areas[j].AreaNum })
	sort.Slice(stats.Components, func(i, j int) bool {
		if stats.Components[i].AreaNum != stats.Components[j].AreaNum {
			return stats.Components[i].AreaNum < stats.Components[j].AreaNum
		}
		return stats.Components[i].ComponentID < stats.Components[j].ComponentID
	})
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func validateOverview(in models.PerOverviewInput) error {
	v := NewValidationError()
	if in.CountryID <= 0 {
		v.Add("country", "This field is required.")
	}
	if in.Phase != 0 && (in.Phase < models.PerPhaseOrientation || in.Phase > models.PerPhaseAction) {
		v.Add("phase", fmt.Sprintf("%d is not a valid choice.", in.Phase))
	}
	return v.Err()
}

func overviewFromInput(in models.PerOverviewInput) *models.PerOverview {
	phase := in.Phase
	if phase == 0 {
		phase = models.PerPhaseOrientation
	}
	isDraft := true
	if in.IsDraft != nil {
		isDraft = *in.IsDraft
	}
	return &models.PerOverview{
		CountryID:        in.CountryID,
		DateOfAssessment: in.DateOfAssessment,
		TypeOfAssessment: in.TypeOfAssessment,
		Phase:            phase,
		IsDraft:          isDraft,
	}
}
