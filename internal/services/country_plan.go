package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/uptrace/bun"
)

// ErrUnknownCountry is returned by ImportRow when no country has the ISO3.
var ErrUnknownCountry = errors.New("unknown country")

type CountryPlanService struct {
	db *bun.DB
}

func NewCountryPlanService(db *bun.DB) *CountryPlanService {
	return &CountryPlanService{db: db}
}

func (s *CountryPlanService) ListCountryPlans(ctx context.Context, params models.CountryPlanFilterParams, p utils.Pagination) ([]models.CountryPlan, int, error) {
	var plans []models.CountryPlan
	q := s.db.NewSelect().
		Model(&plans).
		Relation("Country").
		Relation("StrategicPriorities", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sp.type ASC")
		})

	if len(params.Countries) > 0 {
		q = q.Where("cp.country_id IN (?)", bun.In(params.Countries))
	}
	if len(params.Regions) > 0 {
		q = q.Where("country.region_id IN (?)", bun.In(params.Regions))
	}
	if params.PublishedOnly {
		q = q.Where("cp.is_publish = true")
	}

	count, err := q.Order("country.name ASC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	return plans, count, err
}

func (s *CountryPlanService) GetCountryPlan(ctx context.Context, id int64, publishedOnly bool) (*models.CountryPlan, error) {
	plan := new(models.CountryPlan)
	q := s.db.NewSelect().
		Model(plan).
		Relation("Country").
		Relation("StrategicPriorities", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sp.type ASC")
		}).
		Where("cp.id = ?", id)
	if publishedOnly {
		q = q.Where("cp.is_publish = true")
	}
	err := q.Scan(ctx)
	return plan, err
}

// ImportRow upserts one country plan and its strategic priorities in a
// single transaction. A failing row leaves nothing behind.
func (s *CountryPlanService) ImportRow(ctx context.Context, row models.CountryPlanRow) error {
	iso3 := strings.ToUpper(strings.TrimSpace(row.ISO3))
	if iso3 == "" {
		return fmt.Errorf("%w: empty ISO3", ErrUnknownCountry)
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		country := new(models.Country)
		err := tx.NewSelect().Model(country).Where("UPPER(c.iso3) = ?", iso3).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrUnknownCountry, iso3)
		}
		if err != nil {
			return err
		}

		plan := &models.CountryPlan{
			CountryID:       country.ID,
			RequestedAmount: row.RequestedAmount,
			PeopleTargeted:  row.PeopleTargeted,
		}
		_, err = tx.NewInsert().
			Model(plan).
			On("CONFLICT (country_id) DO UPDATE").
			Set("requested_amount = EXCLUDED.requested_amount").
			Set("people_targeted = EXCLUDED.people_targeted").
			Set("updated_at = now()").
			Returning("id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert country plan: %w", err)
		}

		if len(row.Priorities) == 0 {
			return nil
		}
		priorities := make([]models.StrategicPriority, len(row.Priorities))
		for i, pr := range row.Priorities {
			priorities[i] = models.StrategicPriority{
				CountryPlanID:      plan.ID,
				Type:               pr.Type,
				FundingRequirement: pr.FundingRequirement,
				PeopleTargeted:     pr.PeopleTargeted,
			}
		}
		_, err = tx.NewInsert().
			Model(&priorities).
			On("CONFLICT (country_plan_id, type) DO UPDATE").
			Set("funding_requirement = EXCLUDED.funding_requirement").
			Set("people_targeted = EXCLUDED.people_targeted").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert strategic priorities: %w", err)
		}
		return nil
	})
}
