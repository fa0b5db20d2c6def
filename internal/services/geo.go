package services

import (
	"context"
	"strings"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/uptrace/bun"
)

// GeoService serves the geographic lookups: regions, countries, districts,
// admin2 units and disaster types.
type GeoService struct {
	db *bun.DB
}

func NewGeoService(db *bun.DB) *GeoService {
	return &GeoService{db: db}
}

func (s *GeoService) ListRegions(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	err := s.db.NewSelect().Model(&regions).Order("id ASC").Scan(ctx)
	return regions, err
}

// ListCountries returns countries ordered by name, filtered by params.
func (s *GeoService) ListCountries(ctx context.Context, params models.CountryFilterParams, p utils.Pagination) ([]models.Country, int, error) {
	var countries []models.Country
	q := s.db.NewSelect().Model(&countries)

	if len(params.Regions) > 0 {
		q = q.Where("c.region_id IN (?)", bun.In(params.Regions))
	}
	if len(params.ISO) > 0 {
		q = q.Where("LOWER(c.iso) IN (?)", bun.In(stringsToLower(params.ISO)))
	}
	if len(params.ISO3) > 0 {
		q = q.Where("LOWER(c.iso3) IN (?)", bun.In(stringsToLower(params.ISO3)))
	}
	if len(params.RecordTypes) > 0 {
		q = q.Where("c.record_type IN (?)", bun.In(params.RecordTypes))
	}
	if params.Deprecated != nil {
		q = q.Where("c.is_deprecated = ?", *params.Deprecated)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("c.name ILIKE ?", search).
				WhereOr("c.society_name ILIKE ?", search).
				WhereOr("c.iso3 ILIKE ?", search)
		})
	}

	count, err := q.Order("c.name ASC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	return countries, count, err
}

func (s *GeoService) GetCountry(ctx context.Context, id int64) (*models.Country, error) {
	country := new(models.Country)
	err := s.db.NewSelect().Model(country).Where("c.id = ?", id).Scan(ctx)
	return country, err
}

// CountryByISO3 resolves a country by its ISO3 code, case-insensitively.
func (s *GeoService) CountryByISO3(ctx context.Context, iso3 string) (*models.Country, error) {
	country := new(models.Country)
	err := s.db.NewSelect().
		Model(country).
		Where("UPPER(c.iso3) = ?", strings.ToUpper(strings.TrimSpace(iso3))).
		Scan(ctx)
	return country, err
}

func (s *GeoService) ListDistricts(ctx context.Context, params models.DistrictFilterParams, p utils.Pagination) ([]models.District, int, error) {
	var districts []models.District
	q := s.db.NewSelect().Model(&districts).Where("d.is_deprecated = false")

	if len(params.Countries) > 0 {
		q = q.Where("d.country_id IN (?)", bun.In(params.Countries))
	}
	if params.Search != "" {
		q = q.Where("d.name ILIKE ?", "%"+params.Search+"%")
	}

	count, err := q.Order("d.name ASC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	return districts, count, err
}

func (s *GeoService) GetDistrict(ctx context.Context, id int64) (*models.District, error) {
	district := new(models.District)
	err := s.db.NewSelect().
		Model(district).
		Relation("Country").
		Where("d.id = ?", id).
		Scan(ctx)
	return district, err
}

func (s *GeoService) ListAdmin2(ctx context.Context, districts []int64, p utils.Pagination) ([]models.Admin2, int, error) {
	var rows []models.Admin2
	q := s.db.NewSelect().Model(&rows)
	if len(districts) > 0 {
		q = q.Where("a2.district_id IN (?)", bun.In(districts))
	}
	count, err := q.Order("a2.name ASC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	return rows, count, err
}

func (s *GeoService) ListDisasterTypes(ctx context.Context) ([]models.DisasterType, error) {
	var types []models.DisasterType
	err := s.db.NewSelect().Model(&types).Order("dt.name ASC").Scan(ctx)
	return types, err
}

func stringsToLower(arr []string) []string {
	out := make([]string, len(arr))
	for i, v := range arr {
		out[i] = strings.ToLower(v)
	}
	return out
}

func stringsToUpper(arr []string) []string {
	out := make([]string, len(arr))
	for i, v := range arr {
		out[i] = strings.ToUpper(v)
	}
	return out
}
