package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/paulmach/orb/geojson"
	"github.com/uptrace/bun"
)

// geoJSONLimit caps the features returned by one GeoJSON request.
const geoJSONLimit = 10000

type LocalUnitService struct {
	db *bun.DB
	tr *TranslationService
}

func NewLocalUnitService(db *bun.DB, tr *TranslationService) *LocalUnitService {
	return &LocalUnitService{db: db, tr: tr}
}

func applyLocalUnitFilters(q *bun.SelectQuery, params models.LocalUnitFilterParams) *bun.SelectQuery {
	if len(params.Countries) > 0 {
		q = q.Where("lu.country_id IN (?)", bun.In(params.Countries))
	}
	if len(params.Types) > 0 {
		q = q.Where("lu.type_id IN (?)", bun.In(params.Types))
	}
	if params.Validated != nil {
		q = q.Where("lu.validated = ?", *params.Validated)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("lu.local_branch_name ILIKE ?", search).
				WhereOr("lu.english_branch_name ILIKE ?", search).
				WhereOr("lu.city_en ILIKE ?", search)
		})
	}
	return q
}

func (s *LocalUnitService) ListLocalUnits(ctx context.Context, params models.LocalUnitFilterParams, lang string, p utils.Pagination) ([]models.LocalUnit, int, error) {
	var units []models.LocalUnit
	q := applyLocalUnitFilters(s.db.NewSelect().Model(&units), params)

	count, err := q.Order("lu.english_branch_name ASC", "lu.id ASC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := s.translate(ctx, lang, units); err != nil {
		return nil, 0, err
	}
	return units, count, nil
}

func (s *LocalUnitService) GetLocalUnit(ctx context.Context, id int64) (*models.LocalUnit, error) {
	unit := new(models.LocalUnit)
	err := s.db.NewSelect().Model(unit).Where("lu.id = ?", id).Scan(ctx)
	return unit, err
}

func (s *LocalUnitService) CreateLocalUnit(ctx context.Context, in models.LocalUnitInput) (*models.LocalUnit, error) {
	if err := validateLocalUnit(in); err != nil {
		return nil, err
	}
	unit := localUnitFromInput(in)
	if _, err := s.db.NewInsert().Model(unit).Returning("*").Exec(ctx); err != nil {
		return nil, constraintError(err, "country")
	}
	return unit, nil
}

// UpdateLocalUnit replaces the unit's fields. Any edit clears validation.
func (s *LocalUnitService) UpdateLocalUnit(ctx context.Context, id int64, in models.LocalUnitInput) (*models.LocalUnit, error) {
	if err := validateLocalUnit(in); err != nil {
		return nil, err
	}
	unit := localUnitFromInput(in)
	unit.ID = id
	unit.Validated = false
	unit.ModifiedAt = time.Now().UTC()

	res, err := s.db.NewUpdate().
		Model(unit).
		ExcludeColumn("id", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, constraintError(err, "country")
	}
	if err := ensureAffected(res); err != nil {
		return nil, err
	}
	return s.GetLocalUnit(ctx, id)
}

// ValidateLocalUnit marks the unit as checked by its National Society.
func (s *LocalUnitService) ValidateLocalUnit(ctx context.Context, id int64) (*models.LocalUnit, error) {
	res, err := s.db.NewUpdate().
		Model((*models.LocalUnit)(nil)).
		Set("validated = true").
		Set("modified_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureAffected(res); err != nil {
		return nil, err
	}
	return s.GetLocalUnit(ctx, id)
}

// GeoJSON returns the filtered units as a feature collection.
func (s *LocalUnitService) GeoJSON(ctx context.Context, params models.LocalUnitFilterParams) (*geojson.FeatureCollection, error) {
	var units []models.LocalUnit
	err := applyLocalUnitFilters(s.db.NewSelect().Model(&units), params).
		Order("lu.id ASC").
		Limit(geoJSONLimit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return LocalUnitFeatures(units), nil
}

// LocalUnitFeatures converts units into GeoJSON features. Units without a
// location are left out.
func LocalUnitFeatures(units []models.LocalUnit) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, u := range units {
		if !u.Location.Valid {
			continue
		}
		f := geojson.NewFeature(u.Location.Point)
		f.ID = u.ID
		f.Properties["country_id"] = u.CountryID
		f.Properties["type"] = u.TypeID
		f.Properties["local_branch_name"] = u.LocalBranchName
		f.Properties["english_branch_name"] = u.EnglishBranchName
		f.Properties["city_en"] = u.CityEn
		f.Properties["validated"] = u.Validated
		fc.Append(f)
	}
	return fc
}

func (s *LocalUnitService) translate(ctx context.Context, lang string, units []models.LocalUnit) error {
	ids := make([]int64, len(units))
	index := make(map[int64]int, len(units))
	for i, u := range units {
		ids[i] = u.ID
		index[u.ID] = i
	}
	return s.tr.overlay(ctx, "local_unit", lang, ids, func(id int64, fields map[string]string) {
		if v, ok := fields["english_branch_name"]; ok {
			units[index[id]].EnglishBranchName = v
		}
	})
}

func validateLocalUnit(in models.LocalUnitInput) error {
	v := NewValidationError()
	if in.CountryID <= 0 {
		v.Add("country", "This field is required.")
	}
	if !models.ValidLocalUnitType(in.TypeID) {
		v.Add("type", fmt.Sprintf("%d is not a valid choice.", in.TypeID))
	}
	if strings.TrimSpace(in.LocalBranchName) == "" && strings.TrimSpace(in.EnglishBranchName) == "" {
		v.Add("local_branch_name", "Either local or English branch name is required.")
	}
	if err := in.Location.Validate(); err != nil {
		v.Add("location", err.Error())
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			v.Add("email", "Enter a valid email address.")
		}
	}
	if in.Visibility != 0 && !models.ValidVisibility(in.Visibility) {
		v.Add("visibility", fmt.Sprintf("%d is not a valid choice.", in.Visibility))
	}
	return v.Err()
}

func localUnitFromInput(in models.LocalUnitInput) *models.LocalUnit {
	visibility := in.Visibility
	if visibility == 0 {
		visibility = models.VisibilityMembership
	}
	return &models.LocalUnit{
		CountryID:         in.CountryID,
		TypeID:            in.TypeID,
		LocalBranchName:   strings.TrimSpace(in.LocalBranchName),
		EnglishBranchName: strings.TrimSpace(in.EnglishBranchName),
		AddressLoc:        in.AddressLoc,
		AddressEn:         in.AddressEn,
		CityLoc:           in.CityLoc,
		CityEn:            in.CityEn,
		Postcode:          in.Postcode,
		Phone:             in.Phone,
		Email:             strings.TrimSpace(in.Email),
		Link:              in.Link,
		Location:          in.Location,
		Visibility:        visibility,
		DateOfData:        in.DateOfData,
	}
}
