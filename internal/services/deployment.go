package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/uptrace/bun"
)

type DeploymentService struct {
	db *bun.DB
}

func NewDeploymentService(db *bun.DB) *DeploymentService {
	return &DeploymentService{db: db}
}

func (s *DeploymentService) ListDeployments(ctx context.Context, events []int64, p utils.Pagination) ([]models.PersonnelDeployment, int, error) {
	var deployments []models.PersonnelDeployment
	q := s.db.NewSelect().Model(&deployments)
	if len(events) > 0 {
		q = q.Where("pd.event_deployed_to_id IN (?)", bun.In(events))
	}
	count, err := q.OrderExpr("pd.created_at DESC, pd.id DESC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	return deployments, count, err
}

func (s *DeploymentService) CreateDeployment(ctx context.Context, in models.PersonnelDeploymentInput) (*models.PersonnelDeployment, error) {
	if in.CountryDeployedTo == nil && in.RegionDeployedTo == nil && in.EventDeployedTo == nil {
		return nil, FieldError("country_deployed_to", "A deployment needs a country, region or event.")
	}
	deployment := &models.PersonnelDeployment{
		CountryDeployedTo: in.CountryDeployedTo,
		RegionDeployedTo:  in.RegionDeployedTo,
		EventDeployedTo:   in.EventDeployedTo,
		Comments:          in.Comments,
	}
	if _, err := s.db.NewInsert().Model(deployment).Returning("*").Exec(ctx); err != nil {
		return nil, constraintError(err, "country_deployed_to")
	}
	return deployment, nil
}

func (s *DeploymentService) ListPersonnel(ctx context.Context, params models.PersonnelFilterParams, p utils.Pagination) ([]models.Personnel, int, error) {
	var personnel []models.Personnel
	q := s.db.NewSelect().Model(&personnel).Relation("Deployment")

	if len(params.Types) > 0 {
		q = q.Where("pe.type IN (?)", bun.In(stringsToLower(params.Types)))
	}
	if len(params.CountryFrom) > 0 {
		q = q.Where("pe.country_from_id IN (?)", bun.In(params.CountryFrom))
	}
	if len(params.DeployedTo) > 0 {
		q = q.Where("deployment.country_deployed_to_id IN (?)", bun.In(params.DeployedTo))
	}
	if len(params.Events) > 0 {
		q = q.Where("deployment.event_deployed_to_id IN (?)", bun.In(params.Events))
	}
	if params.IsActive != nil {
		q = q.Where("pe.is_active = ?", *params.IsActive)
	}

	count, err := q.OrderExpr("pe.start_date DESC NULLS LAST, pe.id DESC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	return personnel, count, err
}

func (s *DeploymentService) CreatePersonnel(ctx context.Context, in models.PersonnelInput) (*models.Personnel, error) {
	v := NewValidationError()
	if in.DeploymentID <= 0 {
		v.Add("deployment", "This field is required.")
	}
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "This field is required.")
	}
	kind := strings.ToLower(strings.TrimSpace(in.Type))
	if !slices.Contains(models.PersonnelTypes, kind) {
		v.Add("type", fmt.Sprintf("%q is not a valid choice.", in.Type))
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		v.Add("end_date", "End date must not be before start date.")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	person := &models.Personnel{
		DeploymentID:  in.DeploymentID,
		Name:          strings.TrimSpace(in.Name),
		Role:          in.Role,
		Type:          kind,
		CountryFromID: in.CountryFromID,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		IsActive:      active,
	}
	if _, err := s.db.NewInsert().Model(person).Returning("*").Exec(ctx); err != nil {
		return nil, constraintError(err, "deployment")
	}
	return person, nil
}

func (s *DeploymentService) ListERUs(ctx context.Context, params models.ERUFilterParams, p utils.Pagination) ([]models.ERU, int, error) {
	var erus []models.ERU
	q := s.db.NewSelect().Model(&erus).Relation("Owner")

	if len(params.Types) > 0 {
		q = q.Where("eru.type IN (?)", bun.In(params.Types))
	}
	if params.Available != nil {
		q = q.Where("eru.available = ?", *params.Available)
	}
	if len(params.OwnerCountry) > 0 {
		q = q.Where("owner.national_society_country_id IN (?)", bun.In(params.OwnerCountry))
	}
	if len(params.DeployedTo) > 0 {
		q = q.Where("eru.deployed_to_id IN (?)", bun.In(params.DeployedTo))
	}

	count, err := q.Order("eru.type ASC", "eru.id ASC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	return erus, count, err
}

// Readiness counts units per ERU type. Every known type appears, with
// zeros when no team of that type is registered.
func (s *DeploymentService) Readiness(ctx context.Context) ([]models.ERUReadiness, error) {
	var rows []models.ERUReadiness
	err := s.db.NewSelect().
		TableExpr("erus AS eru").
		ColumnExpr("eru.type").
		ColumnExpr("COALESCE(SUM(eru.units), 0) AS units").
		ColumnExpr("COALESCE(SUM(eru.equipment_units), 0) AS equipment_units").
		ColumnExpr("COUNT(*) FILTER (WHERE eru.available) AS available").
		ColumnExpr("COUNT(*) FILTER (WHERE eru.deployed_to_id IS NOT NULL) AS deployed").
		GroupExpr("eru.type").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return FillReadiness(rows), nil
}

// FillReadiness labels rows and adds empty rows for missing types.
func FillReadiness(rows []models.ERUReadiness) []models.ERUReadiness {
	byType := make(map[int]models.ERUReadiness, len(rows))
	for _, r := range rows {
		byType[r.Type] = r
	}
	out := make([]models.ERUReadiness, 0, len(models.ERUTypeLabels))
	for t, label := range models.ERUTypeLabels {
		r := byType[t]
		r.Type = t
		r.Label = label
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
