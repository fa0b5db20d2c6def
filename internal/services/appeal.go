package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/uptrace/bun"
)

type AppealService struct {
	db *bun.DB
	tr *TranslationService
}

func NewAppealService(db *bun.DB, tr *TranslationService) *AppealService {
	return &AppealService{db: db, tr: tr}
}

func applyAppealFilters(q *bun.SelectQuery, params models.AppealFilterParams) *bun.SelectQuery {
	if len(params.ATypes) > 0 {
		q = q.Where("ap.atype IN (?)", bun.In(params.ATypes))
	}
	if len(params.Statuses) > 0 {
		q = q.Where("ap.status IN (?)", bun.In(params.Statuses))
	}
	if len(params.Countries) > 0 {
		q = q.Where("ap.country_id IN (?)", bun.In(params.Countries))
	}
	if len(params.Regions) > 0 {
		q = q.Where("ap.region_id IN (?)", bun.In(params.Regions))
	}
	if len(params.Codes) > 0 {
		q = q.Where("UPPER(ap.code) IN (?)", bun.In(stringsToUpper(params.Codes)))
	}
	if len(params.Events) > 0 {
		q = q.Where("ap.event_id IN (?)", bun.In(params.Events))
	}
	if params.StartAfter != nil {
		q = q.Where("ap.start_date >= ?", *params.StartAfter)
	}
	if params.StartBefore != nil {
		q = q.Where("ap.start_date <= ?", *params.StartBefore)
	}
	if params.EndAfter != nil {
		q = q.Where("ap.end_date >= ?", *params.EndAfter)
	}
	if params.EndBefore != nil {
		q = q.Where("ap.end_date <= ?", *params.EndBefore)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("ap.name ILIKE ?", search).WhereOr("ap.code ILIKE ?", search)
		})
	}
	return q
}

func (s *AppealService) ListAppeals(ctx context.Context, params models.AppealFilterParams, p utils.Pagination) ([]models.Appeal, int, error) {
	var appeals []models.Appeal
	q := applyAppealFilters(s.db.NewSelect().Model(&appeals).Relation("Country"), params)

	count, err := q.
		OrderExpr("ap.start_date DESC NULLS LAST, ap.id DESC").
		Limit(p.Limit).
		Offset(p.Offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := s.translate(ctx, params.Lang, appeals); err != nil {
		return nil, 0, err
	}
	return appeals, count, nil
}

func (s *AppealService) GetAppeal(ctx context.Context, id int64, lang string) (*models.Appeal, error) {
	appeal := new(models.Appeal)
	err := s.db.NewSelect().Model(appeal).Relation("Country").Where("ap.id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	appeals := []models.Appeal{*appeal}
	if err := s.translate(ctx, lang, appeals); err != nil {
		return nil, err
	}
	return &appeals[0], nil
}

// FindByCode looks an appeal up by its code, case-insensitively.
func (s *AppealService) FindByCode(ctx context.Context, code string) (*models.Appeal, error) {
	appeal := new(models.Appeal)
	err := s.db.NewSelect().
		Model(appeal).
		Relation("Country").
		Where("UPPER(ap.code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		Scan(ctx)
	return appeal, err
}

func (s *AppealService) CreateAppeal(ctx context.Context, in models.AppealInput) (*models.Appeal, error) {
	if err := validateAppeal(in); err != nil {
		return nil, err
	}
	appeal := appealFromInput(in)
	if _, err := s.db.NewInsert().Model(appeal).Returning("*").Exec(ctx); err != nil {
		return nil, constraintError(err, "code")
	}
	return s.GetAppeal(ctx, appeal.ID, "")
}

func (s *AppealService) UpdateAppeal(ctx context.Context, id int64, in models.AppealInput) (*models.Appeal, error) {
	if err := validateAppeal(in); err != nil {
		return nil, err
	}
	appeal := appealFromInput(in)
	appeal.ID = id
	appeal.ModifiedAt = time.Now().UTC()

	res, err := s.db.NewUpdate().
		Model(appeal).
		ExcludeColumn("id", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, constraintError(err, "code")
	}
	if err := ensureAffected(res); err != nil {
		return nil, err
	}
	return s.GetAppeal(ctx, id, "")
}

// Aggregate totals the filtered appeals. Active counts only cover status
// active; sums cover every matched appeal.
func (s *AppealService) Aggregate(ctx context.Context, params models.AppealFilterParams) (*models.AppealAggregate, error) {
	agg := new(models.AppealAggregate)
	q := s.db.NewSelect().
		TableExpr("appeals AS ap").
		ColumnExpr("COUNT(*) FILTER (WHERE ap.status = ? AND ap.atype <> ?) AS active_appeals", models.AppealStatusActive, models.AppealTypeDREF).
		ColumnExpr("COUNT(*) FILTER (WHERE ap.status = ? AND ap.atype = ?) AS active_drefs", models.AppealStatusActive, models.AppealTypeDREF).
		ColumnExpr("COUNT(*) AS total_appeals").
		ColumnExpr("COALESCE(SUM(ap.num_beneficiaries), 0) AS num_beneficiaries").
		ColumnExpr("COALESCE(SUM(ap.amount_requested), 0) AS amount_requested").
		ColumnExpr("COALESCE(SUM(ap.amount_funded), 0) AS amount_funded")

	if err := applyAppealFilters(q, params).Scan(ctx, agg); err != nil {
		return nil, fmt.Errorf("aggregate appeals: %w", err)
	}
	return agg, nil
}

func (s *AppealService) ListDocuments(ctx context.Context, params models.AppealDocumentFilterParams, p utils.Pagination) ([]models.AppealDocument, int, error) {
	var docs []models.AppealDocument
	q := s.db.NewSelect().Model(&docs)

	if len(params.Appeals) > 0 {
		q = q.Where("ad.appeal_id IN (?)", bun.In(params.Appeals))
	}
	if len(params.AppealCodes) > 0 {
		q = q.Where("ad.appeal_id IN (SELECT id FROM appeals WHERE UPPER(code) IN (?))", bun.In(stringsToUpper(params.AppealCodes)))
	}

	count, err := q.OrderExpr("ad.created_at DESC, ad.id DESC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	return docs, count, err
}

// UpsertDocument inserts a scraped document or refreshes the stored one
// with the same appeal and URL.
func (s *AppealService) UpsertDocument(ctx context.Context, doc *models.AppealDocument) error {
	_, err := s.db.NewInsert().
		Model(doc).
		On("CONFLICT (appeal_id, document_url) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("document = EXCLUDED.document").
		Set("iso = EXCLUDED.iso").
		Set("type = EXCLUDED.type").
		Set("description = EXCLUDED.description").
		Returning("id").
		Exec(ctx)
	return err
}

// FillMissingFields copies extracted figures onto the appeal, only where the
// appeal has no value yet. It reports whether a row changed.
func (s *AppealService) FillMissingFields(ctx context.Context, appealID int64, ex models.AppealExtract) (bool, error) {
	if ex.Empty() {
		return false, nil
	}

	q := s.db.NewUpdate().
		Table("appeals").
		Set("modified_at = now()").
		Where("id = ?", appealID)

	var conds []string
	if ex.NumBeneficiaries != nil {
		q = q.Set("num_beneficiaries = CASE WHEN num_beneficiaries = 0 THEN ? ELSE num_beneficiaries END", *ex.NumBeneficiaries)
		conds = append(conds, "num_beneficiaries = 0")
	}
	if ex.AmountRequested != nil {
		q = q.Set("amount_requested = CASE WHEN amount_requested = 0 THEN ? ELSE amount_requested END", *ex.AmountRequested)
		conds = append(conds, "amount_requested = 0")
	}
	if ex.StartDate != nil {
		q = q.Set("start_date = COALESCE(start_date, ?)", *ex.StartDate)
		conds = append(conds, "start_date IS NULL")
	}
	if ex.EndDate != nil {
		q = q.Set("end_date = COALESCE(end_date, ?)", *ex.EndDate)
		conds = append(conds, "end_date IS NULL")
	}
	q = q.Where("(" + strings.Join(conds, " OR ") + ")")

	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("fill appeal %d: %w", appealID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *AppealService) translate(ctx context.Context, lang string, appeals []models.Appeal) error {
	ids := make([]int64, len(appeals))
	index := make(map[int64]int, len(appeals))
	for i, a := range appeals {
		ids[i] = a.ID
		index[a.ID] = i
	}
	return s.tr.overlay(ctx, "appeal", lang, ids, func(id int64, fields map[string]string) {
		if v, ok := fields["name"]; ok {
			appeals[index[id]].Name = v
		}
	})
}

func validateAppeal(in models.AppealInput) error {
	v := NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "This field is required.")
	}
	if strings.TrimSpace(in.Code) == "" {
		v.Add("code", "This field is required.")
	}
	if in.AType < models.AppealTypeDREF || in.AType > models.AppealTypeFBA {
		v.Add("atype", fmt.Sprintf("%d is not a valid choice.", in.AType))
	}
	if in.Status < models.AppealStatusActive || in.Status > models.AppealStatusArchived {
		v.Add("status", fmt.Sprintf("%d is not a valid choice.", in.Status))
	}
	if in.NumBeneficiaries < 0 {
		v.Add("num_beneficiaries", "Ensure this value is greater than or equal to 0.")
	}
	if in.AmountRequested < 0 {
		v.Add("amount_requested", "Ensure this value is greater than or equal to 0.")
	}
	if in.AmountFunded < 0 {
		v.Add("amount_funded", "Ensure this value is greater than or equal to 0.")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		v.Add("end_date", "End date must not be before start date.")
	}
	return v.Err()
}

func appealFromInput(in models.AppealInput) *models.Appeal {
	return &models.Appeal{
		AID:               in.AID,
		Name:              strings.TrimSpace(in.Name),
		AType:             in.AType,
		Status:            in.Status,
		Code:              strings.ToUpper(strings.TrimSpace(in.Code)),
		Sector:            in.Sector,
		NumBeneficiaries:  in.NumBeneficiaries,
		AmountRequested:   in.AmountRequested,
		AmountFunded:      in.AmountFunded,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		EventID:           in.EventID,
		CountryID:         in.CountryID,
		RegionID:          in.RegionID,
		NeedsConfirmation: in.NeedsConfirmation,
	}
}
