package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-api/internal/models"
	"go-api/internal/utils"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"gopkg.in/guregu/null.v3"
)

// AutoGeneratedSourceFieldReport marks events created from a field report.
const AutoGeneratedSourceFieldReport = "New field report"

type FieldReportService struct {
	db *bun.DB
	tr *TranslationService
}

func NewFieldReportService(db *bun.DB, tr *TranslationService) *FieldReportService {
	return &FieldReportService{db: db, tr: tr}
}

// GenerateSummary builds the report title shown across the platform:
// "{ISO3}: {DisasterType} - {dd-mm-yyyy} {title}". Early warnings carry an
// "EW " prefix on the date.
func GenerateSummary(iso3, dtype string, start *time.Time, title string, earlyWarning bool) string {
	var b strings.Builder
	if iso3 != "" {
		b.WriteString(strings.ToUpper(iso3))
		b.WriteString(": ")
	}
	b.WriteString(dtype)
	b.WriteString(" -")
	if earlyWarning {
		b.WriteString(" EW")
	}
	if start != nil {
		b.WriteString(" ")
		b.WriteString(start.Format("02-01-2006"))
	}
	if t := strings.TrimSpace(title); t != "" {
		b.WriteString(" ")
		b.WriteString(t)
	}
	return b.String()
}

func (s *FieldReportService) ListFieldReports(ctx context.Context, params models.FieldReportFilterParams, p utils.Pagination) ([]models.FieldReport, int, error) {
	var reports []models.FieldReport
	q := s.db.NewSelect().
		Model(&reports).
		Relation("DType").
		Relation("Countries")

	if len(params.DTypes) > 0 {
		q = q.Where("fr.dtype_id IN (?)", bun.In(params.DTypes))
	}
	if len(params.Countries) > 0 {
		q = q.Where("fr.id IN (SELECT field_report_id FROM field_report_countries WHERE country_id IN (?))", bun.In(params.Countries))
	}
	if len(params.Regions) > 0 {
		q = q.Where(`fr.id IN (
			SELECT frc.field_report_id FROM field_report_countries frc
			JOIN countries c ON c.id = frc.country_id
			WHERE c.region_id IN (?))`, bun.In(params.Regions))
	}
	if len(params.Events) > 0 {
		q = q.Where("fr.event_id IN (?)", bun.In(params.Events))
	}
	if len(params.Statuses) > 0 {
		q = q.Where("fr.status IN (?)", bun.In(params.Statuses))
	}
	if len(params.Visibility) > 0 {
		q = q.Where("fr.visibility IN (?)", bun.In(params.Visibility))
	}
	if params.Search != "" {
		q = q.Where("fr.summary ILIKE ?", "%"+params.Search+"%")
	}

	count, err := q.
		OrderExpr("fr.created_at DESC, fr.id DESC").
		Limit(p.Limit).
		Offset(p.Offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := s.translate(ctx, params.Lang, reports); err != nil {
		return nil, 0, err
	}
	return reports, count, nil
}

func (s *FieldReportService) GetFieldReport(ctx context.Context, id int64, lang string) (*models.FieldReport, error) {
	report := new(models.FieldReport)
	err := s.db.NewSelect().
		Model(report).
		Relation("DType").
		Relation("Event").
		Relation("Countries").
		Relation("Districts").
		Where("fr.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	reports := []models.FieldReport{*report}
	if err := s.translate(ctx, lang, reports); err != nil {
		return nil, err
	}
	return &reports[0], nil
}

// CreateFieldReport stores a report with its generated summary. With
// in.CreateEvent set, an event is created from the report in the same
// transaction and the report is linked to it.
func (s *FieldReportService) CreateFieldReport(ctx context.Context, in models.FieldReportInput, userID *uuid.UUID) (*models.FieldReport, error) {
	if err := validateFieldReport(in); err != nil {
		return nil, err
	}
	if in.CreateEvent && in.EventID != nil {
		return nil, FieldError("event", "cannot link an existing event and create a new one")
	}

	report := fieldReportFromInput(in)
	report.UserID = userID

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		summary, err := s.summaryFor(ctx, tx, in)
		if err != nil {
			return err
		}
		report.Summary = summary

		if in.CreateEvent {
			event := &models.Event{
				Name:                summary,
				DTypeID:             in.DTypeID,
				DisasterStartDate:   in.StartDate,
				Summary:             in.Description,
				NumAffected:         totalAffected(in.Figures),
				AutoGenerated:       true,
				AutoGeneratedSource: AutoGeneratedSourceFieldReport,
				Visibility:          report.Visibility,
			}
			if _, err := tx.NewInsert().Model(event).Returning("*").Exec(ctx); err != nil {
				return constraintError(err, "dtype")
			}
			if err := replaceEventLinks(ctx, tx, event.ID, in.Countries, in.Districts); err != nil {
				return err
			}
			report.EventID = &event.ID
		}

		if _, err := tx.NewInsert().Model(report).Returning("*").Exec(ctx); err != nil {
			return constraintError(err, "event")
		}
		return replaceFieldReportLinks(ctx, tx, report.ID, in.Countries, in.Districts)
	})
	if err != nil {
		return nil, err
	}
	return s.GetFieldReport(ctx, report.ID, "")
}

// UpdateFieldReport replaces the writable fields and regenerates the summary.
func (s *FieldReportService) UpdateFieldReport(ctx context.Context, id int64, in models.FieldReportInput) (*models.FieldReport, error) {
	if err := validateFieldReport(in); err != nil {
		return nil, err
	}

	report := fieldReportFromInput(in)
	report.ID = id
	report.UpdatedAt = time.Now().UTC()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		summary, err := s.summaryFor(ctx, tx, in)
		if err != nil {
			return err
		}
		report.Summary = summary

		res, err := tx.NewUpdate().
			Model(report).
			ExcludeColumn("id", "rid", "user_id", "created_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return constraintError(err, "event")
		}
		if err := ensureAffected(res); err != nil {
			return err
		}
		return replaceFieldReportLinks(ctx, tx, id, in.Countries, in.Districts)
	})
	if err != nil {
		return nil, err
	}
	return s.GetFieldReport(ctx, id, "")
}

// summaryFor resolves the first country's ISO3 and the disaster type name.
func (s *FieldReportService) summaryFor(ctx context.Context, tx bun.IDB, in models.FieldReportInput) (string, error) {
	var iso3 string
	if ids := in.Countries; len(ids) > 0 {
		country := new(models.Country)
		err := tx.NewSelect().Model(country).Where("c.id = ?", ids[0]).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return "", FieldError("countries", "invalid pk %d - object does not exist", ids[0])
		}
		if err != nil {
			return "", fmt.Errorf("load country %d: %w", ids[0], err)
		}
		if country.ISO3 != nil {
			iso3 = *country.ISO3
		}
	}

	dtype := new(models.DisasterType)
	err := tx.NewSelect().Model(dtype).Where("dt.id = ?", *in.DTypeID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", FieldError("dtype", "invalid pk %d - object does not exist", *in.DTypeID)
	}
	if err != nil {
		return "", fmt.Errorf("load disaster type %d: %w", *in.DTypeID, err)
	}

	return GenerateSummary(iso3, dtype.Name, in.StartDate, in.Title, in.Status == models.FieldReportStatusEarlyWarning), nil
}

func (s *FieldReportService) translate(ctx context.Context, lang string, reports []models.FieldReport) error {
	ids := make([]int64, len(reports))
	index := make(map[int64]int, len(reports))
	for i, r := range reports {
		ids[i] = r.ID
		index[r.ID] = i
	}
	return s.tr.overlay(ctx, "field_report", lang, ids, func(id int64, fields map[string]string) {
		r := &reports[index[id]]
		if v, ok := fields["summary"]; ok {
			r.Summary = v
		}
		if v, ok := fields["description"]; ok {
			r.Description = v
		}
	})
}

func validateFieldReport(in models.FieldReportInput) error {
	v := NewValidationError()
	if in.DTypeID == nil {
		v.Add("dtype", "This field is required.")
	}
	if len(uniqueIDs(in.Countries)) == 0 {
		v.Add("countries", "This list may not be empty.")
	}
	if in.Status != models.FieldReportStatusEarlyWarning && in.Status != models.FieldReportStatusEvent {
		v.Add("status", fmt.Sprintf("%d is not a valid choice.", in.Status))
	}
	if in.Visibility != 0 && !models.ValidVisibility(in.Visibility) {
		v.Add("visibility", fmt.Sprintf("%d is not a valid choice.", in.Visibility))
	}
	for _, field := range in.Figures.Negative() {
		v.Add(field, "Ensure this value is greater than or equal to 0.")
	}
	return v.Err()
}

func fieldReportFromInput(in models.FieldReportInput) *models.FieldReport {
	visibility := in.Visibility
	if visibility == 0 {
		visibility = models.VisibilityPublic
	}
	return &models.FieldReport{
		Title:               strings.TrimSpace(in.Title),
		Description:         in.Description,
		EventID:             in.EventID,
		DTypeID:             in.DTypeID,
		Status:              in.Status,
		Visibility:          visibility,
		RequestAssistance:   in.RequestAssistance,
		NSRequestAssistance: in.NSRequestAssistance,
		ActionsOthers:       in.ActionsOthers,
		StartDate:           in.StartDate,
		ReportDate:          in.ReportDate,
		Figures:             in.Figures,
	}
}

func replaceFieldReportLinks(ctx context.Context, tx bun.IDB, reportID int64, countries, districts []int64) error {
	if _, err := tx.NewDelete().Model((*models.FieldReportCountry)(nil)).Where("field_report_id = ?", reportID).Exec(ctx); err != nil {
		return err
	}
	if _, err := tx.NewDelete().Model((*models.FieldReportDistrict)(nil)).Where("field_report_id = ?", reportID).Exec(ctx); err != nil {
		return err
	}

	if ids := uniqueIDs(countries); len(ids) > 0 {
		rows := make([]models.FieldReportCountry, len(ids))
		for i, id := range ids {
			rows[i] = models.FieldReportCountry{FieldReportID: reportID, CountryID: id}
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return constraintError(err, "countries")
		}
	}
	if ids := uniqueIDs(districts); len(ids) > 0 {
		rows := make([]models.FieldReportDistrict, len(ids))
		for i, id := range ids {
			rows[i] = models.FieldReportDistrict{FieldReportID: reportID, DistrictID: id}
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return constraintError(err, "districts")
		}
	}
	return nil
}

// totalAffected prefers the Red Cross figure, then the government's, then
// other sources.
func totalAffected(f models.Figures) null.Int {
	for _, v := range []null.Int{f.NumAffected, f.GovNumAffected, f.OtherNumAffected} {
		if v.Valid {
			return v
		}
	}
	return null.Int{}
}
