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
)

// DREF lifecycle violations. Handlers render them as 400.
var (
	ErrDrefNotApproved            = errors.New("DREF must be approved before it can be published")
	ErrDrefNotPublished           = errors.New("DREF must be published first")
	ErrPublished                  = errors.New("published records cannot be changed")
	ErrUnpublishedUpdateExists    = errors.New("an unpublished operational update already exists for this DREF")
	ErrOperationalUpdatesPending  = errors.New("all operational updates must be published before the final report")
	ErrFinalReportExists          = errors.New("a final report already exists for this DREF")
	ErrFinalReportDrefUnpublished = errors.New("final report can only be created for a published DREF")
)

// IsLifecycleError reports whether err is one of the DREF rule violations.
func IsLifecycleError(err error) bool {
	for _, target := range []error{
		ErrDrefNotApproved, ErrDrefNotPublished, ErrPublished, ErrUnpublishedUpdateExists,
		ErrOperationalUpdatesPending, ErrFinalReportExists, ErrFinalReportDrefUnpublished,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type DrefService struct {
	db *bun.DB
}

func NewDrefService(db *bun.DB) *DrefService {
	return &DrefService{db: db}
}

func (s *DrefService) ListDrefs(ctx context.Context, params models.DrefFilterParams, p utils.Pagination) ([]models.Dref, int, error) {
	var drefs []models.Dref
	q := s.db.NewSelect().Model(&drefs)

	if len(params.Statuses) > 0 {
		q = q.Where("dr.status IN (?)", bun.In(params.Statuses))
	}
	if len(params.Countries) > 0 {
		q = q.Where("dr.country_id IN (?)", bun.In(params.Countries))
	}
	if len(params.TypeOfDref) > 0 {
		q = q.Where("dr.type_of_dref IN (?)", bun.In(params.TypeOfDref))
	}
	if params.IsPublished != nil {
		q = q.Where("dr.is_published = ?", *params.IsPublished)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("dr.title ILIKE ?", search).WhereOr("dr.appeal_code ILIKE ?", search)
		})
	}

	count, err := q.OrderExpr("dr.created_at DESC, dr.id DESC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	return drefs, count, err
}

func (s *DrefService) GetDref(ctx context.Context, id int64) (*models.Dref, error) {
	dref := new(models.Dref)
	err := s.db.NewSelect().
		Model(dref).
		Relation("OperationalUpdates", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("dou.operational_update_number ASC")
		}).
		Where("dr.id = ?", id).
		Scan(ctx)
	return dref, err
}

func (s *DrefService) CreateDref(ctx context.Context, in models.DrefInput, createdBy *uuid.UUID) (*models.Dref, error) {
	if err := validateDref(in); err != nil {
		return nil, err
	}
	dref := drefFromInput(in)
	dref.CreatedBy = createdBy
	dref.ComputeEndDate()

	if _, err := s.db.NewInsert().Model(dref).Returning("*").Exec(ctx); err != nil {
		return nil, constraintError(err, "country")
	}
	return dref, nil
}

func (s *DrefService) UpdateDref(ctx context.Context, id int64, in models.DrefInput) (*models.Dref, error) {
	if err := validateDref(in); err != nil {
		return nil, err
	}

	dref := drefFromInput(in)
	dref.ID = id
	dref.ModifiedAt = time.Now().UTC()
	dref.ComputeEndDate()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := lockDref(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.IsPublished {
			return ErrPublished
		}
		_, err = tx.NewUpdate().
			Model(dref).
			ExcludeColumn("id", "is_published", "created_by", "created_at").
			WherePK().
			Exec(ctx)
		return constraintError(err, "country")
	})
	if err != nil {
		return nil, err
	}
	return s.GetDref(ctx, id)
}

// PublishDref publishes an approved DREF.
func (s *DrefService) PublishDref(ctx context.Context, id int64) (*models.Dref, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dref, err := lockDref(ctx, tx, id)
		if err != nil {
			return err
		}
		if dref.Status != models.DrefStatusApproved {
			return ErrDrefNotApproved
		}
		_, err = tx.NewUpdate().
			Model((*models.Dref)(nil)).
			Set("is_published = true").
			Set("modified_at = now()").
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetDref(ctx, id)
}

func (s *DrefService) ListOperationalUpdates(ctx context.Context, drefs []int64, p utils.Pagination) ([]models.DrefOperationalUpdate, int, error) {
	var updates []models.DrefOperationalUpdate
	q := s.db.NewSelect().Model(&updates)
	if len(drefs) > 0 {
		q = q.Where("dou.dref_id IN (?)", bun.In(drefs))
	}
	count, err := q.
		Order("dou.dref_id ASC", "dou.operational_update_number ASC").
		Limit(p.Limit).
		Offset(p.Offset).
		ScanAndCount(ctx)
	return updates, count, err
}

func (s *DrefService) GetOperationalUpdate(ctx context.Context, id int64) (*models.DrefOperationalUpdate, error) {
	update := new(models.DrefOperationalUpdate)
	err := s.db.NewSelect().Model(update).Where("dou.id = ?", id).Scan(ctx)
	return update, err
}

// CreateOperationalUpdate opens the next update of a published DREF. The
// number follows the highest existing one; the title and previous end date
// are copied from the DREF or the latest update.
func (s *DrefService) CreateOperationalUpdate(ctx context.Context, in models.DrefOperationalUpdateInput) (*models.DrefOperationalUpdate, error) {
	if in.DrefID == 0 {
		return nil, FieldError("dref", "This field is required.")
	}

	update := &models.DrefOperationalUpdate{
		DrefID:                  in.DrefID,
		Title:                   strings.TrimSpace(in.Title),
		NewOperationalEndDate:   in.NewOperationalEndDate,
		TotalOperationTimeframe: in.TotalOperationTimeframe,
		ChangingBudget:          in.ChangingBudget,
		AdditionalAllocation:    in.AdditionalAllocation,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dref, err := lockDref(ctx, tx, in.DrefID)
		if errors.Is(err, sql.ErrNoRows) {
			return FieldError("dref", "invalid pk %d - object does not exist", in.DrefID)
		}
		if err != nil {
			return err
		}
		if !dref.IsPublished {
			return ErrDrefNotPublished
		}

		var previous []models.DrefOperationalUpdate
		err = tx.NewSelect().
			Model(&previous).
			Where("dou.dref_id = ?", in.DrefID).
			Order("dou.operational_update_number DESC").
			Scan(ctx)
		if err != nil {
			return err
		}

		for _, u := range previous {
			if !u.IsPublished {
				return ErrUnpublishedUpdateExists
			}
		}

		update.OperationalUpdateNumber = 1
		previousEnd := dref.EndDate
		if len(previous) > 0 {
			update.OperationalUpdateNumber = previous[0].OperationalUpdateNumber + 1
			if previous[0].NewOperationalEndDate != nil {
				previousEnd = previous[0].NewOperationalEndDate
			}
		}
		if update.Title == "" {
			update.Title = dref.Title
		}
		if update.NewOperationalEndDate == nil {
			update.NewOperationalEndDate = previousEnd
		}

		_, err = tx.NewInsert().Model(update).Returning("*").Exec(ctx)
		return constraintError(err, "operational_update_number")
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}

func (s *DrefService) UpdateOperationalUpdate(ctx context.Context, id int64, in models.DrefOperationalUpdateInput) (*models.DrefOperationalUpdate, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current := new(models.DrefOperationalUpdate)
		if err := tx.NewSelect().Model(current).Where("dou.id = ?", id).For("UPDATE").Scan(ctx); err != nil {
			return err
		}
		if current.IsPublished {
			return ErrPublished
		}
		q := tx.NewUpdate().
			Model((*models.DrefOperationalUpdate)(nil)).
			Set("new_operational_end_date = ?", in.NewOperationalEndDate).
			Set("total_operation_timeframe = ?", in.TotalOperationTimeframe).
			Set("changing_budget = ?", in.ChangingBudget).
			Set("additional_allocation = ?", in.AdditionalAllocation).
			Where("id = ?", id)
		if title := strings.TrimSpace(in.Title); title != "" {
			q = q.Set("title = ?", title)
		}
		_, err := q.Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetOperationalUpdate(ctx, id)
}

// PublishOperationalUpdate publishes an update whose DREF is published.
func (s *DrefService) PublishOperationalUpdate(ctx context.Context, id int64) (*models.DrefOperationalUpdate, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		update := new(models.DrefOperationalUpdate)
		if err := tx.NewSelect().Model(update).Where("dou.id = ?", id).For("UPDATE").Scan(ctx); err != nil {
			return err
		}
		dref, err := lockDref(ctx, tx, update.DrefID)
		if err != nil {
			return err
		}
		if !dref.IsPublished {
			return ErrDrefNotPublished
		}
		_, err = tx.NewUpdate().
			Model((*models.DrefOperationalUpdate)(nil)).
			Set("is_published = true").
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetOperationalUpdate(ctx, id)
}

func (s *DrefService) ListFinalReports(ctx context.Context, drefs []int64, p utils.Pagination) ([]models.DrefFinalReport, int, error) {
	var reports []models.DrefFinalReport
	q := s.db.NewSelect().Model(&reports)
	if len(drefs) > 0 {
		q = q.Where("dfr.dref_id IN (?)", bun.In(drefs))
	}
	count, err := q.OrderExpr("dfr.id DESC").Limit(p.Limit).Offset(p.Offset).ScanAndCount(ctx)
	return reports, count, err
}

func (s *DrefService) GetFinalReport(ctx context.Context, id int64) (*models.DrefFinalReport, error) {
	report := new(models.DrefFinalReport)
	err := s.db.NewSelect().Model(report).Where("dfr.id = ?", id).Scan(ctx)
	return report, err
}

// CreateFinalReport closes a published DREF whose updates are all
// published. A DREF has at most one final report.
func (s *DrefService) CreateFinalReport(ctx context.Context, in models.DrefFinalReportInput) (*models.DrefFinalReport, error) {
	if in.DrefID == 0 {
		return nil, FieldError("dref", "This field is required.")
	}

	report := &models.DrefFinalReport{
		DrefID:              in.DrefID,
		Title:               strings.TrimSpace(in.Title),
		NumAssisted:         in.NumAssisted,
		TotalDrefAllocation: in.TotalDrefAllocation,
		OperationStartDate:  in.OperationStartDate,
		OperationEndDate:    in.OperationEndDate,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dref, err := lockDref(ctx, tx, in.DrefID)
		if errors.Is(err, sql.ErrNoRows) {
			return FieldError("dref", "invalid pk %d - object does not exist", in.DrefID)
		}
		if err != nil {
			return err
		}
		if !dref.IsPublished {
			return ErrFinalReportDrefUnpublished
		}

		pending, err := tx.NewSelect().
			Model((*models.DrefOperationalUpdate)(nil)).
			Where("dref_id = ?", in.DrefID).
			Where("is_published = false").
			Count(ctx)
		if err != nil {
			return err
		}
		if pending > 0 {
			return ErrOperationalUpdatesPending
		}

		if report.Title == "" {
			report.Title = dref.Title
		}
		if report.OperationStartDate == nil {
			report.OperationStartDate = dref.DateOfApproval
		}
		if report.OperationEndDate == nil {
			report.OperationEndDate = dref.EndDate
		}

		_, err = tx.NewInsert().Model(report).Returning("*").Exec(ctx)
		if isUniqueViolation(err) {
			return ErrFinalReportExists
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *DrefService) UpdateFinalReport(ctx context.Context, id int64, in models.DrefFinalReportInput) (*models.DrefFinalReport, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current := new(models.DrefFinalReport)
		if err := tx.NewSelect().Model(current).Where("dfr.id = ?", id).For("UPDATE").Scan(ctx); err != nil {
			return err
		}
		if current.IsPublished {
			return ErrPublished
		}
		q := tx.NewUpdate().
			Model((*models.DrefFinalReport)(nil)).
			Set("num_assisted = ?", in.NumAssisted).
			Set("total_dref_allocation = ?", in.TotalDrefAllocation).
			Set("operation_start_date = ?", in.OperationStartDate).
			Set("operation_end_date = ?", in.OperationEndDate).
			Where("id = ?", id)
		if title := strings.TrimSpace(in.Title); title != "" {
			q = q.Set("title = ?", title)
		}
		_, err := q.Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetFinalReport(ctx, id)
}

// PublishFinalReport publishes the report of a published DREF.
func (s *DrefService) PublishFinalReport(ctx context.Context, id int64) (*models.DrefFinalReport, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		report := new(models.DrefFinalReport)
		if err := tx.NewSelect().Model(report).Where("dfr.id = ?", id).For("UPDATE").Scan(ctx); err != nil {
			return err
		}
		dref, err := lockDref(ctx, tx, report.DrefID)
		if err != nil {
			return err
		}
		if !dref.IsPublished {
			return ErrDrefNotPublished
		}
		_, err = tx.NewUpdate().
			Model((*models.DrefFinalReport)(nil)).
			Set("is_published = true").
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetFinalReport(ctx, id)
}

func lockDref(ctx context.Context, tx bun.Tx, id int64) (*models.Dref, error) {
	dref := new(models.Dref)
	err := tx.NewSelect().Model(dref).Where("dr.id = ?", id).For("UPDATE").Scan(ctx)
	return dref, err
}

func validateDref(in models.DrefInput) error {
	v := NewValidationError()
	if strings.TrimSpace(in.Title) == "" {
		v.Add("title", "This field is required.")
	}
	if in.Status != 0 && (in.Status < models.DrefStatusDraft || in.Status > models.DrefStatusApproved) {
		v.Add("status", fmt.Sprintf("%d is not a valid choice.", in.Status))
	}
	if in.TypeOfDref != nil && (*in.TypeOfDref < models.DrefTypeImminent || *in.TypeOfDref > models.DrefTypeLoan) {
		v.Add("type_of_dref", fmt.Sprintf("%d is not a valid choice.", *in.TypeOfDref))
	}
	if in.TypeOfOnset != nil && *in.TypeOfOnset != models.OnsetSlow && *in.TypeOfOnset != models.OnsetSudden {
		v.Add("type_of_onset", fmt.Sprintf("%d is not a valid choice.", *in.TypeOfOnset))
	}
	if in.DisasterCategory != nil && (*in.DisasterCategory < models.SeverityYellow || *in.DisasterCategory > models.SeverityRed) {
		v.Add("disaster_category", fmt.Sprintf("%d is not a valid choice.", *in.DisasterCategory))
	}
	if in.OperationTimeframe != nil && *in.OperationTimeframe < 0 {
		v.Add("operation_timeframe", "Ensure this value is greater than or equal to 0.")
	}
	if in.AmountRequested != nil && *in.AmountRequested < 0 {
		v.Add("amount_requested", "Ensure this value is greater than or equal to 0.")
	}
	return v.Err()
}

func drefFromInput(in models.DrefInput) *models.Dref {
	status := in.Status
	if status == 0 {
		status = models.DrefStatusDraft
	}
	return &models.Dref{
		Title:              strings.TrimSpace(in.Title),
		NationalSocietyID:  in.NationalSocietyID,
		CountryID:          in.CountryID,
		DisasterTypeID:     in.DisasterTypeID,
		TypeOfDref:         in.TypeOfDref,
		TypeOfOnset:        in.TypeOfOnset,
		DisasterCategory:   in.DisasterCategory,
		Status:             status,
		AmountRequested:    in.AmountRequested,
		NumAffected:        in.NumAffected,
		NumAssisted:        in.NumAssisted,
		DateOfApproval:     in.DateOfApproval,
		OperationTimeframe: in.OperationTimeframe,
		AppealCode:         in.AppealCode,
		GlideCode:          in.GlideCode,
	}
}
