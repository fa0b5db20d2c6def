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

type EventService struct {
	db *bun.DB
	tr *TranslationService
}

func NewEventService(db *bun.DB, tr *TranslationService) *EventService {
	return &EventService{db: db, tr: tr}
}

func (s *EventService) ListEvents(ctx context.Context, params models.EventFilterParams, p utils.Pagination) ([]models.Event, int, error) {
	var events []models.Event
	q := s.db.NewSelect().
		Model(&events).
		Relation("DType").
		Relation("Countries")

	if len(params.DTypes) > 0 {
		q = q.Where("e.dtype_id IN (?)", bun.In(params.DTypes))
	}
	if len(params.Countries) > 0 {
		q = q.Where("e.id IN (SELECT event_id FROM event_countries WHERE country_id IN (?))", bun.In(params.Countries))
	}
	if len(params.Regions) > 0 {
		q = q.Where(`e.id IN (
			SELECT ec.event_id FROM event_countries ec
			JOIN countries c ON c.id = ec.country_id
			WHERE c.region_id IN (?))`, bun.In(params.Regions))
	}
	if params.StartAfter != nil {
		q = q.Where("e.disaster_start_date >= ?", *params.StartAfter)
	}
	if params.StartBefore != nil {
		q = q.Where("e.disaster_start_date <= ?", *params.StartBefore)
	}
	if params.IsFeatured != nil {
		q = q.Where("e.is_featured = ?", *params.IsFeatured)
	}
	if params.Search != "" {
		q = q.Where("e.name ILIKE ?", "%"+params.Search+"%")
	}

	count, err := q.
		OrderExpr("e.disaster_start_date DESC NULLS LAST, e.id DESC").
		Limit(p.Limit).
		Offset(p.Offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	if err := s.translate(ctx, params.Lang, events); err != nil {
		return nil, 0, err
	}
	return events, count, nil
}

func (s *EventService) GetEvent(ctx context.Context, id int64, lang string) (*models.Event, error) {
	event := new(models.Event)
	err := s.db.NewSelect().
		Model(event).
		Relation("DType").
		Relation("Countries").
		Relation("Districts").
		Relation("Appeals").
		Where("e.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	events := []models.Event{*event}
	if err := s.translate(ctx, lang, events); err != nil {
		return nil, err
	}
	return &events[0], nil
}

func (s *EventService) CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error) {
	if err := validateEvent(in); err != nil {
		return nil, err
	}

	event := eventFromInput(in)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(event).Returning("*").Exec(ctx); err != nil {
			return constraintError(err, "dtype")
		}
		return replaceEventLinks(ctx, tx, event.ID, in.Countries, in.Districts)
	})
	if err != nil {
		return nil, err
	}
	return s.GetEvent(ctx, event.ID, "")
}

func (s *EventService) UpdateEvent(ctx context.Context, id int64, in models.EventInput) (*models.Event, error) {
	if err := validateEvent(in); err != nil {
		return nil, err
	}

	event := eventFromInput(in)
	event.ID = id
	event.UpdatedAt = time.Now().UTC()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(event).
			Column("name", "dtype_id", "disaster_start_date", "summary", "num_affected",
				"ifrc_severity_level", "glide", "is_featured", "visibility", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return constraintError(err, "dtype")
		}
		if err := ensureAffected(res); err != nil {
			return err
		}
		return replaceEventLinks(ctx, tx, id, in.Countries, in.Districts)
	})
	if err != nil {
		return nil, err
	}
	return s.GetEvent(ctx, id, "")
}

func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*models.Event)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	return ensureAffected(res)
}

func (s *EventService) translate(ctx context.Context, lang string, events []models.Event) error {
	ids := make([]int64, len(events))
	index := make(map[int64]int, len(events))
	for i, e := range events {
		ids[i] = e.ID
		index[e.ID] = i
	}
	return s.tr.overlay(ctx, "event", lang, ids, func(id int64, fields map[string]string) {
		e := &events[index[id]]
		if v, ok := fields["name"]; ok {
			e.Name = v
		}
		if v, ok := fields["summary"]; ok {
			e.Summary = v
		}
	})
}

func validateEvent(in models.EventInput) error {
	v := NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "This field is required.")
	}
	if in.IFRCSeverityLevel < models.SeverityYellow || in.IFRCSeverityLevel > models.SeverityRed {
		v.Add("ifrc_severity_level", fmt.Sprintf("%d is not a valid choice.", in.IFRCSeverityLevel))
	}
	if in.Visibility != 0 && !models.ValidVisibility(in.Visibility) {
		v.Add("visibility", fmt.Sprintf("%d is not a valid choice.", in.Visibility))
	}
	if in.NumAffected.Valid && in.NumAffected.Int64 < 0 {
		v.Add("num_affected", "Ensure this value is greater than or equal to 0.")
	}
	return v.Err()
}

func eventFromInput(in models.EventInput) *models.Event {
	visibility := in.Visibility
	if visibility == 0 {
		visibility = models.VisibilityPublic
	}
	return &models.Event{
		Name:              strings.TrimSpace(in.Name),
		DTypeID:           in.DTypeID,
		DisasterStartDate: in.DisasterStartDate,
		Summary:           in.Summary,
		NumAffected:       in.NumAffected,
		IFRCSeverityLevel: in.IFRCSeverityLevel,
		Glide:             in.Glide,
		IsFeatured:        in.IsFeatured,
		Visibility:        visibility,
	}
}

// replaceEventLinks rewrites the event's country and district join rows.
func replaceEventLinks(ctx context.Context, tx bun.IDB, eventID int64, countries, districts []int64) error {
	if _, err := tx.NewDelete().Model((*models.EventCountry)(nil)).Where("event_id = ?", eventID).Exec(ctx); err != nil {
		return err
	}
	if _, err := tx.NewDelete().Model((*models.EventDistrict)(nil)).Where("event_id = ?", eventID).Exec(ctx); err != nil {
		return err
	}

	if ids := uniqueIDs(countries); len(ids) > 0 {
		rows := make([]models.EventCountry, len(ids))
		for i, id := range ids {
			rows[i] = models.EventCountry{EventID: eventID, CountryID: id}
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return constraintError(err, "countries")
		}
	}
	if ids := uniqueIDs(districts); len(ids) > 0 {
		rows := make([]models.EventDistrict, len(ids))
		for i, id := range ids {
			rows[i] = models.EventDistrict{EventID: eventID, DistrictID: id}
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return constraintError(err, "districts")
		}
	}
	return nil
}
