//go:build integration

package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"go-api/internal/config"
	"go-api/internal/database"
	"go-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v3"
)

// newTestDB starts PostGIS, applies the migrations and returns a handle.
// Run with: go test -tags integration ./internal/services/...
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgis/postgis:16-3.4",
		postgres.WithDatabase("go"),
		postgres.WithUsername("go"),
		postgres.WithPassword("go"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.New(dsn, &config.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.RunMigrations(ctx, db, zap.NewNop()))
	// a second run is a no-op
	require.NoError(t, database.RunMigrations(ctx, db, zap.NewNop()))
	return db
}

func TestIntegration_ScraperWrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO app.countries (id, name, iso, iso3, region_id) VALUES (1, 'Kenya', 'KE', 'KEN', 0)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO app.appeals (name, code, country_id, num_beneficiaries) VALUES ('Kenya floods', 'MDRKE050', 1, 900)`)
	require.NoError(t, err)

	svc := NewAppealService(db, NewTranslationService(db))
	appeal, err := svc.FindByCode(ctx, "mdrke050")
	require.NoError(t, err)
	require.NotNil(t, appeal.Country)
	assert.Equal(t, "KE", *appeal.Country.ISO)

	doc := &models.AppealDocument{Name: "EPoA", DocumentURL: "https://example.org/a.pdf", Document: "appeals/MDRKE050/a.pdf", AppealID: appeal.ID}
	require.NoError(t, svc.UpsertDocument(ctx, doc))
	doc2 := &models.AppealDocument{Name: "EPoA v2", DocumentURL: "https://example.org/a.pdf", AppealID: appeal.ID}
	require.NoError(t, svc.UpsertDocument(ctx, doc2))
	assert.Equal(t, doc.ID, doc2.ID, "same appeal and url is one row")

	beneficiaries := 12500
	amount := 498621.0
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	changed, err := svc.FillMissingFields(ctx, appeal.ID, models.AppealExtract{
		NumBeneficiaries: &beneficiaries,
		AmountRequested:  &amount,
		StartDate:        &start,
	})
	require.NoError(t, err)
	assert.True(t, changed)

	appeal, err = svc.FindByCode(ctx, "MDRKE050")
	require.NoError(t, err)
	assert.Equal(t, 900, appeal.NumBeneficiaries, "existing values are kept")
	assert.InDelta(t, amount, appeal.AmountRequested, 0.001)
	require.NotNil(t, appeal.StartDate)
	assert.True(t, start.Equal(*appeal.StartDate))

	// nothing left to fill
	changed, err = svc.FillMissingFields(ctx, appeal.ID, models.AppealExtract{StartDate: &start})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestIntegration_CountryPlanImportRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO app.countries (id, name, iso, iso3, region_id) VALUES (1, 'Kenya', 'KE', 'KEN', 0)`)
	require.NoError(t, err)

	svc := NewCountryPlanService(db)
	amount := 1500000.0
	people := 1200
	row := models.CountryPlanRow{Row: 2, ISO3: "ken", RequestedAmount: &amount, Priorities: []models.PriorityFigures{
		{Type: models.PriorityHealth, PeopleTargeted: &people},
	}}
	require.NoError(t, svc.ImportRow(ctx, row))
	require.NoError(t, svc.ImportRow(ctx, row), "re-import updates in place")

	err = svc.ImportRow(ctx, models.CountryPlanRow{Row: 3, ISO3: "XXX"})
	assert.ErrorIs(t, err, ErrUnknownCountry)

	var plans, priorities int
	require.NoError(t, db.NewSelect().TableExpr("app.country_plans").ColumnExpr("count(*)").Scan(ctx, &plans))
	require.NoError(t, db.NewSelect().TableExpr("app.strategic_priorities").ColumnExpr("count(*)").Scan(ctx, &priorities))
	assert.Equal(t, 1, plans)
	assert.Equal(t, 1, priorities)
}

func TestIntegration_TranslationPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO app.countries (id, name, iso, iso3) VALUES (1, 'Kenya', 'KE', 'KEN')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO app.appeals (name, code) VALUES ('Kenya floods', 'MDRKE050'), ('', 'MDRKE051')`)
	require.NoError(t, err)

	tr := NewTranslationService(db)
	field := models.TranslatableField{Model: "appeal", Table: "appeals", Field: "name"}

	items, err := tr.Pending(ctx, field, "fr", 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 1, "empty names are skipped")
	assert.Equal(t, "Kenya floods", items[0].Text)

	require.NoError(t, tr.Save(ctx, &models.Translation{Model: "appeal", ObjectID: items[0].ObjectID, Field: "name", Language: "fr", Text: "Inondations au Kenya"}))
	items, err = tr.Pending(ctx, field, "fr", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, items)

	found, err := tr.Lookup(ctx, "appeal", []int64{1, 2}, "fr")
	require.NoError(t, err)
	assert.Equal(t, "Inondations au Kenya", found[1]["name"])
}

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestIntegration_DrefLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewDrefService(db)

	timeframe := 3
	in := models.DrefInput{Title: "Kenya floods", DateOfApproval: day("2024-01-15"), OperationTimeframe: &timeframe}
	dref, err := svc.CreateDref(ctx, in, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DrefStatusDraft, dref.Status)
	require.NotNil(t, dref.EndDate)
	assert.Equal(t, "2024-04-15", dref.EndDate.Format("2006-01-02"))

	_, err = svc.CreateOperationalUpdate(ctx, models.DrefOperationalUpdateInput{DrefID: dref.ID})
	assert.ErrorIs(t, err, ErrDrefNotPublished)
	_, err = svc.CreateFinalReport(ctx, models.DrefFinalReportInput{DrefID: dref.ID})
	assert.ErrorIs(t, err, ErrFinalReportDrefUnpublished)
	_, err = svc.PublishDref(ctx, dref.ID)
	assert.ErrorIs(t, err, ErrDrefNotApproved)

	in.Status = models.DrefStatusApproved
	_, err = svc.UpdateDref(ctx, dref.ID, in)
	require.NoError(t, err)
	dref, err = svc.PublishDref(ctx, dref.ID)
	require.NoError(t, err)
	assert.True(t, dref.IsPublished)

	_, err = svc.UpdateDref(ctx, dref.ID, in)
	assert.ErrorIs(t, err, ErrPublished)

	first, err := svc.CreateOperationalUpdate(ctx, models.DrefOperationalUpdateInput{DrefID: dref.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, first.OperationalUpdateNumber)
	assert.Equal(t, "Kenya floods", first.Title)
	require.NotNil(t, first.NewOperationalEndDate)
	assert.Equal(t, "2024-04-15", first.NewOperationalEndDate.Format("2006-01-02"))

	_, err = svc.CreateOperationalUpdate(ctx, models.DrefOperationalUpdateInput{DrefID: dref.ID})
	assert.ErrorIs(t, err, ErrUnpublishedUpdateExists)
	_, err = svc.CreateFinalReport(ctx, models.DrefFinalReportInput{DrefID: dref.ID})
	assert.ErrorIs(t, err, ErrOperationalUpdatesPending)

	_, err = svc.UpdateOperationalUpdate(ctx, first.ID, models.DrefOperationalUpdateInput{NewOperationalEndDate: day("2024-06-30")})
	require.NoError(t, err)
	first, err = svc.PublishOperationalUpdate(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, first.IsPublished)
	_, err = svc.UpdateOperationalUpdate(ctx, first.ID, models.DrefOperationalUpdateInput{Title: "changed"})
	assert.ErrorIs(t, err, ErrPublished)

	second, err := svc.CreateOperationalUpdate(ctx, models.DrefOperationalUpdateInput{DrefID: dref.ID, Title: "Extension"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.OperationalUpdateNumber)
	assert.Equal(t, "Extension", second.Title)
	require.NotNil(t, second.NewOperationalEndDate)
	assert.Equal(t, "2024-06-30", second.NewOperationalEndDate.Format("2006-01-02"), "end date carries over from the previous update")
	_, err = svc.PublishOperationalUpdate(ctx, second.ID)
	require.NoError(t, err)

	report, err := svc.CreateFinalReport(ctx, models.DrefFinalReportInput{DrefID: dref.ID})
	require.NoError(t, err)
	assert.Equal(t, "Kenya floods", report.Title)
	require.NotNil(t, report.OperationStartDate)
	assert.Equal(t, "2024-01-15", report.OperationStartDate.Format("2006-01-02"))

	_, err = svc.CreateFinalReport(ctx, models.DrefFinalReportInput{DrefID: dref.ID})
	assert.ErrorIs(t, err, ErrFinalReportExists)

	_, err = svc.PublishFinalReport(ctx, report.ID)
	require.NoError(t, err)
	_, err = svc.UpdateFinalReport(ctx, report.ID, models.DrefFinalReportInput{Title: "changed"})
	assert.ErrorIs(t, err, ErrPublished)

	dref, err = svc.GetDref(ctx, dref.ID)
	require.NoError(t, err)
	require.Len(t, dref.OperationalUpdates, 2)
	assert.Equal(t, 1, dref.OperationalUpdates[0].OperationalUpdateNumber)
	assert.Equal(t, 2, dref.OperationalUpdates[1].OperationalUpdateNumber)

	_, err = svc.CreateOperationalUpdate(ctx, models.DrefOperationalUpdateInput{DrefID: 999})
	var v *ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "dref")
}

func TestIntegration_FieldReportCreateEvent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO app.countries (id, name, iso, iso3) VALUES (1, 'Kenya', 'KE', 'KEN')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO app.disaster_types (id, name) VALUES (1, 'Flood')`)
	require.NoError(t, err)

	svc := NewFieldReportService(db, NewTranslationService(db))
	dtype := int64(1)
	in := models.FieldReportInput{
		Title:       "Nairobi floods",
		Description: "Heavy rains since Tuesday.",
		DTypeID:     &dtype,
		Status:      models.FieldReportStatusEvent,
		StartDate:   day("2024-05-02"),
		Countries:   []int64{1},
		CreateEvent: true,
	}
	in.NumAffected = null.IntFrom(1200)

	report, err := svc.CreateFieldReport(ctx, in, nil)
	require.NoError(t, err)
	assert.Equal(t, "KEN: Flood - 02-05-2024 Nairobi floods", report.Summary)
	require.NotNil(t, report.EventID)
	require.NotNil(t, report.Event)
	assert.True(t, report.Event.AutoGenerated)
	assert.Equal(t, AutoGeneratedSourceFieldReport, report.Event.AutoGeneratedSource)
	assert.Equal(t, report.Summary, report.Event.Name)
	assert.Equal(t, null.IntFrom(1200), report.Event.NumAffected)
	require.Len(t, report.Countries, 1)

	var linked int
	require.NoError(t, db.NewSelect().TableExpr("app.event_countries").ColumnExpr("count(*)").Where("event_id = ?", *report.EventID).Scan(ctx, &linked))
	assert.Equal(t, 1, linked)

	var v *ValidationError
	withEvent := in
	withEvent.EventID = report.EventID
	_, err = svc.CreateFieldReport(ctx, withEvent, nil)
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "event")

	unknownType := int64(99)
	bad := in
	bad.DTypeID = &unknownType
	_, err = svc.CreateFieldReport(ctx, bad, nil)
	require.ErrorAs(t, err, &v)
	assert.Equal(t, []string{"invalid pk 99 - object does not exist"}, v.Fields["dtype"])

	bad = in
	bad.Countries = []int64{99}
	_, err = svc.CreateFieldReport(ctx, bad, nil)
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "countries")

	var events int
	require.NoError(t, db.NewSelect().TableExpr("app.events").ColumnExpr("count(*)").Scan(ctx, &events))
	assert.Equal(t, 1, events, "rejected reports leave no event behind")

	// a failed lookup is a server error, not a bad pk
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	_, err = svc.summaryFor(ctx, tx, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.False(t, errors.As(err, &v))
}

type countingSummarizer struct {
	calls int
	seen  int
	err   error
}

func (c *countingSummarizer) Summarize(_ context.Context, learnings []models.OpsLearning) (*Summary, error) {
	c.calls++
	c.seen = len(learnings)
	if c.err != nil {
		return nil, c.err
	}
	return &Summary{Insights: []Insight{{Title: "Early warning", Content: "Pre-positioned stock helped."}}}, nil
}

func TestIntegration_OpsLearningSummaryCache(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO app.countries (id, name, iso, iso3) VALUES (1, 'Kenya', 'KE', 'KEN'), (2, 'Chad', 'TD', 'TCD')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO app.ops_learnings (learning, is_validated, sector, country_id) VALUES
		('Pre-positioned stock shortened the response', true, 'Shelter', 1),
		('Water trucking was delayed', true, 'WASH', 1),
		('Not yet reviewed', false, 'WASH', 1)`)
	require.NoError(t, err)

	sum := &countingSummarizer{}
	svc := NewOpsLearningService(db, NewTranslationService(db), sum, zap.NewNop())
	countCache := func() int {
		var n int
		require.NoError(t, db.NewSelect().TableExpr("app.ops_learning_cache_responses").ColumnExpr("count(*)").Scan(ctx, &n))
		return n
	}

	first, err := svc.GetOrCreateSummary(ctx, models.OpsLearningFilterParams{Countries: []int64{1}})
	require.NoError(t, err)
	assert.Equal(t, models.CacheStatusSuccess, first.Status)
	assert.Equal(t, "Early warning", first.Insight1Title)
	assert.Equal(t, 1, sum.calls)
	assert.Equal(t, 2, sum.seen, "only validated learnings are summarised")
	assert.Equal(t, 1, countCache())

	no := false
	again, err := svc.GetOrCreateSummary(ctx, models.OpsLearningFilterParams{Countries: []int64{1, 1}, IsValidated: &no})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, sum.calls, "a cached success is served as is")

	empty, err := svc.GetOrCreateSummary(ctx, models.OpsLearningFilterParams{Countries: []int64{2}})
	require.NoError(t, err)
	assert.Equal(t, models.CacheStatusNoEvidence, empty.Status)
	assert.Equal(t, 1, sum.calls)
	assert.Equal(t, 2, countCache())

	sum.err = errors.New("model unavailable")
	failed, err := svc.GetOrCreateSummary(ctx, models.OpsLearningFilterParams{Sectors: []string{"wash"}})
	require.NoError(t, err)
	assert.Equal(t, models.CacheStatusFailed, failed.Status)
	assert.Equal(t, 2, sum.calls)

	sum.err = nil
	retried, err := svc.GetOrCreateSummary(ctx, models.OpsLearningFilterParams{Sectors: []string{"WASH"}})
	require.NoError(t, err)
	assert.Equal(t, failed.ID, retried.ID)
	assert.Equal(t, models.CacheStatusSuccess, retried.Status)
	assert.Equal(t, 3, sum.calls, "failed summaries are recomputed")
	assert.Equal(t, 1, sum.seen)
	assert.Equal(t, 3, countCache())
}
