package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterHash_OrderAndCaseInsensitive(t *testing.T) {
	a := models.OpsLearningFilterParams{
		Countries:   []int64{3, 1, 3},
		Sectors:     []string{"Health", "shelter", ""},
		AppealCodes: []string{"mdrph001"},
	}
	b := models.OpsLearningFilterParams{
		Countries:   []int64{1, 3},
		Sectors:     []string{" SHELTER", "health"},
		AppealCodes: []string{"MDRPH001"},
	}

	ha, fa, err := FilterHash(a)
	require.NoError(t, err)
	hb, _, err := FilterHash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
	assert.Equal(t, []int64{1, 3}, fa["country"])
	assert.Equal(t, []string{"health", "shelter"}, fa["sector"])
}

func TestFilterHash_DifferentFilters(t *testing.T) {
	h1, _, _ := FilterHash(models.OpsLearningFilterParams{Countries: []int64{1}})
	h2, _, _ := FilterHash(models.OpsLearningFilterParams{Countries: []int64{2}})
	h3, _, _ := FilterHash(models.OpsLearningFilterParams{})
	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestNormalizeFilters_DropsEmpties(t *testing.T) {
	assert.Empty(t, NormalizeFilters(models.OpsLearningFilterParams{Sectors: []string{" "}, Search: "  "}))

	f := NormalizeFilters(models.OpsLearningFilterParams{Regions: []int{2, 0, 2}})
	assert.Equal(t, []int{0, 2}, f["region"])
}

func TestFilterHash_IgnoresValidatedFlag(t *testing.T) {
	yes, no := true, false
	base := models.OpsLearningFilterParams{Countries: []int64{4}}
	h, f, err := FilterHash(base)
	require.NoError(t, err)
	assert.NotContains(t, f, "is_validated")

	for _, v := range []*bool{&yes, &no} {
		p := base
		p.IsValidated = v
		got, _, err := FilterHash(p)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	}
}

func TestApplySummary(t *testing.T) {
	row := &models.OpsLearningCacheResponse{}
	applySummary(row, nil, errors.New("boom"))
	assert.Equal(t, models.CacheStatusFailed, row.Status)

	row = &models.OpsLearningCacheResponse{}
	applySummary(row, &Summary{}, nil)
	assert.Equal(t, models.CacheStatusNoEvidence, row.Status)
	assert.NotNil(t, row.SectorSummaries)

	row = &models.OpsLearningCacheResponse{}
	applySummary(row, &Summary{
		Insights:        []Insight{{Title: "A", Content: "a"}, {Title: "B", Content: "b"}},
		SectorSummaries: []models.SectorSummary{{Sector: "Health", Count: 2}},
	}, nil)
	assert.Equal(t, models.CacheStatusSuccess, row.Status)
	assert.Equal(t, "A", row.Insight1Title)
	assert.Equal(t, "b", row.Insight2Content)
	assert.Empty(t, row.Insight3Title)
	assert.Len(t, row.SectorSummaries, 1)
}

func TestExtractiveSummarizer(t *testing.T) {
	logistics := &models.FormComponent{Title: "Logistics"}
	learnings := []models.OpsLearning{
		{ID: 5, Learning: "Pre-position stock", Sector: "Shelter", Type: models.OpsLearningLesson, PerComponent: logistics},
		{ID: 4, Learning: "Late procurement", LearningValidated: "Procurement started late", Sector: "Shelter", Type: models.OpsLearningChallenge, PerComponent: logistics},
		{ID: 3, Learning: "Cash worked well", Sector: "Livelihoods", Type: models.OpsLearningLesson},
		{ID: 2, Learning: "Volunteer fatigue", Sector: "Shelter", Type: models.OpsLearningChallenge},
	}

	s, err := NewExtractiveSummarizer().Summarize(context.Background(), learnings)
	require.NoError(t, err)

	require.Len(t, s.Insights, 3)
	assert.Equal(t, "Most reported sector: Shelter (3 learnings)", s.Insights[0].Title)
	assert.Contains(t, s.Insights[0].Content, "- Procurement started late")
	assert.Equal(t, "Most cited PER component: Logistics (2 learnings)", s.Insights[1].Title)
	assert.Equal(t, "Most recent learnings", s.Insights[2].Title)
	assert.True(t, strings.HasPrefix(s.Insights[2].Content, "- Pre-position stock"))

	require.Len(t, s.SectorSummaries, 2)
	assert.Equal(t, "Shelter", s.SectorSummaries[0].Sector)
	assert.Equal(t, 3, s.SectorSummaries[0].Count)
	assert.NotEmpty(t, s.ContradictoryReports)
}

func TestExtractiveSummarizer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExtractiveSummarizer().Summarize(ctx, []models.OpsLearning{{Learning: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuote_Limit(t *testing.T) {
	ls := []models.OpsLearning{{Learning: "a"}, {Learning: ""}, {Learning: "b"}, {Learning: "c"}}
	assert.Equal(t, "- a\n- b", quote(ls, 2))
}
