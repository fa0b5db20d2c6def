package services

import (
	"errors"
	"testing"
	"time"

	"go-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

func TestGenerateSummary(t *testing.T) {
	start := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		iso3  string
		dtype string
		start *time.Time
		title string
		ew    bool
		want  string
	}{
		{"full", "phl", "Flood", &start, "Luzon floods", false, "PHL: Flood - 07-03-2024 Luzon floods"},
		{"early warning", "BGD", "Cyclone", &start, "Mocha", true, "BGD: Cyclone - EW 07-03-2024 Mocha"},
		{"no date", "KEN", "Drought", nil, "Horn of Africa", false, "KEN: Drought - Horn of Africa"},
		{"no title", "NPL", "Earthquake", &start, "  ", false, "NPL: Earthquake - 07-03-2024"},
		{"no country", "", "Epidemic", &start, "Cholera", false, "Epidemic - 07-03-2024 Cholera"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSummary(tt.iso3, tt.dtype, tt.start, tt.title, tt.ew))
		})
	}
}

func TestValidateFieldReport(t *testing.T) {
	dtype := int64(4)
	valid := models.FieldReportInput{
		DTypeID:   &dtype,
		Countries: []int64{12},
		Status:    models.FieldReportStatusEvent,
	}
	require.NoError(t, validateFieldReport(valid))

	bad := valid
	bad.DTypeID = nil
	bad.Countries = nil
	bad.Status = 3
	bad.Visibility = 9
	bad.NumDead = null.IntFrom(-1)
	bad.GovNumAffected = null.IntFrom(-20)

	var v *ValidationError
	require.True(t, errors.As(validateFieldReport(bad), &v))
	for _, field := range []string{"dtype", "countries", "status", "visibility", "num_dead", "gov_num_affected"} {
		assert.Contains(t, v.Fields, field)
	}
	assert.NotContains(t, v.Fields, "num_injured")
}

func TestFieldReportFromInput_DefaultsVisibility(t *testing.T) {
	r := fieldReportFromInput(models.FieldReportInput{Title: "  Floods  ", Status: models.FieldReportStatusEvent})
	assert.Equal(t, models.VisibilityPublic, r.Visibility)
	assert.Equal(t, "Floods", r.Title)
}

func TestTotalAffected(t *testing.T) {
	assert.False(t, totalAffected(models.Figures{}).Valid)
	assert.Equal(t, int64(40), totalAffected(models.Figures{GovNumAffected: null.IntFrom(40), OtherNumAffected: null.IntFrom(9)}).Int64)
	assert.Equal(t, int64(5), totalAffected(models.Figures{NumAffected: null.IntFrom(5), GovNumAffected: null.IntFrom(40)}).Int64)
}

func TestValidateEvent(t *testing.T) {
	require.NoError(t, validateEvent(models.EventInput{Name: "Floods", IFRCSeverityLevel: models.SeverityOrange}))

	var v *ValidationError
	err := validateEvent(models.EventInput{IFRCSeverityLevel: 7, Visibility: 12, NumAffected: null.IntFrom(-2)})
	require.True(t, errors.As(err, &v))
	assert.Contains(t, v.Fields, "name")
	assert.Contains(t, v.Fields, "ifrc_severity_level")
	assert.Contains(t, v.Fields, "visibility")
	assert.Contains(t, v.Fields, "num_affected")
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []int64{1, 3, 7}, uniqueIDs([]int64{7, 3, 0, 1, 3, -2, 7}))
	assert.Empty(t, uniqueIDs(nil))
}
