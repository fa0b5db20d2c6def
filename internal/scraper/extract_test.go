package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `Emergency Plan of Action
Appeal n° MDRPH052
Glide number: FL-2024-000123-PHL
Number of people to be assisted: 12,500 people
People affected: 1'250'000
DREF amount requested: CHF 498,621
Operation start date: 1st March 2024

Expected end date
31 August 2024
Budget: CHF 2 million
`

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	cat, err := DefaultCatalogue()
	require.NoError(t, err)
	return NewExtractor(cat, 0)
}

func TestExtract(t *testing.T) {
	ex := newTestExtractor(t).Extract(sampleDocument)

	assert.Equal(t, "FL-2024-000123-PHL", ex.Values["glide"])
	assert.Equal(t, 12500, ex.Values["num_beneficiaries"])
	assert.Equal(t, 1250000, ex.Values["num_affected"])
	assert.InDelta(t, 498621.0, ex.Values["amount_requested"], 0.001, "first value wins over the later budget line")

	require.NotNil(t, ex.Appeal.NumBeneficiaries)
	assert.Equal(t, 12500, *ex.Appeal.NumBeneficiaries)
	require.NotNil(t, ex.Appeal.AmountRequested)
	require.NotNil(t, ex.Appeal.StartDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *ex.Appeal.StartDate)
	require.NotNil(t, ex.Appeal.EndDate)
	assert.Equal(t, time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC), *ex.Appeal.EndDate)
}

func TestExtract_NothingFound(t *testing.T) {
	ex := newTestExtractor(t).Extract("Lorem ipsum\ndolor sit amet\n")
	assert.Empty(t, ex.Values)
	assert.True(t, ex.Appeal.Empty())
}

func TestExtract_UnparsableValueKeepsLooking(t *testing.T) {
	ex := newTestExtractor(t).Extract("Start date: to be confirmed\nStart date: 2024-05-02\n")
	require.NotNil(t, ex.Appeal.StartDate)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), *ex.Appeal.StartDate)
}

func TestNewExtractor_Threshold(t *testing.T) {
	cat, err := DefaultCatalogue()
	require.NoError(t, err)
	assert.Equal(t, DefaultMatchScore, NewExtractor(cat, 0).threshold)
	assert.Equal(t, DefaultMatchScore, NewExtractor(cat, 150).threshold)
	assert.Equal(t, 90, NewExtractor(cat, 90).threshold)
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		give string
		want float64
	}{
		{"CHF 498,621", 498621},
		{"1'250'000", 1250000},
		{"1.250.000", 1250000},
		{"1 250 000 people", 1250000},
		{"CHF 1.5 million", 1500000},
		{"2,5 Mio", 2500000},
		{"1,234.56", 1234.56},
		{"1.234,56", 1234.56},
		{"7", 7},
		{"300k", 300000},
	}
	for _, tt := range tests {
		got, err := ParseMoney(tt.give)
		require.NoError(t, err, tt.give)
		assert.InDelta(t, tt.want, got, 0.001, tt.give)
	}

	_, err := ParseMoney("not available")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		give string
		want time.Time
	}{
		{"1st March 2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"March 1, 2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"01/03/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"31.08.2024 (tentative)", time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC)},
		{"12 Aug 2024 to 12 Sep 2024", time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC)},
		{"March 2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.give)
		require.NoError(t, err, tt.give)
		assert.Equal(t, tt.want, got, tt.give)
	}

	_, err := ParseDate("soon")
	assert.Error(t, err)
}
