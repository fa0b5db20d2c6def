package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"go-api/internal/metrics"
	"go-api/internal/models"
	"go-api/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeRows struct {
	imported []models.CountryPlanRow
}

func (f *fakeRows) ImportRow(_ context.Context, row models.CountryPlanRow) error {
	if row.ISO3 == "XXX" {
		return fmt.Errorf("%w: %s", services.ErrUnknownCountry, row.ISO3)
	}
	f.imported = append(f.imported, row)
	return nil
}

func workbook(t *testing.T, rows ...[]any) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	header := []any{"ISO3", "Requested amount", "People targeted",
		"Climate funding", "Climate people", "Crisis funding", "Crisis people",
		"Health funding", "Health people", "Migration funding", "Migration people",
		"Values funding", "Values people"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, r := range rows {
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+2), &r))
	}
	return f
}

func buffer(t *testing.T, f *excelize.File) *bytes.Buffer {
	t.Helper()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImport(t *testing.T) {
	f := workbook(t,
		[]any{"ken", 1500000, 20000, 100000, 500, "", "", 250000, 1200},
		[]any{"XXX", 10},
		[]any{},
		[]any{"NPL", "lots"},
		[]any{"PHL", "", "", "", "", "", "", "", "", "", "", 5000, 40},
	)
	rows := &fakeRows{}
	m := metrics.New(prometheus.NewRegistry())

	res, err := New(rows, zap.NewNop(), m).Import(context.Background(), buffer(t, f))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, RowError{Row: 3, ISO3: "XXX", Error: "unknown country: XXX"}, res.Errors[0])
	assert.Equal(t, 5, res.Errors[1].Row, "blank row 4 is skipped")
	assert.Contains(t, res.Errors[1].Error, "requested amount")

	require.Len(t, rows.imported, 2)
	ken := rows.imported[0]
	assert.Equal(t, 2, ken.Row)
	assert.Equal(t, "KEN", ken.ISO3)
	require.NotNil(t, ken.RequestedAmount)
	assert.InDelta(t, 1500000, *ken.RequestedAmount, 0.001)
	require.NotNil(t, ken.PeopleTargeted)
	assert.Equal(t, 20000, *ken.PeopleTargeted)
	require.Len(t, ken.Priorities, 2)
	assert.Equal(t, models.PriorityClimate, ken.Priorities[0].Type)
	assert.Equal(t, models.PriorityHealth, ken.Priorities[1].Type)
	assert.Equal(t, 1200, *ken.Priorities[1].PeopleTargeted)

	phl := rows.imported[1]
	assert.Nil(t, phl.RequestedAmount)
	require.Len(t, phl.Priorities, 1)
	assert.Equal(t, models.PriorityValues, phl.Priorities[0].Type)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImportedRows.WithLabelValues("imported")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImportedRows.WithLabelValues("failed")))
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.xlsx")
	require.NoError(t, workbook(t, []any{"KEN", 10, 5}).SaveAs(path))

	rows := &fakeRows{}
	res, err := New(rows, zap.NewNop(), nil).ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	_, err = New(rows, zap.NewNop(), nil).ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestImport_NotAWorkbook(t *testing.T) {
	_, err := New(&fakeRows{}, zap.NewNop(), nil).Import(context.Background(), strings.NewReader("iso3,amount\n"))
	assert.Error(t, err)
}

func TestImport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&fakeRows{}, zap.NewNop(), nil).Import(ctx, buffer(t, workbook(t, []any{"KEN", 1})))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParseFloat(t *testing.T) {
	v, err := parseFloat("1,250,000")
	require.NoError(t, err)
	assert.InDelta(t, 1250000, *v, 0.001)

	v, err = parseFloat(" - ")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = parseFloat("-5")
	assert.Error(t, err)
}
