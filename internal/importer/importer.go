package importer

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go-api/internal/metrics"
	"go-api/internal/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Column layout of the country plan workbook: ISO3, requested amount,
// people targeted, then a funding/people pair per strategic priority.
const (
	colISO3            = 0
	colRequestedAmount = 1
	colPeopleTargeted  = 2
	colFirstPriority   = 3
)

// RowImporter is the part of the country plan service the importer uses.
type RowImporter interface {
	ImportRow(ctx context.Context, row models.CountryPlanRow) error
}

// RowError describes a row that was not imported.
type RowError struct {
	Row   int    `json:"row"`
	ISO3  string `json:"iso3"`
	Error string `json:"error"`
}

type Result struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors,omitempty"`
}

type Importer struct {
	rows    RowImporter
	logr    *zap.Logger
	metrics *metrics.Metrics
}

// New builds an importer. m may be nil.
func New(rows RowImporter, logr *zap.Logger, m *metrics.Metrics) *Importer {
	return &Importer{rows: rows, logr: logr, metrics: m}
}

// ImportFile imports the workbook at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return im.importWorkbook(ctx, f)
}

// Import reads an .xlsx workbook from r. Only an unreadable workbook is an
// error; bad rows end up in Result.Errors.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return im.importWorkbook(ctx, f)
}

func (im *Importer) importWorkbook(ctx context.Context, f *excelize.File) (*Result, error) {
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	res := &Result{}
	// row 1 is the header
	for i := 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		cells := rows[i]
		if blank(cells) {
			continue
		}
		rowNum := i + 1

		row, err := parseRow(rowNum, cells)
		if err == nil {
			err = im.rows.ImportRow(ctx, row)
		}
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, RowError{Row: rowNum, ISO3: cell(cells, colISO3), Error: err.Error()})
			im.count("failed")
			im.logr.Warn("country plan row failed", zap.Int("row", rowNum), zap.String("iso3", cell(cells, colISO3)), zap.Error(err))
			continue
		}
		res.Imported++
		im.count("imported")
	}

	im.logr.Info("country plan import finished", zap.Int("imported", res.Imported), zap.Int("failed", res.Failed))
	return res, nil
}

func (im *Importer) count(status string) {
	if im.metrics != nil {
		im.metrics.ImportedRows.WithLabelValues(status).Inc()
	}
}

func parseRow(rowNum int, cells []string) (models.CountryPlanRow, error) {
	row := models.CountryPlanRow{Row: rowNum, ISO3: strings.ToUpper(cell(cells, colISO3))}

	var err error
	if row.RequestedAmount, err = parseFloat(cell(cells, colRequestedAmount)); err != nil {
		return row, fmt.Errorf("requested amount: %w", err)
	}
	if row.PeopleTargeted, err = parseInt(cell(cells, colPeopleTargeted)); err != nil {
		return row, fmt.Errorf("people targeted: %w", err)
	}

	for i, typ := range models.StrategicPriorityOrder {
		col := colFirstPriority + 2*i
		funding, err := parseFloat(cell(cells, col))
		if err != nil {
			return row, fmt.Errorf("priority %d funding: %w", typ, err)
		}
		people, err := parseInt(cell(cells, col+1))
		if err != nil {
			return row, fmt.Errorf("priority %d people: %w", typ, err)
		}
		if funding == nil && people == nil {
			continue
		}
		row.Priorities = append(row.Priorities, models.PriorityFigures{
			Type:               typ,
			FundingRequirement: funding,
			PeopleTargeted:     people,
		})
	}
	return row, nil
}

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseFloat(s string) (*float64, error) {
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	if s == "" || s == "-" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 {
		return nil, fmt.Errorf("%q is negative", s)
	}
	return &v, nil
}

func parseInt(s string) (*int, error) {
	f, err := parseFloat(s)
	if err != nil || f == nil {
		return nil, err
	}
	if *f > math.MaxInt32 {
		return nil, fmt.Errorf("%q is too large", s)
	}
	v := int(math.Round(*f))
	return &v, nil
}
