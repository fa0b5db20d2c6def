package scraper

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go-api/internal/models"
)

// DefaultMatchScore is the lowest TokenSortRatio accepted as a label match.
const DefaultMatchScore = 80

// Extraction is what a document yielded. Values holds int, float64,
// time.Time or string depending on the field kind.
type Extraction struct {
	Values map[string]any
	Appeal models.AppealExtract
}

type Extractor struct {
	cat       *Catalogue
	threshold int
	maxWords  int
}

func NewExtractor(cat *Catalogue, threshold int) *Extractor {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultMatchScore
	}
	e := &Extractor{cat: cat, threshold: threshold}
	for _, f := range cat.Fields {
		for _, l := range f.Labels {
			e.maxWords = max(e.maxWords, len(strings.Fields(l)))
		}
	}
	return e
}

// match returns the best scoring field for label, if any reaches the
// threshold.
func (e *Extractor) match(label string) (*Field, int) {
	var best *Field
	bestScore := 0
	for i := range e.cat.Fields {
		f := &e.cat.Fields[i]
		for _, l := range f.Labels {
			if s := TokenSortRatio(label, l); s > bestScore {
				best, bestScore = f, s
			}
		}
	}
	if bestScore < e.threshold {
		return nil, bestScore
	}
	return best, bestScore
}

// Extract scans text line by line. The first parsable value of a field wins.
func (e *Extractor) Extract(text string) Extraction {
	out := Extraction{Values: map[string]any{}}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		field, value := e.matchLine(line)
		if field == nil {
			continue
		}
		if _, done := out.Values[field.Name]; done {
			continue
		}
		if value == "" {
			for j := i + 1; j < len(lines); j++ {
				if v := strings.TrimSpace(lines[j]); v != "" {
					value = v
					break
				}
			}
		}
		if v, ok := parseValue(field.Kind, value); ok {
			out.Values[field.Name] = v
		}
	}

	out.Appeal = appealExtract(out.Values)
	return out
}

func (e *Extractor) matchLine(line string) (*Field, string) {
	if label, value, ok := strings.Cut(line, ":"); ok {
		if f, _ := e.match(label); f != nil {
			return f, strings.TrimSpace(value)
		}
		return nil, ""
	}

	// no colon: try the leading words as the label, longest first. A line
	// that is only a label takes its value from the next line.
	words := strings.Fields(line)
	for n := min(e.maxWords, len(words)); n >= 1; n-- {
		if f, _ := e.match(strings.Join(words[:n], " ")); f != nil {
			return f, strings.Join(words[n:], " ")
		}
	}
	return nil, ""
}

func appealExtract(values map[string]any) models.AppealExtract {
	var ex models.AppealExtract
	if v, ok := values["num_beneficiaries"].(int); ok {
		ex.NumBeneficiaries = &v
	}
	if v, ok := values["amount_requested"].(float64); ok {
		ex.AmountRequested = &v
	}
	if v, ok := values["start_date"].(time.Time); ok {
		ex.StartDate = &v
	}
	if v, ok := values["end_date"].(time.Time); ok {
		ex.EndDate = &v
	}
	return ex
}

func parseValue(kind Kind, raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	switch kind {
	case KindInt:
		f, err := ParseMoney(raw)
		if err != nil || f < 0 || f > math.MaxInt32 {
			return nil, false
		}
		return int(math.Round(f)), true
	case KindMoney:
		f, err := ParseMoney(raw)
		if err != nil {
			return nil, false
		}
		return f, true
	case KindDate:
		t, err := ParseDate(raw)
		if err != nil {
			return nil, false
		}
		return t, true
	default:
		return raw, true
	}
}

var numberRe = regexp.MustCompile(`\d[\d,.' ]*\d|\d`)

var multipliers = map[string]float64{
	"million":  1e6,
	"millions": 1e6,
	"m":        1e6,
	"mio":      1e6,
	"billion":  1e9,
	"bn":       1e9,
	"thousand": 1e3,
	"k":        1e3,
}

// ParseMoney reads the first number in s, accepting thousands separators
// (1,250,000 / 1'250'000 / 1.250.000 / 1 250 000) and a trailing scale
// word ("CHF 1.5 million").
func ParseMoney(s string) (float64, error) {
	loc := numberRe.FindStringIndex(s)
	if loc == nil {
		return 0, fmt.Errorf("no number in %q", s)
	}
	num := strings.TrimSpace(s[loc[0]:loc[1]])
	n, err := parseNumber(num)
	if err != nil {
		return 0, err
	}

	rest := strings.Fields(strings.ToLower(s[loc[1]:]))
	if len(rest) > 0 {
		if m, ok := multipliers[strings.Trim(rest[0], ".,;()")]; ok {
			n *= m
		}
	}
	return n, nil
}

func parseNumber(num string) (float64, error) {
	num = strings.NewReplacer(" ", "", "'", "").Replace(num)

	lastComma := strings.LastIndex(num, ",")
	lastDot := strings.LastIndex(num, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// the separator appearing last is the decimal one
		if lastComma > lastDot {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case lastComma >= 0:
		num = normalizeSingleSeparator(num, ",")
	case lastDot >= 0:
		num = normalizeSingleSeparator(num, ".")
	}
	return strconv.ParseFloat(num, 64)
}

// normalizeSingleSeparator decides whether sep groups thousands or marks
// decimals: repeated, or followed by exactly three digits, means thousands.
func normalizeSingleSeparator(num, sep string) string {
	parts := strings.Split(num, sep)
	if len(parts) > 2 || len(parts[len(parts)-1]) == 3 {
		return strings.Join(parts, "")
	}
	return strings.Join(parts, ".")
}

var dateLayouts = []string{
	"2 January 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"02-01-2006",
	"January 2006",
}

var ordinalRe = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)

// ParseDate understands the date spellings found in appeal documents.
// Numeric day/month dates are read day first.
func ParseDate(s string) (time.Time, error) {
	s = ordinalRe.ReplaceAllString(strings.TrimSpace(s), "$1")
	if i := strings.IndexAny(s, ";("); i > 0 {
		s = s[:i]
	}
	words := strings.Fields(s)

	// try the longest prefix first, trailing text is common
	for n := min(len(words), 3); n >= 1; n-- {
		candidate := strings.Trim(strings.Join(words[:n], " "), ".,")
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
