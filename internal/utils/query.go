package utils

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ParseQueryList handles both repeated and comma-separated query params.
// Example:
//
//	?country=12,14          → ["12","14"]
//	?country=12&country=14  → ["12","14"]
func ParseQueryList(q map[string][]string, key string) []string {
	values := q[key]

	if len(values) == 0 {
		return nil
	}

	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// ParseInt64List is ParseQueryList for numeric ids. Values that are not
// integers are reported back so the caller can return a 400.
func ParseInt64List(q url.Values, key string) ([]int64, []string) {
	var ids []int64
	var bad []string
	for _, v := range ParseQueryList(q, key) {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			bad = append(bad, v)
			continue
		}
		ids = append(ids, id)
	}
	return ids, bad
}

// ParseIntList is ParseInt64List for small enum values.
func ParseIntList(q url.Values, key string) ([]int, []string) {
	var out []int
	var bad []string
	for _, v := range ParseQueryList(q, key) {
		n, err := strconv.Atoi(v)
		if err != nil {
			bad = append(bad, v)
			continue
		}
		out = append(out, n)
	}
	return out, bad
}

// ParseBool returns nil when the param is absent or not a boolean.
func ParseBool(q url.Values, key string) *bool {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// ParseDate accepts YYYY-MM-DD or RFC3339. Absent params return (nil, nil).
func ParseDate(q url.Values, key string) (*time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &time.ParseError{Layout: "2006-01-02", Value: v}
}

// PreferredLanguage picks the base language of the highest weighted tag in
// an Accept-Language header ("en;q=0.1, fr-CH" → "fr"). Wildcards and
// malformed headers yield "".
func PreferredLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return ""
	}
	for _, t := range tags {
		if t == language.Und {
			continue
		}
		base, conf := t.Base()
		if conf == language.No || base.String() == "mul" {
			continue
		}
		return base.String()
	}
	return ""
}
