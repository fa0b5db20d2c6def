package utils

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "absent", raw: "", want: nil},
		{name: "comma separated", raw: "country=12, 14", want: []string{"12", "14"}},
		{name: "repeated", raw: "country=12&country=14", want: []string{"12", "14"}},
		{name: "mixed and empty", raw: "country=12,,14&country=&country=16", want: []string{"12", "14", "16"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ParseQueryList(q, "country"))
		})
	}
}

func TestParseInt64List_ReportsBadValues(t *testing.T) {
	q := url.Values{"event": {"1,x,3"}}
	ids, bad := ParseInt64List(q, "event")
	assert.Equal(t, []int64{1, 3}, ids)
	assert.Equal(t, []string{"x"}, bad)
}

func TestParseBool(t *testing.T) {
	q := url.Values{"a": {"true"}, "b": {"0"}, "c": {"maybe"}}
	require.NotNil(t, ParseBool(q, "a"))
	assert.True(t, *ParseBool(q, "a"))
	assert.False(t, *ParseBool(q, "b"))
	assert.Nil(t, ParseBool(q, "c"))
	assert.Nil(t, ParseBool(q, "missing"))
}

func TestParseDate(t *testing.T) {
	q := url.Values{"d": {"2024-03-01"}, "ts": {"2024-03-01T10:00:00Z"}, "bad": {"01/03/2024"}}

	d, err := ParseDate(q, "d")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *d)

	ts, err := ParseDate(q, "ts")
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())

	_, err = ParseDate(q, "bad")
	assert.Error(t, err)

	none, err := ParseDate(q, "missing")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestPreferredLanguage(t *testing.T) {
	assert.Equal(t, "fr", PreferredLanguage("fr-CH, fr;q=0.9, en;q=0.8"))
	assert.Equal(t, "es", PreferredLanguage("ES"))
	assert.Equal(t, "", PreferredLanguage(""))
	assert.Equal(t, "", PreferredLanguage("*"))
	assert.Equal(t, "fr", PreferredLanguage("en;q=0.1, fr"))
	assert.Equal(t, "es", PreferredLanguage("*;q=0.5, es-419;q=0.8, en;q=0.2"))
	assert.Equal(t, "ar", PreferredLanguage("fr;q=0, ar"))
	assert.Equal(t, "", PreferredLanguage("en;q=abc"))
}
