package utils

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	assert.Equal(t, Pagination{Limit: DefaultLimit}, ParsePagination(url.Values{}))
	assert.Equal(t, Pagination{Limit: 10, Offset: 20}, ParsePagination(url.Values{"limit": {"10"}, "offset": {"20"}}))
	assert.Equal(t, Pagination{Limit: MaxLimit}, ParsePagination(url.Values{"limit": {"5000"}}))
	assert.Equal(t, Pagination{Limit: DefaultLimit}, ParsePagination(url.Values{"limit": {"-1"}, "offset": {"-4"}}))
}

func TestNewPage_Links(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v2/events?dtype=4&limit=10&offset=10", nil)
	p := ParsePagination(r.URL.Query())

	page := NewPage(r, "https://goadmin.ifrc.org", p, 35, []int{1})

	assert.Equal(t, 35, page.Count)
	require.NotNil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "https://goadmin.ifrc.org/api/v2/events?dtype=4&limit=10&offset=20", *page.Next)
	assert.Equal(t, "https://goadmin.ifrc.org/api/v2/events?dtype=4&limit=10", *page.Previous)
}

func TestNewPage_LastAndFirst(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v2/events?limit=50", nil)
	page := NewPage(r, "", ParsePagination(r.URL.Query()), 3, nil)
	assert.Nil(t, page.Next)
	assert.Nil(t, page.Previous)
}
