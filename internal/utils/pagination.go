package utils

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Pagination is a parsed limit/offset pair.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads ?limit and ?offset, falling back to defaults for
// missing or invalid values.
func ParsePagination(q url.Values) Pagination {
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}

// Page is the list envelope returned by every list endpoint.
type Page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// NewPage builds the envelope, computing absolute next/previous links from
// the request URL and baseURL.
func NewPage(r *http.Request, baseURL string, p Pagination, count int, results any) Page {
	page := Page{Count: count, Results: results}

	link := func(offset int) *string {
		q := r.URL.Query()
		q.Set("limit", strconv.Itoa(p.Limit))
		if offset <= 0 {
			q.Del("offset")
		} else {
			q.Set("offset", strconv.Itoa(offset))
		}
		s := baseURL + r.URL.Path + "?" + q.Encode()
		return &s
	}

	if p.Offset+p.Limit < count {
		page.Next = link(p.Offset + p.Limit)
	}
	if p.Offset > 0 {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		page.Previous = link(prev)
	}
	return page
}
