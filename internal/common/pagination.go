package common

import (
	"net/http"
	"strconv"
)

// MaxPerPage bounds the page size accepted from clients.
const MaxPerPage = 100

// Pagination is the metadata attached to list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination derives the page count from total.
func NewPagination(page, perPage int, total int64) Pagination {
	p := Pagination{Page: page, PerPage: perPage, TotalItems: total}
	if perPage > 0 {
		p.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return p
}

// ParsePagination reads ?page= and ?limit=. Missing or invalid values fall
// back to page 1 and defaultPerPage; limit is capped at MaxPerPage.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	q := r.URL.Query()
	page = positiveOr(q.Get("page"), 1)
	perPage = min(positiveOr(q.Get("limit"), defaultPerPage), MaxPerPage)
	return page, perPage
}

// Offset converts a 1-based page into a row offset.
func Offset(page, perPage int) int {
	return (max(page, 1) - 1) * perPage
}

func positiveOr(raw string, fallback int) int {
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}
