package handlers

import (
	"net/http"
	"strconv"
)

const (
	defaultPage    = 1
	defaultPerPage = 50
	maxPerPage     = 200
)

// paginationParams holds parsed pagination query parameters.
type paginationParams struct {
	Page    int
	PerPage int
}

// parsePagination extracts page/per_page from the request, defaulting to
// page=1, per_page=50 and capping per_page at 200.
func parsePagination(r *http.Request) paginationParams {
	p := paginationParams{Page: defaultPage, PerPage: defaultPerPage}

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.PerPage = n
			if p.PerPage > maxPerPage {
				p.PerPage = maxPerPage
			}
		}
	}
	return p
}

func (p paginationParams) offset() int {
	return (p.Page - 1) * p.PerPage
}

func (p paginationParams) totalPages(total int64) int {
	pages := int(total) / p.PerPage
	if int(total)%p.PerPage > 0 {
		pages++
	}
	return pages
}
