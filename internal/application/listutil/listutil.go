// Package listutil pages flat result lists for the JSON log views.
package listutil

import (
	"net/url"
	"strconv"
)

// PageParams carries pagination parameters parsed from a request.
// The zero value means "no paging": the whole list in one page.
type PageParams struct {
	Page    int // 1-indexed page number
	PerPage int // rows per page
}

// Paged reports whether p asks for a page rather than the whole list.
func (p PageParams) Paged() bool {
	return p.PerPage > 0
}

// PageInfo carries pagination metadata returned with a page.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 50

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 20, 50, 100, 200, 500}

// ParsePageParams extracts page and per_page from URL query values. When
// neither is present the zero PageParams is returned.
// PRE: none
// POST: returns the zero value or PageParams with Page >= 1 and an allowed PerPage
func ParsePageParams(q url.Values) PageParams {
	if !q.Has("page") && !q.Has("per_page") {
		return PageParams{}
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !isValidPerPage(perPage) {
		perPage = DefaultPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

// NewPageInfo computes pagination metadata. An unpaged request yields a
// single page holding every row.
// PRE: total >= 0
// POST: returns PageInfo with TotalPages computed; Page clamped to valid range
func NewPageInfo(p PageParams, total int) PageInfo {
	if !p.Paged() {
		return PageInfo{Page: 1, PerPage: total, Total: total, TotalPages: 1}
	}
	perPage := p.PerPage
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	page := p.Page
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the index of the first row on the current page.
// POST: Returns (Page-1) * PerPage
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow returns the 1-indexed first row number on the current page.
// POST: Returns 0 if Total is 0, otherwise Offset+1
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow returns the 1-indexed last row number on the current page.
// POST: Returns min(Offset+PerPage, Total)
func (p PageInfo) EndRow() int {
	end := p.Offset() + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return end
}

// Slice returns the rows of items that fall on the page described by info.
// The result aliases items.
func Slice[T any](items []T, info PageInfo) []T {
	start := info.Offset()
	end := info.EndRow()
	if start >= len(items) || start >= end {
		return items[:0:0]
	}
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func isValidPerPage(n int) bool {
	for _, opt := range PerPageOptions {
		if n == opt {
			return true
		}
	}
	return false
}
