package services

import (
	"strconv"
	"strings"
)

// PageSize is the number of posts on every listing page.
const PageSize = 10

// Pagination describes one page of a listing.
type Pagination struct {
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// NewPagination resolves a raw page parameter against total items.
// Missing, non-numeric or non-positive pages give page 1; pages past the end give the last page.
// An empty listing still has one (empty) page.
func NewPagination(raw string, total int64, size int) Pagination {
	if size <= 0 {
		size = PageSize
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	if totalPages < 1 {
		totalPages = 1
	}

	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	return Pagination{
		Page:        page,
		PageSize:    size,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

// Offset is the number of rows before this page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Pages lists 1..TotalPages, for page links.
func (p Pagination) Pages() []int {
	pages := make([]int, p.TotalPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
