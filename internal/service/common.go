// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"skillswap/internal/repository"
)

const maxPageSize = 100

// Pagination describes one page of a listing.
type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

func newPagination(total int64, page repository.Page) Pagination {
	return Pagination{
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: int64(page.Offset+page.Limit) < total,
	}
}

// normalizePage applies def when limit is unset and clamps to maxPageSize.
func normalizePage(limit, offset, def int) repository.Page {
	if limit <= 0 {
		limit = def
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return repository.Page{Limit: limit, Offset: offset}
}
