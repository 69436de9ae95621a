package utils

import (
	"strconv"

	"github.com/HSouheill/leadbridge_admin/models"
)

const (
	DefaultPageSize = 7
	MaxPageSize     = 100
)

// ParsePage reads page/limit query values, falling back to page 1 and DefaultPageSize.
func ParsePage(pageStr, limitStr string) (page, limit int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Offset is the number of items before a 1-based page.
func Offset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	return (page - 1) * limit
}

// NewPage wraps items that are already the requested page of total matches.
func NewPage[T any](items []T, total, page, limit int) models.PaginatedData {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return models.PaginatedData{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
	}
}

// Paginate slices one page out of items. A page past the end is empty.
func Paginate[T any](items []T, page, limit int) models.PaginatedData {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}

	total := len(items)
	start := Offset(page, limit)
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return NewPage(items[start:end], total, page, limit)
}
