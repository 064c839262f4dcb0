package services

import (
	"strconv"
	"strings"
)

// MaxPageLimit caps the page size a client may request.
const MaxPageLimit = 100

// PageRequest is a validated page/limit pair.
type PageRequest struct {
	Page   int
	Limit  int
	Offset int
}

// Paginate parses page and limit query values. Missing, malformed or
// non-positive values fall back to page 1 and defaultLimit.
func Paginate(pageStr, limitStr string, defaultLimit int) PageRequest {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	page := parsePositive(pageStr, 1)
	limit := parsePositive(limitStr, defaultLimit)
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageRequest{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func parsePositive(raw string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// Listing is one page of results.
type Listing[T any] struct {
	Items     []T   `json:"items"`
	Total     int64 `json:"total"`
	PageCount int   `json:"page_count"`
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
}

// NewListing wraps items with the page metadata for req.
func NewListing[T any](items []T, total int64, req PageRequest) Listing[T] {
	if items == nil {
		items = []T{}
	}
	return Listing[T]{
		Items:     items,
		Total:     total,
		PageCount: int((total + int64(req.Limit) - 1) / int64(req.Limit)),
		Page:      req.Page,
		Limit:     req.Limit,
	}
}
