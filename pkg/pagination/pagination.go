package pagination

import (
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds page-based pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Normalize returns params with the page floored at 1 and the limit clamped.
func (p Params) Normalize() Params {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return Params{Page: page, Limit: NormalizeLimit(p.Limit)}
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Meta describes a returned page.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// NewMeta builds page metadata for the normalized params and total row count.
func NewMeta(p Params, total int64) Meta {
	n := p.Normalize()
	pages := int((total + int64(n.Limit) - 1) / int64(n.Limit))
	return Meta{Page: n.Page, Limit: n.Limit, TotalCount: total, TotalPages: pages}
}

// SortOrder is an ORDER BY direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder accepts asc/desc in any case; empty yields desc.
func ParseSortOrder(value string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return SortDesc, nil
	case "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	}
	return "", fmt.Errorf("invalid sort order %q", value)
}

// Sort is a validated column and direction pair.
type Sort struct {
	Column string
	Order  SortOrder
}

// Clause renders the sort as an ORDER BY fragment.
func (s Sort) Clause() string {
	return s.Column + " " + string(s.Order)
}

// ResolveSort maps a requested field onto an allow-listed column. Unknown or empty
// fields fall back to fallback.
func ResolveSort(field string, order SortOrder, allowed map[string]string, fallback string) Sort {
	if order == "" {
		order = SortDesc
	}
	column, ok := allowed[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		column = fallback
	}
	return Sort{Column: column, Order: order}
}
