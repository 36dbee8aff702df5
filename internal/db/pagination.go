package db

import (
	"fmt"
)

const (
	// OrderAsc sorts oldest first
	OrderAsc = "asc"
	// OrderDesc sorts newest first
	OrderDesc = "desc"

	maxPageSize = 100
)

// journalSortColumns are the columns the event journal may be ordered by.
// The set matches the journal's indexes; OrderBy is interpolated into SQL so
// anything outside it is rejected.
var journalSortColumns = map[string]bool{
	"created_at": true,
	"type":       true,
	"service_id": true,
}

// PaginationOptions selects one page of the event journal
type PaginationOptions struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	OrderBy  string `json:"order_by"`
	Order    string `json:"order"`
}

// DefaultPaginationOptions reads the journal newest-first, as the events
// command and API do
func DefaultPaginationOptions() PaginationOptions {
	return PaginationOptions{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		Order:    OrderDesc,
	}
}

// Validate checks if pagination options are valid
func (p PaginationOptions) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("page must be >= 1")
	}
	if p.PageSize < 1 || p.PageSize > maxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d", maxPageSize)
	}
	if p.OrderBy != "" && !journalSortColumns[p.OrderBy] {
		return fmt.Errorf("cannot order events by %q", p.OrderBy)
	}
	if p.Order != OrderAsc && p.Order != OrderDesc {
		return fmt.Errorf("order must be %q or %q", OrderAsc, OrderDesc)
	}
	return nil
}

// BuildOrderClause builds the ORDER BY clause for journal queries
func (p PaginationOptions) BuildOrderClause() string {
	if p.OrderBy == "" {
		p.OrderBy = "created_at"
	}
	return fmt.Sprintf("ORDER BY %s %s", p.OrderBy, p.Order)
}

// BuildLimitClause builds the LIMIT/OFFSET clause for journal queries
func (p PaginationOptions) BuildLimitClause() string {
	offset := (p.Page - 1) * p.PageSize
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.PageSize, offset)
}

// PaginatedResponse is one page of journal rows with its position metadata
type PaginatedResponse[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPaginatedResponse wraps one page of rows
func NewPaginatedResponse[T any](data []T, options PaginationOptions, totalItems int) *PaginatedResponse[T] {
	totalPages := (totalItems + options.PageSize - 1) / options.PageSize
	return &PaginatedResponse[T]{
		Data:       data,
		Page:       options.Page,
		PageSize:   options.PageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}
