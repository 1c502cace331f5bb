package models

import (
	"fmt"
	"net/url"

	"github.com/ayush/taskboard/backend/internal/apperr"
)

// SortField is a client-selectable task sort key.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByDueDate   SortField = "dueDate"
	SortByTitle     SortField = "title"
	SortByStatus    SortField = "status"
)

// StorageKey maps the sort field to its document field name.
func (f SortField) StorageKey() string {
	switch f {
	case SortByDueDate:
		return "due_date"
	case SortByTitle:
		return "title"
	case SortByStatus:
		return "status"
	default:
		return "created_at"
	}
}

// SortOrder is the direction of a task sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Direction returns the MongoDB sort direction for the order.
func (o SortOrder) Direction() int {
	if o == SortAsc {
		return 1
	}
	return -1
}

// ListOptions is the validated filter/sort criteria for listing tasks.
// A nil Status means no status filter. This struct lives in models for reuse
// by the store, handlers and tests.
type ListOptions struct {
	Status    *Status
	SortField SortField
	SortOrder SortOrder
}

// ParseListOptions builds list criteria from request query parameters,
// validating every recognized value before any storage access. Defaults are
// createdAt descending. The documented page/limit parameters are deliberately
// not read: the full filtered set is always returned.
func ParseListOptions(q url.Values) (ListOptions, error) {
	opts := ListOptions{SortField: SortByCreatedAt, SortOrder: SortDesc}

	if raw := q.Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			return opts, err
		}
		opts.Status = &status
	}

	if raw := q.Get("sortBy"); raw != "" {
		switch SortField(raw) {
		case SortByCreatedAt, SortByDueDate, SortByTitle, SortByStatus:
			opts.SortField = SortField(raw)
		default:
			return opts, apperr.New(apperr.CodeValidation,
				fmt.Sprintf("sortBy must be one of %q, %q, %q or %q", SortByCreatedAt, SortByDueDate, SortByTitle, SortByStatus))
		}
	}

	if raw := q.Get("sortOrder"); raw != "" {
		switch SortOrder(raw) {
		case SortAsc, SortDesc:
			opts.SortOrder = SortOrder(raw)
		default:
			return opts, apperr.New(apperr.CodeValidation, `sortOrder must be "asc" or "desc"`)
		}
	}

	return opts, nil
}
