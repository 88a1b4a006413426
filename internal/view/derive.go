package view

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/benvon/todoms/internal/models"
)

// SortField names the todo attribute a display list is ordered by
type SortField string

const (
	FieldTitle       SortField = "title"
	FieldUpdatedAt   SortField = "updatedAt"
	FieldDueDate     SortField = "dueDate"
	FieldIsCompleted SortField = "isCompleted"
)

// SortOrder is the direction of a sort
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// SortKey is a field and direction pair
type SortKey struct {
	Field SortField
	Order SortOrder
}

// Supported sort keys
var (
	TitleAsc        = SortKey{FieldTitle, Asc}
	UpdatedAtAsc    = SortKey{FieldUpdatedAt, Asc}
	UpdatedAtDesc   = SortKey{FieldUpdatedAt, Desc}
	DueDateAsc      = SortKey{FieldDueDate, Asc}
	IsCompletedAsc  = SortKey{FieldIsCompleted, Asc}
	IsCompletedDesc = SortKey{FieldIsCompleted, Desc}

	DefaultSortKey = UpdatedAtDesc
)

// SortKeys lists every supported key in menu order
var SortKeys = []SortKey{UpdatedAtDesc, UpdatedAtAsc, DueDateAsc, TitleAsc, IsCompletedAsc, IsCompletedDesc}

var sortLabels = map[SortKey]string{
	UpdatedAtDesc:   "Updated (newest first)",
	UpdatedAtAsc:    "Updated (oldest first)",
	DueDateAsc:      "Due date (soonest first)",
	TitleAsc:        "Title (A-Z)",
	IsCompletedAsc:  "Incomplete first",
	IsCompletedDesc: "Completed first",
}

// String returns the wire form, e.g. "updatedAt_desc"
func (k SortKey) String() string {
	return string(k.Field) + "_" + string(k.Order)
}

// Label returns a human-readable description of the key
func (k SortKey) Label() string {
	if label, ok := sortLabels[k]; ok {
		return label
	}
	return k.String()
}

// ParseSortKey parses the "field_order" form. Only the supported combinations are accepted.
func ParseSortKey(s string) (SortKey, error) {
	field, order, ok := strings.Cut(s, "_")
	if !ok {
		return SortKey{}, fmt.Errorf("invalid sort key %q: expected field_order", s)
	}
	key := SortKey{Field: SortField(field), Order: SortOrder(order)}
	if !slices.Contains(SortKeys, key) {
		return SortKey{}, fmt.Errorf("unsupported sort key %q", s)
	}
	return key, nil
}

// Derive returns the todos matching searchTerm ordered by key. The input slice is never modified.
func Derive(items []models.Todo, searchTerm string, key SortKey) []models.Todo {
	result := Filter(items, searchTerm)
	Sort(result, key)
	return result
}

// Filter returns a copy of items whose title or description contains term, ignoring case
func Filter(items []models.Todo, term string) []models.Todo {
	if term == "" {
		return slices.Clone(items)
	}

	fold := cases.Fold()
	needle := fold.String(term)
	result := make([]models.Todo, 0, len(items))
	for _, todo := range items {
		if strings.Contains(fold.String(todo.Title), needle) ||
			(todo.Description != nil && strings.Contains(fold.String(*todo.Description), needle)) {
			result = append(result, todo)
		}
	}
	return result
}

// Sort orders items in place with a stable sort. Unknown keys leave the order untouched.
func Sort(items []models.Todo, key SortKey) {
	compare := comparator(key.Field)
	if compare == nil {
		return
	}
	if key.Field == FieldDueDate {
		// undated todos always go last regardless of direction
		slices.SortStableFunc(items, func(a, b models.Todo) int {
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return 0
			case a.DueDate == nil:
				return 1
			case b.DueDate == nil:
				return -1
			}
			return directed(compare(a, b), key.Order)
		})
		return
	}
	slices.SortStableFunc(items, func(a, b models.Todo) int {
		return directed(compare(a, b), key.Order)
	})
}

func directed(c int, order SortOrder) int {
	if order == Desc {
		return -c
	}
	return c
}

func comparator(field SortField) func(a, b models.Todo) int {
	switch field {
	case FieldTitle:
		// collators are not safe for concurrent use
		col := collate.New(language.Und)
		return func(a, b models.Todo) int {
			return col.CompareString(a.Title, b.Title)
		}
	case FieldUpdatedAt:
		return func(a, b models.Todo) int {
			return a.UpdatedAt.Compare(b.UpdatedAt)
		}
	case FieldDueDate:
		return func(a, b models.Todo) int {
			return a.DueDate.Compare(*b.DueDate)
		}
	case FieldIsCompleted:
		return func(a, b models.Todo) int {
			return cmp.Compare(boolRank(a.IsCompleted), boolRank(b.IsCompleted))
		}
	}
	return nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// IncompleteCount counts todos not yet completed
func IncompleteCount(items []models.Todo) int {
	n := 0
	for _, todo := range items {
		if !todo.IsCompleted {
			n++
		}
	}
	return n
}
