package storage

import (
	"strings"

	"github.com/rossigee/job-search-server/pkg/types"
)

// clauseSpec is one optional search criterion. When value is non-blank it
// contributes condition, with the value's LIKE pattern bound once per
// placeholder.
type clauseSpec struct {
	value     string
	condition string
}

// clauseSpecs lists the criteria of filter in a fixed order
func clauseSpecs(filter types.QueryFilter) []clauseSpec {
	return []clauseSpec{
		{value: filter.Keywords, condition: "(title LIKE ? OR description LIKE ? OR skills LIKE ?)"},
		{value: filter.Location, condition: "location LIKE ?"},
		{value: filter.Company, condition: "company LIKE ?"},
	}
}

// buildPredicate composes the present criteria of filter with AND. It
// returns an empty predicate when no criterion is set.
func buildPredicate(filter types.QueryFilter) (string, []any) {
	var conditions []string
	var args []any

	for _, spec := range clauseSpecs(filter) {
		if strings.TrimSpace(spec.value) == "" {
			continue
		}
		conditions = append(conditions, spec.condition)
		pattern := likePattern(spec.value)
		for i := 0; i < strings.Count(spec.condition, "?"); i++ {
			args = append(args, pattern)
		}
	}

	return strings.Join(conditions, " AND "), args
}
