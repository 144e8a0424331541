// Package dedupe removes repeated job postings collected across search queries.
package dedupe

import "github.com/rossigee/job-search-server/pkg/types"

type identityKey struct {
	title   string
	company string
}

// ByTitleCompany returns records with every repeated (title, company) pair
// removed. The first occurrence is kept and relative order is preserved.
func ByTitleCompany(records []types.JobRecord) []types.JobRecord {
	seen := make(map[identityKey]struct{}, len(records))
	unique := make([]types.JobRecord, 0, len(records))

	for _, record := range records {
		key := identityKey{title: record.Title, company: record.Company}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, record)
	}

	return unique
}
