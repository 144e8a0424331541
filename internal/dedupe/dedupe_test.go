package dedupe

import (
	"testing"

	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/stretchr/testify/assert"
)

func record(title, company, location string) types.JobRecord {
	return types.JobRecord{Title: title, Company: company, Location: location}
}

func TestByTitleCompany(t *testing.T) {
	tests := []struct {
		name     string
		input    []types.JobRecord
		expected []types.JobRecord
	}{
		{
			name:     "nil input",
			input:    nil,
			expected: []types.JobRecord{},
		},
		{
			name: "no duplicates",
			input: []types.JobRecord{
				record("Python Developer", "Acme", "Seattle"),
				record("Java Developer", "Acme", "Austin"),
			},
			expected: []types.JobRecord{
				record("Python Developer", "Acme", "Seattle"),
				record("Java Developer", "Acme", "Austin"),
			},
		},
		{
			name: "first occurrence wins",
			input: []types.JobRecord{
				record("Python Developer", "Acme", "Seattle"),
				record("Data Scientist", "Beta", "Boston"),
				record("Python Developer", "Acme", "Austin"),
				record("Data Scientist", "Beta", "Chicago"),
			},
			expected: []types.JobRecord{
				record("Python Developer", "Acme", "Seattle"),
				record("Data Scientist", "Beta", "Boston"),
			},
		},
		{
			name: "same title at different companies is kept",
			input: []types.JobRecord{
				record("DevOps Engineer", "Acme", "Denver"),
				record("DevOps Engineer", "Beta", "Denver"),
			},
			expected: []types.JobRecord{
				record("DevOps Engineer", "Acme", "Denver"),
				record("DevOps Engineer", "Beta", "Denver"),
			},
		},
		{
			name: "identity is case sensitive",
			input: []types.JobRecord{
				record("devops engineer", "Acme", "Denver"),
				record("DevOps Engineer", "Acme", "Denver"),
			},
			expected: []types.JobRecord{
				record("devops engineer", "Acme", "Denver"),
				record("DevOps Engineer", "Acme", "Denver"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ByTitleCompany(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.LessOrEqual(t, len(got), len(tt.input))
		})
	}
}

func TestByTitleCompany_DoesNotModifyInput(t *testing.T) {
	input := []types.JobRecord{
		record("A", "X", "1"),
		record("A", "X", "2"),
	}
	_ = ByTitleCompany(input)

	assert.Equal(t, "2", input[1].Location)
}
