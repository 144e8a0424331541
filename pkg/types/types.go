// Package types defines the wire and storage shapes shared by the job search packages.
package types

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Flag is a boolean carried as 0/1 on the wire and in the store
type Flag bool

// MarshalJSON encodes the flag as 0 or 1
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON accepts 0, 1, true, false and null
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "1", "true":
		*f = true
	case "0", "false", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s: expected 0 or 1", strconv.Quote(string(data)))
	}
	return nil
}

// JobRecord is a normalized job posting, as written to the snapshot
type JobRecord struct {
	Title           string `json:"title"`
	Company         string `json:"company"`
	Location        string `json:"location"`
	SalaryMin       *int64 `json:"salary_min"`
	SalaryMax       *int64 `json:"salary_max"`
	SalaryCurrency  string `json:"salary_currency"`
	EmploymentType  string `json:"employment_type"`
	ExperienceLevel string `json:"experience_level"`
	Skills          string `json:"skills"`
	Description     string `json:"description"`
	PostedDate      string `json:"posted_date"`
	ApplicationURL  string `json:"application_url"`
	RemoteOK        Flag   `json:"remote_ok"`
}

// Job is a stored job posting with its database identity
type Job struct {
	ID int64 `json:"id"`
	JobRecord
}

// QueryFilter holds the optional search criteria for a job query
type QueryFilter struct {
	Keywords string `json:"keywords" form:"keywords"`
	Location string `json:"location" form:"location"`
	Company  string `json:"company" form:"company"`
	Limit    int    `json:"limit" form:"limit"`
}

// SearchQuery is one role/location pair requested from the job search API
type SearchQuery struct {
	Role       string `yaml:"role" json:"role"`
	Location   string `yaml:"location" json:"location"`
	NumResults int    `yaml:"num_results" json:"num_results"`
}

// SearchResult is the response of the search_jobs operation
type SearchResult struct {
	TotalResults int    `json:"total_results,omitempty"`
	Jobs         []Job  `json:"jobs,omitempty"`
	Error        string `json:"error,omitempty"`
}

// JobResult is the response of the get_job_by_id operation.
// Either the embedded job or Error is set.
type JobResult struct {
	*Job
	Error string `json:"error,omitempty"`
}

// LocationCount is a per-location job count
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// CompanyCount is a per-company job count
type CompanyCount struct {
	Company string `json:"company"`
	Count   int    `json:"count"`
}

// Statistics is the response of the get_job_statistics operation
type Statistics struct {
	TotalJobs    int             `json:"total_jobs"`
	RemoteJobs   int             `json:"remote_jobs"`
	TopLocations []LocationCount `json:"top_locations"`
	TopCompanies []CompanyCount  `json:"top_companies"`
}

// RunStage identifies the step a pipeline run is executing
type RunStage string

const (
	StageFetching  RunStage = "fetching"
	StageDedupe    RunStage = "deduplicating"
	StageSnapshot  RunStage = "snapshot"
	StageResetting RunStage = "resetting_schema"
	StageInserting RunStage = "inserting"
	StageVerifying RunStage = "verifying"
	StageCompleted RunStage = "completed"
	StageFailed    RunStage = "failed"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	TotalJobs int       `json:"total_jobs"`
}

// ToolParameter describes one argument of a remote tool
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description"`
}

// ToolDescriptor describes a remotely callable query operation
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}
