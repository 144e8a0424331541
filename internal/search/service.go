// Package search exposes the read-only job queries as structured operations
// that can be invoked by name.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rossigee/job-search-server/internal/storage"
	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/sirupsen/logrus"
)

// Tool names
const (
	ToolSearchJobs       = "search_jobs"
	ToolGetJobByID       = "get_job_by_id"
	ToolGetJobStatistics = "get_job_statistics"
)

// NoJobsMessage is returned when a search matches nothing
const NoJobsMessage = "No jobs found matching your criteria."

// ErrUnknownTool is returned by Call for an unregistered tool name
var ErrUnknownTool = errors.New("unknown tool")

// ArgumentError reports tool arguments that could not be decoded
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// JobStore is the subset of the job store used for queries
type JobStore interface {
	Query(ctx context.Context, filter types.QueryFilter) ([]types.Job, error)
	GetByID(ctx context.Context, id int64) (*types.Job, error)
	Statistics(ctx context.Context) (*types.Statistics, error)
}

// Service answers job queries from the store. Missing jobs are reported in
// the result, errors are reserved for store failures.
type Service struct {
	store JobStore
}

// NewService creates a new query service
func NewService(store JobStore) *Service {
	return &Service{store: store}
}

// SearchJobs returns the jobs matching filter
func (s *Service) SearchJobs(ctx context.Context, filter types.QueryFilter) (types.SearchResult, error) {
	jobs, err := s.store.Query(ctx, filter)
	if err != nil {
		return types.SearchResult{}, fmt.Errorf("failed to search jobs: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"keywords": filter.Keywords,
		"location": filter.Location,
		"company":  filter.Company,
		"limit":    filter.Limit,
		"results":  len(jobs),
	}).Debug("Searched jobs")

	if len(jobs) == 0 {
		return types.SearchResult{Error: NoJobsMessage}, nil
	}
	return types.SearchResult{TotalResults: len(jobs), Jobs: jobs}, nil
}

// GetJobByID returns the job with the given id
func (s *Service) GetJobByID(ctx context.Context, id int64) (types.JobResult, error) {
	job, err := s.store.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return types.JobResult{Error: fmt.Sprintf("No job found with ID %d.", id)}, nil
	}
	if err != nil {
		return types.JobResult{}, fmt.Errorf("failed to get job %d: %w", id, err)
	}
	return types.JobResult{Job: job}, nil
}

// GetJobStatistics returns aggregate counts over all stored jobs
func (s *Service) GetJobStatistics(ctx context.Context) (types.Statistics, error) {
	stats, err := s.store.Statistics(ctx)
	if err != nil {
		return types.Statistics{}, fmt.Errorf("failed to get job statistics: %w", err)
	}
	return *stats, nil
}

// Tools describes the operations accepted by Call
func (s *Service) Tools() []types.ToolDescriptor {
	return []types.ToolDescriptor{
		{
			Name:        ToolSearchJobs,
			Description: "Search for jobs by keywords, location and company.",
			Parameters: []types.ToolParameter{
				{Name: "keywords", Type: "string", Default: "", Description: "Matched against title, description and skills"},
				{Name: "location", Type: "string", Default: "", Description: "Substring of the job location"},
				{Name: "company", Type: "string", Default: "", Description: "Substring of the company name"},
				{Name: "limit", Type: "integer", Default: storage.DefaultLimit, Description: "Maximum number of jobs returned"},
			},
		},
		{
			Name:        ToolGetJobByID,
			Description: "Get detailed information about a specific job.",
			Parameters: []types.ToolParameter{
				{Name: "job_id", Type: "integer", Description: "Job id"},
			},
		},
		{
			Name:        ToolGetJobStatistics,
			Description: "Get statistics about the jobs in the database.",
			Parameters:  []types.ToolParameter{},
		},
	}
}

type jobIDArgs struct {
	JobID *int64 `json:"job_id"`
}

// Call invokes the named tool with JSON encoded arguments. Empty args are
// treated as an empty object.
func (s *Service) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case ToolSearchJobs:
		var filter types.QueryFilter
		if err := decodeArgs(args, &filter); err != nil {
			return nil, &ArgumentError{Tool: name, Err: err}
		}
		return s.SearchJobs(ctx, filter)
	case ToolGetJobByID:
		var a jobIDArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, &ArgumentError{Tool: name, Err: err}
		}
		if a.JobID == nil {
			return nil, &ArgumentError{Tool: name, Err: errors.New("job_id is required")}
		}
		return s.GetJobByID(ctx, *a.JobID)
	case ToolGetJobStatistics:
		return s.GetJobStatistics(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

func decodeArgs(args json.RawMessage, v any) error {
	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
