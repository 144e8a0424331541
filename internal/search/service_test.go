package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rossigee/job-search-server/internal/snapshot"
	"github.com/rossigee/job-search-server/internal/storage"
	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore is a JobStore returning canned responses
type mockStore struct {
	jobs       []types.Job
	stats      *types.Statistics
	err        error
	lastFilter types.QueryFilter
}

func (m *mockStore) Query(_ context.Context, filter types.QueryFilter) ([]types.Job, error) {
	m.lastFilter = filter
	return m.jobs, m.err
}

func (m *mockStore) GetByID(_ context.Context, id int64) (*types.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.jobs {
		if m.jobs[i].ID == id {
			return &m.jobs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
}

func (m *mockStore) Statistics(_ context.Context) (*types.Statistics, error) {
	return m.stats, m.err
}

func TestSearchJobs_Results(t *testing.T) {
	store := &mockStore{jobs: []types.Job{
		{ID: 1, JobRecord: types.JobRecord{Title: "Python Developer"}},
		{ID: 2, JobRecord: types.JobRecord{Title: "Data Scientist"}},
	}}
	service := NewService(store)

	result, err := service.SearchJobs(context.Background(), types.QueryFilter{Keywords: "python", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalResults)
	assert.Len(t, result.Jobs, 2)
	assert.Empty(t, result.Error)
	assert.Equal(t, types.QueryFilter{Keywords: "python", Limit: 5}, store.lastFilter)
}

func TestSearchJobs_NoResults(t *testing.T) {
	service := NewService(&mockStore{})

	result, err := service.SearchJobs(context.Background(), types.QueryFilter{Keywords: "cobol"})
	require.NoError(t, err)
	assert.Equal(t, "No jobs found matching your criteria.", result.Error)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error": "No jobs found matching your criteria."}`, string(data))
}

func TestSearchJobs_StoreError(t *testing.T) {
	service := NewService(&mockStore{err: errors.New("disk I/O error")})

	_, err := service.SearchJobs(context.Background(), types.QueryFilter{})
	assert.ErrorContains(t, err, "disk I/O error")
}

func TestGetJobByID(t *testing.T) {
	store := &mockStore{jobs: []types.Job{{ID: 7, JobRecord: types.JobRecord{Title: "Go Developer", Company: "Acme"}}}}
	service := NewService(store)

	result, err := service.GetJobByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, result.Job)
	assert.Equal(t, "Go Developer", result.Title)
	assert.Empty(t, result.Error)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, float64(7), fields["id"])
	assert.Equal(t, "Acme", fields["company"])
	assert.NotContains(t, fields, "error")
}

func TestGetJobByID_NotFound(t *testing.T) {
	service := NewService(&mockStore{})

	result, err := service.GetJobByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, result.Job)
	assert.Equal(t, "No job found with ID 42.", result.Error)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error": "No job found with ID 42."}`, string(data))
}

func TestGetJobByID_StoreError(t *testing.T) {
	service := NewService(&mockStore{err: errors.New("database is locked")})

	_, err := service.GetJobByID(context.Background(), 1)
	assert.ErrorContains(t, err, "database is locked")
}

func TestGetJobStatistics(t *testing.T) {
	stats := &types.Statistics{
		TotalJobs:    3,
		RemoteJobs:   1,
		TopLocations: []types.LocationCount{{Location: "Remote", Count: 3}},
		TopCompanies: []types.CompanyCount{{Company: "Acme", Count: 3}},
	}
	service := NewService(&mockStore{stats: stats})

	got, err := service.GetJobStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, *stats, got)
}

func TestTools(t *testing.T) {
	tools := NewService(&mockStore{}).Tools()

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, []string{"search_jobs", "get_job_by_id", "get_job_statistics"}, names)
}

func TestCall(t *testing.T) {
	store := &mockStore{
		jobs:  []types.Job{{ID: 3, JobRecord: types.JobRecord{Title: "SRE"}}},
		stats: &types.Statistics{TotalJobs: 1},
	}
	service := NewService(store)
	ctx := context.Background()

	got, err := service.Call(ctx, ToolSearchJobs, json.RawMessage(`{"keywords": "sre", "limit": 3}`))
	require.NoError(t, err)
	assert.Equal(t, 1, got.(types.SearchResult).TotalResults)
	assert.Equal(t, types.QueryFilter{Keywords: "sre", Limit: 3}, store.lastFilter)

	got, err = service.Call(ctx, ToolSearchJobs, nil)
	require.NoError(t, err)
	assert.Equal(t, types.QueryFilter{}, store.lastFilter)
	assert.Equal(t, 1, got.(types.SearchResult).TotalResults)

	got, err = service.Call(ctx, ToolGetJobByID, json.RawMessage(`{"job_id": 3}`))
	require.NoError(t, err)
	assert.Equal(t, "SRE", got.(types.JobResult).Title)

	got, err = service.Call(ctx, ToolGetJobStatistics, json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 1, got.(types.Statistics).TotalJobs)
}

func TestCall_Errors(t *testing.T) {
	service := NewService(&mockStore{})
	ctx := context.Background()

	tests := []struct {
		name      string
		tool      string
		args      string
		unknown   bool
		argsError bool
	}{
		{name: "unknown tool", tool: "delete_jobs", args: `{}`, unknown: true},
		{name: "malformed JSON", tool: ToolSearchJobs, args: `{"keywords":`, argsError: true},
		{name: "wrong type", tool: ToolSearchJobs, args: `{"limit": "ten"}`, argsError: true},
		{name: "unknown argument", tool: ToolSearchJobs, args: `{"salary": 1}`, argsError: true},
		{name: "missing job id", tool: ToolGetJobByID, args: `{}`, argsError: true},
		{name: "non-integer job id", tool: ToolGetJobByID, args: `{"job_id": "abc"}`, argsError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Call(ctx, tt.tool, json.RawMessage(tt.args))
			require.Error(t, err)
			assert.Equal(t, tt.unknown, errors.Is(err, ErrUnknownTool))
			var argErr *ArgumentError
			assert.Equal(t, tt.argsError, errors.As(err, &argErr))
		})
	}
}

func TestSnapshotToStatistics(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "adzuna_jobs.json")
	content := `[
		{"title": "Backend Engineer", "company": "Acme", "location": "Remote", "remote_ok": 1},
		{"title": "Frontend Engineer", "company": "Acme", "location": "Austin, TX"},
		{"title": "Data Engineer", "company": "Beta", "location": "Remote"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	records, err := snapshot.Read(path)
	require.NoError(t, err)

	store, err := storage.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close() // Ignore error in test
	})

	// ingesting the same snapshot twice must not duplicate jobs
	for i := 0; i < 2; i++ {
		require.NoError(t, store.ResetSchema(ctx))
		inserted, err := store.BulkInsert(ctx, records)
		require.NoError(t, err)
		require.Equal(t, 3, inserted)
	}

	stats, err := NewService(store).GetJobStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, 1, stats.RemoteJobs)
	assert.Contains(t, stats.TopCompanies, types.CompanyCount{Company: "Acme", Count: 2})
	assert.Contains(t, stats.TopCompanies, types.CompanyCount{Company: "Beta", Count: 1})
	assert.Contains(t, stats.TopLocations, types.LocationCount{Location: "Remote", Count: 2})
}
