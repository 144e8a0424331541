package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rossigee/job-search-server/internal/search"
	"github.com/rossigee/job-search-server/internal/storage"
	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/stretchr/testify/suite"
)

// ServerTestSuite exercises the routes against an in-memory job store
type ServerTestSuite struct {
	suite.Suite
	store  *storage.Store
	router *gin.Engine
}

func (s *ServerTestSuite) SetupTest() {
	store, err := storage.NewStore(":memory:")
	s.Require().NoError(err)
	s.store = store

	records := []types.JobRecord{
		{Title: "Python Developer", Company: "Acme", Location: "Remote", Skills: "Python", PostedDate: "2025-03-02", RemoteOK: true},
		{Title: "Java Developer", Company: "Acme", Location: "Austin, TX", Skills: "Java", PostedDate: "2025-03-01"},
		{Title: "Data Engineer", Company: "Beta", Location: "Remote", Skills: "Python, SQL", PostedDate: "2025-02-28"},
	}
	inserted, err := store.BulkInsert(context.Background(), records)
	s.Require().NoError(err)
	s.Require().Equal(3, inserted)

	s.router = NewRouter(NewHandler(search.NewService(store)))
}

func (s *ServerTestSuite) TearDownTest() {
	_ = s.store.Close() // Ignore error in test
}

func (s *ServerTestSuite) decode(body []byte, v any) {
	s.Require().NoError(json.Unmarshal(body, v))
}

func (s *ServerTestSuite) TestSearchByKeyword() {
	w := doRequest(s.router, "GET", "/api/v1/jobs?keywords=PYTHON", "")
	s.Equal(http.StatusOK, w.Code)

	var result types.SearchResult
	s.decode(w.Body.Bytes(), &result)
	s.Equal(2, result.TotalResults)
	s.Require().Len(result.Jobs, 2)
	s.Equal("Python Developer", result.Jobs[0].Title)
	s.Equal("Data Engineer", result.Jobs[1].Title)
}

func (s *ServerTestSuite) TestSearchNoResults() {
	w := doRequest(s.router, "GET", "/api/v1/jobs?company=Gamma", "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"error": "No jobs found matching your criteria."}`, w.Body.String())
}

func (s *ServerTestSuite) TestGetJob() {
	w := doRequest(s.router, "GET", "/api/v1/jobs/2", "")
	s.Equal(http.StatusOK, w.Code)

	var fields map[string]any
	s.decode(w.Body.Bytes(), &fields)
	s.Equal(float64(2), fields["id"])
	s.Equal("Java Developer", fields["title"])
	s.Nil(fields["salary_min"])
	s.Equal(float64(0), fields["remote_ok"])
	s.NotContains(fields, "error")

	w = doRequest(s.router, "GET", "/api/v1/jobs/404", "")
	s.Equal(http.StatusNotFound, w.Code)
	s.JSONEq(`{"error": "No job found with ID 404."}`, w.Body.String())
}

func (s *ServerTestSuite) TestStatistics() {
	w := doRequest(s.router, "GET", "/api/v1/stats", "")
	s.Equal(http.StatusOK, w.Code)

	var stats types.Statistics
	s.decode(w.Body.Bytes(), &stats)
	s.Equal(3, stats.TotalJobs)
	s.Equal(1, stats.RemoteJobs)
	s.Contains(stats.TopCompanies, types.CompanyCount{Company: "Acme", Count: 2})
	s.Contains(stats.TopCompanies, types.CompanyCount{Company: "Beta", Count: 1})
}

func (s *ServerTestSuite) TestToolCalls() {
	w := doRequest(s.router, "POST", "/api/v1/tools/search_jobs", `{"location": "Austin"}`)
	s.Equal(http.StatusOK, w.Code)
	var result types.SearchResult
	s.decode(w.Body.Bytes(), &result)
	s.Equal(1, result.TotalResults)

	// a missing job is still a successful tool call
	w = doRequest(s.router, "POST", "/api/v1/tools/get_job_by_id", `{"job_id": 999}`)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"error": "No job found with ID 999."}`, w.Body.String())

	w = doRequest(s.router, "POST", "/api/v1/tools/get_job_statistics", "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"total_jobs":3`)

	w = doRequest(s.router, "POST", "/api/v1/tools/get_job_by_id", `{"job_id": "one"}`)
	s.Equal(http.StatusBadRequest, w.Code)

	w = doRequest(s.router, "POST", "/api/v1/tools/drop_table", `{}`)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ServerTestSuite) TestToolCatalogue() {
	w := doRequest(s.router, "GET", "/api/v1/tools", "")
	s.Equal(http.StatusOK, w.Code)

	var body struct {
		Tools []types.ToolDescriptor `json:"tools"`
	}
	s.decode(w.Body.Bytes(), &body)
	s.Len(body.Tools, 3)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
