package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rossigee/job-search-server/internal/search"
	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health check
const Version = "1.0.0"

// QueryService interface for job query operations
type QueryService interface {
	SearchJobs(ctx context.Context, filter types.QueryFilter) (types.SearchResult, error)
	GetJobByID(ctx context.Context, id int64) (types.JobResult, error)
	GetJobStatistics(ctx context.Context) (types.Statistics, error)
	Tools() []types.ToolDescriptor
	Call(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// Handler handles HTTP API requests
type Handler struct {
	queries QueryService
}

// NewHandler creates a new API handler
func NewHandler(queries QueryService) *Handler {
	return &Handler{
		queries: queries,
	}
}

// SetupRoutes configures the API routes
func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api/v1")
	{
		api.GET("/jobs", handler.SearchJobs)
		api.GET("/jobs/:job_id", handler.GetJob)
		api.GET("/stats", handler.GetStatistics)
		api.GET("/tools", handler.ListTools)
		api.POST("/tools/:name", handler.CallTool)
	}

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// SearchJobs handles job search requests
func (h *Handler) SearchJobs(c *gin.Context) {
	var filter types.QueryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
			Code:    400,
		})
		return
	}

	result, err := h.queries.SearchJobs(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, "failed to search jobs", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetJob returns a single job by id
func (h *Handler) GetJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("job_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid request",
			Message: "job_id must be an integer",
			Code:    400,
		})
		return
	}

	result, err := h.queries.GetJobByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "failed to get job", err)
		return
	}

	if result.Job == nil {
		c.JSON(http.StatusNotFound, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStatistics returns aggregate job counts
func (h *Handler) GetStatistics(c *gin.Context) {
	stats, err := h.queries.GetJobStatistics(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to get statistics", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListTools returns the catalogue of remotely callable tools
func (h *Handler) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tools": h.queries.Tools(),
	})
}

// CallTool invokes a tool by name with the JSON request body as arguments
func (h *Handler) CallTool(c *gin.Context) {
	name := c.Param("name")

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
			Code:    400,
		})
		return
	}

	result, err := h.queries.Call(c.Request.Context(), name, body)
	var argErr *search.ArgumentError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, search.ErrUnknownTool):
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "tool not found",
			Message: err.Error(),
			Code:    404,
		})
	case errors.As(err, &argErr):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid arguments",
			Message: err.Error(),
			Code:    400,
		})
	default:
		h.internalError(c, "tool call failed", err)
	}
}

// HealthCheck provides service health information
func (h *Handler) HealthCheck(c *gin.Context) {
	response := types.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
	}

	stats, err := h.queries.GetJobStatistics(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Warn("Health check could not read job store")
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	response.TotalJobs = stats.TotalJobs

	// An empty store still serves requests but has nothing to return
	if stats.TotalJobs == 0 {
		response.Status = "degraded"
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	logrus.WithFields(logrus.Fields{
		"path":       c.Request.URL.Path,
		"request_id": c.GetString(requestIDKey),
	}).WithError(err).Error(msg)

	c.JSON(http.StatusInternalServerError, types.ErrorResponse{
		Error:   msg,
		Message: err.Error(),
		Code:    500,
	})
}
