package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rossigee/job-search-server/internal/metrics"
)

// NewRouter builds the Gin engine with the standard middleware chain and
// all API routes registered
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog())
	router.Use(metrics.Middleware())

	SetupRoutes(router, handler)
	return router
}
