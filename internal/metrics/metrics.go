// Package metrics defines the Prometheus collectors shared by the pipeline and
// the query server.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream request outcomes
const (
	OutcomeOK          = "ok"
	OutcomeConfig      = "config_error"
	OutcomeHTTPError   = "http_error"
	OutcomeUnavailable = "unavailable"
)

var (
	// UpstreamRequests counts job search API calls by outcome
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobsearch",
		Name:      "upstream_requests_total",
		Help:      "Job search API requests by outcome.",
	}, []string{"outcome"})

	// FetchedJobs counts normalized job records returned by the fetcher
	FetchedJobs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jobsearch",
		Name:      "fetched_jobs_total",
		Help:      "Job postings normalized from upstream results.",
	})

	// SkippedResults counts upstream results that could not be mapped
	SkippedResults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jobsearch",
		Name:      "skipped_results_total",
		Help:      "Upstream results skipped because they could not be decoded.",
	})

	// InsertedRecords counts records written by bulk inserts
	InsertedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jobsearch",
		Name:      "inserted_records_total",
		Help:      "Job records inserted into the store.",
	})

	// FailedInserts counts records skipped by bulk inserts
	FailedInserts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jobsearch",
		Name:      "failed_inserts_total",
		Help:      "Job records that failed to insert and were skipped.",
	})

	// PipelineRuns counts finished pipeline runs by kind and final stage
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobsearch",
		Name:      "pipeline_runs_total",
		Help:      "Pipeline runs by kind and final stage.",
	}, []string{"kind", "stage"})

	// LastRunTimestamp records when each kind of pipeline run last finished
	LastRunTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "jobsearch",
		Name:      "pipeline_last_run_timestamp_seconds",
		Help:      "Unix time of the last finished pipeline run by kind.",
	}, []string{"kind"})

	// HTTPRequests counts served API requests
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobsearch",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes API request latency
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jobsearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// Middleware records request counts and latency for every gin route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// WriteTextfile writes the current metrics in the node-exporter textfile
// collector format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
