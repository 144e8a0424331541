// Package pipeline runs the download and ingestion stages that move job
// postings from the search API into the local store.
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/rossigee/job-search-server/internal/metrics"
	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/sirupsen/logrus"
)

// Run kinds
const (
	KindDownload = "download"
	KindIngest   = "ingest"
	KindRefresh  = "refresh"
)

// Run records the progress of one pipeline execution
type Run struct {
	ID            string
	Kind          string
	Stage         types.RunStage
	Percent       float64
	Fetched       int
	Kept          int
	Inserted      int
	FailedQueries int
	Error         error
	StartedAt     time.Time
	UpdatedAt     time.Time
}

func newRun(kind string) *Run {
	now := time.Now()
	return &Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// UpdateProgress moves the run to stage
func (r *Run) UpdateProgress(stage types.RunStage, percent float64) {
	r.Stage = stage
	r.Percent = percent
	r.UpdatedAt = time.Now()
	r.log().Debug("Pipeline stage started")
}

// Duration is the time from start to the last update
func (r *Run) Duration() time.Duration {
	return r.UpdatedAt.Sub(r.StartedAt)
}

func (r *Run) complete() {
	r.UpdateProgress(types.StageCompleted, 100)
	r.finish()
	r.log().WithFields(logrus.Fields{
		"fetched":  r.Fetched,
		"kept":     r.Kept,
		"inserted": r.Inserted,
		"duration": r.Duration().String(),
	}).Info("Pipeline run completed")
}

func (r *Run) fail(err error) {
	r.Error = err
	r.Stage = types.StageFailed
	r.UpdatedAt = time.Now()
	r.finish()
	r.log().WithError(err).Error("Pipeline run failed")
}

func (r *Run) finish() {
	metrics.PipelineRuns.WithLabelValues(r.Kind, string(r.Stage)).Inc()
	metrics.LastRunTimestamp.WithLabelValues(r.Kind).Set(float64(r.UpdatedAt.Unix()))
}

func (r *Run) log() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"run_id": r.ID,
		"kind":   r.Kind,
		"stage":  r.Stage,
	})
}
