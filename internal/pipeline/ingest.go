package pipeline

import (
	"context"
	"fmt"

	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/sirupsen/logrus"
)

// sampleSize is the number of rows logged after an ingestion
const sampleSize = 3

// JobStore is the subset of the job store used for ingestion
type JobStore interface {
	Replace(ctx context.Context, records []types.JobRecord) (int, error)
	Count(ctx context.Context) (int, error)
	Sample(ctx context.Context, n int) ([]types.Job, error)
	Statistics(ctx context.Context) (*types.Statistics, error)
}

// Ingester replaces the stored postings with a new batch
type Ingester struct {
	store JobStore
}

// NewIngester creates a new ingester
func NewIngester(store JobStore) *Ingester {
	return &Ingester{store: store}
}

// Run replaces the stored postings with records in one transaction. A reset
// failure aborts the run and keeps the previous postings; records that fail
// to insert are skipped by the store.
func (i *Ingester) Run(ctx context.Context, records []types.JobRecord) (*Run, error) {
	run := newRun(KindIngest)
	if err := i.ingest(ctx, run, records); err != nil {
		run.fail(err)
		return run, err
	}
	run.complete()
	return run, nil
}

func (i *Ingester) ingest(ctx context.Context, run *Run, records []types.JobRecord) error {
	run.Kept = len(records)

	run.UpdateProgress(types.StageResetting, 10)
	inserted, err := i.store.Replace(ctx, records)
	if err != nil {
		return fmt.Errorf("failed to replace jobs: %w", err)
	}
	run.Inserted = inserted

	run.UpdateProgress(types.StageVerifying, 90)
	return i.verify(ctx, run)
}

// verify logs the stored row count, a few sample rows and the busiest
// locations
func (i *Ingester) verify(ctx context.Context, run *Run) error {
	count, err := i.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify job count: %w", err)
	}
	if count != run.Inserted {
		run.log().WithFields(logrus.Fields{
			"stored":   count,
			"inserted": run.Inserted,
		}).Warn("Stored job count differs from inserted count")
	}

	sample, err := i.store.Sample(ctx, sampleSize)
	if err != nil {
		return fmt.Errorf("failed to sample jobs: %w", err)
	}
	for _, job := range sample {
		run.log().WithFields(logrus.Fields{
			"id":       job.ID,
			"title":    job.Title,
			"company":  job.Company,
			"location": job.Location,
			"skills":   job.Skills,
		}).Info("Sample job")
	}

	stats, err := i.store.Statistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to read job statistics: %w", err)
	}
	for n, loc := range stats.TopLocations {
		if n == 5 {
			break
		}
		run.log().WithFields(logrus.Fields{
			"location": loc.Location,
			"jobs":     loc.Count,
		}).Info("Top location")
	}

	run.log().WithFields(logrus.Fields{
		"total_jobs":  count,
		"remote_jobs": stats.RemoteJobs,
	}).Info("Verified ingested jobs")
	return nil
}
