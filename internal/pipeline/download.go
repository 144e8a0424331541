package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rossigee/job-search-server/internal/adzuna"
	"github.com/rossigee/job-search-server/internal/dedupe"
	"github.com/rossigee/job-search-server/internal/snapshot"
	"github.com/rossigee/job-search-server/pkg/types"
	"github.com/sirupsen/logrus"
)

// ErrNoJobs is returned by Save when no query produced any posting
var ErrNoJobs = errors.New("no jobs downloaded")

// JobFetcher fetches normalized job postings for one role and location
type JobFetcher interface {
	FetchJobs(ctx context.Context, role, location string, count int) ([]types.JobRecord, error)
}

// Downloader collects postings for a list of search queries
type Downloader struct {
	fetcher JobFetcher
}

// NewDownloader creates a new downloader
func NewDownloader(fetcher JobFetcher) *Downloader {
	return &Downloader{fetcher: fetcher}
}

// Run fetches every query in order and returns the de-duplicated postings.
// A failing query is logged and counted, and the next query still runs.
func (d *Downloader) Run(ctx context.Context, queries []types.SearchQuery) (*Run, []types.JobRecord) {
	run := newRun(KindDownload)
	records := d.download(ctx, run, queries)
	run.complete()
	return run, records
}

// Save runs queries and writes the postings to the snapshot at path. When
// nothing was downloaded the existing snapshot is left in place and ErrNoJobs
// is returned.
func (d *Downloader) Save(ctx context.Context, queries []types.SearchQuery, path string) (*Run, []types.JobRecord, error) {
	run, records := d.Run(ctx, queries)
	if len(records) == 0 {
		return run, nil, fmt.Errorf("%w from %d queries (%d failed), keeping existing snapshot",
			ErrNoJobs, len(queries), run.FailedQueries)
	}
	if err := snapshot.Write(path, records); err != nil {
		return run, nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return run, records, nil
}

func (d *Downloader) download(ctx context.Context, run *Run, queries []types.SearchQuery) []types.JobRecord {
	var all []types.JobRecord
	for i, q := range queries {
		if ctx.Err() != nil {
			run.log().WithError(ctx.Err()).Warn("Download interrupted, skipping remaining queries")
			break
		}

		run.UpdateProgress(types.StageFetching, 90*float64(i)/float64(len(queries)))
		entry := run.log().WithFields(logrus.Fields{
			"role":     q.Role,
			"location": q.Location,
		})

		records, err := d.fetcher.FetchJobs(ctx, q.Role, q.Location, q.NumResults)
		if err != nil {
			run.FailedQueries++
			logFetchError(entry, err)
			continue
		}

		entry.WithField("jobs", len(records)).Info("Fetched jobs")
		all = append(all, records...)
	}
	run.Fetched = len(all)

	run.UpdateProgress(types.StageDedupe, 90)
	unique := dedupe.ByTitleCompany(all)
	run.Kept = len(unique)

	run.log().WithFields(logrus.Fields{
		"fetched":        run.Fetched,
		"unique":         run.Kept,
		"failed_queries": run.FailedQueries,
	}).Info("Downloaded jobs")
	return unique
}

func logFetchError(entry *logrus.Entry, err error) {
	var configErr *adzuna.ConfigurationError
	var httpErr *adzuna.UpstreamHTTPError
	switch {
	case errors.As(err, &configErr):
		entry.WithError(err).WithField("remediation", configErr.Remediation()).Error("Job search API is not configured")
	case errors.As(err, &httpErr):
		entry.WithError(err).WithField("status", httpErr.StatusCode).Error("Job search API request failed")
	default:
		entry.WithError(err).Error("Failed to fetch jobs")
	}
}
