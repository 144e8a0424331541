package pipeline

import (
	"context"

	"github.com/rossigee/job-search-server/pkg/types"
)

// SnapshotUploader mirrors a written snapshot to remote storage
type SnapshotUploader interface {
	UploadSnapshot(ctx context.Context, localPath string) error
}

// Refresher runs download, snapshot and ingestion back to back
type Refresher struct {
	downloader   *Downloader
	ingester     *Ingester
	queries      []types.SearchQuery
	snapshotPath string
	uploader     SnapshotUploader
}

// NewRefresher creates a refresher writing the snapshot to snapshotPath
func NewRefresher(downloader *Downloader, ingester *Ingester, queries []types.SearchQuery, snapshotPath string) *Refresher {
	return &Refresher{
		downloader:   downloader,
		ingester:     ingester,
		queries:      queries,
		snapshotPath: snapshotPath,
	}
}

// WithUploader mirrors every written snapshot through uploader
func (r *Refresher) WithUploader(uploader SnapshotUploader) *Refresher {
	r.uploader = uploader
	return r
}

// Run downloads fresh postings and replaces the stored ones. When nothing
// could be downloaded the store is left untouched.
func (r *Refresher) Run(ctx context.Context) (*Run, error) {
	run := newRun(KindRefresh)

	run.UpdateProgress(types.StageFetching, 0)
	download, records, err := r.downloader.Save(ctx, r.queries, r.snapshotPath)
	run.Fetched = download.Fetched
	run.Kept = download.Kept
	run.FailedQueries = download.FailedQueries
	if err != nil {
		run.fail(err)
		return run, err
	}

	run.UpdateProgress(types.StageSnapshot, 50)
	if r.uploader != nil {
		if err := r.uploader.UploadSnapshot(ctx, r.snapshotPath); err != nil {
			run.log().WithError(err).Warn("Failed to mirror snapshot, continuing with local copy")
		}
	}

	ingest, err := r.ingester.Run(ctx, records)
	if err != nil {
		run.fail(err)
		return run, err
	}
	run.Inserted = ingest.Inserted

	run.complete()
	return run, nil
}
