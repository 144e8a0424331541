package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rossigee/job-search-server/internal/adzuna"
	"github.com/rossigee/job-search-server/internal/api"
	"github.com/rossigee/job-search-server/internal/config"
	"github.com/rossigee/job-search-server/internal/metrics"
	"github.com/rossigee/job-search-server/internal/minio"
	"github.com/rossigee/job-search-server/internal/pipeline"
	"github.com/rossigee/job-search-server/internal/search"
	"github.com/rossigee/job-search-server/internal/snapshot"
	"github.com/rossigee/job-search-server/internal/storage"
	"github.com/sirupsen/logrus"
)

const usage = `Usage: jobsearch <command> [flags]

Commands:
  download   fetch job postings and write the snapshot file
  ingest     load the snapshot file into the jobs database
  refresh    download and ingest, once or on a schedule
  serve      serve the job query API
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Load configuration from environment
	cfg := config.Load()
	if err := cfg.SetupLogging(); err != nil {
		logrus.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command, args := os.Args[1], os.Args[2:]
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	metricsFile := fs.String("metrics-file", "", "write Prometheus metrics to this textfile on exit")

	var err error
	switch command {
	case "download":
		queriesFile := fs.String("queries", cfg.QueriesFile, "YAML file of search queries")
		out := fs.String("out", cfg.SnapshotPath, "snapshot file to write")
		_ = fs.Parse(args)
		err = runDownload(ctx, cfg, *queriesFile, *out)
	case "ingest":
		in := fs.String("in", cfg.SnapshotPath, "snapshot file to load")
		fromObject := fs.Bool("from-object", false, "fetch the snapshot from object storage first")
		_ = fs.Parse(args)
		err = runIngest(ctx, cfg, *in, *fromObject)
	case "refresh":
		schedule := fs.String("schedule", cfg.RefreshSchedule, "cron schedule; empty runs once")
		_ = fs.Parse(args)
		err = runRefresh(ctx, cfg, *schedule)
	case "serve":
		schedule := fs.String("refresh-schedule", cfg.RefreshSchedule, "cron schedule for in-process refreshes")
		_ = fs.Parse(args)
		err = runServe(ctx, cfg, *schedule)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if *metricsFile != "" {
		if writeErr := metrics.WriteTextfile(*metricsFile); writeErr != nil {
			logrus.WithError(writeErr).Warn("Failed to write metrics textfile")
		}
	}

	if err != nil {
		var configErr *adzuna.ConfigurationError
		if errors.As(err, &configErr) {
			logrus.WithField("remediation", configErr.Remediation()).Error(err)
		}
		logrus.WithError(err).Fatalf("%s failed", command)
	}
}

func runDownload(ctx context.Context, cfg *config.Config, queriesFile, out string) error {
	queries, err := config.LoadQueries(queriesFile)
	if err != nil {
		return err
	}

	if _, _, err := pipeline.NewDownloader(adzuna.NewClient(cfg.Adzuna)).Save(ctx, queries, out); err != nil {
		return err
	}

	if cfg.MinIO.Enabled() {
		mirror, err := minio.NewClient(cfg.MinIO)
		if err != nil {
			return fmt.Errorf("failed to initialize MinIO client: %w", err)
		}
		if err := mirror.UploadSnapshot(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func runIngest(ctx context.Context, cfg *config.Config, in string, fromObject bool) error {
	if fromObject {
		mirror, err := minio.NewClient(cfg.MinIO)
		if err != nil {
			return fmt.Errorf("failed to initialize MinIO client: %w", err)
		}
		if err := mirror.DownloadSnapshot(ctx, in); err != nil {
			return err
		}
	}

	records, err := snapshot.Read(in)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore(store)

	_, err = pipeline.NewIngester(store).Run(ctx, records)
	return err
}

func runRefresh(ctx context.Context, cfg *config.Config, schedule string) error {
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore(store)

	refresher, err := newRefresher(cfg, store)
	if err != nil {
		return err
	}

	if schedule == "" {
		_, err := refresher.Run(ctx)
		return err
	}

	scheduler := pipeline.NewScheduler(refresher, schedule)
	if err := scheduler.Start(ctx, true); err != nil {
		return err
	}
	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, schedule string) error {
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if schedule != "" {
		refresher, err := newRefresher(cfg, store)
		if err != nil {
			return err
		}
		scheduler := pipeline.NewScheduler(refresher, schedule)
		if err := scheduler.Start(ctx, false); err != nil {
			return err
		}
		defer func() {
			<-scheduler.Stop().Done()
		}()
	}

	router := api.NewRouter(api.NewHandler(search.NewService(store)))

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("Starting job search server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	logrus.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrus.Info("Server exited")
	return nil
}

func newRefresher(cfg *config.Config, store *storage.Store) (*pipeline.Refresher, error) {
	queries, err := config.LoadQueries(cfg.QueriesFile)
	if err != nil {
		return nil, err
	}

	refresher := pipeline.NewRefresher(
		pipeline.NewDownloader(adzuna.NewClient(cfg.Adzuna)),
		pipeline.NewIngester(store),
		queries,
		cfg.SnapshotPath,
	)

	if cfg.MinIO.Enabled() {
		mirror, err := minio.NewClient(cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
		}
		refresher.WithUploader(mirror)
	}
	return refresher, nil
}

func closeStore(store *storage.Store) {
	if err := store.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close job store")
	}
}
