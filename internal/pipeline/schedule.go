package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs a Refresher on a cron schedule. A tick that fires while a
// refresh is still running is skipped.
type Scheduler struct {
	cron      *cron.Cron
	refresher *Refresher
	spec      string
	entry     cron.EntryID
	immediate sync.WaitGroup
}

// NewScheduler creates a scheduler for spec, which accepts standard cron
// expressions and descriptors such as "@every 6h"
func NewScheduler(refresher *Refresher, spec string) *Scheduler {
	logger := cronLogger{entry: logrus.WithField("component", "scheduler")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		refresher: refresher,
		spec:      spec,
	}
}

// Start registers the refresh job and starts the scheduler. When runNow is
// set one refresh starts immediately, subject to the same overlap guard.
func (s *Scheduler) Start(ctx context.Context, runNow bool) error {
	id, err := s.cron.AddFunc(s.spec, func() {
		_, _ = s.refresher.Run(ctx) // Failures are logged by the run
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.spec, err)
	}
	s.entry = id

	s.cron.Start()
	logrus.WithField("schedule", s.spec).Info("Refresh scheduler started")

	if runNow {
		job := s.cron.Entry(id).WrappedJob
		s.immediate.Add(1)
		go func() {
			defer s.immediate.Done()
			job.Run()
		}()
	}
	return nil
}

// Stop stops the scheduler and returns a context that is done once any
// running refresh has finished, including one started by Start's runNow
func (s *Scheduler) Stop() context.Context {
	cronDone := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		<-cronDone.Done()
		s.immediate.Wait()
		logrus.Info("Refresh scheduler stopped")
	}()
	return ctx
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
