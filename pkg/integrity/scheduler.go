// Package integrity runs the full-graph audit on a cron schedule.
package integrity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/unitgraph/pkg/observability"
	"github.com/platinummonkey/unitgraph/pkg/registry"
)

// Auditor re-validates the stored graph
type Auditor interface {
	Audit(ctx context.Context) (*registry.AuditReport, error)
}

// Scheduler runs an Auditor on a cron schedule. Runs never overlap: a run
// that is still going when the next one is due makes the next one skip.
type Scheduler struct {
	auditor Auditor
	logger  logrus.FieldLogger
	timeout time.Duration
	cron    *cron.Cron

	mu   sync.Mutex
	last *registry.AuditReport
}

// NewScheduler creates a scheduler for a standard cron expression or
// descriptor such as "@every 1h". Each run gets at most timeout.
func NewScheduler(auditor Auditor, schedule string, timeout time.Duration, logger logrus.FieldLogger) (*Scheduler, error) {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	s := &Scheduler{
		auditor: auditor,
		logger:  logger.WithField("component", "integrity"),
		timeout: timeout,
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})))
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("failed to schedule audit %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the schedule in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Integrity audit scheduled")
}

// Stop stops the schedule and waits for a running audit until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs one audit synchronously
func (s *Scheduler) RunNow(ctx context.Context) (*registry.AuditReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.auditor.Audit(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Integrity audit failed")
		return nil, err
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	entry := s.logger.WithFields(logrus.Fields{
		"versions":    report.Versions,
		"includes":    report.Includes,
		"violations":  len(report.Violations),
		"duration_ms": report.Duration.Milliseconds(),
	})
	if len(report.Violations) > 0 {
		entry.Warn("Integrity audit found violations")
	} else {
		entry.Info("Integrity audit clean")
	}
	return report, nil
}

// Last returns the report of the most recent successful run, or nil
func (s *Scheduler) Last() *registry.AuditReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) run() {
	defer observability.RecoverPanic(s.logger, "integrity audit")
	s.RunNow(context.Background())
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
