package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"evdb_notifier/internal/app"
	"evdb_notifier/internal/infra/config"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DueProcessor runs one "process due" pass.
type DueProcessor interface {
	ProcessDue(ctx context.Context) (*app.ProcessReport, error)
}

// ProcessScheduler triggers DueProcessor on a cron spec. The same pass can be run on demand with RunOnce.
type ProcessScheduler struct {
	cronEngine *cron.Cron
	processor  DueProcessor
	logger     *logrus.Entry
	cronSpec   string
	timeout    time.Duration
}

func NewProcessScheduler(
	processor DueProcessor,
	logger *logrus.Entry,
	cronSpec string, // e.g. "* * * * *" (every minute), or "off"
	timeout time.Duration, // upper bound for one pass
) *ProcessScheduler {
	return &ProcessScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local),
			cron.WithLogger(cron.PrintfLogger(logger)),
			cron.WithChain(
				cron.Recover(cron.PrintfLogger(logger)),
				// A slow pass must not overlap with the next tick.
				cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
			),
		),
		processor: processor,
		logger:    logger,
		cronSpec:  cronSpec,
		timeout:   timeout,
	}
}

// Start registers the process-due job and starts the cron engine.
// A spec of config.CronDisabled leaves the scheduler idle.
func (s *ProcessScheduler) Start() error {
	if !config.CronEnabled(s.cronSpec) {
		s.logger.Info("Automatic processing disabled, due notifications are processed on demand only")
		return nil
	}

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Debug("Cron job triggered for due notifications")
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.WithError(err).Error("Error during scheduled processing")
		}
	})
	if err != nil {
		return fmt.Errorf("could not add process-due cron job with spec %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Notification scheduler started")
	return nil
}

// RunOnce runs a single pass bounded by the configured timeout.
func (s *ProcessScheduler) RunOnce(ctx context.Context) (*app.ProcessReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	report, err := s.processor.ProcessDue(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.WithField("timeout", s.timeout.String()).Warn("Processing pass hit its timeout")
	}
	if report != nil {
		s.logger.WithFields(logrus.Fields{
			"claimed":  report.Claimed,
			"duration": time.Since(start).String(),
		}).Debug("Processing pass finished")
	}
	return report, err
}

// Stop stops the cron engine and waits for a running pass to finish.
func (s *ProcessScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Notification scheduler gracefully stopped")
}
