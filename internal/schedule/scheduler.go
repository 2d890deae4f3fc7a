// Package schedule runs the mailbox import on a cron pattern.
package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Runner is a periodic job. The scheduler knows nothing about what the
// job does.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler wraps robfig/cron and registers runners by pattern. Jobs are
// chained with SkipIfStillRunning so a slow run never overlaps itself.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler creates a stopped scheduler. Patterns accept descriptors
// such as @hourly as well as standard five-field cron expressions.
func NewScheduler(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("service", "schedule"))
	cronLog := &slogCronLogger{logger: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.SkipIfStillRunning(cronLog)),
		),
		logger: log,
	}
}

// Register adds a runner at the given cron pattern.
func (s *Scheduler) Register(pattern, name string, runner Runner) error {
	job := cron.FuncJob(func() {
		if err := runner.Run(context.Background()); err != nil {
			s.logger.Error("scheduled job failed",
				slog.String("job", name),
				slog.Any("error", err),
			)
		}
	})
	if _, err := s.cron.AddJob(pattern, job); err != nil {
		return fmt.Errorf("register job %s with pattern %q: %w", name, pattern, err)
	}
	s.logger.Info("job registered",
		slog.String("job", name),
		slog.String("pattern", pattern),
	)
	return nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slogCronLogger adapts slog to the cron.Logger interface.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l *slogCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}
