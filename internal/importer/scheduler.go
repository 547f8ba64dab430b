// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// SchedulerUser is recorded as the trigger of scheduled runs.
const SchedulerUser = "scheduler"

// Scheduler triggers "import all" on a cron expression.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	logger  *slog.Logger
}

/*
NewScheduler parses the standard five-field cron expression.

Description: A tick that arrives while the previous run is still going is
skipped rather than queued.

Parameters:
  - ctx: context.Context (lifetime of scheduled runs)
  - schedule: string (e.g. "0 2 * * *")
  - service: *Service
  - logger: *slog.Logger

Returns:
  - *Scheduler
  - error: Invalid expression
*/
func NewScheduler(ctx context.Context, schedule string, service *Service, logger *slog.Logger) (*Scheduler, error) {
	adapter := cronLogger{logger: logger}
	scheduler := &Scheduler{
		cron:    cron.New(cron.WithLogger(adapter), cron.WithChain(cron.SkipIfStillRunning(adapter))),
		service: service,
		logger:  logger,
	}

	_, err := scheduler.cron.AddFunc(schedule, func() {
		results := service.RunAll(ctx, SchedulerUser)

		failed := 0
		for _, result := range results {
			if !result.Success {
				failed++
			}
		}
		logger.InfoContext(ctx, "import_schedule_finished",
			slog.Int("scripts", len(results)),
			slog.Int("failed", failed),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("importer: invalid schedule %q: %w", schedule, err)
	}

	return scheduler, nil
}

// Start begins firing in the background.
func (scheduler *Scheduler) Start() {
	scheduler.cron.Start()
	scheduler.logger.Info("import_schedule_started", slog.Time("next", scheduler.cron.Entries()[0].Next))
}

// Stop halts the schedule and waits for a running job until ctx ends.
func (scheduler *Scheduler) Stop(ctx context.Context) {
	select {
	case <-scheduler.cron.Stop().Done():
	case <-ctx.Done():
		scheduler.logger.Warn("import_schedule_stop_timeout")
	}
}

// cronLogger adapts cron.Logger to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron_"+msg, append(keysAndValues, slog.Any("error", err))...)
}
