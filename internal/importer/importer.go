// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

/*
Package importer runs the backend maintenance scripts from the system page.

Each script is guarded so the same one never runs twice at once; the last
result of every script is kept in Redis so the system page can show it after
a reload. "Import all" runs the three import scripts in parallel and reports
each result on its own.
*/
package importer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/platform/apperr"
)

// Runner executes one backend script.
type Runner interface {
	RunScript(ctx context.Context, script backend.Script) (json.RawMessage, error)
}

// RunCounter is told about every finished run.
type RunCounter interface {
	RecordImportRun(script string, success bool)
}

// Result is the outcome of one script run.
type Result struct {
	Script      backend.Script  `json:"script"`
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	Report      json.RawMessage `json:"report,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	TriggeredBy string          `json:"triggered_by,omitempty"`
}

// Status is the last known run of one script.
type Status struct {
	Script  backend.Script `json:"script"`
	Running bool           `json:"running"`
	LastRun *Result        `json:"last_run"`
}

// StatusStore keeps the last result of each script.
type StatusStore interface {
	Save(ctx context.Context, result Result) error
	Load(ctx context.Context, scripts []backend.Script) (map[backend.Script]Result, error)
}

// Service coordinates script runs.
type Service struct {
	runner   Runner
	statuses StatusStore
	counter  RunCounter
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running map[backend.Script]bool
}

// NewService creates an import [Service]. counter may be nil.
func NewService(runner Runner, statuses StatusStore, counter RunCounter, logger *slog.Logger) *Service {
	return &Service{
		runner:   runner,
		statuses: statuses,
		counter:  counter,
		logger:   logger,
		now:      time.Now,
		running:  map[backend.Script]bool{},
	}
}

// # Runs

/*
Run executes a single script on behalf of triggeredBy.

Description: A script that is already running is rejected with a CONFLICT
error. A script that fails on the backend is not an error here; the failure
is reported in the returned [Result] and stored like any other outcome.

Parameters:
  - ctx: context.Context
  - script: backend.Script
  - triggeredBy: string (username, or "scheduler")

Returns:
  - Result
  - error: CONFLICT when already running
*/
func (service *Service) Run(ctx context.Context, script backend.Script, triggeredBy string) (Result, error) {
	if !service.acquire(script) {
		return Result{}, apperr.Conflict("Script " + string(script) + " is already running")
	}
	defer service.release(script)

	result := Result{Script: script, StartedAt: service.now(), TriggeredBy: triggeredBy}

	report, err := service.runner.RunScript(ctx, script)
	result.FinishedAt = service.now()
	if err != nil {
		result.Error = backend.Message(err, "Import failed")
		service.logger.WarnContext(ctx, "import_script_failed",
			slog.String("script", string(script)),
			slog.Any("error", err),
		)
	} else {
		result.Success = true
		result.Report = report
		service.logger.InfoContext(ctx, "import_script_finished",
			slog.String("script", string(script)),
			slog.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
		)
	}

	if service.counter != nil {
		service.counter.RecordImportRun(string(script), result.Success)
	}

	if err := service.statuses.Save(context.WithoutCancel(ctx), result); err != nil {
		service.logger.WarnContext(ctx, "import_status_save_failed",
			slog.String("script", string(script)),
			slog.Any("error", err),
		)
	}

	return result, nil
}

// RunAll runs every import script in parallel and returns their results in order.
//
// A script that is already running is reported as a failed result.
func (service *Service) RunAll(ctx context.Context, triggeredBy string) []Result {
	results := make([]Result, len(backend.ImportScripts))

	var group errgroup.Group
	for i, script := range backend.ImportScripts {
		group.Go(func() error {
			result, err := service.Run(ctx, script, triggeredBy)
			if err != nil {
				result = Result{Script: script, Error: err.Error(), StartedAt: service.now(), FinishedAt: service.now()}
			}
			results[i] = result
			return nil
		})
	}
	_ = group.Wait()

	return results
}

// Status returns the last run of every script, including fetch-all.
func (service *Service) Status(ctx context.Context) ([]Status, error) {
	scripts := append([]backend.Script{backend.ScriptFetchAll}, backend.ImportScripts...)

	last, err := service.statuses.Load(ctx, scripts)
	if err != nil {
		return nil, err
	}

	service.mu.Lock()
	defer service.mu.Unlock()

	statuses := make([]Status, 0, len(scripts))
	for _, script := range scripts {
		status := Status{Script: script, Running: service.running[script]}
		if result, ok := last[script]; ok {
			status.LastRun = &result
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

func (service *Service) acquire(script backend.Script) bool {
	service.mu.Lock()
	defer service.mu.Unlock()
	if service.running[script] {
		return false
	}
	service.running[script] = true
	return true
}

func (service *Service) release(script backend.Script) {
	service.mu.Lock()
	defer service.mu.Unlock()
	delete(service.running, script)
}
