// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/psu-triup/portal/internal/access"
)

const (
	// DefaultCapacity is the number of entries buffered before dropping.
	DefaultCapacity = 1024

	batchSize     = 64
	flushInterval = 2 * time.Second
	drainTimeout  = 5 * time.Second
)

// DropCounter is told about every entry lost to a full buffer.
type DropCounter interface {
	RecordAuditDropped()
}

// Recorder queues gate outcomes and writes them in batches.
//
// It implements [access.AuditSink].
type Recorder struct {
	store   Store
	entries chan Entry
	dropped DropCounter
	logger  *slog.Logger
	now     func() time.Time
}

/*
NewRecorder creates a recorder with a bounded buffer.

Parameters:
  - store: Store
  - capacity: int (buffer size; values below 1 use DefaultCapacity)
  - dropped: DropCounter (may be nil)
  - logger: *slog.Logger

Returns:
  - *Recorder
*/
func NewRecorder(store Store, capacity int, dropped DropCounter, logger *slog.Logger) *Recorder {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		store:   store,
		entries: make(chan Entry, capacity),
		dropped: dropped,
		logger:  logger,
		now:     time.Now,
	}
}

// Record queues the outcome without blocking.
func (recorder *Recorder) Record(ctx context.Context, outcome access.Outcome) {
	entry := NewEntry(ctx, outcome, recorder.now())

	select {
	case recorder.entries <- entry:
	default:
		if recorder.dropped != nil {
			recorder.dropped.RecordAuditDropped()
		}
		recorder.logger.WarnContext(ctx, "audit_entry_dropped",
			slog.String("area", entry.Area),
			slog.String("path", entry.Path),
		)
	}
}

/*
Run writes queued entries until ctx is cancelled.

Description: Entries are flushed when a batch is full or on every tick.
After cancellation whatever is still buffered is written once with a short
deadline before Run returns.
*/
func (recorder *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, batchSize)

	for {
		select {
		case entry := <-recorder.entries:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				batch = recorder.flush(ctx, batch)
			}

		case <-ticker.C:
			batch = recorder.flush(ctx, batch)

		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
			defer cancel()

		drain:
			for {
				select {
				case entry := <-recorder.entries:
					batch = append(batch, entry)
				default:
					break drain
				}
			}
			recorder.flush(drainCtx, batch)
			return nil
		}
	}
}

// flush writes the batch and returns it emptied for reuse.
func (recorder *Recorder) flush(ctx context.Context, batch []Entry) []Entry {
	if len(batch) == 0 {
		return batch
	}

	if err := recorder.store.Insert(ctx, batch); err != nil {
		recorder.logger.ErrorContext(ctx, "audit_flush_failed",
			slog.Int("entries", len(batch)),
			slog.Any("error", err),
		)
	}

	return batch[:0]
}
