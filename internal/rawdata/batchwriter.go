// Package rawdata implements the independent raw-data writers from
// spec.md §4.11: one order-book, one funding, and one liquidations
// batch writer, one set shared by every coin (each record carries its coin;
// there is no per-coin collector), each with its own bounded buffer that flushes on BATCH_SIZE (default 100) or a 5-second tick,
// whichever comes first, with one final flush on shutdown. Insert errors
// are logged and counted; the writer itself never stops on a failed
// flush, since the next batch will simply retry against the store.
//
// The channel-buffer-then-periodic-flush shape is grounded on
// sdibella-kalshi-btc15m's internal/journal.Journal (append-on-event, one
// mutex-guarded sink), generalized from a single unbounded append to a
// bounded, batched one so a slow store can't back up the collectors
// indefinitely — the same non-blocking-drop backpressure principle
// internal/runner applies to its signal channel.
package rawdata

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
	DefaultBufferSize    = 1024
)

// BatchWriter accumulates records of one type and flushes them through a
// caller-supplied sink function, either on reaching batchSize or on the
// flush ticker, whichever is first.
type BatchWriter[T any] struct {
	in            chan T
	batchSize     int
	flushInterval time.Duration
	flush         func(ctx context.Context, batch []T) error
	log           *slog.Logger
	name          string

	inserted atomic.Uint64
	errors   atomic.Uint64
	dropped  atomic.Uint64

	mu           sync.Mutex
	lastFlushMs  int64
}

func NewBatchWriter[T any](name string, bufferSize, batchSize int, flushInterval time.Duration, flush func(ctx context.Context, batch []T) error, logger *slog.Logger) *BatchWriter[T] {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchWriter[T]{
		in:            make(chan T, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		flush:         flush,
		log:           logger,
		name:          name,
	}
}

// Push enqueues a record without blocking. On a full buffer the record is
// dropped and counted rather than stalling the collector that produced it.
func (w *BatchWriter[T]) Push(rec T) {
	select {
	case w.in <- rec:
	default:
		w.dropped.Add(1)
		w.log.Warn("rawdata buffer full, dropping record", "source", w.name)
	}
}

// Run drains the buffer until ctx is cancelled, flushing on batchSize or
// the flush ticker, and performs one final flush before returning.
func (w *BatchWriter[T]) Run(ctx context.Context) error {
	batch := make([]T, 0, w.batchSize)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case rec := <-w.in:
			batch = append(batch, rec)
			if len(batch) >= w.batchSize {
				batch = w.flushBatch(ctx, batch)
			}
		case <-ticker.C:
			batch = w.flushBatch(ctx, batch)
		case <-ctx.Done():
			w.flushBatch(ctx, batch)
			return ctx.Err()
		}
	}
}

func (w *BatchWriter[T]) flushBatch(ctx context.Context, batch []T) []T {
	if len(batch) == 0 {
		return batch[:0]
	}
	if err := w.flush(ctx, batch); err != nil {
		w.errors.Add(1)
		w.log.Error("rawdata flush failed, will retry next batch", "source", w.name, "count", len(batch), "err", err)
	} else {
		w.inserted.Add(uint64(len(batch)))
	}
	w.mu.Lock()
	w.lastFlushMs = time.Now().UnixMilli()
	w.mu.Unlock()
	return batch[:0]
}

func (w *BatchWriter[T]) Inserted() uint64 { return w.inserted.Load() }
func (w *BatchWriter[T]) Errors() uint64   { return w.errors.Load() }
func (w *BatchWriter[T]) Dropped() uint64  { return w.dropped.Load() }

// LastFlushMs returns the unix-ms timestamp of the most recent flush
// attempt (successful or not), or 0 if none has happened yet.
func (w *BatchWriter[T]) LastFlushMs() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastFlushMs
}
