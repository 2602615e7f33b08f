// Package pipeline implements the bounded write queue that decouples
// capture (C4) from storage (C2): producers enqueue shell or clipboard
// entries, a single consumer goroutine embeds and inserts them in
// batches, and the queue applies back-pressure instead of blocking a
// producer indefinitely.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"jotx/internal/domain"
)

const (
	// QueueSize is the bounded channel capacity (spec.md §4.3).
	QueueSize = 1000
	// WarnThreshold is the queue length at which Writer logs a length
	// warning on each enqueue, surfacing building back-pressure before
	// the queue actually fills.
	WarnThreshold = 500
	// BatchSize is the max items drained per flush.
	BatchSize = 10
	// IdleFlush is how long the writer waits for a partial batch to
	// fill before flushing anyway.
	IdleFlush = 500 * time.Millisecond
	// drainTimeout bounds the final flush issued after the caller's
	// context is cancelled. The drain itself must not run under that
	// same cancelled context (it would fail every write instantly on
	// ctx.Err()), so it gets a short-lived context of its own.
	drainTimeout = 5 * time.Second
)

// Store is the subset of internal/store/sqlite.Store the writer needs.
type Store interface {
	InsertShell(ctx context.Context, e domain.Entry) (int64, error)
	InsertClipboard(ctx context.Context, e domain.Entry) (int64, error)
}

// Writer drains a bounded queue of captured entries, embedding and
// inserting them in batches of up to BatchSize or every IdleFlush,
// whichever comes first. Grounded on original_source/src/db/db_writer.rs's
// crossbeam_channel::bounded(1000) worker, translated to a native Go
// buffered channel and a single consumer goroutine — the pattern the
// teacher itself uses for bounded async work.
type Writer struct {
	queue    chan domain.Entry
	store    Store
	embedder domain.EmbeddingProvider
	logger   *slog.Logger
	done     chan struct{}
}

// New creates a Writer. embedder may be nil, in which case entries are
// written without a vector (embedding failures degrade the same way).
func New(store Store, embedder domain.EmbeddingProvider, logger *slog.Logger) *Writer {
	return &Writer{
		queue:    make(chan domain.Entry, QueueSize),
		store:    store,
		embedder: embedder,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Enqueue submits an entry for writing. It never blocks: on a full queue
// it returns a recoverable error and the caller may drop the item
// (spec.md §4.3's back-pressure signal).
func (w *Writer) Enqueue(e domain.Entry) error {
	select {
	case w.queue <- e:
		if n := len(w.queue); n >= WarnThreshold {
			w.logger.Warn("write queue approaching capacity", "length", n, "capacity", QueueSize)
		}
		return nil
	default:
		return domain.NewError("pipeline.enqueue", domain.KindStorage, "write queue full, entry dropped")
	}
}

// QueueLength reports the current queue depth, for observation.
func (w *Writer) QueueLength() int {
	return len(w.queue)
}

// Run drains the queue until ctx is cancelled, flushing batches of up to
// BatchSize or every IdleFlush of inactivity. It returns once the queue
// has been fully drained after cancellation.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	batch := make([]domain.Entry, 0, BatchSize)
	timer := time.NewTimer(IdleFlush)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			w.writeOne(ctx, e)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			w.drain(drainCtx, batch)
			cancel()
			return
		case e := <-w.queue:
			batch = append(batch, e)
			if len(batch) >= BatchSize {
				flush()
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(IdleFlush)
			}
		case <-timer.C:
			flush()
			timer.Reset(IdleFlush)
		}
	}
}

// drain flushes any already-batched items plus whatever remains in the
// channel, a best-effort final sweep on shutdown.
func (w *Writer) drain(ctx context.Context, batch []domain.Entry) {
	for _, e := range batch {
		w.writeOne(ctx, e)
	}
	for {
		select {
		case e := <-w.queue:
			w.writeOne(ctx, e)
		default:
			return
		}
	}
}

func (w *Writer) writeOne(ctx context.Context, e domain.Entry) {
	if w.embedder != nil && !e.HasEmbedding() {
		vecs, err := w.embedder.Embed(ctx, []string{e.Content})
		if err != nil {
			w.logger.Warn("embedding failed, writing entry without a vector", "kind", e.Kind, "error", err)
		} else if len(vecs) > 0 {
			e.Embedding = vecs[0]
		}
	}

	var insertErr error
	switch e.Kind {
	case domain.EntryShell:
		_, insertErr = w.store.InsertShell(ctx, e)
	case domain.EntryClipboard:
		_, insertErr = w.store.InsertClipboard(ctx, e)
	default:
		w.logger.Warn("dropping entry with unknown kind", "kind", e.Kind)
		return
	}
	if insertErr != nil {
		w.logger.Error("failed to insert entry", "kind", e.Kind, "error", insertErr)
	}
}

// Wait blocks until Run has returned after ctx cancellation, used by the
// supervisor to drain gracefully on shutdown.
func (w *Writer) Wait() {
	<-w.done
}
