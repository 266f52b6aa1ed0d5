package audit

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultBuffer is the queue size used when NewWriter is given zero.
const DefaultBuffer = 256

// Writer queues entries and stores them from a single goroutine so audit
// writes never block a request. When the queue is full entries are dropped
// with a warning.
type Writer struct {
	repo   Repository
	logger *slog.Logger
	ch     chan *Entry

	startOnce sync.Once
	done      chan struct{}
}

// NewWriter creates a writer with the given queue size.
func NewWriter(repo Repository, logger *slog.Logger, buffer int) *Writer {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		repo:   repo,
		logger: logger,
		ch:     make(chan *Entry, buffer),
		done:   make(chan struct{}),
	}
}

// Record enqueues an entry. It never blocks.
func (w *Writer) Record(entry *Entry) {
	select {
	case w.ch <- entry:
	default:
		w.logger.Warn("audit queue full, dropping entry",
			"action", entry.Action,
			"entity_type", entry.EntityType,
		)
	}
}

// Start drains the queue until ctx is cancelled, then stores whatever is
// still queued and closes Done. Calling Start more than once has no effect.
func (w *Writer) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.run(ctx)
	})
}

// Done is closed once the writer has stopped and flushed its queue.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case entry := <-w.ch:
			w.store(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-w.ch:
					w.store(entry)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) store(entry *Entry) {
	// The request that produced the entry may already be gone.
	if err := w.repo.Create(context.Background(), entry); err != nil {
		w.logger.Error("audit write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err,
		)
	}
}
