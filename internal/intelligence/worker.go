package intelligence

import (
	"context"
	"log/slog"
	"sync"
)

// Worker runs profile rebuilds from a bounded queue with a single consumer,
// so failures, backpressure, and shutdown draining are observable.
type Worker struct {
	rebuilder *Rebuilder
	queue     chan string

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorker returns an unstarted Worker with the given queue capacity.
func NewWorker(rebuilder *Rebuilder, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Worker{
		rebuilder: rebuilder,
		queue:     make(chan string, queueSize),
	}
}

// Start launches the consumer goroutine. Rebuilds use the given context;
// cancelling it aborts the in-flight rebuild but queued requests still
// drain (and fail fast) on Close.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for characterID := range w.queue {
			if err := w.rebuilder.Rebuild(ctx, characterID); err != nil {
				// Never fatal: rebuilds are opportunistic.
				slog.Error("background profile rebuild failed", "character_id", characterID, "error", err.Error())
			}
		}
	}()
}

// Schedule enqueues a rebuild without blocking. It reports false when the
// queue is full or the worker is closed.
func (w *Worker) Schedule(characterID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- characterID:
		return true
	default:
		return false
	}
}

// Close stops accepting requests and waits for the queue to drain.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
}
