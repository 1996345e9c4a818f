package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrWorkerRunning is returned by Start when the worker already runs.
var ErrWorkerRunning = errors.New("worker_already_running")

// PanicObserver is notified when a worker cycle panics.
type PanicObserver interface {
	WorkerPanic(worker string)
}

// CycleFunc is one unit of periodic work. Implementations should return
// promptly once ctx is done.
type CycleFunc func(ctx context.Context)

// PeriodicWorker runs a CycleFunc once on Start and then on every tick of
// its interval, until stopped. Stop cancels the worker's context and blocks
// until the goroutine has returned, so no cycle runs after Stop returns.
// A stopped worker may be started again.
type PeriodicWorker struct {
	name     string
	interval time.Duration
	cycle    CycleFunc
	logger   *slog.Logger
	panics   PanicObserver

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPeriodicWorker creates a stopped worker. panics may be nil.
func NewPeriodicWorker(name string, interval time.Duration, cycle CycleFunc, logger *slog.Logger, panics PanicObserver) *PeriodicWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &PeriodicWorker{
		name:     name,
		interval: interval,
		cycle:    cycle,
		logger:   logger.With(slog.String("worker", name)),
		panics:   panics,
	}
}

// Name returns the worker name used in logs and metrics.
func (w *PeriodicWorker) Name() string {
	return w.name
}

// Start launches the worker goroutine. The worker also stops when ctx is
// cancelled; Stop must still be called to join it deterministically.
func (w *PeriodicWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("worker %s: interval must be positive, got %s", w.name, w.interval)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done != nil {
		select {
		case <-w.done:
			// Exited on parent cancellation; allow restart.
		default:
			return ErrWorkerRunning
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go w.run(ctx, done)
	w.logger.Info("worker started", slog.Duration("interval", w.interval))
	return nil
}

// Stop raises the stop signal and waits for the goroutine to exit. It is a
// no-op on a stopped worker.
func (w *PeriodicWorker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.logger.Info("worker stopped")
}

// Running reports whether the worker goroutine is alive.
func (w *PeriodicWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == nil {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

func (w *PeriodicWorker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		w.runCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runCycle executes one cycle, converting a panic into a logged and counted
// abort of that cycle only.
func (w *PeriodicWorker) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker cycle panicked", slog.String("panic", fmt.Sprint(r)))
			if w.panics != nil {
				w.panics.WorkerPanic(w.name)
			}
		}
	}()
	w.cycle(ctx)
}
