package pipeline

import (
    "context"
    "sync"
)

// Worker is a joinable background goroutine with its own cancellation.
type Worker struct {
    stopMu sync.Mutex
    mu     sync.Mutex
    cancel context.CancelFunc
    done   chan struct{}
    err    error
}

// Go starts run on a new goroutine. run must return once its context is cancelled.
func Go(parent context.Context, run func(ctx context.Context) error) *Worker {
    ctx, cancel := context.WithCancel(parent)
    w := &Worker{cancel: cancel, done: make(chan struct{})}
    go func(done chan struct{}) {
        err := run(ctx)
        w.mu.Lock(); w.err = err; w.mu.Unlock()
        close(done)
    }(w.done)
    return w
}

// Done is closed when run has returned. It is nil after Stop.
func (w *Worker) Done() <-chan struct{} {
    w.mu.Lock(); defer w.mu.Unlock()
    return w.done
}

// Stop cancels the worker and joins it. The handle is cleared after the
// join, so later calls return immediately with a nil error. Stop must not be
// called from the worker itself.
func (w *Worker) Stop() error {
    w.stopMu.Lock()
    defer w.stopMu.Unlock()
    w.mu.Lock()
    cancel, done := w.cancel, w.done
    w.mu.Unlock()
    if done == nil { return nil }
    cancel()
    <-done
    w.mu.Lock()
    err := w.err
    w.cancel, w.done, w.err = nil, nil, nil
    w.mu.Unlock()
    return err
}
