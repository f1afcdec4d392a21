package tcp

import "sync"

// dispatcher runs posted callbacks one at a time, in post order, on its own
// goroutine. post never blocks, so transitions can be queued while holding
// the server lock and observers are free to call back into the server.
type dispatcher struct {
    mu   sync.Mutex
    q    []func()
    quit bool
    wake chan struct{}
    done chan struct{}
}

func newDispatcher() *dispatcher {
    d := &dispatcher{wake: make(chan struct{}, 1), done: make(chan struct{})}
    go d.run()
    return d
}

func (d *dispatcher) post(fn func()) {
    d.mu.Lock()
    if d.quit { d.mu.Unlock(); return }
    d.q = append(d.q, fn)
    d.mu.Unlock()
    select { case d.wake <- struct{}{}: default: }
}

func (d *dispatcher) run() {
    defer close(d.done)
    for {
        d.mu.Lock()
        q, quit := d.q, d.quit
        d.q = nil
        d.mu.Unlock()
        for _, fn := range q { fn() }
        if quit {
            if len(q) == 0 { return }
            continue
        }
        <-d.wake
    }
}

// close drains everything already posted and stops the goroutine.
func (d *dispatcher) close() {
    d.mu.Lock(); d.quit = true; d.mu.Unlock()
    select { case d.wake <- struct{}{}: default: }
    <-d.done
}
