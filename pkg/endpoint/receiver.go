package endpoint

import (
    "context"
    "net"
    "sync"

    "go.uber.org/zap"

    "sensorstream/pkg/latest"
    "sensorstream/pkg/pipeline"
    "sensorstream/pkg/protocol"
    "sensorstream/pkg/transport"
    "sensorstream/pkg/transport/tcp"
)

// FrameHandler consumes one inbound frame. Handlers run on the receive
// goroutine and must not block for long.
type FrameHandler func(protocol.Frame)

// Receiver accepts frames sent by the client. The latest payload is kept
// in a buffer and every frame is passed to the registered handlers.
type Receiver struct {
    kind protocol.StreamKind
    opts Options
    log  *zap.Logger
    buf  *latest.Buffer[[]byte]

    mu       sync.Mutex
    handlers []FrameHandler
    running  bool
    ctx      context.Context
    cancel   context.CancelFunc
    srv      *tcp.Server
    reader   *pipeline.Worker
}

func NewReceiver(kind protocol.StreamKind, opts Options) *Receiver {
    return &Receiver{kind: kind, opts: opts, log: opts.logger(kind), buf: latest.New[[]byte]()}
}

func (r *Receiver) Kind() protocol.StreamKind { return r.kind }

// OnFrame registers a handler for inbound frames.
func (r *Receiver) OnFrame(h FrameHandler) {
    r.mu.Lock(); r.handlers = append(r.handlers, h); r.mu.Unlock()
}

// Latest returns the most recent inbound payload.
func (r *Receiver) Latest() (latest.Sample[[]byte], bool) { return r.buf.Peek() }

func (r *Receiver) Start(ctx context.Context) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.running { return nil }
    srv := r.opts.server(r.kind, false)
    srv.OnClientConnected(r.clientConnected)
    srv.OnClientDisconnected(r.clientDisconnected)
    if err := srv.Listen(r.opts.address(r.kind)); err != nil { return err }
    r.ctx, r.cancel = context.WithCancel(ctx)
    r.srv, r.running = srv, true
    return nil
}

func (r *Receiver) clientConnected(ci transport.ConnInfo) {
    r.mu.Lock()
    defer r.mu.Unlock()
    if !r.running || r.reader != nil { return }
    srv := r.srv
    r.reader = pipeline.Go(r.ctx, func(ctx context.Context) error { return r.readLoop(ctx, srv) })
    r.log.Debug("receiver started", zap.String("conn", ci.ID))
}

func (r *Receiver) clientDisconnected(transport.ConnInfo) {
    r.mu.Lock()
    w := r.reader
    r.reader = nil
    r.mu.Unlock()
    if w != nil { _ = w.Stop() }
}

func (r *Receiver) readLoop(ctx context.Context, srv *tcp.Server) error {
    for ctx.Err() == nil && srv.IsClientConnected() {
        f, err := srv.Receive()
        if err != nil { return err }
        r.buf.Publish(f.Payload, f.Timestamp)
        r.mu.Lock()
        hs := append([]FrameHandler(nil), r.handlers...)
        r.mu.Unlock()
        for _, h := range hs { h(f) }
    }
    return nil
}

func (r *Receiver) Stop() {
    r.mu.Lock()
    if !r.running {
        r.mu.Unlock()
        return
    }
    r.running = false
    r.cancel()
    srv := r.srv
    r.mu.Unlock()

    _ = srv.StopListening()
    r.mu.Lock()
    w := r.reader
    r.reader = nil
    r.mu.Unlock()
    if w != nil { _ = w.Stop() }
    r.log.Info("receiver stopped", r.Status().Fields()...)
}

func (r *Receiver) Addr() net.Addr {
    r.mu.Lock(); defer r.mu.Unlock()
    if r.srv == nil { return nil }
    return r.srv.Addr()
}

func (r *Receiver) Status() Status {
    r.mu.Lock(); srv := r.srv; r.mu.Unlock()
    st := Status{Kind: r.kind, Buffer: r.buf.Stats()}
    if srv != nil { st.Addr, st.State, st.Transport = addrString(srv.Addr()), srv.State(), srv.Stats() }
    return st
}
