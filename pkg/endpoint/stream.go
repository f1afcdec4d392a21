package endpoint

import (
    "context"
    "net"
    "sync"

    "go.uber.org/zap"

    "sensorstream/pkg/latest"
    "sensorstream/pkg/pipeline"
    "sensorstream/pkg/protocol"
    "sensorstream/pkg/sensors"
    "sensorstream/pkg/transport"
    "sensorstream/pkg/transport/tcp"
)

// Stream is an outbound telemetry endpoint. Samples come either from a
// continuous Source, captured from Start until Stop whether or not a client
// is attached, or from Publish calls made by an event-driven producer. A
// writer runs only while a client is connected.
type Stream[T any] struct {
    kind   protocol.StreamKind
    opts   Options
    log    *zap.Logger
    src    sensors.Source[T]
    encode pipeline.EncodeFunc[T]
    buf    *latest.Buffer[T]

    mu         sync.Mutex
    running    bool
    ctx        context.Context
    cancel     context.CancelFunc
    srv        *tcp.Server
    capture    *pipeline.Capture[T]
    writer     *pipeline.Writer[T]
    capWorker  *pipeline.Worker
    sendWorker *pipeline.Worker
    captureErr error
}

// NewStream returns an endpoint for kind. src may be nil for event-driven streams.
func NewStream[T any](kind protocol.StreamKind, src sensors.Source[T], encode pipeline.EncodeFunc[T], opts Options) *Stream[T] {
    return &Stream[T]{kind: kind, opts: opts, log: opts.logger(kind), src: src, encode: encode, buf: latest.New[T]()}
}

func (s *Stream[T]) Kind() protocol.StreamKind { return s.kind }

// Buffer exposes the latest-sample buffer shared by capture and writer.
func (s *Stream[T]) Buffer() *latest.Buffer[T] { return s.buf }

// Publish offers a sample from an event-driven producer. It never blocks on the network.
func (s *Stream[T]) Publish(v T, ts int64) { s.buf.Publish(v, ts) }

// Start binds the stream's port and starts capturing. A bind failure is
// returned as *transport.BindError and leaves the stream stopped.
func (s *Stream[T]) Start(ctx context.Context) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.running { return nil }

    srv := s.opts.server(s.kind, true)
    srv.OnClientConnected(s.clientConnected)
    srv.OnClientDisconnected(s.clientDisconnected)
    if err := srv.Listen(s.opts.address(s.kind)); err != nil { return err }

    s.ctx, s.cancel = context.WithCancel(ctx)
    s.srv = srv
    s.captureErr = nil
    s.writer = &pipeline.Writer[T]{
        Name:   s.kind.String(),
        Buffer: s.buf,
        Encode: s.encode,
        Out:    srv,
        Poll:   s.opts.PollInterval,
        Shaper: s.opts.shaper(),
        Log:    s.opts.Logger,
    }
    if s.src != nil {
        s.capture = &pipeline.Capture[T]{Name: s.kind.String(), Acquire: s.src.Next, Buffer: s.buf, Log: s.opts.Logger}
        capture := s.capture
        s.capWorker = pipeline.Go(s.ctx, func(ctx context.Context) error {
            err := capture.Run(ctx)
            if err != nil {
                s.mu.Lock(); s.captureErr = err; s.mu.Unlock()
            }
            return err
        })
    }
    s.running = true
    return nil
}

func (s *Stream[T]) clientConnected(ci transport.ConnInfo) {
    s.mu.Lock()
    if !s.running {
        s.mu.Unlock()
        return
    }
    stale := s.sendWorker
    s.sendWorker = pipeline.Go(s.ctx, s.writer.Run)
    s.mu.Unlock()
    if stale != nil { _ = stale.Stop() }
    s.log.Debug("writer started", zap.String("conn", ci.ID))
}

func (s *Stream[T]) clientDisconnected(ci transport.ConnInfo) {
    s.mu.Lock()
    w := s.sendWorker
    s.sendWorker = nil
    s.mu.Unlock()
    if w == nil { return }
    if err := w.Stop(); err != nil {
        s.log.Debug("writer ended", zap.String("conn", ci.ID), zap.Error(err))
    }
}

// Stop signals the workers, closes the socket and joins everything. It is
// idempotent and independent of every other stream.
func (s *Stream[T]) Stop() {
    s.mu.Lock()
    if !s.running {
        s.mu.Unlock()
        return
    }
    s.running = false
    s.cancel()
    srv, capW := s.srv, s.capWorker
    s.capWorker = nil
    s.mu.Unlock()

    _ = srv.StopListening()
    if capW != nil { _ = capW.Stop() }
    s.mu.Lock()
    w := s.sendWorker
    s.sendWorker = nil
    s.mu.Unlock()
    if w != nil { _ = w.Stop() }
    s.log.Info("stream stopped", s.Status().Fields()...)
}

func (s *Stream[T]) Addr() net.Addr {
    s.mu.Lock(); defer s.mu.Unlock()
    if s.srv == nil { return nil }
    return s.srv.Addr()
}

func (s *Stream[T]) Status() Status {
    s.mu.Lock()
    srv, capture, writer, cerr := s.srv, s.capture, s.writer, s.captureErr
    s.mu.Unlock()
    st := Status{Kind: s.kind, Buffer: s.buf.Stats(), CaptureErr: cerr}
    if srv != nil {
        st.Addr, st.State, st.Transport = addrString(srv.Addr()), srv.State(), srv.Stats()
    }
    if capture != nil { st.Capture = capture.Stats() }
    if writer != nil { st.Writer = writer.Stats() }
    return st
}
