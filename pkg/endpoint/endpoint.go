// Package endpoint composes one telemetry stream: a single-client frame
// server on the stream's port plus the workers that feed it. Three shapes
// exist: Stream (capture → latest buffer → writer), Calibration (one frame
// per connection) and Receiver (inbound frames from the client).
package endpoint

import (
    "context"
    "net"
    "strconv"
    "time"

    "go.uber.org/zap"

    "sensorstream/pkg/latest"
    "sensorstream/pkg/pipeline"
    "sensorstream/pkg/protocol"
    "sensorstream/pkg/transport"
    "sensorstream/pkg/transport/tcp"
)

// Endpoint is the lifecycle shared by every stream shape.
type Endpoint interface {
    Kind() protocol.StreamKind
    Start(ctx context.Context) error
    Stop()
    Addr() net.Addr
    Status() Status
}

// Options configures an endpoint's listener and writer.
type Options struct {
    Host         string
    Port         int           // stream default when zero; use -1 for an ephemeral port
    PollInterval time.Duration // writer idle poll
    WriteTimeout time.Duration
    MaxPayload   int
    RateLimit    int64 // writer bytes per second; unlimited when zero
    Logger       *zap.Logger
}

func (o Options) address(kind protocol.StreamKind) string {
    port := o.Port
    switch {
    case port == 0:
        port = kind.DefaultPort()
    case port < 0:
        port = 0
    }
    return net.JoinHostPort(o.Host, strconv.Itoa(port))
}

func (o Options) logger(kind protocol.StreamKind) *zap.Logger {
    lg := o.Logger
    if lg == nil { lg = zap.L() }
    return lg.With(zap.String("stream", kind.String()))
}

func (o Options) server(kind protocol.StreamKind, sendOnly bool) *tcp.Server {
    return tcp.New(tcp.Options{
        Name:         kind.String(),
        MaxPayload:   o.MaxPayload,
        WriteTimeout: o.WriteTimeout,
        SendOnly:     sendOnly,
        Logger:       o.Logger,
    })
}

func (o Options) shaper() *pipeline.TokenBucket {
    if o.RateLimit <= 0 { return nil }
    return pipeline.NewTokenBucket(o.RateLimit, 2*o.RateLimit)
}

// Status is a point-in-time view of an endpoint.
type Status struct {
    Kind       protocol.StreamKind
    Addr       string
    State      transport.State
    Transport  transport.Stats
    Buffer     latest.Stats
    Capture    pipeline.CaptureStats
    Writer     pipeline.WriterStats
    CaptureErr error
}

// Fields renders the status as structured log fields.
func (s Status) Fields() []zap.Field {
    f := []zap.Field{
        zap.String("state", s.State.String()),
        zap.Uint64("clients", s.Transport.Accepted),
        zap.Uint64("refused", s.Transport.Refused),
        zap.Uint64("frames_sent", s.Transport.FramesSent),
        zap.Uint64("bytes_sent", s.Transport.BytesSent),
        zap.Uint64("frames_received", s.Transport.FramesReceived),
        zap.Uint64("published", s.Buffer.Published),
        zap.Uint64("dropped", s.Buffer.Overwritten),
    }
    if s.CaptureErr != nil { f = append(f, zap.NamedError("capture_error", s.CaptureErr)) }
    return f
}

func addrString(a net.Addr) string {
    if a == nil { return "" }
    return a.String()
}
