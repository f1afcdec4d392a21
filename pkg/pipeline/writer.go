package pipeline

import (
    "context"
    "errors"
    "sync/atomic"
    "time"

    "go.uber.org/zap"

    "sensorstream/pkg/latest"
    "sensorstream/pkg/protocol"
    "sensorstream/pkg/transport"
)

// ErrSkip is returned by an EncodeFunc when a sample produces no frame
// (for example when no pose is available for its timestamp).
var ErrSkip = errors.New("pipeline: skip sample")

// DefaultPollInterval is how long a writer sleeps when nothing newer is buffered.
const DefaultPollInterval = 20 * time.Millisecond

// EncodeFunc serializes one sample into a frame payload.
type EncodeFunc[T any] func(v T, ts int64) ([]byte, error)

// Writer drains Buffer to Out. It is started when a client connects and runs
// until its context ends or the client goes away. Sends are synchronous, so
// at most one frame is in flight.
type Writer[T any] struct {
    Name   string
    Buffer *latest.Buffer[T]
    Encode EncodeFunc[T]
    Out    transport.FrameSender
    Poll   time.Duration
    Shaper *TokenBucket // optional byte-rate limit
    Log    *zap.Logger

    sent    atomic.Uint64
    bytes   atomic.Uint64
    skipped atomic.Uint64
    failed  atomic.Uint64
}

// WriterStats counts writer activity across every connection it served.
type WriterStats struct {
    FramesSent   uint64
    BytesSent    uint64
    Skipped      uint64
    EncodeErrors uint64
}

func (w *Writer[T]) Stats() WriterStats {
    return WriterStats{
        FramesSent:   w.sent.Load(),
        BytesSent:    w.bytes.Load(),
        Skipped:      w.skipped.Load(),
        EncodeErrors: w.failed.Load(),
    }
}

// Run is the writer loop. Each call starts from latest.NoWatermark, so a new
// client first receives the most recent buffered sample. It returns the send
// error that ended the connection, or nil on cancellation or hangup.
func (w *Writer[T]) Run(ctx context.Context) error {
    lg := w.Log
    if lg == nil { lg = zap.L() }
    lg = lg.With(zap.String("stream", w.Name))
    poll := w.Poll
    if poll <= 0 { poll = DefaultPollInterval }

    last := latest.NoWatermark
    for ctx.Err() == nil && w.Out.IsClientConnected() {
        s, ok := w.Buffer.TryConsumeIfNewer(last)
        if !ok {
            if !sleep(ctx, poll) { return nil }
            continue
        }
        last = s.Timestamp
        payload, err := w.Encode(s.Value, s.Timestamp)
        if err != nil {
            if errors.Is(err, ErrSkip) {
                w.skipped.Add(1)
                continue
            }
            w.failed.Add(1)
            lg.Warn("encode failed", zap.Int64("ts", s.Timestamp), zap.Error(err))
            continue
        }
        if w.Shaper != nil {
            if wait := w.Shaper.Reserve(int64(len(payload))); wait > 0 {
                if !sleep(ctx, wait) { return nil }
            }
        }
        if err := w.Out.Send(payload, s.Timestamp); err != nil {
            if errors.Is(err, transport.ErrNotConnected) { return nil }
            var pe *protocol.ProtocolError
            if errors.As(err, &pe) {
                // Nothing was written; the connection is still aligned.
                w.failed.Add(1)
                lg.Warn("frame too large to send", zap.Int64("ts", s.Timestamp), zap.Int("bytes", len(payload)))
                continue
            }
            lg.Info("writer stopping after send failure", zap.Error(err))
            return err
        }
        w.sent.Add(1)
        w.bytes.Add(uint64(len(payload)))
    }
    return nil
}
