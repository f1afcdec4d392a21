package pipeline

import (
    "context"
    "errors"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "sensorstream/pkg/latest"
    "sensorstream/pkg/protocol"
    "sensorstream/pkg/sensors"
    "sensorstream/pkg/transport"
)

type sent struct {
    payload []byte
    ts      int64
}

type sink struct {
    mu        sync.Mutex
    frames    []sent
    connected atomic.Bool
    fail      error
    limit     int
}

func newSink() *sink { s := &sink{}; s.connected.Store(true); return s }

func (s *sink) Send(p []byte, ts int64) error {
    if !s.connected.Load() { return transport.ErrNotConnected }
    if s.fail != nil {
        s.connected.Store(false)
        return &transport.TransportError{Op: "send", Err: s.fail}
    }
    if s.limit > 0 {
        if err := protocol.CheckPayloadLen(int64(len(p)), int64(s.limit)); err != nil {
            return &transport.TransportError{Op: "send", Err: err}
        }
    }
    s.mu.Lock(); s.frames = append(s.frames, sent{p, ts}); s.mu.Unlock()
    return nil
}

func (s *sink) IsClientConnected() bool { return s.connected.Load() }

func (s *sink) snapshot() []sent {
    s.mu.Lock(); defer s.mu.Unlock()
    return append([]sent(nil), s.frames...)
}

func encodeString(v string, _ int64) ([]byte, error) { return []byte(v), nil }

func TestCaptureRetriesAndSkipsDuplicates(t *testing.T) {
    script := []struct {
        v   string
        ts  int64
        err error
    }{
        {err: sensors.ErrNotReady},
        {v: "a", ts: 10},
        {v: "a-again", ts: 10},
        {err: sensors.ErrNotReady},
        {v: "b", ts: 20},
        {err: errors.New("device lost")},
    }
    i := 0
    c := &Capture[string]{
        Name:   "test",
        Buffer: latest.New[string](),
        Acquire: func(context.Context) (string, int64, error) {
            s := script[i]; i++
            return s.v, s.ts, s.err
        },
        RetryDelay: time.Millisecond,
    }
    err := c.Run(context.Background())
    var ae *sensors.AcquisitionError
    if !errors.As(err, &ae) || ae.Source != "test" { t.Fatalf("want AcquisitionError, got %v", err) }
    if i != len(script) { t.Fatalf("loop continued after terminal error") }
    st := c.Stats()
    if st.Published != 2 || st.Duplicates != 1 { t.Fatalf("stats = %+v", st) }
    if s, _ := c.Buffer.Peek(); s.Value != "b" { t.Fatalf("buffer holds %q", s.Value) }
}

func TestCaptureStopsOnCancel(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    c := &Capture[int]{
        Name:   "blocking",
        Buffer: latest.New[int](),
        Acquire: func(ctx context.Context) (int, int64, error) {
            <-ctx.Done()
            return 0, 0, ctx.Err()
        },
    }
    w := Go(ctx, c.Run)
    cancel()
    select {
    case <-w.Done():
    case <-time.After(2 * time.Second):
        t.Fatalf("capture did not stop")
    }
    if err := w.Stop(); err != nil { t.Fatalf("cancelled capture returned %v", err) }
}

func TestWriterSendsOnlyNewest(t *testing.T) {
    buf := latest.New[string]()
    buf.Publish("f100", 100)
    buf.Publish("f105", 105)
    buf.Publish("f130", 130)
    out := newSink()
    wr := &Writer[string]{Name: "depth", Buffer: buf, Encode: encodeString, Out: out, Poll: time.Millisecond}
    w := Go(context.Background(), wr.Run)
    deadline := time.Now().Add(2 * time.Second)
    for len(out.snapshot()) == 0 && time.Now().Before(deadline) { time.Sleep(time.Millisecond) }
    time.Sleep(20 * time.Millisecond)
    if err := w.Stop(); err != nil { t.Fatalf("stop: %v", err) }

    got := out.snapshot()
    if len(got) != 1 || got[0].ts != 130 || string(got[0].payload) != "f130" { t.Fatalf("sent %+v", got) }
    if st := buf.Stats(); st.Overwritten != 2 { t.Fatalf("overwritten = %d", st.Overwritten) }
}

func TestWriterDeliversIncreasingTimestamps(t *testing.T) {
    buf := latest.New[string]()
    out := newSink()
    wr := &Writer[string]{Name: "pose", Buffer: buf, Encode: encodeString, Out: out, Poll: time.Millisecond}
    w := Go(context.Background(), wr.Run)
    for ts := int64(1); ts <= 200; ts++ {
        buf.Publish("x", ts)
        if ts%10 == 0 { time.Sleep(time.Millisecond) }
    }
    deadline := time.Now().Add(2 * time.Second)
    for time.Now().Before(deadline) {
        if f := out.snapshot(); len(f) > 0 && f[len(f)-1].ts == 200 { break }
        time.Sleep(time.Millisecond)
    }
    _ = w.Stop()
    got := out.snapshot()
    if len(got) == 0 || got[len(got)-1].ts != 200 { t.Fatalf("last frame not delivered: %+v", got) }
    for i := 1; i < len(got); i++ {
        if got[i].ts <= got[i-1].ts { t.Fatalf("timestamps out of order at %d: %d after %d", i, got[i].ts, got[i-1].ts) }
    }
    if wr.Stats().FramesSent != uint64(len(got)) { t.Fatalf("stats = %+v", wr.Stats()) }
}

func TestWriterSkipAdvancesWatermark(t *testing.T) {
    buf := latest.New[string]()
    buf.Publish("no-pose", 5)
    out := newSink()
    calls := atomic.Int32{}
    wr := &Writer[string]{
        Name: "depth", Buffer: buf, Out: out, Poll: time.Millisecond,
        Encode: func(string, int64) ([]byte, error) { calls.Add(1); return nil, ErrSkip },
    }
    w := Go(context.Background(), wr.Run)
    time.Sleep(30 * time.Millisecond)
    _ = w.Stop()
    if calls.Load() != 1 { t.Fatalf("skipped sample encoded %d times", calls.Load()) }
    if len(out.snapshot()) != 0 || wr.Stats().Skipped != 1 { t.Fatalf("skip not honoured: %+v", wr.Stats()) }
}

func TestWriterExitsOnDisconnect(t *testing.T) {
    buf := latest.New[string]()
    out := newSink()
    out.fail = errors.New("broken pipe")
    buf.Publish("x", 1)
    wr := &Writer[string]{Name: "video", Buffer: buf, Encode: encodeString, Out: out, Poll: time.Millisecond}
    err := wr.Run(context.Background())
    var te *transport.TransportError
    if !errors.As(err, &te) { t.Fatalf("want TransportError, got %v", err) }

    idle := newSink()
    idle.connected.Store(false)
    if err := (&Writer[string]{Buffer: buf, Encode: encodeString, Out: idle}).Run(context.Background()); err != nil {
        t.Fatalf("writer without client returned %v", err)
    }
}

func TestWriterDropsUnframeablePayload(t *testing.T) {
    buf := latest.New[string]()
    out := newSink()
    out.limit = 4
    wr := &Writer[string]{Name: "mesh", Buffer: buf, Encode: encodeString, Out: out, Poll: time.Millisecond}
    w := Go(context.Background(), wr.Run)
    defer w.Stop()
    buf.Publish("too large", 1)
    deadline := time.Now().Add(time.Second)
    for wr.Stats().EncodeErrors == 0 && time.Now().Before(deadline) { time.Sleep(time.Millisecond) }
    buf.Publish("ok", 2)
    for len(out.snapshot()) == 0 && time.Now().Before(deadline) { time.Sleep(time.Millisecond) }
    got := out.snapshot()
    if len(got) != 1 || string(got[0].payload) != "ok" { t.Fatalf("sent %v", got) }
    if wr.Stats().EncodeErrors != 1 || !out.IsClientConnected() { t.Fatalf("stats %+v", wr.Stats()) }
}

func TestWriterShaperDelaysFrames(t *testing.T) {
    buf := latest.New[string]()
    out := newSink()
    wr := &Writer[string]{
        Name: "mesh", Buffer: buf, Encode: encodeString, Out: out, Poll: time.Millisecond,
        Shaper: NewTokenBucket(1000, 100),
    }
    buf.Publish(string(make([]byte, 100)), 1)
    w := Go(context.Background(), wr.Run)
    time.Sleep(10 * time.Millisecond)
    buf.Publish(string(make([]byte, 100)), 2)
    time.Sleep(30 * time.Millisecond)
    if n := len(out.snapshot()); n != 1 { t.Fatalf("second frame should still be shaped, sent %d", n) }
    _ = w.Stop()
}

func TestTokenBucketReserve(t *testing.T) {
    b := NewTokenBucket(1000, 500)
    if d := b.Reserve(500); d != 0 { t.Fatalf("full bucket should not wait, got %v", d) }
    d := b.Reserve(2000)
    if d < 1900*time.Millisecond || d > 2000*time.Millisecond { t.Fatalf("wait = %v", d) }
}

func TestWorkerStopIsIdempotent(t *testing.T) {
    runs := atomic.Int32{}
    w := Go(context.Background(), func(ctx context.Context) error {
        runs.Add(1)
        <-ctx.Done()
        return errors.New("stopped")
    })
    var wg sync.WaitGroup
    errs := make(chan error, 3)
    for i := 0; i < 3; i++ {
        wg.Add(1)
        go func() { defer wg.Done(); errs <- w.Stop() }()
    }
    wg.Wait()
    close(errs)
    n := 0
    for err := range errs { if err != nil { n++ } }
    if n != 1 { t.Fatalf("run error reported %d times", n) }
    if w.Done() != nil { t.Fatalf("handle not cleared after join") }
    if runs.Load() != 1 { t.Fatalf("run called %d times", runs.Load()) }
}
