package tcp

import (
    "bytes"
    "context"
    "errors"
    "net"
    "runtime"
    "sync/atomic"
    "testing"
    "time"

    "sensorstream/pkg/protocol"
    "sensorstream/pkg/transport"
)

const waitLimit = 3 * time.Second

func listen(t *testing.T, opts Options) (*Server, chan transport.ConnInfo, chan transport.ConnInfo) {
    t.Helper()
    s := New(opts)
    up := make(chan transport.ConnInfo, 8)
    down := make(chan transport.ConnInfo, 8)
    s.OnClientConnected(func(ci transport.ConnInfo) { up <- ci })
    s.OnClientDisconnected(func(ci transport.ConnInfo) { down <- ci })
    if err := s.Listen("127.0.0.1:0"); err != nil { t.Fatalf("listen: %v", err) }
    t.Cleanup(func() { _ = s.StopListening() })
    return s, up, down
}

func dial(t *testing.T, s *Server) *Client {
    t.Helper()
    c, err := Dial(context.Background(), s.Addr().String(), 0)
    if err != nil { t.Fatalf("dial: %v", err) }
    t.Cleanup(func() { _ = c.Close() })
    return c
}

func wait(t *testing.T, ch chan transport.ConnInfo, what string) transport.ConnInfo {
    t.Helper()
    select {
    case ci := <-ch:
        return ci
    case <-time.After(waitLimit):
        t.Fatalf("timed out waiting for %s", what)
        return transport.ConnInfo{}
    }
}

func TestSendReceiveLoopback(t *testing.T) {
    s, up, _ := listen(t, Options{Name: "test"})
    if s.State() != transport.StateListening { t.Fatalf("state = %s", s.State()) }
    c := dial(t, s)
    ci := wait(t, up, "connect")
    if ci.ID == "" { t.Fatalf("connection id not set") }
    if !s.IsClientConnected() { t.Fatalf("server should report connected") }

    if err := s.Send([]byte("hello"), 42); err != nil { t.Fatalf("send: %v", err) }
    f, err := c.Receive()
    if err != nil { t.Fatalf("client receive: %v", err) }
    if f.Timestamp != 42 || string(f.Payload) != "hello" { t.Fatalf("got %+v", f) }

    if err := c.Send([]byte{1, 2, 3}, -7); err != nil { t.Fatalf("client send: %v", err) }
    g, err := s.Receive()
    if err != nil { t.Fatalf("server receive: %v", err) }
    if g.Timestamp != -7 || !bytes.Equal(g.Payload, []byte{1, 2, 3}) { t.Fatalf("got %+v", g) }

    st := s.Stats()
    if st.FramesSent != 1 || st.BytesSent != uint64(protocol.HeaderSize+5) || st.FramesReceived != 1 {
        t.Fatalf("stats = %+v", st)
    }
}

func TestSendWithoutClient(t *testing.T) {
    s, _, _ := listen(t, Options{})
    if err := s.Send([]byte("x"), 1); !errors.Is(err, transport.ErrNotConnected) {
        t.Fatalf("want ErrNotConnected, got %v", err)
    }
}

func TestSecondClientRefused(t *testing.T) {
    s, up, _ := listen(t, Options{})
    first := dial(t, s)
    wait(t, up, "first connect")

    second := dial(t, s)
    _ = second.SetReadDeadline(time.Now().Add(waitLimit))
    if _, err := second.Receive(); err == nil {
        t.Fatalf("second client should be closed")
    } else if ne, ok := err.(net.Error); ok && ne.Timeout() {
        t.Fatalf("second client was not closed: %v", err)
    }
    select {
    case <-up:
        t.Fatalf("refused client fired a connect notification")
    default:
    }

    if err := s.Send([]byte("still here"), 5); err != nil { t.Fatalf("send to first: %v", err) }
    f, err := first.Receive()
    if err != nil || string(f.Payload) != "still here" { t.Fatalf("first client affected: %v %+v", err, f) }
    if s.Stats().Refused != 1 { t.Fatalf("refused = %d", s.Stats().Refused) }
}

func TestDisconnectFiresOnceAndAllowsReconnect(t *testing.T) {
    s, up, down := listen(t, Options{})
    var downs atomic.Int32
    s.OnClientDisconnected(func(transport.ConnInfo) { downs.Add(1) })

    c := dial(t, s)
    first := wait(t, up, "connect")
    _ = c.Close()
    if _, err := s.Receive(); err == nil { t.Fatalf("receive after hangup should fail") }
    if _, err := s.Receive(); !errors.Is(err, transport.ErrNotConnected) {
        t.Fatalf("want ErrNotConnected after drop, got %v", err)
    }
    if got := wait(t, down, "disconnect"); got.ID != first.ID { t.Fatalf("disconnect for %s, want %s", got.ID, first.ID) }
    if s.State() != transport.StateListening { t.Fatalf("state = %s", s.State()) }

    dial(t, s)
    second := wait(t, up, "reconnect")
    if second.ID == first.ID { t.Fatalf("connection ids should differ") }
    if n := downs.Load(); n != 1 { t.Fatalf("disconnect fired %d times", n) }
}

func TestSendOnlyNoticesHangup(t *testing.T) {
    s, up, down := listen(t, Options{SendOnly: true})
    c := dial(t, s)
    wait(t, up, "connect")
    _ = c.Close()
    wait(t, down, "disconnect")
    if s.IsClientConnected() { t.Fatalf("still connected after hangup") }
}

func TestObserverMaySend(t *testing.T) {
    s := New(Options{})
    s.OnClientConnected(func(transport.ConnInfo) { _ = s.Send([]byte("calibration"), 9) })
    if err := s.Listen("127.0.0.1:0"); err != nil { t.Fatalf("listen: %v", err) }
    defer s.StopListening()
    c := dial(t, s)
    _ = c.SetReadDeadline(time.Now().Add(waitLimit))
    f, err := c.Receive()
    if err != nil { t.Fatalf("receive: %v", err) }
    if string(f.Payload) != "calibration" || f.Timestamp != 9 { t.Fatalf("got %+v", f) }
}

func TestReceiveRejectsOversizedFrame(t *testing.T) {
    s, up, down := listen(t, Options{MaxPayload: 16})
    c := dial(t, s)
    wait(t, up, "connect")
    if err := c.Send(make([]byte, 32), 1); err != nil { t.Fatalf("client send: %v", err) }
    _, err := s.Receive()
    var pe *protocol.ProtocolError
    if !errors.As(err, &pe) { t.Fatalf("want ProtocolError, got %v", err) }
    var te *transport.TransportError
    if !errors.As(err, &te) || te.Op != "receive" { t.Fatalf("want receive TransportError, got %v", err) }
    wait(t, down, "disconnect")
}

func TestStopUnblocksReceive(t *testing.T) {
    s, up, down := listen(t, Options{})
    dial(t, s)
    wait(t, up, "connect")
    done := make(chan error, 1)
    go func() { _, err := s.Receive(); done <- err }()
    time.Sleep(20 * time.Millisecond)
    if err := s.StopListening(); err != nil { t.Fatalf("stop: %v", err) }
    select {
    case err := <-done:
        if err == nil { t.Fatalf("receive returned nil error after stop") }
    case <-time.After(waitLimit):
        t.Fatalf("receive still blocked after stop")
    }
    wait(t, down, "disconnect")
    if s.State() != transport.StateIdle { t.Fatalf("state = %s", s.State()) }
    if err := s.StopListening(); err != nil { t.Fatalf("second stop: %v", err) }
}

func TestStopUnblocksSend(t *testing.T) {
    s, up, _ := listen(t, Options{})
    dial(t, s) // never reads
    wait(t, up, "connect")
    big := make([]byte, 4<<20)
    done := make(chan struct{})
    go func() {
        defer close(done)
        for i := int64(0); ; i++ {
            if err := s.Send(big, i); err != nil { return }
        }
    }()
    time.Sleep(100 * time.Millisecond)
    _ = s.StopListening()
    select {
    case <-done:
    case <-time.After(waitLimit):
        t.Fatalf("sender still blocked after stop")
    }
}

func TestSendRejectsPayloadPastLengthField(t *testing.T) {
    defer func(old int64) { sendLimit = old }(sendLimit)
    sendLimit = 16
    s, up, down := listen(t, Options{})
    c := dial(t, s)
    wait(t, up, "connect")
    err := s.Send(make([]byte, 17), 1)
    var te *transport.TransportError
    var pe *protocol.ProtocolError
    if !errors.As(err, &te) || !errors.As(err, &pe) { t.Fatalf("want TransportError wrapping ProtocolError, got %v", err) }
    select {
    case ci := <-down:
        t.Fatalf("rejected send dropped %s", ci.ID)
    case <-time.After(50 * time.Millisecond):
    }
    // Nothing reached the wire, so the next frame is still aligned.
    if err := s.Send([]byte("ok"), 2); err != nil { t.Fatalf("send: %v", err) }
    _ = c.SetReadDeadline(time.Now().Add(waitLimit))
    f, err := c.Receive()
    if err != nil || f.Timestamp != 2 || string(f.Payload) != "ok" { t.Fatalf("receive = %+v, %v", f, err) }
}

func TestWriteTimeoutDropsStalledClient(t *testing.T) {
    s, up, down := listen(t, Options{WriteTimeout: 50 * time.Millisecond})
    dial(t, s)
    wait(t, up, "connect")
    big := make([]byte, 4<<20)
    var err error
    for i := 0; i < 64 && err == nil; i++ { err = s.Send(big, int64(i)) }
    var te *transport.TransportError
    if !errors.As(err, &te) { t.Fatalf("want TransportError from stalled send, got %v", err) }
    wait(t, down, "disconnect")
}

func TestListenBindErrorAndIdempotence(t *testing.T) {
    s, _, _ := listen(t, Options{})
    addr := s.Addr().String()
    if err := s.Listen(addr); err != nil { t.Fatalf("repeat listen: %v", err) }
    if s.Addr().String() != addr { t.Fatalf("address changed on repeat listen") }

    other := New(Options{})
    err := other.Listen(addr)
    var be *transport.BindError
    if !errors.As(err, &be) { t.Fatalf("want BindError, got %v", err) }
    if be.Addr != addr { t.Fatalf("bind error addr = %s", be.Addr) }
    if other.State() != transport.StateIdle { t.Fatalf("state = %s", other.State()) }
}

func TestClientFollowsContext(t *testing.T) {
    s, up, _ := listen(t, Options{})
    ctx, cancel := context.WithCancel(context.Background())
    c, err := Dial(ctx, s.Addr().String(), 0)
    if err != nil { t.Fatalf("dial: %v", err) }
    wait(t, up, "connect")
    cancel()
    _ = c.SetReadDeadline(time.Now().Add(waitLimit))
    if _, err := c.Receive(); err == nil { t.Fatalf("receive on cancelled client succeeded") }
    _ = c.Close()
}

func TestClientCloseReleasesContextWatch(t *testing.T) {
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    if err != nil { t.Fatalf("listen: %v", err) }
    defer ln.Close()
    go func() {
        for {
            c, err := ln.Accept()
            if err != nil { return }
            _ = c.Close()
        }
    }()
    before := runtime.NumGoroutine()
    for i := 0; i < 50; i++ {
        c, err := Dial(context.Background(), ln.Addr().String(), 0)
        if err != nil { t.Fatalf("dial %d: %v", i, err) }
        _ = c.Close()
    }
    deadline := time.Now().Add(waitLimit)
    for runtime.NumGoroutine() > before+5 {
        if time.Now().After(deadline) { t.Fatalf("goroutines grew from %d to %d", before, runtime.NumGoroutine()) }
        time.Sleep(10 * time.Millisecond)
    }
}
