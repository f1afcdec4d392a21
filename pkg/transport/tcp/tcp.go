// Package tcp implements transport.FrameServer over TCP. Each server accepts
// one client at a time; further clients are accepted and closed immediately.
package tcp

import (
    "bufio"
    "errors"
    "io"
    "net"
    "sync"
    "sync/atomic"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "sensorstream/pkg/protocol"
    "sensorstream/pkg/transport"
)

// Options tunes a Server.
type Options struct {
    Name         string        // stream name used in log fields
    MaxPayload   int           // inbound payload limit; protocol.DefaultMaxPayload when zero
    WriteTimeout time.Duration // per-frame write deadline; none when zero
    // SendOnly makes the server drain and discard inbound bytes so that a
    // client hangup is noticed even when no frame is being sent. Receive is
    // unavailable on such servers.
    SendOnly bool
    Logger   *zap.Logger
}

// Server is a single-client frame server.
type Server struct {
    opts Options
    log  *zap.Logger

    mu           sync.Mutex
    ln           net.Listener
    active       *conn
    acceptDone   chan struct{}
    events       *dispatcher
    onConnect    []transport.Observer
    onDisconnect []transport.Observer

    state     atomic.Int32
    accepted  atomic.Uint64
    refused   atomic.Uint64
    framesOut atomic.Uint64
    bytesOut  atomic.Uint64
    framesIn  atomic.Uint64
    bytesIn   atomic.Uint64
    lastSeen  atomic.Int64
}

var _ transport.FrameServer = (*Server)(nil)

type conn struct {
    info transport.ConnInfo
    c    net.Conn
    br   *bufio.Reader
    bw   *bufio.Writer
    wmu  sync.Mutex
    rmu  sync.Mutex
    once sync.Once
}

func New(opts Options) *Server {
    if opts.MaxPayload <= 0 { opts.MaxPayload = protocol.DefaultMaxPayload }
    lg := opts.Logger
    if lg == nil { lg = zap.L() }
    if opts.Name != "" { lg = lg.With(zap.String("stream", opts.Name)) }
    return &Server{opts: opts, log: lg}
}

// OnClientConnected registers an observer for the Listening → Connected transition.
func (s *Server) OnClientConnected(o transport.Observer) {
    s.mu.Lock(); s.onConnect = append(s.onConnect, o); s.mu.Unlock()
}

// OnClientDisconnected registers an observer for leaving Connected.
func (s *Server) OnClientDisconnected(o transport.Observer) {
    s.mu.Lock(); s.onDisconnect = append(s.onDisconnect, o); s.mu.Unlock()
}

// Listen binds address and starts accepting. Calling it while already
// listening is a no-op.
func (s *Server) Listen(address string) error {
    s.mu.Lock(); defer s.mu.Unlock()
    if s.ln != nil { return nil }
    ln, err := net.Listen("tcp", address)
    if err != nil { return &transport.BindError{Addr: address, Err: err} }
    s.ln = ln
    s.events = newDispatcher()
    s.acceptDone = make(chan struct{})
    s.state.Store(int32(transport.StateListening))
    go s.acceptLoop(ln, s.acceptDone)
    s.log.Info("listening", zap.String("addr", ln.Addr().String()))
    return nil
}

// Addr returns the bound address, or nil when not listening.
func (s *Server) Addr() net.Addr {
    s.mu.Lock(); defer s.mu.Unlock()
    if s.ln == nil { return nil }
    return s.ln.Addr()
}

func (s *Server) State() transport.State { return transport.State(s.state.Load()) }

func (s *Server) IsClientConnected() bool { return s.State() == transport.StateConnected }

func (s *Server) Stats() transport.Stats {
    st := transport.Stats{
        Accepted:       s.accepted.Load(),
        Refused:        s.refused.Load(),
        FramesSent:     s.framesOut.Load(),
        BytesSent:      s.bytesOut.Load(),
        FramesReceived: s.framesIn.Load(),
        BytesReceived:  s.bytesIn.Load(),
    }
    if ns := s.lastSeen.Load(); ns != 0 { st.LastActivity = time.Unix(0, ns) }
    return st
}

func (s *Server) acceptLoop(ln net.Listener, done chan struct{}) {
    defer close(done)
    for {
        c, err := ln.Accept()
        if err != nil {
            var ne net.Error
            if errors.As(err, &ne) && ne.Timeout() { continue }
            if !errors.Is(err, net.ErrClosed) { s.log.Warn("accept failed", zap.Error(err)) }
            return
        }
        s.attach(c)
    }
}

func (s *Server) attach(c net.Conn) {
    s.mu.Lock()
    if s.active != nil || s.ln == nil {
        s.mu.Unlock()
        s.refused.Add(1)
        s.log.Info("refusing client, stream busy", zap.String("remote", c.RemoteAddr().String()))
        _ = c.Close()
        return
    }
    cc := &conn{
        info: transport.ConnInfo{ID: uuid.NewString(), RemoteAddr: c.RemoteAddr().String(), EstablishedAt: time.Now()},
        c:    c,
        br:   bufio.NewReader(c),
        bw:   bufio.NewWriter(c),
    }
    s.active = cc
    s.state.Store(int32(transport.StateConnected))
    s.accepted.Add(1)
    obs := append([]transport.Observer(nil), s.onConnect...)
    s.events.post(func() { for _, o := range obs { o(cc.info) } })
    s.mu.Unlock()

    s.log.Info("client connected", zap.String("conn", cc.info.ID), zap.String("remote", cc.info.RemoteAddr))
    if s.opts.SendOnly { go s.drainInbound(cc) }
}

// drainInbound discards client bytes until the connection fails.
func (s *Server) drainInbound(cc *conn) {
    _, err := io.Copy(io.Discard, cc.br)
    if err == nil { err = io.EOF }
    s.drop(cc, err)
}

func (s *Server) current() *conn {
    s.mu.Lock(); defer s.mu.Unlock()
    return s.active
}

// drop closes cc and, the first time only, leaves Connected and notifies observers.
func (s *Server) drop(cc *conn, cause error) {
    cc.once.Do(func() {
        _ = cc.c.Close()
        s.mu.Lock()
        if s.active == cc {
            s.active = nil
            if s.ln != nil {
                s.state.Store(int32(transport.StateListening))
            } else {
                s.state.Store(int32(transport.StateIdle))
            }
        }
        obs := append([]transport.Observer(nil), s.onDisconnect...)
        s.events.post(func() { for _, o := range obs { o(cc.info) } })
        s.mu.Unlock()
        s.log.Info("client disconnected", zap.String("conn", cc.info.ID), zap.NamedError("cause", cause))
    })
}

// sendLimit bounds outbound payloads; zero means protocol.MaxFramePayload.
var sendLimit int64

// Send writes one frame to the attached client. At most one Send is in
// flight per connection; concurrent callers are serialised.
func (s *Server) Send(payload []byte, ts int64) error {
    cc := s.current()
    if cc == nil { return transport.ErrNotConnected }
    if err := protocol.CheckPayloadLen(int64(len(payload)), sendLimit); err != nil {
        return &transport.TransportError{Op: "send", Conn: cc.info.ID, Err: err}
    }
    cc.wmu.Lock()
    defer cc.wmu.Unlock()
    if s.opts.WriteTimeout > 0 { _ = cc.c.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)) }
    var hdr [protocol.HeaderSize]byte
    protocol.PutHeader(hdr[:], len(payload), ts)
    _, err := cc.bw.Write(hdr[:])
    if err == nil { _, err = cc.bw.Write(payload) }
    if err == nil { err = cc.bw.Flush() }
    if err != nil {
        s.drop(cc, err)
        return &transport.TransportError{Op: "send", Conn: cc.info.ID, Err: err}
    }
    s.framesOut.Add(1)
    s.bytesOut.Add(uint64(protocol.HeaderSize + len(payload)))
    s.lastSeen.Store(time.Now().UnixNano())
    return nil
}

// Receive blocks until the attached client delivers one full frame.
// Malformed headers surface as *protocol.ProtocolError wrapped in a
// *transport.TransportError, and the connection is dropped.
func (s *Server) Receive() (protocol.Frame, error) {
    if s.opts.SendOnly { return protocol.Frame{}, errors.New("transport: receive on send-only server") }
    cc := s.current()
    if cc == nil { return protocol.Frame{}, transport.ErrNotConnected }
    cc.rmu.Lock()
    defer cc.rmu.Unlock()
    f, err := protocol.ReadFrame(cc.br, s.opts.MaxPayload)
    if err != nil {
        s.drop(cc, err)
        return protocol.Frame{}, &transport.TransportError{Op: "receive", Conn: cc.info.ID, Err: err}
    }
    s.framesIn.Add(1)
    s.bytesIn.Add(uint64(f.Size()))
    s.lastSeen.Store(time.Now().UnixNano())
    return f, nil
}

// StopListening closes the listener and the active connection, then waits
// until every pending observer has run. It is idempotent and must not be
// called from inside an observer.
func (s *Server) StopListening() error {
    s.mu.Lock()
    ln, cc, ev, done := s.ln, s.active, s.events, s.acceptDone
    s.ln = nil
    s.mu.Unlock()
    if ln == nil { return nil }

    err := ln.Close()
    <-done
    if cc != nil { s.drop(cc, transport.ErrClosed) }
    s.state.Store(int32(transport.StateIdle))
    ev.close()
    s.log.Info("stopped listening")
    if errors.Is(err, net.ErrClosed) { err = nil }
    return err
}
