package endpoint

import (
    "context"
    "errors"
    "net"
    "sync"

    "go.uber.org/zap"

    "sensorstream/pkg/pipeline"
    "sensorstream/pkg/protocol"
    "sensorstream/pkg/transport"
    "sensorstream/pkg/transport/tcp"
)

// BuildFunc produces a calibration payload and its timestamp. Returning
// pipeline.ErrSkip means calibration is not known yet; nothing is sent.
type BuildFunc func() ([]byte, int64, error)

// Calibration sends one frame to every client right after it connects.
type Calibration struct {
    kind  protocol.StreamKind
    opts  Options
    log   *zap.Logger
    build BuildFunc

    mu      sync.Mutex
    running bool
    srv     *tcp.Server
}

func NewCalibration(kind protocol.StreamKind, build BuildFunc, opts Options) *Calibration {
    return &Calibration{kind: kind, opts: opts, log: opts.logger(kind), build: build}
}

func (c *Calibration) Kind() protocol.StreamKind { return c.kind }

func (c *Calibration) Start(context.Context) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.running { return nil }
    srv := c.opts.server(c.kind, true)
    srv.OnClientConnected(func(ci transport.ConnInfo) { c.sendCalibration(srv, ci) })
    if err := srv.Listen(c.opts.address(c.kind)); err != nil { return err }
    c.srv, c.running = srv, true
    return nil
}

func (c *Calibration) sendCalibration(srv *tcp.Server, ci transport.ConnInfo) {
    payload, ts, err := c.build()
    if err != nil {
        if errors.Is(err, pipeline.ErrSkip) {
            c.log.Info("calibration not available yet", zap.String("conn", ci.ID))
        } else {
            c.log.Warn("calibration failed", zap.String("conn", ci.ID), zap.Error(err))
        }
        return
    }
    if err := srv.Send(payload, ts); err != nil {
        c.log.Warn("calibration send failed", zap.String("conn", ci.ID), zap.Error(err))
        return
    }
    c.log.Info("calibration sent", zap.String("conn", ci.ID), zap.Int("bytes", len(payload)))
}

func (c *Calibration) Stop() {
    c.mu.Lock()
    srv := c.srv
    if !c.running {
        c.mu.Unlock()
        return
    }
    c.running = false
    c.mu.Unlock()
    _ = srv.StopListening()
    c.log.Info("calibration stopped", c.Status().Fields()...)
}

func (c *Calibration) Addr() net.Addr {
    c.mu.Lock(); defer c.mu.Unlock()
    if c.srv == nil { return nil }
    return c.srv.Addr()
}

func (c *Calibration) Status() Status {
    c.mu.Lock(); srv := c.srv; c.mu.Unlock()
    st := Status{Kind: c.kind}
    if srv != nil { st.Addr, st.State, st.Transport = addrString(srv.Addr()), srv.State(), srv.Stats() }
    return st
}
