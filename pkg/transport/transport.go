package transport

import (
    "net"
    "time"

    "sensorstream/pkg/protocol"
)

// State is the connection state of a FrameServer.
type State int32

const (
    StateIdle State = iota
    StateListening
    StateConnected
)

func (s State) String() string {
    switch s {
    case StateIdle:
        return "idle"
    case StateListening:
        return "listening"
    case StateConnected:
        return "connected"
    default:
        return "unknown"
    }
}

// ConnInfo describes one accepted client connection.
type ConnInfo struct {
    ID            string // random per-connection id, used for log correlation
    RemoteAddr    string
    EstablishedAt time.Time
}

// Observer receives connection transitions. Observers run on a dedicated
// dispatch goroutine in transition order and may call Send or Receive.
type Observer func(ConnInfo)

// Stats is a snapshot of transport counters.
type Stats struct {
    Accepted       uint64 // clients that became the active connection
    Refused        uint64 // clients closed because another one was attached
    FramesSent     uint64
    BytesSent      uint64
    FramesReceived uint64
    BytesReceived  uint64
    LastActivity   time.Time
}

// FrameSender is the write side used by writer pipelines.
type FrameSender interface {
    // Send writes one frame to the attached client. Failures close the
    // connection and fire the disconnect observers before returning.
    Send(payload []byte, ts int64) error
    IsClientConnected() bool
}

// FrameReceiver is the read side used by inbound endpoints.
type FrameReceiver interface {
    // Receive blocks until one full frame arrives from the attached client.
    Receive() (protocol.Frame, error)
}

// FrameServer is a single-client listening frame endpoint.
type FrameServer interface {
    FrameSender
    FrameReceiver
    Listen(address string) error
    OnClientConnected(Observer)
    OnClientDisconnected(Observer)
    StopListening() error
    State() State
    Addr() net.Addr
    Stats() Stats
}
