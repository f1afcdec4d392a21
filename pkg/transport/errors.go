package transport

import (
    "errors"
    "fmt"
)

var (
    // ErrNotConnected is returned by Send/Receive when no client is attached.
    ErrNotConnected = errors.New("transport: no client connected")
    // ErrClosed is returned after StopListening.
    ErrClosed = errors.New("transport: closed")
)

// BindError reports that a listening address could not be bound.
type BindError struct {
    Addr string
    Err  error
}

func (e *BindError) Error() string { return fmt.Sprintf("transport: bind %s: %v", e.Addr, e.Err) }
func (e *BindError) Unwrap() error { return e.Err }

// TransportError reports an I/O failure on the active connection. The
// connection is gone by the time the caller sees it, unless Err is a
// *protocol.ProtocolError for a payload that was refused before writing.
type TransportError struct {
    Op   string // "send" or "receive"
    Conn string
    Err  error
}

func (e *TransportError) Error() string {
    return fmt.Sprintf("transport: %s on conn %s: %v", e.Op, e.Conn, e.Err)
}
func (e *TransportError) Unwrap() error { return e.Err }
