package tcp

import (
    "bufio"
    "context"
    "net"
    "sync"
    "time"

    "sensorstream/pkg/protocol"
)

// Client is the consumer side of a frame stream.
type Client struct {
    c          net.Conn
    br         *bufio.Reader
    wmu        sync.Mutex
    maxPayload int
    stop       func() bool
}

// Dial connects to a frame server. maxPayload bounds inbound frames
// (protocol.DefaultMaxPayload when zero). The connection is closed when ctx ends.
func Dial(ctx context.Context, address string, maxPayload int) (*Client, error) {
    return DialTimeout(ctx, address, maxPayload, 0)
}

// DialTimeout is Dial with a bound on connection establishment only.
func DialTimeout(ctx context.Context, address string, maxPayload int, timeout time.Duration) (*Client, error) {
    d := &net.Dialer{Timeout: timeout}
    c, err := d.DialContext(ctx, "tcp", address)
    if err != nil { return nil, err }
    cl := &Client{c: c, br: bufio.NewReader(c), maxPayload: maxPayload}
    cl.stop = context.AfterFunc(ctx, func() { _ = c.Close() })
    return cl, nil
}

// Send writes one frame with a single Write call.
func (c *Client) Send(payload []byte, ts int64) error {
    if err := protocol.CheckPayloadLen(int64(len(payload)), 0); err != nil { return err }
    c.wmu.Lock(); defer c.wmu.Unlock()
    _, err := c.c.Write(protocol.AppendFrame(make([]byte, 0, protocol.HeaderSize+len(payload)), ts, payload))
    return err
}

// Receive reads the next frame; io.EOF means the server closed cleanly between frames.
func (c *Client) Receive() (protocol.Frame, error) { return protocol.ReadFrame(c.br, c.maxPayload) }

// SetReadDeadline bounds the next Receive.
func (c *Client) SetReadDeadline(t time.Time) error { return c.c.SetReadDeadline(t) }

func (c *Client) LocalAddr() net.Addr  { return c.c.LocalAddr() }
func (c *Client) RemoteAddr() net.Addr { return c.c.RemoteAddr() }

// Close closes the connection and releases the context watch.
func (c *Client) Close() error {
    c.stop()
    return c.c.Close()
}
