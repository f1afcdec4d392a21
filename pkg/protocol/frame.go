package protocol

import (
    "encoding/binary"
    "io"
    "math"
)

// Frame layout on the wire. All integers are little-endian.
//
//  0 ..3   TotalLength u32  (payload length + 8)
//  4 ..11  Timestamp   i64  (stream-defined ticks)
//  12..    Payload     TotalLength-8 bytes
const (
    lengthSize    = 4
    timestampSize = 8
    // HeaderSize is the number of bytes preceding the payload.
    HeaderSize = lengthSize + timestampSize
    // DefaultMaxPayload bounds inbound allocations when no limit is configured.
    DefaultMaxPayload = 64 << 20
    // MaxFramePayload is the largest payload the u32 length field can describe.
    MaxFramePayload = math.MaxUint32 - timestampSize
)

// Frame is one timestamped unit of the wire protocol.
type Frame struct {
    Timestamp int64
    Payload   []byte
}

// Size returns the encoded size of the frame including the header.
func (f *Frame) Size() int { return HeaderSize + len(f.Payload) }

// CheckPayloadLen reports whether a payload of n bytes may be framed. limit
// lowers the bound; zero or anything larger means MaxFramePayload.
func CheckPayloadLen(n, limit int64) error {
    if limit <= 0 || limit > MaxFramePayload { limit = MaxFramePayload }
    if n < 0 || n > limit {
        return &ProtocolError{Length: uint32(n + timestampSize), Reason: "payload too large for length field"}
    }
    return nil
}

// PutHeader writes the 12-byte frame header for a payload of n bytes into b.
// Callers check n with CheckPayloadLen first.
func PutHeader(b []byte, n int, ts int64) {
    binary.LittleEndian.PutUint32(b[0:4], uint32(n+timestampSize))
    binary.LittleEndian.PutUint64(b[4:12], uint64(ts))
}

// AppendFrame appends the encoded frame to dst and returns the extended slice.
func AppendFrame(dst []byte, ts int64, payload []byte) []byte {
    var hdr [HeaderSize]byte
    PutHeader(hdr[:], len(payload), ts)
    dst = append(dst, hdr[:]...)
    return append(dst, payload...)
}

// EncodeFrame returns header+payload as a single byte slice.
func (f *Frame) EncodeFrame() []byte {
    return AppendFrame(make([]byte, 0, f.Size()), f.Timestamp, f.Payload)
}

// DecodeFrame parses a single frame from buf and returns the number of bytes consumed.
// The payload is copied out of buf.
func (f *Frame) DecodeFrame(buf []byte, maxPayload int) (int, error) {
    if len(buf) < HeaderSize {
        return 0, io.ErrUnexpectedEOF
    }
    n, err := payloadLen(binary.LittleEndian.Uint32(buf[0:4]), maxPayload)
    if err != nil { return 0, err }
    if HeaderSize+n > len(buf) {
        return 0, io.ErrUnexpectedEOF
    }
    f.Timestamp = int64(binary.LittleEndian.Uint64(buf[4:12]))
    f.Payload = append(f.Payload[:0:0], buf[HeaderSize:HeaderSize+n]...)
    return HeaderSize + n, nil
}

// WriteTo writes the frame to w as a single Write call.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
    n, err := w.Write(f.EncodeFrame())
    return int64(n), err
}

// ReadFrame reads exactly one frame from r. The payload buffer is allocated
// with exactly TotalLength-8 bytes after the length has been validated.
func ReadFrame(r io.Reader, maxPayload int) (Frame, error) {
    var lenbuf [lengthSize]byte
    if _, err := io.ReadFull(r, lenbuf[:]); err != nil { return Frame{}, err }
    n, err := payloadLen(binary.LittleEndian.Uint32(lenbuf[:]), maxPayload)
    if err != nil { return Frame{}, err }
    var tsbuf [timestampSize]byte
    if _, err := io.ReadFull(r, tsbuf[:]); err != nil { return Frame{}, unexpected(err) }
    f := Frame{Timestamp: int64(binary.LittleEndian.Uint64(tsbuf[:])), Payload: make([]byte, n)}
    if _, err := io.ReadFull(r, f.Payload); err != nil { return Frame{}, unexpected(err) }
    return f, nil
}

func payloadLen(total uint32, maxPayload int) (int, error) {
    if total < timestampSize {
        return 0, &ProtocolError{Length: total, Reason: "length shorter than timestamp"}
    }
    if maxPayload <= 0 { maxPayload = DefaultMaxPayload }
    n := int64(total) - timestampSize
    if n > int64(maxPayload) {
        return 0, &ProtocolError{Length: total, Reason: "payload exceeds limit"}
    }
    return int(n), nil
}

// A clean EOF in the middle of a frame is a truncated frame, not a clean close.
func unexpected(err error) error {
    if err == io.EOF { return io.ErrUnexpectedEOF }
    return err
}
