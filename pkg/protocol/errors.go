package protocol

import "fmt"

// ProtocolError reports a malformed frame header. Receivers treat it as a
// disconnect; the offending payload is never read.
type ProtocolError struct {
    Length uint32
    Reason string
}

func (e *ProtocolError) Error() string {
    return fmt.Sprintf("protocol: bad frame length %d: %s", e.Length, e.Reason)
}
