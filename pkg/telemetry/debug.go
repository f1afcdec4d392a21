package telemetry

import (
    "encoding/binary"
    "fmt"
    "strconv"
)

// DebugValue is a decoded inbound debug text frame.
type DebugValue struct {
    IsVector bool
    Int      int32
    X, Y, Z  float32
}

// DecodeDebug accepts a 4-byte int32 or three float32. Frames of any other
// length are ignored and ok is false.
func DecodeDebug(b []byte) (v DebugValue, ok bool) {
    switch len(b) {
    case 4:
        return DebugValue{Int: int32(binary.LittleEndian.Uint32(b))}, true
    case 12:
        return DebugValue{IsVector: true, X: f32(b[0:]), Y: f32(b[4:]), Z: f32(b[8:])}, true
    }
    return DebugValue{}, false
}

// String renders the value the way it is shown on the device.
func (v DebugValue) String() string {
    if v.IsVector { return fmt.Sprintf("X:%f Y:%f Z:%f", v.X, v.Y, v.Z) }
    return strconv.Itoa(int(v.Int))
}

// AppendDebugInt appends a 4-byte debug payload.
func AppendDebugInt(dst []byte, i int32) []byte { return appendU32(dst, uint32(i)) }

// AppendDebugVector appends a 12-byte debug payload.
func AppendDebugVector(dst []byte, x, y, z float32) []byte {
    return appendF32(appendF32(appendF32(dst, x), y), z)
}
