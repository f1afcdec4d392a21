package telemetry

import (
    "encoding/binary"
    "fmt"
)

// ResolutionSize is the encoded size of a Resolution.
const ResolutionSize = 20

// Resolution describes a sensor image buffer.
type Resolution struct {
    Width         uint32
    Height        uint32
    Stride        uint32
    BitsPerPixel  uint32
    BytesPerPixel uint32
}

// Pixels returns Width*Height.
func (r Resolution) Pixels() int { return int(r.Width) * int(r.Height) }

func (r Resolution) append(dst []byte) []byte {
    dst = appendU32(dst, r.Width)
    dst = appendU32(dst, r.Height)
    dst = appendU32(dst, r.Stride)
    dst = appendU32(dst, r.BitsPerPixel)
    return appendU32(dst, r.BytesPerPixel)
}

func readResolution(b []byte) Resolution {
    le := binary.LittleEndian
    return Resolution{le.Uint32(b[0:]), le.Uint32(b[4:]), le.Uint32(b[8:]), le.Uint32(b[12:]), le.Uint32(b[16:])}
}

// DepthMode selects how invalid depth pixels are recognised.
type DepthMode int

const (
    // DepthLongThrow marks pixels invalid through the sigma buffer.
    DepthLongThrow DepthMode = iota
    // DepthAHAT marks pixels invalid by value.
    DepthAHAT
)

func (m DepthMode) String() string {
    if m == DepthAHAT { return "ahat" }
    return "long_throw"
}

// ParseDepthMode accepts "long_throw" or "ahat".
func ParseDepthMode(s string) (DepthMode, error) {
    switch s {
    case "", "long_throw", "long-throw", "longthrow":
        return DepthLongThrow, nil
    case "ahat":
        return DepthAHAT, nil
    }
    return DepthLongThrow, fmt.Errorf("unknown depth mode %q", s)
}

const (
    // SigmaInvalidMask flags an invalid long-throw pixel in its sigma byte.
    SigmaInvalidMask = 0x80
    // AHATInvalidValue and above are invalid AHAT depth readings.
    AHATInvalidValue = 4090
)

// DepthFrame is one raw depth capture.
type DepthFrame struct {
    Resolution Resolution
    Mode       DepthMode
    Depth      []uint16
    Sigma      []byte // long-throw only, one byte per depth pixel
}

// DepthPayloadSize returns the encoded size of a depth payload with n pixels.
func DepthPayloadSize(n int) int { return ResolutionSize + MatrixSize + 2*n }

// Valid reports whether pixel i carries a usable depth value.
func (f *DepthFrame) Valid(i int) bool {
    if f.Mode == DepthLongThrow {
        return i >= len(f.Sigma) || f.Sigma[i]&SigmaInvalidMask == 0
    }
    return f.Depth[i] < AHATInvalidValue
}

// AppendDepth appends the depth payload [resolution][pose][u16 depth...] to
// dst. Invalid pixels are written as zero; the frame itself is not modified.
func AppendDepth(dst []byte, f *DepthFrame, pose Float4x4) ([]byte, error) {
    if f.Mode == DepthLongThrow && len(f.Sigma) != 0 && len(f.Sigma) != len(f.Depth) {
        return dst, fmt.Errorf("telemetry: sigma buffer has %d entries for %d depth pixels", len(f.Sigma), len(f.Depth))
    }
    dst = f.Resolution.append(dst)
    dst = appendMatrix(dst, pose)
    for i, d := range f.Depth {
        if !f.Valid(i) { d = 0 }
        dst = binary.LittleEndian.AppendUint16(dst, d)
    }
    return dst, nil
}

// DepthImage is a decoded depth payload.
type DepthImage struct {
    Resolution Resolution
    Pose       Float4x4
    Depth      []uint16
}

// DecodeDepth parses a depth payload.
func DecodeDepth(b []byte) (DepthImage, error) {
    if len(b) < ResolutionSize+MatrixSize || (len(b)-ResolutionSize-MatrixSize)%2 != 0 {
        return DepthImage{}, &PayloadError{Kind: "depth", Got: len(b), Want: ResolutionSize + MatrixSize}
    }
    img := DepthImage{Resolution: readResolution(b), Pose: readMatrix(b[ResolutionSize:])}
    px := b[ResolutionSize+MatrixSize:]
    img.Depth = make([]uint16, len(px)/2)
    for i := range img.Depth { img.Depth[i] = binary.LittleEndian.Uint16(px[2*i:]) }
    return img, nil
}

// VLCFrame is one visible-light camera capture with 8 bits per pixel.
type VLCFrame struct {
    Resolution Resolution
    Image      []byte
}

// AppendVLC appends the payload [resolution][image bytes].
func AppendVLC(dst []byte, f *VLCFrame) []byte {
    dst = f.Resolution.append(dst)
    return append(dst, f.Image...)
}

// DecodeVLC parses a VLC payload. The image aliases b.
func DecodeVLC(b []byte) (VLCFrame, error) {
    if len(b) < ResolutionSize { return VLCFrame{}, &PayloadError{Kind: "vlc", Got: len(b), Want: ResolutionSize} }
    return VLCFrame{Resolution: readResolution(b), Image: b[ResolutionSize:]}, nil
}
