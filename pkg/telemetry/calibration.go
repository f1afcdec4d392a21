package telemetry

import (
    "encoding/binary"
    "math"
)

// DepthCalibration maps every depth pixel to a unit ray in camera space.
type DepthCalibration struct {
    Width      uint32
    Height     uint32
    LUT        []float32 // Width*Height*3 entries: x, y, z per pixel
    Extrinsics Float4x4
}

// UnprojectFunc maps pixel centre (u, v) to a point on the camera's unit
// plane. ok is false for pixels outside the lens model.
type UnprojectFunc func(u, v float32) (x, y float32, ok bool)

// BuildLUT fills a calibration lookup table by unprojecting each pixel and
// normalising (x, y, 1) to unit length. Pixels that cannot be unprojected
// are left as zero.
func BuildLUT(width, height uint32, unproject UnprojectFunc) []float32 {
    lut := make([]float32, int(width)*int(height)*3)
    i := 0
    for v := uint32(0); v < height; v++ {
        for u := uint32(0); u < width; u++ {
            x, y, ok := unproject(float32(u)+0.5, float32(v)+0.5)
            if ok {
                n := float32(math.Sqrt(float64(x*x + y*y + 1)))
                lut[i], lut[i+1], lut[i+2] = x/n, y/n, 1/n
            }
            i += 3
        }
    }
    return lut
}

// AppendDepthCalibration appends [u32 w][u32 h][f32 lut...][extrinsics].
func AppendDepthCalibration(dst []byte, c *DepthCalibration) ([]byte, error) {
    if want := int(c.Width) * int(c.Height) * 3; len(c.LUT) != want {
        return dst, &PayloadError{Kind: "depth calibration lut", Got: len(c.LUT), Want: want}
    }
    dst = appendU32(dst, c.Width)
    dst = appendU32(dst, c.Height)
    for _, f := range c.LUT { dst = appendF32(dst, f) }
    return appendMatrix(dst, c.Extrinsics), nil
}

// DecodeDepthCalibration parses a depth calibration payload.
func DecodeDepthCalibration(b []byte) (DepthCalibration, error) {
    if len(b) < 8 { return DepthCalibration{}, &PayloadError{Kind: "depth calibration", Got: len(b), Want: 8 + MatrixSize} }
    c := DepthCalibration{Width: binary.LittleEndian.Uint32(b[0:]), Height: binary.LittleEndian.Uint32(b[4:])}
    n := int(c.Width) * int(c.Height) * 3
    if want := 8 + 4*n + MatrixSize; len(b) != want {
        return DepthCalibration{}, &PayloadError{Kind: "depth calibration", Got: len(b), Want: want}
    }
    c.LUT = make([]float32, n)
    for i := range c.LUT { c.LUT[i] = f32(b[8+4*i:]) }
    c.Extrinsics = readMatrix(b[8+4*n:])
    return c, nil
}

// VideoCalibrationSize is the encoded size of a VideoCalibration.
const VideoCalibrationSize = 8 + 4*9 + MatrixSize

// VideoCalibration holds the colour camera intrinsics and its pose relative
// to the device rig.
type VideoCalibration struct {
    Width          uint32
    Height         uint32
    FocalLength    [2]float32
    PrincipalPoint [2]float32
    Radial         [3]float32
    Tangential     [2]float32
    Extrinsics     Float4x4
}

// AppendVideoCalibration appends the fixed 108-byte calibration payload.
func AppendVideoCalibration(dst []byte, c *VideoCalibration) []byte {
    dst = appendU32(dst, c.Width)
    dst = appendU32(dst, c.Height)
    for _, f := range c.FocalLength { dst = appendF32(dst, f) }
    for _, f := range c.PrincipalPoint { dst = appendF32(dst, f) }
    for _, f := range c.Radial { dst = appendF32(dst, f) }
    for _, f := range c.Tangential { dst = appendF32(dst, f) }
    return appendMatrix(dst, c.Extrinsics)
}

// DecodeVideoCalibration parses a colour calibration payload.
func DecodeVideoCalibration(b []byte) (VideoCalibration, error) {
    if len(b) != VideoCalibrationSize {
        return VideoCalibration{}, &PayloadError{Kind: "video calibration", Got: len(b), Want: VideoCalibrationSize}
    }
    c := VideoCalibration{Width: binary.LittleEndian.Uint32(b[0:]), Height: binary.LittleEndian.Uint32(b[4:])}
    o := 8
    next := func() float32 { v := f32(b[o:]); o += 4; return v }
    for i := range c.FocalLength { c.FocalLength[i] = next() }
    for i := range c.PrincipalPoint { c.PrincipalPoint[i] = next() }
    for i := range c.Radial { c.Radial[i] = next() }
    for i := range c.Tangential { c.Tangential[i] = next() }
    c.Extrinsics = readMatrix(b[o:])
    return c, nil
}
