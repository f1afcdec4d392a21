package telemetry

import (
    "encoding/binary"
    "math"
)

const (
    VectorSize = 16
    MatrixSize = 64
)

// Vector4 is a homogeneous vector (x, y, z, w).
type Vector4 [4]float32

// Float4x4 is a row-major 4x4 matrix.
type Float4x4 [16]float32

// Identity returns the identity matrix.
func Identity() Float4x4 {
    return Float4x4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

// Translation returns a matrix translating by (x, y, z).
func Translation(x, y, z float32) Float4x4 {
    m := Identity()
    m[12], m[13], m[14] = x, y, z
    return m
}

// FromQuaternion returns the rotation matrix for the unit quaternion (x, y, z, w).
func FromQuaternion(x, y, z, w float32) Float4x4 {
    xx, yy, zz := x*x, y*y, z*z
    xy, xz, yz := x*y, x*z, y*z
    wx, wy, wz := w*x, w*y, w*z
    return Float4x4{
        1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy), 0,
        2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx), 0,
        2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy), 0,
        0, 0, 0, 1,
    }
}

// Mul returns m*n.
func (m Float4x4) Mul(n Float4x4) Float4x4 {
    var out Float4x4
    for r := 0; r < 4; r++ {
        for c := 0; c < 4; c++ {
            var s float32
            for k := 0; k < 4; k++ { s += m[r*4+k] * n[k*4+c] }
            out[r*4+c] = s
        }
    }
    return out
}

// Apply transforms the row vector v by m (v * m).
func (m Float4x4) Apply(v Vector4) Vector4 {
    var out Vector4
    for c := 0; c < 4; c++ {
        out[c] = v[0]*m[c] + v[1]*m[4+c] + v[2]*m[8+c] + v[3]*m[12+c]
    }
    return out
}

// Cross returns the 3-D cross product of a and b with w = 0.
func Cross(a, b Vector4) Vector4 {
    return Vector4{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0], 0}
}

func appendU32(dst []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(dst, v) }

func appendF32(dst []byte, v float32) []byte { return appendU32(dst, math.Float32bits(v)) }

func appendVector(dst []byte, v Vector4) []byte {
    for _, f := range v { dst = appendF32(dst, f) }
    return dst
}

func appendMatrix(dst []byte, m Float4x4) []byte {
    for _, f := range m { dst = appendF32(dst, f) }
    return dst
}

func f32(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }

func readVector(b []byte) Vector4 {
    var v Vector4
    for i := range v { v[i] = f32(b[i*4:]) }
    return v
}

func readMatrix(b []byte) Float4x4 {
    var m Float4x4
    for i := range m { m[i] = f32(b[i*4:]) }
    return m
}
