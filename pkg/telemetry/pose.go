package telemetry

// HandJoints is the number of tracked joints per hand.
const HandJoints = 26

// PoseSize is the encoded size of a Pose: six vectors and two joint arrays.
const PoseSize = 6*VectorSize + 2*HandJoints*MatrixSize

// Pose is one head, eye gaze and hand tracking sample. Joints of an
// untracked hand are zero matrices.
type Pose struct {
    HeadPosition Vector4
    HeadForward  Vector4
    HeadUp       Vector4
    HeadRight    Vector4
    EyeOrigin    Vector4
    EyeDirection Vector4
    LeftHand     [HandJoints]Float4x4
    RightHand    [HandJoints]Float4x4
}

// DeriveRight sets HeadRight to up × -forward.
func (p *Pose) DeriveRight() {
    f := p.HeadForward
    p.HeadRight = Cross(p.HeadUp, Vector4{-f[0], -f[1], -f[2], 0})
}

// AppendPose appends the fixed-size pose payload.
func AppendPose(dst []byte, p *Pose) []byte {
    for _, v := range []Vector4{p.HeadPosition, p.HeadForward, p.HeadUp, p.HeadRight, p.EyeOrigin, p.EyeDirection} {
        dst = appendVector(dst, v)
    }
    for i := range p.LeftHand { dst = appendMatrix(dst, p.LeftHand[i]) }
    for i := range p.RightHand { dst = appendMatrix(dst, p.RightHand[i]) }
    return dst
}

// DecodePose parses a pose payload.
func DecodePose(b []byte) (Pose, error) {
    if len(b) != PoseSize { return Pose{}, &PayloadError{Kind: "pose", Got: len(b), Want: PoseSize} }
    var p Pose
    vs := []*Vector4{&p.HeadPosition, &p.HeadForward, &p.HeadUp, &p.HeadRight, &p.EyeOrigin, &p.EyeDirection}
    for i, v := range vs { *v = readVector(b[i*VectorSize:]) }
    o := 6 * VectorSize
    for i := range p.LeftHand { p.LeftHand[i] = readMatrix(b[o:]); o += MatrixSize }
    for i := range p.RightHand { p.RightHand[i] = readMatrix(b[o:]); o += MatrixSize }
    return p, nil
}
