package telemetry

import (
    "bytes"
    "errors"
    "fmt"
)

// Label is a named object placed in world space.
type Label struct {
    Name string
    Pose Float4x4
}

// AppendLabels appends repeated [name\0][matrix] records and the empty-name
// terminator. Names must not contain NUL or be empty.
func AppendLabels(dst []byte, labels []Label) ([]byte, error) {
    for _, l := range labels {
        if l.Name == "" || bytes.IndexByte([]byte(l.Name), 0) >= 0 {
            return dst, fmt.Errorf("telemetry: invalid label name %q", l.Name)
        }
        dst = append(dst, l.Name...)
        dst = append(dst, 0)
        dst = appendMatrix(dst, l.Pose)
    }
    return append(dst, 0), nil
}

var errTruncatedLabel = errors.New("telemetry: truncated label record")

// DecodeLabels parses a labels payload up to the empty-name terminator. A
// payload that ends without a terminator is accepted. An empty result means
// the sender published no labels.
func DecodeLabels(b []byte) ([]Label, error) {
    var out []Label
    for len(b) > 0 && b[0] != 0 {
        n := bytes.IndexByte(b, 0)
        if n < 0 || len(b) < n+1+MatrixSize { return out, errTruncatedLabel }
        out = append(out, Label{Name: string(b[:n]), Pose: readMatrix(b[n+1:])})
        b = b[n+1+MatrixSize:]
    }
    return out, nil
}
