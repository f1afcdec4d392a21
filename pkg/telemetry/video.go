package telemetry

import "encoding/binary"

// VideoHeaderSize precedes the compressed image in a video payload.
const VideoHeaderSize = 8 + MatrixSize

// VideoFrame is one compressed colour (or mixed-reality) frame.
type VideoFrame struct {
    Width  int32
    Height int32
    Pose   Float4x4 // camera to world; all zero when unknown
    Image  []byte   // compressed image bytes
}

// AppendVideo appends [i32 width][i32 height][pose][image].
func AppendVideo(dst []byte, f *VideoFrame) []byte {
    dst = appendU32(dst, uint32(f.Width))
    dst = appendU32(dst, uint32(f.Height))
    dst = appendMatrix(dst, f.Pose)
    return append(dst, f.Image...)
}

// DecodeVideo parses a video payload. The image aliases b.
func DecodeVideo(b []byte) (VideoFrame, error) {
    if len(b) < VideoHeaderSize { return VideoFrame{}, &PayloadError{Kind: "video", Got: len(b), Want: VideoHeaderSize} }
    return VideoFrame{
        Width:  int32(binary.LittleEndian.Uint32(b[0:])),
        Height: int32(binary.LittleEndian.Uint32(b[4:])),
        Pose:   readMatrix(b[8:]),
        Image:  b[VideoHeaderSize:],
    }, nil
}
