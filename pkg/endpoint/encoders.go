package endpoint

import (
    "fmt"

    "sensorstream/pkg/pipeline"
    "sensorstream/pkg/sensors"
    "sensorstream/pkg/telemetry"
)

// DepthEncoder serializes depth frames located by poses. Frames whose pose
// cannot be resolved are skipped.
func DepthEncoder(poses sensors.PoseResolver) pipeline.EncodeFunc[*telemetry.DepthFrame] {
    return func(f *telemetry.DepthFrame, ts int64) ([]byte, error) {
        if poses == nil { return nil, pipeline.ErrSkip }
        pose, ok := poses.PoseAt(ts)
        if !ok { return nil, pipeline.ErrSkip }
        return telemetry.AppendDepth(make([]byte, 0, telemetry.DepthPayloadSize(len(f.Depth))), f, pose)
    }
}

// VLCEncoder serializes visible-light camera frames.
func VLCEncoder() pipeline.EncodeFunc[*telemetry.VLCFrame] {
    return func(f *telemetry.VLCFrame, _ int64) ([]byte, error) {
        return telemetry.AppendVLC(make([]byte, 0, telemetry.ResolutionSize+len(f.Image)), f), nil
    }
}

// VideoEncoder compresses colour frames with enc. The pose is zero when
// poses cannot locate the camera.
func VideoEncoder(enc sensors.ImageEncoder, poses sensors.PoseResolver) pipeline.EncodeFunc[sensors.CameraFrame] {
    return func(f sensors.CameraFrame, ts int64) ([]byte, error) {
        img, err := enc.Encode(f.Image)
        if err != nil { return nil, fmt.Errorf("encode image: %w", err) }
        b := f.Image.Bounds()
        vf := telemetry.VideoFrame{Width: int32(b.Dx()), Height: int32(b.Dy()), Image: img}
        if poses != nil {
            if p, ok := poses.PoseAt(ts); ok { vf.Pose = p }
        }
        return telemetry.AppendVideo(make([]byte, 0, telemetry.VideoHeaderSize+len(img)), &vf), nil
    }
}

// PoseEncoder serializes head, eye and hand samples.
func PoseEncoder() pipeline.EncodeFunc[*telemetry.Pose] {
    return func(p *telemetry.Pose, _ int64) ([]byte, error) {
        return telemetry.AppendPose(make([]byte, 0, telemetry.PoseSize), p), nil
    }
}

// MeshEncoder serializes the whole spatial map: every surface's vertices in
// world space, concatenated.
func MeshEncoder() pipeline.EncodeFunc[*telemetry.SpatialMap] {
    return func(m *telemetry.SpatialMap, _ int64) ([]byte, error) {
        return telemetry.AppendSpatialMap(make([]byte, 0, m.VertexCount()*telemetry.VectorSize), m), nil
    }
}
