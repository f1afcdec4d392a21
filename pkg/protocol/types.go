package protocol

import (
    "fmt"
    "strings"
)

// StreamKind identifies one telemetry stream. Each kind owns a fixed TCP port.
type StreamKind int

const (
    StreamUnknown StreamKind = iota
    StreamVideo
    StreamVideoCalibration
    StreamDepth
    StreamDepthCalibration
    StreamPose
    StreamMesh
    StreamMixedReality
    StreamDebugText
    StreamLabels
)

// Kinds lists every known stream in port order.
var Kinds = []StreamKind{
    StreamVideo,
    StreamVideoCalibration,
    StreamDepth,
    StreamDepthCalibration,
    StreamPose,
    StreamMesh,
    StreamMixedReality,
    StreamDebugText,
    StreamLabels,
}

func (k StreamKind) String() string {
    switch k {
    case StreamVideo:
        return "video"
    case StreamVideoCalibration:
        return "video_calibration"
    case StreamDepth:
        return "depth"
    case StreamDepthCalibration:
        return "depth_calibration"
    case StreamPose:
        return "pose"
    case StreamMesh:
        return "mesh"
    case StreamMixedReality:
        return "mixed_reality"
    case StreamDebugText:
        return "debug_text"
    case StreamLabels:
        return "labels"
    default:
        return "unknown"
    }
}

// DefaultPort returns the port consumers expect for the stream. Zero for unknown kinds.
func (k StreamKind) DefaultPort() int {
    switch k {
    case StreamVideo:
        return 30000
    case StreamVideoCalibration:
        return 30001
    case StreamDepth:
        return 30002
    case StreamDepthCalibration:
        return 30003
    case StreamPose:
        return 30004
    case StreamMesh:
        return 30005
    case StreamMixedReality:
        return 30006
    case StreamDebugText:
        return 40000
    case StreamLabels:
        return 40001
    default:
        return 0
    }
}

// Inbound reports whether frames on this stream flow from the consumer to the device.
func (k StreamKind) Inbound() bool { return k == StreamDebugText || k == StreamLabels }

// ParseStreamKind maps a name (as printed by String, dashes allowed) to a kind.
func ParseStreamKind(s string) (StreamKind, error) {
    s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
    for _, k := range Kinds {
        if k.String() == s { return k, nil }
    }
    return StreamUnknown, fmt.Errorf("unknown stream kind: %q", s)
}
