package main

import (
    "fmt"
    "time"

    "sensorstream/pkg/protocol"
    "sensorstream/pkg/telemetry"
)

// describe renders a one-line summary of a frame received on kind.
func describe(kind protocol.StreamKind, f protocol.Frame) string {
    at := telemetry.TimeFromTicks(f.Timestamp).UTC().Format(time.RFC3339Nano)
    return fmt.Sprintf("%s ts=%d (%s) %d bytes: %s", kind, f.Timestamp, at, len(f.Payload), summary(kind, f.Payload))
}

func summary(kind protocol.StreamKind, b []byte) string {
    switch kind {
    case protocol.StreamVideo, protocol.StreamMixedReality:
        v, err := telemetry.DecodeVideo(b)
        if err != nil { return err.Error() }
        return fmt.Sprintf("%dx%d image=%d bytes camera=(%.3f %.3f %.3f)", v.Width, v.Height, len(v.Image), v.Pose[12], v.Pose[13], v.Pose[14])
    case protocol.StreamVideoCalibration:
        c, err := telemetry.DecodeVideoCalibration(b)
        if err != nil { return err.Error() }
        return fmt.Sprintf("%dx%d focal=(%.1f %.1f) principal=(%.1f %.1f)", c.Width, c.Height, c.FocalLength[0], c.FocalLength[1], c.PrincipalPoint[0], c.PrincipalPoint[1])
    case protocol.StreamDepth:
        if img, err := telemetry.DecodeDepth(b); err == nil && len(img.Depth) == img.Resolution.Pixels() {
            valid := 0
            for _, d := range img.Depth {
                if d != 0 { valid++ }
            }
            return fmt.Sprintf("depth %dx%d valid=%d/%d", img.Resolution.Width, img.Resolution.Height, valid, len(img.Depth))
        }
        // The depth port carries visible-light frames when that camera is selected.
        v, err := telemetry.DecodeVLC(b)
        if err != nil { return err.Error() }
        return fmt.Sprintf("vlc %dx%d image=%d bytes", v.Resolution.Width, v.Resolution.Height, len(v.Image))
    case protocol.StreamDepthCalibration:
        c, err := telemetry.DecodeDepthCalibration(b)
        if err != nil { return err.Error() }
        return fmt.Sprintf("%dx%d lut=%d floats", c.Width, c.Height, len(c.LUT))
    case protocol.StreamPose:
        p, err := telemetry.DecodePose(b)
        if err != nil { return err.Error() }
        h, g := p.HeadPosition, p.EyeDirection
        return fmt.Sprintf("head=(%.3f %.3f %.3f) gaze=(%.3f %.3f %.3f)", h[0], h[1], h[2], g[0], g[1], g[2])
    case protocol.StreamMesh:
        vs, err := telemetry.DecodeMesh(b)
        if err != nil { return err.Error() }
        return fmt.Sprintf("%d vertices", len(vs))
    case protocol.StreamDebugText:
        v, ok := telemetry.DecodeDebug(b)
        if !ok { return "unrecognised debug payload" }
        return v.String()
    case protocol.StreamLabels:
        ls, err := telemetry.DecodeLabels(b)
        if err != nil { return err.Error() }
        names := make([]string, len(ls))
        for i, l := range ls { names[i] = l.Name }
        return fmt.Sprintf("%d labels %v", len(ls), names)
    }
    return "unknown stream"
}
