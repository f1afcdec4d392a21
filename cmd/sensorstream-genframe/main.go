package main

import (
    "encoding/hex"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/spf13/pflag"

    "sensorstream/pkg/protocol"
    "sensorstream/pkg/telemetry"
)

func main() {
    outDir := pflag.StringP("out", "o", "testdata/frame", "output directory for binary frames")
    width := pflag.Uint32("depth-width", 8, "depth sample width")
    height := pflag.Uint32("depth-height", 4, "depth sample height")
    pflag.Parse()
    if err := os.MkdirAll(*outDir, 0o755); err != nil { log.Fatal(err) }

    // Fixed base time so regenerated files are identical.
    ts := telemetry.TicksFromTime(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

    // 1) Depth frame with every fourth pixel flagged invalid
    res := telemetry.Resolution{Width: *width, Height: *height, Stride: *width * 2, BitsPerPixel: 16, BytesPerPixel: 2}
    df := &telemetry.DepthFrame{Resolution: res, Mode: telemetry.DepthLongThrow, Depth: make([]uint16, res.Pixels()), Sigma: make([]uint8, res.Pixels())}
    for i := range df.Depth {
        df.Depth[i] = uint16(500 + 10*i)
        if i%4 == 3 { df.Sigma[i] = 0x80 }
    }
    depth, err := telemetry.AppendDepth(nil, df, telemetry.Translation(0, 1.6, 0))
    if err != nil { log.Fatal(err) }
    writeOut(*outDir, "frame_depth.bin", ts, depth)

    // 2) Pose with both hands untracked
    p := telemetry.Pose{
        HeadPosition: telemetry.Vector4{0, 1.6, 0, 1},
        HeadForward:  telemetry.Vector4{0, 0, -1, 0},
        HeadUp:       telemetry.Vector4{0, 1, 0, 0},
        EyeOrigin:    telemetry.Vector4{0, 1.6, 0, 1},
        EyeDirection: telemetry.Vector4{0, 0, -1, 0},
    }
    p.DeriveRight()
    writeOut(*outDir, "frame_pose.bin", ts+1, telemetry.AppendPose(nil, &p))

    // 3) Labels and the empty label list
    labels, err := telemetry.AppendLabels(nil, []telemetry.Label{
        {Name: "cup", Pose: telemetry.Translation(0.5, 1, -2)},
        {Name: "door", Pose: telemetry.Translation(0, 0, 3)},
    })
    if err != nil { log.Fatal(err) }
    writeOut(*outDir, "frame_labels.bin", ts+2, labels)
    empty, _ := telemetry.AppendLabels(nil, nil)
    writeOut(*outDir, "frame_labels_empty.bin", ts+3, empty)

    // 4) Debug values in both accepted sizes
    writeOut(*outDir, "frame_debug_int.bin", ts+4, telemetry.AppendDebugInt(nil, 42))
    writeOut(*outDir, "frame_debug_vector.bin", ts+5, telemetry.AppendDebugVector(nil, 1, 2, 3))

    fmt.Println("Generated sample frames in", *outDir)
}

func writeOut(dir, name string, ts int64, payload []byte) {
    f := protocol.Frame{Timestamp: ts, Payload: payload}
    b := f.EncodeFrame()
    p := filepath.Join(dir, name)
    if err := os.WriteFile(p, b, 0o644); err != nil { log.Fatal(err) }
    fmt.Printf("%-26s %6d bytes  head: %s\n", name, len(b), shortHex(b, 32))
}

func shortHex(b []byte, n int) string {
    if len(b) == 0 { return "" }
    if n > len(b) { n = len(b) }
    enc := hex.EncodeToString(b[:n])
    if len(b) > n { enc += "..." }
    var out []string
    for i := 0; i < len(enc); i += 4 {
        j := i + 4
        if j > len(enc) { j = len(enc) }
        out = append(out, enc[i:j])
    }
    return strings.Join(out, " ")
}
