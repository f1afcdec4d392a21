package sensors

import (
    "bytes"
    "context"
    "errors"
    "image"
    "image/jpeg"
    "testing"
    "time"

    "sensorstream/pkg/telemetry"
)

func TestRequireCamera(t *testing.T) {
    calls := 0
    src := SourceFunc[int](func(context.Context) (int, int64, error) { calls++; return 1, 1, nil })

    denied := RequireCamera[int]("depth", src, Consent{})
    _, _, err := denied.Next(context.Background())
    var ae *AcquisitionError
    if !errors.As(err, &ae) || !errors.Is(err, ErrAccessDenied) || ae.Source != "depth" {
        t.Fatalf("want access denied acquisition error, got %v", err)
    }
    if calls != 0 { t.Fatalf("denied source reached the device") }

    c, err := StaticRequester{Camera: true}.RequestAccess(context.Background())
    if err != nil { t.Fatalf("request: %v", err) }
    if v, _, err := RequireCamera[int]("depth", src, c).Next(context.Background()); err != nil || v != 1 {
        t.Fatalf("granted source = %v, %v", v, err)
    }
}

func TestSimulatedDepth(t *testing.T) {
    for _, mode := range []telemetry.DepthMode{telemetry.DepthLongThrow, telemetry.DepthAHAT} {
        sim := NewSimulator(SimOptions{DepthMode: mode, DepthWidth: 16, DepthHeight: 8})
        src := sim.Depth(200)
        f, ts1, err := src.Next(context.Background())
        if err != nil { t.Fatalf("next: %v", err) }
        if len(f.Depth) != 128 || f.Resolution.Pixels() != 128 { t.Fatalf("depth size = %d", len(f.Depth)) }
        if f.Valid(0) { t.Fatalf("%s: pixel 0 should be invalid", mode) }
        if !f.Valid(1) { t.Fatalf("%s: pixel 1 should be valid", mode) }
        _, ts2, err := src.Next(context.Background())
        if err != nil { t.Fatalf("next: %v", err) }
        if ts2 <= ts1 { t.Fatalf("timestamps not increasing: %d then %d", ts1, ts2) }
        if _, ok := sim.PoseAt(ts1); !ok { t.Fatalf("no pose for captured frame") }
    }
}

func TestSimulatorPoseBeforeStart(t *testing.T) {
    sim := NewSimulator(SimOptions{})
    if _, ok := sim.PoseAt(telemetry.TicksFromTime(time.Now().Add(-time.Hour))); ok {
        t.Fatalf("pose before device start should be unavailable")
    }
}

func TestSourceHonoursContext(t *testing.T) {
    sim := NewSimulator(SimOptions{})
    src := sim.Mesher(time.Hour)
    if _, _, err := src.Next(context.Background()); err != nil { t.Fatalf("first tick: %v", err) }
    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
    defer cancel()
    if _, _, err := src.Next(ctx); !errors.Is(err, context.DeadlineExceeded) { t.Fatalf("want deadline, got %v", err) }
}

func TestSpatialMapperTracksSurfaces(t *testing.T) {
    sim := NewSimulator(SimOptions{})
    m := NewSpatialMapper(sim.Mesher(time.Millisecond))
    var snap *telemetry.SpatialMap
    for i := 0; i < 4; i++ {
        var err error
        if snap, _, err = m.Next(context.Background()); err != nil { t.Fatalf("update %d: %v", i, err) }
        if snap.Len() != i+1 { t.Fatalf("after %d updates map holds %v", i+1, snap.IDs()) }
    }
    if snap.VertexCount() != 32 { t.Fatalf("vertices = %d", snap.VertexCount()) }
    // The second pass refreshes 0..2 and then reports surface-3 gone.
    for i := 0; i < 4; i++ {
        var err error
        if snap, _, err = m.Next(context.Background()); err != nil { t.Fatalf("update: %v", err) }
    }
    if snap.Len() != 3 || snap.Surfaces["surface-3"] != nil { t.Fatalf("surface-3 still mapped: %v", snap.IDs()) }

    again := m.Apply(SurfaceUpdate{ID: "extra", Mesh: &telemetry.Mesh{WorldTransform: telemetry.Identity()}})
    if again.Surfaces["extra"].ID != "extra" || snap.Len() != 3 { t.Fatalf("apply: %v / %v", again.IDs(), snap.IDs()) }
}

func TestJPEGEncoder(t *testing.T) {
    sim := NewSimulator(SimOptions{VideoWidth: 32, VideoHeight: 16})
    f, _, err := sim.Camera(100).Next(context.Background())
    if err != nil { t.Fatalf("camera: %v", err) }
    b, err := JPEGEncoder{Quality: 80}.Encode(f.Image)
    if err != nil { t.Fatalf("encode: %v", err) }
    cfg, err := jpeg.DecodeConfig(bytes.NewReader(b))
    if err != nil { t.Fatalf("decode: %v", err) }
    if cfg.Width != 32 || cfg.Height != 16 { t.Fatalf("decoded %dx%d", cfg.Width, cfg.Height) }
    if _, err := (JPEGEncoder{}).Encode(image.NewGray(image.Rect(0, 0, 4, 4))); err != nil { t.Fatalf("gray: %v", err) }
}

func TestRequireEyeTracking(t *testing.T) {
    sim := NewSimulator(SimOptions{})
    p, _, err := RequireEyeTracking(sim.Tracker(200), Consent{Camera: true}).Next(context.Background())
    if err != nil { t.Fatalf("next: %v", err) }
    if p.EyeDirection != (telemetry.Vector4{}) || p.EyeOrigin != (telemetry.Vector4{}) { t.Fatalf("eye gaze leaked without consent") }
    if p.HeadUp == (telemetry.Vector4{}) { t.Fatalf("head pose should pass through") }

    q, _, err := RequireEyeTracking(sim.Tracker(200), Consent{EyeTracking: true}).Next(context.Background())
    if err != nil || q.EyeDirection == (telemetry.Vector4{}) { t.Fatalf("granted eye gaze missing: %v", err) }
}
