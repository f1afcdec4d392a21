package recorder

import (
    "context"
    "errors"
    "net"
    "testing"
    "time"

    "sensorstream/pkg/config"
    "sensorstream/pkg/protocol"
    "sensorstream/pkg/telemetry"
    "sensorstream/pkg/transport"
    "sensorstream/pkg/transport/tcp"
)

// testConfig binds every stream to an ephemeral loopback port.
func testConfig() *config.Config {
    cfg := config.Default()
    cfg.Net.BindHost = "127.0.0.1"
    cfg.Net.PollIntervalMS = 2
    cfg.Sensors.DepthWidth, cfg.Sensors.DepthHeight = 16, 8
    cfg.Sensors.VideoWidth, cfg.Sensors.VideoHeight = 32, 16
    cfg.Sensors.DepthFPS, cfg.Sensors.VideoFPS, cfg.Sensors.PoseFPS = 50, 50, 100
    cfg.Sensors.MeshIntervalMS = 20
    for name, s := range cfg.Streams {
        s.Port = -1
        cfg.Streams[name] = s
    }
    return cfg
}

func dialKind(t *testing.T, r *Recorder, kind protocol.StreamKind) *tcp.Client {
    t.Helper()
    ep := r.Endpoint(kind)
    if ep == nil { t.Fatalf("%s not running", kind) }
    c, err := tcp.Dial(context.Background(), ep.Addr().String(), 0)
    if err != nil { t.Fatalf("dial %s: %v", kind, err) }
    t.Cleanup(func() { _ = c.Close() })
    _ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
    return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
    t.Helper()
    deadline := time.Now().Add(5 * time.Second)
    for !cond() {
        if time.Now().After(deadline) { t.Fatalf("timed out waiting for %s", what) }
        time.Sleep(2 * time.Millisecond)
    }
}

func TestRecordingSession(t *testing.T) {
    cfg := testConfig()
    r := New(cfg, SimulatedDevices(cfg.Sensors))
    if err := r.StartRecording(context.Background()); err != nil { t.Fatalf("start: %v", err) }
    if err := r.StartRecording(context.Background()); err != nil { t.Fatalf("second start: %v", err) }
    defer r.StopRecording()
    if n := len(r.Status()); n != len(protocol.Kinds) { t.Fatalf("%d endpoints running", n) }

    depth := dialKind(t, r, protocol.StreamDepth)
    f, err := depth.Receive()
    if err != nil { t.Fatalf("depth: %v", err) }
    if len(f.Payload) != telemetry.DepthPayloadSize(16*8) { t.Fatalf("depth payload = %d", len(f.Payload)) }

    cal := dialKind(t, r, protocol.StreamDepthCalibration)
    f, err = cal.Receive()
    if err != nil { t.Fatalf("depth calibration: %v", err) }
    dc, err := telemetry.DecodeDepthCalibration(f.Payload)
    if err != nil || dc.Width != 16 || dc.Height != 8 { t.Fatalf("depth calibration = %dx%d %v", dc.Width, dc.Height, err) }

    vcal := dialKind(t, r, protocol.StreamVideoCalibration)
    if f, err = vcal.Receive(); err != nil || len(f.Payload) != telemetry.VideoCalibrationSize { t.Fatalf("video calibration: %v", err) }

    video := dialKind(t, r, protocol.StreamVideo)
    f, err = video.Receive()
    if err != nil { t.Fatalf("video: %v", err) }
    vf, err := telemetry.DecodeVideo(f.Payload)
    if err != nil || vf.Width != 32 || len(vf.Image) < 2 || vf.Image[0] != 0xff || vf.Image[1] != 0xd8 { t.Fatalf("video frame: %v", err) }

    pose := dialKind(t, r, protocol.StreamPose)
    if f, err = pose.Receive(); err != nil || len(f.Payload) != telemetry.PoseSize { t.Fatalf("pose: %v", err) }

    mesh := dialKind(t, r, protocol.StreamMesh)
    // Each simulated surface is a cube; the frame carries every surface mapped so far.
    if f, err = mesh.Receive(); err != nil || len(f.Payload) == 0 || len(f.Payload)%(8*telemetry.VectorSize) != 0 {
        t.Fatalf("mesh: %d bytes, %v", len(f.Payload), err)
    }

    labels := dialKind(t, r, protocol.StreamLabels)
    payload, _ := telemetry.AppendLabels(nil, []telemetry.Label{{Name: "Chair", Pose: telemetry.Identity()}})
    if err := labels.Send(payload, 1); err != nil { t.Fatalf("labels: %v", err) }
    waitFor(t, "labels", func() bool { return len(r.Labels()) == 1 })

    debug := dialKind(t, r, protocol.StreamDebugText)
    if err := debug.Send(telemetry.AppendDebugInt(nil, 7), 1); err != nil { t.Fatalf("debug: %v", err) }
    waitFor(t, "debug text", func() bool { return r.DebugText() == "7" })

    r.StopRecording()
    if r.Recording() || r.Endpoint(protocol.StreamDepth) != nil { t.Fatalf("recorder still running") }
    _ = depth.SetReadDeadline(time.Now().Add(5 * time.Second))
    for {
        _, err := depth.Receive()
        if err == nil { continue }
        var ne net.Error
        if errors.As(err, &ne) && ne.Timeout() { t.Fatalf("depth client still open after stop") }
        break
    }
}

func TestBindFailureIsolated(t *testing.T) {
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    if err != nil { t.Fatalf("listen: %v", err) }
    defer ln.Close()

    cfg := testConfig()
    cfg.Streams["mesh"] = config.StreamConfig{Enabled: true, Port: ln.Addr().(*net.TCPAddr).Port}
    cfg.Streams["video"] = config.StreamConfig{Enabled: false}
    r := New(cfg, SimulatedDevices(cfg.Sensors))
    err = r.StartRecording(context.Background())
    defer r.StopRecording()
    var be *transport.BindError
    if !errors.As(err, &be) { t.Fatalf("want BindError, got %v", err) }
    if r.Endpoint(protocol.StreamMesh) != nil || r.Endpoint(protocol.StreamVideo) != nil { t.Fatalf("failed or disabled stream registered") }
    if !r.Recording() || r.Endpoint(protocol.StreamPose) == nil { t.Fatalf("other streams should be running") }
}

func TestCameraConsentDenied(t *testing.T) {
    cfg := testConfig()
    cfg.Sensors.Consent.Camera = false
    r := New(cfg, SimulatedDevices(cfg.Sensors))
    if err := r.StartRecording(context.Background()); err != nil { t.Fatalf("start: %v", err) }
    defer r.StopRecording()

    depth := r.Endpoint(protocol.StreamDepth)
    waitFor(t, "depth capture failure", func() bool { return depth.Status().CaptureErr != nil })
    pose := dialKind(t, r, protocol.StreamPose)
    if _, err := pose.Receive(); err != nil { t.Fatalf("pose should still stream: %v", err) }
}

func TestVLCResearchCamera(t *testing.T) {
    cfg := testConfig()
    cfg.Sensors.ResearchCamera = "vlc"
    cfg.Sensors.VLCWidth, cfg.Sensors.VLCHeight = 8, 4
    r := New(cfg, SimulatedDevices(cfg.Sensors))
    if err := r.StartRecording(context.Background()); err != nil { t.Fatalf("start: %v", err) }
    defer r.StopRecording()

    c := dialKind(t, r, protocol.StreamDepth)
    f, err := c.Receive()
    if err != nil { t.Fatalf("receive: %v", err) }
    vlc, err := telemetry.DecodeVLC(f.Payload)
    if err != nil || vlc.Resolution.Width != 8 || len(vlc.Image) != 32 { t.Fatalf("vlc = %+v %v", vlc.Resolution, err) }

    cal := dialKind(t, r, protocol.StreamDepthCalibration)
    _ = cal.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
    if _, err := cal.Receive(); err == nil { t.Fatalf("depth calibration sent for a vlc camera") }
}
