// Package recorder starts and stops every configured telemetry stream as
// one unit.
package recorder

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "go.uber.org/zap"

    "sensorstream/pkg/config"
    "sensorstream/pkg/endpoint"
    "sensorstream/pkg/pipeline"
    "sensorstream/pkg/protocol"
    "sensorstream/pkg/sensors"
    "sensorstream/pkg/telemetry"
)

// Recorder owns the endpoints of one recording session.
type Recorder struct {
    cfg *config.Config
    dev Devices

    debug  endpoint.DebugDisplay
    labels endpoint.LabelBoard

    mu        sync.Mutex
    recording bool
    consent   sensors.Consent
    endpoints []endpoint.Endpoint
}

func New(cfg *config.Config, dev Devices) *Recorder { return &Recorder{cfg: cfg, dev: dev} }

// StartRecording requests sensor access, then binds and starts every
// enabled stream. Streams that fail to bind are reported together in the
// returned error while the others keep running. Starting twice is a no-op.
func (r *Recorder) StartRecording(ctx context.Context) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.recording { return nil }

    consent := sensors.Consent{Camera: true, EyeTracking: true}
    if r.dev.Consent != nil {
        c, err := r.dev.Consent.RequestAccess(ctx)
        if err != nil { return fmt.Errorf("request sensor access: %w", err) }
        consent = c
    }
    if !consent.Camera { zap.L().Warn("camera access denied; camera streams will not capture") }
    r.consent = consent

    var errs []error
    for _, ep := range r.build(consent) {
        if err := ep.Start(ctx); err != nil {
            zap.L().Error("stream failed to start", zap.String("stream", ep.Kind().String()), zap.Error(err))
            errs = append(errs, fmt.Errorf("%s: %w", ep.Kind(), err))
            continue
        }
        r.endpoints = append(r.endpoints, ep)
    }
    r.recording = len(r.endpoints) > 0
    zap.L().Info("recording started", zap.Int("streams", len(r.endpoints)), zap.Int("failed", len(errs)))
    return errors.Join(errs...)
}

// StopRecording stops every stream and waits for their workers.
func (r *Recorder) StopRecording() {
    r.mu.Lock()
    eps := r.endpoints
    r.endpoints, r.recording = nil, false
    r.mu.Unlock()

    var wg sync.WaitGroup
    for _, ep := range eps {
        wg.Add(1)
        go func(ep endpoint.Endpoint) { defer wg.Done(); ep.Stop() }(ep)
    }
    wg.Wait()
    if len(eps) > 0 { zap.L().Info("recording stopped", zap.Int("streams", len(eps))) }
}

func (r *Recorder) Recording() bool {
    r.mu.Lock(); defer r.mu.Unlock()
    return r.recording
}

// Endpoint returns the running endpoint for kind, or nil.
func (r *Recorder) Endpoint(kind protocol.StreamKind) endpoint.Endpoint {
    r.mu.Lock(); defer r.mu.Unlock()
    for _, ep := range r.endpoints {
        if ep.Kind() == kind { return ep }
    }
    return nil
}

// Status reports every running endpoint.
func (r *Recorder) Status() []endpoint.Status {
    r.mu.Lock()
    eps := append([]endpoint.Endpoint(nil), r.endpoints...)
    r.mu.Unlock()
    out := make([]endpoint.Status, 0, len(eps))
    for _, ep := range eps { out = append(out, ep.Status()) }
    return out
}

// DebugText is the text most recently received on the debug stream.
func (r *Recorder) DebugText() string { return r.debug.Text() }

// Labels are the object labels most recently received.
func (r *Recorder) Labels() []telemetry.Label { return r.labels.Labels() }

func (r *Recorder) options(kind protocol.StreamKind) endpoint.Options {
    return endpoint.Options{
        Host:         r.cfg.Net.BindHost,
        Port:         r.cfg.Port(kind),
        PollInterval: r.cfg.Net.PollInterval(),
        WriteTimeout: r.cfg.Net.WriteTimeout(),
        MaxPayload:   r.cfg.Net.MaxFrameBytes,
        RateLimit:    r.cfg.Stream(kind).RateLimit,
    }
}

// build creates an endpoint for every enabled stream.
func (r *Recorder) build(consent sensors.Consent) []endpoint.Endpoint {
    var eps []endpoint.Endpoint
    for _, kind := range protocol.Kinds {
        if !r.cfg.Stream(kind).Enabled { continue }
        if ep := r.endpointFor(kind, consent, eps); ep != nil { eps = append(eps, ep) }
    }
    return eps
}

func (r *Recorder) endpointFor(kind protocol.StreamKind, consent sensors.Consent, built []endpoint.Endpoint) endpoint.Endpoint {
    opts := r.options(kind)
    d := r.dev
    switch kind {
    case protocol.StreamVideo:
        return endpoint.NewStream(kind, cameraSource(kind, d.Camera, consent), endpoint.VideoEncoder(d.Images, d.Poses), opts)
    case protocol.StreamMixedReality:
        return endpoint.NewStream(kind, cameraSource(kind, d.MixedReality, consent), endpoint.VideoEncoder(d.Images, d.Poses), opts)
    case protocol.StreamVideoCalibration:
        return endpoint.NewCalibration(kind, r.videoCalibration, opts)
    case protocol.StreamDepth:
        if d.VLC != nil {
            return endpoint.NewStream(kind, cameraSource(kind, d.VLC, consent), endpoint.VLCEncoder(), opts)
        }
        return endpoint.NewStream(kind, cameraSource(kind, d.Depth, consent), endpoint.DepthEncoder(d.Poses), opts)
    case protocol.StreamDepthCalibration:
        var depth *endpoint.Stream[*telemetry.DepthFrame]
        for _, ep := range built {
            if s, ok := ep.(*endpoint.Stream[*telemetry.DepthFrame]); ok { depth = s }
        }
        return endpoint.NewCalibration(kind, r.depthCalibration(depth), opts)
    case protocol.StreamPose:
        var src sensors.Source[*telemetry.Pose]
        if d.Tracker != nil { src = sensors.RequireEyeTracking(d.Tracker, consent) }
        return endpoint.NewStream(kind, src, endpoint.PoseEncoder(), opts)
    case protocol.StreamMesh:
        return endpoint.NewStream(kind, d.Mesher, endpoint.MeshEncoder(), opts)
    case protocol.StreamDebugText:
        rc := endpoint.NewReceiver(kind, opts)
        rc.OnFrame(r.debug.Handle)
        return rc
    case protocol.StreamLabels:
        rc := endpoint.NewReceiver(kind, opts)
        rc.OnFrame(r.labels.Handle)
        return rc
    }
    return nil
}

// cameraSource gates src on camera consent; a nil source stays nil.
func cameraSource[T any](kind protocol.StreamKind, src sensors.Source[T], c sensors.Consent) sensors.Source[T] {
    if src == nil { return nil }
    return sensors.RequireCamera(kind.String(), src, c)
}

func (r *Recorder) videoCalibration() ([]byte, int64, error) {
    if r.dev.VideoCalibration == nil { return nil, 0, pipeline.ErrSkip }
    return telemetry.AppendVideoCalibration(nil, r.dev.VideoCalibration()), telemetry.TicksFromTime(time.Now()), nil
}

// depthCalibration describes the camera that produced the latest depth
// frame, stamped with that frame's timestamp.
func (r *Recorder) depthCalibration(depth *endpoint.Stream[*telemetry.DepthFrame]) endpoint.BuildFunc {
    return func() ([]byte, int64, error) {
        if depth == nil || r.dev.DepthCalibration == nil { return nil, 0, pipeline.ErrSkip }
        s, ok := depth.Buffer().Peek()
        if !ok { return nil, 0, pipeline.ErrSkip }
        cal := *r.dev.DepthCalibration()
        if cal.Width != s.Value.Resolution.Width || cal.Height != s.Value.Resolution.Height {
            return nil, 0, fmt.Errorf("calibration is %dx%d but frames are %dx%d",
                cal.Width, cal.Height, s.Value.Resolution.Width, s.Value.Resolution.Height)
        }
        b, err := telemetry.AppendDepthCalibration(nil, &cal)
        return b, s.Timestamp, err
    }
}
