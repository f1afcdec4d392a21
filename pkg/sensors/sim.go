package sensors

import (
    "context"
    "fmt"
    "image"
    "image/color"
    "math"
    "time"

    "sensorstream/pkg/telemetry"
)

// SimOptions sizes the simulated device.
type SimOptions struct {
    DepthMode   telemetry.DepthMode
    DepthWidth  int
    DepthHeight int
    VLCWidth    int
    VLCHeight   int
    VideoWidth  int
    VideoHeight int
}

// Simulator is a synthetic device: a head orbiting the origin with a depth
// camera, a visible-light camera, a colour camera, hand tracking and a
// spatial mapper. Each source it returns must be driven by one goroutine.
type Simulator struct {
    opts  SimOptions
    start time.Time
    clock telemetry.Clock
}

func NewSimulator(opts SimOptions) *Simulator {
    if opts.DepthWidth <= 0 { opts.DepthWidth = 320 }
    if opts.DepthHeight <= 0 { opts.DepthHeight = 288 }
    if opts.VLCWidth <= 0 { opts.VLCWidth = 640 }
    if opts.VLCHeight <= 0 { opts.VLCHeight = 480 }
    if opts.VideoWidth <= 0 { opts.VideoWidth = 640 }
    if opts.VideoHeight <= 0 { opts.VideoHeight = 360 }
    now := time.Now()
    return &Simulator{opts: opts, start: now, clock: telemetry.NewClock(now)}
}

// ticker paces a source; missed ticks are skipped rather than replayed.
type ticker struct {
    period time.Duration
    next   time.Time
}

func newTicker(fps float64) *ticker {
    if fps <= 0 { fps = 30 }
    return &ticker{period: time.Duration(float64(time.Second) / fps)}
}

func (t *ticker) wait(ctx context.Context) (time.Time, error) {
    now := time.Now()
    if t.next.IsZero() { t.next = now }
    if d := t.next.Sub(now); d > 0 {
        tm := time.NewTimer(d)
        select {
        case <-ctx.Done():
            tm.Stop()
            return time.Time{}, ctx.Err()
        case <-tm.C:
        }
    }
    at := t.next
    t.next = t.next.Add(t.period)
    if now := time.Now(); t.next.Before(now) { t.next = now.Add(t.period) }
    return at, nil
}

// PoseAt returns the simulated head (and rigidly attached camera) pose.
// Timestamps before the device started cannot be located.
func (s *Simulator) PoseAt(ts int64) (telemetry.Float4x4, bool) {
    rel := ts - s.clock.Absolute(0)
    if rel < 0 { return telemetry.Float4x4{}, false }
    secs := float64(rel) / telemetry.TicksPerSecond
    a := 0.5 * secs
    half := float32(a / 2)
    rot := telemetry.FromQuaternion(0, float32(math.Sin(float64(half))), 0, float32(math.Cos(float64(half))))
    return rot.Mul(telemetry.Translation(float32(math.Sin(a)), 1.6, float32(math.Cos(a)))), true
}

func (s *Simulator) frameTicks(at time.Time) int64 { return s.clock.Absolute(s.clock.Relative(at)) }

// Depth returns a depth camera source at fps.
func (s *Simulator) Depth(fps float64) Source[*telemetry.DepthFrame] {
    tk := newTicker(fps)
    w, h := s.opts.DepthWidth, s.opts.DepthHeight
    n := 0
    return SourceFunc[*telemetry.DepthFrame](func(ctx context.Context) (*telemetry.DepthFrame, int64, error) {
        at, err := tk.wait(ctx)
        if err != nil { return nil, 0, err }
        n++
        f := &telemetry.DepthFrame{
            Resolution: telemetry.Resolution{Width: uint32(w), Height: uint32(h), Stride: uint32(2 * w), BitsPerPixel: 16, BytesPerPixel: 2},
            Mode:       s.opts.DepthMode,
            Depth:      make([]uint16, w*h),
        }
        if f.Mode == telemetry.DepthLongThrow { f.Sigma = make([]byte, w*h) }
        for i := range f.Depth {
            x, y := i%w, i/w
            f.Depth[i] = uint16(500 + (x+y+n)%1000)
            if i%97 == 0 {
                if f.Mode == telemetry.DepthLongThrow {
                    f.Sigma[i] = telemetry.SigmaInvalidMask
                } else {
                    f.Depth[i] = telemetry.AHATInvalidValue + 5
                }
            }
        }
        return f, s.frameTicks(at), nil
    })
}

// VLC returns a visible-light camera source at fps.
func (s *Simulator) VLC(fps float64) Source[*telemetry.VLCFrame] {
    tk := newTicker(fps)
    w, h := s.opts.VLCWidth, s.opts.VLCHeight
    n := 0
    return SourceFunc[*telemetry.VLCFrame](func(ctx context.Context) (*telemetry.VLCFrame, int64, error) {
        at, err := tk.wait(ctx)
        if err != nil { return nil, 0, err }
        n++
        f := &telemetry.VLCFrame{
            Resolution: telemetry.Resolution{Width: uint32(w), Height: uint32(h), Stride: uint32(w), BitsPerPixel: 8, BytesPerPixel: 1},
            Image:      make([]byte, w*h),
        }
        for i := range f.Image { f.Image[i] = byte(i%w + n) }
        return f, s.frameTicks(at), nil
    })
}

// Camera returns a colour camera source at fps.
func (s *Simulator) Camera(fps float64) Source[CameraFrame] {
    tk := newTicker(fps)
    w, h := s.opts.VideoWidth, s.opts.VideoHeight
    n := 0
    return SourceFunc[CameraFrame](func(ctx context.Context) (CameraFrame, int64, error) {
        at, err := tk.wait(ctx)
        if err != nil { return CameraFrame{}, 0, err }
        n++
        img := image.NewRGBA(image.Rect(0, 0, w, h))
        for y := 0; y < h; y++ {
            for x := 0; x < w; x++ {
                img.SetRGBA(x, y, color.RGBA{R: uint8(x + n), G: uint8(y), B: uint8(n * 4), A: 0xff})
            }
        }
        return CameraFrame{Image: img}, s.frameTicks(at), nil
    })
}

// Tracker returns a head, eye and hand tracking source at fps. The right
// hand drops out of tracking every other second.
func (s *Simulator) Tracker(fps float64) Source[*telemetry.Pose] {
    tk := newTicker(fps)
    return SourceFunc[*telemetry.Pose](func(ctx context.Context) (*telemetry.Pose, int64, error) {
        at, err := tk.wait(ctx)
        if err != nil { return nil, 0, err }
        ts := s.frameTicks(at)
        head, ok := s.PoseAt(ts)
        if !ok { return nil, 0, ErrNotReady }
        p := &telemetry.Pose{
            HeadPosition: telemetry.Vector4{head[12], head[13], head[14], 1},
            HeadForward:  head.Apply(telemetry.Vector4{0, 0, -1, 0}),
            HeadUp:       head.Apply(telemetry.Vector4{0, 1, 0, 0}),
        }
        p.DeriveRight()
        p.EyeOrigin, p.EyeDirection = p.HeadPosition, p.HeadForward
        for j := range p.LeftHand {
            p.LeftHand[j] = telemetry.Translation(-0.2, -0.3+0.01*float32(j), -0.4).Mul(head)
        }
        if int(at.Sub(s.start).Seconds())%2 == 0 {
            for j := range p.RightHand {
                p.RightHand[j] = telemetry.Translation(0.2, -0.3+0.01*float32(j), -0.4).Mul(head)
            }
        }
        return p, ts, nil
    })
}

// Mesher returns a spatial mapper source that updates one of four
// surfaces every interval. surface-3 drops out of view on every other pass
// and is reported as removed.
func (s *Simulator) Mesher(interval time.Duration) Source[SurfaceUpdate] {
    if interval <= 0 { interval = time.Second }
    tk := &ticker{period: interval}
    n := 0
    return SourceFunc[SurfaceUpdate](func(ctx context.Context) (SurfaceUpdate, int64, error) {
        at, err := tk.wait(ctx)
        if err != nil { return SurfaceUpdate{}, 0, err }
        id, pass := n%4, n/4
        n++
        u := SurfaceUpdate{ID: fmt.Sprintf("surface-%d", id)}
        if id == 3 && pass%2 == 1 { return u, s.frameTicks(at), nil }
        side := float32(0.5 + 0.1*float32(n%5))
        u.Mesh = &telemetry.Mesh{
            ID:             u.ID,
            WorldTransform: telemetry.Translation(float32(id)*2-3, 0, -2),
        }
        for _, c := range [8][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1}} {
            u.Mesh.Vertices = append(u.Mesh.Vertices, [3]float32{c[0] * side, c[1] * side, c[2] * side})
        }
        return u, s.frameTicks(at), nil
    })
}

// Extrinsics is the camera pose relative to the device rig.
func (s *Simulator) Extrinsics() telemetry.Float4x4 { return telemetry.Translation(0, 0.02, -0.05) }

// DepthCalibration returns a pinhole lookup table for the depth camera.
func (s *Simulator) DepthCalibration() *telemetry.DepthCalibration {
    w, h := uint32(s.opts.DepthWidth), uint32(s.opts.DepthHeight)
    f := float32(w) / 2
    cx, cy := float32(w)/2, float32(h)/2
    lut := telemetry.BuildLUT(w, h, func(u, v float32) (float32, float32, bool) {
        return (u - cx) / f, (v - cy) / f, true
    })
    return &telemetry.DepthCalibration{Width: w, Height: h, LUT: lut, Extrinsics: s.Extrinsics()}
}

// VideoCalibration returns colour camera intrinsics.
func (s *Simulator) VideoCalibration() *telemetry.VideoCalibration {
    w, h := float32(s.opts.VideoWidth), float32(s.opts.VideoHeight)
    return &telemetry.VideoCalibration{
        Width:          uint32(s.opts.VideoWidth),
        Height:         uint32(s.opts.VideoHeight),
        FocalLength:    [2]float32{w * 0.9, w * 0.9},
        PrincipalPoint: [2]float32{w / 2, h / 2},
        Radial:         [3]float32{0.05, -0.01, 0},
        Tangential:     [2]float32{0.001, -0.001},
        Extrinsics:     s.Extrinsics(),
    }
}
