package sensors

import (
    "context"
    "errors"

    "sensorstream/pkg/telemetry"
)

// ErrAccessDenied is wrapped in the AcquisitionError of a source whose
// consent was not granted.
var ErrAccessDenied = errors.New("sensor access denied")

// Consent records which sensor groups the user allowed. It is obtained
// once at start-up and handed to each source that needs it.
type Consent struct {
    Camera      bool // research cameras and colour video
    EyeTracking bool
}

// Requester asks the platform for sensor access.
type Requester interface {
    RequestAccess(ctx context.Context) (Consent, error)
}

// StaticRequester grants exactly the configured consent. It stands in for
// the platform prompt on hosts that have none.
type StaticRequester Consent

func (s StaticRequester) RequestAccess(context.Context) (Consent, error) { return Consent(s), nil }

// RequireCamera wraps src so that it fails with ErrAccessDenied unless
// camera access was granted.
func RequireCamera[T any](name string, src Source[T], c Consent) Source[T] {
    if c.Camera { return src }
    return SourceFunc[T](func(context.Context) (T, int64, error) {
        var zero T
        return zero, 0, &AcquisitionError{Source: name, Err: ErrAccessDenied}
    })
}

// RequireEyeTracking wraps a tracking source so that eye gaze is zeroed
// unless eye tracking was granted. Head and hand data pass through.
func RequireEyeTracking(src Source[*telemetry.Pose], c Consent) Source[*telemetry.Pose] {
    if c.EyeTracking { return src }
    return SourceFunc[*telemetry.Pose](func(ctx context.Context) (*telemetry.Pose, int64, error) {
        p, ts, err := src.Next(ctx)
        if err != nil || p == nil { return p, ts, err }
        q := *p
        q.EyeOrigin, q.EyeDirection = telemetry.Vector4{}, telemetry.Vector4{}
        return &q, ts, nil
    })
}
