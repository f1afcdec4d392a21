// Package sensors defines the acquisition side of the streamer: sources that
// block for the next sample, the pose and image collaborators used during
// serialization, the access consent value, and simulated devices.
package sensors

import (
    "context"
    "errors"
    "fmt"
    "image"

    "sensorstream/pkg/telemetry"
)

// ErrNotReady means no sample is available yet; callers should retry.
var ErrNotReady = errors.New("sensors: sample not ready")

// AcquisitionError is a terminal failure of a sensor source.
type AcquisitionError struct {
    Source string
    Err    error
}

func (e *AcquisitionError) Error() string { return fmt.Sprintf("sensors: %s: %v", e.Source, e.Err) }
func (e *AcquisitionError) Unwrap() error { return e.Err }

// Source produces samples with their device timestamps (absolute ticks).
// Next blocks until a sample is available or ctx ends.
type Source[T any] interface {
    Next(ctx context.Context) (T, int64, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context) (T, int64, error)

func (f SourceFunc[T]) Next(ctx context.Context) (T, int64, error) { return f(ctx) }

// PoseResolver locates the sensor in world space at a timestamp.
type PoseResolver interface {
    PoseAt(ts int64) (telemetry.Float4x4, bool)
}

// PoseResolverFunc adapts a function to PoseResolver.
type PoseResolverFunc func(ts int64) (telemetry.Float4x4, bool)

func (f PoseResolverFunc) PoseAt(ts int64) (telemetry.Float4x4, bool) { return f(ts) }

// ImageEncoder compresses a raw image.
type ImageEncoder interface {
    Encode(img image.Image) ([]byte, error)
}

// CameraFrame is one raw colour frame before compression.
type CameraFrame struct {
    Image image.Image
}
