// Package pipeline runs the two halves of a telemetry stream: a capture loop
// that publishes samples into a latest-value buffer, and a writer loop that
// drains that buffer to a connected client at its own pace.
package pipeline

import (
    "context"
    "errors"
    "sync/atomic"
    "time"

    "go.uber.org/zap"

    "sensorstream/pkg/latest"
    "sensorstream/pkg/sensors"
)

// AcquireFunc blocks until the next sample is available. Returning
// sensors.ErrNotReady asks the loop to retry; any other error ends it.
type AcquireFunc[T any] func(ctx context.Context) (T, int64, error)

// Capture publishes acquired samples into Buffer until its context ends or
// acquisition fails.
type Capture[T any] struct {
    Name       string
    Acquire    AcquireFunc[T]
    Buffer     *latest.Buffer[T]
    RetryDelay time.Duration // pause after ErrNotReady; 5ms when zero
    Log        *zap.Logger

    published  atomic.Uint64
    duplicates atomic.Uint64
}

// CaptureStats counts capture loop activity.
type CaptureStats struct {
    Published  uint64
    Duplicates uint64 // samples skipped because the device timestamp did not change
}

func (c *Capture[T]) Stats() CaptureStats {
    return CaptureStats{Published: c.published.Load(), Duplicates: c.duplicates.Load()}
}

// Run is the capture loop. It returns nil when ctx is cancelled and a
// *sensors.AcquisitionError when the source fails; the failure is terminal.
func (c *Capture[T]) Run(ctx context.Context) error {
    lg := c.logger()
    retry := c.RetryDelay
    if retry <= 0 { retry = 5 * time.Millisecond }
    prev, first := int64(0), true
    for ctx.Err() == nil {
        v, ts, err := c.Acquire(ctx)
        if err != nil {
            if ctx.Err() != nil { return nil }
            if errors.Is(err, sensors.ErrNotReady) {
                if !sleep(ctx, retry) { return nil }
                continue
            }
            var ae *sensors.AcquisitionError
            if !errors.As(err, &ae) { err = &sensors.AcquisitionError{Source: c.Name, Err: err} }
            lg.Error("capture stopped", zap.Error(err))
            return err
        }
        if !first && ts == prev {
            c.duplicates.Add(1)
            continue
        }
        prev, first = ts, false
        c.Buffer.Publish(v, ts)
        c.published.Add(1)
    }
    return nil
}

func (c *Capture[T]) logger() *zap.Logger {
    lg := c.Log
    if lg == nil { lg = zap.L() }
    return lg.With(zap.String("stream", c.Name))
}

// sleep waits for d or until ctx ends; it reports whether ctx is still alive.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
