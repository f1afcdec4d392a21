package endpoint

import (
    "sync"

    "go.uber.org/zap"

    "sensorstream/pkg/protocol"
    "sensorstream/pkg/telemetry"
)

// DebugDisplay holds the debug text most recently sent by the client.
type DebugDisplay struct {
    mu   sync.Mutex
    text string
}

// Handle decodes a debug frame; frames of unsupported length are ignored.
func (d *DebugDisplay) Handle(f protocol.Frame) {
    v, ok := telemetry.DecodeDebug(f.Payload)
    if !ok {
        zap.L().Debug("ignoring debug frame", zap.Int("len", len(f.Payload)))
        return
    }
    d.mu.Lock(); d.text = v.String(); d.mu.Unlock()
}

func (d *DebugDisplay) Text() string {
    d.mu.Lock(); defer d.mu.Unlock()
    return d.text
}

// LabelBoard holds the object labels most recently sent by the client. An
// empty or malformed list leaves the current labels in place.
type LabelBoard struct {
    mu     sync.Mutex
    labels []telemetry.Label
}

func (b *LabelBoard) Handle(f protocol.Frame) {
    ls, err := telemetry.DecodeLabels(f.Payload)
    if err != nil {
        zap.L().Warn("dropping malformed labels frame", zap.Int("len", len(f.Payload)), zap.Error(err))
        return
    }
    if len(ls) == 0 { return }
    b.mu.Lock(); b.labels = ls; b.mu.Unlock()
}

// Labels returns a copy of the current labels.
func (b *LabelBoard) Labels() []telemetry.Label {
    b.mu.Lock(); defer b.mu.Unlock()
    return append([]telemetry.Label(nil), b.labels...)
}
