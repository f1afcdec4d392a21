// Package latest provides a single-slot "latest value wins" buffer shared by
// one producer and one consumer.
//
// Publish always overwrites and never waits on the consumer. The consumer
// polls with a watermark (the timestamp it last handled) and only sees a
// sample whose timestamp is strictly greater. Samples that are overwritten
// before anyone consumes them are dropped and counted.
package latest

import (
    "math"
    "sync"
    "time"
)

// NoWatermark is the watermark of a consumer that has seen nothing yet.
const NoWatermark int64 = math.MinInt64

// Sample is one published value with its stream timestamp.
type Sample[T any] struct {
    Value       T
    Timestamp   int64
    PublishedAt time.Time
}

// Stats counts buffer activity since creation.
type Stats struct {
    Published     uint64
    Consumed      uint64
    Overwritten   uint64 // published but replaced before any consumer took it
    LastTimestamp int64
    Empty         bool
}

// Buffer holds zero or one Sample. The zero value is not usable; call New.
type Buffer[T any] struct {
    mu      sync.Mutex
    cur     Sample[T]
    has     bool
    pending bool // cur not yet handed to a consumer

    published   uint64
    consumed    uint64
    overwritten uint64
}

func New[T any]() *Buffer[T] { return &Buffer[T]{} }

// Publish replaces the held sample unconditionally. The value must not be
// mutated by the producer afterwards.
func (b *Buffer[T]) Publish(v T, ts int64) {
    now := time.Now()
    b.mu.Lock()
    if b.pending { b.overwritten++ }
    b.cur = Sample[T]{Value: v, Timestamp: ts, PublishedAt: now}
    b.has, b.pending = true, true
    b.published++
    b.mu.Unlock()
}

// TryConsumeIfNewer returns the held sample when its timestamp is strictly
// greater than lastSeen. It never blocks beyond the buffer lock.
func (b *Buffer[T]) TryConsumeIfNewer(lastSeen int64) (Sample[T], bool) {
    b.mu.Lock()
    defer b.mu.Unlock()
    if !b.has || b.cur.Timestamp <= lastSeen { return Sample[T]{}, false }
    b.pending = false
    b.consumed++
    return b.cur, true
}

// Peek returns the held sample without consuming it.
func (b *Buffer[T]) Peek() (Sample[T], bool) {
    b.mu.Lock()
    defer b.mu.Unlock()
    return b.cur, b.has
}

func (b *Buffer[T]) Stats() Stats {
    b.mu.Lock()
    defer b.mu.Unlock()
    st := Stats{Published: b.published, Consumed: b.consumed, Overwritten: b.overwritten, Empty: !b.has}
    if b.has { st.LastTimestamp = b.cur.Timestamp }
    return st
}
