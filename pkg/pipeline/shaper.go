package pipeline

import (
    "sync"
    "time"
)

// TokenBucket shapes a writer to a byte rate.
type TokenBucket struct {
    mu       sync.Mutex
    capacity int64
    tokens   int64
    rate     int64 // tokens per second
    last     time.Time
}

// NewTokenBucket returns a bucket that refills at ratePerSec up to capacity.
// A non-positive capacity defaults to one second worth of tokens.
func NewTokenBucket(ratePerSec, capacity int64) *TokenBucket {
    if capacity <= 0 { capacity = ratePerSec }
    return &TokenBucket{capacity: capacity, tokens: capacity, rate: ratePerSec, last: time.Now()}
}

// Reserve takes n tokens and returns how long the caller must wait before
// using them. The bucket may go into debt, so frames larger than the
// capacity are delayed rather than starved.
func (b *TokenBucket) Reserve(n int64) time.Duration {
    b.mu.Lock(); defer b.mu.Unlock()
    b.refill(time.Now())
    b.tokens -= n
    if b.tokens >= 0 { return 0 }
    return time.Duration((-b.tokens * int64(time.Second)) / b.rate)
}

func (b *TokenBucket) refill(now time.Time) {
    dt := now.Sub(b.last)
    if dt <= 0 { return }
    add := float64(b.rate) * dt.Seconds()
    if add < 1 { return }
    if room := float64(b.capacity - b.tokens); add >= room {
        b.tokens = b.capacity
    } else {
        b.tokens += int64(add)
    }
    b.last = now
}
