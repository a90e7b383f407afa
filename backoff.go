package sio

import (
	"math"
	"math/rand"
	"time"

	"github.com/karagenc/sio-client-go/internal/sync"
)

type backoff struct {
	mu sync.Mutex

	min    time.Duration
	max    time.Duration
	factor float64
	jitter float64

	numAttempts uint32
}

func newBackoff(min time.Duration, max time.Duration, jitter float32) *backoff {
	b := &backoff{
		min:    min,
		max:    max,
		factor: 2,
	}
	b.setJitter(jitter)
	return b
}

func (b *backoff) attempts() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.numAttempts
}

// duration returns the delay before the next attempt and
// increments the attempt counter.
func (b *backoff) duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	ms := float64(b.min) * math.Pow(b.factor, float64(b.numAttempts))
	if b.numAttempts < math.MaxUint32 {
		b.numAttempts++
	}
	if math.IsInf(ms, 0) || ms > float64(b.max) {
		ms = float64(b.max)
	}

	if b.jitter > 0 {
		r := rand.Float64()
		deviation := math.Floor(r * b.jitter * ms)
		if int64(math.Floor(r*10))&1 == 0 {
			ms -= deviation
		} else {
			ms += deviation
		}
	}

	if ms < float64(b.min) {
		ms = float64(b.min)
	}
	if ms > float64(b.max) {
		ms = float64(b.max)
	}
	return time.Duration(ms)
}

func (b *backoff) reset() {
	b.mu.Lock()
	b.numAttempts = 0
	b.mu.Unlock()
}

func (b *backoff) setMin(min time.Duration) {
	b.mu.Lock()
	b.min = min
	b.mu.Unlock()
}

func (b *backoff) setMax(max time.Duration) {
	b.mu.Lock()
	b.max = max
	b.mu.Unlock()
}

// Jitter outside of (0, 1] disables randomization.
func (b *backoff) setJitter(jitter float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if jitter <= 0 || jitter > 1 {
		jitter = 0
	}
	b.jitter = float64(jitter)
}
