package live

import "time"

// Backoff computes reconnect delays as Base * 2^attempt, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

var DefaultBackoff = Backoff{Base: 500 * time.Millisecond, Max: 30 * time.Second}

func (b Backoff) Delay(attempt int) time.Duration {
	base, max := b.Base, b.Max
	if base <= 0 {
		base = DefaultBackoff.Base
	}
	if max <= 0 {
		max = DefaultBackoff.Max
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max || d <= 0 {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
