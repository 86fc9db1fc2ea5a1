package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// ExponentialJitter returns base*2^(attempt-1), capped at max, with +/-20% jitter.
func ExponentialJitter(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	mul := math.Pow(2, float64(attempt-1))
	d := max
	if f := float64(base) * mul; f < float64(max) {
		d = time.Duration(f)
	}

	j := time.Duration(float64(d) * 0.2)
	if j <= 0 {
		return d
	}
	return d - j + time.Duration(rand.Int64N(int64(2*j)))
}

// Policy is a reusable retry delay configuration.
type Policy struct {
	Base time.Duration
	Max  time.Duration
}

var Default = Policy{Base: 500 * time.Millisecond, Max: 30 * time.Second}

func (p Policy) Delay(attempt int) time.Duration {
	if p.Base <= 0 || p.Max <= 0 {
		return Default.Delay(attempt)
	}
	return ExponentialJitter(p.Base, p.Max, attempt)
}
