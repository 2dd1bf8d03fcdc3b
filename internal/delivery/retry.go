package delivery

import (
	"math"
	"time"
)

// RetryStrategy is exponential backoff over a bounded number of attempts.
type RetryStrategy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryStrategy returns the backoff used when none is configured.
func DefaultRetryStrategy(maxAttempts int) RetryStrategy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryStrategy{
		MaxAttempts:  maxAttempts,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
	}
}

// CalculateDelay returns min(initial * multiplier^(attempt-1), max).
func (rs RetryStrategy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := float64(rs.InitialDelay) * math.Pow(rs.Multiplier, float64(attempt-1))
	if d > float64(rs.MaxDelay) {
		d = float64(rs.MaxDelay)
	}
	return time.Duration(d)
}

// ShouldRetry reports whether another attempt is worthwhile after attempt
// finished with statusCode or err.
func (rs RetryStrategy) ShouldRetry(attempt int, statusCode int, err error) bool {
	if attempt >= rs.MaxAttempts {
		return false
	}
	if err != nil {
		return true
	}
	switch {
	case statusCode >= 500 && statusCode < 600:
		return true
	case statusCode == 429:
		return true
	case statusCode >= 400 && statusCode < 500:
		return false
	case statusCode >= 300:
		return true
	}
	return false
}
