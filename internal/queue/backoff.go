package queue

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffConfig controls the delay Worker waits before redelivering a
// job that came back with Retry. It does not bound how many times a
// job may be retried: that decision belongs to the MessageHandler
// (see internal/protocol, which owns MAX_RETRIES and returns Kill once
// it is exhausted), so the queue itself retries forever at a capped
// interval.
type BackoffConfig struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

type backoffCounter struct {
	BackoffConfig
}

func (bc *backoffCounter) next(attempt uint32) time.Duration {
	exp := float64(bc.InitialInterval) * math.Pow(bc.Multiplier, float64(attempt-1))
	if exp > float64(bc.MaxInterval) {
		exp = float64(bc.MaxInterval)
	}
	if bc.RandomizationFactor > 0 {
		delta := bc.RandomizationFactor * exp
		minExp := exp - delta
		maxExp := exp + delta
		exp = minExp + rand.Float64()*(maxExp-minExp)
	}
	return time.Duration(exp)
}
