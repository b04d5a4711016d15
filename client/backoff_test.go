package client

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoffDelay_firstAttemptIsInitial(t *testing.T) {
	cfg := backoffConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, nextBackoffDelay(cfg, 1, nil))
}

func TestNextBackoffDelay_growsAndCaps(t *testing.T) {
	cfg := backoffConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond, Multiplier: 2}
	d2 := nextBackoffDelay(cfg, 2, nil)
	d3 := nextBackoffDelay(cfg, 3, nil)
	d10 := nextBackoffDelay(cfg, 10, nil)

	assert.Equal(t, 200*time.Millisecond, d2)
	assert.Equal(t, 400*time.Millisecond, d3)
	assert.Equal(t, 500*time.Millisecond, d10)
}

func TestNextBackoffDelay_jitterStaysInRange(t *testing.T) {
	cfg := backoffConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, Jitter: true}
	rng := rand.New(rand.NewSource(1))

	for attempt := 2; attempt <= 5; attempt++ {
		unjittered := nextBackoffDelay(backoffConfig{InitialDelay: cfg.InitialDelay, MaxDelay: cfg.MaxDelay, Multiplier: cfg.Multiplier}, attempt, nil)
		d := nextBackoffDelay(cfg, attempt, rng)
		assert.GreaterOrEqual(t, d, time.Duration(float64(unjittered)*0.5))
		assert.LessOrEqual(t, d, time.Duration(float64(unjittered)*1.5)+1)
	}
}

func TestNextBackoffDelay_zeroInitialDelayIsZero(t *testing.T) {
	cfg := backoffConfig{InitialDelay: 0, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, time.Duration(0), nextBackoffDelay(cfg, 5, nil))
}
