package bluetooth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownFirstAttemptImmediate(t *testing.T) {
	c := NewCooldown(10 * time.Second)
	now := time.Unix(1_700_000_000, 0)

	assert.Equal(t, time.Duration(0), c.Remaining(now))
	assert.True(t, c.Allow(now))
}

func TestCooldownSpacesAttempts(t *testing.T) {
	c := NewCooldown(10 * time.Second)
	start := time.Unix(1_700_000_000, 0)

	assert.True(t, c.Allow(start))
	assert.False(t, c.Allow(start.Add(1*time.Second)))
	assert.False(t, c.Allow(start.Add(9*time.Second)))
	assert.True(t, c.Allow(start.Add(10*time.Second)))
	assert.False(t, c.Allow(start.Add(11*time.Second)))
}

func TestCooldownRemaining(t *testing.T) {
	c := NewCooldown(10 * time.Second)
	start := time.Unix(1_700_000_000, 0)
	c.Allow(start)

	assert.InDelta(t, float64(6*time.Second), float64(c.Remaining(start.Add(4*time.Second))), float64(time.Millisecond))
	assert.Equal(t, time.Duration(0), c.Remaining(start.Add(30*time.Second)))
}

func TestCooldownDefaultPeriod(t *testing.T) {
	assert.Equal(t, DefaultRetryCooldown, NewCooldown(0).Period())
	assert.Equal(t, DefaultRetryCooldown, NewCooldown(-time.Second).Period())
}

func TestCeilSeconds(t *testing.T) {
	assert.Equal(t, time.Duration(0), ceilSeconds(0))
	assert.Equal(t, time.Second, ceilSeconds(time.Millisecond))
	assert.Equal(t, 10*time.Second, ceilSeconds(9*time.Second+time.Nanosecond))
	assert.Equal(t, 10*time.Second, ceilSeconds(10*time.Second))
}
