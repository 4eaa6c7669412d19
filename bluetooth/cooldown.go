package bluetooth

import (
	"time"

	"golang.org/x/time/rate"
)

// Cooldown is the fixed retry timer between connection attempts. The first attempt is
// allowed immediately; every following one only after the period has elapsed since the
// previous attempt started.
type Cooldown struct {
	period  time.Duration
	limiter *rate.Limiter
}

// NewCooldown creates a cooldown of the given period (DefaultRetryCooldown when <= 0).
func NewCooldown(period time.Duration) *Cooldown {
	if period <= 0 {
		period = DefaultRetryCooldown
	}
	return &Cooldown{
		period:  period,
		limiter: rate.NewLimiter(rate.Every(period), 1),
	}
}

func (c *Cooldown) Period() time.Duration {
	return c.period
}

// Allow takes the attempt slot if the cooldown has elapsed at now.
func (c *Cooldown) Allow(now time.Time) bool {
	return c.limiter.AllowN(now, 1)
}

// Remaining reports how long until Allow would succeed.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	tokens := c.limiter.TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) * float64(c.period))
}
