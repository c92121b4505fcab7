package ratelimit

import "time"

// RateConfig is an immutable value object holding the tuning constants for
// the token-bucket admission engine. Builder methods return a new value;
// no mutation of an existing RateConfig is observable.
type RateConfig struct {
	ratePerMinute     int
	blockDuration     time.Duration
	gracePeriod       time.Duration
	cacheRefundRatio  float64
	errorPenalty      float64
}

// DefaultRateConfig returns the documented defaults: 50 requests/minute,
// a 15-minute block window, a 1-second grace period, a 0.5 cache-hit
// refund ratio, and a 2.0-token error penalty.
func DefaultRateConfig() RateConfig {
	return RateConfig{
		ratePerMinute:    50,
		blockDuration:    15 * time.Minute,
		gracePeriod:      1 * time.Second,
		cacheRefundRatio: 0.5,
		errorPenalty:     2.0,
	}
}

// WithRatePerMinute returns a copy of cfg with the requests-per-minute
// target replaced.
func (cfg RateConfig) WithRatePerMinute(rpm int) RateConfig {
	cfg.ratePerMinute = rpm
	return cfg
}

// WithBlockDuration returns a copy of cfg with the block window replaced.
func (cfg RateConfig) WithBlockDuration(d time.Duration) RateConfig {
	cfg.blockDuration = d
	return cfg
}

// WithGracePeriod returns a copy of cfg with the grace window replaced.
func (cfg RateConfig) WithGracePeriod(d time.Duration) RateConfig {
	cfg.gracePeriod = d
	return cfg
}

// WithCacheRefundRatio returns a copy of cfg with the cache-hit refund ratio
// replaced, clamped to [0, 1].
func (cfg RateConfig) WithCacheRefundRatio(ratio float64) RateConfig {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	cfg.cacheRefundRatio = ratio
	return cfg
}

// WithErrorPenalty returns a copy of cfg with the error-response token
// penalty replaced, floored at 0.
func (cfg RateConfig) WithErrorPenalty(penalty float64) RateConfig {
	if penalty < 0 {
		penalty = 0
	}
	cfg.errorPenalty = penalty
	return cfg
}

// RatePerMinute returns the configured requests-per-minute target.
func (cfg RateConfig) RatePerMinute() int { return cfg.ratePerMinute }

// BlockDuration returns the configured block window.
func (cfg RateConfig) BlockDuration() time.Duration { return cfg.blockDuration }

// GracePeriod returns the configured grace window.
func (cfg RateConfig) GracePeriod() time.Duration { return cfg.gracePeriod }

// CacheRefundRatio returns the configured cache-hit refund ratio.
func (cfg RateConfig) CacheRefundRatio() float64 { return cfg.cacheRefundRatio }

// ErrorPenalty returns the configured error-response token penalty.
func (cfg RateConfig) ErrorPenalty() float64 { return cfg.errorPenalty }

// MaxTokens returns the bucket's real-valued capacity, equal to the
// requests-per-minute target.
func (cfg RateConfig) MaxTokens() float64 {
	return float64(cfg.ratePerMinute)
}

// RefillRatePerSecond returns the token refill rate in tokens/second.
func (cfg RateConfig) RefillRatePerSecond() float64 {
	return float64(cfg.ratePerMinute) / 60.0
}
