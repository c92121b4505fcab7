package ratelimit

import (
	"sync"
	"time"
)

// Outcome is the result of attempting to consume tokens from a Bucket.
type Outcome int

const (
	// Admitted means the request consumed tokens and may proceed.
	Admitted Outcome = iota
	// Denied means the bucket had insufficient tokens; the IP enters a new
	// block window but no tokens were charged.
	Denied
	// Blocked means the IP is already within an active block window; no
	// tokens were touched.
	Blocked
)

// Bucket is a single IP's token-bucket state. TryConsume (once past any
// active block) and Adjust refill the bucket to "now" before acting, so a
// Bucket that has not been touched in a while is never penalized for time
// it wasn't making requests; the read-only accessors do not refill. A Bucket
// is guarded by its own mutex and is safe for concurrent use.
type Bucket struct {
	mu sync.Mutex

	tokens       float64
	lastRefill   time.Time
	firstSeen    time.Time
	blockedUntil time.Time
}

// NewBucket creates a fresh, fully-topped-up bucket as of now.
func NewBucket(now time.Time, cfg RateConfig) *Bucket {
	return &Bucket{
		tokens:     cfg.MaxTokens(),
		lastRefill: now,
		firstSeen:  now,
	}
}

// refillTo tops the bucket up for elapsed time since lastRefill, clamped
// at MaxTokens. Callers must hold mu.
func (b *Bucket) refillTo(now time.Time, cfg RateConfig) {
	if now.Before(b.lastRefill) {
		return
	}
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * cfg.RefillRatePerSecond()
	if max := cfg.MaxTokens(); b.tokens > max {
		b.tokens = max
	}
	b.lastRefill = now
}

// RefillTo is the exported, locked form of refillTo, for callers that need
// to bring a bucket current without performing a consume or adjust.
func (b *Bucket) RefillTo(now time.Time, cfg RateConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillTo(now, cfg)
}

// TryConsume refills the bucket to now, then attempts to subtract cost
// tokens. Order of checks: an active block window always wins (Blocked);
// otherwise insufficient tokens starts a new block window and
// returns Denied without charging; otherwise the cost is charged and
// Admitted is returned.
func (b *Bucket) TryConsume(now time.Time, cost float64, cfg RateConfig) Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.blockedUntil.IsZero() && now.Before(b.blockedUntil) {
		return Blocked
	}

	b.refillTo(now, cfg)

	if b.tokens < cost {
		b.blockedUntil = now.Add(cfg.BlockDuration())
		return Denied
	}

	b.tokens -= cost
	return Admitted
}

// Adjust refills the bucket to now, then applies delta (positive to
// refund, negative to penalize), clamped to [0, MaxTokens]. Adjust never
// changes blockedUntil; it only affects future TryConsume calls once any
// existing block window has elapsed.
func (b *Bucket) Adjust(now time.Time, delta float64, cfg RateConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillTo(now, cfg)

	b.tokens += delta
	if b.tokens < 0 {
		b.tokens = 0
	}
	if max := cfg.MaxTokens(); b.tokens > max {
		b.tokens = max
	}
}

// Snapshot is a point-in-time, read-only copy of a Bucket's fields, used
// by tests and by the AdmissionEngine.
type Snapshot struct {
	Tokens       float64
	LastRefill   time.Time
	FirstSeen    time.Time
	BlockedUntil time.Time
}

// Snapshot returns the bucket's current state without refilling it.
func (b *Bucket) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Tokens:       b.tokens,
		LastRefill:   b.lastRefill,
		FirstSeen:    b.firstSeen,
		BlockedUntil: b.blockedUntil,
	}
}

// IsBlockedAt reports whether the bucket's block window covers now,
// without refilling or mutating the bucket.
func (b *Bucket) IsBlockedAt(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.blockedUntil.IsZero() && now.Before(b.blockedUntil)
}

// IdleSince returns how long it has been since this bucket was last
// touched (refilled), used by the registry to decide eviction eligibility.
func (b *Bucket) IdleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastRefill)
}
