package ratelimit

import (
	"net/http"
	"time"
)

// PostResponseAdjuster applies the response-dependent correction to a
// bucket after the handler has run. It never re-evaluates block state; it
// only moves tokens within [0, max_tokens].
type PostResponseAdjuster struct {
	registry *BucketRegistry
	cfg      RateConfig
	now      func() time.Time
	metrics  MetricsRecorder
}

// AdjusterOption configures a PostResponseAdjuster at construction.
type AdjusterOption func(*PostResponseAdjuster)

// WithAdjusterMetrics attaches a MetricsRecorder the adjuster reports cache
// refunds and error penalties to as they happen. Omitted by default, in
// which case Adjust records nothing.
func WithAdjusterMetrics(m MetricsRecorder) AdjusterOption {
	return func(a *PostResponseAdjuster) { a.metrics = m }
}

// NewPostResponseAdjuster builds an adjuster sharing registry and cfg with
// the AdmissionEngine that produced the contexts it will adjust.
func NewPostResponseAdjuster(registry *BucketRegistry, cfg RateConfig, opts ...AdjusterOption) *PostResponseAdjuster {
	a := &PostResponseAdjuster{registry: registry, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Adjust applies the five-branch post-response policy for sc and status:
//   - charged == 0 (grace or short-circuit): no-op.
//   - was_screened: no-op — screened requests always cost exactly 1 token.
//   - status == 304: refund cache_refund_ratio tokens.
//   - status in 4xx/5xx: surcharge error_penalty tokens.
//   - otherwise: no-op.
func (a *PostResponseAdjuster) Adjust(ip string, sc *SecurityContext, status int) {
	if sc == nil || sc.Charged == 0.0 {
		return
	}
	if sc.WasScreened {
		return
	}

	var delta float64
	switch {
	case status == http.StatusNotModified:
		delta = a.cfg.CacheRefundRatio()
		if a.metrics != nil {
			a.metrics.RecordCacheRefund(ip)
		}
	case status >= 400 && status <= 599:
		delta = -a.cfg.ErrorPenalty()
		if a.metrics != nil {
			a.metrics.RecordErrorPenalty(ip, status)
		}
	default:
		return
	}

	bucket := a.registry.GetOrCreate(ip, a.now())
	bucket.Adjust(a.now(), delta, a.cfg)
}
