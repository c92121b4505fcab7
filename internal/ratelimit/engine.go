package ratelimit

import (
	"log/slog"
	"net/http"
	"time"
)

// Decision is the outcome of AdmissionEngine.Admit.
type Decision int

const (
	// DecisionAdmitted means the request should proceed to the handler.
	DecisionAdmitted Decision = iota
	// DecisionDenied means the bucket was just depleted by this request;
	// a block window has started.
	DecisionDenied
	// DecisionBlocked means the IP is within an already-active block
	// window.
	DecisionBlocked
)

// Result is returned by Admit: the decision, the SecurityContext to carry
// downstream, and (for Denied/Blocked) the bucket's blocked_until time.
type Result struct {
	Decision     Decision
	Context      *SecurityContext
	BlockedUntil time.Time
}

// AdmissionEngine implements the five-step admission sequence: resolve IP,
// screen, obtain bucket, evaluate grace/consume, and on rejection invoke
// OnBlocked. It never suspends on the admission path itself.
type AdmissionEngine struct {
	registry  *BucketRegistry
	screener  maliciousChecker
	cfg       RateConfig
	resolver  IpResolver
	callbacks Callbacks
	log       *slog.Logger
	now       func() time.Time
	metrics   MetricsRecorder
}

// maliciousChecker is the subset of *screener.Screener the engine needs;
// defined locally so this package does not import internal/screener for
// its public API surface, keeping the two packages decoupled.
type maliciousChecker interface {
	IsMalicious(path, userAgent string) bool
}

// EngineOption configures an AdmissionEngine at construction.
type EngineOption func(*AdmissionEngine)

// WithLogger overrides the engine's logger (default slog.Default()).
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *AdmissionEngine) { e.log = l }
}

// WithClock overrides the engine's time source; intended for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *AdmissionEngine) { e.now = now }
}

// WithMetrics attaches a MetricsRecorder the engine reports admitted,
// blocked, and screened events to as they happen. Omitted by default, in
// which case Admit records nothing.
func WithMetrics(m MetricsRecorder) EngineOption {
	return func(e *AdmissionEngine) { e.metrics = m }
}

// NewAdmissionEngine constructs an engine over registry, screener, cfg,
// resolver and callbacks.
func NewAdmissionEngine(
	registry *BucketRegistry,
	screener maliciousChecker,
	cfg RateConfig,
	resolver IpResolver,
	callbacks Callbacks,
	opts ...EngineOption,
) *AdmissionEngine {
	e := &AdmissionEngine{
		registry:  registry,
		screener:  screener,
		cfg:       cfg,
		resolver:  resolver,
		callbacks: callbacks,
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Admit runs the admission sequence for r and returns the decision plus
// the SecurityContext to thread through the handler and adjuster.
func (e *AdmissionEngine) Admit(r *http.Request) Result {
	ip := e.resolver.Resolve(r)
	userAgent := sanitizeUserAgent(r.Header.Get("User-Agent"))
	path := r.URL.Path

	sc := &SecurityContext{
		IPAddress:   ip,
		UserAgent:   userAgent,
		WasScreened: e.screener.IsMalicious(path, userAgent),
	}
	if sc.WasScreened && e.metrics != nil {
		e.metrics.RecordScreeningBlock(ip, "pattern_match")
	}

	bucket := e.registry.GetOrCreate(ip, e.now())
	now := e.now()

	snap := bucket.Snapshot()
	if !now.After(snap.FirstSeen.Add(e.cfg.GracePeriod())) && !bucket.IsBlockedAt(now) {
		sc.Charged = 0.0
		e.recordAdmitted(ip)
		return Result{Decision: DecisionAdmitted, Context: sc}
	}

	outcome := bucket.TryConsume(now, 1.0, e.cfg)
	switch outcome {
	case Admitted:
		sc.Charged = 1.0
		e.recordAdmitted(ip)
		return Result{Decision: DecisionAdmitted, Context: sc}
	case Denied, Blocked:
		sc.Charged = 0.0
		blockedUntil := bucket.Snapshot().BlockedUntil
		invokeOnBlocked(e.callbacks.OnBlocked, ip, path, sc, func(rec any) {
			e.log.Error("panic in OnBlocked callback", "recovered", rec, "ip", ip)
		})
		if e.metrics != nil {
			e.metrics.RecordBlock(ip)
		}
		decision := DecisionDenied
		if outcome == Blocked {
			decision = DecisionBlocked
		}
		return Result{Decision: decision, Context: sc, BlockedUntil: blockedUntil}
	default:
		// Unreachable: TryConsume only returns the three outcomes above.
		sc.Charged = 0.0
		return Result{Decision: DecisionDenied, Context: sc}
	}
}

// recordAdmitted reports an admitted request to the attached MetricsRecorder,
// if any.
func (e *AdmissionEngine) recordAdmitted(ip string) {
	if e.metrics != nil {
		e.metrics.RecordAdmitted(ip)
	}
}

// Registry exposes the underlying BucketRegistry, for metrics gauges and
// the PostResponseAdjuster to share the same bucket identity.
func (e *AdmissionEngine) Registry() *BucketRegistry { return e.registry }

// Config exposes the engine's RateConfig.
func (e *AdmissionEngine) Config() RateConfig { return e.cfg }
