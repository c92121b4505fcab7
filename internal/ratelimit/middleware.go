package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// MetricsRecorder receives per-request admission-engine events for
// observability. Defined locally, like maliciousChecker, so this package
// does not import internal/observability for its public API surface;
// *observability.RateLimitMetrics satisfies it structurally.
type MetricsRecorder interface {
	RecordAdmitted(ip string)
	RecordBlock(ip string)
	RecordScreeningBlock(ip, reason string)
	RecordCacheRefund(ip string)
	RecordErrorPenalty(ip string, status int)
	RecordHTTPRequest(status int, durationSeconds float64)
}

// statusRecorder captures the status code written by the wrapped handler
// so the adjuster can read it after the handler returns.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// SecurityContextMiddleware attaches a SecurityContext-bearing context to
// the request and performs post-response adjustment, per spec. When an
// outer RateLimitMiddleware already attached a context (carrying the
// charged amount and screening flag decided by admission), that context is
// reused as-is; otherwise one is built fresh from resolver, which lets this
// middleware also run standalone, without a rate-limit middleware in front
// of it. adjuster and metrics may both be nil.
func SecurityContextMiddleware(resolver IpResolver, adjuster *PostResponseAdjuster, metrics MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc, ok := GetSecurityContext(r)
			if !ok {
				sc = &SecurityContext{
					IPAddress: resolver.Resolve(r),
					UserAgent: sanitizeUserAgent(r.Header.Get("User-Agent")),
				}
				r = r.WithContext(WithSecurityContext(r.Context(), sc))
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if adjuster != nil {
				adjuster.Adjust(sc.IPAddress, sc, rec.status)
			}
			if metrics != nil {
				metrics.RecordHTTPRequest(rec.status, time.Since(start).Seconds())
			}
		})
	}
}

// RateLimitMiddleware performs admission against every request via engine,
// short-circuiting blocked/denied requests with blockStatus (default 429
// when 0 is passed). On admission it attaches the resulting SecurityContext
// to the request and calls next directly. Per spec, the security-context
// middleware wraps the handler and performs post-response adjustment; this
// middleware is meant to wrap that composition:
// RateLimitMiddleware(...)(SecurityContextMiddleware(...)(handler)).
func RateLimitMiddleware(engine *AdmissionEngine, blockStatus int) func(http.Handler) http.Handler {
	if blockStatus == 0 {
		blockStatus = http.StatusTooManyRequests
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := engine.Admit(r)
			r = r.WithContext(WithSecurityContext(r.Context(), result.Context))

			switch result.Decision {
			case DecisionDenied, DecisionBlocked:
				if !result.BlockedUntil.IsZero() {
					retryAfter := int(time.Until(result.BlockedUntil).Seconds())
					if retryAfter < 0 {
						retryAfter = 0
					}
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
				w.WriteHeader(blockStatus)
				fmt.Fprintf(w, `{"error":"rate limit exceeded"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
