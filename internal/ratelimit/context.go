package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"unicode"
)

// SecurityContext is the per-request record carried from admission through
// the handler to the post-response adjuster. Its fields are set once by
// the AdmissionEngine and read (never re-derived) downstream.
type SecurityContext struct {
	IPAddress   string
	UserAgent   string
	WasScreened bool

	// Charged is the token cost recorded upfront by the AdmissionEngine:
	// 0.0 within a grace window or when the request is Denied or Blocked,
	// 1.0 when it is admitted past the grace window. The PostResponseAdjuster
	// uses it to decide whether any further adjustment is meaningful.
	Charged float64
}

type securityContextKey struct{}

// WithSecurityContext returns a copy of ctx carrying sc, retrievable by
// GetSecurityContext.
func WithSecurityContext(ctx context.Context, sc *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey{}, sc)
}

// GetSecurityContext retrieves the SecurityContext attached to r by
// security_context_middleware / rate_limit_middleware, if any.
func GetSecurityContext(r *http.Request) (*SecurityContext, bool) {
	sc, ok := r.Context().Value(securityContextKey{}).(*SecurityContext)
	return sc, ok
}

// maxUserAgentLength caps a sanitized User-Agent value, in characters, to
// bound log and per-request memory use against a client sending an
// oversized header.
const maxUserAgentLength = 500

// sanitizeUserAgent strips control characters (preserving space and tab)
// and truncates to maxUserAgentLength, without otherwise normalizing case
// or content.
func sanitizeUserAgent(userAgent string) string {
	var b strings.Builder
	count := 0
	for _, r := range userAgent {
		if count >= maxUserAgentLength {
			break
		}
		if unicode.IsControl(r) && r != ' ' && r != '\t' {
			continue
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}
