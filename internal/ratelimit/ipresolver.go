package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// UnknownIP is the sentinel bucket key used whenever an IpResolver cannot
// extract a client IP from a request. All unresolvable clients therefore
// share one bucket, which bounds the damage a malformed or spoofed header
// can do to bucket-creation volume.
const UnknownIP = "unknown"

// ForwardedMode selects how a ForwardedHeader resolver interprets a
// multi-value header.
type ForwardedMode int

const (
	// SingleTrustedProxy requires the header to contain exactly one IP
	// after trimming; any other shape fails resolution.
	SingleTrustedProxy ForwardedMode = iota
	// FirstHop takes the first comma-separated token, trimmed, regardless
	// of how many hops the header lists.
	FirstHop
)

// IpResolver extracts a client IP (or UnknownIP) from an incoming request.
type IpResolver interface {
	Resolve(r *http.Request) string
}

// forwardedHeaderResolver reads a named header under the given mode.
type forwardedHeaderResolver struct {
	header string
	mode   ForwardedMode
}

// NewForwardedHeaderResolver builds an IpResolver reading header under mode.
func NewForwardedHeaderResolver(header string, mode ForwardedMode) IpResolver {
	return forwardedHeaderResolver{header: header, mode: mode}
}

func (f forwardedHeaderResolver) Resolve(r *http.Request) string {
	raw := r.Header.Get(f.header)
	if raw == "" {
		return UnknownIP
	}

	switch f.mode {
	case SingleTrustedProxy:
		parts := strings.Split(raw, ",")
		if len(parts) != 1 {
			slog.Debug("malformed forwarded header, using unknown-IP bucket", "header", f.header)
			return UnknownIP
		}
		ip := strings.TrimSpace(parts[0])
		if ip == "" {
			return UnknownIP
		}
		return ip
	case FirstHop:
		parts := strings.Split(raw, ",")
		ip := strings.TrimSpace(parts[0])
		if ip == "" {
			return UnknownIP
		}
		return ip
	default:
		return UnknownIP
	}
}

// socketAddrResolver reads the request's remote socket address, stripped
// of its port.
type socketAddrResolver struct{}

// NewSocketAddrResolver builds an IpResolver that reads r.RemoteAddr.
func NewSocketAddrResolver() IpResolver {
	return socketAddrResolver{}
}

func (socketAddrResolver) Resolve(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr with no port (e.g. set directly by a test) is used as-is.
		if r.RemoteAddr == "" {
			return UnknownIP
		}
		return r.RemoteAddr
	}
	if host == "" {
		return UnknownIP
	}
	return host
}

// Preset resolver constructors, matching the named presets in the spec.

// XForwardedFor resolves via the X-Forwarded-For header, single trusted proxy.
func XForwardedFor() IpResolver {
	return NewForwardedHeaderResolver("X-Forwarded-For", SingleTrustedProxy)
}

// XRealIP resolves via the X-Real-IP header, single trusted proxy.
func XRealIP() IpResolver {
	return NewForwardedHeaderResolver("X-Real-IP", SingleTrustedProxy)
}

// Cloudflare resolves via the CF-Connecting-IP header, single trusted proxy.
func Cloudflare() IpResolver {
	return NewForwardedHeaderResolver("CF-Connecting-IP", SingleTrustedProxy)
}

// CustomHeader resolves via an operator-named header, single trusted proxy.
func CustomHeader(name string) IpResolver {
	return NewForwardedHeaderResolver(name, SingleTrustedProxy)
}

// DefaultIpResolver is XForwardedFor, the spec's documented default.
func DefaultIpResolver() IpResolver {
	return XForwardedFor()
}
