// Package actioncheck provides the ActionChecker capability the core
// rate-limit engine carries but never consults on its own admission path
// (spec §4.8). Application-level handlers use it to implement per-action
// limits — e.g. "refuse a login from an IP that failed one in the last
// minute" —
// layered on top of the token bucket.
package actioncheck

import (
	"context"
	"time"
)

// Checker records and queries recent per-IP actions.
type Checker interface {
	// RecordAction records that ip performed action now.
	RecordAction(ctx context.Context, ip, action string) error
	// CheckRecentAction reports whether ip performed action within the
	// last `within` duration.
	CheckRecentAction(ctx context.Context, ip, action string, within time.Duration) (bool, error)
	// Close releases any resources (connections, file handles) held by
	// the backend.
	Close() error
}
