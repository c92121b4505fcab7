package ratelimit

import (
	"context"
	"time"
)

// OnBlocked is invoked whenever a request is rejected (Denied or Blocked).
// Implementations are expected to be side-effecting — logging, writing a
// persistent record — and may be slow; the AdmissionEngine invokes it in
// a detached goroutine so it never delays the block response.
type OnBlocked interface {
	OnBlock(ctx context.Context, ip, path string, sc *SecurityContext)
}

// OnBlockedFunc adapts a plain function to the OnBlocked interface.
type OnBlockedFunc func(ctx context.Context, ip, path string, sc *SecurityContext)

// OnBlock implements OnBlocked.
func (f OnBlockedFunc) OnBlock(ctx context.Context, ip, path string, sc *SecurityContext) {
	f(ctx, ip, path, sc)
}

// ActionChecker supplements the token bucket with per-action rate limits.
// The core carries this capability for application-level code to consult;
// it is never invoked by the AdmissionEngine on the hot path.
type ActionChecker interface {
	CheckRecentAction(ctx context.Context, ip, action string, within time.Duration) (bool, error)
}

// Callbacks bundles the two collaborator capabilities supplied by the
// caller at construction. Either field may be nil; a nil OnBlocked is
// simply not invoked, and a nil ActionChecker is only a problem for
// application code that tries to use it.
type Callbacks struct {
	OnBlocked     OnBlocked
	ActionChecker ActionChecker
}

// invokeOnBlocked fires cb.OnBlocked in a detached goroutine if set, never
// blocking the caller. A panic inside the callback is recovered and
// swallowed (CallbackError policy: logged, never affects the admission
// decision, and the decision has already been made by the time this runs).
func invokeOnBlocked(cb OnBlocked, ip, path string, sc *SecurityContext, onPanic func(recovered any)) {
	if cb == nil {
		return
	}
	go func() {
		defer func() {
			if rec := recover(); rec != nil && onPanic != nil {
				onPanic(rec)
			}
		}()
		cb.OnBlock(context.Background(), ip, path, sc)
	}()
}
