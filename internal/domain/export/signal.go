package export

import (
	"context"
	"sync/atomic"
)

// Signal is a cooperative cancellation flag. It moves from false to true
// exactly once and is never reset. Raising it does not interrupt anything;
// running code observes it by polling.
type Signal struct {
	raised atomic.Bool
}

// NewSignal returns a signal that has not been raised.
func NewSignal() *Signal {
	return &Signal{}
}

// Raise sets the flag. It reports whether this call was the one that raised it.
func (s *Signal) Raise() bool {
	if s == nil {
		return false
	}
	return s.raised.CompareAndSwap(false, true)
}

// Raised reports whether the flag has been set. A nil signal is never raised.
func (s *Signal) Raised() bool {
	if s == nil {
		return false
	}
	return s.raised.Load()
}

// SignalFromContext returns a signal that is raised once ctx is done. The
// returned stop function detaches the signal from ctx; it reports false if
// the signal was already raised by ctx.
func SignalFromContext(ctx context.Context) (*Signal, func() bool) {
	sig := NewSignal()
	if ctx == nil {
		return sig, func() bool { return true }
	}
	stop := context.AfterFunc(ctx, func() {
		sig.Raise()
	})
	return sig, stop
}
