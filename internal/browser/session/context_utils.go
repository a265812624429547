// internal/browser/session/context_utils.go
package session

import (
	"context"
	"time"
)

// CombineContext derives a context from primary that is also canceled when
// secondary is. Values come from primary only, so chromedp finds its target
// while the caller's deadline still applies.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// valueOnlyContext keeps the parent's values and drops its deadline and
// cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{} { return nil }
func (valueOnlyContext) Err() error { return nil }

// Detach returns a context with ctx's values that is never canceled. The
// browser allocator hangs off it so the browser outlives the start-up call.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
