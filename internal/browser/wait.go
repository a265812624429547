// internal/browser/wait.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xkilldash9x/climber/internal/selector"
)

// DefaultPollInterval is used when callers pass a non-positive interval.
const DefaultPollInterval = 250 * time.Millisecond

// Condition is evaluated on every poll. Returning an error aborts the wait.
type Condition func(ctx context.Context) (bool, error)

// Poll evaluates cond until it returns true, ctx is done or timeout elapses.
// Evaluations are paced by a token bucket so slow conditions do not get
// re-run back to back. The condition is always evaluated at least once.
func Poll(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow() // drain the initial token so the second evaluation waits
	for {
		ok, err := cond(pollCtx)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return fmt.Errorf("%w after %s", ErrTimeout, timeout)
			}
			return err
		}
		if ok {
			return nil
		}
		if err := limiter.Wait(pollCtx); err != nil {
			// The limiter refuses to wait past the deadline, so a wait error
			// is either the parent being canceled or the timeout.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
	}
}

// FindFirst runs the candidates of target in order against the driver's
// active context and returns every element matched by the first candidate
// that matches anything. Lookup errors from individual candidates are
// returned only when no candidate matched.
func FindFirst(ctx context.Context, d Driver, target selector.Target) ([]Element, error) {
	return findFirst(ctx, target, func(ctx context.Context, loc selector.Locator) ([]Element, error) {
		return d.FindElements(ctx, loc)
	})
}

// FindFirstIn is FindFirst scoped to the descendants of root.
func FindFirstIn(ctx context.Context, root Element, target selector.Target) ([]Element, error) {
	return findFirst(ctx, target, root.FindElements)
}

func findFirst(ctx context.Context, target selector.Target, find func(context.Context, selector.Locator) ([]Element, error)) ([]Element, error) {
	var lastErr error
	for _, loc := range target.Candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		els, err := find(ctx, loc)
		if err != nil {
			lastErr = fmt.Errorf("lookup %s: %w", loc, err)
			continue
		}
		if len(els) > 0 {
			return els, nil
		}
	}
	return nil, lastErr
}

// WaitForURL waits until the current URL contains fragment.
func WaitForURL(ctx context.Context, d Driver, fragment string, timeout, interval time.Duration) error {
	var last string
	err := Poll(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		u, err := d.CurrentURL(ctx)
		if err != nil {
			// Mid-navigation reads fail transiently.
			return false, nil
		}
		last = u
		return strings.Contains(u, fragment), nil
	})
	if err != nil {
		return fmt.Errorf("waiting for url containing %q (last %q): %w", fragment, last, err)
	}
	return nil
}

// WaitSettled waits for the active document to report readyState "complete"
// and then for it to stay complete for the quiet period. It replaces fixed
// post-click sleeps with an observable condition.
func WaitSettled(ctx context.Context, d Driver, timeout, quiet time.Duration) error {
	var completeSince time.Time
	err := Poll(ctx, timeout, DefaultPollInterval, func(ctx context.Context) (bool, error) {
		state, err := d.ReadyState(ctx)
		if err != nil || state != "complete" {
			completeSince = time.Time{}
			return false, nil
		}
		if completeSince.IsZero() {
			completeSince = time.Now()
		}
		return time.Since(completeSince) >= quiet, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for page to settle: %w", err)
	}
	return nil
}
