// internal/browser/humanoid/click.go
package humanoid

import (
	"context"
	"time"
)

// Click moves onto geo, presses the left button, holds it for a sampled
// duration and releases it at the same point.
func (h *Humanoid) Click(ctx context.Context, geo *ElementGeometry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	target, err := h.moveToGeometry(ctx, geo)
	if err != nil {
		return err
	}

	press := MouseEventData{Type: MousePress, X: target.X, Y: target.Y, Button: ButtonLeft, Buttons: 1, ClickCount: 1}
	if err := h.executor.DispatchMouseEvent(ctx, press); err != nil {
		return err
	}

	if err := h.executor.Sleep(ctx, h.holdDuration()); err != nil {
		// Never leave the button stuck down.
		release := press
		release.Type, release.Buttons = MouseRelease, 0
		_ = h.executor.DispatchMouseEvent(context.WithoutCancel(ctx), release)
		return err
	}

	release := MouseEventData{Type: MouseRelease, X: target.X, Y: target.Y, Button: ButtonLeft, Buttons: 0, ClickCount: 1}
	return h.executor.DispatchMouseEvent(ctx, release)
}

// holdDuration samples uniformly within the configured bounds. Expects h.mu held.
func (h *Humanoid) holdDuration() time.Duration {
	lo, hi := h.dynamicConfig.ClickHoldMinMs, h.dynamicConfig.ClickHoldMaxMs
	ms := lo
	if hi > lo {
		ms += h.rng.Intn(hi - lo + 1)
	}
	return time.Duration(ms) * time.Millisecond
}
