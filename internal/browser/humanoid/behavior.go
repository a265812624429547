// internal/browser/humanoid/behavior.go
package humanoid

import (
	"context"
	"math"
	"time"
)

// CognitivePause waits for a normally distributed duration, stretched by
// fatigue. Pauses longer than 100ms idle the pointer instead of freezing it.
func (h *Humanoid) CognitivePause(ctx context.Context, meanMs, stdDevMs float64) error {
	h.mu.Lock()
	ms := (1.0 + h.fatigueLevel) * (meanMs + h.rng.NormFloat64()*stdDevMs)
	h.mu.Unlock()

	d := time.Duration(ms) * time.Millisecond
	if d <= 0 {
		return nil
	}
	return h.Hesitate(ctx, d)
}

// Hesitate spends d with small random pointer movements around the current
// position. It also lets fatigue recover.
func (h *Humanoid) Hesitate(ctx context.Context, d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recoverFatigue(d)

	if d <= 100*time.Millisecond {
		return h.executor.Sleep(ctx, d)
	}

	origin := h.currentPos
	for remaining := d; remaining > 0; {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		jitter := Vector2D{X: (h.rng.Float64() - 0.5) * 5, Y: (h.rng.Float64() - 0.5) * 5}
		p := origin.Add(jitter)
		if err := h.executor.DispatchMouseEvent(ctx, MouseEventData{Type: MouseMove, X: p.X, Y: p.Y, Button: ButtonNone}); err != nil {
			return err
		}
		h.currentPos = p

		step := time.Duration(50+h.rng.Intn(100)) * time.Millisecond
		if step > remaining {
			step = remaining
		}
		if err := h.executor.Sleep(ctx, step); err != nil {
			return err
		}
		remaining -= step
	}
	return nil
}

// addFatigue expects h.mu held.
func (h *Humanoid) addFatigue(intensity float64) {
	h.fatigueLevel = math.Min(1.0, h.fatigueLevel+h.baseConfig.FatigueIncreaseRate*intensity)
	h.applyFatigue()
}

// recoverFatigue expects h.mu held.
func (h *Humanoid) recoverFatigue(d time.Duration) {
	h.fatigueLevel = math.Max(0.0, h.fatigueLevel-h.baseConfig.FatigueRecoveryRate*d.Seconds())
	h.applyFatigue()
}

// applyFatigue makes a tired user slower and shakier. Expects h.mu held.
func (h *Humanoid) applyFatigue() {
	f := 1.0 + h.fatigueLevel
	h.dynamicConfig.FittsA = h.baseConfig.FittsA * f
	h.dynamicConfig.GaussianStrength = h.baseConfig.GaussianStrength * f
	h.dynamicConfig.PerlinAmplitude = h.baseConfig.PerlinAmplitude * f
}
