// internal/browser/humanoid/trajectory.go
package humanoid

import (
	"context"
	"math"
	"time"
)

// fittsDuration is the movement time for a distance, MT = a + b*log2(1+D/W),
// with +/-15% jitter. Expects h.mu held.
func (h *Humanoid) fittsDuration(distance float64) time.Duration {
	const targetWidth = 30.0
	id := math.Log2(1.0 + distance/targetWidth)
	mt := h.dynamicConfig.FittsA + h.dynamicConfig.FittsB*id
	mt += mt * (h.rng.Float64()*0.3 - 0.15)
	if mt < 0 {
		mt = 0
	}
	return time.Duration(mt) * time.Millisecond
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// idealPath bends a cubic Bezier curve to one side of the straight line,
// the way a wrist arcs around its pivot. Expects h.mu held.
func (h *Humanoid) idealPath(start, end Vector2D, steps int) []Vector2D {
	delta := end.Sub(start)
	dist := delta.Mag()
	if dist < 1.0 || steps < 2 {
		return []Vector2D{end}
	}

	bow := delta.Normalize().Perpendicular().Mul(dist * (h.rng.Float64()*0.3 - 0.15))
	p1 := start.Add(delta.Mul(1.0 / 3.0)).Add(bow)
	p2 := start.Add(delta.Mul(2.0 / 3.0)).Add(bow.Mul(0.5))

	path := make([]Vector2D, steps)
	for i := range path {
		t := float64(i) / float64(steps-1)
		u := 1 - t
		path[i] = start.Mul(u * u * u).
			Add(p1.Mul(3 * u * u * t)).
			Add(p2.Mul(3 * u * t * t)).
			Add(end.Mul(t * t * t))
	}
	return path
}

// simulateTrajectory dispatches pointer moves along the ideal path with
// eased timing, Perlin drift and Gaussian tremor. The final event lands
// exactly on end so a following press hits the intended point.
// Expects h.mu held.
func (h *Humanoid) simulateTrajectory(ctx context.Context, start, end Vector2D) error {
	duration := h.fittsDuration(start.Dist(end))
	steps := int(duration.Seconds() * 100)
	if steps < 2 {
		steps = 2
	}
	path := h.idealPath(start, end, steps)

	began := time.Now()
	for i := range path {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t := 1.0
		if len(path) > 1 {
			t = easeInOutCubic(float64(i) / float64(len(path)-1))
		}
		idx := int(t * float64(len(path)-1))
		point := path[idx]

		if due := time.Until(began.Add(time.Duration(t * float64(duration)))); due > 0 {
			if err := h.executor.Sleep(ctx, due); err != nil {
				return err
			}
		}

		if i < len(path)-1 {
			point = h.perturb(point, time.Since(began).Seconds())
		} else {
			point = end
		}

		if err := h.executor.DispatchMouseEvent(ctx, MouseEventData{
			Type:   MouseMove,
			X:      point.X,
			Y:      point.Y,
			Button: ButtonNone,
		}); err != nil {
			return err
		}
		h.currentPos = point
	}
	return nil
}

// perturb adds low-frequency drift and high-frequency tremor. Expects h.mu held.
func (h *Humanoid) perturb(p Vector2D, elapsed float64) Vector2D {
	const frequency = 0.8
	amp := h.dynamicConfig.PerlinAmplitude
	drift := Vector2D{
		X: h.noiseX.Noise1D(elapsed*frequency) * amp,
		Y: h.noiseY.Noise1D(elapsed*frequency) * amp,
	}
	strength := h.dynamicConfig.GaussianStrength * (0.5 + h.rng.Float64())
	tremor := Vector2D{X: h.rng.NormFloat64() * strength, Y: h.rng.NormFloat64() * strength}
	return p.Add(drift).Add(tremor)
}
