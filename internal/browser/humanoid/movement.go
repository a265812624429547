// internal/browser/humanoid/movement.go
package humanoid

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"
)

// ErrInvalidGeometry is returned for quads that cannot be clicked.
var ErrInvalidGeometry = errors.New("humanoid: invalid element geometry")

// MoveTo moves the pointer onto a point inside geo.
func (h *Humanoid) MoveTo(ctx context.Context, geo *ElementGeometry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.moveToGeometry(ctx, geo)
	return err
}

// MoveToVector moves the pointer to target along a simulated trajectory.
func (h *Humanoid) MoveToVector(ctx context.Context, target Vector2D) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.moveToVector(ctx, target)
}

// moveToGeometry expects h.mu held. It returns the point it aimed for.
func (h *Humanoid) moveToGeometry(ctx context.Context, geo *ElementGeometry) (Vector2D, error) {
	center, ok := boxToCenter(geo)
	if !ok || geo.Width <= 0 || geo.Height <= 0 {
		return Vector2D{}, ErrInvalidGeometry
	}
	target := h.targetPoint(geo, center)
	if err := h.moveToVector(ctx, target); err != nil {
		return Vector2D{}, err
	}
	return target, nil
}

// moveToVector expects h.mu held.
func (h *Humanoid) moveToVector(ctx context.Context, target Vector2D) error {
	start := h.currentPos
	h.addFatigue(start.Dist(target) / 1000.0)

	if err := h.simulateTrajectory(ctx, start, target); err != nil {
		return err
	}
	h.logger.Debug("Pointer moved.",
		zap.Float64("x", target.X), zap.Float64("y", target.Y))
	return nil
}

// boxToCenter averages the quad corners.
func boxToCenter(geo *ElementGeometry) (Vector2D, bool) {
	if geo == nil || len(geo.Vertices) < 8 {
		return Vector2D{}, false
	}
	v := geo.Vertices
	return Vector2D{
		X: (v[0] + v[2] + v[4] + v[6]) / 4,
		Y: (v[1] + v[3] + v[5] + v[7]) / 4,
	}, true
}

// targetPoint picks a normally distributed point around the center, clamped
// one pixel inside the element. Expects h.mu held.
func (h *Humanoid) targetPoint(geo *ElementGeometry, center Vector2D) Vector2D {
	w, hgt := float64(geo.Width), float64(geo.Height)
	x := center.X + h.rng.NormFloat64()*w*0.15
	y := center.Y + h.rng.NormFloat64()*hgt*0.15

	x = math.Max(center.X-w/2+1, math.Min(center.X+w/2-1, x))
	y = math.Max(center.Y-hgt/2+1, math.Min(center.Y+hgt/2-1, y))
	return Vector2D{X: x, Y: y}
}
