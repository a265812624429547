// internal/browser/humanoid/mocks_test.go
package humanoid

import (
	"context"
	"sync"
	"time"
)

// recordingExecutor records events and sleeps without waiting.
type recordingExecutor struct {
	mu       sync.Mutex
	events   []MouseEventData
	sleeps   []time.Duration
	sleepErr error
}

func (r *recordingExecutor) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	if r.sleepErr != nil {
		return r.sleepErr
	}
	return ctx.Err()
}

func (r *recordingExecutor) DispatchMouseEvent(ctx context.Context, data MouseEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return ctx.Err()
}

func (r *recordingExecutor) ofType(t MouseEventType) []MouseEventData {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []MouseEventData
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingExecutor) totalSleep() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, d := range r.sleeps {
		sum += d
	}
	return sum
}

// box returns the geometry of an axis-aligned rectangle.
func box(x, y, w, h float64) *ElementGeometry {
	return &ElementGeometry{
		Vertices: []float64{x, y, x + w, y, x + w, y + h, x, y + h},
		Width:    int64(w),
		Height:   int64(h),
	}
}
