// internal/browser/humanoid/interface.go
package humanoid

import (
	"context"
	"time"
)

// MouseEventType mirrors the CDP Input.dispatchMouseEvent type values.
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
)

// MouseButton mirrors the CDP mouse button names.
type MouseButton string

const (
	ButtonNone  MouseButton = "none"
	ButtonLeft  MouseButton = "left"
	ButtonRight MouseButton = "right"
)

// MouseEventData is one low-level pointer event.
type MouseEventData struct {
	Type       MouseEventType
	X, Y       float64
	Button     MouseButton
	Buttons    int64
	ClickCount int
}

// ElementGeometry describes the on-screen quad of a target in viewport
// coordinates of the top-level page.
type ElementGeometry struct {
	// Vertices holds the quad corners as x1,y1 .. x4,y4.
	Vertices []float64 `json:"vertices"`
	Width    int64     `json:"width"`
	Height   int64     `json:"height"`
}

// Controller is the high-level surface the browser session uses.
type Controller interface {
	MoveTo(ctx context.Context, geo *ElementGeometry) error
	Click(ctx context.Context, geo *ElementGeometry) error
	CognitivePause(ctx context.Context, meanMs, stdDevMs float64) error
	Hesitate(ctx context.Context, d time.Duration) error
}

// Executor is the low-level surface the humanoid drives.
type Executor interface {
	Sleep(ctx context.Context, d time.Duration) error
	DispatchMouseEvent(ctx context.Context, data MouseEventData) error
}
