// internal/browser/errors.go
package browser

import "errors"

var (
	// ErrElementNotFound is returned when no element matched within the timeout.
	ErrElementNotFound = errors.New("element not found")
	// ErrElementNotInteractable is returned when an element exists but cannot
	// receive input: hidden, disabled, zero-sized, or covered by another node.
	ErrElementNotInteractable = errors.New("element not interactable")
	// ErrFrameUnavailable is returned when the activity content frame never
	// appeared or could not be entered.
	ErrFrameUnavailable = errors.New("content frame unavailable")
	// ErrTimeout is returned by Poll when the condition never held.
	ErrTimeout = errors.New("condition not met before timeout")
	// ErrStaleContext is returned when a frame handle no longer resolves to a
	// document, typically after the frame navigated or was removed.
	ErrStaleContext = errors.New("frame context is stale")
)
