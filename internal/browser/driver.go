// internal/browser/driver.go
package browser

import (
	"context"

	"github.com/xkilldash9x/climber/internal/selector"
)

// Driver is the capability surface the automation core needs from a browser.
// Exactly one document context is active at a time: the top-level page or
// one iframe entered through EnterFrame. Lookups are scoped to it.
type Driver interface {
	// Navigate loads url in the top-level document.
	Navigate(ctx context.Context, url string) error
	// FindElements runs one lookup against the active context without
	// waiting. No match is an empty slice, not an error.
	FindElements(ctx context.Context, loc selector.Locator) ([]Element, error)
	// EnterFrame switches the active context into the document of frame.
	EnterFrame(ctx context.Context, frame Element) error
	// ExitFrame returns the active context to the top-level document.
	ExitFrame(ctx context.Context) error
	// InFrame reports whether an iframe context is active.
	InFrame() bool
	CurrentURL(ctx context.Context) (string, error)
	// ReadyState returns document.readyState of the active context.
	ReadyState(ctx context.Context) (string, error)
	// Screenshot writes a PNG of the page to path.
	Screenshot(ctx context.Context, path string) error
}

// Element is a handle to one DOM node found in the active context. Handles do
// not survive navigation or re-rendering and are never cached by callers.
type Element interface {
	// Click performs a trusted pointer click at the element's center. It
	// fails with ErrElementNotInteractable when another node would receive
	// the click.
	Click(ctx context.Context) error
	// ScriptClick calls HTMLElement.click() from page script, bypassing hit
	// testing.
	ScriptClick(ctx context.Context) error
	// HoverClick moves the pointer onto the element along a human-like path
	// and then presses and releases.
	HoverClick(ctx context.Context) error
	// Activate focuses the element and sends the Enter key.
	Activate(ctx context.Context) error
	Focus(ctx context.Context) error
	// SendKeys types text into the element.
	SendKeys(ctx context.Context, text string) error

	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Displayed(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)

	// FindElements looks up descendants of this element.
	FindElements(ctx context.Context, loc selector.Locator) ([]Element, error)
	// Describe returns a short human-readable label for logs.
	Describe() string
}
