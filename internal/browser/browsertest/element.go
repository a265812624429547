package browsertest

import (
	"context"
	"sync"

	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/selector"
)

// Element is a fake DOM node. Zero values describe a visible, enabled
// element whose every click strategy succeeds.
type Element struct {
	Label    string
	TextBody string
	Attrs    map[string]string
	Hidden   bool
	Disabled bool

	// Frame is the document behind an iframe element.
	Frame *Document
	// Children backs FindElements on this element.
	Children *Document

	// Per-strategy failures. A nil error means the strategy succeeds.
	ClickErr    error
	ScriptErr   error
	HoverErr    error
	ActivateErr error
	SendKeysErr error

	// OnClick runs after any click strategy succeeds.
	OnClick func()

	driver *Driver

	mu        sync.Mutex
	attempted []string
	clicks    int
	typed     []string
	focused   int
}

var _ browser.Element = (*Element)(nil)

// NewElement creates an element that records its interactions on d.
func NewElement(d *Driver, label string) *Element {
	return &Element{Label: label, driver: d}
}

// WithText sets the element's text.
func (e *Element) WithText(text string) *Element {
	e.TextBody = text
	return e
}

// WithAttr sets one attribute.
func (e *Element) WithAttr(name, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[name] = value
	return e
}

// Attempted returns the click strategies tried on this element, in order.
func (e *Element) Attempted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.attempted...)
}

// Clicks counts successful clicks of any strategy.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Typed returns every SendKeys payload.
func (e *Element) Typed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.typed...)
}

// Focused counts explicit Focus calls.
func (e *Element) Focused() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focused
}

func (e *Element) click(ctx context.Context, strategy string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	e.mu.Lock()
	e.attempted = append(e.attempted, strategy)
	e.mu.Unlock()
	if e.driver != nil {
		e.driver.record("click:%s %s", strategy, e.Label)
	}
	if err != nil {
		return err
	}
	if strategy == Direct && (e.Hidden || e.Disabled) {
		return browser.ErrElementNotInteractable
	}
	e.mu.Lock()
	e.clicks++
	hook := e.OnClick
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (e *Element) Click(ctx context.Context) error       { return e.click(ctx, Direct, e.ClickErr) }
func (e *Element) ScriptClick(ctx context.Context) error { return e.click(ctx, Script, e.ScriptErr) }
func (e *Element) HoverClick(ctx context.Context) error  { return e.click(ctx, Hover, e.HoverErr) }
func (e *Element) Activate(ctx context.Context) error    { return e.click(ctx, Activate, e.ActivateErr) }

func (e *Element) Focus(ctx context.Context) error {
	e.mu.Lock()
	e.focused++
	e.mu.Unlock()
	if e.driver != nil {
		e.driver.record("focus %s", e.Label)
	}
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if e.driver != nil {
		e.driver.record("type %s", e.Label)
	}
	if e.SendKeysErr != nil {
		return e.SendKeysErr
	}
	e.mu.Lock()
	e.typed = append(e.typed, text)
	e.mu.Unlock()
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) { return e.TextBody, nil }

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *Element) Displayed(ctx context.Context) (bool, error) { return !e.Hidden, nil }
func (e *Element) Enabled(ctx context.Context) (bool, error)   { return !e.Disabled, nil }

func (e *Element) FindElements(ctx context.Context, loc selector.Locator) ([]browser.Element, error) {
	if e.Children == nil {
		return nil, nil
	}
	return e.Children.find(loc), nil
}

func (e *Element) Describe() string { return e.Label }
