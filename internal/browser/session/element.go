// internal/browser/session/element.go
package session

import (
	"context"
	"fmt"
	"math"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/browser/humanoid"
	"github.com/xkilldash9x/climber/internal/selector"
)

// element is a handle to a remote DOM node.
type element struct {
	s     *Session
	id    runtime.RemoteObjectID
	label string
}

var _ browser.Element = (*element)(nil)

func (e *element) Describe() string { return e.label }

// geometry scrolls the element into view and returns its first content quad
// in top-level viewport coordinates.
func (e *element) geometry(ctx context.Context) (*humanoid.ElementGeometry, error) {
	var quads []dom.Quad
	err := e.s.RunActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithObjectID(e.id).Do(ctx); err != nil {
			return err
		}
		var err error
		quads, err = dom.GetContentQuads().WithObjectID(e.id).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, classifyRemoteError(err)
	}
	if len(quads) == 0 || len(quads[0]) < 8 {
		return nil, fmt.Errorf("%w: %s has no layout box", browser.ErrElementNotInteractable, e.label)
	}
	return quadGeometry(quads[0]), nil
}

func quadGeometry(q dom.Quad) *humanoid.ElementGeometry {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := 0; i+1 < len(q); i += 2 {
		minX, maxX = math.Min(minX, q[i]), math.Max(maxX, q[i])
		minY, maxY = math.Min(minY, q[i+1]), math.Max(maxY, q[i+1])
	}
	return &humanoid.ElementGeometry{
		Vertices: append([]float64(nil), q[:8]...),
		Width:    int64(math.Round(maxX - minX)),
		Height:   int64(math.Round(maxY - minY)),
	}
}

func center(geo *humanoid.ElementGeometry) (float64, float64) {
	v := geo.Vertices
	return (v[0] + v[2] + v[4] + v[6]) / 4, (v[1] + v[3] + v[5] + v[7]) / 4
}

// Click dispatches a trusted press and release at the element's center
// after confirming the element would receive it.
func (e *element) Click(ctx context.Context) error {
	geo, err := e.geometry(ctx)
	if err != nil {
		return err
	}
	var hit bool
	if err := e.s.callValue(ctx, e.id, hitTestFunction, &hit); err != nil {
		return err
	}
	if !hit {
		return fmt.Errorf("%w: %s is covered", browser.ErrElementNotInteractable, e.label)
	}
	x, y := center(geo)
	return e.press(ctx, x, y)
}

func (e *element) press(ctx context.Context, x, y float64) error {
	ev := humanoid.MouseEventData{Type: humanoid.MousePress, X: x, Y: y, Button: humanoid.ButtonLeft, Buttons: 1, ClickCount: 1}
	if err := e.s.executor.DispatchMouseEvent(ctx, ev); err != nil {
		return err
	}
	ev.Type, ev.Buttons = humanoid.MouseRelease, 0
	return e.s.executor.DispatchMouseEvent(ctx, ev)
}

// ScriptClick calls click() on the element from page script.
func (e *element) ScriptClick(ctx context.Context) error {
	return e.s.callValue(ctx, e.id, scriptClickFunction, nil)
}

// HoverClick moves the pointer onto the element before clicking. Without
// humanoid input the pointer jumps straight to the center.
func (e *element) HoverClick(ctx context.Context) error {
	geo, err := e.geometry(ctx)
	if err != nil {
		return err
	}
	if h := e.s.humanoid; h != nil {
		return h.Click(ctx, geo)
	}
	x, y := center(geo)
	move := humanoid.MouseEventData{Type: humanoid.MouseMove, X: x, Y: y, Button: humanoid.ButtonNone}
	if err := e.s.executor.DispatchMouseEvent(ctx, move); err != nil {
		return err
	}
	return e.press(ctx, x, y)
}

// Activate focuses the element and presses Enter.
func (e *element) Activate(ctx context.Context) error {
	if err := e.Focus(ctx); err != nil {
		return err
	}
	return e.s.executor.SendKeys(ctx, kb.Enter)
}

func (e *element) Focus(ctx context.Context) error {
	err := e.s.RunActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.Focus().WithObjectID(e.id).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("%w: focus %s: %v", browser.ErrElementNotInteractable, e.label, classifyRemoteError(err))
	}
	return nil
}

// SendKeys focuses the element and types text as key events.
func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := e.Focus(ctx); err != nil {
		return err
	}
	return e.s.executor.SendKeys(ctx, text)
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.s.callValue(ctx, e.id, textFunction, &text)
	return text, err
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var value *string
	if err := e.s.callValue(ctx, e.id, attributeFunction(name), &value); err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (e *element) Displayed(ctx context.Context) (bool, error) {
	var ok bool
	err := e.s.callValue(ctx, e.id, displayedFunction, &ok)
	return ok, err
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	var ok bool
	err := e.s.callValue(ctx, e.id, enabledFunction, &ok)
	return ok, err
}

// FindElements looks up descendants of the element.
func (e *element) FindElements(ctx context.Context, loc selector.Locator) ([]browser.Element, error) {
	return e.s.query(ctx, e.id, loc, true)
}
