// Package browsertest provides a scripted, in-memory implementation of the
// browser.Driver surface. It records every interaction so tests can assert
// on call order and frame discipline.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/selector"
)

// Strategy names recorded for the click variants.
const (
	Direct   = "direct"
	Script   = "script"
	Hover    = "hover"
	Activate = "activate"
)

// Document is a fake DOM: a mapping from locator to the elements it matches.
type Document struct {
	mu        sync.Mutex
	byLocator map[selector.Locator][]*Element
	ready     string
}

// NewDocument returns an empty, fully loaded document.
func NewDocument() *Document {
	return &Document{byLocator: make(map[selector.Locator][]*Element), ready: "complete"}
}

// Add appends els to the matches of loc.
func (d *Document) Add(loc selector.Locator, els ...*Element) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byLocator[loc] = append(d.byLocator[loc], els...)
	return d
}

// AddTarget registers els under the first candidate of t.
func (d *Document) AddTarget(t selector.Target, els ...*Element) *Document {
	return d.Add(t.Candidates[0], els...)
}

// Set replaces the matches of loc.
func (d *Document) Set(loc selector.Locator, els ...*Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(els) == 0 {
		delete(d.byLocator, loc)
		return
	}
	d.byLocator[loc] = els
}

// Remove drops every match of loc.
func (d *Document) Remove(loc selector.Locator) { d.Set(loc) }

// SetReadyState changes what ReadyState reports while this document is active.
func (d *Document) SetReadyState(state string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ready = state
}

func (d *Document) find(loc selector.Locator) []browser.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	els := d.byLocator[loc]
	out := make([]browser.Element, 0, len(els))
	for _, e := range els {
		out = append(out, e)
	}
	return out
}

// Driver is the fake browser.
type Driver struct {
	mu      sync.Mutex
	Top     *Document
	current *Document
	url     string
	calls   []string

	frameViolations []string

	// NavigateErr, when set, fails every navigation.
	NavigateErr error
	// FindErr, when set, fails every top-level or frame lookup.
	FindErr error
	// LookupErr, when set, is consulted per locator; a non-nil result fails
	// that lookup.
	LookupErr func(loc selector.Locator) error
	// OnNavigate runs after a successful navigation.
	OnNavigate func(d *Driver, url string)
}

var _ browser.Driver = (*Driver)(nil)

// NewDriver returns a driver positioned on an empty top-level document.
func NewDriver() *Driver {
	top := NewDocument()
	return &Driver{Top: top, current: top}
}

func (d *Driver) record(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded interaction log.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// CallsWithPrefix filters the log.
func (d *Driver) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range d.Calls() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// FrameViolations lists navigations issued while a frame context was active.
func (d *Driver) FrameViolations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.frameViolations...)
}

// SetURL changes the reported current URL without recording a navigation.
func (d *Driver) SetURL(u string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = u
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	d.mu.Lock()
	if d.current != d.Top {
		d.frameViolations = append(d.frameViolations, url)
	}
	err := d.NavigateErr
	d.mu.Unlock()

	d.record("navigate %s", url)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.url = url
	d.current = d.Top
	hook := d.OnNavigate
	d.mu.Unlock()
	if hook != nil {
		hook(d, url)
	}
	return nil
}

func (d *Driver) FindElements(ctx context.Context, loc selector.Locator) ([]browser.Element, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	d.mu.Lock()
	doc, err, lookup := d.current, d.FindErr, d.LookupErr
	d.mu.Unlock()
	if err == nil && lookup != nil {
		err = lookup(loc)
	}
	if err != nil {
		return nil, err
	}
	return doc.find(loc), nil
}

func (d *Driver) EnterFrame(ctx context.Context, frame browser.Element) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	el, ok := frame.(*Element)
	if !ok || el.Frame == nil {
		return browser.ErrStaleContext
	}
	d.record("enter-frame %s", el.Label)
	d.mu.Lock()
	d.current = el.Frame
	d.mu.Unlock()
	return nil
}

func (d *Driver) ExitFrame(ctx context.Context) error {
	d.record("exit-frame")
	d.mu.Lock()
	d.current = d.Top
	d.mu.Unlock()
	return nil
}

func (d *Driver) InFrame() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != d.Top
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *Driver) ReadyState(ctx context.Context) (string, error) {
	d.mu.Lock()
	doc := d.current
	d.mu.Unlock()
	doc.mu.Lock()
	defer doc.mu.Unlock()
	return doc.ready, nil
}

func (d *Driver) Screenshot(ctx context.Context, path string) error {
	d.record("screenshot %s", path)
	return nil
}
