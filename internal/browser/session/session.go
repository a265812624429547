// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/browser/humanoid"
	"github.com/xkilldash9x/climber/internal/config"
	"github.com/xkilldash9x/climber/internal/selector"
)

// objectGroup scopes every remote object the session creates so a
// navigation can release them together.
const objectGroup = "climber"

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("browser session is closed")

// Session drives a single Chrome tab over CDP. It implements browser.Driver.
type Session struct {
	id     string
	cfg    config.BrowserConfig
	logger *zap.Logger

	ctx         context.Context // tab context, carries the chromedp target
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	executor *cdpExecutor
	humanoid *humanoid.Humanoid // nil when humanoid input is disabled

	mu         sync.RWMutex
	frameDoc   runtime.RemoteObjectID // document of the entered frame, empty at top level
	frameLabel string

	closeOnce sync.Once
}

var _ browser.Driver = (*Session)(nil)

// New launches Chrome and opens a tab. The browser lives until Close, not
// until ctx is done; ctx only bounds the start-up.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	id := uuid.NewString()
	log := logger.Named("session").With(zap.String("session_id", id))

	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), AllocatorOptions(cfg)...)
	sugar := log.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	s := &Session{
		id:          id,
		cfg:         cfg,
		logger:      log,
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
	}
	s.executor = &cdpExecutor{logger: log, runActionsFunc: s.RunActions}
	if cfg.Humanoid.Enabled {
		s.humanoid = humanoid.New(humanoid.ConfigFrom(cfg.Humanoid), log, s.executor)
	}

	// The first Run allocates the browser and must not carry a deadline.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()
	select {
	case err := <-started:
		if err != nil {
			_ = s.Close(context.Background())
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-ctx.Done():
		_ = s.Close(context.Background())
		return nil, ctx.Err()
	}

	log.Info("Browser session started.",
		zap.Bool("headless", cfg.Headless),
		zap.Bool("humanoid", s.humanoid != nil))
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Close shuts the tab and the browser. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session.")
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		s.cancel()
		s.allocCancel()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	})
	return err
}

// RunActions runs chromedp actions against the tab, bounded by both the
// session lifetime and ctx.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Hesitate idles for d. With humanoid input enabled the pointer drifts
// while waiting.
func (s *Session) Hesitate(ctx context.Context, d time.Duration) error {
	if s.humanoid != nil {
		return s.humanoid.Hesitate(ctx, d)
	}
	return s.executor.Sleep(ctx, d)
}

// Navigate loads url in the top-level document. Any entered frame is left.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.resetFrame()

	navCtx := ctx
	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.cfg.NavigationTimeout)
		defer cancel()
	}

	s.logger.Info("Navigating.", zap.String("url", url))
	err := s.RunActions(navCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_ = runtime.ReleaseObjectGroup(objectGroup).Do(ctx)
		return nil
	}), chromedp.Navigate(url))
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}

	if s.humanoid != nil {
		// Reading time after a page load.
		if err := s.humanoid.CognitivePause(ctx, 800, 250); err != nil {
			return err
		}
	}
	return nil
}

// CurrentURL returns the top-level document URL.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := s.RunActions(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

// ReadyState returns document.readyState of the active context.
func (s *Session) ReadyState(ctx context.Context) (string, error) {
	root, err := s.activeRoot(ctx)
	if err != nil {
		return "", err
	}
	var state string
	err = s.callValue(ctx, root, `function() { return (this.ownerDocument || this).readyState; }`, &state)
	return state, err
}

// Screenshot writes a full-page PNG to path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.RunActions(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	s.logger.Info("Screenshot saved.", zap.String("path", path))
	return nil
}

// FindElements queries the active context.
func (s *Session) FindElements(ctx context.Context, loc selector.Locator) ([]browser.Element, error) {
	root, err := s.activeRoot(ctx)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, root, loc, false)
}

// EnterFrame makes frame's document the active context.
func (s *Session) EnterFrame(ctx context.Context, frame browser.Element) error {
	el, ok := frame.(*element)
	if !ok || el.s != s {
		return fmt.Errorf("%w: foreign element handle", browser.ErrFrameUnavailable)
	}

	var doc runtime.RemoteObjectID
	err := s.RunActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.DescribeNode().WithObjectID(el.id).WithDepth(1).WithPierce(true).Do(ctx)
		if err != nil {
			return err
		}
		if node.ContentDocument == nil {
			return errors.New("frame has no reachable content document")
		}
		obj, err := dom.ResolveNode().WithBackendNodeID(node.ContentDocument.BackendNodeID).WithObjectGroup(objectGroup).Do(ctx)
		if err != nil {
			return err
		}
		doc = obj.ObjectID
		return nil
	}))
	if err != nil {
		return fmt.Errorf("%w: %v", browser.ErrFrameUnavailable, err)
	}

	s.mu.Lock()
	s.frameDoc = doc
	s.frameLabel = el.label
	s.mu.Unlock()
	s.logger.Debug("Entered frame.", zap.String("frame", el.label))
	return nil
}

// ExitFrame returns to the top-level document.
func (s *Session) ExitFrame(ctx context.Context) error {
	s.resetFrame()
	return nil
}

// InFrame reports whether a frame is active.
func (s *Session) InFrame() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameDoc != ""
}

func (s *Session) resetFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameDoc != "" {
		s.logger.Debug("Left frame.", zap.String("frame", s.frameLabel))
	}
	s.frameDoc, s.frameLabel = "", ""
}

// activeRoot returns the document object lookups start from. The top-level
// document is resolved on each call since navigations invalidate it.
func (s *Session) activeRoot(ctx context.Context) (runtime.RemoteObjectID, error) {
	s.mu.RLock()
	doc := s.frameDoc
	s.mu.RUnlock()
	if doc != "" {
		return doc, nil
	}

	err := s.RunActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, exc, err := runtime.Evaluate("document").WithObjectGroup(objectGroup).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		doc = obj.ObjectID
		return nil
	}))
	return doc, err
}

// query evaluates loc under root and wraps each match. relative scopes
// XPath to root's subtree.
func (s *Session) query(ctx context.Context, root runtime.RemoteObjectID, loc selector.Locator, relative bool) ([]browser.Element, error) {
	q, err := loc.Compile()
	if err != nil {
		return nil, err
	}
	if relative && q.Engine == selector.EngineXPath {
		q = q.Relative()
	}

	var ids []runtime.RemoteObjectID
	err = s.RunActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		arr, exc, err := runtime.CallFunctionOn(queryFunction(q)).
			WithObjectID(root).
			WithObjectGroup(objectGroup).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if arr == nil || arr.ObjectID == "" {
			return nil
		}

		props, _, _, exc, err := runtime.GetProperties(arr.ObjectID).WithOwnProperties(true).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		ids = indexedObjects(props)
		return nil
	}))
	if err != nil {
		return nil, classifyRemoteError(err)
	}

	out := make([]browser.Element, len(ids))
	for i, id := range ids {
		out[i] = &element{s: s, id: id, label: fmt.Sprintf("%s[%d]", loc, i)}
	}
	return out, nil
}

// indexedObjects returns the node objects of an array's index properties
// in index order.
func indexedObjects(props []*runtime.PropertyDescriptor) []runtime.RemoteObjectID {
	type entry struct {
		idx int
		id  runtime.RemoteObjectID
	}
	var entries []entry
	for _, p := range props {
		idx, err := strconv.Atoi(p.Name)
		if err != nil || p.Value == nil || p.Value.ObjectID == "" || p.Value.Subtype != runtime.SubtypeNode {
			continue
		}
		entries = append(entries, entry{idx, p.Value.ObjectID})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	ids := make([]runtime.RemoteObjectID, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

// callValue calls fn on the object and decodes its JSON result into out.
func (s *Session) callValue(ctx context.Context, id runtime.RemoteObjectID, fn string, out interface{}) error {
	err := s.RunActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(id).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(res.Value), out)
	}))
	return classifyRemoteError(err)
}

// classifyRemoteError maps handle invalidation to ErrStaleContext.
func classifyRemoteError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "Could not find object") ||
		strings.Contains(msg, "Cannot find context") ||
		strings.Contains(msg, "Node is detached") {
		return fmt.Errorf("%w: %v", browser.ErrStaleContext, err)
	}
	return err
}
