// internal/action/action.go
package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/config"
	"github.com/xkilldash9x/climber/internal/selector"
)

// Actor performs element interactions against a driver's active context.
// Primitives report failure through Result and never return errors.
type Actor struct {
	driver browser.Driver
	cfg    config.ActionConfig
	logger *zap.Logger
}

// New creates an Actor.
func New(driver browser.Driver, cfg config.ActionConfig, logger *zap.Logger) *Actor {
	return &Actor{
		driver: driver,
		cfg:    cfg,
		logger: logger.Named("action"),
	}
}

// Driver returns the driver the actor works on.
func (a *Actor) Driver() browser.Driver { return a.driver }

// PollInterval is the pacing used by every wait of the actor.
func (a *Actor) PollInterval() time.Duration { return a.cfg.PollInterval }

// AttemptClick waits up to timeout for an element of target that is both
// displayed and enabled, then clicks it with the fallback chain.
func (a *Actor) AttemptClick(ctx context.Context, target selector.Target, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = a.cfg.ClickTimeout
	}
	el, res := a.waitInteractable(ctx, target, timeout)
	if !res.OK {
		a.logFailure("click", target.String(), res)
		return res
	}
	return a.ClickElement(ctx, el, target.String())
}

// ClickElement runs the fallback chain on an element the caller already
// holds. No waiting is done.
func (a *Actor) ClickElement(ctx context.Context, el browser.Element, label string) Result {
	var (
		attempted []Strategy
		lastErr   error
	)
	refused := true
	for _, s := range clickStrategies {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			refused = false
			break
		}
		attempted = append(attempted, s)
		err := invoke(ctx, el, s)
		if err == nil {
			a.logger.Debug("Clicked.",
				zap.String("target", label),
				zap.String("strategy", string(s)),
				zap.Int("attempts", len(attempted)))
			return success(s, attempted)
		}
		a.logger.Debug("Click strategy failed.",
			zap.String("target", label),
			zap.String("strategy", string(s)),
			zap.Error(err))
		lastErr = err
		if !errors.Is(err, browser.ErrElementNotInteractable) {
			refused = false
		}
	}

	kind := FailureToolkit
	if refused {
		kind = FailureNotInteractable
	}
	res := failure(kind, lastErr, attempted)
	a.logFailure("click", label, res)
	return res
}

func invoke(ctx context.Context, el browser.Element, s Strategy) error {
	switch s {
	case StrategyDirect:
		return el.Click(ctx)
	case StrategyScript:
		return el.ScriptClick(ctx)
	case StrategyPointer:
		return el.HoverClick(ctx)
	case StrategyKeyboard:
		return el.Activate(ctx)
	default:
		return fmt.Errorf("unknown click strategy %q", s)
	}
}

// TypeOption adjusts AttemptType.
type TypeOption func(*typeOptions)

type typeOptions struct {
	focus bool
}

// WithFocus focuses the field explicitly before typing. Some provider
// forms ignore input sent to an unfocused field.
func WithFocus() TypeOption {
	return func(o *typeOptions) { o.focus = true }
}

// AttemptType waits up to timeout for target to be present and types text
// into it. There is no fallback chain.
func (a *Actor) AttemptType(ctx context.Context, target selector.Target, text string, timeout time.Duration, opts ...TypeOption) Result {
	var o typeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if timeout <= 0 {
		timeout = a.cfg.TypeTimeout
	}

	el, err := a.Find(ctx, target, timeout)
	if err != nil {
		res := failure(classifyWaitError(ctx, err), err, nil)
		a.logFailure("type", target.String(), res)
		return res
	}

	if o.focus {
		if err := el.Focus(ctx); err != nil {
			res := failure(classifyInteractionError(err), err, nil)
			a.logFailure("type", target.String(), res)
			return res
		}
	}
	if err := el.SendKeys(ctx, text); err != nil {
		res := failure(classifyInteractionError(err), err, nil)
		a.logFailure("type", target.String(), res)
		return res
	}

	// Typed text may be a credential; only its length is logged.
	a.logger.Debug("Typed.", zap.String("target", target.String()), zap.Int("length", len(text)))
	return Result{OK: true}
}

// Present reports whether target matches anything within timeout.
func (a *Actor) Present(ctx context.Context, target selector.Target, timeout time.Duration) bool {
	_, err := a.Find(ctx, target, timeout)
	return err == nil
}

// Find waits up to timeout for target and returns its first match.
func (a *Actor) Find(ctx context.Context, target selector.Target, timeout time.Duration) (browser.Element, error) {
	els, err := a.FindAll(ctx, target, timeout)
	if err != nil {
		return nil, err
	}
	return els[0], nil
}

// FindAll waits up to timeout for target and returns every match of the
// first candidate that matched.
func (a *Actor) FindAll(ctx context.Context, target selector.Target, timeout time.Duration) ([]browser.Element, error) {
	var (
		found   []browser.Element
		lastErr error
	)
	err := browser.Poll(ctx, timeout, a.cfg.PollInterval, func(ctx context.Context) (bool, error) {
		els, err := browser.FindFirst(ctx, a.driver, target)
		if err != nil {
			lastErr = err
			return false, nil
		}
		found = els
		return len(els) > 0, nil
	})
	if err == nil {
		return found, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%s: %w", target, lastErr)
	}
	return nil, fmt.Errorf("%s: %w", target, browser.ErrElementNotFound)
}

// WaitGone waits up to timeout for target to match nothing, for example a
// loading overlay. It reports whether the target disappeared.
func (a *Actor) WaitGone(ctx context.Context, target selector.Target, timeout time.Duration) bool {
	err := browser.Poll(ctx, timeout, a.cfg.PollInterval, func(ctx context.Context) (bool, error) {
		els, err := browser.FindFirst(ctx, a.driver, target)
		if err != nil {
			return false, nil
		}
		for _, el := range els {
			if shown, err := el.Displayed(ctx); err == nil && shown {
				return false, nil
			}
		}
		return true, nil
	})
	return err == nil
}

// waitInteractable polls until some match of target is displayed and
// enabled. On timeout the Result says whether anything was present.
func (a *Actor) waitInteractable(ctx context.Context, target selector.Target, timeout time.Duration) (browser.Element, Result) {
	var (
		chosen     browser.Element
		sawPresent bool
		lastErr    error
	)
	err := browser.Poll(ctx, timeout, a.cfg.PollInterval, func(ctx context.Context) (bool, error) {
		els, err := browser.FindFirst(ctx, a.driver, target)
		if err != nil {
			lastErr = err
			return false, nil
		}
		for _, el := range els {
			sawPresent = true
			if ok, err := interactable(ctx, el); err != nil {
				lastErr = err
			} else if ok {
				chosen = el
				return true, nil
			}
		}
		return false, nil
	})
	switch {
	case err == nil:
		return chosen, Result{OK: true}
	case ctx.Err() != nil:
		return nil, failure(FailureToolkit, ctx.Err(), nil)
	case sawPresent:
		return nil, failure(FailureNotInteractable, fmt.Errorf("%s: %w", target, browser.ErrElementNotInteractable), nil)
	case lastErr != nil:
		return nil, failure(FailureToolkit, lastErr, nil)
	default:
		return nil, failure(FailureNotFound, fmt.Errorf("%s: %w", target, browser.ErrElementNotFound), nil)
	}
}

func interactable(ctx context.Context, el browser.Element) (bool, error) {
	shown, err := el.Displayed(ctx)
	if err != nil || !shown {
		return false, err
	}
	return el.Enabled(ctx)
}

func classifyWaitError(ctx context.Context, err error) FailureKind {
	if ctx.Err() == nil && errors.Is(err, browser.ErrElementNotFound) {
		return FailureNotFound
	}
	return FailureToolkit
}

func classifyInteractionError(err error) FailureKind {
	if errors.Is(err, browser.ErrElementNotInteractable) {
		return FailureNotInteractable
	}
	return FailureToolkit
}

func (a *Actor) logFailure(op, target string, res Result) {
	a.logger.Info("Interaction failed.",
		zap.String("op", op),
		zap.String("target", target),
		zap.String("failure", res.Failure.String()),
		zap.Error(res.Err))
}
