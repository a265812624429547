// internal/browser/session/cdp_executor.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/climber/internal/browser/humanoid"
)

const (
	mouseEventTimeout = 10 * time.Second
	keyEventTimeout   = 10 * time.Second
)

// cdpExecutor implements humanoid.Executor with chromedp actions.
type cdpExecutor struct {
	logger         *zap.Logger
	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error // Session.RunActions
}

var _ humanoid.Executor = (*cdpExecutor)(nil)

// Sleep pauses for d or until ctx is done.
func (e *cdpExecutor) Sleep(ctx context.Context, d time.Duration) error {
	return e.runActionsFunc(ctx, chromedp.Sleep(d))
}

// DispatchMouseEvent sends one pointer event in viewport coordinates.
func (e *cdpExecutor) DispatchMouseEvent(ctx context.Context, data humanoid.MouseEventData) error {
	p := input.DispatchMouseEvent(input.MouseType(data.Type), data.X, data.Y).
		WithButton(input.MouseButton(data.Button)).
		WithButtons(data.Buttons).
		WithClickCount(int64(data.ClickCount))

	opCtx, cancel := context.WithTimeout(ctx, mouseEventTimeout)
	defer cancel()

	err := e.runActionsFunc(opCtx, p)
	if err != nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		e.logger.Debug("Mouse event timed out.", zap.Duration("timeout", mouseEventTimeout))
		return fmt.Errorf("mouse event timed out after %v: %w", mouseEventTimeout, opCtx.Err())
	}
	return err
}

// SendKeys types keys into the focused element. Named keys from
// chromedp/kb are accepted.
func (e *cdpExecutor) SendKeys(ctx context.Context, keys string) error {
	opCtx, cancel := context.WithTimeout(ctx, keyEventTimeout)
	defer cancel()

	err := e.runActionsFunc(opCtx, chromedp.KeyEvent(keys))
	if err != nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		e.logger.Debug("Key events timed out.", zap.Duration("timeout", keyEventTimeout))
		return fmt.Errorf("key events timed out after %v: %w", keyEventTimeout, opCtx.Err())
	}
	return err
}
