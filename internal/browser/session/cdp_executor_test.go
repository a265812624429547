// internal/browser/session/cdp_executor_test.go
package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/climber/internal/browser/humanoid"
)

func TestCDPExecutor(t *testing.T) {
	logger := zaptest.NewLogger(t)

	capture := func(captured *[]chromedp.Action) func(context.Context, ...chromedp.Action) error {
		return func(ctx context.Context, actions ...chromedp.Action) error {
			*captured = append(*captured, actions...)
			return nil
		}
	}

	t.Run("Sleep", func(t *testing.T) {
		var actions []chromedp.Action
		e := &cdpExecutor{logger: logger, runActionsFunc: capture(&actions)}

		require.NoError(t, e.Sleep(context.Background(), 100*time.Millisecond))
		require.Len(t, actions, 1)
		assert.IsType(t, (chromedp.ActionFunc)(nil), actions[0])
	})

	t.Run("DispatchMouseEvent", func(t *testing.T) {
		var actions []chromedp.Action
		e := &cdpExecutor{logger: logger, runActionsFunc: capture(&actions)}

		data := humanoid.MouseEventData{
			Type:       humanoid.MousePress,
			X:          10.5,
			Y:          20.5,
			Button:     humanoid.ButtonLeft,
			Buttons:    1,
			ClickCount: 1,
		}
		require.NoError(t, e.DispatchMouseEvent(context.Background(), data))

		require.Len(t, actions, 1)
		p, ok := actions[0].(*input.DispatchMouseEventParams)
		require.True(t, ok, "action should be DispatchMouseEventParams")
		assert.Equal(t, input.MousePressed, p.Type)
		assert.Equal(t, input.Left, p.Button)
		assert.Equal(t, 10.5, p.X)
		assert.Equal(t, 20.5, p.Y)
		assert.Equal(t, int64(1), p.Buttons)
		assert.Equal(t, int64(1), p.ClickCount)
	})

	t.Run("DispatchMouseEventHasDeadline", func(t *testing.T) {
		var deadline time.Time
		e := &cdpExecutor{logger: logger, runActionsFunc: func(ctx context.Context, _ ...chromedp.Action) error {
			deadline, _ = ctx.Deadline()
			return nil
		}}

		require.NoError(t, e.DispatchMouseEvent(context.Background(), humanoid.MouseEventData{Type: humanoid.MouseMove}))
		assert.WithinDuration(t, time.Now().Add(mouseEventTimeout), deadline, time.Second)
	})

	t.Run("SendKeysPropagatesErrors", func(t *testing.T) {
		boom := errors.New("target closed")
		e := &cdpExecutor{logger: logger, runActionsFunc: func(context.Context, ...chromedp.Action) error {
			return boom
		}}
		assert.ErrorIs(t, e.SendKeys(context.Background(), "abc"), boom)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		e := &cdpExecutor{logger: logger, runActionsFunc: func(ctx context.Context, _ ...chromedp.Action) error {
			<-ctx.Done()
			return ctx.Err()
		}}
		err := e.DispatchMouseEvent(ctx, humanoid.MouseEventData{Type: humanoid.MouseMove})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
