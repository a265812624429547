// internal/browser/wait_test.go
package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/browser/browsertest"
	"github.com/xkilldash9x/climber/internal/selector"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoll(t *testing.T) {
	t.Run("returns as soon as the condition holds", func(t *testing.T) {
		calls := 0
		err := browser.Poll(context.Background(), time.Second, 5*time.Millisecond, func(context.Context) (bool, error) {
			calls++
			return calls == 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("times out with ErrTimeout", func(t *testing.T) {
		err := browser.Poll(context.Background(), 50*time.Millisecond, 5*time.Millisecond, func(context.Context) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, browser.ErrTimeout)
	})

	t.Run("condition errors abort the wait", func(t *testing.T) {
		boom := errors.New("boom")
		err := browser.Poll(context.Background(), time.Second, 5*time.Millisecond, func(context.Context) (bool, error) {
			return false, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("parent cancellation is reported as such", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := browser.Poll(ctx, time.Second, 5*time.Millisecond, func(context.Context) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, browser.ErrTimeout)
	})

	t.Run("evaluates at least once even with a tiny timeout", func(t *testing.T) {
		calls := 0
		err := browser.Poll(context.Background(), time.Nanosecond, time.Second, func(context.Context) (bool, error) {
			calls++
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestFindFirst(t *testing.T) {
	d := browsertest.NewDriver()
	primary := selector.ID("missing")
	secondary := selector.CSS("button.next")
	tertiary := selector.CSS("button")
	next := browsertest.NewElement(d, "next")
	d.Top.Add(secondary, next)
	d.Top.Add(tertiary, browsertest.NewElement(d, "other"), next)

	els, err := browser.FindFirst(context.Background(), d, selector.Of(primary, secondary, tertiary))
	require.NoError(t, err)
	require.Len(t, els, 1)
	assert.Equal(t, "next", els[0].Describe())

	none, err := browser.FindFirst(context.Background(), d, selector.Of(primary))
	assert.NoError(t, err)
	assert.Empty(t, none)

	d.FindErr = errors.New("cdp: target closed")
	_, err = browser.FindFirst(context.Background(), d, selector.Of(primary))
	assert.Error(t, err)
}

func TestWaitForURL(t *testing.T) {
	d := browsertest.NewDriver()
	d.SetURL("https://hatsandladders.com/login")

	go func() {
		time.Sleep(20 * time.Millisecond)
		d.SetURL("https://hatsandladders.com/climber/dashboard")
	}()
	require.NoError(t, browser.WaitForURL(context.Background(), d, "/climber/dashboard", time.Second, 5*time.Millisecond))

	err := browser.WaitForURL(context.Background(), d, "accounts.google.com", 30*time.Millisecond, 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrTimeout)
	assert.Contains(t, err.Error(), "climber/dashboard")
}

func TestWaitSettled(t *testing.T) {
	d := browsertest.NewDriver()
	d.Top.SetReadyState("loading")

	err := browser.WaitSettled(context.Background(), d, 60*time.Millisecond, 0)
	assert.ErrorIs(t, err, browser.ErrTimeout)

	d.Top.SetReadyState("complete")
	assert.NoError(t, browser.WaitSettled(context.Background(), d, time.Second, 10*time.Millisecond))
}
