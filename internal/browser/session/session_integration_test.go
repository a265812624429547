// internal/browser/session/session_integration_test.go
package session

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/frame"
	"github.com/xkilldash9x/climber/internal/selector"
)

const mainPage = `<!DOCTYPE html>
<html><head><title>Career Climbs</title></head><body>
<h6>405 XP</h6>
<iframe class="lrn-xdomain" src="%[1]s/activity/xdomain/relay.html" width="300" height="80"></iframe>
<iframe class="activity" src="%[1]s/activity/item" width="600" height="300"></iframe>
<div id="wrap" style="position:relative;width:200px;height:60px">
  <button id="covered" style="width:200px;height:60px" onclick="document.getElementById('status').textContent='covered'">Continue</button>
  <div style="position:absolute;top:0;left:0;width:200px;height:60px;background:#fff"></div>
</div>
<button id="open" onclick="document.getElementById('status').textContent='opened'">Open</button>
<span id="status"></span>
</body></html>`

const activityPage = `<!DOCTYPE html>
<html><body>
<p class="question">Which path fits you?</p>
<label><input type="radio" name="q1" value="a"> Builder</label>
<button id="submit" onclick="this.textContent='Submitted'">Submit</button>
</body></html>`

const relayPage = `<!DOCTYPE html><html><body><p>relay</p></body></html>`

// newPlatformServer serves a dashboard-like page whose iframes load from a
// different host name, so they run out of process unless site isolation is
// disabled.
func newPlatformServer(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	frameOrigin := "http://localhost:" + port

	html := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/dashboard", html(fmt.Sprintf(mainPage, frameOrigin)))
	mux.HandleFunc("/activity/item", html(activityPage))
	mux.HandleFunc("/activity/xdomain/relay.html", html(relayPage))
	return srv.URL
}

func textOf(ctx context.Context, t *testing.T, d browser.Driver, loc selector.Locator) string {
	t.Helper()
	els, err := d.FindElements(ctx, loc)
	require.NoError(t, err)
	require.NotEmpty(t, els, "no element for %s", loc)
	text, err := els[0].Text(ctx)
	require.NoError(t, err)
	return text
}

func TestSessionAgainstBrowser(t *testing.T) {
	fixture := newTestFixture(t)
	s := fixture.Session
	base := newPlatformServer(t)

	ctx, cancel := context.WithTimeout(fixture.RootCtx, 60*time.Second)
	defer cancel()

	require.NoError(t, s.Navigate(ctx, base+"/dashboard"))
	require.NoError(t, browser.WaitSettled(ctx, s, 10*time.Second, 200*time.Millisecond))

	t.Run("XPathUnionInDocumentOrder", func(t *testing.T) {
		els, err := s.FindElements(ctx, selector.XPath("//button[@id='open'] | //h6"))
		require.NoError(t, err)
		require.Len(t, els, 2)
		first, err := els[0].Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "405 XP", first)
	})

	t.Run("CoveredButtonFallsBackToScriptClick", func(t *testing.T) {
		els, err := s.FindElements(ctx, selector.ID("covered"))
		require.NoError(t, err)
		require.Len(t, els, 1)

		err = els[0].Click(ctx)
		assert.ErrorIs(t, err, browser.ErrElementNotInteractable)
		assert.Empty(t, textOf(ctx, t, s, selector.ID("status")))

		require.NoError(t, els[0].ScriptClick(ctx))
		assert.Equal(t, "covered", textOf(ctx, t, s, selector.ID("status")))
	})

	t.Run("TrustedClick", func(t *testing.T) {
		els, err := s.FindElements(ctx, selector.ID("open"))
		require.NoError(t, err)
		require.Len(t, els, 1)
		require.NoError(t, els[0].Click(ctx))
		require.NoError(t, browser.Poll(ctx, 5*time.Second, 50*time.Millisecond, func(ctx context.Context) (bool, error) {
			els, err := s.FindElements(ctx, selector.ID("status"))
			if err != nil || len(els) == 0 {
				return false, err
			}
			text, err := els[0].Text(ctx)
			return text == "opened", err
		}))
	})

	t.Run("LookupScopedToElement", func(t *testing.T) {
		wraps, err := s.FindElements(ctx, selector.ID("wrap"))
		require.NoError(t, err)
		require.Len(t, wraps, 1)
		buttons, err := wraps[0].FindElements(ctx, selector.XPath("//button"))
		require.NoError(t, err)
		require.Len(t, buttons, 1)
		id, ok, err := buttons[0].Attribute(ctx, "id")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "covered", id)
	})

	t.Run("EntersContentFrameAcrossOrigins", func(t *testing.T) {
		locator, err := frame.New(s, selector.FrameRules{
			Frame:          selector.Of(selector.XPath("//iframe[@src]")),
			ContentSrc:     "/activity",
			RelaySrc:       "(?i)xdomain",
			RelayClasses:   []string{"lrn-xdomain"},
			RequireVisible: true,
		}, 100*time.Millisecond, fixture.Logger)
		require.NoError(t, err)

		require.NoError(t, locator.EnterActivityFrame(ctx, 15*time.Second))
		assert.True(t, s.InFrame())

		state, err := s.ReadyState(ctx)
		require.NoError(t, err)
		assert.Equal(t, "complete", state)

		relay, err := s.FindElements(ctx, selector.Text("p", "relay"))
		require.NoError(t, err)
		assert.Empty(t, relay, "entered the relay frame")

		submit, err := s.FindElements(ctx, selector.Text("button", "Submit"))
		require.NoError(t, err)
		require.Len(t, submit, 1)
		require.NoError(t, submit[0].Click(ctx))
		assert.Equal(t, "Submitted", textOf(ctx, t, s, selector.ID("submit")))

		require.NoError(t, s.ExitFrame(ctx))
		assert.False(t, s.InFrame())
		assert.Equal(t, "405 XP", textOf(ctx, t, s, selector.XPath("//h6")))
	})

	t.Run("Screenshot", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dashboard.png")
		require.NoError(t, s.Screenshot(ctx, path))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	})
}
