package selector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dashboardSnapshot = `<!doctype html>
<html><body>
  <main class="climber-dashboard">
    <h6>405 XP</h6>
    <div class="assignment-card"><h5>Job Hunt Journey</h5><button>Continue</button></div>
    <div class="assignment-card"><h5>Interview Basics</h5><button>Start</button></div>
  </main>
  <iframe class="lrn-xdomain" src="https://items.learnosity.com/xdomain/frame.html"></iframe>
  <iframe class="activity" src="https://items.learnosity.com/v2023/activity?id=42"></iframe>
  <iframe src="https://www.youtube.com/embed/abc"></iframe>
</body></html>`

func TestInspect(t *testing.T) {
	doc, err := ParseSnapshot(strings.NewReader(dashboardSnapshot))
	require.NoError(t, err)

	report := Inspect(doc, mustDefault(t))
	assert.Equal(t, "hatsandladders@1.0.0", report.Profile)
	assert.Equal(t, 1, report.ContentFrames)
	assert.Equal(t, 1, report.RelayFrames)

	byTarget := make(map[string]int)
	for _, f := range report.Findings {
		require.NoError(t, f.Err, "locator %s", f.Locator)
		byTarget[f.Target] += f.Matches
		if f.Locator.Kind == KindCSS {
			assert.True(t, f.Skipped)
		}
	}
	assert.Equal(t, 1, byTarget["platform.landing_marker"])
	assert.Positive(t, byTarget["platform.assignment_entry"])
	assert.Positive(t, byTarget["platform.assignment_open"])

	unmatched := report.Unmatched()
	assert.Contains(t, unmatched, "platform.next_activity")
	assert.NotContains(t, unmatched, "platform.landing_marker")
}

func TestIsRelayFrame(t *testing.T) {
	p := mustDefault(t)
	relay, err := p.Frame.RelaySrcPattern()
	require.NoError(t, err)

	assert.True(t, IsRelayFrame(p.Frame, relay, "https://items.learnosity.com/XDomain/x.html", ""))
	assert.True(t, IsRelayFrame(p.Frame, relay, "https://items.learnosity.com/activity", "hidden LRN-XDOMAIN"))
	assert.False(t, IsRelayFrame(p.Frame, relay, "https://items.learnosity.com/activity", "activity"))
}
