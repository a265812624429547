// internal/activity/handler_test.go
package activity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/climber/internal/action"
	"github.com/xkilldash9x/climber/internal/browser/browsertest"
	"github.com/xkilldash9x/climber/internal/config"
	"github.com/xkilldash9x/climber/internal/selector"
)

var sel = selector.ActivitySelectors{
	QuizMarker:       selector.Of(selector.CSS(".lrn_mcq")),
	QuizQuestion:     selector.Of(selector.CSS(".lrn_stimulus_content")),
	QuizOption:       selector.Of(selector.CSS(".lrn-mcq-option")),
	ReflectionMarker: selector.Of(selector.CSS("textarea")),
	MediaMarker:      selector.Of(selector.CSS("video")),
	Submit:           selector.Of(selector.Text("button", "Submit")),
	Continue:         selector.Of(selector.Text("button", "Continue")),
	Fallback:         selector.Of(selector.Text("button", "Next"), selector.Text("button", "Done")),
}

type recordingPauser struct {
	mu     sync.Mutex
	waits  []time.Duration
	failOn int
}

func (p *recordingPauser) Hesitate(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, d)
	if p.failOn > 0 && len(p.waits) == p.failOn {
		return context.Canceled
	}
	return nil
}

func activityConfig() config.ActivityConfig {
	return config.ActivityConfig{
		ProbeTimeout:   30 * time.Millisecond,
		ThinkTimeMin:   time.Second,
		ThinkTimeMax:   2 * time.Second,
		ReflectionText: "I learned a lot.",
		VideoWatchMin:  20 * time.Second,
		VideoWatchMax:  40 * time.Second,
		AnswerStrategy: "first",
	}
}

type fixture struct {
	driver  *browsertest.Driver
	frame   *browsertest.Document
	pauser  *recordingPauser
	handler *Handler
}

func newFixture(t *testing.T, answers AnswerStrategy) *fixture {
	d := browsertest.NewDriver()
	frameEl := browsertest.NewElement(d, "content")
	frameEl.Frame = browsertest.NewDocument()
	require.NoError(t, d.EnterFrame(context.Background(), frameEl))

	actor := action.New(d, config.ActionConfig{
		ClickTimeout: 50 * time.Millisecond,
		TypeTimeout:  50 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}, zaptest.NewLogger(t))
	p := &recordingPauser{}
	return &fixture{
		driver:  d,
		frame:   frameEl.Frame,
		pauser:  p,
		handler: NewHandler(actor, sel, activityConfig(), answers, p, zaptest.NewLogger(t)),
	}
}

func (f *fixture) add(t selector.Target, label string) *browsertest.Element {
	el := browsertest.NewElement(f.driver, label)
	f.frame.AddTarget(t, el)
	return el
}

func TestQuizSelectsFirstOptionAndSubmits(t *testing.T) {
	f := newFixture(t, nil)
	f.add(sel.QuizMarker, "quiz")
	f.add(sel.QuizQuestion, "question").WithText("What is 2+2?")
	first := f.add(sel.QuizOption, "option-a").WithText("4")
	second := f.add(sel.QuizOption, "option-b").WithText("5")
	submit := f.add(sel.Submit, "submit")

	out := f.handler.CompleteCurrentActivity(context.Background())

	require.NoError(t, out.Err)
	assert.Equal(t, KindQuiz, out.Kind)
	assert.True(t, out.Completed)
	assert.False(t, out.Fallback)
	assert.Equal(t, "What is 2+2?", out.Question)
	assert.Equal(t, 1, first.Clicks())
	assert.Zero(t, second.Clicks())
	assert.Equal(t, 1, submit.Clicks())

	// The option is clicked before the think pause, the submit after it.
	assert.Equal(t, []string{"click:direct option-a", "click:direct submit"}, f.driver.CallsWithPrefix("click:"))
	require.Len(t, f.pauser.waits, 1)
	assert.GreaterOrEqual(t, f.pauser.waits[0], time.Second)
	assert.LessOrEqual(t, f.pauser.waits[0], 2*time.Second)
}

func TestQuizWinsOverReflection(t *testing.T) {
	f := newFixture(t, nil)
	f.add(sel.QuizMarker, "quiz")
	f.add(sel.QuizOption, "option").WithText("yes")
	textarea := f.add(sel.ReflectionMarker, "textarea")
	f.add(sel.Submit, "submit")

	out := f.handler.CompleteCurrentActivity(context.Background())

	assert.Equal(t, KindQuiz, out.Kind)
	assert.True(t, out.Completed)
	assert.Empty(t, textarea.Typed(), "reflection handler must not run once quiz is chosen")
}

func TestQuizFailures(t *testing.T) {
	t.Run("NoOptions", func(t *testing.T) {
		f := newFixture(t, nil)
		f.add(sel.QuizMarker, "quiz")
		submit := f.add(sel.Submit, "submit")

		out := f.handler.CompleteCurrentActivity(context.Background())
		assert.Equal(t, KindQuiz, out.Kind)
		assert.False(t, out.Completed)
		assert.ErrorIs(t, out.Err, ErrNoOptions)
		assert.Zero(t, submit.Clicks())
	})

	t.Run("NoSubmit", func(t *testing.T) {
		f := newFixture(t, nil)
		f.add(sel.QuizMarker, "quiz")
		opt := f.add(sel.QuizOption, "option")

		out := f.handler.CompleteCurrentActivity(context.Background())
		assert.False(t, out.Completed)
		assert.ErrorIs(t, out.Err, ErrSubmitUnavailable)
		assert.Equal(t, 1, opt.Clicks())
	})

	t.Run("StrategyError", func(t *testing.T) {
		boom := errors.New("oracle offline")
		f := newFixture(t, strategyFunc(func(context.Context, Question) (int, error) { return 0, boom }))
		f.add(sel.QuizMarker, "quiz")
		opt := f.add(sel.QuizOption, "option")

		out := f.handler.CompleteCurrentActivity(context.Background())
		assert.ErrorIs(t, out.Err, boom)
		assert.Zero(t, opt.Clicks())
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		f := newFixture(t, strategyFunc(func(context.Context, Question) (int, error) { return 3, nil }))
		f.add(sel.QuizMarker, "quiz")
		f.add(sel.QuizOption, "option")

		out := f.handler.CompleteCurrentActivity(context.Background())
		assert.Error(t, out.Err)
		assert.False(t, out.Completed)
	})
}

type strategyFunc func(context.Context, Question) (int, error)

func (f strategyFunc) Choose(ctx context.Context, q Question) (int, error) { return f(ctx, q) }

func TestQuizUsesAnswerTable(t *testing.T) {
	table := NewAnswerTable(map[string]string{"Which  colour is the SKY?": "blue"}, nil)
	f := newFixture(t, table)
	f.add(sel.QuizMarker, "quiz")
	f.add(sel.QuizQuestion, "question").WithText("which colour is the sky?")
	red := f.add(sel.QuizOption, "red").WithText("Red")
	blue := f.add(sel.QuizOption, "blue").WithText("Blue")
	f.add(sel.Submit, "submit")

	out := f.handler.CompleteCurrentActivity(context.Background())
	require.True(t, out.Completed)
	assert.Zero(t, red.Clicks())
	assert.Equal(t, 1, blue.Clicks())
}

func TestReflection(t *testing.T) {
	f := newFixture(t, nil)
	textarea := f.add(sel.ReflectionMarker, "textarea")
	submit := f.add(sel.Submit, "submit")

	out := f.handler.CompleteCurrentActivity(context.Background())

	require.NoError(t, out.Err)
	assert.Equal(t, KindReflection, out.Kind)
	assert.True(t, out.Completed)
	assert.Equal(t, []string{"I learned a lot."}, textarea.Typed())
	assert.Equal(t, 1, submit.Clicks())
	assert.Len(t, f.pauser.waits, 1)
}

func TestVideo(t *testing.T) {
	t.Run("WaitsThenContinues", func(t *testing.T) {
		f := newFixture(t, nil)
		f.add(sel.MediaMarker, "video")
		cont := f.add(sel.Continue, "continue")

		out := f.handler.CompleteCurrentActivity(context.Background())
		require.NoError(t, out.Err)
		assert.Equal(t, KindVideoOrPassive, out.Kind)
		assert.True(t, out.Completed)
		assert.Equal(t, 1, cont.Clicks())
		require.Len(t, f.pauser.waits, 1)
		assert.GreaterOrEqual(t, f.pauser.waits[0], 20*time.Second)
		assert.LessOrEqual(t, f.pauser.waits[0], 40*time.Second)
	})

	t.Run("NoContinueIsNonFatal", func(t *testing.T) {
		f := newFixture(t, nil)
		f.add(sel.MediaMarker, "video")

		out := f.handler.CompleteCurrentActivity(context.Background())
		assert.Equal(t, KindVideoOrPassive, out.Kind)
		assert.False(t, out.Completed)
		assert.ErrorIs(t, out.Err, ErrContinueUnavailable)
	})

	t.Run("PauseInterrupted", func(t *testing.T) {
		f := newFixture(t, nil)
		f.pauser.failOn = 1
		f.add(sel.MediaMarker, "video")
		cont := f.add(sel.Continue, "continue")

		out := f.handler.CompleteCurrentActivity(context.Background())
		assert.ErrorIs(t, out.Err, context.Canceled)
		assert.Zero(t, cont.Clicks())
	})
}

func TestFallback(t *testing.T) {
	t.Run("GenericControl", func(t *testing.T) {
		f := newFixture(t, nil)
		done := browsertest.NewElement(f.driver, "done")
		f.frame.Add(sel.Fallback.Candidates[1], done)

		out := f.handler.CompleteCurrentActivity(context.Background())
		assert.Equal(t, KindUnknown, out.Kind)
		assert.True(t, out.Fallback)
		assert.True(t, out.Completed)
		assert.NoError(t, out.Err)
		assert.Equal(t, 1, done.Clicks())
	})

	t.Run("NothingMatches", func(t *testing.T) {
		f := newFixture(t, nil)

		var out Outcome
		assert.NotPanics(t, func() { out = f.handler.CompleteCurrentActivity(context.Background()) })
		assert.Equal(t, KindUnknown, out.Kind)
		assert.False(t, out.Completed)
		assert.ErrorIs(t, out.Err, ErrUnclassifiedActivity)
		assert.Empty(t, f.driver.CallsWithPrefix("click:"))
	})
}

func TestCanceledContext(t *testing.T) {
	f := newFixture(t, nil)
	f.add(sel.QuizMarker, "quiz")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.handler.CompleteCurrentActivity(ctx)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.False(t, out.Completed)
}

func TestBetween(t *testing.T) {
	h := newFixture(t, nil).handler
	for i := 0; i < 100; i++ {
		d := h.between(time.Second, 2*time.Second)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 2*time.Second)
	}
	assert.Equal(t, time.Second, h.between(time.Second, time.Second))
}

func TestLoadAnswerTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
"What is the capital of France?": Paris
"Pick a prime": "7"
`), 0o600))

	table, err := LoadAnswerTable(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	idx, err := table.Choose(context.Background(), Question{
		Text:    "what is the capital of france?",
		Options: []string{"London", "Paris, France", "Rome"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "falls back to substring match")

	idx, err = table.Choose(context.Background(), Question{Text: "unknown", Options: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = table.Choose(context.Background(), Question{Text: "unknown"})
	assert.ErrorIs(t, err, ErrNoOptions)

	_, err = LoadAnswerTable(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- just\n- a list\n"), 0o600))
	_, err = LoadAnswerTable(bad, nil)
	assert.Error(t, err)
}

func TestSleepPauser(t *testing.T) {
	require.NoError(t, SleepPauser{}.Hesitate(context.Background(), time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepPauser{}.Hesitate(ctx, time.Hour), context.Canceled)
}
