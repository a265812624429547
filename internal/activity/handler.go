// internal/activity/handler.go
package activity

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/climber/internal/action"
	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/config"
	"github.com/xkilldash9x/climber/internal/selector"
)

// Pauser waits for a duration. The humanoid pauser keeps the pointer
// moving while it waits.
type Pauser interface {
	Hesitate(ctx context.Context, d time.Duration) error
}

// SleepPauser waits without any input.
type SleepPauser struct{}

func (SleepPauser) Hesitate(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler classifies the activity in the active frame and completes it.
type Handler struct {
	actor   *action.Actor
	sel     selector.ActivitySelectors
	cfg     config.ActivityConfig
	answers AnswerStrategy
	pauser  Pauser
	logger  *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewHandler creates a Handler. A nil answers strategy selects the first
// option; a nil pauser sleeps.
func NewHandler(actor *action.Actor, sel selector.ActivitySelectors, cfg config.ActivityConfig, answers AnswerStrategy, pauser Pauser, logger *zap.Logger) *Handler {
	if answers == nil {
		answers = FirstOption{}
	}
	if pauser == nil {
		pauser = SleepPauser{}
	}
	return &Handler{
		actor:   actor,
		sel:     sel,
		cfg:     cfg,
		answers: answers,
		pauser:  pauser,
		logger:  logger.Named("activity"),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CompleteCurrentActivity runs the probe cascade quiz, reflection, video,
// generic advance. The first probe whose marker is present decides the
// kind and no other handler runs. Each probe waits at most ProbeTimeout.
// The driver must already be inside the content frame.
func (h *Handler) CompleteCurrentActivity(ctx context.Context) Outcome {
	probes := []struct {
		kind   Kind
		marker selector.Target
		handle func(context.Context) Outcome
	}{
		{KindQuiz, h.sel.QuizMarker, h.handleQuiz},
		{KindReflection, h.sel.ReflectionMarker, h.handleReflection},
		{KindVideoOrPassive, h.sel.MediaMarker, h.handleVideo},
	}

	for _, p := range probes {
		if ctx.Err() != nil {
			return Outcome{Err: ctx.Err()}
		}
		if p.marker.IsZero() || !h.actor.Present(ctx, p.marker, h.cfg.ProbeTimeout) {
			continue
		}
		h.logger.Debug("Activity classified.", zap.Stringer("kind", p.kind))
		out := p.handle(ctx)
		out.Kind = p.kind
		h.logOutcome(out)
		return out
	}

	if ctx.Err() != nil {
		return Outcome{Err: ctx.Err()}
	}
	out := Outcome{Kind: KindUnknown, Fallback: true}
	if res := h.actor.AttemptClick(ctx, h.sel.Fallback, h.cfg.ProbeTimeout); res.OK {
		out.Completed = true
	} else {
		out.Err = ErrUnclassifiedActivity
	}
	h.logOutcome(out)
	return out
}

func (h *Handler) handleQuiz(ctx context.Context) Outcome {
	var out Outcome

	q := Question{}
	if !h.sel.QuizQuestion.IsZero() {
		if els, err := browser.FindFirst(ctx, h.actor.Driver(), h.sel.QuizQuestion); err == nil && len(els) > 0 {
			q.Text, _ = els[0].Text(ctx)
		}
	}
	out.Question = q.Text

	options, err := h.actor.FindAll(ctx, h.sel.QuizOption, h.cfg.ProbeTimeout)
	if err != nil || len(options) == 0 {
		out.Err = ErrNoOptions
		return out
	}
	for _, opt := range options {
		label, _ := opt.Text(ctx)
		q.Options = append(q.Options, label)
	}

	idx, err := h.answers.Choose(ctx, q)
	if err != nil {
		out.Err = fmt.Errorf("choose answer: %w", err)
		return out
	}
	if idx < 0 || idx >= len(options) {
		out.Err = fmt.Errorf("choose answer: index %d out of range for %d options", idx, len(options))
		return out
	}

	if res := h.actor.ClickElement(ctx, options[idx], fmt.Sprintf("%s[%d]", h.sel.QuizOption, idx)); !res.OK {
		out.Err = fmt.Errorf("select option %d: %w", idx, res.Err)
		return out
	}
	if err := h.think(ctx); err != nil {
		out.Err = err
		return out
	}
	return h.submit(ctx, out)
}

func (h *Handler) handleReflection(ctx context.Context) Outcome {
	var out Outcome
	if res := h.actor.AttemptType(ctx, h.sel.ReflectionMarker, h.cfg.ReflectionText, h.cfg.ProbeTimeout); !res.OK {
		out.Err = fmt.Errorf("enter reflection: %w", res.Err)
		return out
	}
	if err := h.think(ctx); err != nil {
		out.Err = err
		return out
	}
	return h.submit(ctx, out)
}

// handleVideo waits a random time in [VideoWatchMin, VideoWatchMax] and then
// continues. The page exposes no reliable end-of-playback signal, so the
// wait is a guess at the media length, not a completion check.
func (h *Handler) handleVideo(ctx context.Context) Outcome {
	var out Outcome
	wait := h.between(h.cfg.VideoWatchMin, h.cfg.VideoWatchMax)
	h.logger.Debug("Waiting for media.", zap.Duration("wait", wait))
	if err := h.pauser.Hesitate(ctx, wait); err != nil {
		out.Err = err
		return out
	}
	if res := h.actor.AttemptClick(ctx, h.sel.Continue, h.cfg.ProbeTimeout); !res.OK {
		out.Err = ErrContinueUnavailable
		return out
	}
	out.Completed = true
	return out
}

func (h *Handler) submit(ctx context.Context, out Outcome) Outcome {
	if res := h.actor.AttemptClick(ctx, h.sel.Submit, 0); !res.OK {
		out.Err = ErrSubmitUnavailable
		return out
	}
	out.Completed = true
	return out
}

func (h *Handler) think(ctx context.Context) error {
	return h.pauser.Hesitate(ctx, h.between(h.cfg.ThinkTimeMin, h.cfg.ThinkTimeMax))
}

// between returns a uniformly distributed duration in [lo, hi].
func (h *Handler) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	h.rngMu.Lock()
	defer h.rngMu.Unlock()
	return lo + time.Duration(h.rng.Int63n(int64(hi-lo)+1))
}

func (h *Handler) logOutcome(out Outcome) {
	fields := []zap.Field{
		zap.Stringer("kind", out.Kind),
		zap.Bool("completed", out.Completed),
		zap.Bool("fallback", out.Fallback),
	}
	if out.Err != nil {
		fields = append(fields, zap.Error(out.Err))
		h.logger.Warn("Activity not completed.", fields...)
		return
	}
	h.logger.Info("Activity completed.", fields...)
}
