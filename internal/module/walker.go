// internal/module/walker.go
package module

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/climber/internal/action"
	"github.com/xkilldash9x/climber/internal/activity"
	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/config"
	"github.com/xkilldash9x/climber/internal/selector"
)

// ErrActivityBudgetExceeded is returned when walker.max_activities
// activities were processed and the advance control is still offered.
var ErrActivityBudgetExceeded = errors.New("activity budget exceeded")

// ActivityHandler completes the activity in the active frame.
type ActivityHandler interface {
	CompleteCurrentActivity(ctx context.Context) activity.Outcome
}

// FrameLocator switches the driver into the activity content frame.
type FrameLocator interface {
	EnterActivityFrame(ctx context.Context, timeout time.Duration) error
}

// Step records one advance of the walker.
type Step struct {
	Index   int  `json:"index"`
	InFrame bool `json:"in_frame"`
	activity.Outcome
	Error string `json:"error,omitempty"`
}

// Report summarizes one module walk.
type Report struct {
	Processed int    `json:"processed"`
	Steps     []Step `json:"steps,omitempty"`
}

// Completed counts the activities whose handler reported success.
func (r Report) Completed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Completed {
			n++
		}
	}
	return n
}

// Walker advances through the activities of one module page.
type Walker struct {
	actor   *action.Actor
	frames  FrameLocator
	handler ActivityHandler
	advance selector.Target
	cfg     config.WalkerConfig
	logger  *zap.Logger
}

// NewWalker creates a Walker. advance is the next-activity control on the
// module's outer page.
func NewWalker(actor *action.Actor, frames FrameLocator, handler ActivityHandler, advance selector.Target, cfg config.WalkerConfig, logger *zap.Logger) *Walker {
	return &Walker{
		actor:   actor,
		frames:  frames,
		handler: handler,
		advance: advance,
		cfg:     cfg,
		logger:  logger.Named("module"),
	}
}

// Walk clicks the advance control until it no longer appears, completing
// the activity behind each click. Activity failures are recorded in the
// report and never stop the walk. Walk returns an error only when ctx ends
// or the activity budget runs out.
func (w *Walker) Walk(ctx context.Context) (Report, error) {
	var report Report
	driver := w.actor.Driver()

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if driver.InFrame() {
			if err := driver.ExitFrame(ctx); err != nil {
				return report, fmt.Errorf("module: return to top level: %w", err)
			}
		}

		if report.Processed >= w.cfg.MaxActivities {
			if w.actor.Present(ctx, w.advance, w.cfg.AdvanceTimeout) {
				w.logger.Error("Advance control still present after activity budget.",
					zap.Int("max_activities", w.cfg.MaxActivities))
				return report, fmt.Errorf("%w: %d activities", ErrActivityBudgetExceeded, report.Processed)
			}
			break
		}

		res := w.actor.AttemptClick(ctx, w.advance, w.cfg.AdvanceTimeout)
		if !res.OK {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			break
		}
		report.Processed++
		step := Step{Index: report.Processed}
		log := w.logger.With(zap.Int("activity", step.Index))

		if err := browser.WaitSettled(ctx, driver, w.cfg.SettleTimeout, w.cfg.SettleQuiet); err != nil {
			log.Debug("Activity page did not settle.", zap.Error(err))
		}

		if err := w.frames.EnterActivityFrame(ctx, w.cfg.FrameTimeout); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			log.Info("No content frame, continuing.")
			report.Steps = append(report.Steps, step)
			continue
		}

		step.InFrame = true
		step.Outcome = w.complete(ctx)
		if step.Err != nil {
			step.Error = step.Err.Error()
		}
		report.Steps = append(report.Steps, step)

		if err := driver.ExitFrame(context.WithoutCancel(ctx)); err != nil {
			return report, fmt.Errorf("module: return to top level: %w", err)
		}
	}

	w.logger.Info("Module finished.",
		zap.Int("processed", report.Processed),
		zap.Int("completed", report.Completed()))
	return report, nil
}

// complete runs the handler and converts a panic into a failed outcome so
// the frame is always left.
func (w *Walker) complete(ctx context.Context) (out activity.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Activity handler panicked.", zap.Any("panic", r))
			out = activity.Outcome{Err: fmt.Errorf("activity handler panic: %v", r)}
		}
	}()
	return w.handler.CompleteCurrentActivity(ctx)
}
