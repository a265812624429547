// internal/frame/locator.go
package frame

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/selector"
)

// Locator finds the iframe that hosts the activity widget and switches the
// driver into it. The relay iframe that only carries postMessage traffic
// shares the content host and is skipped.
type Locator struct {
	driver   browser.Driver
	rules    selector.FrameRules
	content  *regexp.Regexp
	relay    *regexp.Regexp
	interval time.Duration
	logger   *zap.Logger
}

// New compiles the frame rules.
func New(driver browser.Driver, rules selector.FrameRules, interval time.Duration, logger *zap.Logger) (*Locator, error) {
	content, err := rules.ContentSrcPattern()
	if err != nil {
		return nil, fmt.Errorf("frame: content_src: %w", err)
	}
	relay, err := rules.RelaySrcPattern()
	if err != nil {
		return nil, fmt.Errorf("frame: relay_src: %w", err)
	}
	return &Locator{
		driver:   driver,
		rules:    rules,
		content:  content,
		relay:    relay,
		interval: interval,
		logger:   logger.Named("frame"),
	}, nil
}

// EnterActivityFrame waits up to timeout for the content frame and enters
// it. On failure it returns ErrFrameUnavailable with the driver at the
// top-level document.
func (l *Locator) EnterActivityFrame(ctx context.Context, timeout time.Duration) error {
	if l.driver.InFrame() {
		if err := l.driver.ExitFrame(ctx); err != nil {
			return fmt.Errorf("%w: leaving previous frame: %v", browser.ErrFrameUnavailable, err)
		}
	}

	var entered string
	relaySkipped := 0
	err := browser.Poll(ctx, timeout, l.interval, func(ctx context.Context) (bool, error) {
		el, relays, err := l.pick(ctx)
		relaySkipped = relays
		if err != nil || el == nil {
			return false, nil
		}
		if err := l.driver.EnterFrame(ctx, el); err != nil {
			// The frame may still be attaching; try again on the next poll.
			l.logger.Debug("Frame not enterable yet.", zap.String("frame", el.Describe()), zap.Error(err))
			_ = l.driver.ExitFrame(ctx)
			return false, nil
		}
		entered = el.Describe()
		return true, nil
	})
	if err != nil {
		if l.driver.InFrame() {
			_ = l.driver.ExitFrame(context.WithoutCancel(ctx))
		}
		l.logger.Debug("No content frame.", zap.Int("relay_frames", relaySkipped), zap.Error(err))
		return fmt.Errorf("%w: %v", browser.ErrFrameUnavailable, err)
	}

	l.logger.Debug("Entered content frame.", zap.String("frame", entered), zap.Int("relay_frames", relaySkipped))
	return nil
}

// pick returns the first iframe in document order that passes the rules,
// along with how many relay frames were passed over.
func (l *Locator) pick(ctx context.Context) (browser.Element, int, error) {
	frames, err := browser.FindFirst(ctx, l.driver, l.rules.Frame)
	if err != nil {
		return nil, 0, err
	}
	relays := 0
	for _, f := range frames {
		src, _, err := f.Attribute(ctx, "src")
		if err != nil || !l.content.MatchString(src) {
			continue
		}
		class, _, err := f.Attribute(ctx, "class")
		if err != nil {
			continue
		}
		if selector.IsRelayFrame(l.rules, l.relay, src, class) {
			relays++
			continue
		}
		if l.rules.RequireVisible {
			if shown, err := f.Displayed(ctx); err != nil || !shown {
				continue
			}
		}
		return f, relays, nil
	}
	return nil, relays, nil
}
