// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/climber/internal/action"
	"github.com/xkilldash9x/climber/internal/activity"
	"github.com/xkilldash9x/climber/internal/auth"
	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/config"
	"github.com/xkilldash9x/climber/internal/dashboard"
	"github.com/xkilldash9x/climber/internal/frame"
	"github.com/xkilldash9x/climber/internal/module"
	"github.com/xkilldash9x/climber/internal/selector"
)

const screenshotTimeout = 15 * time.Second

// Run modes.
const (
	ModeDashboard = "dashboard"
	ModeModule    = "module"
)

// Orchestrator runs one login-and-walk pass over a single browser session.
// It does not own the driver; the caller closes it.
type Orchestrator struct {
	cfg     *config.Config
	driver  browser.Driver
	profile selector.Profile
	logger  *zap.Logger

	authn     *auth.Authenticator
	modules   *module.Walker
	dashboard *dashboard.Walker
}

// New resolves the selector profile and wires every component onto driver.
// pauser supplies think time and media waits; nil sleeps.
func New(cfg *config.Config, driver browser.Driver, pauser activity.Pauser, logger *zap.Logger) (*Orchestrator, error) {
	if cfg == nil || driver == nil || logger == nil {
		return nil, errors.New("cannot initialize orchestrator with nil dependencies")
	}
	profile, err := LoadProfile(cfg.Selectors)
	if err != nil {
		return nil, err
	}
	answers, err := answerStrategy(cfg.Activity)
	if err != nil {
		return nil, err
	}

	actor := action.New(driver, cfg.Action, logger)
	frames, err := frame.New(driver, profile.Frame, cfg.Action.PollInterval, logger)
	if err != nil {
		return nil, err
	}
	handler := activity.NewHandler(actor, profile.Activity, cfg.Activity, answers, pauser, logger)
	modules := module.NewWalker(actor, frames, handler, profile.Platform.NextActivity, cfg.Walker, logger)

	return &Orchestrator{
		cfg:       cfg,
		driver:    driver,
		profile:   profile,
		logger:    logger.Named("orchestrator"),
		authn:     auth.New(actor, profile, cfg.Platform, cfg.Auth, pauser, logger),
		modules:   modules,
		dashboard: dashboard.New(actor, modules, profile.Platform, cfg.Platform.DashboardURL, cfg.Walker, logger),
	}, nil
}

// LoadProfile resolves the configured selector profile from the built-in
// registry plus the optional profile file.
func LoadProfile(cfg config.SelectorConfig) (selector.Profile, error) {
	reg, err := selector.DefaultRegistry()
	if err != nil {
		return selector.Profile{}, err
	}
	if cfg.File != "" {
		if err := reg.LoadFile(cfg.File); err != nil {
			return selector.Profile{}, err
		}
	}
	return reg.Lookup(cfg.Profile)
}

func answerStrategy(cfg config.ActivityConfig) (activity.AnswerStrategy, error) {
	if cfg.AnswerStrategy != "table" {
		return activity.FirstOption{}, nil
	}
	table, err := activity.LoadAnswerTable(cfg.AnswersFile, activity.FirstOption{})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Run authenticates and then walks either the configured module or every
// dashboard assignment. The report is returned even when the run fails; a
// failed run also gets a screenshot when run.screenshot_path is set.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Profile:   o.profile.Ref(),
		Mode:      ModeDashboard,
		StartedAt: time.Now().UTC(),
	}
	if o.cfg.Platform.ModuleURL != "" {
		report.Mode = ModeModule
	}
	log := o.logger.With(zap.String("run_id", report.RunID))
	log.Info("Run starting.", zap.String("mode", report.Mode), zap.String("profile", report.Profile))

	err := o.run(ctx, report, log)
	report.FinishedAt = time.Now().UTC()
	if err != nil {
		report.Error = err.Error()
		log.Error("Run failed.", zap.Error(err))
		o.captureScreenshot(ctx, report, log)
		return report, err
	}

	log.Info("Run finished.",
		zap.Int("activities", report.Activities()),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, report *Report, log *zap.Logger) error {
	method, err := auth.ParseMethod(o.cfg.Auth.Method)
	if err != nil {
		return err
	}
	report.Method = method

	creds := auth.Credentials{Username: o.cfg.Auth.Username, Password: o.cfg.Auth.Password}
	if err := o.authn.Authenticate(ctx, method, creds); err != nil {
		return err
	}

	if report.Mode == ModeModule {
		return o.walkModule(ctx, report, log)
	}
	summary, err := o.dashboard.ProcessAll(ctx)
	report.Dashboard = &summary
	return err
}

func (o *Orchestrator) walkModule(ctx context.Context, report *Report, log *zap.Logger) error {
	if o.driver.InFrame() {
		if err := o.driver.ExitFrame(ctx); err != nil {
			return fmt.Errorf("return to top level: %w", err)
		}
	}
	url := o.cfg.Platform.ModuleURL
	log.Info("Walking module directly.", zap.String("url", url))
	if err := o.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("open module %s: %w", url, err)
	}
	if err := browser.WaitSettled(ctx, o.driver, o.cfg.Walker.SettleTimeout, o.cfg.Walker.SettleQuiet); err != nil {
		log.Debug("Module page did not settle.", zap.Error(err))
	}
	result, err := o.modules.Walk(ctx)
	report.Module = &result
	return err
}

func (o *Orchestrator) captureScreenshot(ctx context.Context, report *Report, log *zap.Logger) {
	path := o.cfg.Run.ScreenshotPath
	if path == "" {
		return
	}
	// The run context may already be canceled.
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), screenshotTimeout)
	defer cancel()
	if err := o.driver.Screenshot(shotCtx, path); err != nil {
		log.Warn("Could not capture error screenshot.", zap.Error(err))
		return
	}
	report.Screenshot = path
	log.Info("Saved error screenshot.", zap.String("path", path))
}
