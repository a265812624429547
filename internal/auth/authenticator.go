// internal/auth/authenticator.go
package auth

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/climber/internal/action"
	"github.com/xkilldash9x/climber/internal/browser"
	"github.com/xkilldash9x/climber/internal/config"
	"github.com/xkilldash9x/climber/internal/selector"
)

// Step names reported in StepError.
const (
	StepCredentials      = "credentials"
	StepNavigate         = "navigate_login"
	StepUsername         = "username"
	StepPassword         = "password"
	StepSubmit           = "submit"
	StepProviderButton   = "provider_button"
	StepProviderRedirect = "provider_redirect"
	StepProviderUsername = "provider_username"
	StepUsernameNext     = "provider_username_next"
	StepProviderPassword = "provider_password"
	StepPasswordNext     = "provider_password_next"
	StepRedirect         = "landing_redirect"
	StepLandingMarker    = "landing_marker"
)

// Pauser waits for a duration.
type Pauser interface {
	Hesitate(ctx context.Context, d time.Duration) error
}

// Authenticator logs the session in. It runs once per run and never retries.
type Authenticator struct {
	actor    *action.Actor
	platform selector.PlatformSelectors
	login    selector.LoginSelectors
	provider selector.ProviderSelectors
	urls     config.PlatformConfig
	cfg      config.AuthConfig
	pauser   Pauser
	logger   *zap.Logger
	rng      *rand.Rand
}

// New creates an Authenticator from the selector profile and configuration.
func New(actor *action.Actor, profile selector.Profile, urls config.PlatformConfig, cfg config.AuthConfig, pauser Pauser, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		actor:    actor,
		platform: profile.Platform,
		login:    profile.Login,
		provider: profile.Provider,
		urls:     urls,
		cfg:      cfg,
		pauser:   pauser,
		logger:   logger.Named("auth"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Authenticate navigates to the login page and signs in with method. Any
// failed step is returned as a *StepError.
func (a *Authenticator) Authenticate(ctx context.Context, method Method, creds Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return a.fail(method, StepCredentials, errors.New("username and password are required"))
	}

	a.logger.Info("Signing in.", zap.String("method", string(method)), zap.String("account", creds.MaskedUsername()))
	log := a.logger.With(zap.String("method", string(method)))
	log.Debug("Navigating to login page.", zap.String("url", a.urls.LoginURL))
	if err := a.actor.Driver().Navigate(ctx, a.urls.LoginURL); err != nil {
		return a.fail(method, StepNavigate, err)
	}
	a.waitOverlay(ctx)

	var err error
	switch method {
	case MethodFirstParty:
		err = a.firstParty(ctx, creds)
	case MethodFederated:
		err = a.federated(ctx, creds)
	default:
		return a.fail(method, StepCredentials, errors.New("unsupported method"))
	}
	if err != nil {
		return err
	}

	if err := browser.WaitForURL(ctx, a.actor.Driver(), a.urls.LandingURLPattern, a.cfg.RedirectTimeout, a.actor.PollInterval()); err != nil {
		return a.fail(method, StepRedirect, err)
	}
	if _, err := a.actor.Find(ctx, a.platform.LandingMarker, a.cfg.RedirectTimeout); err != nil {
		return a.fail(method, StepLandingMarker, err)
	}
	log.Info("Authenticated.")
	return nil
}

func (a *Authenticator) firstParty(ctx context.Context, creds Credentials) error {
	m := MethodFirstParty
	if res := a.actor.AttemptType(ctx, a.login.Username, creds.Username, a.cfg.StepTimeout); !res.OK {
		return a.fail(m, StepUsername, res.Err)
	}
	if res := a.actor.AttemptType(ctx, a.login.Password, creds.Password, a.cfg.StepTimeout); !res.OK {
		return a.fail(m, StepPassword, res.Err)
	}
	if res := a.actor.AttemptClick(ctx, a.login.Submit, a.cfg.StepTimeout); !res.OK {
		return a.fail(m, StepSubmit, res.Err)
	}
	return nil
}

// federated walks the provider's two-page sign in. Provider inputs are
// focused first since its forms drop keystrokes sent to unfocused fields.
func (a *Authenticator) federated(ctx context.Context, creds Credentials) error {
	m := MethodFederated
	if res := a.actor.AttemptClick(ctx, a.provider.Continue, a.cfg.StepTimeout); !res.OK {
		return a.fail(m, StepProviderButton, res.Err)
	}
	if err := browser.WaitForURL(ctx, a.actor.Driver(), a.cfg.ProviderDomain, a.cfg.RedirectTimeout, a.actor.PollInterval()); err != nil {
		return a.fail(m, StepProviderRedirect, err)
	}

	if res := a.actor.AttemptType(ctx, a.provider.Username, creds.Username, a.cfg.StepTimeout, action.WithFocus()); !res.OK {
		return a.fail(m, StepProviderUsername, res.Err)
	}
	if res := a.actor.AttemptClick(ctx, a.provider.UsernameNext, a.cfg.StepTimeout); !res.OK {
		return a.fail(m, StepUsernameNext, res.Err)
	}

	// The provider animates the password page in.
	if err := a.pause(ctx); err != nil {
		return a.fail(m, StepProviderPassword, err)
	}
	if res := a.actor.AttemptType(ctx, a.provider.Password, creds.Password, a.cfg.StepTimeout, action.WithFocus()); !res.OK {
		return a.fail(m, StepProviderPassword, res.Err)
	}
	if res := a.actor.AttemptClick(ctx, a.provider.PasswordNext, a.cfg.StepTimeout); !res.OK {
		return a.fail(m, StepPasswordNext, res.Err)
	}
	return nil
}

// pause waits a random time in [ProviderPause/2, ProviderPause].
func (a *Authenticator) pause(ctx context.Context) error {
	hi := a.cfg.ProviderPause
	if hi <= 0 || a.pauser == nil {
		return ctx.Err()
	}
	lo := hi / 2
	return a.pauser.Hesitate(ctx, lo+time.Duration(a.rng.Int63n(int64(hi-lo)+1)))
}

func (a *Authenticator) waitOverlay(ctx context.Context) {
	if a.platform.LoadingOverlay.IsZero() {
		return
	}
	if !a.actor.WaitGone(ctx, a.platform.LoadingOverlay, a.cfg.StepTimeout) {
		a.logger.Debug("Loading overlay still visible, continuing.")
	}
}

func (a *Authenticator) fail(m Method, step string, err error) error {
	if err == nil {
		err = errors.New("step failed")
	}
	a.logger.Error("Authentication step failed.", zap.String("method", string(m)), zap.String("step", step), zap.Error(err))
	return &StepError{Method: m, Step: step, Err: err}
}
