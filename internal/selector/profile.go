package selector

import (
	"errors"
	"fmt"
	"regexp"
)

// Profile groups every selector one platform surface needs. Profiles are
// versioned so a markup change ships as a new profile version.
type Profile struct {
	Name        string            `yaml:"name"`
	Version     string            `yaml:"version"`
	Description string            `yaml:"description,omitempty"`
	Platform    PlatformSelectors `yaml:"platform"`
	Login       LoginSelectors    `yaml:"login"`
	Provider    ProviderSelectors `yaml:"provider"`
	Frame       FrameRules        `yaml:"frame"`
	Activity    ActivitySelectors `yaml:"activity"`
}

// PlatformSelectors cover the outer pages of the learning platform.
type PlatformSelectors struct {
	LandingMarker   Target `yaml:"landing_marker"`
	DashboardMarker Target `yaml:"dashboard_marker"`
	LoadingOverlay  Target `yaml:"loading_overlay,omitempty"`
	AssignmentEntry Target `yaml:"assignment_entry"`
	AssignmentTitle Target `yaml:"assignment_title,omitempty"`
	AssignmentOpen  Target `yaml:"assignment_open,omitempty"`
	NextActivity    Target `yaml:"next_activity"`
}

// LoginSelectors cover the first-party credential form.
type LoginSelectors struct {
	Username Target `yaml:"username"`
	Password Target `yaml:"password"`
	Submit   Target `yaml:"submit"`
}

// ProviderSelectors cover the federated identity provider pages.
type ProviderSelectors struct {
	Continue     Target `yaml:"continue"`
	Username     Target `yaml:"username"`
	UsernameNext Target `yaml:"username_next"`
	Password     Target `yaml:"password"`
	PasswordNext Target `yaml:"password_next"`
}

// FrameRules identify the activity content frame and exclude the relay frame
// that only carries cross-origin messages.
type FrameRules struct {
	Frame          Target   `yaml:"frame"`
	ContentSrc     string   `yaml:"content_src"`
	RelaySrc       string   `yaml:"relay_src,omitempty"`
	RelayClasses   []string `yaml:"relay_classes,omitempty"`
	RequireVisible bool     `yaml:"require_visible"`
}

// ActivitySelectors cover the widgets inside the content frame.
type ActivitySelectors struct {
	QuizMarker       Target `yaml:"quiz_marker"`
	QuizQuestion     Target `yaml:"quiz_question,omitempty"`
	QuizOption       Target `yaml:"quiz_option"`
	ReflectionMarker Target `yaml:"reflection_marker"`
	MediaMarker      Target `yaml:"media_marker"`
	Submit           Target `yaml:"submit"`
	Continue         Target `yaml:"continue"`
	Fallback         Target `yaml:"fallback"`
}

// Ref is the registry key of the profile, name@version.
func (p Profile) Ref() string { return p.Name + "@" + p.Version }

// ContentSrcPattern compiles FrameRules.ContentSrc.
func (f FrameRules) ContentSrcPattern() (*regexp.Regexp, error) {
	return regexp.Compile(f.ContentSrc)
}

// RelaySrcPattern compiles FrameRules.RelaySrc; nil when unset.
func (f FrameRules) RelaySrcPattern() (*regexp.Regexp, error) {
	if f.RelaySrc == "" {
		return nil, nil
	}
	return regexp.Compile(f.RelaySrc)
}

// Targets lists every target of the profile keyed by its dotted path. Optional
// targets that are empty are left out.
func (p Profile) Targets() []Target {
	named := []struct {
		key      string
		t        Target
		optional bool
	}{
		{"platform.landing_marker", p.Platform.LandingMarker, false},
		{"platform.dashboard_marker", p.Platform.DashboardMarker, false},
		{"platform.loading_overlay", p.Platform.LoadingOverlay, true},
		{"platform.assignment_entry", p.Platform.AssignmentEntry, false},
		{"platform.assignment_title", p.Platform.AssignmentTitle, true},
		{"platform.assignment_open", p.Platform.AssignmentOpen, true},
		{"platform.next_activity", p.Platform.NextActivity, false},
		{"login.username", p.Login.Username, false},
		{"login.password", p.Login.Password, false},
		{"login.submit", p.Login.Submit, false},
		{"provider.continue", p.Provider.Continue, false},
		{"provider.username", p.Provider.Username, false},
		{"provider.username_next", p.Provider.UsernameNext, false},
		{"provider.password", p.Provider.Password, false},
		{"provider.password_next", p.Provider.PasswordNext, false},
		{"frame.frame", p.Frame.Frame, false},
		{"activity.quiz_marker", p.Activity.QuizMarker, false},
		{"activity.quiz_question", p.Activity.QuizQuestion, true},
		{"activity.quiz_option", p.Activity.QuizOption, false},
		{"activity.reflection_marker", p.Activity.ReflectionMarker, false},
		{"activity.media_marker", p.Activity.MediaMarker, false},
		{"activity.submit", p.Activity.Submit, false},
		{"activity.continue", p.Activity.Continue, false},
		{"activity.fallback", p.Activity.Fallback, false},
	}

	out := make([]Target, 0, len(named))
	for _, n := range named {
		if n.optional && n.t.IsZero() {
			continue
		}
		if n.t.Name == "" {
			n.t.Name = n.key
		}
		out = append(out, n.t)
	}
	return out
}

// Validate checks that the profile is complete and every locator compiles.
func (p Profile) Validate() error {
	if p.Name == "" {
		return errors.New("selector: profile name is required")
	}
	if _, err := parseVersion(p.Version); err != nil {
		return fmt.Errorf("selector: profile %q: %w", p.Name, err)
	}

	var errs []error
	for _, t := range p.Targets() {
		if err := t.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Frame.ContentSrc == "" {
		errs = append(errs, errors.New("selector: frame.content_src is required"))
	} else if _, err := p.Frame.ContentSrcPattern(); err != nil {
		errs = append(errs, fmt.Errorf("selector: frame.content_src: %w", err))
	}
	if _, err := p.Frame.RelaySrcPattern(); err != nil {
		errs = append(errs, fmt.Errorf("selector: frame.relay_src: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("profile %s invalid: %w", p.Ref(), errors.Join(errs...))
	}
	return nil
}
