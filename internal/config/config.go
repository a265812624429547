// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. A single value is built
// once at startup and handed to every component constructor.
type Config struct {
	Logger    LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Platform  PlatformConfig `mapstructure:"platform" yaml:"platform"`
	Auth      AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Selectors SelectorConfig `mapstructure:"selectors" yaml:"selectors"`
	Action    ActionConfig   `mapstructure:"action" yaml:"action"`
	Activity  ActivityConfig `mapstructure:"activity" yaml:"activity"`
	Walker    WalkerConfig   `mapstructure:"walker" yaml:"walker"`
	Run       RunConfig      `mapstructure:"run" yaml:"run"`
}

// LoggerConfig defines all the settings for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how the Chrome instance is launched.
type BrowserConfig struct {
	Headless     bool     `mapstructure:"headless" yaml:"headless"`
	DisableGPU   bool     `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
	UserDataDir  string   `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	ExecPath     string   `mapstructure:"exec_path" yaml:"exec_path"`
	Args         []string `mapstructure:"args" yaml:"args"`
	// DisableSiteIsolation keeps cross-origin iframes in the page's renderer
	// so their documents are reachable through the page target.
	DisableSiteIsolation bool           `mapstructure:"disable_site_isolation" yaml:"disable_site_isolation"`
	NavigationTimeout    time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Humanoid             HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
}

// HumanoidConfig exposes the handful of humanoid knobs worth tuning per run.
type HumanoidConfig struct {
	Enabled        bool `mapstructure:"enabled" yaml:"enabled"`
	ClickHoldMinMs int  `mapstructure:"click_hold_min_ms" yaml:"click_hold_min_ms"`
	ClickHoldMaxMs int  `mapstructure:"click_hold_max_ms" yaml:"click_hold_max_ms"`
}

// PlatformConfig holds the learning platform entry points.
type PlatformConfig struct {
	LoginURL          string `mapstructure:"login_url" yaml:"login_url"`
	DashboardURL      string `mapstructure:"dashboard_url" yaml:"dashboard_url"`
	LandingURLPattern string `mapstructure:"landing_url_pattern" yaml:"landing_url_pattern"`
	// ModuleURL, when set, skips the dashboard and walks a single module.
	ModuleURL string `mapstructure:"module_url" yaml:"module_url"`
}

// AuthConfig selects the login protocol and carries the credentials.
type AuthConfig struct {
	Method          string        `mapstructure:"method" yaml:"method"`
	Username        string        `mapstructure:"username" yaml:"username"`
	Password        string        `mapstructure:"password" yaml:"-"`
	ProviderDomain  string        `mapstructure:"provider_domain" yaml:"provider_domain"`
	StepTimeout     time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	RedirectTimeout time.Duration `mapstructure:"redirect_timeout" yaml:"redirect_timeout"`
	// ProviderPause is the upper bound of the random pause the provider gets
	// after the username step.
	ProviderPause time.Duration `mapstructure:"provider_pause" yaml:"provider_pause"`
}

// SelectorConfig picks the selector profile.
type SelectorConfig struct {
	Profile string `mapstructure:"profile" yaml:"profile"`
	File    string `mapstructure:"file" yaml:"file"`
}

// ActionConfig tunes the element interaction primitives.
type ActionConfig struct {
	ClickTimeout time.Duration `mapstructure:"click_timeout" yaml:"click_timeout"`
	TypeTimeout  time.Duration `mapstructure:"type_timeout" yaml:"type_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ActivityConfig tunes the activity classifier and handlers.
type ActivityConfig struct {
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	ThinkTimeMin   time.Duration `mapstructure:"think_time_min" yaml:"think_time_min"`
	ThinkTimeMax   time.Duration `mapstructure:"think_time_max" yaml:"think_time_max"`
	ReflectionText string        `mapstructure:"reflection_text" yaml:"reflection_text"`
	VideoWatchMin  time.Duration `mapstructure:"video_watch_min" yaml:"video_watch_min"`
	VideoWatchMax  time.Duration `mapstructure:"video_watch_max" yaml:"video_watch_max"`
	AnswerStrategy string        `mapstructure:"answer_strategy" yaml:"answer_strategy"`
	AnswersFile    string        `mapstructure:"answers_file" yaml:"answers_file"`
}

// WalkerConfig bounds the module and dashboard loops.
type WalkerConfig struct {
	MaxActivities  int           `mapstructure:"max_activities" yaml:"max_activities"`
	MaxAssignments int           `mapstructure:"max_assignments" yaml:"max_assignments"`
	SettleTimeout  time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
	SettleQuiet    time.Duration `mapstructure:"settle_quiet" yaml:"settle_quiet"`
	FrameTimeout   time.Duration `mapstructure:"frame_timeout" yaml:"frame_timeout"`
	AdvanceTimeout time.Duration `mapstructure:"advance_timeout" yaml:"advance_timeout"`
	MarkerTimeout  time.Duration `mapstructure:"marker_timeout" yaml:"marker_timeout"`
}

// RunConfig holds the outputs of a single run.
type RunConfig struct {
	ScreenshotPath string `mapstructure:"screenshot_path" yaml:"screenshot_path"`
	ReportPath     string `mapstructure:"report_path" yaml:"report_path"`
}

// NewDefaultConfig creates a new configuration with default values populated.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshal the defaults into the struct. Errors are ignored here since
	// the defaults are hardcoded.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SetDefaults sets the default values for the configuration in Viper.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "climber")
	v.SetDefault("logger.log_file", "climber.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.disable_site_isolation", true)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.humanoid.enabled", true)
	v.SetDefault("browser.humanoid.click_hold_min_ms", 50)
	v.SetDefault("browser.humanoid.click_hold_max_ms", 120)

	// -- Platform --
	v.SetDefault("platform.login_url", "https://hatsandladders.com/login")
	v.SetDefault("platform.dashboard_url", "https://hatsandladders.com/climber/dashboard")
	v.SetDefault("platform.landing_url_pattern", "/climber/dashboard")

	// -- Auth --
	v.SetDefault("auth.method", "federated")
	v.SetDefault("auth.provider_domain", "accounts.google.com")
	v.SetDefault("auth.step_timeout", "20s")
	v.SetDefault("auth.redirect_timeout", "45s")
	v.SetDefault("auth.provider_pause", "2s")

	// -- Selectors --
	v.SetDefault("selectors.profile", "hatsandladders")

	// -- Action --
	v.SetDefault("action.click_timeout", "10s")
	v.SetDefault("action.type_timeout", "10s")
	v.SetDefault("action.poll_interval", "250ms")

	// -- Activity --
	v.SetDefault("activity.probe_timeout", "3s")
	v.SetDefault("activity.think_time_min", "1s")
	v.SetDefault("activity.think_time_max", "2s")
	v.SetDefault("activity.reflection_text", "This activity helped me think about my goals and the steps I can take to reach them.")
	v.SetDefault("activity.video_watch_min", "20s")
	v.SetDefault("activity.video_watch_max", "40s")
	v.SetDefault("activity.answer_strategy", "first")

	// -- Walker --
	v.SetDefault("walker.max_activities", 200)
	v.SetDefault("walker.max_assignments", 100)
	v.SetDefault("walker.settle_timeout", "15s")
	v.SetDefault("walker.settle_quiet", "750ms")
	v.SetDefault("walker.frame_timeout", "10s")
	v.SetDefault("walker.advance_timeout", "10s")
	v.SetDefault("walker.marker_timeout", "20s")

	// -- Run --
	v.SetDefault("run.screenshot_path", "error_screenshot_final.png")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials come from the environment, never the config file.
	_ = v.BindEnv("auth.username", "CLIMBER_USERNAME")
	_ = v.BindEnv("auth.password", "CLIMBER_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// Credentials are checked separately by ValidateCredentials since commands
// like `profiles` never log in.
func (c *Config) Validate() error {
	if err := validateURL("platform.login_url", c.Platform.LoginURL); err != nil {
		return err
	}
	if err := validateURL("platform.dashboard_url", c.Platform.DashboardURL); err != nil {
		return err
	}
	if c.Platform.ModuleURL != "" {
		if err := validateURL("platform.module_url", c.Platform.ModuleURL); err != nil {
			return err
		}
	}
	if c.Platform.LandingURLPattern == "" {
		return fmt.Errorf("platform.landing_url_pattern is required")
	}
	if c.Auth.Method != "first_party" && c.Auth.Method != "federated" {
		return fmt.Errorf("auth.method must be one of first_party, federated (got %q)", c.Auth.Method)
	}
	if c.Auth.Method == "federated" && c.Auth.ProviderDomain == "" {
		return fmt.Errorf("auth.provider_domain is required for federated login")
	}
	if c.Selectors.Profile == "" {
		return fmt.Errorf("selectors.profile is required")
	}
	if c.Action.PollInterval <= 0 {
		return fmt.Errorf("action.poll_interval must be a positive duration")
	}
	if c.Action.ClickTimeout <= 0 || c.Action.TypeTimeout <= 0 {
		return fmt.Errorf("action timeouts must be positive durations")
	}
	if err := c.Activity.Validate(); err != nil {
		return fmt.Errorf("activity configuration invalid: %w", err)
	}
	if err := c.Walker.Validate(); err != nil {
		return fmt.Errorf("walker configuration invalid: %w", err)
	}
	if c.Browser.Humanoid.ClickHoldMaxMs < c.Browser.Humanoid.ClickHoldMinMs {
		return fmt.Errorf("browser.humanoid.click_hold_max_ms must not be below click_hold_min_ms")
	}
	return nil
}

// ValidateCredentials ensures a login can be attempted.
func (c *Config) ValidateCredentials() error {
	if c.Auth.Username == "" || c.Auth.Password == "" {
		return fmt.Errorf("credentials are required. Set CLIMBER_USERNAME and CLIMBER_PASSWORD")
	}
	return nil
}

// Validate checks the ActivityConfig settings.
func (a *ActivityConfig) Validate() error {
	if a.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be a positive duration")
	}
	if a.ThinkTimeMin < 0 || a.ThinkTimeMax < a.ThinkTimeMin {
		return fmt.Errorf("think_time_min/max must form a non-negative range")
	}
	if a.VideoWatchMin < 0 || a.VideoWatchMax < a.VideoWatchMin {
		return fmt.Errorf("video_watch_min/max must form a non-negative range")
	}
	switch a.AnswerStrategy {
	case "first":
	case "table":
		if a.AnswersFile == "" {
			return fmt.Errorf("answers_file is required for the table answer strategy")
		}
	default:
		return fmt.Errorf("answer_strategy must be one of first, table (got %q)", a.AnswerStrategy)
	}
	return nil
}

// Validate checks the WalkerConfig settings.
func (w *WalkerConfig) Validate() error {
	if w.MaxActivities <= 0 {
		return fmt.Errorf("max_activities must be greater than 0")
	}
	if w.MaxAssignments <= 0 {
		return fmt.Errorf("max_assignments must be greater than 0")
	}
	if w.SettleTimeout <= 0 || w.FrameTimeout <= 0 || w.AdvanceTimeout <= 0 || w.MarkerTimeout <= 0 {
		return fmt.Errorf("walker timeouts must be positive durations")
	}
	if w.SettleQuiet < 0 {
		return fmt.Errorf("settle_quiet must not be negative")
	}
	return nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL (got %q)", key, raw)
	}
	return nil
}
