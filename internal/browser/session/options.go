// internal/browser/session/options.go
package session

import (
	"sort"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/climber/internal/config"
)

// launchFlags returns the Chrome switches for cfg on top of chromedp's
// defaults. Keys carry no leading dashes.
func launchFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":               cfg.Headless,
		"no-sandbox":             true,
		"disable-dev-shm-usage":  true,
		"disable-popup-blocking": true,
		"mute-audio":             true,
		"autoplay-policy":        "no-user-gesture-required",
		"disable-blink-features": "AutomationControlled",
		"enable-automation":      false,
		"disable-infobars":       true,
		"disable-notifications":  true,
	}
	if cfg.DisableGPU {
		flags["disable-gpu"] = true
	}
	// Activity content is served cross-origin. With isolation off the frame
	// shares the page's renderer, so its document is reachable from the
	// main target.
	if cfg.DisableSiteIsolation {
		flags["disable-features"] = "IsolateOrigins,site-per-process"
		flags["disable-site-isolation-trials"] = true
	}

	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			flags[name] = value
		} else {
			flags[arg] = true
		}
	}
	return flags
}

// AllocatorOptions builds the exec allocator options for cfg.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	flags := launchFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
