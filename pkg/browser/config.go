// Package browser wraps a single browser engine tab (chromedp allocator and
// tab context) behind a small operation surface: navigate, locate, click,
// type, read, evaluate, screenshot. It knows nothing about pooling or
// sessions — that is pkg/session's job.
package browser

import (
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/grimmkairos/automation-core/pkg/timing"
)

// defaultWait and pageLoadTimeout are the baseline bounds a Handle applies
// when a caller's resources.Config.Timing doesn't override them.
const (
	defaultWait     = 30 * time.Second
	pageLoadTimeout = 60 * time.Second
)

// Config is the engine-launch surface a Handle is built from: custom
// binary, user-data directory, window size, headless, extra flags,
// translated into chromedp allocator options.
type Config struct {
	// Headless runs the engine without a visible window.
	Headless bool `yaml:"headless"`

	// WindowWidth/WindowHeight set the initial viewport/window size.
	// Both default to 1920x1080 when zero.
	WindowWidth  int `yaml:"window_width"`
	WindowHeight int `yaml:"window_height"`

	// BinaryPath overrides the engine executable location. Empty uses
	// whatever chromedp/cdproto discovers on PATH.
	BinaryPath string `yaml:"binary_path"`

	// UserDataDir, if set, persists the engine profile (cookies, local
	// storage, login state) across handles instead of starting fresh.
	UserDataDir string `yaml:"user_data_dir"`

	// DisableExtensions disables all browser extensions unless a
	// specific one (e.g. a captcha-solving extension) is configured via
	// ExtraFlags.
	DisableExtensions bool `yaml:"disable_extensions"`

	// ExtraFlags are appended verbatim as "--flag" or "--flag=value"
	// engine command-line switches, for anything this Config doesn't
	// name explicitly.
	ExtraFlags []string `yaml:"extra_flags"`

	// NoSandbox disables the engine's sandbox, typically required when
	// running as root or in a restricted container; it is the caller's
	// responsibility to set since this package makes no OS-detection
	// decisions of its own.
	NoSandbox bool `yaml:"no_sandbox"`

	// DefaultWait bounds Click/Type/ReadText/Evaluate: the engine call is
	// cancelled if it hasn't returned within this long. Populated from
	// resources.Config.Timing at construction, not parsed directly under
	// this Config's own YAML block.
	DefaultWait time.Duration `yaml:"-"`

	// PageLoadTimeout bounds Navigate; separate from DefaultWait since a
	// full page load routinely takes longer than a selector operation.
	PageLoadTimeout time.Duration `yaml:"-"`

	// SmartDelay is the per-operation settle delay applied after a
	// mutating call (Navigate, Click, Type, Evaluate) returns
	// successfully, giving the page time to react before the next call.
	SmartDelay timing.SmartDelay `yaml:"-"`
}

// DefaultConfig returns the baseline engine configuration: headless,
// 1920x1080, extensions disabled, running under the current user.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		WindowWidth:       1920,
		WindowHeight:      1080,
		DisableExtensions: true,
		DefaultWait:       defaultWait,
		PageLoadTimeout:   pageLoadTimeout,
		SmartDelay:        timing.DefaultSmartDelay(),
	}
}

// allocatorOptions translates Config into chromedp allocator options,
// building on chromedp's own default option set.
func (c Config) allocatorOptions() []chromedp.ExecAllocatorOption {
	width, height := c.WindowWidth, c.WindowHeight
	if width == 0 {
		width = 1920
	}
	if height == 0 {
		height = 1080
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", c.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-session-crashed-bubble", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("log-level", "3"),
		chromedp.WindowSize(width, height),
	)

	if c.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if c.DisableExtensions {
		opts = append(opts, chromedp.Flag("disable-extensions", true))
	}
	if c.BinaryPath != "" {
		opts = append(opts, chromedp.ExecPath(c.BinaryPath))
	}
	if c.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(c.UserDataDir))
	}
	for _, flag := range c.ExtraFlags {
		opts = append(opts, rawFlag(flag))
	}

	return opts
}

// rawFlag turns a "name" or "name=value" string into a chromedp.Flag,
// letting ExtraFlags carry anything this package doesn't name explicitly.
func rawFlag(flag string) chromedp.ExecAllocatorOption {
	name, value := flag, "true"
	for i := 0; i < len(flag); i++ {
		if flag[i] == '=' {
			name, value = flag[:i], flag[i+1:]
			break
		}
	}
	return chromedp.Flag(name, value)
}

func (c Config) String() string {
	return fmt.Sprintf("browser.Config{headless=%v, window=%dx%d}", c.Headless, c.WindowWidth, c.WindowHeight)
}
