// Package resources composes the session pool, lease manager, operation
// recorder, and HTTP connection pool into a single owned resource tree
// with one well-defined, idempotent teardown path.
package resources

import (
	"time"

	"github.com/grimmkairos/automation-core/pkg/browser"
	"github.com/grimmkairos/automation-core/pkg/httpconn"
	"github.com/grimmkairos/automation-core/pkg/logging"
	"github.com/grimmkairos/automation-core/pkg/metrics"
	"github.com/grimmkairos/automation-core/pkg/session"
	"github.com/grimmkairos/automation-core/pkg/timing"
)

// defaultWait and pageLoadTimeout are the baseline bounds of
// DefaultTimingConfig, which New copies onto every pooled browser handle's
// configuration.
const (
	defaultWait     = 30 * time.Second
	pageLoadTimeout = 60 * time.Second
)

// TimingConfig holds the default wait, page-load timeout, and smart-delay
// table that New copies onto the browser.Config every pooled handle is
// launched with.
type TimingConfig struct {
	DefaultWait     time.Duration     `yaml:"default_wait"`
	PageLoadTimeout time.Duration     `yaml:"page_load_timeout"`
	SmartDelay      timing.SmartDelay `yaml:"smart_delay"`
}

// Config is the single immutable configuration the resource root is built
// from. One struct governs one process: the automation data model (pool,
// http, timing, metrics, browser) alongside the ambient logging
// configuration.
type Config struct {
	Pool    session.Config  `yaml:"pool"`
	HTTP    httpconn.Config `yaml:"http"`
	Timing  TimingConfig    `yaml:"timing"`
	Metrics metrics.Config  `yaml:"metrics"`
	Browser browser.Config  `yaml:"browser"`
	Logging logging.Config  `yaml:"logging"`
}

// DefaultConfig returns the baseline configuration for every sub-system.
func DefaultConfig() Config {
	return Config{
		Pool:    session.DefaultConfig(),
		HTTP:    httpconn.DefaultConfig(),
		Timing:  DefaultTimingConfig(),
		Metrics: metrics.Config{Enabled: true, MaxEvents: 1000},
		Browser: browser.DefaultConfig(),
		Logging: logging.DefaultConfig(),
	}
}

// DefaultTimingConfig returns the baseline wait/timeout/delay table.
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		DefaultWait:     defaultWait,
		PageLoadTimeout: pageLoadTimeout,
		SmartDelay:      timing.DefaultSmartDelay(),
	}
}
