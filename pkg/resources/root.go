package resources

import (
	"context"
	"sync"

	"github.com/grimmkairos/automation-core/pkg/auth"
	"github.com/grimmkairos/automation-core/pkg/browser"
	"github.com/grimmkairos/automation-core/pkg/httpconn"
	"github.com/grimmkairos/automation-core/pkg/logging"
	"github.com/grimmkairos/automation-core/pkg/metrics"
	"github.com/grimmkairos/automation-core/pkg/session"
)

// Root is the composite scoped-acquisition over every long-lived
// collaborator the core owns: the session pool, the lease manager, the
// operation recorder, and the HTTP connection pool. It is constructed once
// from an immutable Config and released exactly once via Close.
type Root struct {
	cfg Config
	log *logging.Logger

	Recorder *metrics.Recorder
	Pool     *session.Pool
	Manager  *session.Manager
	HTTP     *httpconn.Pool

	closeOnce sync.Once
}

// New builds a Root from cfg. authenticator may be nil if the caller never
// intends to use authenticated leases. The session pool's factory launches
// one browser.Handle per new session using cfg.Browser; the janitor and
// recorder sampler are not started here — callers opt in explicitly via
// Start.
func New(cfg Config, log *logging.Logger, authenticator auth.Authenticator) *Root {
	if log == nil {
		log = logging.NewDefault()
	}

	var sampler metrics.Sampler
	if cfg.Metrics.Enabled {
		sampler = metrics.NewHostSampler("")
	}
	recorder := metrics.New(cfg.Metrics, log.Named("metrics"), sampler)

	browserCfg := cfg.Browser
	browserCfg.DefaultWait = cfg.Timing.DefaultWait
	browserCfg.PageLoadTimeout = cfg.Timing.PageLoadTimeout
	browserCfg.SmartDelay = cfg.Timing.SmartDelay

	factory := func(ctx context.Context, id string) (session.Handle, error) {
		return browser.New(ctx, id, browserCfg, recorder)
	}

	pool := session.New(cfg.Pool, log.Named("session.pool"), recorder, factory)
	manager := session.NewManager(pool, authenticator)
	httpPool := httpconn.New(cfg.HTTP)

	return &Root{
		cfg:      cfg,
		log:      log,
		Recorder: recorder,
		Pool:     pool,
		Manager:  manager,
		HTTP:     httpPool,
	}
}

// Start launches the background janitor and, if metrics are enabled, the
// host-resource sampler. Idempotent by delegation to the underlying
// start methods.
func (r *Root) Start(ctx context.Context) {
	r.Pool.StartJanitor(ctx)
	if r.cfg.Metrics.Enabled && r.cfg.Metrics.SampleInterval > 0 {
		r.Recorder.StartSampling(r.cfg.Metrics.SampleInterval)
	}
}

// Close tears the root down in the fixed order: mark the pool for
// shutdown, wait for the janitor to exit and every session to drain, close
// the HTTP pool, then stop the recorder's sampler. Idempotent; the second
// and later calls are no-ops.
func (r *Root) Close() error {
	return r.CloseContext(context.Background())
}

// CloseContext is Close with an explicit bound on how long to wait for
// outstanding leases to drain before giving up.
func (r *Root) CloseContext(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.Pool.Shutdown()
		r.Pool.StopJanitor()

		if drainErr := r.Pool.WaitDrained(ctx); drainErr != nil {
			err = drainErr
		}

		if closeErr := r.HTTP.Close(); closeErr != nil && err == nil {
			err = closeErr
		}

		r.Recorder.StopSampling()
	})
	return err
}

// Drained reports whether every session has been retired. Useful for
// callers that want to confirm teardown finished releasing browser
// handles before exiting the process.
func (r *Root) Drained() bool {
	return r.Pool.Drained()
}
