// Package httpconn provides a pooled HTTP client for the side-channel
// requests the core makes outside the browser engine (e.g. polling a REST
// endpoint instead of scraping a rendered page). It wraps a single
// http.Transport tuned for connection reuse.
package httpconn

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Config bounds the pooled transport's connection behavior.
type Config struct {
	// MaxConnections caps idle connections held open across all hosts.
	MaxConnections int `yaml:"max_connections"`

	// MaxKeepAlive caps idle connections held open per host.
	MaxKeepAlive int `yaml:"max_keepalive"`

	// KeepAliveExpiry is how long an idle connection may sit before the
	// transport closes it.
	KeepAliveExpiry time.Duration `yaml:"keepalive_expiry"`

	// RequestTimeout bounds each request made through Client. Zero means
	// no per-request timeout beyond the caller's own context.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultConfig returns a reasonable pooled-client configuration.
func DefaultConfig() Config {
	return Config{
		MaxConnections:  100,
		MaxKeepAlive:    10,
		KeepAliveExpiry: 90 * time.Second,
		RequestTimeout:  30 * time.Second,
	}
}

// Pool owns one pooled *http.Transport and hands out *http.Client values
// built on top of it. It is a capability injected into the resource root;
// nothing in this package reaches for a process-global client.
type Pool struct {
	cfg       Config
	transport *http.Transport
}

// New builds a Pool from cfg, constructing its transport immediately.
func New(cfg Config) *Pool {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: cfg.KeepAliveExpiry,
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        cfg.MaxConnections,
		MaxIdleConnsPerHost: cfg.MaxKeepAlive,
		IdleConnTimeout:     cfg.KeepAliveExpiry,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(64),
	}

	return &Pool{cfg: cfg, transport: transport}
}

// Client returns an *http.Client sharing this pool's transport. Safe to
// call repeatedly and from multiple goroutines; every returned client
// reuses the same underlying connection pool.
func (p *Pool) Client() *http.Client {
	return &http.Client{
		Transport: p.transport,
		Timeout:   p.cfg.RequestTimeout,
	}
}

// CloseIdleConnections releases any connections sitting idle in the pool
// without affecting requests in flight.
func (p *Pool) CloseIdleConnections() {
	p.transport.CloseIdleConnections()
}

// Close shuts the pool down, closing idle connections. Idempotent; safe to
// call more than once.
func (p *Pool) Close() error {
	p.transport.CloseIdleConnections()
	return nil
}
