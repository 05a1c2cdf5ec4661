// Package app coordinates the registry's lifecycle: the current catalog
// snapshot, the set of listening HTTP servers, and the mutual exclusion
// between scanning and serving that the wire protocol requires.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/deepdreamgames/pachka/internal/catalog"
	"github.com/deepdreamgames/pachka/internal/config"
	"github.com/deepdreamgames/pachka/internal/httpapi"
	"github.com/deepdreamgames/pachka/internal/logging"
	"github.com/deepdreamgames/pachka/internal/metrics"
)

// App owns the running state a shell session drives: the published catalog
// snapshot, the servers bound to the configured endpoints, and the config
// that governs the next scan.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	level   zap.AtomicLevel
	metrics *metrics.Metrics

	catalog atomic.Pointer[catalog.Catalog]

	// mu serializes Start/Stop/Restart/Scan against each other; a scan
	// requires the server to already be stopped, so this single lock is
	// enough to make the two operations mutually exclusive.
	mu      sync.Mutex
	servers []*http.Server
	running bool
}

// New constructs an App with an empty catalog; call Scan before Start to
// have anything to serve.
func New(cfg config.Config, logger *zap.Logger, level zap.AtomicLevel, m *metrics.Metrics) *App {
	a := &App{cfg: cfg, logger: logger, level: level, metrics: m}
	a.catalog.Store(&catalog.Catalog{})
	return a
}

// Scan rebuilds the catalog from the configured packages directory and
// atomically publishes it. It refuses to run while the server is up, since
// the wire protocol's snapshot-consistency guarantee depends on scans and
// serving never overlapping.
func (a *App) Scan(ctx context.Context) (catalog.ScanStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return catalog.ScanStats{}, fmt.Errorf("app: cannot scan while the server is running; stop it first")
	}

	cat, stats, err := catalog.Scan(ctx, catalog.ScanOptions{
		Dir:        a.cfg.Path,
		Extensions: a.cfg.Extensions,
		Logger:     a.logger,
		OnFailure:  func(reason string) { a.metrics.IncrementScanFailure(reason) },
	})
	if err != nil {
		return catalog.ScanStats{}, err
	}
	a.catalog.Store(cat)
	a.metrics.ObserveScan(stats.Duration, cat.Len())
	a.metrics.SetCircuitBreakerOpen(stats.BreakerOpen)
	a.logger.Info("scan complete",
		zap.Int("candidates", stats.Candidates),
		zap.Int("ingested", stats.Ingested),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// Start binds one net.Listener per configured endpoint and begins serving
// the current catalog snapshot. Each accepted request is dispatched by
// net/http's own per-connection goroutine, so the acceptor loop itself
// never blocks on a handler.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("app: already running")
	}

	handler := httpapi.NewRouter(&httpapi.Server{
		Catalog:     func() *catalog.Catalog { return a.catalog.Load() },
		PackagesDir: a.cfg.Path,
		Logger:      a.logger,
		Metrics:     a.metrics,
	})

	var servers []*http.Server
	for _, endpoint := range a.cfg.Endpoints {
		addr, err := addrFromEndpoint(endpoint)
		if err != nil {
			for _, s := range servers {
				s.Close()
			}
			return err
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			for _, s := range servers {
				s.Close()
			}
			return fmt.Errorf("app: binding %s: %w", addr, err)
		}
		servers = append(servers, srv)
		go func(srv *http.Server, ln net.Listener, endpoint string) {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				a.logger.Error("listener error", zap.String("endpoint", endpoint), zap.Error(err))
			}
		}(srv, ln, endpoint)
		a.logger.Info("listening", zap.String("endpoint", endpoint), zap.String("addr", addr))
	}

	a.servers = servers
	a.running = true
	return nil
}

// Stop closes every listening server, draining in-flight requests to
// completion before returning.
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopLocked()
}

func (a *App) stopLocked() error {
	if !a.running {
		return fmt.Errorf("app: not running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var firstErr error
	for _, srv := range a.servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.servers = nil
	a.running = false
	return firstErr
}

// Restart stops and starts the server, leaving the currently published
// catalog untouched.
func (a *App) Restart() error {
	a.mu.Lock()
	if a.running {
		if err := a.stopLocked(); err != nil {
			a.mu.Unlock()
			return err
		}
	}
	a.mu.Unlock()
	return a.Start()
}

// List summarizes the current catalog for the shell's `list` command.
func (a *App) List() []PackageSummary {
	cat := a.catalog.Load()
	if cat == nil {
		return nil
	}
	var out []PackageSummary
	for _, name := range cat.Names() {
		pkg, ok := cat.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, PackageSummary{Name: pkg.Name, Latest: pkg.Latest, Versions: pkg.Len()})
	}
	return out
}

// PackageSummary is one line of `list` output.
type PackageSummary struct {
	Name     string
	Latest   string
	Versions int
}

// Running reports whether the server is currently accepting connections.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// SetVerbosity retunes the logger's level at runtime without restarting
// anything.
func (a *App) SetVerbosity(level logging.Level) {
	logging.SetLevel(a.level, level)
}

// addrFromEndpoint extracts host:port from a configured URL-prefix endpoint
// (e.g. "http://localhost:4873/"), defaulting to port 80 for http and 443
// for https when the endpoint names no explicit port.
func addrFromEndpoint(endpoint string) (string, error) {
	trimmed := strings.TrimSuffix(endpoint, "/")
	defaultPort := "80"
	switch {
	case strings.HasPrefix(trimmed, "https://"):
		defaultPort = "443"
		trimmed = strings.TrimPrefix(trimmed, "https://")
	case strings.HasPrefix(trimmed, "http://"):
		trimmed = strings.TrimPrefix(trimmed, "http://")
	}
	if trimmed == "" {
		return "", fmt.Errorf("app: empty endpoint")
	}
	if !strings.Contains(trimmed, ":") {
		trimmed += ":" + defaultPort
	}
	return trimmed, nil
}
