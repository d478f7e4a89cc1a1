// Package health probes the backend in the background so the gateway can
// report readiness without a request of its own hitting a dead upstream.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the backend's reachability as last observed.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// Config holds probe settings. Zero values take defaults.
type Config struct {
	Interval      time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Snapshot is the checker state at one point in time.
type Snapshot struct {
	Status    Status    `json:"status"`
	Failures  int       `json:"consecutive_failures"`
	CheckedAt time.Time `json:"checked_at,omitzero"`
}

// Checker probes one URL periodically. The backend turns degraded after
// FailThreshold consecutive failures and healthy again on the next success.
type Checker struct {
	target     string
	httpClient *http.Client
	cfg        Config
	onProbe    func(success bool)
	logger     *zap.Logger

	mu        sync.Mutex
	fails     int
	status    Status
	checkedAt time.Time
}

// New creates a Checker for target.
func New(target string, cfg Config, logger *zap.Logger) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.FailThreshold <= 0 {
		cfg.FailThreshold = 3
	}
	return &Checker{
		target:     target,
		httpClient: &http.Client{Timeout: cfg.ProbeTimeout},
		cfg:        cfg,
		status:     StatusUnknown,
		logger:     logger,
	}
}

// OnProbe registers a callback run after every probe, e.g. for metrics.
func (c *Checker) OnProbe(fn func(success bool)) {
	c.onProbe = fn
}

// Run probes immediately and then every Interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	c.Probe(ctx)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Probe checks the target once and updates the status.
func (c *Checker) Probe(ctx context.Context) bool {
	ok := c.reachable(ctx)
	if c.onProbe != nil {
		c.onProbe(ok)
	}

	c.mu.Lock()
	prev := c.status
	if ok {
		c.fails = 0
		c.status = StatusHealthy
	} else {
		c.fails++
		if c.fails >= c.cfg.FailThreshold {
			c.status = StatusDegraded
		}
	}
	c.checkedAt = time.Now().UTC()
	next, fails := c.status, c.fails
	c.mu.Unlock()

	switch {
	case prev == StatusDegraded && next == StatusHealthy:
		c.logger.Info("health: backend recovered", zap.String("target", c.target))
	case prev != StatusDegraded && next == StatusDegraded:
		c.logger.Warn("health: backend degraded", zap.String("target", c.target), zap.Int("fail_count", fails))
	}
	return ok
}

// Snapshot returns the current state.
func (c *Checker) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Status: c.status, Failures: c.fails, CheckedAt: c.checkedAt}
}

// Ready reports whether requests should be sent to the backend. An unknown
// status counts as ready so that startup does not wait for the first probe.
func (c *Checker) Ready() bool {
	return c.Snapshot().Status != StatusDegraded
}

// reachable tries HEAD then GET. Any answer below 500 means the backend is
// up, since its root need not serve a 2xx.
func (c *Checker) reachable(ctx context.Context) bool {
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, c.target, nil)
		if err != nil {
			return false
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < http.StatusInternalServerError {
			return true
		}
	}
	return false
}
