// Package health tracks whether the news service is reachable.
package health

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avvvet/newsbuddy/internal/metrics"
	"github.com/avvvet/newsbuddy/internal/newsapi"
)

const DefaultInterval = 60 * time.Second

// Monitor polls the health endpoint on its own ticker and exposes the result as a
// flag. It never blocks chat calls.
type Monitor struct {
	provider newsapi.StatusProvider
	interval time.Duration
	logger   *slog.Logger

	connected atomic.Bool

	mu       sync.RWMutex
	docs     map[string]any
	onChange []func(connected bool)
}

// NewMonitor starts optimistic: the flag is up until a probe fails.
func NewMonitor(provider newsapi.StatusProvider, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m := &Monitor{
		provider: provider,
		interval: interval,
		logger:   logger.With("component", "health"),
	}
	m.connected.Store(true)
	metrics.SetConnected(true)
	return m
}

// OnChange registers a callback invoked from the polling goroutine after every flip.
func (m *Monitor) OnChange(fn func(connected bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

func (m *Monitor) Connected() bool {
	return m.connected.Load()
}

// Docs returns the API description fetched after the first successful probe, or nil.
func (m *Monitor) Docs() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs
}

// Run probes immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("starting health monitor", "interval", m.interval.String())

	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("health monitor stopped")
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one probe, updates the flag and returns it.
func (m *Monitor) Check(ctx context.Context) bool {
	_, err := m.provider.Health(ctx)
	if ctx.Err() != nil {
		// Shutting down; keep the last known state.
		return m.Connected()
	}

	up := err == nil
	if err != nil {
		m.logger.Debug("health probe failed", "error_kind", newsapi.KindOf(err), "error", err)
	}

	if up && m.Docs() == nil {
		m.fetchDocs(ctx)
	}

	if m.connected.Swap(up) != up {
		m.logger.Info("news service connectivity changed", "connected", up)
		metrics.SetConnected(up)
		m.notify(up)
	}
	return up
}

func (m *Monitor) fetchDocs(ctx context.Context) {
	docs, err := m.provider.Docs(ctx)
	if err != nil {
		m.logger.Warn("could not fetch API docs", "error", err)
		return
	}

	m.mu.Lock()
	m.docs = docs
	m.mu.Unlock()
	m.logger.Debug("fetched API docs", "keys", len(docs))
}

func (m *Monitor) notify(up bool) {
	m.mu.RLock()
	callbacks := append(([]func(bool))(nil), m.onChange...)
	m.mu.RUnlock()

	for _, fn := range callbacks {
		fn(up)
	}
}
