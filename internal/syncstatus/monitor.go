package syncstatus

import (
	"context"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/logging"
)

// Pinger probes remote reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DefaultCheckInterval is used when a monitor is given a non-positive interval.
const DefaultCheckInterval = 3 * time.Second

// Monitor turns periodic pings into SetOffline / SetOnline calls.
type Monitor struct {
	pinger   Pinger
	ctrl     *Controller
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger

	online *bool
}

func NewMonitor(p Pinger, ctrl *Controller, interval time.Duration, logger logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.Discard()
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Monitor{pinger: p, ctrl: ctrl, interval: interval, timeout: 3 * time.Second, logger: logger}
}

// Check probes once and reports a transition if connectivity changed.
// It returns the observed connectivity. A cancelled ctx reports nothing
// and returns the last known connectivity.
func (m *Monitor) Check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(pingCtx)
	cancel()

	if ctx.Err() != nil {
		return m.online != nil && *m.online
	}

	online := err == nil
	if m.online != nil && *m.online == online {
		return online
	}
	m.online = &online

	if online {
		m.logger.Info(ctx, "connectivity restored")
		m.ctrl.SetOnline()
	} else {
		m.logger.Warn(ctx, "went offline", "error", err)
		m.ctrl.SetOffline()
	}
	return online
}

// Run checks immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
