// Package connectivity observes the network path by probing a TCP endpoint.
package connectivity

import (
	"context"
	"net"
	"time"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/logging"
)

const (
	DefaultProbeAddress  = "1.1.1.1:443"
	DefaultProbeInterval = 5 * time.Second
	DefaultProbeTimeout  = 3 * time.Second
)

// Config configures the monitor.
type Config struct {
	ProbeAddress string
	Interval     time.Duration
	Timeout      time.Duration
}

// DialFunc opens a connection. It matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Monitor reports satisfied when the probe address accepts a TCP connection.
type Monitor struct {
	cfg  Config
	dial DialFunc
}

var _ port.ConnectivityMonitor = (*Monitor)(nil)

// NewMonitor creates a monitor. A nil dial uses net.Dialer.
func NewMonitor(cfg Config, dial DialFunc) *Monitor {
	if cfg.ProbeAddress == "" {
		cfg.ProbeAddress = DefaultProbeAddress
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultProbeInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProbeTimeout
	}
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	return &Monitor{cfg: cfg, dial: dial}
}

// Run probes until ctx is done. onChange receives the first observation and
// then only transitions.
func (m *Monitor) Run(ctx context.Context, onChange func(entity.ConnectivityStatus)) error {
	log := logging.FromContext(ctx).With().Str("component", "connectivity").Logger()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	last := entity.StatusUnknown
	for {
		status := m.Probe(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if status != last {
			log.Debug().Str("status", status.String()).Str("probe", m.cfg.ProbeAddress).Msg("connectivity changed")
			last = status
			onChange(status)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Probe performs a single dial.
func (m *Monitor) Probe(ctx context.Context) entity.ConnectivityStatus {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	conn, err := m.dial(probeCtx, "tcp", m.cfg.ProbeAddress)
	if err != nil {
		return entity.StatusUnsatisfied
	}
	_ = conn.Close()
	return entity.StatusSatisfied
}
