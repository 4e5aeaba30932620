package connectivity_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/infrastructure/connectivity"
)

// scriptedDial answers from a toggle instead of the network.
type scriptedDial struct {
	up    atomic.Bool
	calls atomic.Int32
}

func (d *scriptedDial) dial(_ context.Context, _, _ string) (net.Conn, error) {
	d.calls.Add(1)
	if !d.up.Load() {
		return nil, errors.New("connection refused")
	}
	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

type statusLog struct {
	mu       sync.Mutex
	statuses []entity.ConnectivityStatus
}

func (l *statusLog) add(s entity.ConnectivityStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) get() []entity.ConnectivityStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]entity.ConnectivityStatus(nil), l.statuses...)
}

func TestMonitor_ReportsOnlyChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := &scriptedDial{}
	d.up.Store(true)
	m := connectivity.NewMonitor(connectivity.Config{Interval: 5 * time.Millisecond}, d.dial)

	ctx, cancel := context.WithCancel(context.Background())
	log := &statusLog{}
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, log.add) }()

	require.Eventually(t, func() bool { return d.calls.Load() >= 3 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []entity.ConnectivityStatus{entity.StatusSatisfied}, log.get())

	d.up.Store(false)
	require.Eventually(t, func() bool { return len(log.get()) == 2 }, 2*time.Second, time.Millisecond)

	d.up.Store(true)
	require.Eventually(t, func() bool { return len(log.get()) == 3 }, 2*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []entity.ConnectivityStatus{
		entity.StatusSatisfied,
		entity.StatusUnsatisfied,
		entity.StatusSatisfied,
	}, log.get())
}

func TestMonitor_FirstObservationIsReported(t *testing.T) {
	d := &scriptedDial{}
	m := connectivity.NewMonitor(connectivity.Config{Interval: time.Hour}, d.dial)

	ctx, cancel := context.WithCancel(context.Background())
	log := &statusLog{}
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, log.add) }()

	require.Eventually(t, func() bool { return len(log.get()) == 1 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, entity.StatusUnsatisfied, log.get()[0])
}

func TestMonitor_ProbeRealListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	m := connectivity.NewMonitor(connectivity.Config{ProbeAddress: addr, Timeout: time.Second}, nil)
	assert.Equal(t, entity.StatusSatisfied, m.Probe(context.Background()))

	require.NoError(t, ln.Close())
	assert.Equal(t, entity.StatusUnsatisfied, m.Probe(context.Background()))
}
