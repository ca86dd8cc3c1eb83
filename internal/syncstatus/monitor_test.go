package syncstatus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedPinger struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *scriptedPinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *scriptedPinger) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *scriptedPinger) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestMonitor_CheckReportsTransitionsOnce(t *testing.T) {
	p := &scriptedPinger{err: errors.New("unreachable")}
	c := New()
	m := NewMonitor(p, c, time.Hour, nil)

	var phases []Phase
	c.Subscribe(func(s State) { phases = append(phases, s.Phase) })

	assert.False(t, m.Check(context.Background()))
	assert.False(t, m.Check(context.Background()))
	require.Equal(t, PhaseOffline, c.State().Phase)

	p.set(nil)
	assert.True(t, m.Check(context.Background()))
	assert.True(t, m.Check(context.Background()))
	require.Equal(t, PhaseIdle, c.State().Phase)

	assert.Equal(t, []Phase{PhaseOffline, PhaseIdle}, phases)
}

func TestMonitor_RunPollsUntilCancelled(t *testing.T) {
	p := &scriptedPinger{}
	c := New()
	m := NewMonitor(p, c, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.count() >= 3 }, time.Second, 5*time.Millisecond)

	p.set(errors.New("down"))
	require.Eventually(t, func() bool { return c.State().Phase == PhaseOffline }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestMonitor_NonPositiveIntervalFallsBack(t *testing.T) {
	m := NewMonitor(&scriptedPinger{}, New(), 0, nil)
	assert.Equal(t, DefaultCheckInterval, m.interval)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { m.Run(ctx) })
}

func TestMonitor_ShutdownIsNotReportedAsOffline(t *testing.T) {
	p := &scriptedPinger{}
	c := New()
	m := NewMonitor(p, c, time.Hour, nil)
	require.True(t, m.Check(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.set(context.Canceled)

	assert.True(t, m.Check(ctx))
	assert.Equal(t, PhaseIdle, c.State().Phase)
}
