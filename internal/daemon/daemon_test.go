package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// scriptedCycler returns results in order, then repeats CycleEmitted.
type scriptedCycler struct {
	mu      sync.Mutex
	results []domain.CycleResult
	err     error
	calls   int
}

func (c *scriptedCycler) Cycle(ctx context.Context) (domain.CycleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if c.err != nil && i == len(c.results) {
		return domain.CycleEmitted, c.err
	}
	if i < len(c.results) {
		return c.results[i], nil
	}
	return domain.CycleEmitted, nil
}

func (c *scriptedCycler) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type countingPoller struct {
	calls int32
	err   error
}

func (p *countingPoller) Poll(ctx context.Context) ([]domain.ProcessEntry, error) {
	atomic.AddInt32(&p.calls, 1)
	return nil, p.err
}

func TestNewLoops_Defaults(t *testing.T) {
	a := NewActivityLoop(&scriptedCycler{}, 0, zap.NewNop())
	assert.Equal(t, 2*time.Second, a.interval)

	tr := NewTrackerLoop(&countingPoller{}, -time.Second, zap.NewNop())
	assert.Equal(t, time.Second, tr.interval)
}

func TestActivityLoop_FirstCycleImmediate(t *testing.T) {
	c := &scriptedCycler{results: []domain.CycleResult{domain.CycleTerminated}}
	loop := NewActivityLoop(c, time.Hour, zap.NewNop())

	err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Calls())
}

func TestActivityLoop_StopsAfterTermination(t *testing.T) {
	c := &scriptedCycler{results: []domain.CycleResult{
		domain.CycleEmitted, domain.CycleSkipped, domain.CycleTerminated,
	}}
	loop := NewActivityLoop(c, 5*time.Millisecond, zap.NewNop())

	err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Calls(), "no cycles after TERMINATED")
}

func TestActivityLoop_SinkErrorIsFatal(t *testing.T) {
	c := &scriptedCycler{results: []domain.CycleResult{domain.CycleEmitted}, err: domain.ErrSinkClosed}
	loop := NewActivityLoop(c, 5*time.Millisecond, zap.NewNop())

	err := loop.Run(context.Background())
	assert.True(t, errors.Is(err, domain.ErrSinkClosed))
	assert.Equal(t, 2, c.Calls())
}

func TestActivityLoop_Cancellation(t *testing.T) {
	c := &scriptedCycler{}
	loop := NewActivityLoop(c, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, c.Calls(), 2)
}

func TestTrackerLoop_PollsUntilCancelled(t *testing.T) {
	p := &countingPoller{}
	loop := NewTrackerLoop(p, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&p.calls), int32(2))
}

func TestTrackerLoop_SinkErrorIsFatal(t *testing.T) {
	p := &countingPoller{err: domain.ErrSinkClosed}
	loop := NewTrackerLoop(p, time.Hour, zap.NewNop())

	err := loop.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrSinkClosed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls))
}

func TestMonitor_TerminationStopsTracker(t *testing.T) {
	c := &scriptedCycler{results: []domain.CycleResult{domain.CycleEmitted, domain.CycleTerminated}}
	p := &countingPoller{}
	m := NewMonitor(
		NewActivityLoop(c, 10*time.Millisecond, zap.NewNop()),
		NewTrackerLoop(p, time.Millisecond, zap.NewNop()),
		zap.NewNop(),
	)

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after termination")
	}
}

func TestMonitor_TrackerFailureStopsActivity(t *testing.T) {
	c := &scriptedCycler{}
	p := &countingPoller{err: domain.ErrSinkClosed}
	m := NewMonitor(
		NewActivityLoop(c, time.Millisecond, zap.NewNop()),
		NewTrackerLoop(p, time.Millisecond, zap.NewNop()),
		zap.NewNop(),
	)

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrSinkClosed)
}

func TestMonitor_ShutdownIsClean(t *testing.T) {
	m := NewMonitor(
		NewActivityLoop(&scriptedCycler{}, time.Millisecond, zap.NewNop()),
		NewTrackerLoop(&countingPoller{}, time.Millisecond, zap.NewNop()),
		zap.NewNop(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	assert.NoError(t, m.Run(ctx))
}

func TestMonitor_SingleLoop(t *testing.T) {
	p := &countingPoller{}
	m := NewMonitor(nil, NewTrackerLoop(p, time.Millisecond, zap.NewNop()), zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Deadline is not a clean shutdown signal.
	err := m.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
