package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

const selfPID = 999

// mockProcessManager implements domain.ProcessManager for testing.
type mockProcessManager struct {
	mu sync.Mutex

	processes     []domain.ProcessEntry
	running       map[int]bool
	listErr       error
	signalErr     map[int]error
	killErr       map[int]error
	exitOnSignal  bool           // process exits as soon as it is signalled
	reuseOnSignal map[int]string // pid is reused by a process with this name once signalled

	signalled []int
	killed    []int
	polls     int
}

func newMockProcessManager(procs ...domain.ProcessEntry) *mockProcessManager {
	m := &mockProcessManager{
		processes:     procs,
		running:       make(map[int]bool),
		signalErr:     make(map[int]error),
		killErr:       make(map[int]error),
		reuseOnSignal: make(map[int]string),
	}
	for _, p := range procs {
		m.running[p.PID] = true
	}
	return m
}

func (m *mockProcessManager) List(ctx context.Context) ([]domain.ProcessEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.ProcessEntry
	for _, p := range m.processes {
		if m.running[p.PID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProcessManager) Signal(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signalled = append(m.signalled, pid)
	if err := m.signalErr[pid]; err != nil {
		return err
	}
	if !m.running[pid] {
		return domain.ErrProcessNotFound
	}
	if m.exitOnSignal {
		m.running[pid] = false
	}
	if name, ok := m.reuseOnSignal[pid]; ok {
		m.rename(pid, name)
	}
	return nil
}

// rename gives pid a new owner, as if the old process exited and the pid was reused.
func (m *mockProcessManager) rename(pid int, name string) {
	for i := range m.processes {
		if m.processes[i].PID == pid {
			m.processes[i].Name = name
		}
	}
}

func (m *mockProcessManager) NameOf(ctx context.Context, pid int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running[pid] {
		return "", domain.ErrProcessNotFound
	}
	for _, p := range m.processes {
		if p.PID == pid {
			return p.Name, nil
		}
	}
	return "", domain.ErrProcessNotFound
}

func (m *mockProcessManager) Kill(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.killErr[pid]; err != nil {
		return err
	}
	if !m.running[pid] {
		return domain.ErrProcessNotFound
	}
	m.killed = append(m.killed, pid)
	m.running[pid] = false
	return nil
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
	return m.running[pid]
}

func (m *mockProcessManager) GetCurrentPID() int {
	return selfPID
}

// fakeClock drives the terminator's grace-period loop without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) { c.t = c.t.Add(d) }

// mockTerminator implements domain.Terminator for testing.
type mockTerminator struct {
	calls []domain.ProcessIdentity
}

func (m *mockTerminator) Terminate(ctx context.Context, id domain.ProcessIdentity) domain.TerminationOutcome {
	m.calls = append(m.calls, id)
	return domain.TerminationOutcome{PID: id.PID, Target: id.CanonicalName, Method: domain.MethodGraceful}
}

// mockSink implements domain.EventSink for testing.
type mockSink struct {
	activity  []domain.ActivitySnapshot
	processes []domain.ProcessEntry
	err       error
}

func (m *mockSink) EmitActivity(s domain.ActivitySnapshot) error {
	if m.err != nil {
		return m.err
	}
	m.activity = append(m.activity, s)
	return nil
}

func (m *mockSink) EmitNewProcess(e domain.ProcessEntry) error {
	if m.err != nil {
		return m.err
	}
	m.processes = append(m.processes, e)
	return nil
}

// scriptedProbe returns results in order, repeating the last one.
type scriptedProbe struct {
	results []probeResult
	calls   int
}

type probeResult struct {
	snapshot domain.ActivitySnapshot
	err      error
}

func (p *scriptedProbe) Sample(ctx context.Context) (domain.ActivitySnapshot, error) {
	i := p.calls
	if i >= len(p.results) {
		i = len(p.results) - 1
	}
	p.calls++
	return p.results[i].snapshot, p.results[i].err
}

// scriptedLister returns listings in order, repeating the last one.
type scriptedLister struct {
	listings [][]domain.ProcessEntry
	errs     []error
	calls    int
}

func (l *scriptedLister) List(ctx context.Context) ([]domain.ProcessEntry, error) {
	i := l.calls
	if i >= len(l.listings) {
		i = len(l.listings) - 1
	}
	l.calls++
	var err error
	if i < len(l.errs) {
		err = l.errs[i]
	}
	if err != nil {
		return nil, err
	}
	return l.listings[i], nil
}

// mockJournal implements domain.Journal for testing.
type mockJournal struct {
	recorded []domain.TerminationOutcome
	err      error
}

func (m *mockJournal) Record(ctx context.Context, o domain.TerminationOutcome) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, o)
	return nil
}

func (m *mockJournal) Recent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	return nil, nil
}

func (m *mockJournal) Close() error { return nil }
