// Package infra implements infrastructure concerns (processes, platform probes, event output, journal).
package infra

import (
	"context"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// List returns (pid, name) for every process gopsutil can see.
// Processes that exit mid-scan are skipped.
func (pm *ProcessManagerImpl) List(ctx context.Context) ([]domain.ProcessEntry, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, &domain.ListingError{Err: err}
	}

	entries := make([]domain.ProcessEntry, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue // Process may have exited
		}
		entries = append(entries, domain.ProcessEntry{PID: int(p.Pid), Name: name})
	}
	return entries, nil
}

// Signal asks a process to quit. See signal_unix.go / signal_windows.go.
func (pm *ProcessManagerImpl) Signal(pid int) error {
	if pid <= 0 {
		return domain.ErrProcessNotFound
	}
	return classifyErr(requestQuit(pid))
}

// Kill terminates a process by PID using SIGKILL (TerminateProcess on Windows).
func (pm *ProcessManagerImpl) Kill(pid int) error {
	if pid <= 0 {
		return domain.ErrProcessNotFound
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return classifyErr(err)
	}
	return classifyErr(p.Kill())
}

// IsRunning checks if a PID exists and has not become a zombie.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		return false
	}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	status, err := p.Status()
	if err != nil {
		return true // Exists but unreadable; assume alive
	}
	for _, s := range status {
		if s == process.Zombie {
			return false
		}
	}
	return true
}

// NameOf looks up the name the OS currently reports for pid.
func (pm *ProcessManagerImpl) NameOf(ctx context.Context, pid int) (string, error) {
	if pid <= 0 {
		return "", domain.ErrProcessNotFound
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return "", classifyErr(err)
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		if !pm.IsRunning(pid) {
			return "", errors.Wrap(domain.ErrProcessNotFound, err.Error())
		}
		return "", classifyErr(err)
	}
	return name, nil
}

// GetCurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) GetCurrentPID() int {
	return os.Getpid()
}

// classifyErr maps OS errors onto the domain sentinels so callers can use errors.Is.
func classifyErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, process.ErrorProcessNotRunning),
		errors.Is(err, os.ErrProcessDone),
		errors.Is(err, syscall.ESRCH):
		return errors.Wrap(domain.ErrProcessNotFound, err.Error())
	case errors.Is(err, os.ErrPermission):
		return errors.Wrap(domain.ErrPermissionDenied, err.Error())
	default:
		return err
	}
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
