// Package usecase contains application business logic.
package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

const (
	DefaultGracePeriod  = 3 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

// TerminatorImpl implements domain.Terminator: ask nicely, wait, force, then sweep
// every other process whose name matches the block list.
type TerminatorImpl struct {
	processManager domain.ProcessManager
	matcher        domain.Matcher
	gracePeriod    time.Duration
	pollInterval   time.Duration
	logger         *zap.Logger
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration)
}

// NewTerminator creates a terminator. Non-positive durations fall back to the defaults.
func NewTerminator(
	pm domain.ProcessManager,
	matcher domain.Matcher,
	gracePeriod, pollInterval time.Duration,
	logger *zap.Logger,
) *TerminatorImpl {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &TerminatorImpl{
		processManager: pm,
		matcher:        matcher,
		gracePeriod:    gracePeriod,
		pollInterval:   pollInterval,
		logger:         logger,
		now:            time.Now,
		sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Terminate ends the process behind id and sweeps related processes.
// It never fails; problems are collected in the outcome.
func (t *TerminatorImpl) Terminate(ctx context.Context, id domain.ProcessIdentity) domain.TerminationOutcome {
	start := t.now()
	outcome := domain.TerminationOutcome{
		PID:        id.PID,
		Target:     id.CanonicalName,
		SweptPIDs:  make([]int, 0),
		Errors:     make([]error, 0),
		ExecutedAt: start,
	}

	outcome.Method = t.terminatePrimary(ctx, id, &outcome)
	t.sweep(ctx, id.PID, &outcome)

	outcome.DurationMs = t.now().Sub(start).Milliseconds()

	t.logger.Info("terminated blocked application",
		zap.Int("pid", id.PID),
		zap.String("canonical", id.CanonicalName),
		zap.String("method", string(outcome.Method)),
		zap.Int("swept", outcome.SweptCount),
		zap.Int("errors", len(outcome.Errors)))

	return outcome
}

func (t *TerminatorImpl) terminatePrimary(ctx context.Context, id domain.ProcessIdentity, outcome *domain.TerminationOutcome) domain.TerminationMethod {
	pid := id.PID
	if pid <= 0 {
		return domain.MethodNotFound
	}

	// The pid was read at sample time; it may have exited and been reused since.
	if !t.stillOwns(ctx, id) {
		return domain.MethodNotFound
	}

	if err := t.processManager.Signal(pid); err != nil {
		if method, ok := classify(err); ok {
			if method == domain.MethodPermissionDenied {
				outcome.Errors = append(outcome.Errors, &domain.TerminationError{PID: pid, Op: "signal", Err: err})
			}
			return method
		}
		// Unknown signalling failure: fall through to a forced kill.
		t.logger.Warn("graceful signal failed", zap.Int("pid", pid), zap.Error(err))
		outcome.Errors = append(outcome.Errors, &domain.TerminationError{PID: pid, Op: "signal", Err: err})
	} else if t.waitForExit(ctx, pid) {
		return domain.MethodGraceful
	}

	if !t.stillOwns(ctx, id) {
		// Gone during the grace period, or the pid now belongs to another process.
		return domain.MethodGraceful
	}

	if err := t.processManager.Kill(pid); err != nil {
		if errors.Is(err, domain.ErrProcessNotFound) {
			// Exited between the last poll and the kill.
			return domain.MethodGraceful
		}
		outcome.Errors = append(outcome.Errors, &domain.TerminationError{PID: pid, Op: "kill", Err: err})
		if errors.Is(err, domain.ErrPermissionDenied) {
			return domain.MethodPermissionDenied
		}
	}
	return domain.MethodForced
}

// stillOwns reports whether pid still belongs to the blocked application.
// A name that cannot be read for a live process is given the benefit of the doubt.
func (t *TerminatorImpl) stillOwns(ctx context.Context, id domain.ProcessIdentity) bool {
	name, err := t.processManager.NameOf(ctx, id.PID)
	if err != nil {
		if errors.Is(err, domain.ErrProcessNotFound) {
			return false
		}
		t.logger.Debug("cannot read process name", zap.Int("pid", id.PID), zap.Error(err))
		return true
	}
	if t.matcher.MatchesName(name) ||
		(id.CanonicalName != "" && domain.CanonicalName("", name) == id.CanonicalName) {
		return true
	}
	t.logger.Warn("pid no longer belongs to blocked application",
		zap.Int("pid", id.PID),
		zap.String("canonical", id.CanonicalName),
		zap.String("current", name))
	return false
}

// waitForExit polls IsRunning until the grace period runs out. Returns true once the
// process is gone. A cancelled context ends the wait early.
func (t *TerminatorImpl) waitForExit(ctx context.Context, pid int) bool {
	deadline := t.now().Add(t.gracePeriod)
	for {
		if !t.processManager.IsRunning(pid) {
			return true
		}
		if !t.now().Before(deadline) || ctx.Err() != nil {
			return false
		}
		t.sleep(ctx, t.pollInterval)
	}
}

func (t *TerminatorImpl) sweep(ctx context.Context, primary int, outcome *domain.TerminationOutcome) {
	entries, err := t.processManager.List(ctx)
	if err != nil {
		t.logger.Warn("sweep listing failed", zap.Error(err))
		outcome.Errors = append(outcome.Errors, &domain.TerminationError{Op: "list", Err: err})
		return
	}

	self := t.processManager.GetCurrentPID()
	for _, e := range entries {
		if e.PID <= 0 || e.PID == self || e.PID == primary {
			continue
		}
		if !t.matcher.MatchesName(e.Name) {
			continue
		}

		if err := t.processManager.Kill(e.PID); err != nil {
			if errors.Is(err, domain.ErrProcessNotFound) {
				t.logger.Debug("sweep target already gone", zap.Int("pid", e.PID), zap.String("name", e.Name))
				continue
			}
			t.logger.Warn("sweep kill failed", zap.Int("pid", e.PID), zap.String("name", e.Name), zap.Error(err))
			outcome.Errors = append(outcome.Errors, &domain.TerminationError{PID: e.PID, Op: "sweep", Err: err})
			continue
		}

		t.logger.Info("swept related process", zap.Int("pid", e.PID), zap.String("name", e.Name))
		outcome.SweptCount++
		outcome.SweptPIDs = append(outcome.SweptPIDs, e.PID)
	}
}

// classify maps terminal per-pid errors onto a termination method.
func classify(err error) (domain.TerminationMethod, bool) {
	switch {
	case errors.Is(err, domain.ErrProcessNotFound):
		return domain.MethodNotFound, true
	case errors.Is(err, domain.ErrPermissionDenied):
		return domain.MethodPermissionDenied, true
	}
	return "", false
}

var _ domain.Terminator = (*TerminatorImpl)(nil)
