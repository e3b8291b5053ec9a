package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

const DefaultCycleTimeout = 1500 * time.Millisecond

// Sampler runs one sampling cycle: probe, match, then either terminate or emit.
type Sampler struct {
	probe        domain.ActivityProbe
	matcher      domain.Matcher
	terminator   domain.Terminator
	sink         domain.EventSink
	journal      domain.Journal
	cycleTimeout time.Duration
	logger       *zap.Logger
}

// NewSampler creates a sampler. journal may be nil.
func NewSampler(
	probe domain.ActivityProbe,
	matcher domain.Matcher,
	terminator domain.Terminator,
	sink domain.EventSink,
	journal domain.Journal,
	cycleTimeout time.Duration,
	logger *zap.Logger,
) *Sampler {
	if cycleTimeout <= 0 {
		cycleTimeout = DefaultCycleTimeout
	}
	return &Sampler{
		probe:        probe,
		matcher:      matcher,
		terminator:   terminator,
		sink:         sink,
		journal:      journal,
		cycleTimeout: cycleTimeout,
		logger:       logger,
	}
}

// Cycle performs one cycle. The returned error is non-nil only when the sink failed.
func (s *Sampler) Cycle(ctx context.Context) (domain.CycleResult, error) {
	probeCtx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	snapshot, err := s.probe.Sample(probeCtx)
	cancel()
	if err != nil {
		var pe *domain.ProbeError
		if errors.As(err, &pe) {
			s.logger.Warn("activity probe failed, skipping cycle",
				zap.String("source", pe.Source), zap.Error(pe.Err))
		} else {
			s.logger.Warn("activity probe failed, skipping cycle", zap.Error(err))
		}
		return domain.CycleSkipped, nil
	}

	if s.matcher.IsBlocked(snapshot.Foreground) {
		s.logger.Info("blocked application in foreground",
			zap.Int("pid", snapshot.Foreground.PID),
			zap.String("canonical", snapshot.Foreground.CanonicalName),
			zap.String("title", snapshot.WindowTitle))

		outcome := s.terminator.Terminate(ctx, snapshot.Foreground)
		s.record(ctx, outcome)
		return domain.CycleTerminated, nil
	}

	if err := s.sink.EmitActivity(snapshot); err != nil {
		return domain.CycleEmitted, errors.Wrap(err, "emit activity")
	}
	return domain.CycleEmitted, nil
}

func (s *Sampler) record(ctx context.Context, outcome domain.TerminationOutcome) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, outcome); err != nil {
		s.logger.Warn("failed to journal enforcement", zap.Error(err))
	}
}
