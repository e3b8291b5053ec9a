// Package daemon runs the sampling and process-tracking loops.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

const (
	DefaultActivityInterval = 2 * time.Second
	DefaultTrackerInterval  = time.Second
)

// Cycler runs one sampling cycle. Implemented by usecase.Sampler.
type Cycler interface {
	Cycle(ctx context.Context) (domain.CycleResult, error)
}

// ActivityLoop drives a Cycler on a fixed interval until a cycle terminates a
// blocked application, the sink fails or ctx is cancelled.
type ActivityLoop struct {
	cycler   Cycler
	interval time.Duration
	logger   *zap.Logger
}

func NewActivityLoop(cycler Cycler, interval time.Duration, logger *zap.Logger) *ActivityLoop {
	if interval <= 0 {
		interval = DefaultActivityInterval
	}
	return &ActivityLoop{cycler: cycler, interval: interval, logger: logger}
}

// Run blocks. It returns nil once a cycle reports CycleTerminated, the sink error when
// emission fails, and ctx.Err() on cancellation.
func (l *ActivityLoop) Run(ctx context.Context) error {
	l.logger.Info("activity loop started", zap.Duration("interval", l.interval))

	// First cycle runs immediately.
	if done, err := l.step(ctx); done || err != nil {
		return err
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("activity loop stopping")
			return ctx.Err()

		case <-ticker.C:
			if done, err := l.step(ctx); done || err != nil {
				return err
			}
		}
	}
}

func (l *ActivityLoop) step(ctx context.Context) (bool, error) {
	res, err := l.cycler.Cycle(ctx)
	if err != nil {
		l.logger.Error("activity cycle failed", zap.Error(err))
		return true, err
	}
	if res == domain.CycleTerminated {
		l.logger.Info("blocked application terminated, activity loop finished")
		return true, nil
	}
	return false, nil
}
