package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// Poller emits processes that appeared since the last call. Implemented by usecase.ProcessTracker.
type Poller interface {
	Poll(ctx context.Context) ([]domain.ProcessEntry, error)
}

// TrackerLoop polls on a fixed interval until the sink fails or ctx is cancelled.
type TrackerLoop struct {
	poller   Poller
	interval time.Duration
	logger   *zap.Logger
}

func NewTrackerLoop(poller Poller, interval time.Duration, logger *zap.Logger) *TrackerLoop {
	if interval <= 0 {
		interval = DefaultTrackerInterval
	}
	return &TrackerLoop{poller: poller, interval: interval, logger: logger}
}

func (l *TrackerLoop) Run(ctx context.Context) error {
	l.logger.Info("process tracker started", zap.Duration("interval", l.interval))

	if _, err := l.poller.Poll(ctx); err != nil {
		l.logger.Error("process tracker failed", zap.Error(err))
		return err
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("process tracker stopping")
			return ctx.Err()

		case <-ticker.C:
			if _, err := l.poller.Poll(ctx); err != nil {
				l.logger.Error("process tracker failed", zap.Error(err))
				return err
			}
		}
	}
}
