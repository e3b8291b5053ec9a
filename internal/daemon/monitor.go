package daemon

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner is a blocking loop.
type Runner interface {
	Run(ctx context.Context) error
}

// Monitor runs the activity loop and the process tracker side by side.
// Either loop may be nil.
type Monitor struct {
	activity Runner
	tracker  Runner
	logger   *zap.Logger
}

func NewMonitor(activity, tracker Runner, logger *zap.Logger) *Monitor {
	return &Monitor{activity: activity, tracker: tracker, logger: logger}
}

// Run blocks until the activity loop finishes, a loop fails or ctx is cancelled.
// A clean finish (enforcement done, or shutdown via ctx) returns nil.
func (m *Monitor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if m.activity != nil {
		g.Go(func() error {
			err := m.activity.Run(gctx)
			// Terminal enforcement ends the whole monitor, tracker included.
			cancel()
			return err
		})
	}
	if m.tracker != nil {
		g.Go(func() error {
			return m.tracker.Run(gctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		m.logger.Debug("monitor stopped")
		return nil
	}
	return err
}
