package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// ProcessTracker emits processes that appeared since the previous poll.
// The first poll reports everything that is running. Not safe for concurrent Poll calls;
// one loop owns it.
type ProcessTracker struct {
	lister   domain.ProcessLister
	sink     domain.EventSink
	exclude  map[string]struct{}
	previous domain.ProcessSet
	logger   *zap.Logger
}

func NewProcessTracker(
	lister domain.ProcessLister,
	sink domain.EventSink,
	excludeNames []string,
	logger *zap.Logger,
) *ProcessTracker {
	exclude := make(map[string]struct{}, len(excludeNames))
	for _, n := range excludeNames {
		exclude[n] = struct{}{}
	}
	return &ProcessTracker{
		lister:  lister,
		sink:    sink,
		exclude: exclude,
		logger:  logger,
	}
}

// Poll lists processes, emits the new ones and returns what was emitted.
// Only a sink failure is returned as an error.
func (t *ProcessTracker) Poll(ctx context.Context) ([]domain.ProcessEntry, error) {
	current := domain.NewProcessSet()
	entries, err := t.lister.List(ctx)
	if err != nil {
		// Treated as "nothing running"; the next good listing re-emits everything.
		t.logger.Warn("process listing failed", zap.Error(err))
	} else {
		for _, e := range entries {
			if t.excluded(e.Name) {
				continue
			}
			current[e] = struct{}{}
		}
	}

	// previous is nil before the first poll, so the baseline is the full listing.
	fresh := current.Difference(t.previous)
	t.previous = current

	for i, e := range fresh {
		if err := t.sink.EmitNewProcess(e); err != nil {
			return fresh[:i], err
		}
	}
	if len(fresh) > 0 {
		t.logger.Debug("new processes", zap.Int("count", len(fresh)))
	}
	return fresh, nil
}

// excluded matches the exclusion list against the name and its base name, since
// some ps builds print full paths ("/bin/ps").
func (t *ProcessTracker) excluded(name string) bool {
	if _, ok := t.exclude[name]; ok {
		return true
	}
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		_, ok := t.exclude[name[i+1:]]
		return ok
	}
	return false
}
