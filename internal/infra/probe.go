package infra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// IdleSource reports seconds since the last keyboard or mouse input.
type IdleSource interface {
	IdleSeconds(ctx context.Context) (float64, error)
}

// ForegroundSource reports the process owning the focused window and the window title.
// Returns domain.ErrNoForeground when nothing has focus.
type ForegroundSource interface {
	Foreground(ctx context.Context) (domain.ProcessIdentity, string, error)
}

// AudioSource reports whether any audio is currently playing.
type AudioSource interface {
	AudioActive(ctx context.Context) (bool, error)
}

// CompositeProbe implements domain.ActivityProbe on top of three platform sources.
// Each source runs under its own deadline. Idle and foreground failures fail the
// sample; an audio failure only clears AudioActive.
type CompositeProbe struct {
	idle       IdleSource
	foreground ForegroundSource
	audio      AudioSource
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
	closer     func() error
}

// NewPlatformProbe builds the probe for the operating system this binary was compiled for.
func NewPlatformProbe(subProbeTimeout time.Duration, logger *zap.Logger) *CompositeProbe {
	src := newPlatformSources(logger)
	p := NewCompositeProbe(src.idle, src.foreground, src.audio, subProbeTimeout, logger)
	p.closer = src.close
	return p
}

// platformSources is what each platform_*.go file provides.
type platformSources struct {
	idle       IdleSource
	foreground ForegroundSource
	audio      AudioSource
	close      func() error
}

// NewCompositeProbe wires platform sources into an ActivityProbe.
func NewCompositeProbe(
	idle IdleSource,
	fg ForegroundSource,
	audio AudioSource,
	subProbeTimeout time.Duration,
	logger *zap.Logger,
) *CompositeProbe {
	return &CompositeProbe{
		idle:       idle,
		foreground: fg,
		audio:      audio,
		timeout:    subProbeTimeout,
		logger:     logger,
		now:        time.Now,
	}
}

// Close releases display/bus connections held by platform sources.
func (p *CompositeProbe) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// foregroundResult carries both foreground values through bounded.
type foregroundResult struct {
	id    domain.ProcessIdentity
	title string
}

// Sample queries all sources concurrently and assembles a snapshot.
func (p *CompositeProbe) Sample(ctx context.Context) (domain.ActivitySnapshot, error) {
	var (
		wg sync.WaitGroup

		idle    float64
		idleErr error

		fg    foregroundResult
		fgErr error

		audio    bool
		audioErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		idle, idleErr = bounded(ctx, p.timeout, p.idle.IdleSeconds)
	}()
	go func() {
		defer wg.Done()
		fg, fgErr = bounded(ctx, p.timeout, func(c context.Context) (foregroundResult, error) {
			id, title, err := p.foreground.Foreground(c)
			return foregroundResult{id: id, title: title}, err
		})
	}()
	go func() {
		defer wg.Done()
		audio, audioErr = bounded(ctx, p.timeout, p.audio.AudioActive)
	}()
	wg.Wait()

	if idleErr != nil {
		return domain.ActivitySnapshot{}, &domain.ProbeError{Source: "idle", Err: idleErr}
	}
	if idle < 0 {
		idle = 0
	}

	if errors.Is(fgErr, domain.ErrNoForeground) {
		fg, fgErr = foregroundResult{}, nil
	}
	if fgErr != nil {
		return domain.ActivitySnapshot{}, &domain.ProbeError{Source: "foreground", Err: fgErr}
	}

	if audioErr != nil {
		p.logger.Debug("audio probe failed, reporting silence", zap.Error(audioErr))
		audio = false
	}

	return domain.ActivitySnapshot{
		IdleSeconds: idle,
		Foreground:  fg.id,
		WindowTitle: fg.title,
		AudioActive: audio,
		SampledAt:   p.now(),
	}, nil
}

// bounded runs fn under its own deadline. A source that ignores its context is
// abandoned when the deadline passes; a panicking source becomes an error.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("source panicked: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Wrap(ctx.Err(), "source timed out")
	}
}

// Ensure CompositeProbe implements domain.ActivityProbe.
var _ domain.ActivityProbe = (*CompositeProbe)(nil)
