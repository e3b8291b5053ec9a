//go:build !linux && !darwin && !windows

package infra

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

func newPlatformSources(logger *zap.Logger) platformSources {
	logger.Warn("activity sampling is not supported on this platform")
	u := unsupportedSource{}
	return platformSources{idle: u, foreground: u, audio: u, close: func() error { return nil }}
}

type unsupportedSource struct{}

func (unsupportedSource) IdleSeconds(context.Context) (float64, error) {
	return 0, domain.ErrUnsupportedPlatform
}

func (unsupportedSource) Foreground(context.Context) (domain.ProcessIdentity, string, error) {
	return domain.ProcessIdentity{}, "", domain.ErrUnsupportedPlatform
}

func (unsupportedSource) AudioActive(context.Context) (bool, error) {
	return false, domain.ErrUnsupportedPlatform
}
