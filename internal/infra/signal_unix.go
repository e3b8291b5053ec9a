//go:build !windows

package infra

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// requestQuit sends SIGTERM.
func requestQuit(pid int) error {
	err := unix.Kill(pid, unix.SIGTERM)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ESRCH):
		return domain.ErrProcessNotFound
	case errors.Is(err, unix.EPERM):
		return domain.ErrPermissionDenied
	default:
		return errors.Wrapf(err, "sigterm %d", pid)
	}
}
