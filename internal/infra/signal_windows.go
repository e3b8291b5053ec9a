//go:build windows

package infra

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// requestQuit runs taskkill without /F, which posts WM_CLOSE to the process windows.
func requestQuit(pid int) error {
	out, err := exec.Command("taskkill", "/PID", strconv.Itoa(pid)).CombinedOutput()
	if err == nil {
		return nil
	}

	msg := strings.ToLower(string(out))
	switch {
	case strings.Contains(msg, "not found"):
		return domain.ErrProcessNotFound
	case strings.Contains(msg, "access is denied"):
		return domain.ErrPermissionDenied
	default:
		return errors.Wrapf(err, "taskkill %d: %s", pid, strings.TrimSpace(string(out)))
	}
}
