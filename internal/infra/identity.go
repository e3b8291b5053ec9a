package infra

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// resolveIdentity fills in a ProcessIdentity for pid. The canonical name prefers the
// bundle id, then the executable path, then the kernel's process name.
func resolveIdentity(ctx context.Context, pid int, bundleID, displayName string) domain.ProcessIdentity {
	id := domain.ProcessIdentity{PID: pid, DisplayName: displayName}

	var exe, name string
	if pid > 0 {
		if p, err := process.NewProcessWithContext(ctx, int32(pid)); err == nil {
			exe, _ = p.ExeWithContext(ctx)
			name, _ = p.NameWithContext(ctx)
		}
	}

	id.CanonicalName = domain.CanonicalName(bundleID, exe)
	if id.CanonicalName == "" {
		id.CanonicalName = domain.CanonicalName("", name)
	}
	if id.DisplayName == "" {
		id.DisplayName = name
	}
	return id
}

// runCommand runs a helper binary and returns its stdout. Stderr is folded into the error.
func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errb.String())
		if msg == "" {
			return "", errors.Wrap(err, name)
		}
		return "", errors.Wrapf(err, "%s: %s", name, msg)
	}
	return out.String(), nil
}
