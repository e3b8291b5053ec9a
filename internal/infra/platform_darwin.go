//go:build darwin

package infra

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

func newPlatformSources(logger *zap.Logger) platformSources {
	return platformSources{
		idle:       &ioregIdle{},
		foreground: &systemEventsForeground{logger: logger},
		audio:      &pmsetAudio{},
		close:      func() error { return nil },
	}
}

// ioregIdle reads HIDIdleTime (nanoseconds) from the IOHIDSystem registry entry.
type ioregIdle struct{}

func (i *ioregIdle) IdleSeconds(ctx context.Context) (float64, error) {
	out, err := runCommand(ctx, "ioreg", "-c", "IOHIDSystem", "-d", "4")
	if err != nil {
		return 0, err
	}
	return parseHIDIdleTime(out)
}

func parseHIDIdleTime(out string) (float64, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, `"HIDIdleTime"`) {
			continue
		}
		eq := strings.LastIndex(line, "=")
		if eq < 0 {
			continue
		}
		ns, err := strconv.ParseUint(strings.TrimSpace(line[eq+1:]), 10, 64)
		if err != nil {
			return 0, errors.Wrap(err, "parse HIDIdleTime")
		}
		return float64(ns) / 1e9, nil
	}
	return 0, errors.New("HIDIdleTime not found in ioreg output")
}

// frontmostScript prints name, bundle id, pid and front window title, one per line.
// The title lookup can fail for windowless apps, so it is guarded.
const frontmostScript = `tell application "System Events"
	set p to first application process whose frontmost is true
	set t to ""
	try
		set t to name of front window of p
	end try
	return (name of p) & linefeed & (bundle identifier of p) & linefeed & (unix id of p) & linefeed & t
end tell`

// systemEventsForeground asks System Events for the frontmost application.
// Needs Accessibility permission for window titles.
type systemEventsForeground struct {
	logger *zap.Logger
}

func (f *systemEventsForeground) Foreground(ctx context.Context) (domain.ProcessIdentity, string, error) {
	out, err := runCommand(ctx, "osascript", "-e", frontmostScript)
	if err != nil {
		return domain.ProcessIdentity{}, "", err
	}

	lines := strings.SplitN(strings.TrimRight(out, "\n"), "\n", 4)
	if len(lines) < 3 || strings.TrimSpace(lines[0]) == "" {
		return domain.ProcessIdentity{}, "", domain.ErrNoForeground
	}

	name := strings.TrimSpace(lines[0])
	bundleID := strings.TrimSpace(lines[1])
	if bundleID == "missing value" {
		bundleID = ""
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(lines[2]))

	title := ""
	if len(lines) == 4 {
		title = strings.TrimSpace(lines[3])
	}
	return resolveIdentity(ctx, pid, bundleID, name), title, nil
}

// pmsetAudio treats a coreaudiod sleep assertion as "audio is playing".
type pmsetAudio struct{}

func (a *pmsetAudio) AudioActive(ctx context.Context) (bool, error) {
	out, err := runCommand(ctx, "pmset", "-g", "assertions")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "coreaudiod") && strings.Contains(line, "PreventUserIdleSystemSleep") {
			return true, nil
		}
	}
	return false, nil
}
