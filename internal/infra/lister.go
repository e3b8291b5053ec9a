package infra

import (
	"bufio"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// PSLister lists processes by running `ps -e -o pid,comm`.
// The ps invocation shows up in its own output; the tracker filters it by name.
type PSLister struct {
	command string
}

// NewPSLister creates a lister backed by the system ps binary.
func NewPSLister() *PSLister {
	return &PSLister{command: "ps"}
}

// List runs ps and parses its output.
func (l *PSLister) List(ctx context.Context) ([]domain.ProcessEntry, error) {
	out, err := exec.CommandContext(ctx, l.command, "-e", "-o", "pid,comm").Output()
	if err != nil {
		return nil, &domain.ListingError{Err: errors.Wrap(err, l.command)}
	}
	return parsePSOutput(string(out)), nil
}

// parsePSOutput parses "PID COMMAND" lines, skipping the header and malformed rows.
// Command names may contain spaces.
func parsePSOutput(out string) []domain.ProcessEntry {
	var entries []domain.ProcessEntry
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Scan() // Skip header

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		sep := strings.IndexAny(line, " \t")
		if sep < 0 {
			continue
		}
		pid, err := strconv.Atoi(line[:sep])
		if err != nil {
			continue
		}
		name := strings.TrimSpace(line[sep:])
		if name == "" {
			continue
		}
		entries = append(entries, domain.ProcessEntry{PID: pid, Name: name})
	}
	return entries
}

// Ensure PSLister implements domain.ProcessLister.
var _ domain.ProcessLister = (*PSLister)(nil)
