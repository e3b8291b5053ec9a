// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"sort"
	"strings"
	"time"
)

// ProcessIdentity identifies the process that owns the foreground window.
type ProcessIdentity struct {
	PID           int    // 0 if unknown
	DisplayName   string // Localized app name or window class
	CanonicalName string // Lowercased match key, may be empty
}

// CanonicalName derives the match key for a process.
// The last component of the bundle id wins ("com.riotgames.LeagueOfLegends" ->
// "leagueoflegends"), otherwise the executable base name is used.
func CanonicalName(bundleID, exePath string) string {
	if bundleID = strings.TrimSpace(bundleID); bundleID != "" {
		parts := strings.Split(bundleID, ".")
		if last := parts[len(parts)-1]; last != "" {
			return strings.ToLower(last)
		}
	}
	exePath = strings.TrimSpace(exePath)
	if exePath == "" {
		return ""
	}
	// Windows paths reach us on every platform in tests, so split on both separators.
	if i := strings.LastIndexAny(exePath, `\/`); i >= 0 {
		exePath = exePath[i+1:]
	}
	return strings.ToLower(exePath)
}

// ActivitySnapshot is one point-in-time observation of user activity.
// Snapshots are values: a new one is built every cycle and never mutated.
type ActivitySnapshot struct {
	IdleSeconds float64
	Foreground  ProcessIdentity
	WindowTitle string
	AudioActive bool
	SampledAt   time.Time
}

// ProcessEntry is a (pid, name) pair from a process listing.
type ProcessEntry struct {
	PID  int
	Name string
}

// ProcessSet is every process alive at one sampling instant.
type ProcessSet map[ProcessEntry]struct{}

// NewProcessSet builds a set from entries.
func NewProcessSet(entries ...ProcessEntry) ProcessSet {
	s := make(ProcessSet, len(entries))
	for _, e := range entries {
		s[e] = struct{}{}
	}
	return s
}

// Difference returns entries in s that are not in other, ordered by PID.
func (s ProcessSet) Difference(other ProcessSet) []ProcessEntry {
	var out []ProcessEntry
	for e := range s {
		if _, ok := other[e]; !ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PID != out[j].PID {
			return out[i].PID < out[j].PID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Policy defines what an app blocker policy contains.
type Policy struct {
	ID       string
	Name     string
	Keywords []string // Lowercase substrings matched against process names
}

// TerminationMethod records how the primary target ended up.
type TerminationMethod string

const (
	MethodGraceful         TerminationMethod = "graceful"
	MethodForced           TerminationMethod = "forced"
	MethodNotFound         TerminationMethod = "not_found"
	MethodPermissionDenied TerminationMethod = "permission_denied"
)

// TerminationOutcome captures what happened during a single termination.
type TerminationOutcome struct {
	PID        int
	Target     string // Canonical name of the primary target
	Method     TerminationMethod
	SweptCount int
	SweptPIDs  []int
	Errors     []error
	ExecutedAt time.Time
	DurationMs int64
}

// CycleResult is the outcome of one sampling cycle.
type CycleResult string

const (
	CycleEmitted    CycleResult = "emitted"
	CycleSkipped    CycleResult = "skipped"
	CycleTerminated CycleResult = "terminated"
)

// JournalEntry is a persisted record of one enforcement action.
type JournalEntry struct {
	ID         int64
	Target     string
	PID        int
	Method     TerminationMethod
	SweptCount int
	ErrorCount int
	ExecutedAt time.Time
}
