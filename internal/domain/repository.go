package domain

import "context"

// ActivityProbe produces one activity snapshot per call.
// Implementation: composite of per-OS idle, foreground and audio sources.
type ActivityProbe interface {
	// Sample reads the current activity state. Returns *ProbeError on failure.
	// "No foreground window" is not a failure.
	Sample(ctx context.Context) (ActivitySnapshot, error)
}

// ProcessLister enumerates live processes.
type ProcessLister interface {
	// List returns every process visible to the caller.
	List(ctx context.Context) ([]ProcessEntry, error)
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	ProcessLister

	// Signal asks a process to quit (SIGTERM / WM_CLOSE).
	Signal(pid int) error

	// Kill terminates a process by PID (SIGKILL / TerminateProcess).
	Kill(pid int) error

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// NameOf returns the current name of the process behind pid.
	// Returns ErrProcessNotFound when the pid is gone.
	NameOf(ctx context.Context, pid int) (string, error)

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// Matcher decides block-list membership. Pure and total.
type Matcher interface {
	// IsBlocked reports whether the identity's canonical name matches a keyword.
	IsBlocked(id ProcessIdentity) bool

	// MatchesName reports whether a raw process name matches a keyword.
	MatchesName(name string) bool
}

// Terminator ends a blocked process and sweeps related ones.
type Terminator interface {
	// Terminate never fails; every problem is recorded in the outcome.
	Terminate(ctx context.Context, id ProcessIdentity) TerminationOutcome
}

// EventSink receives the events written to the downstream consumer.
type EventSink interface {
	EmitActivity(snapshot ActivitySnapshot) error
	EmitNewProcess(entry ProcessEntry) error
}

// PolicyStore provides access to app blocking policies.
// Implementation: in-memory registry, optionally overridden by config.
type PolicyStore interface {
	// GetAll returns all registered policies.
	GetAll() []Policy

	// GetByID returns policy for specific app.
	GetByID(id string) (*Policy, error)

	// List returns app IDs of all blocked apps.
	List() []string
}

// Journal persists enforcement actions.
// Implementation: SQLCipher encrypted SQLite database.
type Journal interface {
	// Record appends one termination outcome.
	Record(ctx context.Context, outcome TerminationOutcome) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]JournalEntry, error)

	// Close releases the database connection.
	Close() error
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
