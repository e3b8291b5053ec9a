package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
)

// newTestJournal opens an encrypted journal in a temp directory.
func newTestJournal(t *testing.T) (*EncryptedJournal, string) {
	t.Helper()
	dataDir := t.TempDir()
	key, err := GenerateKey()
	require.NoError(t, err)

	j, err := NewEncryptedJournal(dataDir, key)
	require.NoError(t, err)

	t.Cleanup(func() { j.Close() })
	return j, dataDir
}

func outcomeAt(target string, pid int, method domain.TerminationMethod, at time.Time) domain.TerminationOutcome {
	return domain.TerminationOutcome{
		PID:        pid,
		Target:     target,
		Method:     method,
		ExecutedAt: at,
	}
}
