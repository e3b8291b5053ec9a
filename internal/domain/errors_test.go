package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrors_Unwrap(t *testing.T) {
	probeErr := error(&ProbeError{Source: "idle", Err: ErrUnsupportedPlatform})
	assert.True(t, errors.Is(probeErr, ErrUnsupportedPlatform))
	assert.Equal(t, "probe idle: unsupported platform", probeErr.Error())

	termErr := error(&TerminationError{PID: 42, Op: "kill", Err: ErrPermissionDenied})
	assert.True(t, errors.Is(termErr, ErrPermissionDenied))
	assert.Equal(t, "kill pid 42: permission denied", termErr.Error())

	var te *TerminationError
	assert.True(t, errors.As(termErr, &te))
	assert.Equal(t, 42, te.PID)

	listErr := error(&ListingError{Err: errors.New("boom")})
	assert.Equal(t, "list processes: boom", listErr.Error())
}
