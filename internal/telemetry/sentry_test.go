package telemetry

import (
	"errors"
	"testing"

	"projectdesk/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_EmptyDSNDisables(t *testing.T) {
	require.NoError(t, Init("", "test", "dev"))
	assert.False(t, IsEnabled())

	assert.False(t, CaptureError(&domain.ServerError{Status: 500, Message: "boom"}, "list"))
	assert.NotPanics(t, Flush)
}

func TestInit_InvalidDSN(t *testing.T) {
	err := Init("not a dsn", "test", "dev")

	assert.Error(t, err)
	assert.False(t, IsEnabled())
}

func TestCaptureError_OnlyReportable(t *testing.T) {
	require.NoError(t, Init("https://public@example.invalid/1", "test", "dev"))
	t.Cleanup(func() { enabled.Store(false) })

	assert.True(t, CaptureError(&domain.ServerError{Status: 500, Message: "boom"}, "list"))
	assert.True(t, CaptureError(&domain.NetworkError{Message: "down", Err: errors.New("refused")}, "list"))
	assert.False(t, CaptureError(domain.NewValidationError("bad"), "create"))
	assert.False(t, CaptureError(&domain.AuthError{Status: 401, Message: "nope"}, "login"))
}

func TestRecoverPanic_Repanics(t *testing.T) {
	boom := func() {
		defer RecoverPanic()
		panic("boom")
	}

	require.NoError(t, Init("", "test", "dev"))
	assert.PanicsWithValue(t, "boom", boom)

	require.NoError(t, Init("https://public@example.invalid/1", "test", "dev"))
	t.Cleanup(func() { enabled.Store(false) })
	assert.PanicsWithValue(t, "boom", boom, "captured, then propagated")
}
