// Package telemetry forwards backend and transport failures to Sentry when a
// DSN is configured. Without one every function is a no-op.
package telemetry

import (
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"projectdesk/internal/domain"

	gosentry "github.com/getsentry/sentry-go"
)

// enabled tracks whether sentry was successfully initialized.
var enabled atomic.Bool

// Init initializes the Sentry SDK. An empty dsn disables telemetry.
func Init(dsn, environment, version string) error {
	if dsn == "" {
		enabled.Store(false)
		return nil
	}

	err := gosentry.Init(gosentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          "projectdesk@" + version,
		AttachStacktrace: true,
		SampleRate:       1.0,
	})
	if err != nil {
		return err
	}

	gosentry.ConfigureScope(func(scope *gosentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
	})

	enabled.Store(true)
	return nil
}

// IsEnabled returns whether sentry is active.
func IsEnabled() bool {
	return enabled.Load()
}

// Flush waits up to 2 seconds for buffered events to be sent.
func Flush() {
	if !IsEnabled() {
		return
	}
	gosentry.Flush(2 * time.Second)
}

// CaptureError reports err if it is a server or network failure. User
// mistakes (validation, auth, not found) are never sent.
func CaptureError(err error, operation string) bool {
	if !IsEnabled() || !domain.Reportable(err) {
		return false
	}

	gosentry.WithScope(func(scope *gosentry.Scope) {
		scope.SetTag("operation", operation)
		var status domain.StatusError
		if errors.As(err, &status) {
			scope.SetExtra("status", status.StatusCode())
		}
		gosentry.CaptureException(err)
	})
	return true
}

// RecoverPanic captures a panic to Sentry, flushes, then re-panics.
// Usage: defer telemetry.RecoverPanic()
func RecoverPanic() {
	if !IsEnabled() {
		return
	}
	if err := recover(); err != nil {
		gosentry.CurrentHub().Recover(err)
		gosentry.Flush(2 * time.Second)
		panic(err)
	}
}
