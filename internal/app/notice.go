package app

import (
	"log/slog"
	"sync"

	"projectdesk/internal/domain"
	"projectdesk/internal/telemetry"
)

// User-facing messages for failures that replace the server's own text.
const (
	MsgProjectsLoadFailed = "Something went wrong. Couldn't load the projects"
	MsgClickUpFailed      = "Failed to connect to ClickUp. Please check your credentials."
	MsgSlackFailed        = "Failed to configure Slack integration"
)

// Notice is the single display-ready error message. The most recent failure
// replaces any earlier one.
type Notice struct {
	mu      sync.Mutex
	message string
	logger  *slog.Logger
}

// NewNotice creates an empty notice.
func NewNotice(logger *slog.Logger) *Notice {
	return &Notice{logger: logger}
}

// Set shows err's display text and forwards reportable failures to telemetry.
func (n *Notice) Set(err error, operation string) {
	if err == nil {
		return
	}
	n.show(domain.Message(err), err, operation)
}

// SetMessage shows message in place of err's own text.
func (n *Notice) SetMessage(message string, err error, operation string) {
	n.show(message, err, operation)
}

func (n *Notice) show(message string, err error, operation string) {
	n.mu.Lock()
	n.message = message
	n.mu.Unlock()

	n.logger.Warn("operation failed",
		"operation", operation,
		"notice", message,
		"error", err,
	)
	if err != nil {
		telemetry.CaptureError(err, operation)
	}
}

// Message returns the current text, "" when there is nothing to show.
func (n *Notice) Message() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.message
}

func (n *Notice) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.message = ""
}
