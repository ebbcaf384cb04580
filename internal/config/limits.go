package config

const (
	// MinPasswordLength is the exclusive lower bound for new passwords:
	// a password must be strictly longer than this.
	MinPasswordLength = 5

	// MaxProjectNameLength is the maximum length for project names.
	// Matches the backend's VARCHAR(255) column.
	MaxProjectNameLength = 255

	// MaxChatQueryLength caps a single assistant query.
	MaxChatQueryLength = 8000

	// DateLayout is the wire format of calendar dates such as deadlines.
	DateLayout = "2006-01-02"
)
