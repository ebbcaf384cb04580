package repositories

import (
	"context"

	"projectdesk/internal/domain/models"
)

// SlackConnectionRepository persists the Slack connection state machine per project,
// so an in-progress OAuth handshake survives a restart.
type SlackConnectionRepository interface {
	// Get returns the record for a project. A project with no record is
	// reported as unconfigured, not as an error.
	Get(ctx context.Context, projectID int64) (*models.SlackConnection, error)

	// Put inserts or replaces the record for conn.ProjectID.
	Put(ctx context.Context, conn *models.SlackConnection) error

	// Delete forgets the record for a project.
	Delete(ctx context.Context, projectID int64) error
}
