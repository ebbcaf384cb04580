package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"projectdesk/internal/domain/models"
	"projectdesk/internal/domain/repositories"
)

// SlackConnectionRepository implements repositories.SlackConnectionRepository
type SlackConnectionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSlackConnectionRepository creates a new Slack connection repository
func NewSlackConnectionRepository(config *RepositoryConfig) repositories.SlackConnectionRepository {
	return &SlackConnectionRepository{
		db:     config.DB,
		logger: config.Logger,
	}
}

// Get returns the record for a project, or an unconfigured record if none exists
func (r *SlackConnectionRepository) Get(ctx context.Context, projectID int64) (*models.SlackConnection, error) {
	const q = `
		SELECT state, auth_url, last_error, updated_at
		FROM slack_connections
		WHERE project_id = ?
	`
	conn := models.SlackConnection{ProjectID: projectID}
	var state, updatedAt string
	err := r.db.QueryRowContext(ctx, q, projectID).Scan(&state, &conn.AuthURL, &conn.LastError, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		conn.State = models.SlackUnconfigured
		return &conn, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get slack connection %d: %w", projectID, err)
	}

	conn.State = models.SlackState(state)
	conn.UpdatedAt = parseTime(updatedAt)
	return &conn, nil
}

// Put inserts or replaces the record for conn.ProjectID
func (r *SlackConnectionRepository) Put(ctx context.Context, conn *models.SlackConnection) error {
	const q = `
		INSERT INTO slack_connections (project_id, state, auth_url, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			state = excluded.state,
			auth_url = excluded.auth_url,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
	`
	if conn.UpdatedAt.IsZero() {
		conn.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		conn.ProjectID,
		string(conn.State),
		conn.AuthURL,
		conn.LastError,
		formatTime(conn.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put slack connection %d: %w", conn.ProjectID, err)
	}

	r.logger.Debug("slack connection persisted",
		"project_id", conn.ProjectID,
		"state", conn.State,
	)
	return nil
}

// Delete forgets the record for a project
func (r *SlackConnectionRepository) Delete(ctx context.Context, projectID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM slack_connections WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete slack connection %d: %w", projectID, err)
	}
	return nil
}
