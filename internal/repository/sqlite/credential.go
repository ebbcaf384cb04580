package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"projectdesk/internal/domain/repositories"
)

// CredentialKey is the fixed storage key of the session credential.
const CredentialKey = "awesomeProjectManager"

// CredentialRepository implements repositories.CredentialRepository on the kv table
type CredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(config *RepositoryConfig) repositories.CredentialRepository {
	return &CredentialRepository{
		db:     config.DB,
		logger: config.Logger,
	}
}

// Load returns the stored credential or "" when none is stored
func (r *CredentialRepository) Load(ctx context.Context) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, CredentialKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return value, nil
}

// Save stores the credential under CredentialKey
func (r *CredentialRepository) Save(ctx context.Context, credential string) error {
	const q = `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, q, CredentialKey, credential, formatTime(time.Now())); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	r.logger.Debug("credential persisted")
	return nil
}

// Delete removes the stored credential
func (r *CredentialRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, CredentialKey); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	r.logger.Debug("credential removed")
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
