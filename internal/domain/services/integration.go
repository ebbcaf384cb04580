package services

import (
	"context"

	"projectdesk/internal/domain/models"
)

// IntegrationService links projects to ClickUp and Slack
type IntegrationService interface {
	// LinkClickUp sends a ClickUp token and list ID; nothing is retained afterwards
	LinkClickUp(ctx context.Context, projectID int64, apiToken, listID string) (map[string]any, error)

	// ConfigureSlack stores the Slack app registration server-side
	ConfigureSlack(ctx context.Context, projectID int64, cfg models.SlackAppConfig) error

	// RequestOAuthURL returns the Slack authorization URL to navigate to
	RequestOAuthURL(ctx context.Context, projectID int64) (string, error)

	// HandleOAuthCallback exchanges the authorization code server-side
	HandleOAuthCallback(ctx context.Context, projectID int64, code string) (map[string]any, error)

	// RecordOAuthError marks an in-progress authorization as failed, e.g. when
	// the provider redirects back with an error instead of a code
	RecordOAuthError(ctx context.Context, projectID int64, reason string) (*models.SlackConnection, error)

	// SlackStatus returns the persisted connection state
	SlackStatus(ctx context.Context, projectID int64) (*models.SlackConnection, error)

	// ForgetProject drops local integration state for a deleted project
	ForgetProject(ctx context.Context, projectID int64) error

	// ListSlackChannels lists the channels of a connected workspace
	ListSlackChannels(ctx context.Context, projectID int64) ([]models.SlackChannel, error)
}
