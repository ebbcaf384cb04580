// Package integrations links projects to ClickUp and Slack. The Slack OAuth
// handshake is tracked as a persisted state machine per project.
package integrations

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"projectdesk/internal/apiclient"
	"projectdesk/internal/domain"
	"projectdesk/internal/domain/models"
	"projectdesk/internal/domain/repositories"
	"projectdesk/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// connector implements the IntegrationService interface
type connector struct {
	api    *apiclient.Client
	slack  repositories.SlackConnectionRepository
	logger *slog.Logger

	// serializes read-modify-write of one project's Slack record
	mu sync.Mutex
}

// NewConnector creates a new integration connector
func NewConnector(
	api *apiclient.Client,
	slack repositories.SlackConnectionRepository,
	logger *slog.Logger,
) services.IntegrationService {
	return &connector{
		api:    api,
		slack:  slack,
		logger: logger,
	}
}

func projectPath(projectID int64, suffix string) string {
	return "/api/projects/" + strconv.FormatInt(projectID, 10) + suffix
}

// LinkClickUp sends the token and list ID once. Neither is kept.
func (c *connector) LinkClickUp(ctx context.Context, projectID int64, apiToken, listID string) (map[string]any, error) {
	link := models.ClickUpLink{
		APIToken: strings.TrimSpace(apiToken),
		ListID:   strings.TrimSpace(listID),
	}
	if err := validation.ValidateStruct(&link,
		validation.Field(&link.APIToken, validation.Required.Error("ClickUp API token is required")),
		validation.Field(&link.ListID, validation.Required.Error("ClickUp list ID is required")),
	); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	var status map[string]any
	if err := c.api.Do(ctx, apiclient.Post(projectPath(projectID, "/clickup")).JSON(link), &status); err != nil {
		c.logger.Warn("clickup link failed", "project_id", projectID, "error", err)
		return nil, err
	}

	c.logger.Info("clickup linked", "project_id", projectID, "list_id", link.ListID)
	return status, nil
}

func validateSlackConfig(cfg *models.SlackAppConfig) error {
	err := validation.ValidateStruct(cfg,
		validation.Field(&cfg.ClientID, validation.Required.Error("Slack client ID is required")),
		validation.Field(&cfg.ClientSecret, validation.Required.Error("Slack client secret is required")),
		validation.Field(&cfg.RedirectURI,
			validation.Required.Error("Slack redirect URI is required"),
			validation.By(absoluteURL),
		),
	)
	if err != nil {
		return domain.NewValidationError(err.Error())
	}
	return nil
}

func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return validation.NewError("validation_redirect_uri", "must be an absolute URL")
	}
	return nil
}

// ConfigureSlack stores the app registration server-side and moves the
// project to Configured.
func (c *connector) ConfigureSlack(ctx context.Context, projectID int64, cfg models.SlackAppConfig) error {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.RedirectURI = strings.TrimSpace(cfg.RedirectURI)
	if err := validateSlackConfig(&cfg); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.slack.Get(ctx, projectID)
	if err != nil {
		return err
	}

	if err := c.api.Do(ctx, apiclient.Post(projectPath(projectID, "/slack/config")).JSON(cfg), nil); err != nil {
		c.fail(ctx, conn, err)
		return err
	}

	return c.advance(ctx, conn, SlackConfigure, func(conn *models.SlackConnection) {
		conn.AuthURL = ""
		conn.LastError = ""
	})
}

// RequestOAuthURL fetches the authorization URL and moves the project to
// AwaitingCallback. The caller navigates away; nothing else is kept in memory.
func (c *connector) RequestOAuthURL(ctx context.Context, projectID int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.slack.Get(ctx, projectID)
	if err != nil {
		return "", err
	}
	if !CanApply(conn.State, SlackAuthorize) {
		return "", domain.NewValidationError("Slack is not configured for this project")
	}

	var resp models.SlackAuthURLResponse
	if err := c.api.Do(ctx, apiclient.Get(projectPath(projectID, "/slack/connect")), &resp); err != nil {
		c.fail(ctx, conn, err)
		return "", err
	}
	if resp.URL == "" {
		err := &domain.ServerError{Status: 200, Message: "Slack authorization URL missing from response"}
		c.fail(ctx, conn, err)
		return "", err
	}

	err = c.advance(ctx, conn, SlackAuthorize, func(conn *models.SlackConnection) {
		conn.AuthURL = resp.URL
		conn.LastError = ""
	})
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// HandleOAuthCallback exchanges the authorization code server-side. Any
// failure moves the project to Failed.
func (c *connector) HandleOAuthCallback(ctx context.Context, projectID int64, code string) (map[string]any, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.NewValidationError("Authorization code is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.slack.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if conn.State != models.SlackAwaitingCallback {
		return nil, domain.NewValidationError(
			fmt.Sprintf("No Slack authorization in progress for project %d", projectID))
	}

	var result map[string]any
	req := apiclient.Get(projectPath(projectID, "/slack/callback")).Query("code", code)
	if err := c.api.Do(ctx, req, &result); err != nil {
		c.fail(ctx, conn, err)
		return nil, err
	}

	err = c.advance(ctx, conn, SlackComplete, func(conn *models.SlackConnection) {
		conn.AuthURL = ""
		conn.LastError = ""
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordOAuthError moves an awaiting project to Failed with reason.
func (c *connector) RecordOAuthError(ctx context.Context, projectID int64, reason string) (*models.SlackConnection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.slack.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if conn.State != models.SlackAwaitingCallback {
		return nil, domain.NewValidationError(
			fmt.Sprintf("No Slack authorization in progress for project %d", projectID))
	}

	err = c.advance(ctx, conn, SlackFail, func(conn *models.SlackConnection) {
		conn.AuthURL = ""
		conn.LastError = "Slack authorization failed: " + reason
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SlackStatus returns the persisted connection state.
func (c *connector) SlackStatus(ctx context.Context, projectID int64) (*models.SlackConnection, error) {
	return c.slack.Get(ctx, projectID)
}

// ForgetProject drops the local Slack record of a deleted project.
func (c *connector) ForgetProject(ctx context.Context, projectID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.slack.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("forget slack state: %w", err)
	}
	c.logger.Debug("slack state forgotten", "project_id", projectID)
	return nil
}

// ListSlackChannels lists the channels of the connected workspace.
func (c *connector) ListSlackChannels(ctx context.Context, projectID int64) ([]models.SlackChannel, error) {
	var channels []models.SlackChannel
	if err := c.api.Do(ctx, apiclient.Get(projectPath(projectID, "/slack/channels")), &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// advance applies event to conn, lets mutate adjust it and persists the result.
func (c *connector) advance(ctx context.Context, conn *models.SlackConnection, event SlackEvent, mutate func(*models.SlackConnection)) error {
	next, err := ApplySlackTransition(conn.State, event)
	if err != nil {
		return err
	}

	previous := conn.State
	conn.State = next
	conn.UpdatedAt = time.Now().UTC()
	if mutate != nil {
		mutate(conn)
	}
	if err := c.slack.Put(ctx, conn); err != nil {
		return fmt.Errorf("persist slack state: %w", err)
	}

	c.logger.Info("slack state changed",
		"project_id", conn.ProjectID,
		"from", previous,
		"to", next,
	)
	return nil
}

// fail records cause. States without a fail transition keep their state.
func (c *connector) fail(ctx context.Context, conn *models.SlackConnection, cause error) {
	if !CanApply(conn.State, SlackFail) {
		c.logger.Warn("slack request failed", "project_id", conn.ProjectID, "state", conn.State, "error", cause)
		return
	}
	err := c.advance(ctx, conn, SlackFail, func(conn *models.SlackConnection) {
		conn.AuthURL = ""
		conn.LastError = domain.Message(cause)
	})
	if err != nil {
		c.logger.Error("failed to record slack failure", "project_id", conn.ProjectID, "error", err)
	}
}
