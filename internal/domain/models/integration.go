package models

import "time"

// ClickUpLink links a project to a ClickUp list. It is sent once and never kept.
type ClickUpLink struct {
	APIToken string `json:"api_token"`
	ListID   string `json:"list_id"`
}

// SlackAppConfig holds the per-project Slack app registration.
type SlackAppConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
}

// SlackState is the connection lifecycle of one project's Slack integration.
type SlackState string

const (
	SlackUnconfigured     SlackState = "unconfigured"
	SlackConfigured       SlackState = "configured"
	SlackAwaitingCallback SlackState = "awaiting_callback"
	SlackConnected        SlackState = "connected"
	SlackFailed           SlackState = "failed"
)

// SlackConnection is the persisted state machine record for a project.
type SlackConnection struct {
	ProjectID int64      `json:"project_id"`
	State     SlackState `json:"state"`
	AuthURL   string     `json:"auth_url,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SlackAuthURLResponse is returned by GET /api/projects/{id}/slack/connect.
type SlackAuthURLResponse struct {
	URL string `json:"url"`
}

// SlackChannel is one entry of GET /api/projects/{id}/slack/channels.
type SlackChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
