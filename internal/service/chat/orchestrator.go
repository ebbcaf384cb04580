// Package chat sends assistant queries and keeps the user's chat history.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"projectdesk/internal/apiclient"
	"projectdesk/internal/config"
	"projectdesk/internal/domain"
	"projectdesk/internal/domain/models"
)

// appended is a locally appended message, tagged with the history load
// sequence current when it was appended. seen counts identical messages
// already in the history at that point.
type appended struct {
	seq  uint64
	seen int
	msg  models.ChatMessage
}

// Orchestrator holds the chat history and the ephemeral input state
// (draft, mode, selected project). History is append-only between loads.
type Orchestrator struct {
	api    *apiclient.Client
	logger *slog.Logger

	mu           sync.Mutex
	history      []models.ChatMessage
	local        []appended
	draft        string
	mode         models.QueryMode
	selected     string
	lastResponse string
	issued       uint64
	applied      uint64
	generation   uint64
}

// New creates an orchestrator in general mode with empty history.
func New(api *apiclient.Client, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		api:    api,
		logger: logger,
		mode:   models.ModeGeneral,
	}
}

// LoadHistory replaces the history with the server's complete list for the
// signed-in user. Messages appended while the load was in flight are kept.
func (o *Orchestrator) LoadHistory(ctx context.Context) ([]models.ChatMessage, error) {
	o.mu.Lock()
	o.issued++
	seq := o.issued
	o.mu.Unlock()

	var resp models.ChatListResponse
	if err := o.api.Do(ctx, apiclient.Get("/api/get-chats"), &resp); err != nil {
		o.logger.Warn("chat history load failed", "seq", seq, "error", err)
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if seq <= o.applied {
		o.logger.Debug("discarding stale chat history", "seq", seq, "applied", o.applied)
		return o.historyLocked(), nil
	}
	o.applied = seq

	history := append([]models.ChatMessage{}, resp.Chats...)
	kept := o.local[:0]
	for _, a := range o.local {
		if a.seq < seq {
			continue
		}
		kept = append(kept, a)
		// The server list holds this send only if it has more copies than we had
		if occurrences(resp.Chats, a.msg) <= a.seen {
			history = append(history, a.msg)
		}
	}
	o.local = kept
	o.history = history

	o.logger.Debug("chat history loaded", "messages", len(history))
	return o.historyLocked(), nil
}

func occurrences(list []models.ChatMessage, msg models.ChatMessage) int {
	n := 0
	for _, m := range list {
		if sameMessage(m, msg) {
			n++
		}
	}
	return n
}

func sameMessage(a, b models.ChatMessage) bool {
	if a.Query != b.Query || a.Response != b.Response {
		return false
	}
	if a.ProjectID == nil || b.ProjectID == nil {
		return a.ProjectID == b.ProjectID
	}
	return *a.ProjectID == *b.ProjectID
}

// SendQuery asks the assistant with text exactly as typed. Blank text, or
// project mode without a selection, is a no-op returning (nil, nil) without a request. On success
// the message is appended last and the draft is cleared; on failure history
// and draft are untouched.
func (o *Orchestrator) SendQuery(ctx context.Context, text string, mode models.QueryMode, selectedProjectID string) (*models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if !mode.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("Unknown query mode %q", mode))
	}
	if utf8.RuneCountInString(text) > config.MaxChatQueryLength {
		return nil, domain.NewValidationError(
			fmt.Sprintf("Query must be at most %d characters", config.MaxChatQueryLength))
	}

	var projectID *int64
	if mode == models.ModeProject {
		selectedProjectID = strings.TrimSpace(selectedProjectID)
		if selectedProjectID == "" {
			return nil, nil
		}
		id, err := strconv.ParseInt(selectedProjectID, 10, 64)
		if err != nil || id <= 0 {
			return nil, domain.NewValidationError(fmt.Sprintf("Invalid project selection %q", selectedProjectID))
		}
		projectID = &id
	}

	o.mu.Lock()
	generation := o.generation
	o.mu.Unlock()

	req := models.ChatQueryRequest{Query: text, ProjectID: projectID}
	var resp models.ChatQueryResponse
	if err := o.api.Do(ctx, apiclient.Post("/api/gpt-query").JSON(req), &resp); err != nil {
		o.logger.Warn("assistant query failed", "mode", mode, "error", err)
		return nil, err
	}

	msg := models.ChatMessage{Query: text, Response: resp.Response, ProjectID: projectID}

	o.mu.Lock()
	defer o.mu.Unlock()

	if generation != o.generation {
		o.logger.Debug("dropping reply for a previous session")
		return &msg, nil
	}
	seen := occurrences(o.history, msg)
	o.history = append(o.history, msg)
	o.local = append(o.local, appended{seq: o.issued, seen: seen, msg: msg})
	o.lastResponse = msg.Response
	o.draft = ""

	o.logger.Info("assistant replied", "mode", mode, "history", len(o.history))
	return &msg, nil
}

// Send submits the current draft with the current mode and selection.
func (o *Orchestrator) Send(ctx context.Context) (*models.ChatMessage, error) {
	o.mu.Lock()
	draft, mode, selected := o.draft, o.mode, o.selected
	o.mu.Unlock()
	return o.SendQuery(ctx, draft, mode, selected)
}

// History returns a copy of the chat history.
func (o *Orchestrator) History() []models.ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.historyLocked()
}

func (o *Orchestrator) historyLocked() []models.ChatMessage {
	out := make([]models.ChatMessage, len(o.history))
	copy(out, o.history)
	return out
}

func (o *Orchestrator) SetDraft(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft = text
}

func (o *Orchestrator) Draft() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.draft
}

// SetMode switches between general and project queries.
func (o *Orchestrator) SetMode(mode models.QueryMode) error {
	if !mode.Valid() {
		return domain.NewValidationError(fmt.Sprintf("Unknown query mode %q", mode))
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mode = mode
	return nil
}

func (o *Orchestrator) Mode() models.QueryMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// Select sets the project used in project mode. It lives for the session only.
func (o *Orchestrator) Select(projectID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selected = projectID
}

func (o *Orchestrator) Selected() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selected
}

// LastResponse is the most recent assistant reply of this session.
func (o *Orchestrator) LastResponse() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastResponse
}

// Reset drops all session state and invalidates in-flight loads and queries.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.issued++
	o.applied = o.issued
	o.generation++
	o.history = nil
	o.local = nil
	o.draft = ""
	o.selected = ""
	o.mode = models.ModeGeneral
	o.lastResponse = ""
}
