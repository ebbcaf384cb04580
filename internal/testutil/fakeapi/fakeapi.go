// Package fakeapi is an in-memory stand-in for the project-management backend,
// served over httptest for package tests.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"projectdesk/internal/domain/models"
)

// SlackGoodCode is the only authorization code the fake Slack exchange accepts.
const SlackGoodCode = "goodcode"

type user struct {
	id       int64
	username string
	password string
}

type slackIntegration struct {
	config    models.SlackAppConfig
	connected bool
}

// Server is the fake backend. All exported methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]*user
	tokens     map[string]int64
	nextToken  []string
	projects   map[int64]*models.Project
	chats      map[int64][]models.ChatMessage
	clickup    map[int64]models.ClickUpLink
	slack      map[int64]*slackIntegration
	calls      map[string]int
	overrides  map[string]http.HandlerFunc
	nextUserID int64
	nextProjID int64
	nextChatID int64

	assistant func(query string, projectID *int64) (string, error)
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:     map[string]*user{},
		tokens:    map[string]int64{},
		projects:  map[int64]*models.Project{},
		chats:     map[int64][]models.ChatMessage{},
		clickup:   map[int64]models.ClickUpLink{},
		slack:     map[int64]*slackIntegration{},
		calls:     map[string]int{},
		overrides: map[string]http.HandlerFunc{},
		assistant: func(query string, projectID *int64) (string, error) {
			return "echo: " + query, nil
		},
	}

	mux := http.NewServeMux()
	s.route(mux, "POST /api/token", s.handleToken)
	s.route(mux, "POST /api/users", s.handleRegister)
	s.route(mux, "GET /api/users/me", s.authed(s.handleMe))
	s.route(mux, "GET /api/projects", s.authed(s.handleListProjects))
	s.route(mux, "POST /api/projects", s.authed(s.handleCreateProject))
	s.route(mux, "GET /api/projects/{id}", s.authed(s.handleGetProject))
	s.route(mux, "PUT /api/projects/{id}", s.authed(s.handleUpdateProject))
	s.route(mux, "DELETE /api/projects/{id}", s.authed(s.handleDeleteProject))
	s.route(mux, "GET /api/get-chats", s.authed(s.handleGetChats))
	s.route(mux, "POST /api/gpt-query", s.authed(s.handleQuery))
	s.route(mux, "POST /api/projects/{id}/clickup", s.authed(s.handleClickUp))
	s.route(mux, "POST /api/projects/{id}/slack/config", s.authed(s.handleSlackConfig))
	s.route(mux, "GET /api/projects/{id}/slack/connect", s.authed(s.handleSlackConnect))
	s.route(mux, "GET /api/projects/{id}/slack/callback", s.authed(s.handleSlackCallback))
	s.route(mux, "GET /api/projects/{id}/slack/channels", s.authed(s.handleSlackChannels))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, password string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password).id
}

// NextTokens queues the access tokens handed out by the next logins/registrations.
func (s *Server) NextTokens(tokens ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken = append(s.nextToken, tokens...)
}

// IssueToken returns a valid credential for username without an HTTP round trip.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		u = s.addUserLocked(username, "password")
	}
	return s.issueLocked(u.id)
}

// AddProject stores a project owned by username and returns its id.
func (s *Server) AddProject(username, name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		u = s.addUserLocked(username, "password")
	}
	s.nextProjID++
	now := models.Timestamp{Time: time.Now().UTC()}
	s.projects[s.nextProjID] = &models.Project{
		ID:         s.nextProjID,
		OwnerID:    u.id,
		Name:       name,
		Department: "Eng",
		Deadline:   models.MustDate("2025-01-01"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return s.nextProjID
}

// SetAssistant replaces the reply function of the query route. The default echoes the query.
func (s *Server) SetAssistant(fn func(query string, projectID *int64) (string, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assistant = fn
}

// Calls returns how many requests matched pattern, e.g. "GET /api/projects".
func (s *Server) Calls(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[pattern]
}

// TotalCalls returns the number of requests received on any route.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Override replaces the handler of pattern. Calls are still counted.
func (s *Server) Override(pattern string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[pattern] = h
}

// Fail makes pattern answer with status and a FastAPI-style detail.
func (s *Server) Fail(pattern string, status int, detail string) {
	s.Override(pattern, func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, status, detail)
	})
}

// Restore removes an override.
func (s *Server) Restore(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, pattern)
}

// Projects returns a snapshot of the stored projects.
func (s *Server) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedProjectsLocked(0)
}

// ClickUpLink returns what was linked for a project.
func (s *Server) ClickUpLink(projectID int64) (models.ClickUpLink, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.clickup[projectID]
	return link, ok
}

// SlackConnected reports whether the Slack exchange succeeded for a project.
func (s *Server) SlackConnected(projectID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	integ, ok := s.slack[projectID]
	return ok && integ.connected
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[pattern]++
		override := s.overrides[pattern]
		s.mu.Unlock()

		if override != nil {
			override(w, r)
			return
		}
		h(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID int64)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		userID, valid := s.tokens[token]
		s.mu.Unlock()
		if !ok || !valid {
			writeDetail(w, http.StatusUnauthorized, "Invalid Email or Password")
			return
		}
		h(w, r, userID)
	}
}

func (s *Server) addUserLocked(username, password string) *user {
	s.nextUserID++
	u := &user{id: s.nextUserID, username: username, password: password}
	s.users[username] = u
	return u
}

func (s *Server) issueLocked(userID int64) string {
	var token string
	if len(s.nextToken) > 0 {
		token, s.nextToken = s.nextToken[0], s.nextToken[1:]
	} else {
		token = fmt.Sprintf("tok-%d-%d", userID, len(s.tokens)+1)
	}
	s.tokens[token] = userID
	return token
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	s.mu.Lock()
	u, ok := s.users[username]
	if !ok || u.password != password {
		s.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "Invalid Credentials")
		return
	}
	token := s.issueLocked(u.id)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username       string `json:"username"`
		HashedPassword string `json:"hashed_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Username]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Username already exists")
		return
	}
	u := s.addUserLocked(req.Username, req.HashedPassword)
	token := s.issueLocked(u.id)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.id == userID {
			writeJSON(w, http.StatusOK, models.User{ID: u.id, Username: u.username})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	projects := s.sortedProjectsLocked(userID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request, userID int64) {
	var fields models.ProjectFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	s.nextProjID++
	now := models.Timestamp{Time: time.Now().UTC()}
	p := &models.Project{
		ID:          s.nextProjID,
		OwnerID:     userID,
		Name:        fields.Name,
		Department:  fields.Department,
		Client:      fields.Client,
		Deadline:    fields.Deadline,
		Description: fields.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.projects[p.ID] = p
	out := *p
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	p, ok := s.ownedProjectLocked(r, userID)
	var out models.Project
	if ok {
		out = *p
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Project does not exist")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request, userID int64) {
	var fields models.ProjectFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	p, ok := s.ownedProjectLocked(r, userID)
	var out models.Project
	if ok {
		p.Name = fields.Name
		p.Department = fields.Department
		p.Client = fields.Client
		p.Deadline = fields.Deadline
		p.Description = fields.Description
		p.UpdatedAt = models.Timestamp{Time: time.Now().UTC()}
		out = *p
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Project does not exist")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	p, ok := s.ownedProjectLocked(r, userID)
	if ok {
		delete(s.projects, p.ID)
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Project does not exist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetChats(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	chats := append([]models.ChatMessage{}, s.chats[userID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.ChatListResponse{Chats: chats})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request, userID int64) {
	var req models.ChatQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Query must be a string."})
		return
	}

	s.mu.Lock()
	assistant := s.assistant
	s.mu.Unlock()

	reply, err := assistant(req.Query, req.ProjectID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.nextChatID++
	s.chats[userID] = append(s.chats[userID], models.ChatMessage{
		ID:        s.nextChatID,
		Query:     req.Query,
		Response:  reply,
		ProjectID: req.ProjectID,
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.ChatQueryResponse{Response: reply})
}

func (s *Server) handleClickUp(w http.ResponseWriter, r *http.Request, userID int64) {
	var link models.ClickUpLink
	if err := json.NewDecoder(r.Body).Decode(&link); err != nil || link.APIToken == "" || link.ListID == "" {
		writeDetail(w, http.StatusBadRequest, "api_token and list_id are required")
		return
	}

	s.mu.Lock()
	p, ok := s.ownedProjectLocked(r, userID)
	if ok {
		s.clickup[p.ID] = link
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "connected", "list_id": link.ListID})
}

func (s *Server) handleSlackConfig(w http.ResponseWriter, r *http.Request, userID int64) {
	var cfg models.SlackAppConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	p, ok := s.ownedProjectLocked(r, userID)
	if ok {
		s.slack[p.ID] = &slackIntegration{config: cfg}
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found or unauthorized access.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Slack integration configured"})
}

func (s *Server) handleSlackConnect(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	p, ok := s.ownedProjectLocked(r, userID)
	var integ *slackIntegration
	if ok {
		integ = s.slack[p.ID]
	}
	s.mu.Unlock()

	switch {
	case !ok:
		writeDetail(w, http.StatusNotFound, "Project not found or unauthorized access.")
	case integ == nil:
		writeDetail(w, http.StatusBadRequest, "Slack configuration not found for this project.")
	default:
		url := fmt.Sprintf("https://slack.com/oauth/v2/authorize?client_id=%s&scope=channels:read,chat:write,users:read&redirect_uri=%s&state=%d",
			integ.config.ClientID, integ.config.RedirectURI, p.ID)
		writeJSON(w, http.StatusOK, models.SlackAuthURLResponse{URL: url})
	}
}

func (s *Server) handleSlackCallback(w http.ResponseWriter, r *http.Request, userID int64) {
	code := r.URL.Query().Get("code")

	s.mu.Lock()
	p, ok := s.ownedProjectLocked(r, userID)
	var integ *slackIntegration
	if ok {
		integ = s.slack[p.ID]
	}
	if integ != nil && code == SlackGoodCode {
		integ.connected = true
	}
	s.mu.Unlock()

	switch {
	case !ok:
		writeDetail(w, http.StatusNotFound, "Project not found.")
	case integ == nil:
		writeDetail(w, http.StatusBadRequest, "Slack configuration not found for the project.")
	case code != SlackGoodCode:
		writeDetail(w, http.StatusBadRequest, "Slack OAuth failed: invalid_code")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "team": "fake-team"})
	}
}

func (s *Server) handleSlackChannels(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	p, ok := s.ownedProjectLocked(r, userID)
	connected := ok && s.slack[p.ID] != nil && s.slack[p.ID].connected
	s.mu.Unlock()

	switch {
	case !ok:
		writeDetail(w, http.StatusNotFound, "Project not found.")
	case !connected:
		writeDetail(w, http.StatusBadRequest, "Slack access token not found for this project.")
	default:
		writeJSON(w, http.StatusOK, []models.SlackChannel{
			{ID: "C001", Name: "general"},
			{ID: "C002", Name: "random"},
		})
	}
}

func (s *Server) ownedProjectLocked(r *http.Request, userID int64) (*models.Project, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return nil, false
	}
	p, ok := s.projects[id]
	if !ok || p.OwnerID != userID {
		return nil, false
	}
	return p, true
}

// sortedProjectsLocked lists projects by id; userID 0 means every owner.
func (s *Server) sortedProjectsLocked(userID int64) []models.Project {
	out := []models.Project{}
	for id := int64(1); id <= s.nextProjID; id++ {
		p, ok := s.projects[id]
		if !ok || (userID != 0 && p.OwnerID != userID) {
			continue
		}
		out = append(out, *p)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
