// Package app wires the client components together and reacts to session
// changes: signing in loads the user's data, signing out clears it.
package app

import (
	"context"
	"log/slog"
	"sync"

	"projectdesk/internal/domain/models"
	"projectdesk/internal/domain/services"
	"projectdesk/internal/service/chat"
	"projectdesk/internal/service/projects"
	"projectdesk/internal/session"
)

// Workspace owns the session subscription and the shared notice.
type Workspace struct {
	Session      *session.Store
	Auth         services.AuthService
	Catalog      *projects.Catalog
	Integrations services.IntegrationService
	Chat         *chat.Orchestrator
	Modal        *Modal
	Notice       *Notice

	logger *slog.Logger
	wg     sync.WaitGroup

	mu         sync.Mutex
	ctx        context.Context
	profile    *models.User
	generation uint64
}

// Components are the services a Workspace is built from.
type Components struct {
	Session      *session.Store
	Auth         services.AuthService
	Catalog      *projects.Catalog
	Integrations services.IntegrationService
	Chat         *chat.Orchestrator
}

// NewWorkspace subscribes to session changes. Call Start to load data for a
// session that is already signed in.
func NewWorkspace(c Components, logger *slog.Logger) *Workspace {
	notice := NewNotice(logger)
	w := &Workspace{
		Session:      c.Session,
		Auth:         c.Auth,
		Catalog:      c.Catalog,
		Integrations: c.Integrations,
		Chat:         c.Chat,
		Modal:        NewModal(c.Catalog, c.Integrations, notice, logger),
		Notice:       notice,
		logger:       logger,
		ctx:          context.Background(),
	}
	c.Session.Subscribe(w.onTransition)
	return w
}

// Start loads user data when a credential was restored from storage. ctx
// bounds every background load started from now on.
func (w *Workspace) Start(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	if w.Session.Authenticated() {
		w.load()
	}
}

// Wait blocks until all background loads have finished.
func (w *Workspace) Wait() {
	w.wg.Wait()
}

// Profile returns the signed-in user once it has been fetched.
func (w *Workspace) Profile() (*models.User, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.profile == nil {
		return nil, false
	}
	u := *w.profile
	return &u, true
}

func (w *Workspace) onTransition(t session.Transition) {
	switch {
	case t.SignedIn():
		w.load()
	case t.SignedOut():
		w.clear()
	default:
		// a different credential replaced the current one
		w.clear()
		w.load()
	}
}

// load fans out the user-scoped fetches. They run independently and each
// reports its own failure.
func (w *Workspace) load() {
	w.mu.Lock()
	ctx := w.ctx
	generation := w.generation
	w.mu.Unlock()

	w.logger.Debug("loading user data")

	w.wg.Add(3)
	go func() {
		defer w.wg.Done()
		user, err := w.Auth.CurrentUser(ctx)
		if err != nil {
			w.logger.Warn("profile load failed", "error", err)
			return
		}
		w.mu.Lock()
		if generation == w.generation {
			w.profile = user
		}
		w.mu.Unlock()
	}()

	go func() {
		defer w.wg.Done()
		if _, err := w.Catalog.Refresh(ctx); err != nil {
			w.Notice.SetMessage(MsgProjectsLoadFailed, err, "list projects")
		}
	}()

	go func() {
		defer w.wg.Done()
		if _, err := w.Chat.LoadHistory(ctx); err != nil {
			w.logger.Warn("chat history load failed", "error", err)
		}
	}()
}

func (w *Workspace) clear() {
	w.mu.Lock()
	w.generation++
	w.profile = nil
	w.mu.Unlock()

	w.Catalog.Reset()
	w.Chat.Reset()
	w.Modal.Reset()
	w.Notice.Clear()
	w.logger.Debug("user data cleared")
}
