// Package callback runs the local HTTP endpoint that receives the Slack OAuth
// redirect and serves the persisted connection status.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"projectdesk/internal/domain"
	"projectdesk/internal/domain/models"
	"projectdesk/internal/domain/services"
	"projectdesk/internal/httputil"
	"projectdesk/internal/middleware"

	"github.com/rs/cors"
)

// Result is the outcome of one OAuth redirect.
type Result struct {
	ProjectID int64
	State     models.SlackState
	Err       error
}

// Listener serves GET /slack/callback and GET /slack/status/{projectID}.
type Listener struct {
	integrations services.IntegrationService
	corsOrigins  []string
	logger       *slog.Logger

	results chan Result
	server  *http.Server
	ln      net.Listener
}

// New creates a listener. corsOrigins is the comma-separated list of
// origins allowed to poll the status endpoint.
func New(integrations services.IntegrationService, corsOrigins string, logger *slog.Logger) *Listener {
	var origins []string
	for _, o := range strings.Split(corsOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return &Listener{
		integrations: integrations,
		corsOrigins:  origins,
		logger:       logger,
		results:      make(chan Result, 8),
	}
}

// Handler builds the routes and middleware chain.
func (l *Listener) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /slack/callback", l.handleCallback)
	mux.HandleFunc("GET /slack/status/{projectID}", l.handleStatus)

	// Order: CORS → Recovery → RequestLog → Routes
	var handler http.Handler = mux
	handler = middleware.RequestLog(l.logger)(handler)
	handler = middleware.Recovery(l.logger)(handler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: l.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Accept", "X-Request-ID"},
	})
	return corsHandler.Handler(handler)
}

// Start listens on addr and serves in the background.
func (l *Listener) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	l.ln = ln
	l.server = &http.Server{
		Handler:           l.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("callback listener stopped", "error", err)
		}
	}()

	l.logger.Info("callback listener started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, useful when started on port 0.
func (l *Listener) Addr() string {
	if l.ln == nil {
		return ""
	}
	return l.ln.Addr().String()
}

// Wait blocks until a redirect has been handled or ctx is done.
func (l *Listener) Wait(ctx context.Context) (Result, error) {
	select {
	case r := <-l.results:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Shutdown stops the server gracefully.
func (l *Listener) Shutdown(ctx context.Context) error {
	if l.server == nil {
		return nil
	}
	return l.server.Shutdown(ctx)
}

func (l *Listener) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	projectID, err := strconv.ParseInt(q.Get("state"), 10, 64)
	if err != nil || projectID <= 0 {
		httputil.RespondError(w, http.StatusBadRequest, "missing or invalid state parameter")
		return
	}

	var (
		result = Result{ProjectID: projectID}
		status = http.StatusOK
		body   string
	)

	if reason := q.Get("error"); reason != "" {
		conn, err := l.integrations.RecordOAuthError(r.Context(), projectID, reason)
		if err != nil {
			result.Err = err
		} else {
			result.State = conn.State
			result.Err = domain.NewValidationError(conn.LastError)
		}
	} else if _, err := l.integrations.HandleOAuthCallback(r.Context(), projectID, q.Get("code")); err != nil {
		result.Err = err
	}

	if conn, err := l.integrations.SlackStatus(r.Context(), projectID); err == nil {
		result.State = conn.State
	}

	if result.Err != nil {
		status = httputil.StatusFor(result.Err)
		body = "Slack connection failed: " + domain.Message(result.Err) + "\n"
		l.logger.Warn("slack callback failed", "project_id", projectID, "state", result.State, "error", result.Err)
	} else {
		body = "Slack connected. You can close this window.\n"
		l.logger.Info("slack callback completed", "project_id", projectID)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))

	select {
	case l.results <- result:
	default:
		l.logger.Warn("callback result dropped, nobody is waiting", "project_id", projectID)
	}
}

func (l *Listener) handleStatus(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(r.PathValue("projectID"), 10, 64)
	if err != nil || projectID <= 0 {
		httputil.RespondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	conn, err := l.integrations.SlackStatus(r.Context(), projectID)
	if err != nil {
		httputil.RespondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conn)
}
