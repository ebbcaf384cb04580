package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"projectdesk/internal/apiclient"
	"projectdesk/internal/app"
	"projectdesk/internal/config"
	"projectdesk/internal/repository/sqlite"
	"projectdesk/internal/service/auth"
	"projectdesk/internal/service/chat"
	"projectdesk/internal/service/integrations"
	"projectdesk/internal/service/projects"
	"projectdesk/internal/session"
	"projectdesk/internal/telemetry"

	"github.com/joho/godotenv"
)

// version is set at build time with -ldflags "-X ...commands.version=..."
var version = "dev"

// runtime holds the wired components for one CLI invocation.
type runtime struct {
	configPath string
	apiURL     string
	debug      bool

	cfg     *config.Config
	logger  *slog.Logger
	logFile *os.File
	db      *sql.DB
	ws      *app.Workspace
}

func (rt *runtime) open(ctx context.Context) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadFile(rt.configPath)
	if err != nil {
		return err
	}
	if rt.apiURL != "" {
		cfg.APIURL = rt.apiURL
	}
	if rt.debug {
		cfg.Debug = true
	}
	rt.cfg = cfg

	var logOut io.Writer = io.Discard
	if f, err := config.SetupLogFile(cfg.LogDir, cfg.MaxLogFiles); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	} else {
		rt.logFile = f
		logOut = f
	}
	rt.logger = config.NewLogger(cfg, logOut)
	slog.SetDefault(rt.logger)

	if err := telemetry.Init(cfg.SentryDSN, cfg.Environment, version); err != nil {
		rt.logger.Warn("telemetry disabled", "error", err)
	}

	db, err := sqlite.Open(ctx, cfg.DatabasePath())
	if err != nil {
		// Without storage the session still works for this process
		rt.logger.Error("state database unavailable", "path", cfg.DatabasePath(), "error", err)
		db, err = sqlite.Open(ctx, ":memory:")
		if err != nil {
			return err
		}
	}
	rt.db = db

	repoConfig := &sqlite.RepositoryConfig{DB: db, Logger: rt.logger}
	store := session.New(ctx, sqlite.NewCredentialRepository(repoConfig), rt.logger)
	client := apiclient.New(cfg.APIURL, store, rt.logger, apiclient.WithTimeout(cfg.HTTPTimeout))

	rt.ws = app.NewWorkspace(app.Components{
		Session:      store,
		Auth:         auth.NewGateway(client, store, rt.logger),
		Catalog:      projects.NewCatalog(projects.NewService(client, rt.logger), rt.logger),
		Integrations: integrations.NewConnector(client, sqlite.NewSlackConnectionRepository(repoConfig), rt.logger),
		Chat:         chat.New(client, rt.logger),
	}, rt.logger)

	rt.logger.Debug("client started",
		"api_url", cfg.APIURL,
		"environment", cfg.Environment,
		"authenticated", store.Authenticated(),
	)
	return nil
}

func (rt *runtime) close() {
	if rt.ws != nil {
		rt.ws.Wait()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
	telemetry.Flush()
	if rt.logFile != nil {
		_ = rt.logFile.Close()
	}
}
