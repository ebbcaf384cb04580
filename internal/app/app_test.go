package app_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"projectdesk/internal/apiclient"
	"projectdesk/internal/app"
	"projectdesk/internal/domain"
	"projectdesk/internal/domain/models"
	"projectdesk/internal/repository/sqlite"
	"projectdesk/internal/service/auth"
	"projectdesk/internal/service/chat"
	"projectdesk/internal/service/integrations"
	"projectdesk/internal/service/projects"
	"projectdesk/internal/session"
	"projectdesk/internal/testutil/fakeapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newWorkspace(t *testing.T, api *fakeapi.Server, db *sql.DB) *app.Workspace {
	t.Helper()
	ctx := context.Background()
	repoCfg := &sqlite.RepositoryConfig{DB: db, Logger: discard}

	store := session.New(ctx, sqlite.NewCredentialRepository(repoCfg), discard)
	client := apiclient.New(api.URL, store, discard)
	ws := app.NewWorkspace(app.Components{
		Session:      store,
		Auth:         auth.NewGateway(client, store, discard),
		Catalog:      projects.NewCatalog(projects.NewService(client, discard), discard),
		Integrations: integrations.NewConnector(client, sqlite.NewSlackConnectionRepository(repoCfg), discard),
		Chat:         chat.New(client, discard),
	}, discard)
	ws.Start(ctx)
	ws.Wait()
	return ws
}

func signedIn(t *testing.T) (*fakeapi.Server, *app.Workspace) {
	t.Helper()
	api := fakeapi.New(t)
	api.AddUser("alice", "secret1")
	ws := newWorkspace(t, api, openDB(t))
	require.NoError(t, ws.Auth.Login(context.Background(), "alice", "secret1"))
	ws.Wait()
	return api, ws
}

func p1() models.ProjectFields {
	return models.ProjectFields{Name: "P1", Department: "Eng", Deadline: models.MustDate("2025-01-01")}
}

func TestWorkspace_SignInLoadsUserData(t *testing.T) {
	api := fakeapi.New(t)
	api.AddUser("alice", "secret1")
	api.AddProject("alice", "Existing")
	ws := newWorkspace(t, api, openDB(t))
	assert.Zero(t, api.TotalCalls(), "anonymous start issues nothing")

	require.NoError(t, ws.Auth.Login(context.Background(), "alice", "secret1"))
	ws.Wait()

	user, ok := ws.Profile()
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
	require.Len(t, ws.Catalog.Projects(), 1)
	assert.Equal(t, "Existing", ws.Catalog.Projects()[0].Name)
	assert.Equal(t, 1, api.Calls("GET /api/users/me"))
	assert.Equal(t, 1, api.Calls("GET /api/projects"))
	assert.Equal(t, 1, api.Calls("GET /api/get-chats"))
}

func TestWorkspace_RestoredSessionLoadsOnStart(t *testing.T) {
	api := fakeapi.New(t)
	api.AddProject("alice", "Existing")
	db := openDB(t)
	repo := sqlite.NewCredentialRepository(&sqlite.RepositoryConfig{DB: db, Logger: discard})
	require.NoError(t, repo.Save(context.Background(), api.IssueToken("alice")))

	ws := newWorkspace(t, api, db)

	assert.True(t, ws.Session.Authenticated())
	assert.Len(t, ws.Catalog.Projects(), 1)
	_, ok := ws.Profile()
	assert.True(t, ok)
}

func TestWorkspace_SignOutClearsState(t *testing.T) {
	ctx := context.Background()
	_, ws := signedIn(t)
	_, err := ws.Catalog.Create(ctx, p1())
	require.NoError(t, err)
	_, err = ws.Chat.SendQuery(ctx, "hello", models.ModeGeneral, "")
	require.NoError(t, err)
	require.NoError(t, ws.Modal.OpenCreateProject())

	ws.Auth.Logout(ctx)
	ws.Wait()

	assert.False(t, ws.Session.Authenticated())
	assert.Empty(t, ws.Catalog.Projects())
	assert.Empty(t, ws.Chat.History())
	_, ok := ws.Profile()
	assert.False(t, ok)
	form, _ := ws.Modal.Active()
	assert.Equal(t, app.FormNone, form)
}

func TestWorkspace_ProjectLoadFailureSetsNotice(t *testing.T) {
	api := fakeapi.New(t)
	api.AddUser("alice", "secret1")
	api.Fail("GET /api/projects", http.StatusInternalServerError, "db down")
	ws := newWorkspace(t, api, openDB(t))

	require.NoError(t, ws.Auth.Login(context.Background(), "alice", "secret1"))
	ws.Wait()

	assert.Equal(t, app.MsgProjectsLoadFailed, ws.Notice.Message())
	assert.True(t, ws.Session.Authenticated(), "no automatic logout")
}

func TestWorkspace_RejectedCredentialKeepsSession(t *testing.T) {
	api := fakeapi.New(t)
	db := openDB(t)
	repo := sqlite.NewCredentialRepository(&sqlite.RepositoryConfig{DB: db, Logger: discard})
	require.NoError(t, repo.Save(context.Background(), "expired"))

	ws := newWorkspace(t, api, db)

	assert.True(t, ws.Session.Authenticated())
	assert.Equal(t, app.MsgProjectsLoadFailed, ws.Notice.Message())
}

func TestModal_CancelRefreshesOnce(t *testing.T) {
	ctx := context.Background()
	api, ws := signedIn(t)
	_, err := ws.Catalog.Create(ctx, p1())
	require.NoError(t, err)
	before := ws.Catalog.Projects()
	listCalls := api.Calls("GET /api/projects")

	require.NoError(t, ws.Modal.OpenCreateProject())
	list, err := ws.Modal.Cancel(ctx)

	require.NoError(t, err)
	assert.Equal(t, before, list)
	assert.Equal(t, before, ws.Catalog.Projects())
	assert.Equal(t, listCalls+1, api.Calls("GET /api/projects"))
	form, target := ws.Modal.Active()
	assert.Equal(t, app.FormNone, form)
	assert.Zero(t, target)
}

func TestModal_AtMostOneForm(t *testing.T) {
	_, ws := signedIn(t)
	require.NoError(t, ws.Modal.OpenClickUp(1))

	err := ws.Modal.OpenSlack(1)

	assert.ErrorIs(t, err, domain.ErrValidation)
	form, target := ws.Modal.Active()
	assert.Equal(t, app.FormClickUp, form)
	assert.Equal(t, int64(1), target)
}

func TestModal_SubmitProjectCreate(t *testing.T) {
	ctx := context.Background()
	api, ws := signedIn(t)
	listCalls := api.Calls("GET /api/projects")
	require.NoError(t, ws.Modal.OpenCreateProject())

	project, err := ws.Modal.SubmitProject(ctx, p1())

	require.NoError(t, err)
	assert.Equal(t, "P1", project.Name)
	require.Len(t, ws.Catalog.Projects(), 1)
	assert.Equal(t, listCalls+1, api.Calls("GET /api/projects"), "one reload per submit")
	form, _ := ws.Modal.Active()
	assert.Equal(t, app.FormNone, form)
}

func TestModal_SubmitProjectFailureKeepsFormOpen(t *testing.T) {
	ctx := context.Background()
	api, ws := signedIn(t)
	require.NoError(t, ws.Modal.OpenCreateProject())
	api.Fail("POST /api/projects", http.StatusBadRequest, "Project name already used")

	_, err := ws.Modal.SubmitProject(ctx, p1())

	require.Error(t, err)
	assert.Equal(t, "Project name already used", ws.Notice.Message())
	form, _ := ws.Modal.Active()
	assert.Equal(t, app.FormProject, form)

	// last failure wins
	_, err = ws.Modal.SubmitProject(ctx, models.ProjectFields{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NotEqual(t, "Project name already used", ws.Notice.Message())
}

func TestModal_EditPrefillsAndUpdates(t *testing.T) {
	ctx := context.Background()
	api, ws := signedIn(t)
	id := api.AddProject("alice", "Original")

	require.NoError(t, ws.Modal.OpenEditProject(ctx, id))
	fields, ok := ws.Modal.Prefill()
	require.True(t, ok)
	assert.Equal(t, "Original", fields.Name)

	fields.Name = "Renamed"
	_, err := ws.Modal.SubmitProject(ctx, fields)
	require.NoError(t, err)

	p, ok := ws.Catalog.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, "Renamed", p.Name)
	assert.Equal(t, "Eng", p.Department)
}

func TestModal_EditLoadFailureKeepsFormOpen(t *testing.T) {
	_, ws := signedIn(t)

	err := ws.Modal.OpenEditProject(context.Background(), 404)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Project does not exist", ws.Notice.Message())
	form, target := ws.Modal.Active()
	assert.Equal(t, app.FormProject, form)
	assert.Equal(t, int64(404), target)
}

func TestModal_SubmitClickUp(t *testing.T) {
	ctx := context.Background()
	api, ws := signedIn(t)
	id := api.AddProject("alice", "P1")

	require.NoError(t, ws.Modal.OpenClickUp(id))
	api.Fail("POST /api/projects/{id}/clickup", http.StatusBadRequest, "Invalid ClickUp token")
	_, err := ws.Modal.SubmitClickUp(ctx, "pk_bad", "901")
	require.Error(t, err)
	assert.Equal(t, app.MsgClickUpFailed, ws.Notice.Message())
	form, _ := ws.Modal.Active()
	assert.Equal(t, app.FormClickUp, form)

	api.Restore("POST /api/projects/{id}/clickup")
	_, err = ws.Modal.SubmitClickUp(ctx, "pk_good", "901")
	require.NoError(t, err)
	form, _ = ws.Modal.Active()
	assert.Equal(t, app.FormNone, form)
	_, linked := api.ClickUpLink(id)
	assert.True(t, linked)
}

func TestModal_SubmitSlack(t *testing.T) {
	ctx := context.Background()
	api, ws := signedIn(t)
	id := api.AddProject("alice", "P1")
	require.NoError(t, ws.Modal.OpenSlack(id))

	authURL, err := ws.Modal.SubmitSlack(ctx, models.SlackAppConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURI:  "http://127.0.0.1:8765/slack/callback",
	})

	require.NoError(t, err)
	assert.Contains(t, authURL, "client_id=cid")
	conn, err := ws.Integrations.SlackStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SlackAwaitingCallback, conn.State)
	form, _ := ws.Modal.Active()
	assert.Equal(t, app.FormNone, form)
}

func TestModal_SubmitSlackFailure(t *testing.T) {
	ctx := context.Background()
	api, ws := signedIn(t)
	id := api.AddProject("alice", "P1")
	require.NoError(t, ws.Modal.OpenSlack(id))
	api.Fail("POST /api/projects/{id}/slack/config", http.StatusInternalServerError, "boom")

	_, err := ws.Modal.SubmitSlack(ctx, models.SlackAppConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURI:  "http://127.0.0.1:8765/slack/callback",
	})

	require.Error(t, err)
	assert.Equal(t, app.MsgSlackFailed, ws.Notice.Message())
	form, _ := ws.Modal.Active()
	assert.Equal(t, app.FormSlack, form)
}

func TestModal_SubmitWithoutOpenForm(t *testing.T) {
	_, ws := signedIn(t)

	_, err := ws.Modal.SubmitProject(context.Background(), p1())

	assert.ErrorIs(t, err, domain.ErrValidation)
}
