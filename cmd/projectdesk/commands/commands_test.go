package commands

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"projectdesk/internal/domain"
	"projectdesk/internal/testutil/fakeapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes one CLI invocation against api with its own runtime, the way
// separate processes would share only the state directory.
func run(t *testing.T, api *fakeapi.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	rt := &runtime{}
	cmd := NewRootCommand(rt)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--api-url", api.URL}, args...))

	err := cmd.ExecuteContext(context.Background())
	rt.close()
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PROJECTDESK_STATE_DIR", dir)
	t.Setenv("PROJECTDESK_LOG_DIR", dir+"/logs")
	t.Setenv("PROJECTDESK_CONFIG", "")
	t.Setenv("SENTRY_DSN", "")
}

func TestCLI_SessionPersistsAcrossInvocations(t *testing.T) {
	setupEnv(t)
	api := fakeapi.New(t)
	api.AddUser("alice", "secret1")

	out, err := run(t, api, "secret1\n", "login", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")

	out, err = run(t, api, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	_, err = run(t, api, "", "logout")
	require.NoError(t, err)

	_, err = run(t, api, "", "whoami")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCLI_ProjectLifecycle(t *testing.T) {
	setupEnv(t)
	api := fakeapi.New(t)
	api.AddUser("alice", "secret1")
	_, err := run(t, api, "", "login", "alice", "-p", "secret1")
	require.NoError(t, err)

	out, err := run(t, api, "", "projects", "create", "--name", "P1", "--department", "Eng", "--deadline", "2025-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Created project 1")

	out, err = run(t, api, "", "projects", "update", "1", "--name", "P1-renamed")
	require.NoError(t, err)
	assert.Contains(t, out, "P1-renamed")
	assert.Equal(t, "Eng", api.Projects()[0].Department, "unset flags keep their value")

	out, err = run(t, api, "", "projects", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "P1-renamed")

	out, err = run(t, api, "", "projects", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "No projects found")
}

func TestCLI_CreateValidation(t *testing.T) {
	setupEnv(t)
	api := fakeapi.New(t)
	api.AddUser("alice", "secret1")
	_, err := run(t, api, "", "login", "alice", "-p", "secret1")
	require.NoError(t, err)

	_, err = run(t, api, "", "projects", "create", "--name", "P1", "--deadline", "tomorrow")

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, api.Projects())
}

func TestCLI_RegisterRejectsShortPassword(t *testing.T) {
	setupEnv(t)
	api := fakeapi.New(t)

	_, err := run(t, api, "", "register", "bob", "-p", "abc12", "--confirm", "abc12")

	require.Error(t, err)
	assert.Equal(t, "Passwords must match and be greater than 5 characters.", displayError(err))
	assert.Zero(t, api.Calls("POST /api/users"))
}

func TestCLI_ChatAsk(t *testing.T) {
	setupEnv(t)
	api := fakeapi.New(t)
	api.AddUser("alice", "secret1")
	_, err := run(t, api, "", "login", "alice", "-p", "secret1")
	require.NoError(t, err)

	out, err := run(t, api, "", "chat", "ask", "--raw", "hello", "there")
	require.NoError(t, err)
	assert.Contains(t, out, "echo: hello there")

	out, err = run(t, api, "", "chat", "history", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "> hello there  (general)")

	before := api.Calls("POST /api/gpt-query")
	out, err = run(t, api, "", "chat", "ask", "--raw", "--project", "", "status?")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to send")
	assert.Equal(t, before, api.Calls("POST /api/gpt-query"))
}

func TestCLI_SlackFlow(t *testing.T) {
	setupEnv(t)
	api := fakeapi.New(t)
	api.AddUser("alice", "secret1")
	_, err := run(t, api, "", "login", "alice", "-p", "secret1")
	require.NoError(t, err)
	_, err = run(t, api, "", "projects", "create", "--name", "P1", "--department", "Eng", "--deadline", "2025-01-01")
	require.NoError(t, err)

	out, err := run(t, api, "", "slack", "configure", "1", "--client-id", "cid", "--client-secret", "s")
	require.NoError(t, err)
	assert.Contains(t, out, "https://slack.com/oauth/v2/authorize")

	out, err = run(t, api, "", "slack", "status", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "awaiting_callback")

	_, err = run(t, api, "", "slack", "callback", "1", "badcode")
	require.Error(t, err)

	out, err = run(t, api, "", "slack", "status", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
}

func TestCLI_ClickUpFailureShowsNotice(t *testing.T) {
	setupEnv(t)
	api := fakeapi.New(t)
	api.AddUser("alice", "secret1")
	id := api.AddProject("alice", "P1")
	_, err := run(t, api, "", "login", "alice", "-p", "secret1")
	require.NoError(t, err)

	api.Fail("POST /api/projects/{id}/clickup", http.StatusUnauthorized, "Invalid ClickUp token")
	_, err = run(t, api, "", "clickup", "link", strconv.FormatInt(id, 10), "--token", "bad", "--list", "L1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "Failed to connect to ClickUp. Please check your credentials.", displayError(err))

	_, err = run(t, api, "", "clickup", "link", strconv.FormatInt(id, 10), "--list", "L1")
	require.Error(t, err)
	assert.Contains(t, displayError(err), "ClickUp API token is required", "validation text is kept")
}

func TestDisplayError(t *testing.T) {
	assert.Equal(t, "bad", displayError(domain.NewValidationError("bad")))
	assert.Equal(t, "unknown flag: --x", displayError(errorString("unknown flag: --x")))
	assert.Equal(t, "Try again", displayError(&noticeError{notice: "Try again", err: domain.NewValidationError("bad")}))
}

type errorString string

func (e errorString) Error() string { return string(e) }
