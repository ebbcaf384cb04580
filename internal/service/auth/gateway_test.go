package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"projectdesk/internal/apiclient"
	"projectdesk/internal/domain"
	"projectdesk/internal/domain/services"
	"projectdesk/internal/service/auth"
	"projectdesk/internal/session"
	"projectdesk/internal/testutil/fakeapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type memoryRepo struct {
	mu    sync.Mutex
	value string
	saves int
}

func (m *memoryRepo) Load(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

func (m *memoryRepo) Save(ctx context.Context, credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = credential
	m.saves++
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = ""
	return nil
}

type fixture struct {
	api     *fakeapi.Server
	repo    *memoryRepo
	store   *session.Store
	gateway services.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := fakeapi.New(t)
	repo := &memoryRepo{}
	store := session.New(context.Background(), repo, discard)
	client := apiclient.New(api.URL, store, discard)
	return &fixture{
		api:     api,
		repo:    repo,
		store:   store,
		gateway: auth.NewGateway(client, store, discard),
	}
}

func TestLogin_StoresCredential(t *testing.T) {
	f := newFixture(t)
	f.api.AddUser("alice", "secret1")
	f.api.NextTokens("tok123")

	require.NoError(t, f.gateway.Login(context.Background(), "alice", "secret1"))

	got, ok := f.store.Credential()
	assert.True(t, ok)
	assert.Equal(t, "tok123", got)
	assert.Equal(t, "tok123", f.repo.value, "durable storage holds the credential")
}

func TestLogin_FailureSurfacesServerMessage(t *testing.T) {
	f := newFixture(t)
	f.api.AddUser("alice", "secret1")

	err := f.gateway.Login(context.Background(), "alice", "wrong")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "Invalid Credentials", domain.Message(err))
	assert.False(t, f.store.Authenticated(), "session untouched on failure")
}

func TestLogin_FallbackMessage(t *testing.T) {
	f := newFixture(t)
	f.api.Override("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	err := f.gateway.Login(context.Background(), "alice", "secret1")

	require.Error(t, err)
	assert.Equal(t, "login failed", domain.Message(err))
}

func TestLogin_EmptyFieldsIssueNoRequest(t *testing.T) {
	f := newFixture(t)

	err := f.gateway.Login(context.Background(), "", "secret1")

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.api.TotalCalls())
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		confirm  string
		message  string
	}{
		{"five characters", "alice", "abc12", "abc12", auth.PasswordRuleMessage},
		{"mismatch", "alice", "abcdef", "abcdeg", auth.PasswordRuleMessage},
		{"empty confirm", "alice", "abcdef", "", auth.PasswordRuleMessage},
		{"empty password", "alice", "", "", auth.PasswordRuleMessage},
		{"missing username", "  ", "abcdef", "abcdef", "Username is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			err := f.gateway.Register(context.Background(), tt.username, tt.password, tt.confirm)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, tt.message, domain.Message(err))
			assert.Zero(t, f.api.TotalCalls(), "no network call on validation failure")
			assert.False(t, f.store.Authenticated())
		})
	}
}

func TestRegister_SuccessIssuesOneCallAndSignsIn(t *testing.T) {
	f := newFixture(t)
	f.api.NextTokens("tok123")

	require.NoError(t, f.gateway.Register(context.Background(), "alice", "abcdef", "abcdef"))

	assert.Equal(t, 1, f.api.TotalCalls())
	assert.Equal(t, 1, f.api.Calls("POST /api/users"))
	got, _ := f.store.Credential()
	assert.Equal(t, "tok123", got)
	assert.Equal(t, "tok123", f.repo.value)
	assert.GreaterOrEqual(t, f.repo.saves, 2, "register writes durable storage explicitly")
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.api.AddUser("alice", "abcdef")

	err := f.gateway.Register(context.Background(), "alice", "abcdef", "abcdef")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServer)
	assert.Equal(t, "Username already exists", domain.Message(err))
	assert.False(t, f.store.Authenticated())
}

func TestLogout_ClearsSession(t *testing.T) {
	f := newFixture(t)
	f.api.AddUser("alice", "secret1")
	require.NoError(t, f.gateway.Login(context.Background(), "alice", "secret1"))

	f.gateway.Logout(context.Background())

	assert.False(t, f.store.Authenticated())
	assert.Empty(t, f.repo.value)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	id := f.api.AddUser("alice", "secret1")
	require.NoError(t, f.gateway.Login(context.Background(), "alice", "secret1"))

	user, err := f.gateway.CurrentUser(context.Background())

	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "alice", user.Username)
}

func TestCurrentUser_RejectedCredentialKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.store.SetCredential(context.Background(), "expired")

	_, err := f.gateway.CurrentUser(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.True(t, f.store.Authenticated(), "no automatic logout")
}
