package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"projectdesk/internal/repository/sqlite"
	"projectdesk/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// memoryRepo is an in-memory CredentialRepository with failure switches.
type memoryRepo struct {
	mu        sync.Mutex
	value     string
	loadErr   error
	saveErr   error
	saveCalls int
}

func (m *memoryRepo) Load(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.loadErr
}

func (m *memoryRepo) Save(ctx context.Context, credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.value = credential
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.value = ""
	return nil
}

func TestNew_HydratesFromStorage(t *testing.T) {
	store := session.New(context.Background(), &memoryRepo{value: "tok123"}, discard)

	got, ok := store.Credential()
	assert.True(t, ok)
	assert.Equal(t, "tok123", got)
}

func TestNew_StorageFailureStartsAnonymous(t *testing.T) {
	store := session.New(context.Background(), &memoryRepo{loadErr: errors.New("storage unavailable")}, discard)

	assert.False(t, store.Authenticated())
}

func TestSetCredential_PersistsAndClears(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{}
	store := session.New(ctx, repo, discard)

	store.SetCredential(ctx, "tok123")
	assert.Equal(t, "tok123", repo.value)

	store.Clear(ctx)
	assert.Empty(t, repo.value)
	assert.False(t, store.Authenticated())
}

func TestSetCredential_PersistenceFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{saveErr: errors.New("disk full")}
	store := session.New(ctx, repo, discard)

	store.SetCredential(ctx, "tok123")

	got, ok := store.Credential()
	assert.True(t, ok)
	assert.Equal(t, "tok123", got)
	assert.Error(t, store.Persist(ctx))
}

func TestSetCredential_NotifiesTransitions(t *testing.T) {
	ctx := context.Background()
	store := session.New(ctx, &memoryRepo{}, discard)

	var seen []session.Transition
	store.Subscribe(func(tr session.Transition) { seen = append(seen, tr) })

	store.SetCredential(ctx, "tok123")
	store.SetCredential(ctx, "tok123") // unchanged, no notification
	store.Clear(ctx)

	require.Len(t, seen, 2)
	assert.True(t, seen[0].SignedIn())
	assert.False(t, seen[0].SignedOut())
	assert.True(t, seen[1].SignedOut())
}

func TestSetCredential_TokenRotationIsNotSignIn(t *testing.T) {
	ctx := context.Background()
	store := session.New(ctx, &memoryRepo{value: "old"}, discard)

	var seen []session.Transition
	store.Subscribe(func(tr session.Transition) { seen = append(seen, tr) })
	store.SetCredential(ctx, "new")

	require.Len(t, seen, 1)
	assert.False(t, seen[0].SignedIn())
	assert.False(t, seen[0].SignedOut())
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()
	repo := sqlite.NewCredentialRepository(&sqlite.RepositoryConfig{DB: db, Logger: discard})

	session.New(ctx, repo, discard).SetCredential(ctx, "tok123")

	restored := session.New(ctx, repo, discard)
	got, ok := restored.Credential()
	assert.True(t, ok)
	assert.Equal(t, "tok123", got)
}

func TestClaims(t *testing.T) {
	ctx := context.Background()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "7",
		"username": "alice",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	store := session.New(ctx, &memoryRepo{}, discard)
	_, err = store.Claims()
	assert.Error(t, err, "anonymous session has no claims")

	store.SetCredential(ctx, signed)
	claims, err := store.Claims()
	require.NoError(t, err)
	assert.Equal(t, "7", claims.GetUserID())
	assert.Equal(t, "alice", claims.Username)
	require.NotNil(t, claims.ExpiresAt)

	store.SetCredential(ctx, "not-a-jwt")
	_, err = store.Claims()
	assert.Error(t, err)
}
