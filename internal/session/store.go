// Package session holds the process-wide bearer credential and tells
// dependents when it changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"projectdesk/internal/domain/models"
	"projectdesk/internal/domain/repositories"

	"github.com/golang-jwt/jwt/v5"
)

// Transition describes one credential change.
type Transition struct {
	Previous string
	Current  string
}

// SignedIn reports an absent→present change.
func (t Transition) SignedIn() bool { return t.Previous == "" && t.Current != "" }

// SignedOut reports a present→absent change.
func (t Transition) SignedOut() bool { return t.Previous != "" && t.Current == "" }

// Listener is notified after every credential change.
type Listener func(Transition)

// Store holds the current credential. "" means anonymous, which is a legal state.
type Store struct {
	mu         sync.RWMutex
	credential string
	listeners  []Listener

	repo   repositories.CredentialRepository
	logger *slog.Logger
}

// New creates a store and hydrates it from durable storage. A storage failure
// is logged and yields an anonymous session, never an error.
func New(ctx context.Context, repo repositories.CredentialRepository, logger *slog.Logger) *Store {
	s := &Store{repo: repo, logger: logger}

	if repo == nil {
		return s
	}
	credential, err := repo.Load(ctx)
	if err != nil {
		logger.Warn("credential storage unavailable, starting anonymous", "error", err)
		return s
	}
	s.credential = credential
	logger.Debug("session hydrated", "authenticated", credential != "")
	return s
}

// Credential returns the current credential and whether one is present.
func (s *Store) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, s.credential != ""
}

// Authenticated reports whether a credential is present.
func (s *Store) Authenticated() bool {
	_, ok := s.Credential()
	return ok
}

// SetCredential replaces the credential; "" clears it. Memory is updated first
// and unconditionally; a persistence failure is logged and the session stays
// usable for this process.
func (s *Store) SetCredential(ctx context.Context, value string) {
	s.mu.Lock()
	previous := s.credential
	s.credential = value
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if err := s.persist(ctx, value); err != nil {
		s.logger.Error("failed to persist credential", "error", err)
	}

	if previous == value {
		return
	}

	t := Transition{Previous: previous, Current: value}
	s.logger.Info("session changed",
		"signed_in", t.SignedIn(),
		"signed_out", t.SignedOut(),
	)
	for _, l := range listeners {
		l(t)
	}
}

// Clear removes the credential (explicit logout).
func (s *Store) Clear(ctx context.Context) {
	s.SetCredential(ctx, "")
}

// Persist writes the current credential to durable storage and reports the outcome.
func (s *Store) Persist(ctx context.Context) error {
	credential, _ := s.Credential()
	return s.persist(ctx, credential)
}

// Subscribe registers l for every future credential change.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Claims decodes the credential's JWT claims without verifying the signature.
func (s *Store) Claims() (*models.TokenClaims, error) {
	credential, ok := s.Credential()
	if !ok {
		return nil, errors.New("no credential")
	}

	claims := &models.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return claims, nil
}

func (s *Store) persist(ctx context.Context, value string) error {
	if s.repo == nil {
		return nil
	}
	if value == "" {
		return s.repo.Delete(ctx)
	}
	return s.repo.Save(ctx, value)
}
