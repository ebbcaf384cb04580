package services

import (
	"context"

	"projectdesk/internal/domain/models"
)

// AuthService exchanges user credentials for a session credential
type AuthService interface {
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, username, password, confirmPassword string) error
	Logout(ctx context.Context)
	CurrentUser(ctx context.Context) (*models.User, error)
}
