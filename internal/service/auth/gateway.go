package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"projectdesk/internal/apiclient"
	"projectdesk/internal/config"
	"projectdesk/internal/domain"
	"projectdesk/internal/domain/models"
	"projectdesk/internal/domain/services"
	"projectdesk/internal/session"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	loginFailed        = "login failed"
	registrationFailed = "registration failed"

	// PasswordRuleMessage is shown when the new-account passwords are rejected locally.
	PasswordRuleMessage = "Passwords must match and be greater than 5 characters."
)

// gateway implements the AuthService interface
type gateway struct {
	api     *apiclient.Client
	session *session.Store
	logger  *slog.Logger
}

// NewGateway creates a new auth gateway writing into store
func NewGateway(api *apiclient.Client, store *session.Store, logger *slog.Logger) services.AuthService {
	return &gateway{
		api:     api,
		session: store,
		logger:  logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Login exchanges a username and password for a credential. The session is
// only touched on success.
func (g *gateway) Login(ctx context.Context, username, password string) error {
	req := &loginRequest{Username: strings.TrimSpace(username), Password: password}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Username, validation.Required),
		validation.Field(&req.Password, validation.Required),
	); err != nil {
		return domain.NewValidationError("Username and password are required")
	}

	form := url.Values{}
	form.Set("username", req.Username)
	form.Set("password", req.Password)

	var resp models.TokenResponse
	err := g.api.Do(ctx, apiclient.Post("/api/token").Anonymous().Form(form).Fallback(loginFailed), &resp)
	if err != nil {
		g.logger.Info("login rejected", "username", req.Username, "error", err)
		return err
	}
	if resp.AccessToken == "" {
		return &domain.ServerError{Status: 200, Message: loginFailed}
	}

	g.session.SetCredential(ctx, resp.AccessToken)
	g.logger.Info("user logged in", "username", req.Username)
	return nil
}

// Register validates locally, creates the account and signs in with the
// returned credential. Nothing is sent when validation fails.
func (g *gateway) Register(ctx context.Context, username, password, confirmPassword string) error {
	req := &registerRequest{
		Username:        strings.TrimSpace(username),
		Password:        password,
		ConfirmPassword: confirmPassword,
	}
	if err := validateRegister(req); err != nil {
		return err
	}

	payload := map[string]string{
		"username":        req.Username,
		"hashed_password": req.Password,
	}

	var resp models.TokenResponse
	err := g.api.Do(ctx, apiclient.Post("/api/users").Anonymous().JSON(payload).Fallback(registrationFailed), &resp)
	if err != nil {
		g.logger.Info("registration rejected", "username", req.Username, "error", err)
		return err
	}
	if resp.AccessToken == "" {
		return &domain.ServerError{Status: 200, Message: registrationFailed}
	}

	g.session.SetCredential(ctx, resp.AccessToken)
	// Registration also writes durable storage itself; a failure only costs the restart
	if err := g.session.Persist(ctx); err != nil {
		g.logger.Warn("credential not persisted after registration", "error", err)
	}

	g.logger.Info("user registered", "username", req.Username)
	return nil
}

// Logout clears the session credential.
func (g *gateway) Logout(ctx context.Context) {
	g.session.Clear(ctx)
	g.logger.Info("user logged out")
}

// CurrentUser returns the account behind the credential.
func (g *gateway) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := g.api.Do(ctx, apiclient.Get("/api/users/me"), &user); err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	return &user, nil
}

// validateRegister applies the new-account rules and maps failures to a ValidationError
func validateRegister(req *registerRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Username, validation.Required),
		validation.Field(&req.Password,
			validation.Required,
			validation.Length(config.MinPasswordLength+1, 0),
		),
		validation.Field(&req.ConfirmPassword, validation.By(matches(req.Password))),
	)
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		_, badPassword := fieldErrs["password"]
		_, badConfirm := fieldErrs["confirm_password"]
		if badPassword || badConfirm {
			return domain.NewValidationError(PasswordRuleMessage)
		}
		if _, ok := fieldErrs["username"]; ok {
			return domain.NewValidationError("Username is required")
		}
	}
	return domain.NewValidationError(err.Error())
}

func matches(expected string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != expected {
			return errors.New("passwords do not match")
		}
		return nil
	}
}
