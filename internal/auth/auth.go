package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"trading-journal-console/internal/backend"
	"trading-journal-console/internal/models"
)

var (
	// ErrLoginFailed is returned for any rejected login.
	ErrLoginFailed = errors.New("login failed")
	// ErrUnauthenticated is returned when the session endpoint refuses the session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrSessionInvalid tells the caller to drop the session and log in again.
	ErrSessionInvalid = errors.New("session is no longer valid")
	// ErrIdentityUnavailable is the generic identity fetch failure.
	ErrIdentityUnavailable = errors.New("could not fetch identity")
	// ErrRegistrationFailed is returned for any rejected registration.
	ErrRegistrationFailed = errors.New("failed to create user")
)

// Gateway wraps the API's authentication endpoints.
type Gateway struct {
	api           backend.Doer
	logger        *zap.Logger
	profileMethod string
}

// NewGateway creates an auth gateway. profileMethod is the verb used for
// profile updates and defaults to PUT.
func NewGateway(api backend.Doer, logger *zap.Logger, profileMethod string) *Gateway {
	profileMethod = strings.ToUpper(profileMethod)
	if profileMethod != http.MethodPatch {
		profileMethod = http.MethodPut
	}
	return &Gateway{
		api:           api,
		logger:        logger.Named("auth"),
		profileMethod: profileMethod,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login posts the credentials. The session cookie issued by the API is
// recorded on s.
func (g *Gateway) Login(ctx context.Context, s *backend.Session, username, password string) error {
	_, err := g.api.Do(ctx, s, backend.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   credentials{Username: username, Password: password},
	})
	if err != nil {
		g.logger.Info("Login rejected", zap.String("username", username), zap.Int("status", backend.StatusOf(err)))
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	g.logger.Info("Login succeeded", zap.String("username", username))
	return nil
}

// Logout ends the session. It always succeeds locally, even when the API call fails.
func (g *Gateway) Logout(ctx context.Context, s *backend.Session) {
	if _, err := g.api.Do(ctx, s, backend.Request{Method: http.MethodPost, Path: "/logout"}); err != nil {
		g.logger.Warn("Logout call failed", zap.Error(err))
	}
	s.Expire()
}

// CheckAuth resolves when the session endpoint accepts the session.
func (g *Gateway) CheckAuth(ctx context.Context, s *backend.Session) error {
	if _, err := g.api.Do(ctx, s, backend.Request{Method: http.MethodGet, Path: "/me"}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return nil
}

// CheckError returns ErrSessionInvalid for 401 and 403 and nil otherwise.
func CheckError(status int) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ErrSessionInvalid
	}
	return nil
}

// CheckErr applies CheckError to the status carried by err.
func CheckErr(err error) error {
	if err == nil {
		return nil
	}
	return CheckError(backend.StatusOf(err))
}

// GetIdentity fetches the session user and normalizes it.
func (g *Gateway) GetIdentity(ctx context.Context, s *backend.Session) (*models.Identity, error) {
	resp, err := g.api.Do(ctx, s, backend.Request{Method: http.MethodGet, Path: "/me"})
	if err != nil {
		g.logger.Debug("Identity fetch failed", zap.Error(err))
		return nil, ErrIdentityUnavailable
	}
	identity, err := NormalizeIdentity(resp.Data)
	if err != nil {
		g.logger.Warn("Identity payload rejected", zap.Error(err))
		return nil, ErrIdentityUnavailable
	}
	return identity, nil
}

// Register creates a new user.
func (g *Gateway) Register(ctx context.Context, username, password string) error {
	_, err := g.api.Do(ctx, backend.NewSession(), backend.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   credentials{Username: username, Password: password},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	g.logger.Info("User registered", zap.String("username", username))
	return nil
}

// UpdateIdentity sends the profile edit and returns the identity as stored.
// When the API answers without a body the identity is fetched again.
func (g *Gateway) UpdateIdentity(ctx context.Context, s *backend.Session, update models.IdentityUpdate) (*models.Identity, error) {
	resp, err := g.api.Do(ctx, s, backend.Request{Method: g.profileMethod, Path: "/me", Body: update})
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if len(resp.Data) == 0 {
		return g.GetIdentity(ctx, s)
	}
	identity, err := NormalizeIdentity(resp.Data)
	if err != nil {
		return g.GetIdentity(ctx, s)
	}
	return identity, nil
}
