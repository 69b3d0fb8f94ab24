package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/innkeep/internal/auth"
	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/repository"
	"github.com/charlesng35/innkeep/pkg/crypto"
	apperrors "github.com/charlesng35/innkeep/pkg/errors"
	"github.com/charlesng35/innkeep/pkg/metrics"
)

type LoginInput struct {
	Identifier string `json:"identifier" validate:"required,notblank"`
	Password   string `json:"password" validate:"required"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

type LoginResult struct {
	AccessToken       string       `json:"access_token"`
	TokenType         string       `json:"token_type"`
	ExpiresAt         time.Time    `json:"expires_at"`
	MustResetPassword bool         `json:"must_reset_password"`
	User              *models.User `json:"user"`
}

// AuthService exchanges local credentials for access tokens.
type AuthService struct {
	store *repository.Store
	jwt   *auth.JWTService
	audit *AuditService
	now   func() time.Time
}

func NewAuthService(store *repository.Store, jwt *auth.JWTService, audit *AuditService) (*AuthService, error) {
	if store == nil {
		return nil, errors.New("auth service: store is required")
	}
	if jwt == nil {
		return nil, errors.New("auth service: jwt service is required")
	}
	return &AuthService{store: store, jwt: jwt, audit: audit, now: time.Now}, nil
}

// Login verifies the credentials. Unknown users, wrong passwords and inactive
// accounts all fail with the same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	ctx = ensureContext(ctx)
	if err := validate(input); err != nil {
		return nil, err
	}

	user, err := s.store.Users.FindByIdentifier(ctx, input.Identifier)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("auth service: lookup user: %w", err)
	}
	if user == nil || !user.IsActive || !crypto.VerifyPassword(user.Password, input.Password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		s.logAttempt(ctx, user, input, "failure")
		return nil, apperrors.ErrInvalidCredentials
	}

	issued, err := s.jwt.GenerateAccessToken(auth.AccessTokenInput{
		UserID:            user.ID,
		Username:          user.Username,
		MustResetPassword: user.MustResetPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: issue token: %w", err)
	}

	now := s.now().UTC()
	if err := s.store.Users.RecordLogin(ctx, user.ID, strings.TrimSpace(input.IPAddress), now); err != nil {
		return nil, fmt.Errorf("auth service: record login: %w", err)
	}
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(input.IPAddress)

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	s.logAttempt(ctx, user, input, "success")

	return &LoginResult{
		AccessToken:       issued.Token,
		TokenType:         "Bearer",
		ExpiresAt:         issued.ExpiresAt,
		MustResetPassword: user.MustResetPassword,
		User:              user,
	}, nil
}

func (s *AuthService) logAttempt(ctx context.Context, user *models.User, input LoginInput, result string) {
	if s.audit == nil {
		return
	}
	entry := AuditEntry{
		Username:  strings.TrimSpace(input.Identifier),
		Action:    "auth.login",
		Resource:  "auth",
		Result:    result,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	}
	if user != nil && result == "success" {
		id := user.ID
		entry.UserID = &id
		entry.Username = user.Username
	}
	_ = s.audit.Log(ctx, entry)
}

// TokenFor issues a fresh token for an active user, reflecting their current
// reset state. Used after a password change so the caller leaves the gate.
func (s *AuthService) TokenFor(ctx context.Context, userID uint) (*LoginResult, error) {
	ctx = ensureContext(ctx)
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("auth service: lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrUnauthorized
	}

	issued, err := s.jwt.GenerateAccessToken(auth.AccessTokenInput{
		UserID:            user.ID,
		Username:          user.Username,
		MustResetPassword: user.MustResetPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: issue token: %w", err)
	}
	return &LoginResult{
		AccessToken:       issued.Token,
		TokenType:         "Bearer",
		ExpiresAt:         issued.ExpiresAt,
		MustResetPassword: user.MustResetPassword,
		User:              user,
	}, nil
}
