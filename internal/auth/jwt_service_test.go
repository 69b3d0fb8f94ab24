package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestNewJWTServiceDefaultsTTL(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)
	require.Equal(t, DefaultAccessTokenTTL, svc.TTL())
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		Issuer:         "innkeep",
		AccessTokenTTL: time.Hour,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)

	issued, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID:            42,
		Username:          "frontdesk",
		MustResetPassword: true,
		Audience:          []string{"api"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.True(t, issued.ExpiresAt.Equal(current.Add(time.Hour)))

	claims, err := svc.ValidateAccessToken(issued.Token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "frontdesk", claims.Username)
	require.True(t, claims.MustResetPassword)
	require.Equal(t, "innkeep", claims.Issuer)
	require.Equal(t, jwt.ClaimStrings{"api"}, claims.Audience)
	require.NotEmpty(t, claims.ID)
}

func TestGenerateAccessTokenRequiresUser(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)
	_, err = svc.GenerateAccessToken(AccessTokenInput{})
	require.Error(t, err)
}

func TestValidateAccessTokenInvalidSignature(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret"})
	require.NoError(t, err)
	verifier, err := NewJWTService(JWTConfig{Secret: "other-secret"})
	require.NoError(t, err)

	issued, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: 1})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(issued.Token)
	require.Error(t, err)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)

	issued, err := svc.GenerateAccessToken(AccessTokenInput{UserID: 1})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = svc.ValidateAccessToken(issued.Token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateAccessTokenIssuerMismatch(t *testing.T) {
	a, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "a"})
	require.NoError(t, err)
	b, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "b"})
	require.NoError(t, err)

	issued, err := a.GenerateAccessToken(AccessTokenInput{UserID: 1})
	require.NoError(t, err)
	_, err = b.ValidateAccessToken(issued.Token)
	require.EqualError(t, err, "jwt: invalid issuer")
}

func TestValidateAccessTokenEmpty(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken("")
	require.Error(t, err)
}
