package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL is used when the configured TTL is not positive.
const DefaultAccessTokenTTL = time.Hour

type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	Clock          func() time.Time
}

// Claims are the application claims carried by access tokens. A token with
// MustResetPassword set only unlocks the password change endpoints.
type Claims struct {
	UserID            uint   `json:"uid"`
	Username          string `json:"usr,omitempty"`
	MustResetPassword bool   `json:"must_reset_password,omitempty"`
	jwt.RegisteredClaims
}

type AccessTokenInput struct {
	UserID            uint
	Username          string
	MustResetPassword bool
	Audience          []string
}

// IssuedToken is a signed token with its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// JWTService issues and validates HS256 access tokens.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}

// SecretLength reports the signing key size in bytes.
func (s *JWTService) SecretLength() int {
	return len(s.secret)
}

// TTL reports the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

func (s *JWTService) GenerateAccessToken(input AccessTokenInput) (IssuedToken, error) {
	if input.UserID == 0 {
		return IssuedToken{}, errors.New("jwt: user id is required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		UserID:            input.UserID,
		Username:          input.Username,
		MustResetPassword: input.MustResetPassword,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(input.UserID), 10),
			Issuer:    s.issuer,
			Audience:  input.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("jwt: sign token: %w", err)
	}
	return IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}
	if claims.UserID == 0 {
		return nil, errors.New("jwt: missing user id claim")
	}
	return &claims, nil
}
