package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/medorders/internal/models"
	"github.com/rs/zerolog/log"
)

// MinSecretLength is the minimum HS256 key size in bytes
const MinSecretLength = 32

var (
	// ErrInvalidToken covers every reason a token is refused
	ErrInvalidToken = errors.New("invalid token")

	// ErrWeakSecret is returned at construction for a signing key that is too short
	ErrWeakSecret = fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)
)

// Settings configures token issuance and validation
type Settings struct {
	SecretKey string
	Issuer    string
	Audience  string
	TTL       time.Duration
}

// Claims is the payload of an issued token
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token
func (c *Claims) UserID() string {
	return c.Subject
}

// Option customises a TokenService
type Option func(*TokenService)

// WithClock replaces the time source used for issuing and validating tokens
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

// TokenService issues and validates HS256 tokens
type TokenService struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewTokenService validates settings and builds the service. It is meant to
// be called once at startup so a bad key stops the process before it serves.
func NewTokenService(settings Settings, opts ...Option) (*TokenService, error) {
	if len(settings.SecretKey) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if settings.Issuer == "" || settings.Audience == "" {
		return nil, errors.New("token issuer and audience are required")
	}
	if settings.TTL <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", settings.TTL)
	}

	s := &TokenService{
		key:      []byte(settings.SecretKey),
		issuer:   settings.Issuer,
		audience: settings.Audience,
		ttl:      settings.TTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

// GenerateToken issues a signed token for user
func (s *TokenService) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ValidateToken checks signature, algorithm, issuer, audience and expiry.
// Any failure is reported as ErrInvalidToken; the cause is only logged.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		log.Debug().Err(err).Msg("Token rejected")
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
