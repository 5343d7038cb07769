package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/otcheredev/medorders/internal/auth"
	"github.com/otcheredev/medorders/internal/models"
	"github.com/otcheredev/medorders/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLength = 50
	maxEmailLength    = 100
)

// AuthService handles registration and login
type AuthService struct {
	users  *repository.UserRepository
	tokens *auth.TokenService

	// dummyHash is compared against when the username is unknown, so a
	// missing account costs the same bcrypt work as a wrong password
	dummyHash string
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, tokens *auth.TokenService) (*AuthService, error) {
	dummy, err := auth.HashPassword("medorders-timing-placeholder")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare login hash: %w", err)
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		dummyHash: dummy,
	}, nil
}

// Register creates an account and returns a token for it. Duplicate
// usernames and emails are detected by the store's unique indexes.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	password := req.Secret()
	if err := validateRegistration(req.Username, req.Email, password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, invalid("Password must be at most 72 bytes")
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, invalid("Username already exists")
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, invalid("Email already exists")
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")

	return &models.AuthResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    user.Summary(),
	}, nil
}

// Login checks credentials and returns a fresh token
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.VerifyPassword(req.Password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &models.AuthResponse{
		Token: token,
		User:  user.Summary(),
	}, nil
}

func validateRegistration(username, email, password string) error {
	switch {
	case strings.TrimSpace(username) == "":
		return invalid("Username is required")
	case strings.TrimSpace(email) == "":
		return invalid("Email is required")
	case password == "":
		return invalid("Password is required")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return invalid(fmt.Sprintf("Username must be at most %d characters", maxUsernameLength))
	case utf8.RuneCountInString(email) > maxEmailLength:
		return invalid(fmt.Sprintf("Email must be at most %d characters", maxEmailLength))
	}
	return nil
}

// CurrentUser resolves the account behind a validated token. A token whose
// user no longer exists is treated like bad credentials.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
