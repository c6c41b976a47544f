// Package service implements the business logic for authentication and
// account operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/guardkit/guardkit/internal/auth"
	"github.com/guardkit/guardkit/internal/domain"
	"github.com/guardkit/guardkit/internal/event"
	"github.com/guardkit/guardkit/internal/repository"
	apperrors "github.com/guardkit/guardkit/pkg/errors"
)

// minPasswordLength is the shortest password Register accepts.
const minPasswordLength = 8

// dummyPassword seeds the hash verified against when no account matches a
// login email, so the unknown-email and wrong-password paths cost the same.
const dummyPassword = "correct horse battery staple"

// AuthService implements login, refresh, logout, registration, and token
// authorization on top of the user store and the token codec.
type AuthService struct {
	users    repository.UserRepository
	codec    *auth.TokenCodec
	hasher   *auth.PasswordHasher
	producer *event.Producer
	logger   *slog.Logger

	// dummyHash is computed once at construction and never stored; its only
	// purpose is burning a real verification on the unknown-email path.
	dummyHash string

	now func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	codec *auth.TokenCodec,
	hasher *auth.PasswordHasher,
	producer *event.Producer,
	logger *slog.Logger,
) (*AuthService, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("compute dummy hash: %w", err)
	}

	return &AuthService{
		users:     users,
		codec:     codec,
		hasher:    hasher,
		producer:  producer,
		logger:    logger,
		dummyHash: dummyHash,
		now:       time.Now,
	}, nil
}

// Register creates a new user account, hashes the password, and returns the
// created user with a freshly minted token pair.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	if email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(password); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.mintPair(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("mint token pair: %w", err)
	}

	// The account is already committed; a broker outage must not fail the
	// registration.
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event", slog.Int64("user_id", user.ID), slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID), slog.String("email", user.Email))

	return user, tokens, nil
}

// Login checks the submitted credentials and mints a token pair.
//
// Unknown email and wrong password fail with the same error and roughly the
// same latency: when no account matches, the submitted password is still
// verified against a fixed dummy hash before the failure is returned.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get user by email: %w", err)
		}
		s.hasher.Verify(password, s.dummyHash)
		return nil, apperrors.InvalidCredentials()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.InvalidCredentials()
	}

	// Checked after the password so account state is only revealed to
	// callers who hold valid credentials.
	if !user.IsActive {
		return nil, apperrors.AccountInactive()
	}

	tokens, err := s.mintPair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("mint token pair: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", user.ID))

	return tokens, nil
}

// Refresh validates a refresh token and mints a new access token. The
// presented refresh token is echoed back unchanged; refresh tokens are not
// rotated. Malformed, expired, and wrong-kind tokens, as well as missing or
// deactivated accounts, all fail identically.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken, auth.TokenKindRefresh, s.now())
	if err != nil {
		s.logger.DebugContext(ctx, "refresh token rejected", slog.String("reason", err.Error()))
		return nil, apperrors.InvalidRefreshToken()
	}

	userID, err := claims.UserID()
	if err != nil {
		s.logger.DebugContext(ctx, "refresh token rejected", slog.String("reason", err.Error()))
		return nil, apperrors.InvalidRefreshToken()
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidRefreshToken()
		}
		return nil, fmt.Errorf("load user for refresh: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.InvalidRefreshToken()
	}

	accessToken, err := s.codec.Mint(user.ID, auth.TokenKindAccess, s.now())
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	s.logger.InfoContext(ctx, "access token refreshed", slog.Int64("user_id", user.ID))

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    domain.TokenTypeBearer,
	}, nil
}

// Authorize verifies an access token and returns the user ID it carries. It
// performs no store lookup.
func (s *AuthService) Authorize(tokenString string) (int64, error) {
	claims, err := s.codec.Verify(tokenString, auth.TokenKindAccess, s.now())
	if err != nil {
		s.logger.Debug("access token rejected", slog.String("reason", err.Error()))
		return 0, apperrors.InvalidAccessToken()
	}

	userID, err := claims.UserID()
	if err != nil {
		s.logger.Debug("access token rejected", slog.String("reason", err.Error()))
		return 0, apperrors.InvalidAccessToken()
	}

	return userID, nil
}

// Logout ends the caller's session. Tokens are stateless, so there is nothing
// to revoke server-side; the operation re-checks that the account still
// exists and is active, then succeeds without changing any state.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user", userID)
		}
		return fmt.Errorf("load user for logout: %w", err)
	}

	if !user.IsActive {
		return apperrors.AccountInactive()
	}

	s.logger.InfoContext(ctx, "user logged out", slog.Int64("user_id", userID))

	return nil
}

// GetProfile loads the account behind userID.
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	return user, nil
}

// mintPair creates an access/refresh token pair for the given user. Both
// tokens share one issue instant.
func (s *AuthService) mintPair(userID int64) (*domain.TokenPair, error) {
	now := s.now()

	accessToken, err := s.codec.Mint(userID, auth.TokenKindAccess, now)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	refreshToken, err := s.codec.Mint(userID, auth.TokenKindRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    domain.TokenTypeBearer,
	}, nil
}

// normalizeEmail lowercases and trims the address so lookups and the unique
// index agree on one canonical form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword enforces the length floor and the character class mix.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	}

	hasUpper := strings.ContainsFunc(password, unicode.IsUpper)
	hasLower := strings.ContainsFunc(password, unicode.IsLower)
	hasDigit := strings.ContainsFunc(password, unicode.IsDigit)
	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must include upper and lower case letters and a digit")
	}

	return nil
}
