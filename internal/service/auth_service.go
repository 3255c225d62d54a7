package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bibliobalance/internal/models"
	"bibliobalance/internal/repository"
	"bibliobalance/internal/security"
	"bibliobalance/internal/validation"
)

// AuthResult is returned by a successful signup or login.
type AuthResult struct {
	Profile   *models.Profile
	Token     string
	ExpiresAt time.Time
}

// AuthService handles authentication business logic
type AuthService struct {
	profiles ProfileStore
	tokens   *security.TokenManager
	mailer   Mailer
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(profiles ProfileStore, tokens *security.TokenManager, mailer Mailer, logger *zap.Logger) *AuthService {
	return &AuthService{
		profiles: profiles,
		tokens:   tokens,
		mailer:   mailer,
		logger:   logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// defaultUsername is the local part of the email address.
func defaultUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Register creates a new account and signs it in
func (s *AuthService) Register(ctx context.Context, email, password, username string) (*AuthResult, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if username == "" {
		username = defaultUsername(email)
	}

	existing, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing profile: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		ID:           security.NewID(),
		Email:        email,
		PasswordHash: passwordHash,
		Username:     username,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.sendWelcome(ctx, profile)
	return s.issue(profile)
}

// Authenticate checks email and password and issues a token
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil || !security.CheckPassword(profile.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(profile)
}

// Verify turns a bearer token into a session. Tokens of deleted profiles
// are rejected.
func (s *AuthService) Verify(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	profile, err := s.profiles.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrInvalidToken
	}

	session := &models.Session{UserID: claims.UserID, Email: claims.Email}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// OAuthLogin signs in with an external identity. The identity is matched by
// provider subject first, then linked to an existing account with the same
// email, and otherwise a new account is created.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*AuthResult, error) {
	if provider == "" || subject == "" {
		return nil, errors.New("missing oauth provider information")
	}
	email = normalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup oauth profile: %w", err)
	}
	if profile != nil {
		return s.issue(profile)
	}

	existing, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing profile: %w", err)
	}
	if existing != nil {
		if existing.OAuthProvider != "" && existing.OAuthProvider != provider {
			return nil, ErrEmailTaken
		}
		if err := s.profiles.LinkOAuthProvider(ctx, existing.ID, provider, subject); err != nil {
			return nil, err
		}
		existing.OAuthProvider, existing.OAuthSubject = provider, subject
		return s.issue(existing)
	}

	name = strings.TrimSpace(name)
	if name == "" || validation.ValidateUsername(name) != nil {
		name = defaultUsername(email)
	}
	profile = &models.Profile{
		ID:            security.NewID(),
		Email:         email,
		Username:      name,
		OAuthProvider: provider,
		OAuthSubject:  subject,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create oauth profile: %w", err)
	}

	s.sendWelcome(ctx, profile)
	return s.issue(profile)
}

func (s *AuthService) issue(profile *models.Profile) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(profile.ID, profile.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Profile: profile, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, profile *models.Profile) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendWelcomeEmail(ctx, profile.Email, profile.Username); err != nil {
		s.logger.Warn("Failed to send welcome email", zap.Error(err), zap.String("user_id", profile.ID))
	}
}
