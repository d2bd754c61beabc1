package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salepoint/internal/config"
	"salepoint/internal/domain"
	"salepoint/internal/notify"
	"salepoint/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// LoginResult carries the signed token and the operator it identifies
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      domain.Identity `json:"user"`
}

// Service authenticates operators and issues access tokens
type Service interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(username string)
}

type service struct {
	store  repository.CatalogStore
	hub    *notify.Hub
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewService creates an auth Service over the operator directory
func NewService(store repository.CatalogStore, hub *notify.Hub, cfg config.AuthConfig, logger *zap.Logger) Service {
	return &service{
		store:  store,
		hub:    hub,
		cfg:    cfg,
		logger: logger,
	}
}

// Login verifies credentials and returns a signed access token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Debug("Login attempt for unknown user", zap.String("username", username))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("Login attempt with wrong password", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(time.Duration(s.cfg.AccessExpiry) * time.Minute)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"role":     user.Role,
		"iat":      time.Now().Unix(),
		"exp":      expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.hub.Raise(
		"User Login",
		fmt.Sprintf("%s (%s) signed in", user.FullName, user.Username),
		domain.SeverityInfo,
	)
	s.logger.Info("User logged in",
		zap.String("username", user.Username),
		zap.String("role", user.Role),
	)

	return &LoginResult{
		Token:     signed,
		ExpiresAt: expiresAt,
		User: domain.Identity{
			Username: user.Username,
			Role:     user.Role,
			FullName: user.FullName,
			Email:    user.Email,
		},
	}, nil
}

// Logout records the sign-out in the notification log. Tokens are
// stateless, so there is nothing to revoke server-side.
func (s *service) Logout(username string) {
	s.hub.Raise(
		"User Logout",
		fmt.Sprintf("%s signed out", username),
		domain.SeverityInfo,
	)
	s.logger.Info("User logged out", zap.String("username", username))
}
