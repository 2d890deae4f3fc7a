// Package auth provides JWT issuance and the admin login check for the
// review API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Service authenticates the single configured operator and issues JWTs.
// The plaintext password from config is hashed once at construction so
// only the bcrypt hash stays in memory.
type Service struct {
	username     string
	passwordHash []byte
	jwtSecret    string
	expiresIn    time.Duration
	logger       *slog.Logger
}

// NewService creates the auth service for the configured operator account.
func NewService(log *slog.Logger, username, password, jwtSecret string, expiresIn time.Duration) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, errors.New("admin username and password are required")
	}
	if strings.TrimSpace(jwtSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	if expiresIn <= 0 {
		expiresIn = 24 * time.Hour
	}
	return &Service{
		username:     username,
		passwordHash: hashed,
		jwtSecret:    jwtSecret,
		expiresIn:    expiresIn,
		logger:       log.With(slog.String("service", "auth")),
	}, nil
}

// Login checks the credentials and returns a signed token on success.
func (s *Service) Login(_ context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return "", ErrInvalidCredentials
	}
	if username != s.username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.GenerateToken(username)
	if err != nil {
		return "", err
	}
	s.logger.Info("operator logged in", slog.String("username", username))
	return token, nil
}

// GenerateToken issues an HS256 JWT for the given subject.
func (s *Service) GenerateToken(subject string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
	})
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// JWTMiddleware returns Echo JWT middleware validating HS256 tokens.
// Requests matched by skipper bypass authentication.
func JWTMiddleware(secret string, skipper func(c echo.Context) bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		Skipper:    skipper,
		SigningKey: []byte(secret),
	})
}
