package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/safezone/server/internal/apperr"
	"github.com/safezone/server/internal/logging"
	"github.com/safezone/server/internal/model"
	"github.com/safezone/server/internal/repo"
)

const (
	msgUserExists         = "User with this email or phone already exists"
	msgInvalidCredentials = "Invalid credentials"
)

// SignupInput is the validated signup payload
type SignupInput struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput identifies a user by email or phone
type LoginInput struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Session is returned by signup and login
type Session struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// Service orchestrates signup and login
type Service struct {
	users  repo.UserRepo
	hasher PasswordHasher
	tokens *TokenService
	logger *zap.Logger
}

// NewService creates a new auth service
func NewService(users repo.UserRepo, hasher PasswordHasher, tokens *TokenService, logger *zap.Logger) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

// Signup creates a user and issues a token. Duplicate email or phone is a conflict.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	_, err := s.users.FindByEmailOrPhone(ctx, in.Email, in.Phone)
	switch {
	case err == nil:
		return nil, apperr.Conflict(msgUserExists)
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fmt.Errorf("lookup existing user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		Name:         strings.TrimSpace(in.Name),
		Phone:        in.Phone,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Conflict(msgUserExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()), logging.Phone(user.Phone))
	return &Session{User: user, Token: token}, nil
}

// Login authenticates by email or phone. Unknown user and wrong password
// produce the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if (email == "") == (phone == "") {
		return nil, apperr.BadRequest("Provide either email or phone")
	}

	var (
		user model.User
		err  error
	)
	if email != "" {
		user, err = s.users.GetByEmail(ctx, email)
	} else {
		user, err = s.users.GetByPhone(ctx, phone)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("password verification failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}
	if !ok {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
