package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskflow/taskflow/internal/platform/httpx"
)

// ErrInvalidCredentials indicates a failed username/password check. It is
// deliberately the same for unknown users, wrong passwords, and deactivated
// accounts.
var ErrInvalidCredentials = errors.New("auth: invalid username or password")

// Service wraps credential business rules.
type Service struct {
	repo UserRepository
}

// NewService constructs a Service.
func NewService(repo UserRepository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates username/password credentials against the stored
// bcrypt hash. Storage failures propagate unchanged so callers can tell an
// outage apart from a bad login.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Register creates a new account with a hashed password. The role defaults
// to user when unset.
func (s *Service) Register(ctx context.Context, user User, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	user.PasswordHash = string(hash)
	if user.Role == "" {
		user.Role = RoleUser
	}
	user.IsActive = true
	return s.repo.Create(ctx, user)
}
