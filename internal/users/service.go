package users

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/platform/httpx"
	"github.com/taskflow/taskflow/internal/policy"
)

// SessionRevoker invalidates a user's live sessions. Satisfied by
// auth.SessionStore.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID int64) error
}

// Service handles admin user management.
type Service struct {
	repo     Repository
	accounts *auth.Service
	sessions SessionRevoker
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, accounts *auth.Service, sessions SessionRevoker, logger *slog.Logger) *Service {
	return &Service{repo: repo, accounts: accounts, sessions: sessions, logger: logger}
}

// List returns all accounts. Admin only.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]User, error) {
	if !policy.CanManageUsers(p) {
		return nil, fmt.Errorf("%w: insufficient permissions", httpx.ErrForbidden)
	}
	return s.repo.List(ctx)
}

// Create registers a new account on behalf of an admin.
func (s *Service) Create(ctx context.Context, p auth.Principal, user auth.User, password string) (int64, error) {
	if !policy.CanManageUsers(p) {
		return 0, fmt.Errorf("%w: insufficient permissions", httpx.ErrForbidden)
	}
	return s.accounts.Register(ctx, user, password)
}

// Update applies a partial account update. Deactivating an account revokes
// all its sessions immediately instead of waiting for natural expiry.
func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, in UpdateInput) error {
	if !policy.CanManageUsers(p) {
		return fmt.Errorf("%w: insufficient permissions", httpx.ErrForbidden)
	}
	if in.Empty() {
		return fmt.Errorf("%w: no fields to update", httpx.ErrInvalidInput)
	}
	if in.Role != nil && !auth.Role(*in.Role).Valid() {
		return fmt.Errorf("%w: invalid role", httpx.ErrInvalidInput)
	}

	passwordHash := ""
	if in.Password != nil && *in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		passwordHash = string(hash)
	}

	if err := s.repo.Update(ctx, id, in, passwordHash); err != nil {
		return err
	}

	if in.IsActive != nil && !*in.IsActive {
		if err := s.sessions.RevokeAllForUser(ctx, id); err != nil && s.logger != nil {
			s.logger.Warn("revoke sessions on deactivation", slog.Any("error", err))
		}
	}
	return nil
}

// Delete removes an account and its sessions.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id int64) error {
	if !policy.CanManageUsers(p) {
		return fmt.Errorf("%w: insufficient permissions", httpx.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllForUser(ctx, id); err != nil && s.logger != nil {
		s.logger.Warn("revoke sessions on delete", slog.Any("error", err))
	}
	return nil
}
