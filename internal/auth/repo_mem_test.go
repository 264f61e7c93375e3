package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskflow/taskflow/internal/platform/httpx"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memRepo is an in-memory UserRepository used across the package tests.
type memRepo struct {
	mu   sync.Mutex
	seq  int64
	byID map[int64]*User

	findErr error
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[int64]*User{}}
}

func (m *memRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *memRepo) FindByID(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) Create(_ context.Context, user User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Username == user.Username || existing.Email == user.Email {
			return 0, fmt.Errorf("%w: username or email taken", httpx.ErrDuplicate)
		}
	}
	m.seq++
	user.ID = m.seq
	user.CreatedAt = time.Now()
	m.byID[user.ID] = &user
	return user.ID, nil
}

func (m *memRepo) setActive(id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.IsActive = active
	}
}

func (m *memRepo) addUser(username, password string, role Role) int64 {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	id, err := m.Create(context.Background(), User{
		Username:     username,
		Email:        username + "@taskflow.local",
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		panic(err)
	}
	return id
}
