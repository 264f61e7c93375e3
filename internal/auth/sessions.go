package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskflow/taskflow/internal/platform/httpx"
)

// ErrNoSession is returned by Resolve when the token does not map to a live
// session: unknown token, expired session, or deactivated account. Storage
// failures are returned as-is and must never be collapsed into this error.
var ErrNoSession = errors.New("auth: no such session")

// SessionStore owns the session token lifecycle. Tokens live in Redis with a
// TTL equal to the session lifetime; resolving a token joins the owning user
// record from PostgreSQL. The TTL is fixed at creation; reads never extend it.
type SessionStore struct {
	client *redis.Client
	users  UserRepository
	ttl    time.Duration

	now func() time.Time
}

type sessionPayload struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, users UserRepository, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		users:  users,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create issues a new session for the user and returns it. The token carries
// 256 bits of entropy, so uniqueness holds without a retry loop.
func (s *SessionStore) Create(ctx context.Context, userID int64) (Session, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return Session{}, fmt.Errorf("auth: generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	now := s.now()
	sess := Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(sessionPayload{UserID: sess.UserID, CreatedAt: sess.CreatedAt, ExpiresAt: sess.ExpiresAt})
	if err != nil {
		return Session{}, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(token), data, s.ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), token)
	pipe.Expire(ctx, userSessionsKey(userID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return Session{}, fmt.Errorf("auth: store session: %w", err)
	}
	return sess, nil
}

// Resolve returns the principal owning the token, or ErrNoSession when the
// token does not resolve. The lookup is read-only and does not slide expiry.
func (s *SessionStore) Resolve(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("auth: load session: %w", err)
	}

	var stored sessionPayload
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("auth: decode session: %w", err)
	}
	// Redis TTL already enforces expiry; the stored timestamp is re-checked
	// so a key that outlived its ttl (clock skew, restored dump) still reads
	// as absent.
	if !s.now().Before(stored.ExpiresAt) {
		return nil, ErrNoSession
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrNoSession
	}

	principal := user.Principal()
	return &principal, nil
}

// Revoke deletes the session. Revoking an absent token is not an error.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("auth: load session: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(data, &stored); err == nil {
		_ = s.client.SRem(ctx, userSessionsKey(stored.UserID), token).Err()
	}
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// RevokeAllForUser deletes every live session owned by the user. Used on
// account deactivation so it takes effect immediately instead of waiting for
// natural expiry.
func (s *SessionStore) RevokeAllForUser(ctx context.Context, userID int64) error {
	tokens, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("auth: list sessions: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, sessionKey(token))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("auth: delete sessions: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return "session:" + token
}

func userSessionsKey(userID int64) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}
