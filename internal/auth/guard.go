package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskflow/taskflow/internal/platform/httpx"
)

type principalContextKey struct{}

type tokenContextKey struct{}

// ContextWithPrincipal stores the resolved principal in the context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal placed by RequireAuth.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok && p != nil
}

// TokenFromContext extracts the raw session token placed by RequireAuth.
// Logout needs it to revoke the session it arrived on.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// TokenFromRequest extracts the bearer credential from the Authorization
// header. The "Bearer " prefix is optional.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// Guard enforces authentication and role requirements before any resource
// logic runs.
type Guard struct {
	sessions *SessionStore
	logger   *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(sessions *SessionStore, logger *slog.Logger) *Guard {
	return &Guard{sessions: sessions, logger: logger}
}

// RequireAuth resolves the bearer token and stores the principal in the
// request context. Requests without a resolvable token get a 401; storage
// failures get a 500 so clients never clear credentials over an outage.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			httpx.RespondError(w, fmt.Errorf("%w: missing bearer token", httpx.ErrUnauthenticated))
			return
		}
		principal, err := g.sessions.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrNoSession) {
				httpx.RespondError(w, fmt.Errorf("%w: invalid or expired session", httpx.ErrUnauthenticated))
				return
			}
			if g.logger != nil {
				g.logger.Error("resolve session", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		ctx := ContextWithPrincipal(r.Context(), principal)
		ctx = context.WithValue(ctx, tokenContextKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole authenticates and then requires the given role. Admin passes
// every role gate; it does not bypass ownership checks, which live in the
// policy package.
func (g *Guard) RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthenticated)
				return
			}
			if principal.Role != role && !principal.IsAdmin() {
				httpx.RespondError(w, fmt.Errorf("%w: insufficient permissions", httpx.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
