package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/observability"
)

// Source answers the change-detection counts for one poll window.
type Source interface {
	CountTasksUpdatedSince(ctx context.Context, since time.Time, assignedTo int64) (int64, error)
	CountUsersCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

// SessionResolver validates a push token. Satisfied by auth.SessionStore.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*auth.Principal, error)
}

// Notifier serves the server-push event stream. Each connection runs its own
// poll loop on the request goroutine and shares no state with other
// connections.
type Notifier struct {
	logger   *slog.Logger
	source   Source
	sessions SessionResolver
	metrics  *observability.Metrics

	tick   time.Duration
	window time.Duration
}

// NewNotifier constructs a Notifier. The change window is multiplier ticks
// wide so that a mutation landing between polls is still caught by the next
// one.
func NewNotifier(logger *slog.Logger, source Source, sessions SessionResolver, metrics *observability.Metrics, tick time.Duration, multiplier int) *Notifier {
	if multiplier < 1 {
		multiplier = 1
	}
	return &Notifier{
		logger:   logger,
		source:   source,
		sessions: sessions,
		metrics:  metrics,
		tick:     tick,
		window:   time.Duration(multiplier) * tick,
	}
}

// MountRoutes registers the stream endpoint.
func (n *Notifier) MountRoutes(r chi.Router) {
	r.Get("/", n.handleStream)
}

// handleStream is the long-lived SSE endpoint. EventSource cannot set
// request headers, so the token travels in the query string and is resolved
// once at connect; revocation mid-stream takes effect on reconnect.
func (n *Notifier) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()

	principal, err := n.sessions.Resolve(ctx, r.URL.Query().Get("token"))
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			w.WriteHeader(http.StatusUnauthorized)
			n.writeEvent(w, flusher, EventError, errorPayload{Message: "invalid or expired token"})
			return
		}
		n.logger.Error("push connect", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
		n.writeEvent(w, flusher, EventError, errorPayload{Message: "internal error"})
		return
	}

	if n.metrics != nil {
		n.metrics.PushConnectionOpened()
		defer n.metrics.PushConnectionClosed()
	}
	n.logger.Info("push connected",
		slog.Int64("user_id", principal.ID),
		slog.String("role", string(principal.Role)))
	defer n.logger.Info("push disconnected", slog.Int64("user_id", principal.ID))

	if err := n.writeEvent(w, flusher, EventConnected, connectedPayload{
		UserID:    principal.ID,
		Timestamp: stamp(time.Now()),
	}); err != nil {
		return
	}

	ticker := time.NewTicker(n.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := n.poll(ctx, w, flusher, principal, now); err != nil {
				return
			}
		}
	}
}

// poll runs one detection pass. Query failures are logged and skipped so a
// transient database hiccup does not tear the stream down; a write failure
// means the client is gone and ends the loop.
func (n *Notifier) poll(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, p *auth.Principal, now time.Time) error {
	since := now.Add(-n.window)

	scope := p.ID
	if p.IsAdmin() {
		scope = 0
	}
	taskCount, err := n.source.CountTasksUpdatedSince(ctx, since, scope)
	if err != nil {
		n.logger.Warn("push task poll", slog.Any("error", err))
	} else if taskCount > 0 {
		if err := n.writeEvent(w, flusher, EventTaskUpdate, taskUpdatePayload{
			Message:   taskUpdateMessage,
			Count:     taskCount,
			Timestamp: stamp(now),
		}); err != nil {
			return err
		}
	}

	if p.IsAdmin() {
		userCount, err := n.source.CountUsersCreatedSince(ctx, since)
		if err != nil {
			n.logger.Warn("push user poll", slog.Any("error", err))
		} else if userCount > 0 {
			if err := n.writeEvent(w, flusher, EventUserUpdate, userUpdatePayload{
				Message:   userUpdateMessage,
				Count:     userCount,
				Timestamp: stamp(now),
			}); err != nil {
				return err
			}
		}
	}

	return n.writeEvent(w, flusher, EventHeartbeat, heartbeatPayload{Timestamp: stamp(now)})
}

func (n *Notifier) writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	flusher.Flush()
	if n.metrics != nil {
		n.metrics.PushEventEmitted(event)
	}
	return nil
}
