package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/taskflow/internal/auth"
)

type fakeSource struct {
	taskCount atomic.Int64
	userCount atomic.Int64

	lastTaskScope atomic.Int64
	lastSince     atomic.Value // time.Time
}

func (f *fakeSource) CountTasksUpdatedSince(_ context.Context, since time.Time, assignedTo int64) (int64, error) {
	f.lastTaskScope.Store(assignedTo)
	f.lastSince.Store(since)
	return f.taskCount.Load(), nil
}

func (f *fakeSource) CountUsersCreatedSince(_ context.Context, _ time.Time) (int64, error) {
	return f.userCount.Load(), nil
}

type fakeResolver struct {
	principals map[string]*auth.Principal
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (*auth.Principal, error) {
	p, ok := f.principals[token]
	if !ok {
		return nil, auth.ErrNoSession
	}
	return p, nil
}

type sseEvent struct {
	Name string
	Data string
}

// readEvents consumes count events off the stream or fails on timeout.
func readEvents(t *testing.T, body *bufio.Reader, count int) []sseEvent {
	t.Helper()

	events := make([]sseEvent, 0, count)
	var current sseEvent
	deadline := time.After(5 * time.Second)
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		for {
			line, err := body.ReadString('\n')
			if err != nil {
				errs <- err
				return
			}
			lines <- strings.TrimRight(line, "\n")
		}
	}()

	for len(events) < count {
		select {
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", len(events), count)
		case err := <-errs:
			t.Fatalf("stream closed early: %v", err)
		case line := <-lines:
			switch {
			case strings.HasPrefix(line, "event: "):
				current.Name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				current.Data = strings.TrimPrefix(line, "data: ")
			case line == "":
				if current.Name != "" {
					events = append(events, current)
					current = sseEvent{}
				}
			}
		}
	}
	return events
}

func newTestStream(t *testing.T, source Source, resolver SessionResolver) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	notifier := NewNotifier(logger, source, resolver, nil, 20*time.Millisecond, 2)

	r := chi.NewRouter()
	r.Route("/events", notifier.MountRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func openStream(t *testing.T, srv *httptest.Server, token string) *http.Response {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?token="+token, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStreamRejectsUnknownToken(t *testing.T) {
	srv := newTestStream(t, &fakeSource{}, &fakeResolver{principals: map[string]*auth.Principal{}})

	resp := openStream(t, srv, "bogus")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	events := readEvents(t, bufio.NewReader(resp.Body), 1)
	require.Equal(t, EventError, events[0].Name)
}

func TestStreamConnectedThenHeartbeat(t *testing.T) {
	resolver := &fakeResolver{principals: map[string]*auth.Principal{
		"tok": {ID: 7, Username: "john", Role: auth.RoleUser, IsActive: true},
	}}
	srv := newTestStream(t, &fakeSource{}, resolver)

	resp := openStream(t, srv, "tok")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, bufio.NewReader(resp.Body), 2)
	require.Equal(t, EventConnected, events[0].Name)
	var connected struct {
		UserID int64 `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(events[0].Data), &connected))
	require.Equal(t, int64(7), connected.UserID)

	require.Equal(t, EventHeartbeat, events[1].Name)
}

func TestStreamEmitsTaskUpdatesScopedToUser(t *testing.T) {
	source := &fakeSource{}
	source.taskCount.Store(3)
	source.userCount.Store(2)
	resolver := &fakeResolver{principals: map[string]*auth.Principal{
		"tok": {ID: 7, Username: "john", Role: auth.RoleUser, IsActive: true},
	}}
	srv := newTestStream(t, source, resolver)

	resp := openStream(t, srv, "tok")
	events := readEvents(t, bufio.NewReader(resp.Body), 3)

	require.Equal(t, EventConnected, events[0].Name)
	require.Equal(t, EventTaskUpdate, events[1].Name)
	var update struct {
		Message string `json:"message"`
		Count   int64  `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(events[1].Data), &update))
	require.Equal(t, "Tasks have been updated", update.Message)
	require.Equal(t, int64(3), update.Count)

	// Regular users never receive account events even when accounts changed.
	require.Equal(t, EventHeartbeat, events[2].Name)
	require.Equal(t, int64(7), source.lastTaskScope.Load())
}

func TestStreamAdminSeesUserUpdatesAndFullTaskScope(t *testing.T) {
	source := &fakeSource{}
	source.taskCount.Store(1)
	source.userCount.Store(4)
	resolver := &fakeResolver{principals: map[string]*auth.Principal{
		"tok": {ID: 1, Username: "admin", Role: auth.RoleAdmin, IsActive: true},
	}}
	srv := newTestStream(t, source, resolver)

	resp := openStream(t, srv, "tok")
	events := readEvents(t, bufio.NewReader(resp.Body), 4)

	require.Equal(t, EventConnected, events[0].Name)
	require.Equal(t, EventTaskUpdate, events[1].Name)
	require.Equal(t, EventUserUpdate, events[2].Name)
	require.Contains(t, events[2].Data, `"message":"New users have been added"`)
	require.Equal(t, EventHeartbeat, events[3].Name)
	require.Equal(t, int64(0), source.lastTaskScope.Load())
}

// A detection pass looks back exactly multiplier by interval from the tick
// time, and a regular user's pass counts only tasks assigned to them.
func TestPollWindowTrailsTickByMultiplier(t *testing.T) {
	source := &fakeSource{}
	source.taskCount.Store(2)
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	notifier := NewNotifier(logger, source, &fakeResolver{}, nil, 5*time.Second, 2)

	rec := httptest.NewRecorder()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	principal := &auth.Principal{ID: 7, Username: "john", Role: auth.RoleUser, IsActive: true}
	require.NoError(t, notifier.poll(context.Background(), rec, rec, principal, now))

	require.Equal(t, now.Add(-10*time.Second), source.lastSince.Load())
	require.Equal(t, int64(7), source.lastTaskScope.Load())

	body := rec.Body.String()
	require.Contains(t, body, "event: task_update")
	require.Contains(t, body, `"message":"Tasks have been updated"`)
	require.Contains(t, body, "event: heartbeat")
}

func TestStreamQuietWindowOnlyHeartbeats(t *testing.T) {
	resolver := &fakeResolver{principals: map[string]*auth.Principal{
		"tok": {ID: 7, Username: "john", Role: auth.RoleUser, IsActive: true},
	}}
	srv := newTestStream(t, &fakeSource{}, resolver)

	resp := openStream(t, srv, "tok")
	events := readEvents(t, bufio.NewReader(resp.Body), 4)

	require.Equal(t, EventConnected, events[0].Name)
	for _, ev := range events[1:] {
		require.Equal(t, EventHeartbeat, ev.Name)
	}
}
