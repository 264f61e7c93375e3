package attachments

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/platform/httpx"
	"github.com/taskflow/taskflow/internal/policy"
)

var (
	adminP   = auth.Principal{ID: 1, Username: "admin", Role: auth.RoleAdmin, IsActive: true}
	johnP    = auth.Principal{ID: 2, Username: "john", Role: auth.RoleUser, IsActive: true}
	janeP    = auth.Principal{ID: 3, Username: "jane", Role: auth.RoleUser, IsActive: true}
	outsider = auth.Principal{ID: 4, Username: "mallory", Role: auth.RoleUser, IsActive: true}
)

type memRepo struct {
	mu   sync.Mutex
	seq  int64
	byID map[int64]*Attachment
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[int64]*Attachment{}}
}

func (m *memRepo) ListByTask(_ context.Context, taskID int64) ([]Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Attachment
	for _, a := range m.byID {
		if a.TaskID == taskID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return Attachment{}, httpx.ErrNotFound
	}
	return *a, nil
}

func (m *memRepo) Create(_ context.Context, attachment Attachment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	attachment.ID = m.seq
	m.byID[attachment.ID] = &attachment
	return attachment.ID, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// refSource serves one task assigned to john, created by jane.
type refSource struct{}

func (refSource) GetRef(_ context.Context, id int64) (policy.TaskRef, error) {
	if id != 10 {
		return policy.TaskRef{}, httpx.ErrNotFound
	}
	return policy.TaskRef{ID: 10, AssignedTo: johnP.ID, CreatedBy: janeP.ID}, nil
}

func newTestService(t *testing.T) (*Service, *memRepo, string) {
	t.Helper()
	dir := t.TempDir()
	repo := newMemRepo()
	svc, err := NewService(repo, refSource{}, dir, 1024, nil)
	require.NoError(t, err)
	return svc, repo, dir
}

func TestUploadAndOpen(t *testing.T) {
	svc, _, dir := newTestService(t)
	ctx := context.Background()

	att, err := svc.Upload(ctx, johnP, 10, "notes.txt", "text/plain", 11, strings.NewReader("hello world"))
	require.NoError(t, err)
	require.Equal(t, int64(11), att.FileSize)
	require.Equal(t, "notes.txt", att.OriginalName)
	require.NotEqual(t, "notes.txt", att.Filename)
	require.Equal(t, ".txt", filepath.Ext(att.Filename))
	require.Equal(t, johnP.ID, att.UploadedBy)

	_, err = os.Stat(filepath.Join(dir, att.Filename))
	require.NoError(t, err)

	got, file, err := svc.Open(ctx, janeP, att.ID)
	require.NoError(t, err)
	defer file.Close()
	require.Equal(t, att.ID, got.ID)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestUploadDeniedForOutsider(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), outsider, 10, "notes.txt", "text/plain", 5, strings.NewReader("hello"))
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestUploadRejectsDisallowedMime(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), johnP, 10, "payload.bin", "application/octet-stream", 5, strings.NewReader("hello"))
	require.ErrorIs(t, err, httpx.ErrInvalidInput)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc, _, dir := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, johnP, 10, "big.txt", "text/plain", 2048, strings.NewReader("x"))
	require.ErrorIs(t, err, httpx.ErrInvalidInput)

	// A declared size under the limit is still checked against the bytes
	// actually read, and the partial file is cleaned up.
	big := strings.Repeat("x", 2048)
	_, err = svc.Upload(ctx, johnP, 10, "sneaky.txt", "text/plain", 100, strings.NewReader(big))
	require.ErrorIs(t, err, httpx.ErrInvalidInput)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListRequiresTaskAccess(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, johnP, 10, "notes.txt", "text/plain", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	list, err := svc.List(ctx, johnP, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.List(ctx, outsider, 10)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.List(ctx, johnP, 99)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeletePermissions(t *testing.T) {
	svc, _, dir := newTestService(t)
	ctx := context.Background()

	// Uploaded by the task creator.
	att, err := svc.Upload(ctx, janeP, 10, "notes.txt", "text/plain", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	other := auth.Principal{ID: 5, Role: auth.RoleUser, IsActive: true}
	err = svc.Delete(ctx, other, att.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	// The parent task's assignee may delete even though someone else
	// uploaded it.
	require.NoError(t, svc.Delete(ctx, johnP, att.ID))
	_, err = os.Stat(filepath.Join(dir, att.Filename))
	require.True(t, os.IsNotExist(err))

	err = svc.Delete(ctx, johnP, att.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
