package attachments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/platform/httpx"
	"github.com/taskflow/taskflow/internal/policy"
)

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"application/pdf": {},
	"text/plain":      {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// TaskRefSource resolves the ownership projection of a parent task.
type TaskRefSource interface {
	GetRef(ctx context.Context, id int64) (policy.TaskRef, error)
}

// Service stores attachment files on disk and their metadata in the
// repository. Access is gated by read access to the parent task.
type Service struct {
	repo     Repository
	taskRefs TaskRefSource
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

// NewService constructs a Service and ensures the upload directory exists.
func NewService(repo Repository, taskRefs TaskRefSource, dir string, maxBytes int64, logger *slog.Logger) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("attachments: create upload dir: %w", err)
	}
	return &Service{repo: repo, taskRefs: taskRefs, dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

// List returns a task's attachments when the principal may read the task.
func (s *Service) List(ctx context.Context, p auth.Principal, taskID int64) ([]Attachment, error) {
	ref, err := s.taskRefs.GetRef(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccessAttachments(p, ref) {
		return nil, fmt.Errorf("%w: access denied", httpx.ErrForbidden)
	}
	return s.repo.ListByTask(ctx, taskID)
}

// Upload stores the file under a unique name and records its metadata.
func (s *Service) Upload(ctx context.Context, p auth.Principal, taskID int64, originalName, mimeType string, size int64, src io.Reader) (Attachment, error) {
	ref, err := s.taskRefs.GetRef(ctx, taskID)
	if err != nil {
		return Attachment{}, err
	}
	if !policy.CanAccessAttachments(p, ref) {
		return Attachment{}, fmt.Errorf("%w: access denied", httpx.ErrForbidden)
	}
	if size > s.maxBytes {
		return Attachment{}, fmt.Errorf("%w: file too large (max %d bytes)", httpx.ErrInvalidInput, s.maxBytes)
	}
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return Attachment{}, fmt.Errorf("%w: file type not allowed", httpx.ErrInvalidInput)
	}

	filename := uuid.NewString() + filepath.Ext(originalName)
	path := filepath.Join(s.dir, filename)
	dst, err := os.Create(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("attachments: create file: %w", err)
	}
	written, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > s.maxBytes {
		err = fmt.Errorf("%w: file too large (max %d bytes)", httpx.ErrInvalidInput, s.maxBytes)
	}
	if err != nil {
		_ = os.Remove(path)
		return Attachment{}, err
	}

	attachment := Attachment{
		TaskID:       taskID,
		Filename:     filename,
		OriginalName: originalName,
		FileSize:     written,
		MimeType:     mimeType,
		UploadedBy:   p.ID,
	}
	id, err := s.repo.Create(ctx, attachment)
	if err != nil {
		_ = os.Remove(path)
		return Attachment{}, err
	}
	attachment.ID = id
	return attachment, nil
}

// Open returns the stored file for download, under the parent task's read
// rule.
func (s *Service) Open(ctx context.Context, p auth.Principal, id int64) (Attachment, *os.File, error) {
	attachment, err := s.repo.Get(ctx, id)
	if err != nil {
		return Attachment{}, nil, err
	}
	ref, err := s.taskRefs.GetRef(ctx, attachment.TaskID)
	if err != nil {
		return Attachment{}, nil, err
	}
	if !policy.CanAccessAttachments(p, ref) {
		return Attachment{}, nil, fmt.Errorf("%w: access denied", httpx.ErrForbidden)
	}
	file, err := os.Open(filepath.Join(s.dir, attachment.Filename))
	if err != nil {
		if os.IsNotExist(err) {
			return Attachment{}, nil, httpx.ErrNotFound
		}
		return Attachment{}, nil, err
	}
	return attachment, file, nil
}

// Delete removes an attachment: allowed for admin, the uploader, or a
// stakeholder of the parent task. The on-disk file is removed best-effort;
// the metadata row is authoritative.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id int64) error {
	attachment, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	ref, err := s.taskRefs.GetRef(ctx, attachment.TaskID)
	if err != nil {
		return err
	}
	aRef := policy.AttachmentRef{ID: attachment.ID, TaskID: attachment.TaskID, UploadedBy: attachment.UploadedBy}
	if !policy.CanDeleteAttachment(p, aRef, ref) {
		return fmt.Errorf("%w: access denied", httpx.ErrForbidden)
	}

	if err := os.Remove(filepath.Join(s.dir, attachment.Filename)); err != nil && !os.IsNotExist(err) {
		if s.logger != nil {
			s.logger.Warn("remove attachment file", slog.Any("error", err))
		}
	}
	return s.repo.Delete(ctx, id)
}
