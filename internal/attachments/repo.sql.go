package attachments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskflow/taskflow/internal/platform/httpx"
)

// Repository defines persistence operations for the attachments module.
type Repository interface {
	ListByTask(ctx context.Context, taskID int64) ([]Attachment, error)
	Get(ctx context.Context, id int64) (Attachment, error)
	Create(ctx context.Context, attachment Attachment) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const attachmentColumns = `id, task_id, filename, original_name, file_size, mime_type, COALESCE(uploaded_by, 0), uploaded_at`

// ListByTask returns a task's attachments, newest first.
func (r *PGRepository) ListByTask(ctx context.Context, taskID int64) ([]Attachment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attachmentColumns+` FROM attachments WHERE task_id = $1 ORDER BY uploaded_at DESC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []Attachment
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attachments, nil
}

// Get returns one attachment.
func (r *PGRepository) Get(ctx context.Context, id int64) (Attachment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = $1`, id)
	attachment, err := scanAttachment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Attachment{}, httpx.ErrNotFound
		}
		return Attachment{}, err
	}
	return attachment, nil
}

// Create inserts an attachment record and returns its id.
func (r *PGRepository) Create(ctx context.Context, attachment Attachment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attachments (task_id, filename, original_name, file_size, mime_type, uploaded_by)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		attachment.TaskID, attachment.Filename, attachment.OriginalName,
		attachment.FileSize, attachment.MimeType, attachment.UploadedBy,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Delete removes an attachment record.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanAttachment(row pgx.Row) (Attachment, error) {
	var (
		attachment Attachment
		uploadedAt pgtype.Timestamptz
	)
	err := row.Scan(&attachment.ID, &attachment.TaskID, &attachment.Filename, &attachment.OriginalName,
		&attachment.FileSize, &attachment.MimeType, &attachment.UploadedBy, &uploadedAt)
	if err != nil {
		return Attachment{}, err
	}
	attachment.UploadedAt = uploadedAt.Time
	return attachment, nil
}

var _ Repository = (*PGRepository)(nil)
