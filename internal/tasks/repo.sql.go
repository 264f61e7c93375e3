package tasks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskflow/taskflow/internal/platform/httpx"
	"github.com/taskflow/taskflow/internal/policy"
)

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const taskSelect = `
SELECT t.id, t.title, COALESCE(t.description, ''), t.status, t.priority,
       t.due_date, COALESCE(t.due_time, ''), COALESCE(t.project_id, 0),
       COALESCE(t.tags, ''), COALESCE(t.assigned_to, 0), COALESCE(t.created_by, 0),
       t.created_at, t.updated_at,
       COALESCE(p.name, ''), COALESCE(p.color, ''),
       COALESCE(u.username, ''), COALESCE(c.username, '')
FROM tasks t
LEFT JOIN projects p ON t.project_id = p.id
LEFT JOIN users u ON t.assigned_to = u.id
LEFT JOIN users c ON t.created_by = c.id`

// ListAll returns every task, newest first.
func (r *PGRepository) ListAll(ctx context.Context) ([]Task, error) {
	rows, err := r.pool.Query(ctx, taskSelect+` ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListAssignedTo returns the tasks assigned to one user, newest first.
func (r *PGRepository) ListAssignedTo(ctx context.Context, userID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx, taskSelect+` WHERE t.assigned_to = $1 ORDER BY t.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// Get returns one task with its joined display fields.
func (r *PGRepository) Get(ctx context.Context, id int64) (Task, error) {
	row := r.pool.QueryRow(ctx, taskSelect+` WHERE t.id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, httpx.ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

// GetRef returns the ownership projection for policy checks.
func (r *PGRepository) GetRef(ctx context.Context, id int64) (policy.TaskRef, error) {
	var ref policy.TaskRef
	err := r.pool.QueryRow(ctx,
		`SELECT id, COALESCE(assigned_to, 0), COALESCE(created_by, 0) FROM tasks WHERE id = $1`, id,
	).Scan(&ref.ID, &ref.AssignedTo, &ref.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.TaskRef{}, httpx.ErrNotFound
		}
		return policy.TaskRef{}, err
	}
	return ref, nil
}

// Create inserts a new task and returns its id.
func (r *PGRepository) Create(ctx context.Context, task Task) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, status, priority, due_date, due_time, project_id, tags, assigned_to, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		task.Title, nullableText(task.Description), string(task.Status), string(task.Priority),
		task.DueDate, nullableText(task.DueTime), nullableID(task.ProjectID), nullableText(task.Tags),
		nullableID(task.AssignedTo), nullableID(task.CreatedBy),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update writes the mutable columns of a task.
func (r *PGRepository) Update(ctx context.Context, task Task, setAssignee bool) error {
	query := `UPDATE tasks SET title = $1, description = $2, priority = $3, due_date = $4,
		due_time = $5, project_id = $6, tags = $7, updated_at = now()`
	args := []any{task.Title, nullableText(task.Description), string(task.Priority), task.DueDate,
		nullableText(task.DueTime), nullableID(task.ProjectID), nullableText(task.Tags)}
	if setAssignee {
		query += `, assigned_to = $8 WHERE id = $9`
		args = append(args, nullableID(task.AssignedTo), task.ID)
	} else {
		query += ` WHERE id = $8`
		args = append(args, task.ID)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// UpdateStatus writes just the status column.
func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, updated_at = now() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Delete removes a task. Attachments cascade at the schema level.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func collectTasks(rows pgx.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (Task, error) {
	var (
		task      Task
		status    string
		priority  string
		dueDate   pgtype.Date
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&task.ID, &task.Title, &task.Description, &status, &priority,
		&dueDate, &task.DueTime, &task.ProjectID, &task.Tags, &task.AssignedTo, &task.CreatedBy,
		&createdAt, &updatedAt,
		&task.ProjectName, &task.ProjectColor, &task.AssignedToName, &task.CreatedByName)
	if err != nil {
		return Task{}, err
	}
	task.Status = Status(status)
	task.Priority = Priority(priority)
	if dueDate.Valid {
		d := dueDate.Time
		task.DueDate = &d
	}
	task.CreatedAt = createdAt.Time
	task.UpdatedAt = updatedAt.Time
	return task, nil
}

func nullableID(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableText(v string) any {
	if v == "" {
		return nil
	}
	return v
}

var _ Repository = (*PGRepository)(nil)
