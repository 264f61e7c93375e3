package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskflow/taskflow/internal/platform/db"
	"github.com/taskflow/taskflow/internal/platform/httpx"
)

// Repository defines persistence operations for the projects module.
type Repository interface {
	List(ctx context.Context) ([]Project, error)
	Create(ctx context.Context, project Project) (int64, error)
	Update(ctx context.Context, project Project) error
	// Delete removes the project and detaches its tasks in one
	// transaction. It returns how many tasks were detached.
	Delete(ctx context.Context, id int64) (int64, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns all projects with task aggregates, newest first.
func (r *PGRepository) List(ctx context.Context) ([]Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.color, COALESCE(p.created_by, 0), p.created_at,
		       COUNT(t.id), COUNT(t.id) FILTER (WHERE t.status = 'completed')
		FROM projects p
		LEFT JOIN tasks t ON p.id = t.project_id
		GROUP BY p.id
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var (
			project   Project
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&project.ID, &project.Name, &project.Color, &project.CreatedBy,
			&createdAt, &project.TaskCount, &project.CompletedTasks); err != nil {
			return nil, err
		}
		project.CreatedAt = createdAt.Time
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

// Create inserts a project and returns its id.
func (r *PGRepository) Create(ctx context.Context, project Project) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO projects (name, color, created_by) VALUES ($1, $2, $3) RETURNING id`,
		project.Name, project.Color, nullableID(project.CreatedBy),
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: project with this name already exists", httpx.ErrDuplicate)
		}
		return 0, err
	}
	return id, nil
}

// Update renames or recolors a project.
func (r *PGRepository) Update(ctx context.Context, project Project) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET name = $1, color = $2 WHERE id = $3`,
		project.Name, project.Color, project.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: project with this name already exists", httpx.ErrDuplicate)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Delete detaches the project's tasks and removes the project atomically.
func (r *PGRepository) Delete(ctx context.Context, id int64) (int64, error) {
	var detached int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE tasks SET project_id = NULL WHERE project_id = $1`, id)
		if err != nil {
			return err
		}
		detached = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return 0, httpx.ErrNotFound
		}
		return 0, err
	}
	return detached, nil
}

func nullableID(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

var _ Repository = (*PGRepository)(nil)
