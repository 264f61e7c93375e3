package tasks

import (
	"context"

	"github.com/taskflow/taskflow/internal/policy"
)

// Repository defines persistence operations for the tasks module.
type Repository interface {
	ListAll(ctx context.Context) ([]Task, error)
	ListAssignedTo(ctx context.Context, userID int64) ([]Task, error)
	Get(ctx context.Context, id int64) (Task, error)
	// GetRef returns only the ownership projection, keeping policy checks
	// off the full-row read path.
	GetRef(ctx context.Context, id int64) (policy.TaskRef, error)
	Create(ctx context.Context, task Task) (int64, error)
	// Update writes the mutable columns; the assignee column is only
	// touched when setAssignee is true.
	Update(ctx context.Context, task Task, setAssignee bool) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
}
