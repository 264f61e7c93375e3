package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/platform/httpx"
	"github.com/taskflow/taskflow/internal/policy"
)

// AssignmentNotice carries everything the mail worker needs to notify a user
// about a task assigned to them.
type AssignmentNotice struct {
	TaskID      int64
	TaskTitle   string
	ProjectName string
	DueDate     string
	To          string
	FirstName   string
	LastName    string
}

// Notifier enqueues assignment notifications. The zero-dependency core never
// talks SMTP directly.
type Notifier interface {
	TaskAssigned(ctx context.Context, notice AssignmentNotice) error
}

// Directory resolves user accounts for notification recipients.
type Directory interface {
	FindByID(ctx context.Context, id int64) (*auth.User, error)
}

// Service applies the access rules around task persistence.
type Service struct {
	repo     Repository
	users    Directory
	notifier Notifier
	logger   *slog.Logger
}

// NewService constructs a Service. notifier may be nil when mail delivery is
// not configured.
func NewService(repo Repository, users Directory, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, users: users, notifier: notifier, logger: logger}
}

// List returns the tasks visible to the principal: everything for admin,
// assigned tasks for everyone else.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]Task, error) {
	if p.IsAdmin() {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListAssignedTo(ctx, p.ID)
}

// CreateInput is the payload for creating a task.
type CreateInput struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
	DueTime     string
	ProjectID   int64
	Tags        string
	AssignedTo  int64
}

// Create inserts a task. Non-admin principals are always the assignee of
// tasks they create, regardless of the requested target.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (int64, error) {
	if !policy.CanCreateTask(p) {
		return 0, httpx.ErrForbidden
	}
	if in.Title == "" {
		return 0, fmt.Errorf("%w: task title is required", httpx.ErrInvalidInput)
	}
	if !in.Priority.Valid() {
		in.Priority = PriorityMedium
	}

	assignee := policy.ResolveAssignee(p, in.AssignedTo)
	id, err := s.repo.Create(ctx, Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      StatusPending,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		DueTime:     in.DueTime,
		ProjectID:   in.ProjectID,
		Tags:        in.Tags,
		AssignedTo:  assignee,
		CreatedBy:   p.ID,
	})
	if err != nil {
		return 0, err
	}

	if assignee != 0 && assignee != p.ID {
		s.notifyAssignment(ctx, id, assignee)
	}
	return id, nil
}

// UpdateInput is the payload for a full task update.
type UpdateInput struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
	DueTime     string
	ProjectID   int64
	Tags        string
	AssignedTo  int64
}

// Update rewrites a task's fields. Only admin may move the assignment; a
// reassignment request from anyone else is silently ignored.
func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, in UpdateInput) error {
	ref, err := s.repo.GetRef(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanUpdateTask(p, ref) {
		return fmt.Errorf("%w: you do not have permission to update this task", httpx.ErrForbidden)
	}
	if in.Title == "" {
		return fmt.Errorf("%w: task title is required", httpx.ErrInvalidInput)
	}
	if !in.Priority.Valid() {
		in.Priority = PriorityMedium
	}

	setAssignee := policy.CanReassignTask(p) && in.AssignedTo != 0
	err = s.repo.Update(ctx, Task{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		DueTime:     in.DueTime,
		ProjectID:   in.ProjectID,
		Tags:        in.Tags,
		AssignedTo:  in.AssignedTo,
	}, setAssignee)
	if err != nil {
		return err
	}

	if setAssignee && in.AssignedTo != ref.AssignedTo && in.AssignedTo != p.ID {
		s.notifyAssignment(ctx, id, in.AssignedTo)
	}
	return nil
}

// UpdateStatus moves a task through its lifecycle, under the same ownership
// rule as a full update.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, id int64, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status", httpx.ErrInvalidInput)
	}
	ref, err := s.repo.GetRef(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanUpdateTask(p, ref) {
		return fmt.Errorf("%w: you do not have permission to update this task", httpx.ErrForbidden)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// Delete removes a task. Admin only.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id int64) error {
	if !policy.CanDeleteTask(p) {
		return fmt.Errorf("%w: you do not have permission to delete tasks", httpx.ErrForbidden)
	}
	return s.repo.Delete(ctx, id)
}

// notifyAssignment enqueues the assignment email. Failures are logged and do
// not fail the mutation that triggered them.
func (s *Service) notifyAssignment(ctx context.Context, taskID, assigneeID int64) {
	if s.notifier == nil {
		return
	}
	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		s.log("load task for notification", err)
		return
	}
	user, err := s.users.FindByID(ctx, assigneeID)
	if err != nil {
		s.log("load assignee for notification", err)
		return
	}
	notice := AssignmentNotice{
		TaskID:      task.ID,
		TaskTitle:   task.Title,
		ProjectName: task.ProjectName,
		To:          user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
	}
	if task.DueDate != nil {
		notice.DueDate = task.DueDate.Format("2006-01-02")
	}
	if err := s.notifier.TaskAssigned(ctx, notice); err != nil {
		s.log("enqueue assignment notice", err)
	}
}

func (s *Service) log(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}
