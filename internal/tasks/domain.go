package tasks

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the priority is one of the known values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a tracked work item. Zero ProjectID means no project and
// zero AssignedTo means unassigned.
type Task struct {
	ID          int64
	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueDate     *time.Time
	DueTime     string
	ProjectID   int64
	Tags        string
	AssignedTo  int64
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Joined display fields, populated on reads only.
	ProjectName    string
	ProjectColor   string
	AssignedToName string
	CreatedByName  string
}
