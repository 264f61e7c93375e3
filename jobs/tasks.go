package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/taskflow/taskflow/internal/mailer"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAssignmentMail is the task type for assignment notification mail.
	TaskTypeAssignmentMail = "mail:task_assignment"
)

// AssignmentMailPayload describes an assignment notification to deliver.
type AssignmentMailPayload struct {
	TaskID      int64  `json:"task_id"`
	TaskTitle   string `json:"task_title"`
	ProjectName string `json:"project_name"`
	DueDate     string `json:"due_date"`
	To          string `json:"to"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
}

// NewAssignmentMailTask constructs an Asynq task.
func NewAssignmentMailTask(payload AssignmentMailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAssignmentMail, data), nil
}

// NewAssignmentMailHandler returns the worker handler for assignment mail. A
// malformed payload is dropped rather than retried.
func NewAssignmentMailHandler(m *mailer.Mailer, logger *slog.Logger, metrics *Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeAssignmentMail)
		var payload AssignmentMailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("assignment mail payload", slog.Any("error", err))
			return tracker.End(asynq.SkipRetry)
		}
		err := m.SendTaskAssignment(mailer.Assignment{
			To:          payload.To,
			FirstName:   payload.FirstName,
			LastName:    payload.LastName,
			TaskTitle:   payload.TaskTitle,
			ProjectName: payload.ProjectName,
			DueDate:     payload.DueDate,
		})
		if err != nil {
			logger.Error("assignment mail send",
				slog.Int64("task_id", payload.TaskID),
				slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("assignment mail sent",
			slog.Int64("task_id", payload.TaskID),
			slog.String("to", payload.To))
		return tracker.End(nil)
	}
}
