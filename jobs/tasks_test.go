package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/taskflow/internal/mailer"
)

func TestAssignmentMailHandlerSkipsMalformedPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	metrics := NewMetrics(prometheus.NewRegistry())
	h := NewAssignmentMailHandler(mailer.New("127.0.0.1", 1025, "no-reply@taskflow.local"), logger, metrics)

	err := h(context.Background(), asynq.NewTask(TaskTypeAssignmentMail, []byte("not json")))
	require.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestNewAssignmentMailTask(t *testing.T) {
	task, err := NewAssignmentMailTask(AssignmentMailPayload{
		TaskID:    42,
		TaskTitle: "Ship release",
		To:        "john@taskflow.local",
	})
	require.NoError(t, err)
	require.Equal(t, TaskTypeAssignmentMail, task.Type())
	require.Contains(t, string(task.Payload()), `"task_id":42`)
}
