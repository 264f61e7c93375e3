package notify

import "time"

// Event names emitted on the stream. Clients dispatch on these via
// EventSource listeners.
const (
	EventConnected  = "connected"
	EventTaskUpdate = "task_update"
	EventUserUpdate = "user_update"
	EventHeartbeat  = "heartbeat"
	EventError      = "error"
)

type connectedPayload struct {
	UserID    int64  `json:"user_id"`
	Timestamp string `json:"timestamp"`
}

// Human-readable messages carried on the update events. Clients key off the
// event name; the message is part of the payload contract.
const (
	taskUpdateMessage = "Tasks have been updated"
	userUpdateMessage = "New users have been added"
)

type taskUpdatePayload struct {
	Message   string `json:"message"`
	Count     int64  `json:"count"`
	Timestamp string `json:"timestamp"`
}

type userUpdatePayload struct {
	Message   string `json:"message"`
	Count     int64  `json:"count"`
	Timestamp string `json:"timestamp"`
}

type heartbeatPayload struct {
	Timestamp string `json:"timestamp"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
