package projects

import "time"

// DefaultColor is applied when a request omits or mangles the project color.
const DefaultColor = "#667eea"

// Project is a shared grouping for tasks. Projects have no owner; any
// authenticated user may manage them.
type Project struct {
	ID        int64
	Name      string
	Color     string
	CreatedBy int64
	CreatedAt time.Time

	// Aggregates populated on list reads.
	TaskCount      int64
	CompletedTasks int64
}
