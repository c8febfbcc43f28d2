package link

import (
	"context"
	"time"

	"github.com/f3xlab/fieldsync/internal/task"
	"github.com/f3xlab/fieldsync/internal/wire"
)

// Status represents the device connection status
type Status struct {
	Connected    bool      `json:"connected"`
	Reconnecting bool      `json:"reconnecting"`
	LastError    string    `json:"last_error,omitempty"`
	LastSeen     time.Time `json:"last_seen"`
}

// Surface is the UI a client writes device values into
type Surface interface {
	Apply(u wire.Update) bool
	Value(id string) (string, bool)
}

// StateSink receives the task state carried by device responses
type StateSink interface {
	SetState(raw string) task.State
	State() (task.State, bool)
}

// Recorder persists merged updates
type Recorder interface {
	RecordUpdates(ctx context.Context, source string, msg wire.Message) error
}

// MergeResult summarizes one merged response
type MergeResult struct {
	Applied int
	Skipped []string

	// TaskState is set when the response carried the task state
	TaskState *task.State
}
