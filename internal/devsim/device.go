// Package devsim is a stand-in for the base manager's web endpoint, used for
// demos and integration tests. It stores field values and runs a simplified
// speed task driven by the start and stop buttons.
package devsim

import (
	"sort"
	"sync"
	"time"

	"github.com/f3xlab/fieldsync/internal/task"
	"github.com/f3xlab/fieldsync/internal/wire"
)

// Device holds the simulated device state
type Device struct {
	mu        sync.Mutex
	fields    map[string]wire.Update
	state     task.State
	startedAt time.Time
	taskTime  time.Duration

	// now is replaced in tests
	now func() time.Time
}

// NewDevice creates a device whose task is waiting to be started
func NewDevice(taskTime time.Duration) *Device {
	if taskTime <= 0 {
		taskTime = 180 * time.Second
	}
	return &Device{
		fields:   make(map[string]wire.Update),
		state:    task.Waiting,
		taskTime: taskTime,
		now:      time.Now,
	}
}

// Seed stores a field without going through a set request
func (d *Device) Seed(u wire.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fields[u.ID] = u
}

// Set stores a value, keeping any range the field already has
func (d *Device) Set(id, value string) wire.Update {
	d.mu.Lock()
	defer d.mu.Unlock()

	u := d.fields[id]
	u.ID = id
	u.Value = value
	d.fields[id] = u
	return u
}

// Field returns a stored field
func (d *Device) Field(id string) (wire.Update, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.fields[id]
	return u, ok
}

// IDs returns the stored field ids in sorted order
func (d *Device) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, 0, len(d.fields))
	for id := range d.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Start starts the task if it is waiting
func (d *Device) Start() task.State {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.update()
	if d.state == task.Waiting {
		d.startedAt = d.now()
		d.state = task.Running
	}
	return d.state
}

// Stop resets the task to waiting from any state
func (d *Device) Stop() task.State {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state = task.Waiting
	d.startedAt = time.Time{}
	return d.state
}

// Finish ends a running task
func (d *Device) Finish() task.State {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.update()
	if d.state == task.Running {
		d.state = task.Finished
	}
	return d.state
}

// State returns the task state, moving a running task to TimeOverflow once
// the task time has elapsed
func (d *Device) State() task.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.update()
	return d.state
}

// Remaining returns the task time left while running
func (d *Device) Remaining() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.update()
	if d.state != task.Running {
		return 0
	}
	return d.taskTime - d.now().Sub(d.startedAt)
}

func (d *Device) update() {
	if d.state == task.Running && d.now().Sub(d.startedAt) >= d.taskTime {
		d.state = task.TimeOverflow
	}
}
