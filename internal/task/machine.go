// Package task mirrors the device's speed task status into the start and
// stop button affordances.
package task

import "sync"

// State is the task status reported by the device.
type State int

const (
	Error State = iota
	Waiting
	Running
	TimeOverflow
	Finished
	NotSet

	// Unrecognized is any reported value outside the known digits.
	Unrecognized State = -1
)

var stateNames = map[State]string{
	Error:        "TaskError",
	Waiting:      "TaskWaiting",
	Running:      "TaskRunning",
	TimeOverflow: "TaskTimeOverflow",
	Finished:     "TaskFinished",
	NotSet:       "TaskNotSet",
	Unrecognized: "TaskUnrecognized",
}

// ParseState maps a state digit to a State.
func ParseState(raw string) State {
	if len(raw) != 1 || raw[0] < '0' || raw[0] > '5' {
		return Unrecognized
	}
	return State(raw[0] - '0')
}

// Code returns the digit the device uses for s, or "" for Unrecognized.
func (s State) Code() string {
	if s < Error || s > NotSet {
		return ""
	}
	return string(rune('0' + s))
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return stateNames[Unrecognized]
}

// Button ids the machine drives.
const (
	StartButtonID = "id_start_task"
	StopButtonID  = "id_stop_task"
)

// Buttons is the part of the UI the machine drives.
type Buttons interface {
	SetDisabled(id string, disabled bool) bool
}

// Transition describes one SetState call.
type Transition struct {
	From State
	To   State
	Raw  string
}

// Machine holds the last reported task state.
type Machine struct {
	mu      sync.Mutex
	buttons Buttons
	raw     string
	state   State
	set     bool

	// OnTransition, when set, is called after every SetState
	OnTransition func(Transition)
}

// NewMachine creates a machine driving buttons
func NewMachine(buttons Buttons) *Machine {
	return &Machine{
		buttons: buttons,
		state:   Unrecognized,
	}
}

// SetState stores raw verbatim and applies the button effect of the state it
// names. Values outside the known digits are stored but leave the buttons
// untouched.
func (m *Machine) SetState(raw string) State {
	m.mu.Lock()
	from := m.state
	m.raw = raw
	m.state = ParseState(raw)
	m.set = true
	to := m.state

	switch to {
	case Error, Waiting:
		m.stop()
	case Running:
		m.start()
	case NotSet:
		m.init()
	}
	hook := m.OnTransition
	m.mu.Unlock()

	if hook != nil {
		hook(Transition{From: from, To: to, Raw: raw})
	}
	return to
}

// Raw returns the last stored value verbatim, "" before the first SetState.
func (m *Machine) Raw() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw
}

// State returns the current state and whether any state was set yet.
func (m *Machine) State() (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.set
}

// Is reports whether a state was set and equals s.
func (m *Machine) Is(s State) bool {
	cur, ok := m.State()
	return ok && cur == s
}

func (m *Machine) init() {
	m.buttons.SetDisabled(StopButtonID, true)
	m.buttons.SetDisabled(StartButtonID, true)
}

func (m *Machine) start() {
	m.buttons.SetDisabled(StopButtonID, false)
	m.buttons.SetDisabled(StartButtonID, true)
}

func (m *Machine) stop() {
	m.buttons.SetDisabled(StopButtonID, true)
	m.buttons.SetDisabled(StartButtonID, false)
}
