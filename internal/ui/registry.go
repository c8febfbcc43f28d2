// Package ui holds the headless model of the page's form controls.
package ui

import (
	"sort"
	"sync"

	"github.com/f3xlab/fieldsync/internal/config"
	"github.com/f3xlab/fieldsync/internal/wire"
)

// Kind is the HTML input type of a control.
type Kind string

const (
	KindRadio     Kind = "radio"
	KindCheckbox  Kind = "checkbox"
	KindPassword  Kind = "password"
	KindText      Kind = "text"
	KindRange     Kind = "range"
	KindNumber    Kind = "number"
	KindSelectOne Kind = "select-one"
	KindSelect    Kind = "select"
	KindButton    Kind = "button"

	// KindSpan stands for any element without a value, showing text only
	KindSpan Kind = "span"
)

// Control is the state of one form control.
type Control struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Class string `json:"class,omitempty"`

	Value   string `json:"value,omitempty"`
	Min     string `json:"min,omitempty"`
	Max     string `json:"max,omitempty"`
	Text    string `json:"text,omitempty"`
	Checked bool   `json:"checked,omitempty"`

	Disabled bool `json:"disabled,omitempty"`
	ReadOnly bool `json:"readonly,omitempty"`
}

// Registry maps control ids to controls. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	controls map[string]*Control
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		controls: make(map[string]*Control),
	}
}

// FromConfig creates a registry holding the configured controls
func FromConfig(controls []config.ControlConfig) *Registry {
	r := NewRegistry()
	for _, c := range controls {
		r.Register(Control{
			ID:    c.ID,
			Kind:  Kind(c.Kind),
			Class: c.Class,
			Value: c.Value,
		})
	}
	return r
}

// Register adds c, replacing any control with the same id
func (r *Registry) Register(c Control) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls[c.ID] = &c
}

// Lookup returns a copy of the control with the given id
func (r *Registry) Lookup(id string) (Control, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.controls[id]
	if !ok {
		return Control{}, false
	}
	return *c, true
}

// Value returns the current value of a control
func (r *Registry) Value(id string) (string, bool) {
	c, ok := r.Lookup(id)
	return c.Value, ok
}

// Snapshot returns copies of all controls sorted by id
func (r *Registry) Snapshot() []Control {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Control, 0, len(r.controls))
	for _, c := range r.controls {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Apply writes u into the control with the same id according to the
// control's kind. It returns false if no such control is registered.
func (r *Registry) Apply(u wire.Update) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controls[u.ID]
	if !ok {
		return false
	}

	switch c.Kind {
	case KindRadio:
		c.Checked = true
	case KindCheckbox:
		c.Checked = u.Value == wire.CheckedMarker
	case KindPassword, KindText, KindSelectOne, KindSelect:
		c.Value = u.Value
	case KindRange, KindNumber:
		c.Value = u.Value
		if u.HasRange {
			c.Min = u.Min
			c.Max = u.Max
		}
	default:
		c.Text = u.Value
	}
	return true
}

// SetDisabled enables or disables a control
func (r *Registry) SetDisabled(id string, disabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controls[id]
	if !ok {
		return false
	}
	c.Disabled = disabled
	return true
}

// SetValue sets the value a control holds locally, as a user typing into it would
func (r *Registry) SetValue(id, value string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controls[id]
	if !ok {
		return false
	}
	c.Value = value
	return true
}

// SetText replaces the displayed text of a control
func (r *Registry) SetText(id, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controls[id]
	if !ok {
		return false
	}
	c.Text = text
	return true
}

// SetClassReadOnly makes every control of the given class read-only and
// disabled, or editable again when value is the literal "false". It returns
// the number of controls touched.
func (r *Registry) SetClassReadOnly(class, value string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	locked := value != "false"
	n := 0
	for _, c := range r.controls {
		if c.Class != class {
			continue
		}
		c.ReadOnly = locked
		c.Disabled = locked
		n++
	}
	return n
}
