// Package wire implements the name/value text protocol spoken by the base
// manager's web endpoint.
//
// A response body is a sequence of entries joined by EntrySep. Each entry is
// an id and a value joined by FieldSep, optionally followed by a min and max
// bound: "id=value" or "id=value=min=max". An entry with an empty id marks the
// end of the stream, and the TaskStateID entry carries the task state and ends
// the stream as well.
package wire

import (
	"errors"
	"fmt"
	"strings"
)

const (
	EntrySep = "~~~"
	FieldSep = "="

	// TaskStateID is the reserved id carrying the task state digit.
	TaskStateID = "__speedtask__"

	// CheckedMarker is the value that checks a checkbox.
	CheckedMarker = "checked"

	// UseCurrentValue asks the sender to read the value from the control itself.
	UseCurrentValue = "NA"

	SetPath = "setDataReq"
	GetPath = "getDataReq"
)

// Update is one field update: an id, its value and an optional range.
type Update struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Min   string `json:"min,omitempty"`
	Max   string `json:"max,omitempty"`

	// HasRange is set when Min and Max were carried by the entry.
	HasRange bool `json:"has_range,omitempty"`
}

// IsTaskState reports whether u carries the task state.
func (u Update) IsTaskState() bool {
	return u.ID == TaskStateID
}

// Message is an ordered list of updates.
type Message []Update

// ErrSeparatorInField is returned by Encode when an id or value contains
// one of the separators.
var ErrSeparatorInField = errors.New("separator in field")

// DecodeError describes a malformed entry.
type DecodeError struct {
	Index  int
	Entry  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed entry %d %q: %s", e.Index, e.Entry, e.Reason)
}

// Encode flattens msg into a response body.
func Encode(msg Message) (string, error) {
	entries := make([]string, 0, len(msg))
	for i, u := range msg {
		fields := []string{u.ID, u.Value}
		if u.HasRange {
			fields = append(fields, u.Min, u.Max)
		}
		for _, f := range fields {
			if strings.Contains(f, EntrySep) || strings.Contains(f, FieldSep) {
				return "", fmt.Errorf("entry %d (%s): %w", i, u.ID, ErrSeparatorInField)
			}
		}
		entries = append(entries, strings.Join(fields, FieldSep))
	}
	return strings.Join(entries, EntrySep), nil
}

// Decode parses a response body. Decoding stops at the first entry with an
// empty id and after the task state entry. A malformed entry fails the whole
// body; no partial message is returned.
func Decode(body string) (Message, error) {
	var msg Message
	for i, entry := range strings.Split(body, EntrySep) {
		fields := strings.Split(entry, FieldSep)
		if fields[0] == "" {
			break
		}

		var u Update
		switch len(fields) {
		case 2:
			u = Update{ID: fields[0], Value: fields[1]}
		case 4:
			u = Update{ID: fields[0], Value: fields[1], Min: fields[2], Max: fields[3], HasRange: true}
		case 1:
			return nil, &DecodeError{Index: i, Entry: entry, Reason: "missing value"}
		case 3:
			return nil, &DecodeError{Index: i, Entry: entry, Reason: "min without max"}
		default:
			return nil, &DecodeError{Index: i, Entry: entry, Reason: "too many fields"}
		}

		msg = append(msg, u)
		if u.IsTaskState() {
			break
		}
	}
	return msg, nil
}
