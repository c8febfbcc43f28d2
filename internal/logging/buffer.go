package logging

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Entry represents a single log entry
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
}

// Buffer is a thread-safe ring buffer for log entries
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	cap     int
}

// NewBuffer creates a new log buffer with the given capacity
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		entries: make([]Entry, 0, capacity),
		cap:     capacity,
	}
}

// Add adds a log entry to the buffer
func (b *Buffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	if len(b.entries) >= b.cap {
		// Shift everything left by 1, drop oldest
		copy(b.entries, b.entries[1:])
		b.entries[len(b.entries)-1] = e
	} else {
		b.entries = append(b.entries, e)
	}
}

// Entries returns all entries, optionally filtered by level
func (b *Buffer) Entries(levels []string) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(levels) == 0 {
		result := make([]Entry, len(b.entries))
		copy(result, b.entries)
		return result
	}

	levelSet := make(map[string]bool)
	for _, l := range levels {
		levelSet[strings.ToLower(l)] = true
	}

	result := make([]Entry, 0)
	for _, e := range b.entries {
		if levelSet[strings.ToLower(e.Level)] {
			result = append(result, e)
		}
	}
	return result
}

// Clear removes all entries
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = b.entries[:0]
}

// Write accepts one zerolog JSON event per call, so the buffer can sit
// behind a zerolog writer.
func (b *Buffer) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	if line == "" {
		return len(p), nil
	}

	var ev map[string]any
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		// Not a JSON event; keep the raw line.
		b.Add(Entry{Level: "info", Message: line})
		return len(p), nil
	}

	e := Entry{
		Level:     stringField(ev, "level"),
		Component: stringField(ev, "component"),
		Message:   stringField(ev, "message"),
	}
	if errMsg := stringField(ev, "error"); errMsg != "" {
		e.Message += ": " + errMsg
	}
	if ts := stringField(ev, "time"); ts != "" {
		e.Timestamp, _ = time.Parse(time.RFC3339, ts)
	}
	b.Add(e)
	return len(p), nil
}

func stringField(ev map[string]any, key string) string {
	s, _ := ev[key].(string)
	return s
}
