package link

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Request statuses
const (
	RequestPending   = "pending"
	RequestCompleted = "completed"
	RequestDropped   = "dropped"
)

// RequestRecord represents one outbound request to the device
type RequestRecord struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"` // set, get
	Query       string     `json:"query"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RequestLog is a thread-safe ring buffer of request records
type RequestLog struct {
	mu      sync.RWMutex
	entries []RequestRecord
	cap     int
}

// NewRequestLog creates a new request log with the given capacity
func NewRequestLog(capacity int) *RequestLog {
	if capacity < 1 {
		capacity = 1
	}
	return &RequestLog{
		entries: make([]RequestRecord, 0, capacity),
		cap:     capacity,
	}
}

// Start records a new pending request and returns its id
func (rl *RequestLog) Start(kind, query string) string {
	rec := RequestRecord{
		ID:        uuid.New().String(),
		Kind:      kind,
		Query:     query,
		Status:    RequestPending,
		CreatedAt: time.Now(),
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.entries) >= rl.cap {
		copy(rl.entries, rl.entries[1:])
		rl.entries[len(rl.entries)-1] = rec
	} else {
		rl.entries = append(rl.entries, rec)
	}
	return rec.ID
}

// Entries returns all request records (newest first)
func (rl *RequestLog) Entries() []RequestRecord {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	result := make([]RequestRecord, len(rl.entries))
	// Reverse order so newest is first
	for i, j := 0, len(rl.entries)-1; j >= 0; i, j = i+1, j-1 {
		result[i] = rl.entries[j]
	}
	return result
}

// Finish marks a request completed, or dropped when err is non-nil
func (rl *RequestLog) Finish(id string, err error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for i := len(rl.entries) - 1; i >= 0; i-- {
		if rl.entries[i].ID == id {
			now := time.Now()
			rl.entries[i].CompletedAt = &now
			if err != nil {
				rl.entries[i].Status = RequestDropped
				rl.entries[i].Error = err.Error()
			} else {
				rl.entries[i].Status = RequestCompleted
			}
			return
		}
	}
}
