package link

import (
	"errors"
	"testing"
)

func TestRequestLog(t *testing.T) {
	rl := NewRequestLog(2)

	a := rl.Start("set", "name=a&value=1")
	b := rl.Start("get", "a=0")
	rl.Finish(a, nil)
	rl.Finish(b, errors.New("timeout"))

	entries := rl.Entries()
	if len(entries) != 2 {
		t.Fatalf("len = %d", len(entries))
	}
	// Newest first.
	if entries[0].ID != b || entries[0].Status != RequestDropped || entries[0].Error != "timeout" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Status != RequestCompleted || entries[1].CompletedAt == nil {
		t.Errorf("entries[1] = %+v", entries[1])
	}

	rl.Start("get", "c=0")
	entries = rl.Entries()
	if len(entries) != 2 || entries[1].ID != b {
		t.Errorf("oldest not dropped: %+v", entries)
	}
	if entries[0].Status != RequestPending {
		t.Errorf("new entry status = %q", entries[0].Status)
	}
}
