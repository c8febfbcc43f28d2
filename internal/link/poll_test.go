package link

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/f3xlab/fieldsync/internal/task"
)

type countingFetcher struct {
	mu       sync.Mutex
	fetches  [][]string
	inState  int
	state    task.State
	failWith error
}

func (f *countingFetcher) Fetch(_ context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, ids)
	return f.failWith
}

func (f *countingFetcher) FetchInState(ctx context.Context, state task.State, ids ...string) (bool, error) {
	f.mu.Lock()
	f.inState++
	match := f.state == state
	f.mu.Unlock()
	if !match {
		return false, nil
	}
	return true, f.Fetch(ctx, ids...)
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

func TestPollCount_StopsAtBound(t *testing.T) {
	f := &countingFetcher{failWith: errors.New("timeout")}
	p := NewPoller(f, time.Millisecond, zerolog.Nop())

	if err := p.PollCount(context.Background(), "id_speed", 3); err != nil {
		t.Fatal(err)
	}
	if f.count() != 3 {
		t.Errorf("fetches = %d, want 3", f.count())
	}
	if p.Count() != 3 {
		t.Errorf("Count() = %d, want 3", p.Count())
	}
}

func TestPollCount_ReturnsAfterLastFetch(t *testing.T) {
	f := &countingFetcher{}
	p := NewPoller(f, time.Hour, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- p.PollCount(context.Background(), "id_speed", 1) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("PollCount waited for another tick after the last fetch")
	}
	if f.count() != 1 {
		t.Errorf("fetches = %d, want 1", f.count())
	}
}

func TestPollCount_SharedCounter(t *testing.T) {
	f := &countingFetcher{}
	p := NewPoller(f, time.Millisecond, zerolog.Nop())

	p.PollCount(context.Background(), "a", 2)
	p.PollCount(context.Background(), "b", 2)
	if f.count() != 2 {
		t.Errorf("fetches = %d, want 2: the second loop starts at the bound", f.count())
	}

	p.PollCount(context.Background(), "c", 4)
	if f.count() != 4 {
		t.Errorf("fetches = %d, want 4", f.count())
	}

	p.Reset()
	p.PollCount(context.Background(), "d", 1)
	if f.count() != 5 {
		t.Errorf("fetches = %d after Reset, want 5", f.count())
	}
}

func TestPollCount_ContextCancel(t *testing.T) {
	f := &countingFetcher{}
	p := NewPoller(f, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.PollCount(ctx, "a", 100) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PollCount did not stop on cancel")
	}
}

func TestPollInState(t *testing.T) {
	f := &countingFetcher{state: task.Waiting}
	p := NewPoller(f, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	p.PollInState(ctx, task.Running, "id_speed")

	f.mu.Lock()
	checks := f.inState
	f.mu.Unlock()
	if checks == 0 {
		t.Fatal("state never checked")
	}
	if f.count() != 0 {
		t.Errorf("fetches = %d while not running", f.count())
	}

	f.mu.Lock()
	f.state = task.Running
	f.mu.Unlock()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel2()
	p.PollInState(ctx2, task.Running, "id_speed", "id_time")
	if f.count() == 0 {
		t.Error("no fetch while running")
	}
}
