package link

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/f3xlab/fieldsync/internal/task"
)

// Fetcher is the part of Client the poller drives
type Fetcher interface {
	Fetch(ctx context.Context, ids ...string) error
	FetchInState(ctx context.Context, state task.State, ids ...string) (bool, error)
}

// Poller repeatedly fetches field values from the device
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	counter int
}

// NewPoller creates a poller ticking every interval (1s when zero)
func NewPoller(f Fetcher, interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{
		fetcher:  f,
		interval: interval,
		logger:   logger,
	}
}

// Count returns the number of fetches issued by PollCount so far
func (p *Poller) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counter
}

// Reset sets the PollCount counter back to zero
func (p *Poller) Reset() {
	p.mu.Lock()
	p.counter = 0
	p.mu.Unlock()
}

// next increments the counter if it is still below bound
func (p *Poller) next(bound int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counter >= bound {
		return false
	}
	p.counter++
	return true
}

// PollCount fetches id once per interval while the poller's counter is below
// bound. The counter is shared by every PollCount call on the same poller,
// so a second loop continues where the first one stopped. Failed fetches are
// logged and dropped. It blocks until the bound is reached or ctx is done.
func (p *Poller) PollCount(ctx context.Context, id string, bound int) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for p.next(bound) {
		if err := p.fetcher.Fetch(ctx, id); err != nil {
			p.logger.Debug().Err(err).Str("id", id).Msg("poll fetch dropped")
		}
		if p.Count() >= bound {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// PollInState fetches ids once per interval, but only while the task is in
// state. It runs until ctx is done.
func (p *Poller) PollInState(ctx context.Context, state task.State, ids ...string) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.fetcher.FetchInState(ctx, state, ids...); err != nil {
			p.logger.Debug().Err(err).Strs("ids", ids).Msg("poll fetch dropped")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
