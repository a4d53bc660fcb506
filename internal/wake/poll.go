package wake

import (
	"context"
	"sync"
	"time"

	"github.com/warthog618/goatloc/internal/clock"
)

// Poll is a Source that fires at a fixed interval, for hardware with no
// wake line wired.
type Poll struct {
	clock    clock.Clock
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoll creates a Poll source firing every interval.
func NewPoll(c clock.Clock, interval time.Duration) *Poll {
	return &Poll{clock: c, interval: interval}
}

// Periodic returns true.
func (p *Poll) Periodic() bool {
	return true
}

// Arm starts the interval timer.
func (p *Poll) Arm(ctx context.Context) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
	}
	actx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	c := make(chan struct{}, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.clock.Sleep(actx, p.interval) == nil {
			fire(c)
		}
	}()
	return c, nil
}

// Disarm stops the interval timer.
func (p *Poll) Disarm() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.wg.Wait()
	return nil
}
