package wake

import (
	"context"
	"sync"
)

// PendingWaiter blocks until input is available.
type PendingWaiter interface {
	WaitPending(ctx context.Context) error
}

// Input is a Source that fires when the modem sends anything.
//
// The waiter is only called while armed, and Disarm does not return until
// that call has completed, so the waiter may share state with the caller
// of Arm.
type Input struct {
	w PendingWaiter

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewInput creates an Input source.
func NewInput(w PendingWaiter) *Input {
	return &Input{w: w}
}

// Arm starts watching for input.
func (i *Input) Arm(ctx context.Context) (<-chan struct{}, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cancel != nil {
		i.cancel()
		i.wg.Wait()
	}
	actx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	c := make(chan struct{}, 1)
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		if i.w.WaitPending(actx) == nil {
			fire(c)
		}
	}()
	return c, nil
}

// Disarm stops watching for input.
func (i *Input) Disarm() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	i.wg.Wait()
	return nil
}
