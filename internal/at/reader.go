package at

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Reader splits the byte stream from the modem into lines.
//
// A pump goroutine moves bytes from the transport into a buffer so that
// reads can be bounded by a context, but the bytes are consumed one at a time
// by the single caller of ReadLine. CR and LF both terminate a line, and
// empty lines are never returned.
//
// Pending and WaitPending may be called from another goroutine.
type Reader struct {
	mu      sync.Mutex
	rx      []byte // received but not yet consumed
	closed  bool
	perr    error // set by the pump when it exits
	ready   chan struct{}
	done    chan struct{}
	once    sync.Once
	line    *Line
	partial bool // line holds the head of a line interrupted by a timeout

	maxBytes int
	timeout  time.Duration
}

// ReaderOption modifies the construction of a Reader.
type ReaderOption func(*Reader)

// WithLineCapacity sets the capacity of the line buffer.
func WithLineCapacity(n int) ReaderOption {
	return func(r *Reader) {
		r.line = NewLine(n)
	}
}

// WithMaxLineBytes sets the iteration ceiling - the number of bytes that may
// be consumed by a single ReadLine before a partial line is returned.
// Zero disables the ceiling.
func WithMaxLineBytes(n int) ReaderOption {
	return func(r *Reader) {
		r.maxBytes = n
	}
}

// WithReadTimeout bounds each ReadLine call that has no context deadline.
// Zero leaves the read bounded only by the context.
func WithReadTimeout(d time.Duration) ReaderOption {
	return func(r *Reader) {
		r.timeout = d
	}
}

// NewReader creates a Reader consuming r.
func NewReader(r io.Reader, options ...ReaderOption) *Reader {
	rd := &Reader{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
		line:  NewLine(DefaultLineCapacity),
	}
	for _, option := range options {
		option(rd)
	}
	go rd.pump(r)
	return rd
}

// Close stops the reader. It does not close the underlying transport, so
// the pump only exits once the transport read returns.
func (r *Reader) Close() {
	r.once.Do(func() { close(r.done) })
}

func (r *Reader) pump(in io.Reader) {
	buf := make([]byte, 256)
	for {
		n, err := in.Read(buf)
		r.mu.Lock()
		r.rx = append(r.rx, buf[:n]...)
		if err != nil {
			r.closed = true
			r.perr = err
		}
		r.mu.Unlock()
		select {
		case r.ready <- struct{}{}:
		default:
		}
		if err != nil {
			return
		}
		select {
		case <-r.done:
			return
		default:
		}
	}
}

func (r *Reader) closedErr() error {
	if r.perr == nil || r.perr == io.EOF {
		return ErrClosed
	}
	return fmt.Errorf("%w: %v", ErrClosed, r.perr)
}

// wait blocks until the pump signals more input.
func (r *Reader) wait(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// next returns the next received byte, blocking until one is available.
func (r *Reader) next(ctx context.Context) (byte, error) {
	for {
		r.mu.Lock()
		if len(r.rx) > 0 {
			b := r.rx[0]
			r.rx = r.rx[1:]
			r.mu.Unlock()
			return b, nil
		}
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return 0, r.closedErr()
		}
		if err := r.wait(ctx); err != nil {
			return 0, err
		}
	}
}

// ReadLine blocks until a complete, non-empty line is available and returns
// it without its terminator.
// If the iteration ceiling is reached the partial line is returned.
// If the read times out part way through a line, that part is retained and
// completed by the next ReadLine.
func (r *Reader) ReadLine(ctx context.Context) (string, error) {
	if _, ok := ctx.Deadline(); !ok && r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if !r.partial {
		r.line.Reset()
	}
	r.partial = false
	consumed := 0
	for {
		b, err := r.next(ctx)
		if err != nil {
			r.partial = err == ErrTimeout && r.line.Len() > 0
			return "", err
		}
		consumed++
		if b == '\r' || b == '\n' {
			if r.line.Len() > 0 {
				return r.line.String(), nil
			}
			continue
		}
		r.line.Append(b)
		if r.maxBytes > 0 && consumed >= r.maxBytes {
			return r.line.String(), nil
		}
	}
}

// Line returns the line buffer holding the most recent line.
func (r *Reader) Line() *Line {
	return r.line
}

// Pending returns true if there are received bytes not yet consumed, other
// than the terminators trailing the last line.
func (r *Reader) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingLocked()
}

func (r *Reader) pendingLocked() bool {
	i := 0
	for i < len(r.rx) && (r.rx[i] == '\r' || r.rx[i] == '\n') {
		i++
	}
	r.rx = r.rx[i:]
	return len(r.rx) > 0
}

// WaitPending blocks until Pending would return true.
func (r *Reader) WaitPending(ctx context.Context) error {
	for {
		r.mu.Lock()
		pending, closed := r.pendingLocked(), r.closed
		r.mu.Unlock()
		if pending {
			return nil
		}
		if closed {
			return r.closedErr()
		}
		if err := r.wait(ctx); err != nil {
			return err
		}
	}
}
