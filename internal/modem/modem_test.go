package modem_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/goatloc/internal/modem"
)

type port struct {
	bytes.Buffer
	mu     sync.Mutex
	closed bool
}

func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *port) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func TestRunRetriesDial(t *testing.T) {
	dials := 0
	p := &port{}
	dial := func() (io.ReadWriteCloser, error) {
		dials++
		if dials < 3 {
			return nil, errors.New("no such device")
		}
		return p, nil
	}
	m := modem.New("/dev/ttyUSB0", 9600,
		modem.WithDialer(dial),
		modem.WithBackoff(time.Millisecond, 2*time.Millisecond),
		modem.WithLogger(quietLogger()))
	calls := 0
	err := m.Run(context.Background(), func(ctx context.Context, rw io.ReadWriter) error {
		calls++
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, 3, dials)
	assert.Equal(t, 1, calls)
	assert.True(t, p.isClosed())
}

func TestRunReconnects(t *testing.T) {
	var ports []*port
	dial := func() (io.ReadWriteCloser, error) {
		p := &port{}
		ports = append(ports, p)
		return p, nil
	}
	m := modem.New("/dev/ttyUSB0", 9600,
		modem.WithDialer(dial),
		modem.WithBackoff(time.Millisecond, time.Millisecond),
		modem.WithLogger(quietLogger()))
	calls := 0
	err := m.Run(context.Background(), func(ctx context.Context, rw io.ReadWriter) error {
		calls++
		if calls < 3 {
			return io.EOF
		}
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, ports, 3)
	for _, p := range ports {
		assert.True(t, p.isClosed())
	}
}

func TestRunCancelled(t *testing.T) {
	dial := func() (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	}
	m := modem.New("/dev/ttyUSB0", 9600,
		modem.WithDialer(dial),
		modem.WithBackoff(time.Hour, time.Hour),
		modem.WithLogger(quietLogger()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.Run(ctx, func(ctx context.Context, rw io.ReadWriter) error {
		t.Fatal("handler called without a port")
		return nil
	})
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestRunHandlerCancelled(t *testing.T) {
	dial := func() (io.ReadWriteCloser, error) {
		return &port{}, nil
	}
	m := modem.New("/dev/ttyUSB0", 9600,
		modem.WithDialer(dial),
		modem.WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	err := m.Run(ctx, func(ctx context.Context, rw io.ReadWriter) error {
		cancel()
		return ctx.Err()
	})
	assert.Equal(t, context.Canceled, err)
}

func TestRunTrace(t *testing.T) {
	p := &port{}
	dial := func() (io.ReadWriteCloser, error) {
		return p, nil
	}
	var tb bytes.Buffer
	m := modem.New("/dev/ttyUSB0", 9600,
		modem.WithDialer(dial),
		modem.WithTrace(log.New(&tb, "", 0)),
		modem.WithLogger(quietLogger()))
	err := m.Run(context.Background(), func(ctx context.Context, rw io.ReadWriter) error {
		_, err := io.WriteString(rw, "AT\r\n")
		return err
	})
	require.Nil(t, err)
	assert.Equal(t, "AT\r\n", p.String())
	assert.True(t, strings.Contains(tb.String(), "AT"))
}

func retries(hook *test.Hook) []time.Duration {
	var d []time.Duration
	for _, e := range hook.AllEntries() {
		if r, ok := e.Data["retry"].(time.Duration); ok {
			d = append(d, r)
		}
	}
	return d
}

func TestRunBackoffGrows(t *testing.T) {
	dial := func() (io.ReadWriteCloser, error) {
		return &port{}, nil
	}
	l, hook := test.NewNullLogger()
	m := modem.New("/dev/ttyUSB0", 9600,
		modem.WithDialer(dial),
		modem.WithBackoff(time.Millisecond, 100*time.Millisecond),
		modem.WithStableAfter(time.Hour),
		modem.WithLogger(l))
	calls := 0
	err := m.Run(context.Background(), func(ctx context.Context, rw io.ReadWriter) error {
		calls++
		if calls <= 4 {
			return errors.New("sim pin required")
		}
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		8 * time.Millisecond,
	}, retries(hook))
}

func TestRunBackoffResetsAfterStableSession(t *testing.T) {
	dial := func() (io.ReadWriteCloser, error) {
		return &port{}, nil
	}
	l, hook := test.NewNullLogger()
	m := modem.New("/dev/ttyUSB0", 9600,
		modem.WithDialer(dial),
		modem.WithBackoff(time.Millisecond, 100*time.Millisecond),
		modem.WithStableAfter(20*time.Millisecond),
		modem.WithLogger(l))
	calls := 0
	err := m.Run(context.Background(), func(ctx context.Context, rw io.ReadWriter) error {
		calls++
		switch calls {
		case 1, 2:
			return io.EOF
		case 3:
			time.Sleep(30 * time.Millisecond)
			return io.EOF
		}
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		time.Millisecond,
	}, retries(hook))
}
