// Package modem owns the serial connection to the modem, reopening it with
// backoff whenever it fails or the session running over it exits.
package modem

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
	"github.com/warthog618/modem/serial"
	"github.com/warthog618/modem/trace"
)

// Dialer opens the transport to the modem.
type Dialer func() (io.ReadWriteCloser, error)

// Handler runs a session over an open transport. It returns when the
// transport fails or the context is done.
type Handler func(ctx context.Context, rw io.ReadWriter) error

// GSMModem supervises the serial port the modem is attached to.
type GSMModem struct {
	port     string
	baudrate int
	dial     Dialer
	trace    *log.Logger
	log      logrus.FieldLogger
	b        backoff.Backoff
	stable   time.Duration
}

// Option modifies the construction of a GSMModem.
type Option func(*GSMModem)

// WithTrace logs all traffic to and from the modem to l.
func WithTrace(l *log.Logger) Option {
	return func(m *GSMModem) {
		m.trace = l
	}
}

// WithLogger sets the logger for connection events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *GSMModem) {
		m.log = log
	}
}

// WithDialer replaces the serial port dialer.
func WithDialer(d Dialer) Option {
	return func(m *GSMModem) {
		m.dial = d
	}
}

// WithBackoff sets the bounds of the reconnect delay.
func WithBackoff(min, max time.Duration) Option {
	return func(m *GSMModem) {
		m.b.Min = min
		m.b.Max = max
	}
}

// WithStableAfter sets how long a session must run before its failure is
// treated as a fresh disconnect rather than another failed attempt.
func WithStableAfter(d time.Duration) Option {
	return func(m *GSMModem) {
		m.stable = d
	}
}

// New creates a GSMModem on the given serial port.
func New(port string, baudrate int, options ...Option) *GSMModem {
	m := &GSMModem{
		port:     port,
		baudrate: baudrate,
		log:      logrus.StandardLogger(),
		b: backoff.Backoff{
			Min: time.Second,
			Max: 5 * time.Minute,
		},
		stable: time.Minute,
	}
	m.dial = m.openSerial
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *GSMModem) openSerial() (io.ReadWriteCloser, error) {
	p, err := serial.New(m.port, m.baudrate)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Run connects to the modem and runs h over the connection, reconnecting
// after each failure until the context is done.
//
// A Handler that returns nil ends the supervision. The reconnect delay
// grows while sessions keep failing early, and drops back to the minimum
// once a session has run for the stable period.
func (m *GSMModem) Run(ctx context.Context, h Handler) error {
	connect := time.NewTimer(0)
	defer connect.Stop()
	log := m.log.WithField("port", m.port)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-connect.C:
		}
		p, err := m.dial()
		if err != nil {
			d := m.b.Duration()
			log.WithError(err).WithField("retry", d).Warn("modem open failed")
			connect.Reset(d)
			continue
		}
		log.Info("modem connected")
		var rw io.ReadWriter = p
		if m.trace != nil {
			rw = trace.New(p, m.trace)
		}
		start := time.Now()
		err = h(ctx, rw)
		p.Close()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		if time.Since(start) >= m.stable {
			m.b.Reset()
		}
		d := m.b.Duration()
		log.WithError(err).WithField("retry", d).Warn("modem disconnected")
		connect.Reset(d)
	}
}
