// Package tracker drives the modem through bring-up, waits for a call and
// replies to the caller with the location of the nearest cell.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warthog618/goatloc/internal/at"
	"github.com/warthog618/goatloc/internal/clock"
)

// Session is the command session with the modem.
type Session interface {
	Command(ctx context.Context, cmd string, success, failure []string) (string, error)
	Query(ctx context.Context, cmd, prefix string) (string, error)
	Await(ctx context.Context, what, prefix string) (string, error)
	Send(ctx context.Context, cmd string) error
	Write(raw string) error
	ReadLine(ctx context.Context) (string, error)
	Discard(prefixes ...string)
}

// Power sleeps and wakes the modem.
type Power interface {
	Sleep(ctx context.Context) error
	Wake(ctx context.Context) error
	RadioOff(ctx context.Context, d time.Duration) error
}

// Tracker is the state machine for one modem session.
// It must only be used from one goroutine, other than Status.
type Tracker struct {
	s      Session
	pwr    Power
	cfg    Config
	clock  clock.Clock
	log    logrus.FieldLogger
	status *Status
	report *Report
}

// Option modifies the construction of a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(t *Tracker) {
		t.log = log
	}
}

// WithClock sets the clock used for delays and the registration cap.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithStatus sets the Status updated by the Tracker.
func WithStatus(s *Status) Option {
	return func(t *Tracker) {
		t.status = s
	}
}

// New creates a Tracker.
func New(s Session, pwr Power, cfg Config, options ...Option) *Tracker {
	t := &Tracker{
		s:      s,
		pwr:    pwr,
		cfg:    cfg,
		clock:  clock.Real{},
		log:    logrus.StandardLogger(),
		report: NewReport(),
	}
	for _, option := range options {
		option(t)
	}
	if t.status == nil {
		t.status = NewStatus()
	}
	if t.cfg.BearerAttempts < 1 {
		t.cfg.BearerAttempts = 1
	}
	return t
}

// Status returns the status published by the Tracker.
func (t *Tracker) Status() *Status {
	return t.status
}

// Current returns the report being assembled in the current cycle.
func (t *Tracker) Current() *Report {
	return t.report
}

func (t *Tracker) setState(s SessionState) {
	t.log.WithField("state", s).Debug("state")
	t.status.setState(s, t.clock.Now())
}

// Run brings up the modem then replies to calls until the transport closes,
// the context is done, or bring-up fails.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.Bringup(ctx); err != nil {
		return err
	}
	for {
		t.report.Reset()
		if _, err := t.WaitForCall(ctx); err != nil {
			return err
		}
		err := t.ReportLocation(ctx)
		if err != nil {
			if fatal(err) {
				return err
			}
			t.status.reportFailed(err)
			t.log.WithError(err).WithField("cycle", t.report.ID).Warn("report abandoned")
		}
		if err := t.clock.Sleep(ctx, t.cfg.ReportCooldown); err != nil {
			return err
		}
	}
}

// retryable logs a non-fatal command error and returns nil, or returns the
// fatal error.
func (t *Tracker) retryable(err error, cmd string) error {
	if fatal(err) {
		return err
	}
	log := t.log.WithField("cmd", cmd).WithError(err)
	var ce *at.CommandError
	if errors.As(err, &ce) {
		log.Debug("command failed")
	} else {
		log.Info("no response")
	}
	return nil
}
