// Package power coordinates the low power states of the modem and the host.
package power

//go:generate mockgen -destination mock_modem_test.go -package power_test github.com/warthog618/goatloc/internal/power Modem
//go:generate mockgen -destination mock_source_test.go -package power_test github.com/warthog618/goatloc/internal/wake Source

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warthog618/goatloc/internal/at"
	"github.com/warthog618/goatloc/internal/clock"
	"github.com/warthog618/goatloc/internal/wake"
)

// Modem is the part of the command session used by the Controller.
type Modem interface {
	Send(ctx context.Context, cmd string) error
	Pending() bool
}

// Config controls how the Controller sleeps.
type Config struct {
	// ModemSleep enables the modem slow clock while the host sleeps.
	ModemSleep bool

	// WakeSettle is the time allowed for the modem to leave slow clock mode
	// after the wake bytes are sent.
	WakeSettle time.Duration
}

// Controller puts the modem and the host to sleep and wakes them again.
type Controller struct {
	modem Modem
	src   wake.Source
	clock clock.Clock
	log   logrus.FieldLogger
	cfg   Config
}

// Option modifies the construction of a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithClock sets the clock used for settle and radio off delays.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		c.clock = clk
	}
}

// New creates a Controller that sleeps until src fires.
func New(modem Modem, src wake.Source, cfg Config, options ...Option) *Controller {
	c := &Controller{
		modem: modem,
		src:   src,
		clock: clock.Real{},
		log:   logrus.StandardLogger(),
		cfg:   cfg,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Sleep blocks until the wake source fires or the context is done.
//
// If input is already pending Sleep returns immediately. The wake source is
// always armed before blocking and disarmed before returning. With a periodic
// source, a tick that finds no pending input goes back to sleep.
func (c *Controller) Sleep(ctx context.Context) error {
	if c.modem.Pending() {
		c.log.Debug("input pending, not sleeping")
		return nil
	}
	if c.cfg.ModemSleep {
		if err := c.modem.Send(ctx, at.CmdSleepOn); err != nil {
			return err
		}
	}
	periodic := wake.IsPeriodic(c.src)
	for {
		if c.modem.Pending() {
			return nil
		}
		fired, err := c.src.Arm(ctx)
		if err != nil {
			return err
		}
		// input received before the source was armed raises no wake event
		if c.modem.Pending() {
			c.disarm()
			c.log.Debug("input pending after arm, not sleeping")
			return nil
		}
		c.log.Debug("sleeping")
		select {
		case <-fired:
		case <-ctx.Done():
			c.disarm()
			return ctx.Err()
		}
		c.disarm()
		if !periodic || c.modem.Pending() {
			c.log.Debug("woken")
			return nil
		}
	}
}

func (c *Controller) disarm() {
	if err := c.src.Disarm(); err != nil {
		c.log.WithError(err).Warn("disarm failed")
	}
}

// Wake brings the modem out of slow clock mode.
// The first bytes sent to a sleeping modem are lost, so a dummy command is
// sent before sleep is disabled.
func (c *Controller) Wake(ctx context.Context) error {
	if !c.cfg.ModemSleep {
		return nil
	}
	if err := c.modem.Send(ctx, at.CmdSync); err != nil {
		return err
	}
	if err := c.clock.Sleep(ctx, c.cfg.WakeSettle); err != nil {
		return err
	}
	return c.modem.Send(ctx, at.CmdSleepOff)
}

// RadioOff puts the modem in flight mode for d, then restores the radio.
func (c *Controller) RadioOff(ctx context.Context, d time.Duration) error {
	c.log.WithField("duration", d).Info("radio off")
	if err := c.modem.Send(ctx, at.CmdFlightOn); err != nil {
		return err
	}
	if c.cfg.ModemSleep {
		if err := c.modem.Send(ctx, at.CmdSleepOn); err != nil {
			return err
		}
	}
	if err := c.clock.Sleep(ctx, d); err != nil {
		return err
	}
	if err := c.Wake(ctx); err != nil {
		return err
	}
	c.log.Info("radio on")
	return c.modem.Send(ctx, at.CmdFlightOff)
}
