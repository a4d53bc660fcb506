package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
	"github.com/warthog618/goatloc/internal/at"
)

// Bringup synchronises with the modem, unlocks the SIM, waits for network
// registration and provisions the bearer.
func (t *Tracker) Bringup(ctx context.Context) error {
	t.setState(Syncing)
	if err := t.sync(ctx); err != nil {
		return err
	}
	if err := t.s.Send(ctx, at.CmdEchoOff); err != nil {
		return err
	}
	if err := t.configure(ctx); err != nil {
		return err
	}
	if err := t.recheck(ctx); err != nil {
		return err
	}
	t.setState(Idle)
	t.log.Info("modem ready")
	return nil
}

// sync sends AT until the modem answers OK.
func (t *Tracker) sync(ctx context.Context) error {
	sctx := ctx
	if t.cfg.SyncTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, t.cfg.SyncTimeout)
		defer cancel()
	}
	for attempt := 1; ; attempt++ {
		_, err := t.s.Command(sctx, at.CmdSync, []string{at.OK}, at.FailureTokens)
		if err == nil {
			t.log.WithField("attempts", attempt).Debug("modem in sync")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if sctx.Err() != nil {
			return ErrSyncTimeout
		}
		if err := t.retryable(err, at.CmdSync); err != nil {
			return err
		}
		if err := t.clock.Sleep(sctx, t.cfg.SyncInterval); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrSyncTimeout
		}
	}
}

// configure applies the one-shot modem settings, none of which are
// verified.
func (t *Tracker) configure(ctx context.Context) error {
	var cmds []string
	if t.cfg.FixBaud && t.cfg.BaudRate > 0 {
		cmds = append(cmds, fmt.Sprintf(at.CmdFixBaud, t.cfg.BaudRate))
	}
	cmds = append(cmds, fmt.Sprintf(at.CmdRegReport, t.cfg.RegistrationURC))
	if t.cfg.WakeWired {
		cmds = append(cmds, at.CmdRingOnURC)
	}
	if t.cfg.DisableLED {
		cmds = append(cmds, at.CmdLEDOff)
	}
	if t.cfg.SaveConfig {
		cmds = append(cmds, at.CmdSaveConfig)
	}
	for _, cmd := range cmds {
		if err := t.s.Send(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// recheck confirms the SIM and network are still available and restores
// the settings that are lost if the modem has restarted.
func (t *Tracker) recheck(ctx context.Context) error {
	if err := t.checkPIN(ctx); err != nil {
		return err
	}
	if err := t.register(ctx); err != nil {
		return err
	}
	if err := t.provision(ctx); err != nil {
		return err
	}
	if err := t.s.Send(ctx, at.CmdCallerID); err != nil {
		return err
	}
	t.status.setBearer(BearerClosed)
	return t.s.Send(ctx, at.CmdBearerClose)
}

// checkPIN polls the SIM status until it is ready, entering the PIN if the
// SIM asks for it.
func (t *Tracker) checkPIN(ctx context.Context) error {
	t.setState(PinCheck)
	pctx := ctx
	if t.cfg.PinTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, t.cfg.PinTimeout)
		defer cancel()
	}
	entered := false
	for {
		if err := t.clock.Sleep(pctx, t.cfg.PinInterval); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrSIMNotReady
		}
		line, err := t.s.Query(pctx, at.CmdPinStatus, "+CPIN")
		if err != nil {
			if ctx.Err() == nil && pctx.Err() != nil {
				return ErrSIMNotReady
			}
			if err := t.retryable(err, at.CmdPinStatus); err != nil {
				return err
			}
			continue
		}
		switch {
		case at.Match(line, at.PinReady):
			t.log.Debug("SIM ready")
			return nil
		case at.Match(line, at.PinRequired):
			if t.cfg.PIN == "" {
				return ErrSIMPinRequired
			}
			if entered {
				t.log.Warn("SIM still locked after PIN entry")
			}
			t.log.Info("entering SIM PIN")
			if err := t.s.Send(pctx, fmt.Sprintf(at.CmdEnterPin, t.cfg.PIN)); err != nil {
				if ctx.Err() == nil && pctx.Err() != nil {
					return ErrSIMNotReady
				}
				return err
			}
			entered = true
		default:
			t.log.WithField("rx", line).Debug("SIM not ready")
		}
	}
}

// registration polls the network registration status.
func (t *Tracker) registration(ctx context.Context) (RegistrationState, error) {
	line, err := t.s.Query(ctx, at.CmdRegStatus, "+CREG")
	if err != nil {
		return RegistrationUnknown, t.retryable(err, at.CmdRegStatus)
	}
	if strings.TrimSpace(line) == "" {
		return RegistrationUnknown, nil
	}
	state, err := ParseRegistration(line)
	if err != nil {
		t.log.WithError(err).Debug("registration")
	}
	return state, nil
}

// register polls until the modem is registered.
//
// Failed polls back off exponentially. After RadioOffAfter consecutive
// failures the radio is turned off for the cooldown period, once, before
// polling resumes. The whole phase is bounded by RegistrationCap.
func (t *Tracker) register(ctx context.Context) error {
	t.setState(Registering)
	b := &backoff.Backoff{
		Min:    t.cfg.BackoffMin,
		Max:    t.cfg.BackoffMax,
		Factor: t.cfg.BackoffFactor,
	}
	start := t.clock.Now()
	failures := 0
	for {
		if err := t.clock.Sleep(ctx, t.cfg.RegInterval); err != nil {
			return err
		}
		state, err := t.registration(ctx)
		if err != nil {
			return err
		}
		t.status.setRegistration(state)
		if state.Registered() {
			t.log.WithField("registration", state).Info("registered")
			return nil
		}
		failures++
		log := t.log.WithFields(logrus.Fields{
			"registration": state,
			"failures":     failures,
		})
		if t.cfg.RegistrationCap > 0 && t.clock.Now().Sub(start) >= t.cfg.RegistrationCap {
			log.Error("registration abandoned")
			return ErrNotRegistered
		}
		if t.cfg.RadioOffAfter > 0 && failures >= t.cfg.RadioOffAfter {
			log.WithField("cooldown", t.cfg.Cooldown).Warn("no coverage, radio off")
			if err := t.pwr.RadioOff(ctx, t.cfg.Cooldown); err != nil {
				return err
			}
			if err := t.clock.Sleep(ctx, t.cfg.SearchSettle); err != nil {
				return err
			}
			failures = 0
			b.Reset()
			continue
		}
		if t.cfg.FlightCycle {
			if err := t.cycleRadio(ctx); err != nil {
				return err
			}
		}
		d := b.Duration()
		log.WithField("retry", d).Info("not registered")
		if err := t.clock.Sleep(ctx, d); err != nil {
			return err
		}
	}
}

// cycleRadio toggles flight mode to force a network search.
func (t *Tracker) cycleRadio(ctx context.Context) error {
	if err := t.s.Send(ctx, at.CmdFlightOn); err != nil {
		return err
	}
	if err := t.clock.Sleep(ctx, t.cfg.FlightDwell); err != nil {
		return err
	}
	return t.s.Send(ctx, at.CmdFlightOff)
}

// provision sets the bearer parameters. The responses are not checked, as
// failures are detected when the bearer is opened.
func (t *Tracker) provision(ctx context.Context) error {
	t.setState(Provisioning)
	params := [][2]string{
		{"CONTYPE", "GPRS"},
		{"APN", t.cfg.APN},
		{"USER", t.cfg.User},
		{"PWD", t.cfg.Password},
	}
	for _, p := range params {
		if p[1] == "" {
			continue
		}
		if err := t.clock.Sleep(ctx, t.cfg.ProvisionSpacing); err != nil {
			return err
		}
		if err := t.s.Send(ctx, fmt.Sprintf(at.CmdBearerParam, p[0], p[1])); err != nil {
			return err
		}
	}
	return nil
}
