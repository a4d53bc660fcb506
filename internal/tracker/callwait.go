package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/warthog618/goatloc/internal/at"
)

// WaitForCall sleeps until the modem reports an incoming call, hangs up and
// returns the caller's number, which is also recorded in the current report.
//
// Any other wakeup, such as loss of coverage or a modem restart, triggers a
// recheck of the SIM, registration and bearer settings before sleeping
// again. Calls with a withheld number are rejected without a reply.
func (t *Tracker) WaitForCall(ctx context.Context) (string, error) {
	for {
		if err := t.prepare(ctx); err != nil {
			return "", err
		}
		t.setState(AwaitingTrigger)
		if err := t.pwr.Sleep(ctx); err != nil {
			return "", err
		}
		tctx, cancel := t.timeout(ctx, t.cfg.TriggerTimeout)
		line, err := t.s.ReadLine(tctx)
		cancel()
		if err != nil {
			if fatal(err) {
				return "", err
			}
			t.log.WithError(err).Debug("woken without input")
			continue
		}
		log := t.log.WithField("rx", line)
		switch {
		case at.Match(line, at.Ring), strings.HasPrefix(line, at.Clip):
			log.Info("incoming call")
			number, err := t.answer(ctx, line)
			if err == nil {
				return number, nil
			}
			if fatal(err) {
				return "", err
			}
			log.WithError(err).Warn("call rejected")
		default:
			log.Info("recheck")
			if err := t.pwr.Wake(ctx); err != nil {
				return "", err
			}
			if err := t.recheck(ctx); err != nil {
				return "", err
			}
		}
	}
}

// prepare clears the SMS store before sleeping.
func (t *Tracker) prepare(ctx context.Context) error {
	t.setState(Idle)
	cmds := []string{at.CmdTextMode, at.CmdDeleteAllSMS}
	if t.cfg.DisableLED {
		cmds = append(cmds, at.CmdLEDOff)
	}
	for _, cmd := range cmds {
		if err := t.s.Send(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// answer collects the caller id that follows the trigger, then wakes the
// modem and hangs up.
func (t *Tracker) answer(ctx context.Context, trigger string) (string, error) {
	cerr := t.callerID(ctx, trigger)
	if err := t.pwr.Wake(ctx); err != nil {
		return "", err
	}
	if err := t.s.Send(ctx, at.CmdHangup); err != nil {
		return "", err
	}
	// the ring repeats until the hangup
	t.s.Discard(at.Ring, at.Clip, at.NoCarrier)
	if cerr != nil {
		return "", cerr
	}
	number := NormalizeNumber(t.report.PhoneNumber.String(), t.cfg.CountryPrefix)
	t.report.PhoneNumber.Set(number)
	if t.report.PhoneNumber.Truncated() {
		return "", ErrNoCallerID
	}
	t.log.WithField("number", number).Info("caller")
	return number, nil
}

// callerID parses the number from the +CLIP line, reading up to it if the
// trigger was the RING.
func (t *Tracker) callerID(ctx context.Context, line string) error {
	cctx, cancel := t.timeout(ctx, t.cfg.ClipTimeout)
	defer cancel()
	for !strings.HasPrefix(line, at.Clip) {
		var err error
		line, err = t.s.ReadLine(cctx)
		if err != nil {
			return err
		}
	}
	return ParsePhoneNumber(line, t.report.PhoneNumber)
}

// timeout returns ctx bounded by d, if d is non-zero.
func (t *Tracker) timeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
