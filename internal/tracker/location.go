package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/warthog618/goatloc/internal/at"
)

// ReportLocation opens the bearer, looks up the cell location and battery
// voltage, and sends them by SMS to the number in the current report.
// The bearer is always closed before returning.
func (t *Tracker) ReportLocation(ctx context.Context) error {
	if t.report.PhoneNumber.Empty() {
		return fmt.Errorf("%w: no number to reply to", ErrNoCallerID)
	}
	log := t.log.WithField("cycle", t.report.ID)
	defer t.closeBearer(ctx)

	t.setState(OpeningBearer)
	if err := t.openBearer(ctx); err != nil {
		return err
	}
	t.setState(ReportingLocation)
	if t.cfg.BatteryCheck {
		if err := t.battery(ctx); err != nil {
			if fatal(err) {
				return err
			}
			log.WithError(err).Warn("battery unavailable")
		}
	}
	if err := t.location(ctx); err != nil {
		if fatal(err) {
			return err
		}
		log.WithError(err).WithField("cooldown", t.cfg.LocationCooldown).Warn("location unavailable")
		if serr := t.clock.Sleep(ctx, t.cfg.LocationCooldown); serr != nil {
			return serr
		}
		return err
	}
	if err := t.sendSMS(ctx); err != nil {
		return err
	}
	t.status.reportSent(t.report, t.clock.Now())
	log.WithFields(logrus.Fields{
		"number":    t.report.PhoneNumber.String(),
		"longitude": t.report.Longitude.String(),
		"latitude":  t.report.Latitude.String(),
	}).Info("location sent")
	return nil
}

// openBearer opens the bearer, retrying up to BearerAttempts times.
func (t *Tracker) openBearer(ctx context.Context) error {
	t.status.setBearer(BearerOpening)
	for attempt := 1; attempt <= t.cfg.BearerAttempts; attempt++ {
		if err := t.clock.Sleep(ctx, t.cfg.BearerCloseDelay); err != nil {
			return err
		}
		if err := t.s.Send(ctx, at.CmdBearerClose); err != nil {
			return err
		}
		if err := t.clock.Sleep(ctx, t.cfg.BearerOpenDelay); err != nil {
			return err
		}
		if err := t.s.Send(ctx, at.CmdBearerOpen); err != nil {
			return err
		}
		if err := t.clock.Sleep(ctx, t.cfg.BearerSettle); err != nil {
			return err
		}
		line, err := t.s.Query(ctx, at.CmdBearerQuery, "+SAPBR")
		if err != nil {
			if err := t.retryable(err, at.CmdBearerQuery); err != nil {
				return err
			}
		} else if at.Match(line, at.BearerUp) {
			t.status.setBearer(BearerOpen)
			t.log.WithField("attempt", attempt).Debug("bearer open")
			return nil
		}
		t.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"rx":      line,
		}).Info("bearer not open")
	}
	t.status.setBearer(BearerFailed)
	return fmt.Errorf("%w after %d attempts", ErrBearerFailed, t.cfg.BearerAttempts)
}

// closeBearer closes the bearer, ignoring the result.
func (t *Tracker) closeBearer(ctx context.Context) {
	if err := t.s.Send(ctx, at.CmdBearerClose); err != nil {
		t.log.WithError(err).Debug("bearer close")
	}
	t.status.setBearer(BearerClosed)
}

func (t *Tracker) battery(ctx context.Context) error {
	t.report.Battery.Reset()
	line, err := t.s.Query(ctx, at.CmdBattery, "+CBC")
	if err != nil {
		return err
	}
	return ParseBattery(line, t.report.Battery)
}

func (t *Tracker) location(ctx context.Context) error {
	line, err := t.s.Query(ctx, at.CmdCellLocation, "+CIPGSMLOC")
	if err != nil {
		if fatal(err) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformedLocation, err)
	}
	return ParseLocation(line, t.cfg.LocationScanWindow, t.report)
}

// sendSMS sends the report to the caller in text mode.
// The body follows the header after a fixed delay rather than waiting for
// the prompt.
func (t *Tracker) sendSMS(ctx context.Context) error {
	if err := t.s.Send(ctx, at.CmdTextMode); err != nil {
		return err
	}
	if err := t.s.Write(SMSHeader(t.report.PhoneNumber.String()) + "\r"); err != nil {
		return err
	}
	if err := t.clock.Sleep(ctx, t.cfg.PromptDelay); err != nil {
		return err
	}
	if err := t.s.Write(ComposeSMS(t.report) + at.CtrlZ); err != nil {
		return err
	}
	line, err := t.s.Await(ctx, "sms", at.SMSSent)
	if err != nil {
		if fatal(err) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrSMSFailed, err)
	}
	if strings.TrimSpace(line) == "" {
		return ErrSMSFailed
	}
	return nil
}
