package tracker

import (
	"context"
	"errors"

	"github.com/warthog618/goatloc/internal/at"
)

var (
	// ErrSyncTimeout indicates the modem did not answer AT within the
	// configured sync timeout.
	ErrSyncTimeout = errors.New("modem did not respond to sync")

	// ErrSIMPinRequired indicates the SIM is locked and no PIN is configured.
	ErrSIMPinRequired = errors.New("SIM PIN required but not configured")

	// ErrSIMNotReady indicates the SIM did not become ready within the
	// configured PIN timeout.
	ErrSIMNotReady = errors.New("SIM not ready")

	// ErrNotRegistered indicates registration was not achieved within the
	// registration cap.
	ErrNotRegistered = errors.New("not registered to network")

	// ErrBearerFailed indicates the bearer could not be opened.
	ErrBearerFailed = errors.New("bearer open failed")

	// ErrMalformedLocation indicates the location response could not be
	// parsed.
	ErrMalformedLocation = errors.New("malformed location response")

	// ErrNoCallerID indicates the caller number was withheld or unparseable.
	ErrNoCallerID = errors.New("caller id unavailable")

	// ErrMalformedBattery indicates the battery response could not be parsed.
	ErrMalformedBattery = errors.New("malformed battery response")

	// ErrSMSFailed indicates the modem did not confirm the SMS was sent.
	ErrSMSFailed = errors.New("sms not sent")
)

// fatal returns true for errors that end the session: the transport is gone
// or the caller has given up.
func fatal(err error) bool {
	return errors.Is(err, at.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
