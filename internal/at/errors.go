package at

import (
	"errors"
	"strings"

	modemat "github.com/warthog618/modem/at"
)

var (
	// ErrClosed indicates the transport to the modem has been closed.
	ErrClosed = modemat.ErrClosed

	// ErrError indicates the modem returned a generic ERROR.
	ErrError = modemat.ErrError

	// ErrTimeout indicates no complete line arrived within the allowed time.
	// This is the transport stall case - the caller is expected to retry with
	// backoff rather than hang.
	ErrTimeout = errors.New("timeout waiting for modem")

	// ErrFailed indicates a command matched a caller supplied failure token
	// that is not one of the standard modem error codes.
	ErrFailed = errors.New("command failed")
)

// CMEError is a +CME ERROR returned by the modem.
type CMEError = modemat.CMEError

// CMSError is a +CMS ERROR returned by the modem.
type CMSError = modemat.CMSError

// CommandError records a command that completed with a failure response.
type CommandError struct {
	Cmd  string
	Line string
	Err  error
}

func (e *CommandError) Error() string {
	return e.Cmd + ": " + e.Err.Error()
}

// Unwrap returns the underlying modem error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

func newCommandError(cmd, line string) error {
	var err error
	switch {
	case strings.HasPrefix(line, CmeError):
		err = CMEError(strings.TrimSpace(line[len(CmeError):]))
	case strings.HasPrefix(line, CmsError):
		err = CMSError(strings.TrimSpace(line[len(CmsError):]))
	case strings.HasPrefix(line, ERROR):
		err = ErrError
	default:
		err = ErrFailed
	}
	return &CommandError{Cmd: cmd, Line: line, Err: err}
}
