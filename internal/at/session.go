package at

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Session issues commands to the modem and classifies the responses.
//
// The protocol is half duplex, so a Session must only be used from one
// goroutine. Unsolicited lines that arrive while a command is awaiting its
// response are queued and returned by subsequent calls to ReadLine.
type Session struct {
	w           io.Writer
	r           *Reader
	log         logrus.FieldLogger
	cmdTimeout  time.Duration
	sendTimeout time.Duration
	urcPrefixes []string
	urcs        []string
	readerOpts  []ReaderOption
}

// SessionOption modifies the construction of a Session.
type SessionOption func(*Session)

// WithLogger sets the logger used to record the modem exchange.
func WithLogger(log logrus.FieldLogger) SessionOption {
	return func(s *Session) {
		s.log = log
	}
}

// WithCommandTimeout bounds Command calls that have no context deadline.
// Zero leaves commands unbounded.
func WithCommandTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.cmdTimeout = d
	}
}

// WithSendTimeout sets how long Send waits for the final result code
// before moving on.
func WithSendTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.sendTimeout = d
	}
}

// WithURCs replaces the set of unsolicited line prefixes that are queued.
func WithURCs(prefixes ...string) SessionOption {
	return func(s *Session) {
		s.urcPrefixes = prefixes
	}
}

// WithReaderOptions passes options through to the underlying Reader.
func WithReaderOptions(options ...ReaderOption) SessionOption {
	return func(s *Session) {
		s.readerOpts = append(s.readerOpts, options...)
	}
}

// NewSession creates a Session over the modem transport.
func NewSession(modem io.ReadWriter, options ...SessionOption) *Session {
	s := &Session{
		w:           modem,
		log:         logrus.StandardLogger(),
		sendTimeout: 2 * time.Second,
		urcPrefixes: DefaultURCs,
	}
	for _, option := range options {
		option(s)
	}
	s.r = NewReader(modem, s.readerOpts...)
	return s
}

// Close stops the session reader.
func (s *Session) Close() {
	s.r.Close()
}

// Line returns the buffer holding the most recently read line.
func (s *Session) Line() *Line {
	return s.r.Line()
}

// Write sends raw text to the modem.
func (s *Session) Write(raw string) error {
	s.log.WithField("tx", raw).Debug("write")
	if _, err := io.WriteString(s.w, raw); err != nil {
		return fmt.Errorf("write %q: %w", raw, err)
	}
	return nil
}

// ReadLine returns the next line from the modem, starting with any queued
// unsolicited lines.
func (s *Session) ReadLine(ctx context.Context) (string, error) {
	if len(s.urcs) > 0 {
		line := s.urcs[0]
		s.urcs = s.urcs[1:]
		return line, nil
	}
	line, err := s.r.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	s.log.WithField("rx", line).Debug("read")
	return line, nil
}

// Pending returns true if a line, or part of one, is waiting to be read.
func (s *Session) Pending() bool {
	return len(s.urcs) > 0 || s.r.Pending()
}

// WaitPending blocks until input is waiting to be read.
func (s *Session) WaitPending(ctx context.Context) error {
	if len(s.urcs) > 0 {
		return nil
	}
	return s.r.WaitPending(ctx)
}

// Discard removes queued unsolicited lines matching any of the prefixes.
func (s *Session) Discard(prefixes ...string) {
	kept := s.urcs[:0]
	for _, l := range s.urcs {
		if !hasAnyPrefix(l, prefixes) {
			kept = append(kept, l)
		}
	}
	s.urcs = kept
}

// Command sends cmd and reads lines until one contains a success token,
// which is returned, or a failure token, which is returned along with a
// *CommandError.
//
// Lines matching neither are discarded, except unsolicited lines which are
// queued.
func (s *Session) Command(ctx context.Context, cmd string, success, failure []string) (string, error) {
	if _, ok := ctx.Deadline(); !ok && s.cmdTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cmdTimeout)
		defer cancel()
	}
	if err := s.Write(cmd + Terminator); err != nil {
		return "", err
	}
	return s.await(ctx, cmd, success, failure)
}

// Query sends cmd and reads lines until the final result code, returning
// the last information line starting with prefix. An empty string is
// returned if the command completed without one.
// A failure result code returns a *CommandError.
func (s *Session) Query(ctx context.Context, cmd, prefix string) (string, error) {
	if _, ok := ctx.Deadline(); !ok && s.cmdTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cmdTimeout)
		defer cancel()
	}
	if err := s.Write(cmd + Terminator); err != nil {
		return "", err
	}
	return s.collect(ctx, cmd, prefix)
}

// Await is Query without sending a command first. It collects the result of
// a command completed with Write, such as an SMS body.
func (s *Session) Await(ctx context.Context, what, prefix string) (string, error) {
	if _, ok := ctx.Deadline(); !ok && s.cmdTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cmdTimeout)
		defer cancel()
	}
	return s.collect(ctx, what, prefix)
}

func (s *Session) collect(ctx context.Context, cmd, prefix string) (string, error) {
	info := ""
	for {
		line, err := s.r.ReadLine(ctx)
		if err != nil {
			return info, fmt.Errorf("%s: %w", cmd, err)
		}
		log := s.log.WithFields(logrus.Fields{"cmd": cmd, "rx": line})
		switch {
		case prefix != "" && strings.HasPrefix(line, prefix):
			log.Debug("info")
			info = line
		case strings.TrimSpace(line) == OK:
			return info, nil
		case hasAnyPrefix(line, FailureTokens):
			log.Debug("failure")
			return info, newCommandError(cmd, line)
		case hasAnyPrefix(line, s.urcPrefixes):
			log.Debug("queued unsolicited")
			s.urcs = append(s.urcs, line)
		default:
			log.Debug("discard")
		}
	}
}

func (s *Session) await(ctx context.Context, cmd string, success, failure []string) (string, error) {
	for {
		line, err := s.r.ReadLine(ctx)
		if err != nil {
			return "", fmt.Errorf("%s: %w", cmd, err)
		}
		log := s.log.WithFields(logrus.Fields{"cmd": cmd, "rx": line})
		if _, ok := MatchAny(line, success); ok {
			log.Debug("success")
			return line, nil
		}
		if _, ok := MatchAny(line, failure); ok {
			log.Debug("failure")
			return line, newCommandError(cmd, line)
		}
		if hasAnyPrefix(line, s.urcPrefixes) {
			log.Debug("queued unsolicited")
			s.urcs = append(s.urcs, line)
			continue
		}
		log.Debug("discard")
	}
}

// Send issues a command without verifying the response.
// It waits briefly for the final result code, so that the result is not
// mistaken for the response to a later command, but ignores the outcome.
// Only a closed transport or a done parent context is reported.
func (s *Session) Send(ctx context.Context, cmd string) error {
	sctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	if err := s.Write(cmd + Terminator); err != nil {
		return err
	}
	_, err := s.await(sctx, cmd, []string{OK}, FailureTokens)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrClosed):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		s.log.WithField("cmd", cmd).WithError(err).Debug("send ignored")
		return nil
	}
}

func hasAnyPrefix(line string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
