// Package modemtest provides a scripted modem for testing code that drives a
// modem over a byte transport.
package modemtest

import (
	"io"
	"strings"
	"sync"
)

// Responder returns the response lines for the nth (from zero) call of a
// command. A nil return leaves the command unanswered.
type Responder func(cmd string, n int) []string

type handler struct {
	prefix string
	fn     Responder
	calls  int
}

// Modem is an in-memory modem transport.
//
// Commands written to the Modem are matched against handlers registered by
// prefix, and the handler response lines are queued to be read back, each
// framed by CR LF as a real modem does. Unmatched commands are answered with
// OK. Reads block until data is available, like a serial port.
type Modem struct {
	mu       sync.Mutex
	rx       chan []byte
	leftover []byte
	cmd      []byte
	inSMS    bool
	handlers []*handler
	cmds     []string
	sms      []string
	closed   bool
	onWrite  func(cmd string)
}

// New creates a Modem.
func New() *Modem {
	return &Modem{rx: make(chan []byte, 4096)}
}

// Lines is a helper returning a Responder that always replies with the
// given lines.
func Lines(lines ...string) Responder {
	return func(string, int) []string {
		return lines
	}
}

// Sequence returns a Responder that replies with each of the responses in
// turn, repeating the last once exhausted.
func Sequence(responses ...[]string) Responder {
	return func(_ string, n int) []string {
		if len(responses) == 0 {
			return nil
		}
		if n >= len(responses) {
			n = len(responses) - 1
		}
		return responses[n]
	}
}

// Silent is a Responder that never replies.
func Silent(string, int) []string {
	return nil
}

// On registers a responder for commands starting with prefix.
// The longest matching prefix wins, and of equal prefixes the most recently
// registered wins, so a test can override a scripted default.
func (m *Modem) On(prefix string, r Responder) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, &handler{prefix: prefix, fn: r})
	return m
}

// OnWrite registers a hook called, without the lock held, for each complete
// command received. It can be used to inject unsolicited lines at a
// particular point in a conversation.
func (m *Modem) OnWrite(fn func(cmd string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWrite = fn
}

// Inject queues unsolicited lines to be read.
func (m *Modem) Inject(lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueLines(lines)
}

// InjectRaw queues raw bytes to be read.
func (m *Modem) InjectRaw(raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue(raw)
}

// Commands returns the commands received so far.
func (m *Modem) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := make([]string, len(m.cmds))
	copy(c, m.cmds)
	return c
}

// Count returns the number of commands received that start with prefix.
func (m *Modem) Count(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.cmds {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// SMS returns the SMS bodies received, without the terminating Ctrl-Z.
func (m *Modem) SMS() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := make([]string, len(m.sms))
	copy(s, m.sms)
	return s
}

// Write accepts commands from the host.
func (m *Modem) Write(p []byte) (int, error) {
	var completed []string
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	for _, b := range p {
		if m.inSMS {
			if b == 0x1a {
				m.inSMS = false
				m.sms = append(m.sms, string(m.cmd))
				m.cmd = m.cmd[:0]
				m.respond("\x1a")
				completed = append(completed, "\x1a")
				continue
			}
			m.cmd = append(m.cmd, b)
			continue
		}
		if b == '\r' || b == '\n' {
			if len(m.cmd) > 0 {
				cmd := string(m.cmd)
				m.cmd = m.cmd[:0]
				m.cmds = append(m.cmds, cmd)
				m.respond(cmd)
				completed = append(completed, cmd)
			}
			continue
		}
		m.cmd = append(m.cmd, b)
	}
	hook := m.onWrite
	m.mu.Unlock()
	if hook != nil {
		for _, c := range completed {
			hook(c)
		}
	}
	return len(p), nil
}

// respond must be called with the lock held.
func (m *Modem) respond(cmd string) {
	if strings.HasPrefix(cmd, "AT+CMGS=") {
		m.inSMS = true
		m.queue("\r\n> ")
		return
	}
	var h *handler
	for _, c := range m.handlers {
		if strings.HasPrefix(cmd, c.prefix) && (h == nil || len(c.prefix) >= len(h.prefix)) {
			h = c
		}
	}
	if h == nil {
		if cmd == "\x1a" {
			m.queueLines([]string{"+CMGS: 1", "OK"})
			return
		}
		m.queueLines([]string{"OK"})
		return
	}
	lines := h.fn(cmd, h.calls)
	h.calls++
	m.queueLines(lines)
}

func (m *Modem) queueLines(lines []string) {
	for _, l := range lines {
		m.queue("\r\n" + l + "\r\n")
	}
}

func (m *Modem) queue(raw string) {
	if m.closed || raw == "" {
		return
	}
	m.rx <- []byte(raw)
}

// Read returns data queued for the host, blocking until some is available.
func (m *Modem) Read(p []byte) (int, error) {
	if len(m.leftover) == 0 {
		data, ok := <-m.rx
		if !ok {
			return 0, io.EOF
		}
		m.leftover = data
	}
	n := copy(p, m.leftover)
	m.leftover = m.leftover[n:]
	return n, nil
}

// Close closes the modem, causing blocked and subsequent reads to return EOF.
func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.rx)
	return nil
}
