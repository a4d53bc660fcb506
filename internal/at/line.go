package at

import (
	"bytes"
	"strings"
)

// DefaultLineCapacity is the capacity of a Line if none is specified.
const DefaultLineCapacity = 120

// Line is a fixed capacity buffer holding the most recently received line.
// Bytes written beyond the capacity are dropped and the line is flagged as
// truncated.
type Line struct {
	buf       []byte
	n         int
	truncated bool
}

// NewLine creates an empty Line with the given capacity.
func NewLine(capacity int) *Line {
	if capacity <= 0 {
		capacity = DefaultLineCapacity
	}
	return &Line{buf: make([]byte, capacity)}
}

// Append adds a byte to the line, returning false if the line is full.
func (l *Line) Append(b byte) bool {
	if l.n >= len(l.buf) {
		l.truncated = true
		return false
	}
	l.buf[l.n] = b
	l.n++
	return true
}

// Reset empties the line.
func (l *Line) Reset() {
	l.n = 0
	l.truncated = false
}

// Len returns the logical length of the line.
func (l *Line) Len() int {
	return l.n
}

// Cap returns the capacity of the line.
func (l *Line) Cap() int {
	return len(l.buf)
}

// Truncated indicates bytes were dropped since the last Reset.
func (l *Line) Truncated() bool {
	return l.truncated
}

// Bytes returns the logical content of the line.
// The slice is only valid until the next Append or Reset.
func (l *Line) Bytes() []byte {
	return l.buf[:l.n]
}

func (l *Line) String() string {
	return string(l.buf[:l.n])
}

// Match returns true if the token occurs in the logical content of the line.
// Bytes beyond the logical end, left over from longer lines, are never
// considered.
func (l *Line) Match(token string) bool {
	if token == "" {
		return false
	}
	return bytes.Contains(l.buf[:l.n], []byte(token))
}

// Match returns true if token is a contiguous substring of line.
// An empty token never matches.
func Match(line, token string) bool {
	if token == "" {
		return false
	}
	return strings.Contains(line, token)
}

// MatchAny returns the first of the tokens that occurs in line.
func MatchAny(line string, tokens []string) (string, bool) {
	for _, t := range tokens {
		if Match(line, t) {
			return t, true
		}
	}
	return "", false
}
