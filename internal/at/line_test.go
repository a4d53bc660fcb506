package at_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warthog618/goatloc/internal/at"
)

func TestLineCapacity(t *testing.T) {
	l := at.NewLine(4)
	for _, b := range []byte("OKAY!") {
		l.Append(b)
	}
	assert.Equal(t, "OKAY", l.String())
	assert.True(t, l.Truncated())
	assert.Equal(t, 4, l.Cap())

	l.Reset()
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Truncated())
	assert.Equal(t, "", l.String())
}

func TestLineMatchStale(t *testing.T) {
	l := at.NewLine(40)
	for _, b := range []byte("+CPIN: READY") {
		l.Append(b)
	}
	assert.True(t, l.Match("READY"))
	l.Reset()
	for _, b := range []byte("OK") {
		l.Append(b)
	}
	// the old content is still in the buffer beyond the logical end
	assert.False(t, l.Match("READY"))
	assert.False(t, l.Match("+CPIN"))
	assert.True(t, l.Match("OK"))
	assert.False(t, l.Match(""))
}

func TestMatch(t *testing.T) {
	patterns := []struct {
		name  string
		line  string
		token string
		match bool
	}{
		{"exact", "OK", "OK", true},
		{"prefix", "+CREG: 0,1", "+CREG: 0,1", true},
		{"inner", "+CIPGSMLOC: 0,21.0122", "0,21", true},
		{"suffix", "+CPIN: SIM PIN", "SIM PIN", true},
		{"absent", "+CREG: 0,2", "+CREG: 0,1", false},
		{"longer token", "OK", "OKAY", false},
		{"empty token", "OK", "", false},
		{"empty line", "", "OK", false},
		{"case sensitive", "ok", "OK", false},
	}
	for _, p := range patterns {
		t.Run(p.name, func(t *testing.T) {
			assert.Equal(t, p.match, at.Match(p.line, p.token))
		})
	}
}

func TestMatchAny(t *testing.T) {
	tok, ok := at.MatchAny("+CME ERROR: 10", at.FailureTokens)
	assert.True(t, ok)
	assert.Equal(t, at.ERROR, tok)

	_, ok = at.MatchAny("OK", at.FailureTokens)
	assert.False(t, ok)
}
