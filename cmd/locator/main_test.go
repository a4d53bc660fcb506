package main

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/warthog618/goatloc"
	"github.com/warthog618/goatloc/internal/at"
	"github.com/warthog618/goatloc/internal/modemtest"
	"github.com/warthog618/goatloc/internal/wake"
)

func TestWakeSource(t *testing.T) {
	log, _ := test.NewNullLogger()
	m := modemtest.New()
	defer m.Close()
	s := at.NewSession(m)
	defer s.Close()

	cfg := goatloc.DefaultConfig()
	cfg.Tracker.WakeWired = true
	cfg.Wake.Edge = wake.EdgeLevel
	src := wakeSource(cfg, s, log)
	g, ok := src.(*wake.GPIO)
	if assert.True(t, ok) {
		assert.Equal(t, wake.EdgeLevel, g.Edge())
	}

	cfg.Tracker.WakeWired = false
	cfg.Wake.Poll = time.Minute
	src = wakeSource(cfg, s, log)
	_, ok = src.(*wake.Poll)
	assert.True(t, ok)
	assert.True(t, wake.IsPeriodic(src))

	cfg.Wake.Poll = 0
	src = wakeSource(cfg, s, log)
	_, ok = src.(*wake.Input)
	assert.True(t, ok)
}
