package tracker_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/warthog618/goatloc/internal/at"
	"github.com/warthog618/goatloc/internal/clock"
	"github.com/warthog618/goatloc/internal/modemtest"
	"github.com/warthog618/goatloc/internal/tracker"
)

type fakePower struct {
	calls    []string
	radioOff []time.Duration
}

func (p *fakePower) Sleep(ctx context.Context) error {
	p.calls = append(p.calls, "sleep")
	return ctx.Err()
}

func (p *fakePower) Wake(ctx context.Context) error {
	p.calls = append(p.calls, "wake")
	return ctx.Err()
}

func (p *fakePower) RadioOff(ctx context.Context, d time.Duration) error {
	p.calls = append(p.calls, "radio-off")
	p.radioOff = append(p.radioOff, d)
	return ctx.Err()
}

type harness struct {
	m   *modemtest.Modem
	s   *at.Session
	clk *clock.Fake
	pwr *fakePower
	tr  *tracker.Tracker
}

func testConfig() tracker.Config {
	cfg := tracker.DefaultConfig()
	cfg.CountryPrefix = "+48"
	return cfg
}

func newHarness(t *testing.T, cfg tracker.Config, options ...at.SessionOption) *harness {
	t.Helper()
	log, _ := test.NewNullLogger()
	m := modemtest.New()
	options = append([]at.SessionOption{
		at.WithLogger(log),
		at.WithCommandTimeout(500 * time.Millisecond),
		at.WithSendTimeout(200 * time.Millisecond),
	}, options...)
	s := at.NewSession(m, options...)
	t.Cleanup(func() {
		s.Close()
		m.Close()
	})
	h := &harness{
		m:   m,
		s:   s,
		clk: clock.NewFake(time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)),
		pwr: &fakePower{},
	}
	h.tr = tracker.New(s, h.pwr, cfg,
		tracker.WithLogger(log),
		tracker.WithClock(h.clk))
	return h
}

// ready scripts a modem with an unlocked SIM registered on the home network.
func (h *harness) ready() *harness {
	h.m.On("AT+CPIN?", modemtest.Lines("+CPIN: READY", "OK"))
	h.m.On("AT+CREG?", modemtest.Lines("+CREG: 1,1", "OK"))
	return h
}

// located scripts a modem with a working bearer and location service.
func (h *harness) located() *harness {
	h.m.On("AT+SAPBR=2,1", modemtest.Lines(bearerUp...))
	h.m.On("AT+CIPGSMLOC", modemtest.Lines(sampleLocation, "OK"))
	h.m.On("AT+CBC", modemtest.Lines("+CBC: 0,75,3800", "OK"))
	return h
}

const (
	sampleLocation = "+CIPGSMLOC: 0,21.0122,52.2297,23/06/01,10:00:00"
	sampleClip     = `+CLIP: "600100200",129,"",0,"",0`
	sampleSMS      = "23/06/01,10:00:00 UTC\nLONG=21.0122 LATT=52.2297\nBATTERY[mV]=3800\n http://maps.google.com/maps?q=52.2297,21.0122\r\n"
)

var (
	bearerUp   = []string{`+SAPBR: 1,1,"10.12.0.1"`, "OK"}
	bearerDown = []string{`+SAPBR: 1,3,"0.0.0.0"`, "OK"}
)

func count(cmds []string, cmd string) int {
	n := 0
	for _, c := range cmds {
		if c == cmd {
			n++
		}
	}
	return n
}

// onNth calls fn when cmd is written for the nth time, counting from 1.
func onNth(m *modemtest.Modem, cmd string, n int, fn func()) {
	seen := 0
	m.OnWrite(func(c string) {
		if c != cmd {
			return
		}
		seen++
		if seen == n {
			fn()
		}
	})
}
