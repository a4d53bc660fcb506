package tracker_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/goatloc/internal/at"
	"github.com/warthog618/goatloc/internal/modemtest"
	"github.com/warthog618/goatloc/internal/tracker"
)

func TestRun(t *testing.T) {
	h := newHarness(t, testConfig()).ready().located()
	h.m.Inject("RING", sampleClip)
	// the modem goes away once the report is sent
	h.m.OnWrite(func(cmd string) {
		if cmd == at.CtrlZ {
			h.m.Close()
		}
	})
	err := h.tr.Run(context.Background())
	require.NotNil(t, err)

	assert.Equal(t, []string{sampleSMS}, h.m.SMS())
	assert.Equal(t, `AT+CMGS="+48600100200"`, h.m.Commands()[len(h.m.Commands())-1])
	snap := h.tr.Status().Snapshot()
	assert.Equal(t, 1, snap.Reports)
	assert.Equal(t, "+48600100200", snap.LastReport.Number)
	assert.Equal(t, 1, h.clk.Count(testConfig().ReportCooldown))
}

func TestRunAbandonedReport(t *testing.T) {
	h := newHarness(t, testConfig()).ready().located()
	h.m.On("AT+SAPBR=2,1", modemtest.Lines(bearerDown...))
	h.m.Inject("RING", sampleClip)
	// close the modem when the cycle is over
	closeAfter := 0
	h.m.OnWrite(func(cmd string) {
		if cmd == "AT+SAPBR=0,1" {
			closeAfter++
			// bring-up, three attempts, then the final close
			if closeAfter == 5 {
				h.m.Close()
			}
		}
	})
	err := h.tr.Run(context.Background())
	require.NotNil(t, err)
	snap := h.tr.Status().Snapshot()
	assert.Equal(t, 0, snap.Reports)
	assert.Equal(t, 1, snap.Failures)
	assert.Contains(t, snap.LastError, tracker.ErrBearerFailed.Error())
	assert.Empty(t, h.m.SMS())
}

func TestRunBringupFails(t *testing.T) {
	h := newHarness(t, testConfig()).ready()
	h.m.On("AT+CPIN?", modemtest.Lines("+CPIN: SIM PIN", "OK"))
	err := h.tr.Run(context.Background())
	assert.Equal(t, tracker.ErrSIMPinRequired, err)
}

func TestStatusShared(t *testing.T) {
	st := tracker.NewStatus()
	snap := st.Snapshot()
	assert.Equal(t, "booting", snap.State)
	assert.Equal(t, "unknown", snap.Registration)
	assert.Equal(t, "closed", snap.Bearer)

	h := newHarness(t, testConfig()).ready()
	tr := tracker.New(h.s, h.pwr, testConfig(), tracker.WithStatus(st), tracker.WithClock(h.clk))
	require.Nil(t, tr.Bringup(context.Background()))
	assert.Same(t, st, tr.Status())
	snap = st.Snapshot()
	assert.Equal(t, "idle", snap.State)
	assert.Equal(t, h.clk.Now(), snap.Changed)

	b, err := json.Marshal(snap)
	require.Nil(t, err)
	assert.Contains(t, string(b), `"state":"idle"`)
	assert.NotContains(t, string(b), "last_report")
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "reporting-location", tracker.ReportingLocation.String())
	assert.Equal(t, "SessionState(42)", tracker.SessionState(42).String())
	assert.Equal(t, "failed", tracker.BearerFailed.String())
	assert.Equal(t, "roaming", tracker.Roaming.String())
}
