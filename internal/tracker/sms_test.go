package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warthog618/goatloc/internal/tracker"
)

func sampleReport() *tracker.Report {
	r := tracker.NewReport()
	r.Reset()
	r.PhoneNumber.Set("600100200")
	r.Longitude.Set("21.0122")
	r.Latitude.Set("52.2297")
	r.Timestamp.Set("23/06/01,10:00:00")
	r.Battery.Set("3800")
	return r
}

func TestComposeSMS(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, sampleSMS, tracker.ComposeSMS(r))
	assert.Equal(t, []byte(sampleSMS), []byte(tracker.ComposeSMS(r)))
}

func TestComposeSMSWithoutBattery(t *testing.T) {
	r := sampleReport()
	r.Battery.Reset()
	assert.Equal(t,
		"23/06/01,10:00:00 UTC\nLONG=21.0122 LATT=52.2297\n http://maps.google.com/maps?q=52.2297,21.0122\r\n",
		tracker.ComposeSMS(r))
}

func TestSMSHeader(t *testing.T) {
	assert.Equal(t, `AT+CMGS="600100200"`, tracker.SMSHeader("600100200"))
}

func TestReportReset(t *testing.T) {
	r := sampleReport()
	id := r.ID
	r.Reset()
	assert.NotEqual(t, id, r.ID)
	assert.True(t, r.PhoneNumber.Empty())
	assert.True(t, r.Longitude.Empty())
	assert.True(t, r.Latitude.Empty())
	assert.True(t, r.Timestamp.Empty())
	assert.True(t, r.Battery.Empty())
}

func TestField(t *testing.T) {
	f := tracker.NewField(5)
	assert.True(t, f.Set("12345"))
	assert.False(t, f.Truncated())
	assert.False(t, f.Set("123456"))
	assert.Equal(t, "12345", f.String())
	assert.True(t, f.Truncated())
	assert.Equal(t, 5, f.Cap())
}
