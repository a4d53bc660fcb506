package tracker

import (
	"fmt"
	"strings"

	"github.com/warthog618/goatloc/internal/at"
)

// MapURL is the prefix of the map link included in the report.
const MapURL = "http://maps.google.com/maps?q="

// SMSHeader returns the command that starts an SMS to number.
func SMSHeader(number string) string {
	return fmt.Sprintf(at.CmdSendSMS, number)
}

// ComposeSMS returns the report message body.
// The battery line is only included if the battery voltage is known.
func ComposeSMS(r *Report) string {
	var b strings.Builder
	lat := r.Latitude.String()
	lon := r.Longitude.String()
	b.WriteString(r.Timestamp.String())
	b.WriteString(" UTC\nLONG=")
	b.WriteString(lon)
	b.WriteString(" LATT=")
	b.WriteString(lat)
	if !r.Battery.Empty() {
		b.WriteString("\nBATTERY[mV]=")
		b.WriteString(r.Battery.String())
	}
	b.WriteString("\n ")
	b.WriteString(MapURL)
	b.WriteString(lat)
	b.WriteString(",")
	b.WriteString(lon)
	b.WriteString("\r\n")
	return b.String()
}
