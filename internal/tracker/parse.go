package tracker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/warthog618/modem/info"
)

// DefaultScanWindow is the number of bytes searched for each delimiter in a
// location response.
const DefaultScanWindow = 40

// ParsePhoneNumber extracts the quoted number from a +CLIP line into dst.
//
// The number is the text between the first pair of quotes; the rest of the
// line is ignored.
func ParsePhoneNumber(line string, dst *Field) error {
	start := strings.IndexByte(line, '"')
	if start < 0 {
		return fmt.Errorf("%w: no number in %q", ErrNoCallerID, line)
	}
	rest := line[start+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return fmt.Errorf("%w: unterminated number in %q", ErrNoCallerID, line)
	}
	if end == 0 {
		return fmt.Errorf("%w: withheld", ErrNoCallerID)
	}
	dst.Set(rest[:end])
	return nil
}

// NormalizeNumber prepends the country prefix to numbers that do not
// already start with '+'.
func NormalizeNumber(number, prefix string) string {
	if prefix == "" || strings.HasPrefix(number, "+") {
		return number
	}
	return prefix + number
}

// scanField returns the text from start up to the next comma, which must be
// found within window bytes.
func scanField(s string, start, window int) (string, int, bool) {
	end := len(s)
	if window > 0 && start+window < end {
		end = start + window
	}
	if start > end {
		return "", start, false
	}
	i := strings.IndexByte(s[start:end], ',')
	if i < 0 {
		return "", start, false
	}
	return s[start : start+i], start + i + 1, true
}

// ParseLocation extracts the longitude, latitude and timestamp from a
// +CIPGSMLOC line, of the form
//
//	+CIPGSMLOC: <code>,<longitude>,<latitude>,<date>,<time>
//
// Each comma must be found within window bytes of the previous field.
// The timestamp is the remainder of the line, so includes the comma between
// date and time.
func ParseLocation(line string, window int, r *Report) error {
	if !info.HasPrefix(line, "+CIPGSMLOC") {
		return fmt.Errorf("%w: %q", ErrMalformedLocation, line)
	}
	body := info.TrimPrefix(line, "+CIPGSMLOC")
	code, pos, ok := scanField(body, 0, window)
	if !ok {
		return fmt.Errorf("%w: no location in %q", ErrMalformedLocation, line)
	}
	if strings.TrimSpace(code) != "0" {
		return fmt.Errorf("%w: location error %s", ErrMalformedLocation, code)
	}
	lon, pos, ok := scanField(body, pos, window)
	if !ok || lon == "" {
		return fmt.Errorf("%w: no longitude in %q", ErrMalformedLocation, line)
	}
	lat, pos, ok := scanField(body, pos, window)
	if !ok || lat == "" {
		return fmt.Errorf("%w: no latitude in %q", ErrMalformedLocation, line)
	}
	ts := strings.TrimSpace(body[pos:])
	if ts == "" {
		return fmt.Errorf("%w: no timestamp in %q", ErrMalformedLocation, line)
	}
	if len(lon) > r.Longitude.Cap() || len(lat) > r.Latitude.Cap() || len(ts) > r.Timestamp.Cap() {
		return fmt.Errorf("%w: field overflow in %q", ErrMalformedLocation, line)
	}
	r.Longitude.Set(lon)
	r.Latitude.Set(lat)
	r.Timestamp.Set(ts)
	return nil
}

// ParseBattery extracts the voltage, in mV, from a +CBC line of the form
//
//	+CBC: <bcs>,<bcl>,<voltage>
func ParseBattery(line string, dst *Field) error {
	if !info.HasPrefix(line, "+CBC") {
		return fmt.Errorf("%w: %q", ErrMalformedBattery, line)
	}
	fields := strings.SplitN(info.TrimPrefix(line, "+CBC"), ",", 3)
	if len(fields) < 3 {
		return fmt.Errorf("%w: %q", ErrMalformedBattery, line)
	}
	v := strings.TrimSpace(fields[2])
	if v == "" {
		return fmt.Errorf("%w: %q", ErrMalformedBattery, line)
	}
	if len(v) > dst.Cap() {
		return fmt.Errorf("%w: voltage overflow in %q", ErrMalformedBattery, line)
	}
	dst.Set(v)
	return nil
}

// ParseRegistration returns the registration state from a +CREG line.
// Both the query response, "+CREG: <n>,<stat>", and the unsolicited form,
// "+CREG: <stat>", are accepted.
func ParseRegistration(line string) (RegistrationState, error) {
	if !info.HasPrefix(line, "+CREG") {
		return RegistrationUnknown, fmt.Errorf("not a registration line: %q", line)
	}
	fields := strings.Split(info.TrimPrefix(line, "+CREG"), ",")
	stat := fields[0]
	if len(fields) > 1 {
		stat = fields[1]
	}
	v, err := strconv.Atoi(strings.TrimSpace(stat))
	if err != nil || v < 0 || v > int(Roaming) {
		return RegistrationUnknown, fmt.Errorf("unknown registration status in %q", line)
	}
	return RegistrationState(v), nil
}
