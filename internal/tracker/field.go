package tracker

import (
	"github.com/google/uuid"
	"github.com/warthog618/goatloc/internal/at"
)

// Field is a fixed capacity string. Values longer than the capacity are
// truncated.
type Field struct {
	l *at.Line
}

// NewField creates an empty Field.
func NewField(capacity int) *Field {
	return &Field{l: at.NewLine(capacity)}
}

// Set replaces the value, returning false if it was truncated.
func (f *Field) Set(s string) bool {
	f.l.Reset()
	for i := 0; i < len(s); i++ {
		if !f.l.Append(s[i]) {
			return false
		}
	}
	return true
}

// Reset empties the field.
func (f *Field) Reset() {
	f.l.Reset()
}

// Empty returns true if the field has no value.
func (f *Field) Empty() bool {
	return f.l.Len() == 0
}

// Truncated returns true if the last Set did not fit.
func (f *Field) Truncated() bool {
	return f.l.Truncated()
}

// Cap returns the capacity of the field.
func (f *Field) Cap() int {
	return f.l.Cap()
}

func (f *Field) String() string {
	return f.l.String()
}

// Field capacities.
const (
	PhoneNumberLen = 20
	CoordinateLen  = 16
	TimestampLen   = 24
	BatteryLen     = 8
)

// Report holds the values collected during one report cycle.
// It is reset at the start of each cycle and reused.
type Report struct {
	ID          uuid.UUID
	PhoneNumber *Field
	Longitude   *Field
	Latitude    *Field
	Timestamp   *Field
	Battery     *Field
}

// NewReport creates an empty Report.
func NewReport() *Report {
	return &Report{
		PhoneNumber: NewField(PhoneNumberLen),
		Longitude:   NewField(CoordinateLen),
		Latitude:    NewField(CoordinateLen),
		Timestamp:   NewField(TimestampLen),
		Battery:     NewField(BatteryLen),
	}
}

// Reset clears the report and assigns a new cycle ID.
func (r *Report) Reset() {
	r.ID = uuid.New()
	r.PhoneNumber.Reset()
	r.Longitude.Reset()
	r.Latitude.Reset()
	r.Timestamp.Reset()
	r.Battery.Reset()
}
