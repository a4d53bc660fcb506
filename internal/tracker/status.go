package tracker

import (
	"sync"
	"time"
)

// ReportSummary describes the most recent report sent.
type ReportSummary struct {
	ID        string    `json:"id"`
	Number    string    `json:"number"`
	Longitude string    `json:"longitude"`
	Latitude  string    `json:"latitude"`
	Timestamp string    `json:"timestamp"`
	Battery   string    `json:"battery,omitempty"`
	Sent      time.Time `json:"sent"`
}

// Snapshot is a point in time copy of the tracker status.
type Snapshot struct {
	State        string         `json:"state"`
	Registration string         `json:"registration"`
	Bearer       string         `json:"bearer"`
	Changed      time.Time      `json:"changed"`
	Reports      int            `json:"reports"`
	Failures     int            `json:"failures"`
	LastError    string         `json:"last_error,omitempty"`
	LastReport   *ReportSummary `json:"last_report,omitempty"`
}

// Status publishes the tracker state to other goroutines.
// It outlives a Tracker, so the totals survive modem reconnects.
type Status struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewStatus creates a Status.
func NewStatus() *Status {
	return &Status{snap: Snapshot{
		State:        Booting.String(),
		Registration: RegistrationUnknown.String(),
		Bearer:       BearerClosed.String(),
	}}
}

// Snapshot returns a copy of the current status.
func (s *Status) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snap
	if snap.LastReport != nil {
		r := *snap.LastReport
		snap.LastReport = &r
	}
	return snap
}

func (s *Status) setState(st SessionState, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.State = st.String()
	s.snap.Changed = now
}

func (s *Status) setRegistration(r RegistrationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Registration = r.String()
}

func (s *Status) setBearer(b BearerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Bearer = b.String()
}

func (s *Status) reportSent(r *Report, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Reports++
	s.snap.LastReport = &ReportSummary{
		ID:        r.ID.String(),
		Number:    r.PhoneNumber.String(),
		Longitude: r.Longitude.String(),
		Latitude:  r.Latitude.String(),
		Timestamp: r.Timestamp.String(),
		Battery:   r.Battery.String(),
		Sent:      now,
	}
}

func (s *Status) reportFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Failures++
	s.snap.LastError = err.Error()
}
