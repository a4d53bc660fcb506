package tracker

import "fmt"

// SessionState is the stage of the modem session.
type SessionState int

const (
	Booting SessionState = iota
	Syncing
	PinCheck
	Registering
	Provisioning
	Idle
	AwaitingTrigger
	OpeningBearer
	ReportingLocation
)

var sessionStateNames = []string{
	"booting",
	"syncing",
	"pin-check",
	"registering",
	"provisioning",
	"idle",
	"awaiting-trigger",
	"opening-bearer",
	"reporting-location",
}

func (s SessionState) String() string {
	if int(s) >= 0 && int(s) < len(sessionStateNames) {
		return sessionStateNames[s]
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// RegistrationState is the network registration status reported by +CREG.
type RegistrationState int

// The values match the <stat> field of +CREG.
const (
	Unregistered RegistrationState = iota
	HomeNetwork
	Searching
	Denied
	RegistrationUnknown
	Roaming
)

var registrationNames = []string{
	"unregistered",
	"home",
	"searching",
	"denied",
	"unknown",
	"roaming",
}

func (r RegistrationState) String() string {
	if int(r) >= 0 && int(r) < len(registrationNames) {
		return registrationNames[r]
	}
	return fmt.Sprintf("RegistrationState(%d)", int(r))
}

// Registered returns true for the home and roaming states.
func (r RegistrationState) Registered() bool {
	return r == HomeNetwork || r == Roaming
}

// BearerState is the state of the GPRS bearer used for location queries.
type BearerState int

const (
	BearerClosed BearerState = iota
	BearerOpening
	BearerOpen
	BearerFailed
)

var bearerNames = []string{"closed", "opening", "open", "failed"}

func (b BearerState) String() string {
	if int(b) >= 0 && int(b) < len(bearerNames) {
		return bearerNames[b]
	}
	return fmt.Sprintf("BearerState(%d)", int(b))
}
