// Package wake provides the signals that end a low power wait.
//
// A Source is armed immediately before the wait and disarmed as soon as it
// fires, so that a wake signal is never missed and never repeats.
package wake

import "context"

// Source delivers wake events.
type Source interface {
	// Arm enables the source and returns the channel on which the wake event
	// will be delivered. The channel is only valid until Disarm.
	Arm(ctx context.Context) (<-chan struct{}, error)

	// Disarm disables the source. It is safe to call when not armed.
	Disarm() error
}

// Periodic is implemented by sources that fire on a schedule, rather than in
// response to modem activity, so a wake event does not imply pending input.
type Periodic interface {
	Periodic() bool
}

// IsPeriodic returns true if s fires on a schedule.
func IsPeriodic(s Source) bool {
	p, ok := s.(Periodic)
	return ok && p.Periodic()
}

func fire(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}
