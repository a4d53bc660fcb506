package tracker

import (
	"fmt"
	"sort"
	"time"
)

// Config holds the tracker behaviour. The capability flags select between
// the hardware variants, and the timing values are all tunable.
type Config struct {
	// SIM and network
	PIN           string
	APN           string
	User          string
	Password      string
	CountryPrefix string

	// Capabilities
	BatteryCheck    bool // modem reports battery voltage
	ModemSleep      bool // modem slow clock while idle
	WakeWired       bool // modem ring indicator is wired to a wake line
	RegistrationURC int  // +CREG URC mode, 0 or 1
	DisableLED      bool
	FixBaud         bool
	BaudRate        int
	SaveConfig      bool

	// Bring-up
	SyncInterval time.Duration
	SyncTimeout  time.Duration // zero waits forever
	PinInterval  time.Duration
	PinTimeout   time.Duration // zero waits forever

	// Registration
	RegInterval      time.Duration
	FlightCycle      bool
	FlightDwell      time.Duration
	BackoffMin       time.Duration
	BackoffMax       time.Duration
	BackoffFactor    float64
	RadioOffAfter    int // consecutive failures before radio off, zero disables
	Cooldown         time.Duration
	SearchSettle     time.Duration
	RegistrationCap  time.Duration // zero waits forever
	ProvisionSpacing time.Duration

	// Call wait
	TriggerTimeout time.Duration
	ClipTimeout    time.Duration

	// Report
	BearerAttempts     int
	BearerCloseDelay   time.Duration
	BearerOpenDelay    time.Duration
	BearerSettle       time.Duration
	LocationScanWindow int
	LocationCooldown   time.Duration
	PromptDelay        time.Duration
	ReportCooldown     time.Duration
}

// DefaultConfig returns the configuration of the sleep capable hardware.
func DefaultConfig() Config {
	c := Config{
		APN:      "internet",
		User:     "internet",
		Password: "internet",
		BaudRate: 9600,

		SyncInterval: time.Second,
		PinInterval:  2 * time.Second,

		RegInterval:      2 * time.Second,
		FlightDwell:      time.Second,
		BackoffMin:       10 * time.Second,
		BackoffMax:       5 * time.Minute,
		BackoffFactor:    2,
		RadioOffAfter:    3,
		Cooldown:         30 * time.Minute,
		SearchSettle:     time.Minute,
		RegistrationCap:  24 * time.Hour,
		ProvisionSpacing: time.Second,

		TriggerTimeout: 10 * time.Second,
		ClipTimeout:    5 * time.Second,

		BearerAttempts:     3,
		BearerCloseDelay:   5 * time.Second,
		BearerOpenDelay:    2 * time.Second,
		BearerSettle:       5 * time.Second,
		LocationScanWindow: DefaultScanWindow,
		LocationCooldown:   55 * time.Second,
		PromptDelay:        time.Second,
		ReportCooldown:     10 * time.Second,
	}
	Profiles["sleep"](&c)
	return c
}

// Profile presets the capability flags and constants of a hardware variant.
type Profile func(*Config)

// Profiles are the known hardware variants.
var Profiles = map[string]Profile{
	// ATtiny2313 with no wake line: registration URCs off, flight mode
	// cycled on each failed poll with a fixed 10s retry.
	"attiny2313": func(c *Config) {
		c.RegistrationURC = 0
		c.BatteryCheck = false
		c.ModemSleep = false
		c.WakeWired = false
		c.DisableLED = false
		c.FixBaud = false
		c.SaveConfig = false
		c.FlightCycle = true
		c.FlightDwell = 10 * time.Second
		c.BackoffMin = 10 * time.Second
		c.BackoffMax = 10 * time.Second
		c.RadioOffAfter = 30
		c.Cooldown = 4 * time.Minute
	},
	// ATtiny that never sleeps itself but puts the modem to sleep, with
	// radio off for 4 minutes on each failed poll.
	"nosleep": func(c *Config) {
		c.RegistrationURC = 1
		c.BatteryCheck = false
		c.ModemSleep = true
		c.WakeWired = false
		c.DisableLED = true
		c.FixBaud = true
		c.SaveConfig = true
		c.FlightCycle = false
		c.RadioOffAfter = 1
		c.Cooldown = 4 * time.Minute
		c.SearchSettle = time.Minute
	},
	// ATmega328P with battery monitoring and modem sleep.
	"sleep": func(c *Config) {
		c.RegistrationURC = 1
		c.BatteryCheck = true
		c.ModemSleep = true
		c.WakeWired = true
		c.DisableLED = true
		c.FixBaud = true
		c.SaveConfig = true
		c.FlightCycle = false
		c.RadioOffAfter = 1
		c.Cooldown = 30 * time.Minute
		c.SearchSettle = time.Minute
	},
}

// ApplyProfile applies the named profile to c.
func ApplyProfile(name string, c *Config) error {
	p, ok := Profiles[name]
	if !ok {
		return fmt.Errorf("unknown profile %q, expected one of %v", name, ProfileNames())
	}
	p(c)
	return nil
}

// ProfileNames returns the sorted names of the known profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(Profiles))
	for n := range Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
