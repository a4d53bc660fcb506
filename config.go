// Package goatloc loads the configuration of the goatloc call-triggered
// location reporter.
package goatloc

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vaughan0/go-ini"
	"github.com/warthog618/goatloc/internal/power"
	"github.com/warthog618/goatloc/internal/tracker"
	"github.com/warthog618/goatloc/internal/wake"
)

// Config is the complete application configuration.
type Config struct {
	Device  DeviceConfig
	Tracker tracker.Config
	Wake    WakeConfig
	Log     LogConfig
	Server  ServerConfig
}

// DeviceConfig describes the serial link to the modem.
type DeviceConfig struct {
	Port           string
	Baud           int
	Trace          bool
	CommandTimeout time.Duration
	SendTimeout    time.Duration
	WakeSettle     time.Duration
}

// WakeConfig selects the source that wakes the host from sleep.
//
// A wired line is used if Chip is set and the variant has the ring indicator
// wired, else the modem is polled if Poll is non-zero, else the host waits
// for modem output.
type WakeConfig struct {
	Chip      string
	Line      int
	Edge      wake.Edge
	ActiveLow bool
	Poll      time.Duration
}

// LogConfig controls the application log.
type LogConfig struct {
	Level      logrus.Level
	Format     string // text or json
	File       string // empty logs to stderr
	MaxSize    int    // megabytes
	MaxBackups int
	MaxAge     int // days
}

// ServerConfig is the bind address of the status endpoint. An empty Port
// disables the endpoint.
type ServerConfig struct {
	Host string
	Port string
}

// DefaultConfig returns the configuration used for any keys missing from
// the config file.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Port:           "/dev/ttyS0",
			Baud:           9600,
			CommandTimeout: 5 * time.Second,
			SendTimeout:    2 * time.Second,
			WakeSettle:     100 * time.Millisecond,
		},
		Tracker: tracker.DefaultConfig(),
		Wake: WakeConfig{
			Chip: "gpiochip0",
			Edge: wake.EdgeFalling,
		},
		Log: LogConfig{
			Level:      logrus.InfoLevel,
			Format:     "text",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// PowerConfig returns the power controller configuration.
func (c *Config) PowerConfig() power.Config {
	return power.Config{
		ModemSleep: c.Tracker.ModemSleep,
		WakeSettle: c.Device.WakeSettle,
	}
}

// GetConfig loads the config from the ini file at path.
func GetConfig(path string) (*Config, error) {
	f, err := ini.LoadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return parseConfig(f)
}

// ParseConfig reads the config from ini text.
func ParseConfig(text string) (*Config, error) {
	f, err := ini.Load(strings.NewReader(text))
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return parseConfig(f)
}

func parseConfig(f ini.File) (*Config, error) {
	c := DefaultConfig()
	p := parser{f: f}

	// the profile presets the flags, so must be applied before them.
	if name, ok := f.Get("VARIANT", "PROFILE"); ok {
		if err := tracker.ApplyProfile(strings.TrimSpace(name), &c.Tracker); err != nil {
			return nil, err
		}
	}

	p.str("DEVICE", "COMPORT", &c.Device.Port)
	p.integer("DEVICE", "BAUDRATE", &c.Device.Baud)
	p.boolean("DEVICE", "TRACE", &c.Device.Trace)
	c.Tracker.BaudRate = c.Device.Baud

	p.str("SIM", "PIN", &c.Tracker.PIN)
	p.str("GPRS", "APN", &c.Tracker.APN)
	p.str("GPRS", "USER", &c.Tracker.User)
	p.str("GPRS", "PASSWORD", &c.Tracker.Password)
	p.str("SMS", "COUNTRYPREFIX", &c.Tracker.CountryPrefix)

	p.boolean("VARIANT", "BATTERY", &c.Tracker.BatteryCheck)
	p.boolean("VARIANT", "MODEMSLEEP", &c.Tracker.ModemSleep)
	p.boolean("VARIANT", "WAKE", &c.Tracker.WakeWired)
	p.integer("VARIANT", "CREGURC", &c.Tracker.RegistrationURC)
	p.boolean("VARIANT", "DISABLELED", &c.Tracker.DisableLED)
	p.boolean("VARIANT", "FIXBAUD", &c.Tracker.FixBaud)
	p.boolean("VARIANT", "SAVECONFIG", &c.Tracker.SaveConfig)
	p.boolean("VARIANT", "FLIGHTCYCLE", &c.Tracker.FlightCycle)

	p.str("WAKE", "CHIP", &c.Wake.Chip)
	p.integer("WAKE", "LINE", &c.Wake.Line)
	if v, ok := p.get("WAKE", "EDGE"); ok {
		e, err := wake.ParseEdge(v)
		p.set(err, "WAKE", "EDGE")
		c.Wake.Edge = e
	}
	p.boolean("WAKE", "ACTIVELOW", &c.Wake.ActiveLow)
	p.duration("WAKE", "POLL", &c.Wake.Poll)

	durations := []struct {
		key string
		d   *time.Duration
	}{
		{"COMMANDTIMEOUT", &c.Device.CommandTimeout},
		{"SENDTIMEOUT", &c.Device.SendTimeout},
		{"WAKESETTLE", &c.Device.WakeSettle},
		{"SYNCINTERVAL", &c.Tracker.SyncInterval},
		{"SYNCTIMEOUT", &c.Tracker.SyncTimeout},
		{"PININTERVAL", &c.Tracker.PinInterval},
		{"PINTIMEOUT", &c.Tracker.PinTimeout},
		{"REGINTERVAL", &c.Tracker.RegInterval},
		{"FLIGHTDWELL", &c.Tracker.FlightDwell},
		{"BACKOFFMIN", &c.Tracker.BackoffMin},
		{"BACKOFFMAX", &c.Tracker.BackoffMax},
		{"COOLDOWN", &c.Tracker.Cooldown},
		{"SEARCHSETTLE", &c.Tracker.SearchSettle},
		{"REGCAP", &c.Tracker.RegistrationCap},
		{"PROVISIONSPACING", &c.Tracker.ProvisionSpacing},
		{"TRIGGERTIMEOUT", &c.Tracker.TriggerTimeout},
		{"CLIPTIMEOUT", &c.Tracker.ClipTimeout},
		{"BEARERCLOSE", &c.Tracker.BearerCloseDelay},
		{"BEAREROPEN", &c.Tracker.BearerOpenDelay},
		{"BEARERSETTLE", &c.Tracker.BearerSettle},
		{"LOCATIONCOOLDOWN", &c.Tracker.LocationCooldown},
		{"PROMPTDELAY", &c.Tracker.PromptDelay},
		{"REPORTCOOLDOWN", &c.Tracker.ReportCooldown},
	}
	for _, d := range durations {
		p.duration("TIMING", d.key, d.d)
	}
	p.float("TIMING", "BACKOFFFACTOR", &c.Tracker.BackoffFactor)
	p.integer("TIMING", "RADIOOFFAFTER", &c.Tracker.RadioOffAfter)
	p.integer("TIMING", "BEARERATTEMPTS", &c.Tracker.BearerAttempts)
	p.integer("TIMING", "SCANWINDOW", &c.Tracker.LocationScanWindow)

	if v, ok := p.get("LOG", "LEVEL"); ok {
		l, err := logrus.ParseLevel(v)
		p.set(err, "LOG", "LEVEL")
		c.Log.Level = l
	}
	p.str("LOG", "FORMAT", &c.Log.Format)
	p.str("LOG", "FILE", &c.Log.File)
	p.integer("LOG", "MAXSIZE", &c.Log.MaxSize)
	p.integer("LOG", "MAXBACKUPS", &c.Log.MaxBackups)
	p.integer("LOG", "MAXAGE", &c.Log.MaxAge)

	p.str("SERVER", "HOST", &c.Server.Host)
	p.str("SERVER", "PORT", &c.Server.Port)

	if p.err != nil {
		return nil, p.err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch {
	case c.Device.Port == "":
		return errors.New("DEVICE COMPORT is required")
	case c.Device.Baud <= 0:
		return errors.Errorf("invalid DEVICE BAUDRATE %d", c.Device.Baud)
	case c.Tracker.RegistrationURC != 0 && c.Tracker.RegistrationURC != 1:
		return errors.Errorf("invalid VARIANT CREGURC %d, expected 0 or 1", c.Tracker.RegistrationURC)
	case c.Log.Format != "text" && c.Log.Format != "json":
		return errors.Errorf("invalid LOG FORMAT %q, expected text or json", c.Log.Format)
	}
	return nil
}

// parser extracts typed values from an ini file, retaining the first error.
type parser struct {
	f   ini.File
	err error
}

func (p *parser) get(section, key string) (string, bool) {
	v, ok := p.f.Get(section, key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (p *parser) set(err error, section, key string) {
	if err != nil && p.err == nil {
		p.err = errors.Wrapf(err, "invalid %s %s", section, key)
	}
}

func (p *parser) str(section, key string, s *string) {
	if v, ok := p.get(section, key); ok {
		*s = v
	}
}

func (p *parser) integer(section, key string, i *int) {
	if v, ok := p.get(section, key); ok {
		n, err := strconv.Atoi(v)
		p.set(err, section, key)
		if err == nil {
			*i = n
		}
	}
}

func (p *parser) float(section, key string, f *float64) {
	if v, ok := p.get(section, key); ok {
		n, err := strconv.ParseFloat(v, 64)
		p.set(err, section, key)
		if err == nil {
			*f = n
		}
	}
}

func (p *parser) boolean(section, key string, b *bool) {
	if v, ok := p.get(section, key); ok {
		t, err := strconv.ParseBool(v)
		p.set(err, section, key)
		if err == nil {
			*b = t
		}
	}
}

func (p *parser) duration(section, key string, d *time.Duration) {
	if v, ok := p.get(section, key); ok {
		t, err := time.ParseDuration(v)
		p.set(err, section, key)
		if err == nil {
			*d = t
		}
	}
}
