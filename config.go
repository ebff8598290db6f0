package main

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mastercactapus/metropedal/display"
	"github.com/mastercactapus/metropedal/pedal"
)

// Pins are physical header pin numbers. LiveGig may be 0 when no switch is
// fitted.
type Pins struct {
	Primary   int
	Secondary int
	LED       int
	LiveGig   int
}

type DisplayConfig struct {
	Enabled bool
	Address int
	Bus     int
}

type HTTPConfig struct {
	Listen  string
	WebRoot string
}

type MIDIConfig struct {
	Port     string
	Channel  uint8
	Note     uint8
	Velocity uint8
}

type OSCConfig struct {
	Target  string
	Address string
}

type WatchdogConfig struct {
	Device string
}

type Config struct {
	DebounceMs       int64
	HoldMs           int64
	TapTimeoutMs     int64
	DisplayToggleMs  int64
	LiveGigTimeoutMs int64
	PulseMs          int64
	PollIntervalMs   int64

	StoragePath       string
	LockModeInLiveGig bool

	Pins     Pins
	Display  DisplayConfig
	HTTP     HTTPConfig
	MIDI     MIDIConfig
	OSC      OSCConfig
	Watchdog WatchdogConfig
}

func ms(v int64) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Config) Debounce() time.Duration       { return ms(c.DebounceMs) }
func (c *Config) Hold() time.Duration           { return ms(c.HoldMs) }
func (c *Config) TapTimeout() time.Duration     { return ms(c.TapTimeoutMs) }
func (c *Config) DisplayToggle() time.Duration  { return ms(c.DisplayToggleMs) }
func (c *Config) LiveGigTimeout() time.Duration { return ms(c.LiveGigTimeoutMs) }
func (c *Config) Pulse() time.Duration          { return ms(c.PulseMs) }
func (c *Config) PollInterval() time.Duration   { return ms(c.PollIntervalMs) }

// Timing converts the configured durations for the controller.
func (c *Config) Timing() pedal.Timing {
	return pedal.Timing{
		Debounce:       c.Debounce(),
		Hold:           c.Hold(),
		TapTimeout:     c.TapTimeout(),
		Pulse:          c.Pulse(),
		DisplayToggle:  c.DisplayToggle(),
		LiveGigTimeout: c.LiveGigTimeout(),
	}
}

// PedalConfig is the controller wiring derived from c, without collaborators.
func (c *Config) PedalConfig() pedal.Config {
	return pedal.Config{
		Timing:            c.Timing(),
		PrimaryPin:        c.Pins.Primary,
		SecondaryPin:      c.Pins.Secondary,
		LiveGigPin:        c.Pins.LiveGig,
		LockModeInLiveGig: c.LockModeInLiveGig,
	}
}

func setDefault(v *int64, def int64) {
	if *v == 0 {
		*v = def
	}
}

// Validate fills in defaults for unset values and checks pin assignments.
func (c *Config) Validate() error {
	setDefault(&c.DebounceMs, DefaultDebounceMs)
	setDefault(&c.HoldMs, DefaultHoldMs)
	setDefault(&c.TapTimeoutMs, DefaultTapTimeoutMs)
	setDefault(&c.DisplayToggleMs, DefaultDisplayToggleMs)
	setDefault(&c.LiveGigTimeoutMs, DefaultLiveGigTimeoutMs)
	setDefault(&c.PulseMs, DefaultPulseMs)
	setDefault(&c.PollIntervalMs, DefaultPollIntervalMs)
	if c.StoragePath == "" {
		c.StoragePath = DefaultStoragePath
	}
	if c.Display.Address == 0 {
		c.Display.Address = display.DefaultAddress
	}
	if c.Display.Bus == 0 {
		c.Display.Bus = DefaultI2CBus
	}
	if c.MIDI.Note == 0 {
		c.MIDI.Note = DefaultMIDINote
	}
	if c.MIDI.Velocity == 0 {
		c.MIDI.Velocity = DefaultMIDIVelocity
	}

	for _, d := range []struct {
		name string
		v    int64
	}{
		{"DebounceMs", c.DebounceMs},
		{"HoldMs", c.HoldMs},
		{"TapTimeoutMs", c.TapTimeoutMs},
		{"DisplayToggleMs", c.DisplayToggleMs},
		{"LiveGigTimeoutMs", c.LiveGigTimeoutMs},
		{"PulseMs", c.PulseMs},
		{"PollIntervalMs", c.PollIntervalMs},
	} {
		if d.v < 0 {
			return errors.Errorf("%s must not be negative", d.name)
		}
	}
	if c.HoldMs <= c.DebounceMs {
		return errors.New("HoldMs must be longer than DebounceMs")
	}
	if c.PollIntervalMs >= c.DebounceMs {
		log.Warnf("PollIntervalMs (%d) is not shorter than DebounceMs (%d), presses may be missed", c.PollIntervalMs, c.DebounceMs)
	}
	if c.MIDI.Channel > 15 {
		return errors.Errorf("MIDI.Channel %d out of range 0-15", c.MIDI.Channel)
	}

	return c.Pins.validate()
}

func (p Pins) validate() error {
	used := make(map[int]string, 4)
	for _, pin := range []struct {
		name     string
		n        int
		optional bool
	}{
		{"Primary", p.Primary, false},
		{"Secondary", p.Secondary, false},
		{"LED", p.LED, false},
		{"LiveGig", p.LiveGig, true},
	} {
		if pin.n == 0 && pin.optional {
			continue
		}
		if pin.n < 1 || pin.n > 40 {
			return errors.Errorf("Pins.%s: invalid physical pin %d", pin.name, pin.n)
		}
		if other, ok := used[pin.n]; ok {
			return errors.Errorf("Pins.%s: pin %d already used by Pins.%s", pin.name, pin.n, other)
		}
		used[pin.n] = pin.name
	}
	return nil
}
