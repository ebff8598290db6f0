// Package button turns raw, active-low switch samples into debounced press events.
package button

import "time"

// Level is a raw or accepted pin level. Inputs use pull-ups, so an idle
// switch reads High and a pressed one reads Low.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Kind classifies a press.
type Kind uint8

const (
	ShortPress Kind = iota + 1
	LongPressStarted
)

func (k Kind) String() string {
	switch k {
	case ShortPress:
		return "short"
	case LongPressStarted:
		return "long"
	}
	return "none"
}

// Event is produced at most once per channel per poll step.
type Event struct {
	Channel string
	Kind    Kind
}

// Timing holds the debounce interval and the long press threshold.
type Timing struct {
	Debounce time.Duration
	Hold     time.Duration
}

// Channel tracks one physical switch.
type Channel struct {
	Name string
	Pin  int

	t Timing

	raw        Level
	accepted   Level
	lastEdge   time.Time
	pressStart time.Time
	long       bool
}

// NewChannel returns a released channel.
func NewChannel(name string, pin int, t Timing) *Channel {
	return &Channel{
		Name:     name,
		Pin:      pin,
		t:        t,
		raw:      High,
		accepted: High,
	}
}

// Level returns the accepted (debounced) level.
func (c *Channel) Level() Level { return c.accepted }

// Pressed reports whether the accepted level is Low.
func (c *Channel) Pressed() bool { return c.accepted == Low }

// Update feeds one raw sample taken at now. A raw change only restarts the
// edge timer; the accepted level follows once the raw level has been stable
// for longer than the debounce interval.
func (c *Channel) Update(level Level, now time.Time) (Event, bool) {
	if level != c.raw {
		c.raw = level
		c.lastEdge = now
	}
	if now.Sub(c.lastEdge) <= c.t.Debounce {
		return Event{}, false
	}

	if level != c.accepted {
		c.accepted = level
		if level == Low {
			c.pressStart = now
			c.long = false
			return Event{}, false
		}
		// a long press was already reported when it crossed the threshold
		if !c.long && now.Sub(c.pressStart) < c.t.Hold {
			return Event{Channel: c.Name, Kind: ShortPress}, true
		}
		return Event{}, false
	}

	if c.accepted == Low && !c.long && now.Sub(c.pressStart) >= c.t.Hold {
		c.long = true
		return Event{Channel: c.Name, Kind: LongPressStarted}, true
	}
	return Event{}, false
}
