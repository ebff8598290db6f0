// Package pedal is the pedal's control core: it interprets button events,
// arbitrates mode, patch and live gig state, and drives the tempo engine and
// the display from a single poll loop.
package pedal

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mastercactapus/metropedal/button"
	"github.com/mastercactapus/metropedal/display"
	"github.com/mastercactapus/metropedal/store"
	"github.com/mastercactapus/metropedal/tempo"
)

// Mode is the top-level operating mode.
type Mode uint8

const (
	PatchMode Mode = iota
	FreeMode
)

func (m Mode) String() string {
	if m == FreeMode {
		return "free"
	}
	return "patch"
}

// MarshalText lets Mode appear by name in JSON.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Channel names used in events and logs.
const (
	Primary   = "primary"
	Secondary = "secondary"
	LiveGig   = "livegig"
)

// Inputs is one raw sample of every input pin.
type Inputs struct {
	Primary   button.Level
	Secondary button.Level
	LiveGig   button.Level
}

// Released is the idle input sample.
var Released = Inputs{Primary: button.High, Secondary: button.High, LiveGig: button.High}

// BothHeld reports the boot-time reset gesture.
func BothHeld(in Inputs) bool {
	return in.Primary == button.Low && in.Secondary == button.Low
}

// Timing collects every timed transition of the core.
type Timing struct {
	Debounce       time.Duration
	Hold           time.Duration
	TapTimeout     time.Duration
	Pulse          time.Duration
	DisplayToggle  time.Duration
	LiveGigTimeout time.Duration
}

// DefaultTiming matches the stock pedal firmware.
var DefaultTiming = Timing{
	Debounce:       50 * time.Millisecond,
	Hold:           1000 * time.Millisecond,
	TapTimeout:     2000 * time.Millisecond,
	Pulse:          50 * time.Millisecond,
	DisplayToggle:  3000 * time.Millisecond,
	LiveGigTimeout: 20000 * time.Millisecond,
}

// Store persists settings and patches. Every mutation is flushed through it
// before the mutating call returns.
type Store interface {
	SaveSettings(st store.Settings) error
	SavePatches(b *store.Bank) error
}

// BeatListener is told about every beat pulse.
type BeatListener interface {
	Beat(bpm int)
}

// Config wires a Controller to its collaborators.
type Config struct {
	Timing Timing

	PrimaryPin, SecondaryPin, LiveGigPin int

	// LockModeInLiveGig ignores mode changes while live gig is enabled.
	LockModeInLiveGig bool

	Store     Store
	Display   display.Renderer
	LED       tempo.Output
	Listeners []BeatListener

	// Online reports network availability for the display; nil means offline.
	Online func() bool
}

// Status is a snapshot of the controller.
type Status struct {
	Mode          Mode        `json:"mode"`
	Index         int         `json:"index"`
	Patch         store.Patch `json:"patch"`
	Tempo         int         `json:"tempo"`
	Running       bool        `json:"running"`
	TapWaiting    bool        `json:"tap_waiting"`
	LiveGig       bool        `json:"live_gig"`
	DisplayActive bool        `json:"display_active"`
}

// Controller owns all mutable device state. It is not safe for concurrent
// use; other goroutines reach it through Loop.Do.
type Controller struct {
	cfg Config

	primary   *button.Channel
	secondary *button.Channel
	gigSwitch *button.Channel

	engine   *tempo.Engine
	activity *Activity

	settings store.Settings
	bank     store.Bank

	mode       Mode
	index      int
	showName   bool
	lastToggle time.Time
	liveGig    bool
	online     bool

	now          time.Time
	dirty        bool
	renderFailed bool
}

// New builds a controller in PatchMode on the first patch and renders the
// initial frame.
func New(cfg Config, settings store.Settings, bank store.Bank, now time.Time) *Controller {
	bt := button.Timing{Debounce: cfg.Timing.Debounce, Hold: cfg.Timing.Hold}
	c := &Controller{
		cfg:        cfg,
		primary:    button.NewChannel(Primary, cfg.PrimaryPin, bt),
		secondary:  button.NewChannel(Secondary, cfg.SecondaryPin, bt),
		gigSwitch:  button.NewChannel(LiveGig, cfg.LiveGigPin, bt),
		engine:     tempo.New(tempo.Config{TapTimeout: cfg.Timing.TapTimeout, PulseWidth: cfg.Timing.Pulse}, cfg.LED),
		activity:   NewActivity(cfg.Timing.LiveGigTimeout, now),
		settings:   settings,
		bank:       bank,
		showName:   true,
		lastToggle: now,
		now:        now,
	}
	if c.bank.Count == 0 {
		c.bank = store.DefaultBank()
	}
	c.engine.SetTempo(c.bank.Patches[0].Tempo)
	c.applyLiveGig(now)
	c.applyBrightness()
	c.online = c.isOnline()
	c.render()
	return c
}

func (c *Controller) Mode() Mode { return c.mode }
func (c *Controller) Index() int { return c.index }
func (c *Controller) Engine() *tempo.Engine { return c.engine }
func (c *Controller) Activity() *Activity { return c.activity }
func (c *Controller) Settings() store.Settings { return c.settings }
func (c *Controller) Patches() []store.Patch { return c.bank.Active() }
func (c *Controller) ShowingName() bool { return c.showName }

// Status returns a snapshot for the API.
func (c *Controller) Status() Status {
	p, _ := c.bank.Get(c.index)
	return Status{
		Mode:          c.mode,
		Index:         c.index,
		Patch:         p,
		Tempo:         c.engine.BPM(),
		Running:       c.engine.Running(),
		TapWaiting:    c.engine.TapWaiting(),
		LiveGig:       c.liveGig,
		DisplayActive: c.activity.Active(),
	}
}

// Step runs one poll iteration: debounce the samples, interpret events,
// advance activity and tempo, then render if anything visible changed.
func (c *Controller) Step(in Inputs, now time.Time) {
	c.now = now

	pev, pok := c.primary.Update(in.Primary, now)
	sev, sok := c.secondary.Update(in.Secondary, now)
	c.gigSwitch.Update(in.LiveGig, now)
	c.applyLiveGig(now)

	if pok {
		c.handle(pev, now)
	}
	if sok {
		c.handle(sev, now)
	}

	if c.activity.Update(now) {
		log.WithField("Deadline", c.activity.Deadline().Format("15:04:05.000")).Infoln("display blanked")
		c.dirty = true
	}
	c.toggleDisplay(now)

	if c.engine.Update(now, c.activity.Active()) {
		for _, l := range c.cfg.Listeners {
			l.Beat(c.engine.BPM())
		}
	}

	if online := c.isOnline(); online != c.online {
		c.online = online
		c.dirty = true
	}
	if c.dirty {
		c.render()
	}
}

func (c *Controller) handle(ev button.Event, now time.Time) {
	c.activity.Touch(now)
	c.dirty = true

	log.WithFields(log.Fields{
		"ID":   ev.Channel,
		"Pin":  c.channel(ev.Channel).Pin,
		"Kind": ev.Kind.String(),
		"Mode": c.mode.String(),
	}).Infoln("button")

	switch {
	case ev.Channel == Primary && ev.Kind == button.LongPressStarted:
		c.toggleMode(now)
	case ev.Channel == Secondary && ev.Kind == button.LongPressStarted:
		if c.mode != PatchMode {
			break
		}
		if c.liveGig {
			log.Debugln("live gig: next patch ignored, activity only")
			break
		}
		c.selectPatch(c.index+1, now)
	case ev.Channel == Primary && ev.Kind == button.ShortPress:
		if c.mode == PatchMode {
			c.selectPatch(c.index-1, now)
		}
	case ev.Channel == Secondary && ev.Kind == button.ShortPress:
		if c.mode == PatchMode {
			if c.engine.Running() {
				c.engine.Stop()
			} else {
				c.engine.Start()
			}
		} else {
			c.engine.Tap(now)
		}
	}

	log.WithFields(log.Fields{
		"Mode":    c.mode.String(),
		"Index":   c.index,
		"Running": c.engine.Running(),
		"Tap":     c.engine.TapWaiting(),
		"Tempo":   c.engine.BPM(),
	}).Debugln("state")
}

func (c *Controller) channel(name string) *button.Channel {
	switch name {
	case Primary:
		return c.primary
	case Secondary:
		return c.secondary
	}
	return c.gigSwitch
}

func (c *Controller) toggleMode(now time.Time) {
	if c.liveGig && c.cfg.LockModeInLiveGig {
		log.Infoln("live gig: mode locked")
		return
	}
	c.showName = true
	c.lastToggle = now
	if c.mode == PatchMode {
		c.mode = FreeMode
		c.engine.Start()
	} else {
		c.mode = PatchMode
		c.engine.Stop()
		c.applyPatchTempo()
	}
	log.WithField("Mode", c.mode.String()).Infoln("mode changed")
}

// selectPatch wraps i into the active patch range, never the full capacity.
func (c *Controller) selectPatch(i int, now time.Time) {
	n := c.bank.Count
	c.index = ((i % n) + n) % n
	c.showName = true
	c.lastToggle = now
	c.applyPatchTempo()
	log.WithFields(log.Fields{
		"Index": c.index,
		"Name":  c.bank.Patches[c.index].Name,
		"Tempo": c.engine.BPM(),
	}).Infoln("patch selected")
}

func (c *Controller) applyPatchTempo() {
	if p, ok := c.bank.Get(c.index); ok {
		c.engine.SetTempo(p.Tempo)
	}
}

func (c *Controller) toggleDisplay(now time.Time) {
	if c.mode != PatchMode || now.Sub(c.lastToggle) < c.cfg.Timing.DisplayToggle {
		return
	}
	c.showName = !c.showName
	c.lastToggle = now
	c.dirty = true
}

// applyLiveGig combines the physical switch with the stored setting.
func (c *Controller) applyLiveGig(now time.Time) {
	on := c.gigSwitch.Pressed() || c.settings.LiveGigMode
	if on == c.liveGig {
		return
	}
	log.WithFields(log.Fields{
		"ID":    LiveGig,
		"Pin":   c.cfg.LiveGigPin,
		"State": on,
	}).Infoln("live gig")
	c.liveGig = on
	c.engine.SetLiveGig(on)
	c.activity.SetEnabled(on, now)
	c.dirty = true
}

func (c *Controller) applyBrightness() {
	d, ok := c.cfg.Display.(display.Dimmer)
	if !ok {
		return
	}
	if err := d.SetBrightness(c.settings.Brightness); err != nil {
		log.Errorln("set brightness:", err)
	}
}

func (c *Controller) isOnline() bool {
	return c.cfg.Online != nil && c.cfg.Online()
}

// render sends the current view to the display. A failed render stays dirty
// and is retried on the next step.
func (c *Controller) render() {
	if c.cfg.Display == nil {
		c.dirty = false
		return
	}
	p, _ := c.bank.Get(c.index)
	v := display.View{
		FreeMode: c.mode == FreeMode,
		Index:    c.index,
		Patch:    p,
		Tempo:    c.engine.BPM(),
		ShowName: c.showName,
		Online:   c.online,
		LiveGig:  c.liveGig,
		Active:   c.activity.Active(),
	}
	if err := c.cfg.Display.Render(v); err != nil {
		if !c.renderFailed {
			log.Errorln("render:", err)
		}
		c.renderFailed = true
		c.dirty = true
		return
	}
	c.renderFailed = false
	c.dirty = false
}

// AddPatch appends p and persists the bank.
func (c *Controller) AddPatch(p store.Patch) (int, error) {
	i, err := c.bank.Add(p)
	if err != nil {
		return -1, err
	}
	log.WithFields(log.Fields{"Index": i, "Name": c.bank.Patches[i].Name}).Infoln("patch added")
	return i, c.savePatches()
}

// UpdatePatch replaces patch i and persists the bank. Editing the selected
// patch in PatchMode applies its new tempo.
func (c *Controller) UpdatePatch(i int, p store.Patch) error {
	if err := c.bank.Update(i, p); err != nil {
		return err
	}
	if i == c.index && c.mode == PatchMode {
		c.applyPatchTempo()
	}
	c.dirty = true
	return c.savePatches()
}

// DeletePatch removes patch i and persists the bank. The selection follows
// the patch it pointed at, or clamps to the new end.
func (c *Controller) DeletePatch(i int) error {
	if err := c.bank.Delete(i); err != nil {
		return err
	}
	switch {
	case i < c.index:
		c.index--
	case c.index >= c.bank.Count:
		c.index = c.bank.Count - 1
	}
	if c.mode == PatchMode {
		c.applyPatchTempo()
	}
	c.dirty = true
	return c.savePatches()
}

// UpdateSettings stores st, persists it and applies brightness and live gig.
func (c *Controller) UpdateSettings(st store.Settings) error {
	if st.Brightness > store.MaxBrightness {
		st.Brightness = store.MaxBrightness
	}
	c.settings = st
	c.applyBrightness()
	c.applyLiveGig(c.now)
	c.dirty = true
	if c.cfg.Store == nil {
		return nil
	}
	return errors.Wrap(c.cfg.Store.SaveSettings(st), "persist settings")
}

func (c *Controller) savePatches() error {
	if c.cfg.Store == nil {
		return nil
	}
	return errors.Wrap(c.cfg.Store.SavePatches(&c.bank), "persist patches")
}
