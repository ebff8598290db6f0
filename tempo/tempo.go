// Package tempo schedules beat pulses at a fixed BPM and derives tempo from taps.
package tempo

import "time"

const (
	MinBPM     = 40
	MaxBPM     = 240
	DefaultBPM = 120
)

// Output is the beat indicator, usually an LED pin.
type Output interface {
	SetBeat(on bool)
}

// Config holds the engine timings.
type Config struct {
	TapTimeout time.Duration
	PulseWidth time.Duration

	// LiveGig silences beats whenever the display is inactive.
	LiveGig bool
}

// Engine owns the running, stopped and tap-waiting states. It is driven from a
// single poll loop and never blocks: a pulse is raised on one Update and
// lowered on a later one.
type Engine struct {
	cfg Config
	out Output

	bpm        int
	running    bool
	tapWaiting bool
	lastBeat   time.Time
	lastTap    time.Time

	pulsing  bool
	pulseEnd time.Time
}

// New returns a stopped engine at DefaultBPM with the output driven low.
func New(cfg Config, out Output) *Engine {
	e := &Engine{cfg: cfg, out: out, bpm: DefaultBPM}
	e.low()
	return e
}

// Clamp limits bpm to [MinBPM, MaxBPM].
func Clamp(bpm int) int {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// Interval is the whole-millisecond beat period for bpm.
func Interval(bpm int) time.Duration {
	return time.Duration(60000/Clamp(bpm)) * time.Millisecond
}

func (e *Engine) BPM() int { return e.bpm }
func (e *Engine) Running() bool { return e.running }
func (e *Engine) TapWaiting() bool { return e.tapWaiting }
func (e *Engine) Pulsing() bool { return e.pulsing }
func (e *Engine) SetLiveGig(on bool) { e.cfg.LiveGig = on }

// SetTempo stores the clamped tempo and returns it. Running and tap state are
// left alone.
func (e *Engine) SetTempo(bpm int) int {
	e.bpm = Clamp(bpm)
	return e.bpm
}

func (e *Engine) Start() {
	e.running = true
	e.tapWaiting = false
}

// Stop halts beats and forces the output low at once.
func (e *Engine) Stop() {
	e.running = false
	e.tapWaiting = false
	e.low()
}

// Tap registers a tap at now. The first tap only arms tap mode and pauses
// the beat; each later tap within TapTimeout sets the tempo from the
// interval, unless it falls outside [MinBPM, MaxBPM].
func (e *Engine) Tap(now time.Time) {
	if !e.tapWaiting {
		e.tapWaiting = true
		e.running = false
		e.lastTap = now
		e.low()
		return
	}

	interval := now.Sub(e.lastTap).Milliseconds()
	if interval > 0 && interval < e.cfg.TapTimeout.Milliseconds() {
		if bpm := int(60000 / interval); bpm >= MinBPM && bpm <= MaxBPM {
			e.bpm = bpm
		}
	}
	e.lastTap = now
}

// Update advances the engine to now. It returns true when a new beat pulse
// started during this call.
func (e *Engine) Update(now time.Time, displayActive bool) bool {
	if e.tapWaiting && now.Sub(e.lastTap) > e.cfg.TapTimeout {
		// a finished tap sequence starts the metronome at the tapped tempo
		e.tapWaiting = false
		e.running = true
	}

	if !e.running || (e.cfg.LiveGig && !displayActive) {
		e.low()
		return false
	}

	if e.pulsing && !now.Before(e.pulseEnd) {
		e.low()
	}

	if now.Sub(e.lastBeat) < Interval(e.bpm) {
		return false
	}
	e.lastBeat = now
	e.pulsing = true
	e.pulseEnd = now.Add(e.cfg.PulseWidth)
	if e.out != nil {
		e.out.SetBeat(true)
	}
	return true
}

func (e *Engine) low() {
	e.pulsing = false
	if e.out != nil {
		e.out.SetBeat(false)
	}
}
