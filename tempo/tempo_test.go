package tempo

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return epoch.Add(time.Duration(ms) * time.Millisecond) }

type fakeLED struct {
	on     bool
	rising int
}

func (f *fakeLED) SetBeat(on bool) {
	if on && !f.on {
		f.rising++
	}
	f.on = on
}

func newEngine() (*Engine, *fakeLED) {
	led := &fakeLED{}
	return New(Config{TapTimeout: 2000 * time.Millisecond, PulseWidth: 50 * time.Millisecond}, led), led
}

func TestSetTempoClamps(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{10, 40},
		{-5, 40},
		{40, 40},
		{120, 120},
		{240, 240},
		{999, 240},
	}
	e, _ := newEngine()
	for _, tt := range tests {
		if got := e.SetTempo(tt.in); got != tt.want {
			t.Errorf("SetTempo(%d) = %d, want %d", tt.in, got, tt.want)
		}
		if e.BPM() != tt.want {
			t.Errorf("BPM() after SetTempo(%d) = %d, want %d", tt.in, e.BPM(), tt.want)
		}
	}
}

func TestSetTempoKeepsRunState(t *testing.T) {
	e, _ := newEngine()
	e.Start()
	e.SetTempo(90)
	if !e.Running() {
		t.Error("SetTempo stopped a running engine")
	}
}

func TestTapTempo(t *testing.T) {
	e, _ := newEngine()
	e.Tap(at(0))
	if !e.TapWaiting() {
		t.Fatal("first tap did not arm tap mode")
	}
	if e.BPM() != DefaultBPM {
		t.Fatalf("first tap changed tempo to %d", e.BPM())
	}
	e.SetTempo(90)
	e.Tap(at(500))
	if e.BPM() != 120 {
		t.Errorf("taps 500ms apart gave %d BPM, want 120", e.BPM())
	}
	e.Tap(at(1250))
	if e.BPM() != 80 {
		t.Errorf("taps 750ms apart gave %d BPM, want 80", e.BPM())
	}
}

func TestTapOutOfRangeIgnored(t *testing.T) {
	tests := []struct {
		name     string
		interval int
	}{
		{"too fast", 100},
		{"too slow", 1600},
		{"same millisecond", 0},
		{"past timeout", 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine()
			e.SetTempo(100)
			e.Tap(at(0))
			e.Tap(at(tt.interval))
			if e.BPM() != 100 {
				t.Errorf("tempo changed to %d", e.BPM())
			}
		})
	}
}

func TestTapTimeoutStartsRunning(t *testing.T) {
	e, led := newEngine()
	e.Tap(at(0))
	e.Tap(at(500))

	if e.Update(at(2500), true) {
		t.Error("beat while still waiting for taps")
	}
	if e.Running() {
		t.Fatal("running before the tap timeout elapsed")
	}
	if !e.Update(at(2501), true) {
		t.Error("expected an immediate beat after the tap timeout")
	}
	if !e.Running() || e.TapWaiting() {
		t.Errorf("running=%v tapWaiting=%v, want running only", e.Running(), e.TapWaiting())
	}
	if e.BPM() != 120 {
		t.Errorf("BPM = %d, want the tapped 120", e.BPM())
	}
	if !led.on {
		t.Error("LED not lit on beat")
	}
}

func TestTapPausesRunningEngine(t *testing.T) {
	e, led := newEngine()
	e.Start()
	e.Update(at(0), true)
	e.Tap(at(10))
	if e.Running() {
		t.Error("tap mode and running must not overlap")
	}
	if led.on {
		t.Error("LED left on after entering tap mode")
	}
	for ms := 11; ms < 2010; ms++ {
		if e.Update(at(ms), true) {
			t.Fatalf("beat at %dms while waiting for taps", ms)
		}
	}
}

func TestBeatSpacing(t *testing.T) {
	e, led := newEngine()
	e.Start()
	var beats []int
	for ms := 0; ms <= 2000; ms++ {
		if e.Update(at(ms), true) {
			beats = append(beats, ms)
		}
	}
	want := []int{0, 500, 1000, 1500, 2000}
	if len(beats) != len(want) {
		t.Fatalf("beats at %v, want %v", beats, want)
	}
	for i := range want {
		if beats[i] != want[i] {
			t.Errorf("beat %d at %dms, want %dms", i, beats[i], want[i])
		}
	}
	if led.rising != len(want) {
		t.Errorf("LED rose %d times, want %d", led.rising, len(want))
	}
}

func TestPulseEndsOnLaterStep(t *testing.T) {
	e, led := newEngine()
	e.Start()
	e.Update(at(0), true)
	e.Update(at(49), true)
	if !led.on {
		t.Fatal("pulse ended early")
	}
	e.Update(at(50), true)
	if led.on || e.Pulsing() {
		t.Error("pulse still high after its width elapsed")
	}
}

func TestLatePollDelaysBeats(t *testing.T) {
	e, _ := newEngine()
	e.Start()
	e.Update(at(0), true)
	if !e.Update(at(1700), true) {
		t.Fatal("expected a beat on the late step")
	}
	for ms := 1701; ms < 2200; ms++ {
		if e.Update(at(ms), true) {
			t.Fatalf("catch-up beat at %dms", ms)
		}
	}
	if !e.Update(at(2200), true) {
		t.Error("next beat should follow the late one by a full interval")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	e, led := newEngine()
	e.Start()
	e.Update(at(0), true)
	if !led.on {
		t.Fatal("expected a pulse")
	}
	for i := 0; i < 2; i++ {
		e.Stop()
		if e.Running() || led.on || e.Pulsing() {
			t.Errorf("after stop #%d: running=%v led=%v", i+1, e.Running(), led.on)
		}
	}
	if e.Update(at(1), true) || led.on {
		t.Error("spurious beat right after stop")
	}
	if e.Update(at(5000), true) {
		t.Error("stopped engine produced a beat")
	}
}

func TestLiveGigSuppressesBeats(t *testing.T) {
	e, led := newEngine()
	e.SetLiveGig(true)
	e.Start()
	for ms := 0; ms < 3000; ms++ {
		if e.Update(at(ms), false) {
			t.Fatalf("beat at %dms with the display inactive", ms)
		}
	}
	if led.on {
		t.Error("LED lit while suppressed")
	}
	if !e.Update(at(3000), true) {
		t.Error("beats should resume once the display is active")
	}

	e.SetLiveGig(false)
	if !e.Update(at(3500), false) {
		t.Error("inactive display should not matter outside live gig mode")
	}
}

func TestInterval(t *testing.T) {
	tests := []struct {
		bpm  int
		want time.Duration
	}{
		{40, 1500 * time.Millisecond},
		{120, 500 * time.Millisecond},
		{7, 1500 * time.Millisecond},
		{240, 250 * time.Millisecond},
		{233, 257 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := Interval(tt.bpm); got != tt.want {
			t.Errorf("Interval(%d) = %v, want %v", tt.bpm, got, tt.want)
		}
	}
}
