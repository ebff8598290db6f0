package sim

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mastercactapus/metropedal/button"
	"github.com/mastercactapus/metropedal/pedal"
	"github.com/mastercactapus/metropedal/store"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return epoch.Add(time.Duration(ms) * time.Millisecond) }

func newTestModel(t *testing.T) (Model, *Panel, *int) {
	t.Helper()
	cfg := pedal.Config{Timing: pedal.DefaultTiming}
	panel := Attach(&cfg)
	ctrl := pedal.New(cfg, store.DefaultSettings(), store.DefaultBank(), epoch)

	clock := 0
	m := NewModel(ctrl, panel)
	m.now = func() time.Time { return at(clock) }
	return m, panel, &clock
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// advance ticks the model from *clock to until in TickInterval steps.
func advance(m Model, clock *int, until int) Model {
	step := int(TickInterval / time.Millisecond)
	for *clock < until {
		*clock += step
		next, _ := m.Update(tickMsg(at(*clock)))
		m = next.(Model)
	}
	return m
}

func press(m Model, k string) Model {
	next, _ := m.Update(key(k))
	return next.(Model)
}

func TestInitialView(t *testing.T) {
	m, panel, _ := newTestModel(t)
	if got := panel.Frame().String(); got != "NINT" {
		t.Errorf("frame = %q", got)
	}
	v := m.View()
	if !strings.Contains(v, "N I N T") || !strings.Contains(v, "patch") {
		t.Errorf("view = %q", v)
	}
}

func TestHoldKeysToggle(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(m, "a")
	m = press(m, "g")
	in := m.sample(epoch)
	if in.Primary != button.Low || in.Secondary != button.High || in.LiveGig != button.Low {
		t.Errorf("inputs = %+v", in)
	}
	m = press(m, "a")
	if m.sample(epoch).Primary != button.High {
		t.Error("second press should release primary")
	}
}

func TestTapStartsMetronome(t *testing.T) {
	m, panel, clock := newTestModel(t)
	m = press(m, "x")
	m = advance(m, clock, 300)
	if !m.ctrl.Engine().Running() {
		t.Fatal("secondary tap in patch mode should start the metronome")
	}

	m = advance(m, clock, 1000)
	if panel.beats < 2 || panel.lastBPM != 90 {
		t.Errorf("beats = %d at %d bpm", panel.beats, panel.lastBPM)
	}
	if !strings.Contains(m.View(), "running") {
		t.Error("view should show running state")
	}
}

func TestLongPressEntersFreeMode(t *testing.T) {
	m, panel, clock := newTestModel(t)
	m = press(m, "a")
	m = advance(m, clock, 1200)
	m = press(m, "a")
	m = advance(m, clock, 1400)

	if m.ctrl.Mode() != pedal.FreeMode {
		t.Fatalf("mode = %s", m.ctrl.Mode())
	}
	if got := panel.Frame().String(); got != "F 90" {
		t.Errorf("frame = %q", got)
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if next.View() != "" {
		t.Error("view should be empty after quit")
	}
}
