// Package sim runs the pedal in a terminal, with keys standing in for the
// footswitches and a rendered 4-digit display and beat LED.
package sim

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mastercactapus/metropedal/button"
	"github.com/mastercactapus/metropedal/display"
	"github.com/mastercactapus/metropedal/pedal"
	"github.com/mastercactapus/metropedal/store"
)

// TickInterval is the simulated poll rate.
const TickInterval = 5 * time.Millisecond

// tapLength is how long a tap key holds its switch down.
const tapLength = 100 * time.Millisecond

// Panel stands in for the display, the LED and a beat listener.
type Panel struct {
	frame      display.Frame
	brightness uint8
	led        bool
	beats      int
	lastBPM    int
}

// Attach points the display, LED and an extra beat listener in cfg at a new
// Panel.
func Attach(cfg *pedal.Config) *Panel {
	p := &Panel{}
	cfg.Display = p
	cfg.LED = p
	cfg.Listeners = append(cfg.Listeners, p)
	return p
}

func (p *Panel) Render(v display.View) error {
	p.frame = display.Format(v)
	return nil
}

func (p *Panel) SetBrightness(level uint8) error {
	p.brightness = level
	return nil
}

func (p *Panel) SetBeat(on bool) { p.led = on }

func (p *Panel) Beat(bpm int) {
	p.beats++
	p.lastBPM = bpm
}

// Frame returns the last rendered frame.
func (p *Panel) Frame() display.Frame { return p.frame }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type Model struct {
	ctrl  *pedal.Controller
	panel *Panel

	held      pedal.Inputs
	primaryTo time.Time
	secondTo  time.Time
	now       func() time.Time
	quitting  bool
}

func NewModel(ctrl *pedal.Controller, panel *Panel) Model {
	return Model{ctrl: ctrl, panel: panel, held: pedal.Released, now: time.Now}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func toggle(l button.Level) button.Level { return !l }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.ctrl.Engine().Stop()
			return m, tea.Quit
		case "a":
			m.held.Primary = toggle(m.held.Primary)
		case "s":
			m.held.Secondary = toggle(m.held.Secondary)
		case "g":
			m.held.LiveGig = toggle(m.held.LiveGig)
		case "z":
			m.primaryTo = m.now().Add(tapLength)
		case " ", "x":
			m.secondTo = m.now().Add(tapLength)
		}

	case tickMsg:
		t := time.Time(msg)
		m.ctrl.Step(m.sample(t), t)
		return m, tick()
	}
	return m, nil
}

// sample combines latched keys with momentary taps still in progress.
func (m Model) sample(now time.Time) pedal.Inputs {
	in := m.held
	if now.Before(m.primaryTo) {
		in.Primary = button.Low
	}
	if now.Before(m.secondTo) {
		in.Secondary = button.Low
	}
	return in
}

var (
	segStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 2).
			Bold(true)
	ledOn   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	ledOff  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	dimText = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	keyDown = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// segColor maps display brightness onto an amber ramp.
func segColor(level uint8) lipgloss.Color {
	ramp := []string{"94", "130", "166", "172", "208", "214", "220", "226"}
	if level > store.MaxBrightness {
		level = store.MaxBrightness
	}
	return lipgloss.Color(ramp[int(level)*len(ramp)/(store.MaxBrightness+1)])
}

func switchLabel(name string, l button.Level) string {
	if l == button.Low {
		return keyDown.Render("[" + name + "]")
	}
	return dimText.Render(" " + name + " ")
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var digits strings.Builder
	for _, g := range m.panel.frame {
		digits.WriteByte(g.Char)
		if g.Dot {
			digits.WriteByte('.')
		} else {
			digits.WriteByte(' ')
		}
	}
	screen := segStyle.Foreground(segColor(m.panel.brightness)).Render(digits.String())

	led := ledOff.Render("○")
	if m.panel.led {
		led = ledOn.Render("●")
	}

	st := m.ctrl.Status()
	state := "stopped"
	switch {
	case st.TapWaiting:
		state = "tap"
	case st.Running:
		state = "running"
	}
	status := fmt.Sprintf("%s  %3d bpm  %-7s  beats:%d", st.Mode, st.Tempo, state, m.panel.beats)
	if st.LiveGig {
		status += "  LIVE"
	}

	in := m.sample(m.now())
	switches := lipgloss.JoinHorizontal(lipgloss.Top,
		switchLabel("primary", in.Primary), " ",
		switchLabel("secondary", in.Secondary), " ",
		switchLabel("gig", in.LiveGig),
	)

	help := dimText.Render("a/s/g: hold primary/secondary/gig  z/x: tap primary/secondary  q: quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Center, screen, "  ", led),
		status,
		switches,
		"",
		help,
	) + "\n"
}
