// Package display formats pedal state for a four character alphanumeric
// display and drives the hardware that shows it.
package display

import (
	"strconv"

	"github.com/mastercactapus/metropedal/store"
)

// Width is the number of character positions.
const Width = 4

// View is everything a renderer needs for one frame.
type View struct {
	FreeMode bool
	Index    int
	Patch    store.Patch
	Tempo    int
	ShowName bool
	Online   bool
	LiveGig  bool
	Active   bool
}

// Glyph is one character position with its decimal point.
type Glyph struct {
	Char byte
	Dot  bool
}

// Frame is a formatted display.
type Frame [Width]Glyph

// String returns the characters with a '.' after each lit decimal point.
func (f Frame) String() string {
	b := make([]byte, 0, Width*2)
	for _, g := range f {
		b = append(b, g.Char)
		if g.Dot {
			b = append(b, '.')
		}
	}
	return string(b)
}

// Renderer shows a View. Implementations must not call back into the pedal.
type Renderer interface {
	Render(v View) error
}

// Dimmer is implemented by renderers with adjustable brightness.
type Dimmer interface {
	SetBrightness(level uint8) error
}

// Format lays out v. The first decimal point marks live gig mode and the last
// one marks network availability. An inactive display is blank apart from the
// live gig marker.
func Format(v View) Frame {
	var f Frame
	for i := range f {
		f[i].Char = ' '
	}

	if !v.Active {
		f[0].Dot = v.LiveGig
		return f
	}

	if v.FreeMode {
		f[0] = Glyph{Char: 'F', Dot: v.LiveGig}
		put(&f, padLeft(strconv.Itoa(v.Tempo), Width-1), 1)
		f[Width-1].Dot = v.Online
		return f
	}

	text := padLeft(strconv.Itoa(v.Patch.Tempo), Width)
	if v.ShowName {
		text = padRight(v.Patch.Name, Width)
	}
	for i := 0; i < Width; i++ {
		f[i].Char = text[i]
	}
	f[0].Dot = v.LiveGig
	f[Width-1].Dot = v.Online
	return f
}

func put(f *Frame, s string, at int) {
	for i := 0; i < len(s) && at+i < Width; i++ {
		f[at+i].Char = s[i]
	}
}

func padLeft(s string, n int) string {
	for len(s) < n {
		s = " " + s
	}
	return s
}

func padRight(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s[:n]
}
