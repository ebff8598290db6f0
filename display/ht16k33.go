package display

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultAddress is the backpack's I2C address with no jumpers set.
const DefaultAddress = 0x70

const (
	cmdOscillatorOn = 0x21
	cmdDisplayOn    = 0x81
	cmdDisplayOff   = 0x80
	cmdBrightness   = 0xE0
)

// Bus is the subset of an I2C connection the HT16K33 needs. A gobot
// i2c.Connection satisfies it.
type Bus interface {
	WriteByte(val byte) error
	WriteBlockData(reg uint8, data []byte) error
}

// HT16K33 drives a four digit 14-segment backpack.
type HT16K33 struct {
	bus  Bus
	ram  [Width * 2]byte
	last Frame
}

// NewHT16K33 starts the oscillator, turns the display on and clears it.
func NewHT16K33(bus Bus) (*HT16K33, error) {
	d := &HT16K33{bus: bus}
	for _, cmd := range []byte{cmdOscillatorOn, cmdDisplayOn} {
		if err := bus.WriteByte(cmd); err != nil {
			return nil, errors.Wrapf(err, "ht16k33 command 0x%02x", cmd)
		}
	}
	if err := d.write(Frame{}); err != nil {
		return nil, err
	}
	return d, nil
}

// SetBrightness sets the dimming level, 0 to 15.
func (d *HT16K33) SetBrightness(level uint8) error {
	if level > 15 {
		level = 15
	}
	return errors.Wrap(d.bus.WriteByte(cmdBrightness|level), "ht16k33 brightness")
}

// Render writes the formatted view. Unchanged frames are not resent.
func (d *HT16K33) Render(v View) error {
	f := Format(v)
	if f == d.last {
		return nil
	}
	log.WithField("Frame", f.String()).Debugln("display")
	return d.write(f)
}

func (d *HT16K33) write(f Frame) error {
	for i, g := range f {
		seg := Segments(g.Char, g.Dot)
		d.ram[i*2] = byte(seg)
		d.ram[i*2+1] = byte(seg >> 8)
	}
	if err := d.bus.WriteBlockData(0x00, d.ram[:]); err != nil {
		return errors.Wrap(err, "ht16k33 write")
	}
	d.last = f
	return nil
}

// Close blanks the display and turns it off.
func (d *HT16K33) Close() error {
	if err := d.write(Frame{}); err != nil {
		return err
	}
	return errors.Wrap(d.bus.WriteByte(cmdDisplayOff), "ht16k33 off")
}
