package main

import (
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gobot.io/x/gobot/v2/platforms/adaptors"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/mastercactapus/metropedal/button"
	"github.com/mastercactapus/metropedal/display"
	"github.com/mastercactapus/metropedal/pedal"
)

const (
	LOW  = 0
	HIGH = 1
)

// board is the Raspberry Pi side of the pedal: footswitch inputs with
// pull-ups, the beat LED and the display's I2C bus.
type board struct {
	adapter *raspi.Adaptor
	pins    Pins

	led      bool
	ledKnown bool
}

// inputPins lists the switch pins that need pull-ups. Primary always comes
// first.
func inputPins(p Pins) []string {
	inputs := []string{strconv.Itoa(p.Primary), strconv.Itoa(p.Secondary)}
	if p.LiveGig != 0 {
		inputs = append(inputs, strconv.Itoa(p.LiveGig))
	}
	return inputs
}

func openBoard(p Pins) (*board, error) {
	inputs := inputPins(p)
	a := raspi.NewAdaptor(adaptors.WithGpiosPullUp(inputs[0], inputs[1:]...))
	if err := a.Connect(); err != nil {
		return nil, errors.Wrap(err, "connect raspi")
	}
	b := &board{adapter: a, pins: p}
	b.SetBeat(false)
	return b, nil
}

func (b *board) read(name string, pin int) (button.Level, error) {
	if pin == 0 {
		return button.High, nil
	}
	val, err := b.adapter.DigitalRead(strconv.Itoa(pin))
	if err != nil {
		return button.High, errors.Wrapf(err, "read %s switch (Pin%d)", name, pin)
	}
	return button.Level(val != LOW), nil
}

// Sample reads every switch. Pressed switches read LOW.
func (b *board) Sample() (in pedal.Inputs, err error) {
	if in.Primary, err = b.read(pedal.Primary, b.pins.Primary); err != nil {
		return in, err
	}
	if in.Secondary, err = b.read(pedal.Secondary, b.pins.Secondary); err != nil {
		return in, err
	}
	in.LiveGig, err = b.read(pedal.LiveGig, b.pins.LiveGig)
	return in, err
}

// SetBeat drives the LED, skipping writes that would not change the pin.
func (b *board) SetBeat(on bool) {
	if b.ledKnown && b.led == on {
		return
	}
	var val byte = LOW
	if on {
		val = HIGH
	}
	err := b.adapter.DigitalWrite(strconv.Itoa(b.pins.LED), val)
	if err != nil {
		log.WithFields(log.Fields{
			"ID":    "led",
			"Pin":   b.pins.LED,
			"State": on,
		}).Errorln("write led:", err)
		b.ledKnown = false
		return
	}
	b.led, b.ledKnown = on, true
}

// openDisplay attaches the HT16K33 backpack on the configured I2C bus.
func (b *board) openDisplay(c DisplayConfig) (*display.HT16K33, error) {
	conn, err := b.adapter.GetI2cConnection(c.Address, c.Bus)
	if err != nil {
		return nil, errors.Wrapf(err, "i2c bus %d address 0x%02x", c.Bus, c.Address)
	}
	return display.NewHT16K33(conn)
}

func (b *board) Close() error {
	b.SetBeat(false)
	return errors.Wrap(b.adapter.Finalize(), "finalize raspi")
}
