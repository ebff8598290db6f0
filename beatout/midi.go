// Package beatout forwards metronome beats to external gear.
package beatout

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// MIDI plays a short note on every beat, for drum machines and click
// modules.
type MIDI struct {
	send     func(msg midi.Message) error
	port     drivers.Out
	channel  uint8
	note     uint8
	velocity uint8
	failing  bool
}

// OpenMIDI opens the named output port. A MIDI driver must be registered by
// the caller.
func OpenMIDI(portName string, channel, note, velocity uint8) (*MIDI, error) {
	out, err := midi.FindOutPort(portName)
	if err != nil {
		return nil, errors.Wrapf(err, "find midi port %q", portName)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, errors.Wrapf(err, "open midi port %q", portName)
	}
	m := NewMIDI(send, channel, note, velocity)
	m.port = out
	return m, nil
}

// NewMIDI sends beats through send.
func NewMIDI(send func(msg midi.Message) error, channel, note, velocity uint8) *MIDI {
	return &MIDI{send: send, channel: channel & 0x0f, note: note & 0x7f, velocity: velocity & 0x7f}
}

// Beat sends a note on immediately followed by its note off.
func (m *MIDI) Beat(bpm int) {
	err := m.send(midi.NoteOn(m.channel, m.note, m.velocity))
	if err == nil {
		err = m.send(midi.NoteOff(m.channel, m.note))
	}
	if err != nil {
		if !m.failing {
			log.Warnln("midi beat:", err)
		}
		m.failing = true
		return
	}
	m.failing = false
}

func (m *MIDI) Close() error {
	if m.port == nil {
		return nil
	}
	return m.port.Close()
}
