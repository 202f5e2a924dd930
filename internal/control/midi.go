// SPDX-License-Identifier: MIT
package control

import (
	"context"
	"errors"
	"fmt"
	"math"

	applog "polysynth/internal/log"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the rtmidi driver
)

// ErrNoMIDIPort is returned when no MIDI input port matches.
var ErrNoMIDIPort = errors.New("no MIDI input port")

// Concert pitch for NoteFrequency.
const (
	ReferenceKey       = 69
	ReferenceFrequency = 440.0
	pitchBendRange     = 2.0 // semitones either way
)

// MIDI controller numbers handled by MIDIInput.
const (
	ccVolume      = 7
	ccAllNotesOff = 123
)

// NoteFrequency converts a MIDI key number to Hz in equal temperament.
func NoteFrequency(key uint8) float64 {
	return ReferenceFrequency * math.Pow(2, float64(int(key)-ReferenceKey)/12)
}

// MIDIInput turns MIDI channel messages into control messages:
//
//	note on        -> NoteTrigger(frequency of key)
//	note off       -> NoteRelease(frequency the key is sounding at)
//	CC 7 volume    -> SetAmplitude(value/127)
//	CC 123         -> AllNotesOff
//	pitch bend     -> SetFrequency(last note bent by ±2 semitones)
//
// Messages on every channel are accepted.
type MIDIInput struct {
	sender  Sender
	lastKey int // -1 before the first note
	bentHz  float64
}

// NewMIDIInput returns a MIDIInput that forwards to sender.
func NewMIDIInput(sender Sender) *MIDIInput {
	return &MIDIInput{sender: sender, lastKey: -1}
}

// Handle translates one MIDI message. Unhandled messages are ignored.
func (in *MIDIInput) Handle(msg midi.Message) {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		f := NoteFrequency(key)
		in.lastKey = int(key)
		in.bentHz = f
		in.send(NoteTrigger(f))

	case msg.GetNoteEnd(&ch, &key):
		f := NoteFrequency(key)
		if int(key) == in.lastKey {
			f = in.bentHz
		}
		in.send(NoteRelease(f))

	case msg.GetControlChange(&ch, &cc, &val):
		switch cc {
		case ccVolume:
			in.send(SetAmplitude(float64(val) / 127))
		case ccAllNotesOff:
			in.send(AllNotesOff())
		}

	case msg.GetPitchBend(&ch, &rel, &abs):
		if in.lastKey < 0 {
			return
		}
		semitones := float64(rel) / 8192 * pitchBendRange
		in.bentHz = NoteFrequency(uint8(in.lastKey)) * math.Pow(2, semitones/12)
		in.send(SetFrequency(in.bentHz))
	}
}

func (in *MIDIInput) send(m Message) {
	if !in.sender.Send(m) {
		applog.Warnf("MIDI: control queue full, dropped %s", m)
	}
}

// ListenMIDI opens the first input port whose name contains port (any port
// when empty) and forwards its messages to sender until ctx is cancelled.
func ListenMIDI(ctx context.Context, port string, sender Sender) error {
	defer midi.CloseDriver()

	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return ErrNoMIDIPort
	}

	in := ins[0]
	if port != "" {
		found, err := midi.FindInPort(port)
		if err != nil {
			return fmt.Errorf("%w matching %q: %v", ErrNoMIDIPort, port, err)
		}
		in = found
	}

	input := NewMIDIInput(sender)
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		input.Handle(msg)
	}, midi.HandleError(func(err error) {
		applog.Warnf("MIDI: listener error on %s: %v", in.String(), err)
	}))
	if err != nil {
		return fmt.Errorf("failed to listen on MIDI port %s: %w", in.String(), err)
	}
	applog.Infof("MIDI: listening on %s", in.String())

	<-ctx.Done()
	stop()
	applog.Infof("MIDI: stopped listening on %s", in.String())
	return nil
}
