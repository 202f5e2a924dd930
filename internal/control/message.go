// SPDX-License-Identifier: MIT

// Package control carries parameter changes from control surfaces to the
// audio callback. Messages are small fixed-size values so they can sit in a
// preallocated ring without boxing.
package control

import (
	"encoding/json"
	"fmt"
)

// Kind tags a Message.
type Kind uint8

const (
	KindSetAmplitude Kind = iota + 1 // Master amplitude in [0, 1].
	KindSetFrequency                 // Re-pitch the most recently assigned voice, Hz.
	KindNoteTrigger                  // Start a note, Hz.
	KindNoteRelease                  // Release the voice sounding at this pitch, Hz.
	KindAllNotesOff                  // Release every voice; Value unused.
)

var kindNames = map[Kind]string{
	KindSetAmplitude: "set_amplitude",
	KindSetFrequency: "set_frequency",
	KindNoteTrigger:  "note_trigger",
	KindNoteRelease:  "note_release",
	KindAllNotesOff:  "all_notes_off",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the Kind for a wire name such as "note_trigger".
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown control message type %q", name)
}

// Message is one atomic parameter change or note event. Queue order is
// application order.
type Message struct {
	Kind  Kind
	Value float64
}

func SetAmplitude(v float64) Message { return Message{Kind: KindSetAmplitude, Value: v} }
func SetFrequency(f float64) Message { return Message{Kind: KindSetFrequency, Value: f} }
func NoteTrigger(f float64) Message  { return Message{Kind: KindNoteTrigger, Value: f} }
func NoteRelease(f float64) Message  { return Message{Kind: KindNoteRelease, Value: f} }
func AllNotesOff() Message           { return Message{Kind: KindAllNotesOff} }

func (m Message) String() string {
	return fmt.Sprintf("%s(%g)", m.Kind, m.Value)
}

type wireMessage struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// MarshalJSON encodes {"type":"note_trigger","value":440}.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{Type: m.Kind.String(), Value: m.Value})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, err := ParseKind(w.Type)
	if err != nil {
		return err
	}
	m.Kind = kind
	m.Value = w.Value
	return nil
}
