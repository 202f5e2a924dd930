// SPDX-License-Identifier: MIT
package audio

import "math"

// VoiceState is the published view of one pool slot.
type VoiceState struct {
	Active    bool    `json:"active"`
	Frequency float64 `json:"frequency"`
}

// Snapshot is a point-in-time view of the engine for status displays. Values
// are read individually, so a snapshot taken mid-callback may mix two
// consecutive callbacks.
type Snapshot struct {
	Type            string       `json:"type"`
	SampleRate      float64      `json:"sample_rate"`
	Channels        int          `json:"channels"`
	Amplitude       float64      `json:"amplitude"`
	ActiveVoices    int          `json:"active_voices"`
	Voices          []VoiceState `json:"voices"`
	Callbacks       uint64       `json:"callbacks"`
	Frames          uint64       `json:"frames"`
	Messages        uint64       `json:"messages"`
	InvalidParams   uint64       `json:"invalid_params"`
	DroppedMessages uint64       `json:"dropped_messages"`
	DroppedSamples  uint64       `json:"dropped_samples"`
}

// Snapshot returns the latest published state. Safe from any goroutine.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Type:            "status",
		SampleRate:      e.sampleRate,
		Channels:        e.channels,
		Amplitude:       math.Float64frombits(e.stats.amplitude.Load()),
		ActiveVoices:    int(e.stats.activeVoices.Load()),
		Voices:          make([]VoiceState, len(e.stats.voiceHz)),
		Callbacks:       e.stats.callbacks.Load(),
		Frames:          e.stats.frames.Load(),
		Messages:        e.stats.messages.Load(),
		InvalidParams:   e.stats.invalidParams.Load(),
		DroppedMessages: e.queue.Dropped(),
		DroppedSamples:  e.tap.Dropped(),
	}
	for i := range s.Voices {
		s.Voices[i] = VoiceState{
			Active:    e.stats.voiceOn[i].Load(),
			Frequency: math.Float64frombits(e.stats.voiceHz[i].Load()),
		}
	}
	return s
}
