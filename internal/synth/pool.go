// SPDX-License-Identifier: MIT

/*
Package synth is the signal-generation core: sawtooth oscillators, voices
and a fixed-size polyphonic pool.

Everything here is owned by a single goroutine, the audio callback. None
of it locks, allocates after NewPool, or blocks. Parameter faults are
clamped and reported as ErrInvalidParameter so the caller can count them
without interrupting the stream.

Voice assignment is positional. NewNote takes the first inactive voice in
allocation order; when every voice is sounding it steals the last one.
Voices can also be released by pitch with NoteOff; stealing stays the
fallback when the pool is full.
*/
package synth

import (
	"fmt"
	"math"
)

// Pool owns N voices and sums the active ones into one sample per call.
type Pool struct {
	sampleRate float64
	voices     []Voice
	last       int // most recently assigned voice
}

// NewPool allocates voices inactive voices at DefaultFrequency.
func NewPool(sampleRate float64, voices int) (*Pool, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("sample rate %v: %w", sampleRate, ErrInvalidParameter)
	}
	if voices < 1 {
		return nil, fmt.Errorf("voice count %d: %w", voices, ErrInvalidParameter)
	}

	p := &Pool{
		sampleRate: sampleRate,
		voices:     make([]Voice, voices),
	}
	for i := range p.voices {
		p.voices[i] = newVoice(DefaultFrequency)
	}
	return p, nil
}

// DefaultFrequency is the pitch voices hold before their first note.
const DefaultFrequency = 440.0

// NextSample advances every active voice by one sample and returns their
// unclipped sum. Inactive voices neither contribute nor advance.
func (p *Pool) NextSample() float64 {
	var out float64
	for i := range p.voices {
		v := &p.voices[i]
		if v.active {
			out += v.osc.NextSample(p.sampleRate)
		}
	}
	return out
}

// NewNote assigns frequency f to the first inactive voice, or steals the
// last voice when all are active. It returns the slot used. A non-nil error
// only reports that f was clamped; the note is assigned either way.
func (p *Pool) NewNote(f float64) (int, error) {
	i, ok := p.Trigger(f)
	if !ok {
		return i, frequencyError(f)
	}
	return i, nil
}

// Trigger is NewNote for the audio thread. It never allocates and reports
// false when f was clamped.
func (p *Pool) Trigger(f float64) (int, bool) {
	for i := range p.voices {
		v := &p.voices[i]
		if !v.active {
			ok := v.Retune(f)
			v.NoteOn()
			p.last = i
			return i, ok
		}
	}

	i := len(p.voices) - 1
	v := &p.voices[i]
	v.NoteOff()
	ok := v.Retune(f)
	v.NoteOn()
	p.last = i
	return i, ok
}

// NoteOff releases the first active voice, in allocation order, whose
// frequency equals f. It reports whether a voice was released.
func (p *Pool) NoteOff(f float64) bool {
	for i := range p.voices {
		v := &p.voices[i]
		if v.active && v.frequency == f {
			v.NoteOff()
			return true
		}
	}
	return false
}

// AllNotesOff releases every voice.
func (p *Pool) AllNotesOff() {
	for i := range p.voices {
		p.voices[i].NoteOff()
	}
}

// SetFrequency re-pitches the most recently assigned voice, or voice 0
// before any note was played.
func (p *Pool) SetFrequency(f float64) error {
	return p.voices[p.last].SetFrequency(f)
}

// Retune is the non-allocating form of SetFrequency; false means f was
// clamped.
func (p *Pool) Retune(f float64) bool {
	return p.voices[p.last].Retune(f)
}

// Voice returns the voice at slot i.
func (p *Pool) Voice(i int) *Voice {
	return &p.voices[i]
}

// Len returns the polyphony limit N.
func (p *Pool) Len() int {
	return len(p.voices)
}

// ActiveCount returns the number of sounding voices.
func (p *Pool) ActiveCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// SampleRate returns the rate fixed at construction.
func (p *Pool) SampleRate() float64 {
	return p.sampleRate
}
