// SPDX-License-Identifier: MIT
package synth

// Voice is one sounding note: an oscillator gated by an active flag.
// Voices are created inactive and recycled for the lifetime of a Pool.
type Voice struct {
	osc       Oscillator
	active    bool
	frequency float64
}

func newVoice(f float64) Voice {
	osc := NewOscillator(f)
	return Voice{osc: osc, frequency: osc.Frequency()}
}

// NoteOn activates the voice. It does not reset the oscillator, so a
// re-triggered voice resumes from its last phase.
func (v *Voice) NoteOn() {
	v.active = true
}

// NoteOff deactivates the voice. Calling it on an inactive voice is a no-op.
func (v *Voice) NoteOff() {
	v.active = false
}

// SetFrequency re-pitches the voice and its oscillator, active or not.
func (v *Voice) SetFrequency(f float64) error {
	if !v.Retune(f) {
		return frequencyError(f)
	}
	return nil
}

// Retune is the non-allocating form of SetFrequency; false means f was
// clamped.
func (v *Voice) Retune(f float64) bool {
	ok := v.osc.Retune(f)
	v.frequency = v.osc.Frequency()
	return ok
}

// Active reports whether the voice contributes to the output.
func (v *Voice) Active() bool {
	return v.active
}

// Frequency returns the last assigned pitch.
func (v *Voice) Frequency() float64 {
	return v.frequency
}

// Oscillator exposes the voice's generator.
func (v *Voice) Oscillator() *Oscillator {
	return &v.osc
}
