// SPDX-License-Identifier: MIT
package synth

import "math"

// MinFrequency is the smallest frequency an oscillator accepts. Anything
// at or below zero, or non-finite, is clamped here.
const MinFrequency = 1e-3

// Oscillator is a sawtooth generator driven one sample at a time.
//
// The ramp starts each period at +0.5 and falls by 1/(sampleRate/frequency)
// per sample. A period lasts int(sampleRate/frequency) samples, so the
// waveform repeats exactly on that integer boundary and never accumulates
// drift. Changing the frequency mid-period keeps the current value and only
// alters the slope from the next sample on. A drop in frequency can therefore
// carry the ramp below 0 until the period ends.
type Oscillator struct {
	frequency float64
	count     int     // samples elapsed in the current period
	value     float64 // ramp position, within [0, 1] while the frequency is constant
}

// NewOscillator returns an oscillator at frequency f, clamped like
// SetFrequency.
func NewOscillator(f float64) Oscillator {
	o := Oscillator{}
	o.Retune(f)
	return o
}

// SetFrequency replaces the frequency. The phase is not rescaled.
func (o *Oscillator) SetFrequency(f float64) error {
	if !o.Retune(f) {
		return frequencyError(f)
	}
	return nil
}

// Retune is SetFrequency for the audio thread. It reports false when f was
// clamped and never allocates.
func (o *Oscillator) Retune(f float64) bool {
	var ok bool
	o.frequency, ok = clampFrequency(f)
	return ok
}

// Frequency returns the current frequency in Hz.
func (o *Oscillator) Frequency() float64 {
	return o.frequency
}

// Reset restarts the period so the next sample is +0.5.
func (o *Oscillator) Reset() {
	o.count = 0
	o.value = 0
}

// NextSample advances one sample period and returns the waveform value,
// which stays in [-0.5, 0.5] as long as the frequency is not lowered
// mid-period. A degenerate sample rate yields silence.
func (o *Oscillator) NextSample(sampleRate float64) float64 {
	samplesPerPeriod := sampleRate / o.frequency
	if !(samplesPerPeriod > 0) || math.IsInf(samplesPerPeriod, 0) {
		return 0
	}

	if o.count == 0 {
		o.value = 1.0
	} else {
		o.value -= 1.0 / samplesPerPeriod
	}
	out := o.value - 0.5

	o.count++
	if o.count >= int(samplesPerPeriod) {
		o.count = 0
	}

	return out
}

func clampFrequency(f float64) (float64, bool) {
	if f > 0 && !math.IsInf(f, 0) {
		return f, true
	}
	return MinFrequency, false
}

func frequencyError(f float64) error {
	return &ParamError{Param: "frequency", Value: f, Clamped: MinFrequency}
}
