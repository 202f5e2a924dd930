// SPDX-License-Identifier: MIT
package synth

import (
	"errors"
	"math"
	"testing"
)

func newTestPool(t testing.TB, n int) *Pool {
	t.Helper()
	p, err := NewPool(testSampleRate, n)
	if err != nil {
		t.Fatalf("NewPool(%v, %d) error = %v", testSampleRate, n, err)
	}
	return p
}

func TestNewPoolValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		voices     int
	}{
		{"Zero voices", testSampleRate, 0},
		{"Negative voices", testSampleRate, -3},
		{"Zero sample rate", 0, 4},
		{"NaN sample rate", math.NaN(), 4},
		{"Inf sample rate", math.Inf(1), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPool(tt.sampleRate, tt.voices)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("NewPool() error = %v, want ErrInvalidParameter", err)
			}
			if p != nil {
				t.Error("NewPool() should return nil pool on error")
			}
		})
	}
}

func TestPoolStartsSilent(t *testing.T) {
	p := newTestPool(t, 4)

	if p.Len() != 4 || p.ActiveCount() != 0 {
		t.Fatalf("Len=%d ActiveCount=%d, want 4/0", p.Len(), p.ActiveCount())
	}
	for i := range 100 {
		if s := p.NextSample(); s != 0 {
			t.Fatalf("sample[%d] = %v from an idle pool", i, s)
		}
	}
}

func TestPoolStealsLastVoice(t *testing.T) {
	p := newTestPool(t, 4)
	notes := []float64{220, 330, 440, 550, 660}

	for i, f := range notes {
		slot, err := p.NewNote(f)
		if err != nil {
			t.Fatalf("NewNote(%v) error = %v", f, err)
		}
		want := min(i, 3)
		if slot != want {
			t.Errorf("NewNote(%v) slot = %d, want %d", f, slot, want)
		}
	}

	for i, want := range []float64{220, 330, 440, 660} {
		v := p.Voice(i)
		if !v.Active() || v.Frequency() != want {
			t.Errorf("voice[%d] active=%v frequency=%v, want true/%v", i, v.Active(), v.Frequency(), want)
		}
	}
}

func TestPoolTwoVoiceScenario(t *testing.T) {
	p := newTestPool(t, 2)

	p.NewNote(220)
	p.NewNote(440)
	if p.Voice(0).Frequency() != 220 || p.Voice(1).Frequency() != 440 {
		t.Fatalf("frequencies = %v/%v, want 220/440", p.Voice(0).Frequency(), p.Voice(1).Frequency())
	}
	if p.ActiveCount() != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", p.ActiveCount())
	}

	p.NewNote(880)
	if v := p.Voice(0); !v.Active() || v.Frequency() != 220 {
		t.Errorf("voice[0] active=%v frequency=%v, want true/220", v.Active(), v.Frequency())
	}
	if v := p.Voice(1); !v.Active() || v.Frequency() != 880 {
		t.Errorf("voice[1] active=%v frequency=%v, want true/880", v.Active(), v.Frequency())
	}
}

func TestPoolReusesReleasedSlot(t *testing.T) {
	p := newTestPool(t, 3)
	p.NewNote(100)
	p.NewNote(200)
	p.NewNote(300)

	if !p.NoteOff(200) {
		t.Fatal("NoteOff(200) should release a voice")
	}
	if p.Voice(1).Active() {
		t.Fatal("voice[1] should be released")
	}

	slot, _ := p.NewNote(400)
	if slot != 1 {
		t.Errorf("NewNote after release slot = %d, want 1", slot)
	}
}

func TestPoolNoteOffByPitch(t *testing.T) {
	p := newTestPool(t, 4)
	p.NewNote(440)
	p.NewNote(440)

	if p.NoteOff(123) {
		t.Error("NoteOff of an unplayed pitch should report false")
	}

	// Releases in allocation order, one voice per call.
	if !p.NoteOff(440) || p.Voice(0).Active() || !p.Voice(1).Active() {
		t.Errorf("first NoteOff(440) should release voice 0 only")
	}
	if !p.NoteOff(440) || p.Voice(1).Active() {
		t.Errorf("second NoteOff(440) should release voice 1")
	}
	if p.NoteOff(440) {
		t.Error("third NoteOff(440) should find nothing")
	}
	if p.Voice(0).Frequency() != 440 {
		t.Error("NoteOff must not alter the frequency")
	}
}

func TestPoolAllNotesOff(t *testing.T) {
	p := newTestPool(t, 3)
	p.NewNote(110)
	p.NewNote(220)

	p.AllNotesOff()
	if p.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d after AllNotesOff", p.ActiveCount())
	}
	if s := p.NextSample(); s != 0 {
		t.Errorf("NextSample() = %v after AllNotesOff", s)
	}
}

func TestPoolSetFrequencyTargetsLastAssigned(t *testing.T) {
	p := newTestPool(t, 3)

	// Before any note, voice 0 is pre-assigned.
	p.SetFrequency(300)
	if p.Voice(0).Frequency() != 300 {
		t.Errorf("voice[0] frequency = %v, want 300", p.Voice(0).Frequency())
	}

	p.NewNote(100)
	p.NewNote(200)
	p.SetFrequency(250)
	if p.Voice(1).Frequency() != 250 || p.Voice(0).Frequency() != 100 {
		t.Errorf("frequencies = %v/%v, want 100/250", p.Voice(0).Frequency(), p.Voice(1).Frequency())
	}
}

func TestPoolInvalidNoteIsClampedAndAssigned(t *testing.T) {
	p := newTestPool(t, 2)

	slot, err := p.NewNote(math.NaN())
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("NewNote(NaN) error = %v, want ErrInvalidParameter", err)
	}
	if v := p.Voice(slot); !v.Active() || v.Frequency() != MinFrequency {
		t.Errorf("voice[%d] active=%v frequency=%v, want true/%v", slot, v.Active(), v.Frequency(), MinFrequency)
	}
	for range 100 {
		if s := p.NextSample(); math.IsNaN(s) {
			t.Fatal("NaN leaked into the output")
		}
	}
}

func TestPoolInactiveVoicesDoNotAdvance(t *testing.T) {
	p := newTestPool(t, 2)
	p.NewNote(440)
	p.NewNote(440)

	for range 10 {
		p.NextSample()
	}
	p.Voice(1).NoteOff()
	for range 25 {
		p.NextSample()
	}

	// Voice 0 is 35 samples in, voice 1 resumes from sample 10.
	p.Voice(1).NoteOn()
	reference := NewOscillator(440)
	render(&reference, 10)
	want := reference.NextSample(testSampleRate)

	v1 := p.Voice(1).Oscillator()
	if got := v1.NextSample(testSampleRate); math.Abs(got-want) > tolerance {
		t.Errorf("re-triggered voice sample = %f, want resumed %f", got, want)
	}
}

func TestPoolSingleVoiceRange(t *testing.T) {
	for _, f := range []float64{27.5, 440, 3520, 20000} {
		p := newTestPool(t, 4)
		p.NewNote(f)
		for i := range 5000 {
			if s := p.NextSample(); s < -0.5 || s > 0.5 {
				t.Fatalf("f=%v sample[%d] = %f out of range", f, i, s)
			}
		}
	}
}

func TestPoolLinearity(t *testing.T) {
	for _, k := range []int{2, 3, 4} {
		multi := newTestPool(t, k)
		for range k {
			multi.NewNote(440)
		}
		ref := newTestPool(t, 1)
		ref.NewNote(440)

		for i := range 500 {
			want := float64(k) * ref.NextSample()
			if got := multi.NextSample(); math.Abs(got-want) > 1e-9 {
				t.Fatalf("k=%d sample[%d] = %f, want %f", k, i, got, want)
			}
		}
	}
}

func TestPoolClampingNoAllocations(t *testing.T) {
	p := newTestPool(t, 4)
	allocs := testing.AllocsPerRun(100, func() {
		p.Trigger(math.NaN())
		p.Trigger(0)
		p.Retune(-1)
		p.AllNotesOff()
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations when clamping, got %.1f", allocs)
	}

	if _, ok := p.Trigger(math.Inf(1)); ok {
		t.Error("Trigger(+Inf) reported no clamping")
	}
	if got := p.Voice(0).Frequency(); got != MinFrequency {
		t.Errorf("clamped voice frequency = %v, want %v", got, MinFrequency)
	}
	if !p.Retune(220) || p.Voice(0).Frequency() != 220 {
		t.Errorf("Retune(220) left voice at %v", p.Voice(0).Frequency())
	}

	var pe *ParamError
	if _, err := p.NewNote(0); !errors.As(err, &pe) || !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("NewNote(0) error = %v, want *ParamError wrapping ErrInvalidParameter", err)
	}
}

func TestPoolNoAllocations(t *testing.T) {
	p := newTestPool(t, 8)
	allocs := testing.AllocsPerRun(100, func() {
		p.NewNote(440)
		p.NextSample()
		p.NoteOff(440)
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations in the pool hot path, got %.1f", allocs)
	}
}

func BenchmarkPoolNextSample(b *testing.B) {
	p := newTestPool(b, 16)
	for i := range 16 {
		p.NewNote(110 * float64(i+1))
	}
	b.ReportAllocs()
	for b.Loop() {
		_ = p.NextSample()
	}
}
