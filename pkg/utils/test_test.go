// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"os"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

var testMagnitudes []float64

func TestMain(m *testing.M) {
	testMagnitudes = make([]float64, testSize)

	// A "hill" with its peak at testSize/4.
	for i := range testMagnitudes {
		testMagnitudes[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	os.Exit(m.Run())
}

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}

	if mt.Last() != nil {
		t.Error("Last() on empty transport should be nil")
	}

	for i := range 3 {
		if err := mt.Send(i); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	if mt.Len() != 3 {
		t.Errorf("Len() = %d, want 3", mt.Len())
	}
	if got := mt.Last(); got != 2 {
		t.Errorf("Last() = %v, want 2", got)
	}

	if err := mt.Close(); err != nil || !mt.Closed {
		t.Errorf("Close() = %v, Closed = %v", err, mt.Closed)
	}
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 1024, 44100, 440.0},
		{"Middle C", 1024, 44100, 261.63},
		{"High Sample Rate", 1024, 192000, 440.0},
		{"Low Sample Rate", 1024, 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSineWave(tt.size, tt.sampleRate, tt.frequency)

			if len(result) != tt.size {
				t.Fatalf("GenerateSineWave() buffer size = %d, want %d", len(result), tt.size)
			}

			samplesPerCycle := tt.sampleRate / tt.frequency
			crossCount := 0
			for i := 1; i < tt.size; i++ {
				if (result[i-1] < 0) != (result[i] < 0) {
					crossCount++
				}
			}

			// Two crossings per cycle, 20% margin for phase alignment.
			expected := float64(tt.size) / (samplesPerCycle / 2)
			tolerance := 0.2 * expected
			if math.Abs(float64(crossCount)-expected) > tolerance {
				t.Errorf("zero crossings = %d, expected approximately %.1f±%.1f",
					crossCount, expected, tolerance)
			}
		})
	}
}

func TestGenerateComplexWave(t *testing.T) {
	result := GenerateComplexWave(testSize, testSampleRate)
	if len(result) != testSize {
		t.Fatalf("GenerateComplexWave() buffer size = %d, want %d", len(result), testSize)
	}
	for _, v := range result {
		if math.Abs(v) > 1.0 {
			t.Fatalf("sample %f exceeds unit range", v)
		}
	}
}

func TestFindPeakBin(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		end      int
		expected int
	}{
		{"Full range", 0, testSize - 1, testSize / 4},
		{"Clamped bounds", -10, testSize * 2, testSize / 4},
		{"Range after peak", testSize/2, testSize - 1, testSize / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(testMagnitudes, tt.start, tt.end); got != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}

	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(nil) = %d, want 0", got)
	}
}

func TestAlmostEqual(t *testing.T) {
	if !AlmostEqual(0.5, 0.5004, 1e-3) {
		t.Error("expected values within tolerance")
	}
	if AlmostEqual(0.5, 0.52, 1e-3) {
		t.Error("expected values outside tolerance")
	}
}
