// SPDX-License-Identifier: MIT
package analysis

// AudioProcessor consumes blocks of mono output samples. Processors run on
// the monitor goroutine, never on the audio callback.
type AudioProcessor interface {
	Process(block []float32)
}

// ClosableProcessor combines AudioProcessor with a Close method for resource cleanup.
type ClosableProcessor interface {
	AudioProcessor
	Close() error // Close releases any resources held by the processor.
}

// FFTResultProvider decouples spectrum consumers (band levels, the UDP
// publisher, the TUI meter) from the FFT implementation.
type FFTResultProvider interface {
	GetMagnitudes() []float64                // GetMagnitudes returns a thread-safe copy of the latest FFT magnitude spectrum.
	GetMagnitudesInto(dest []float64) error  // GetMagnitudesInto copies the spectrum without allocating.
	GetFrequencyForBin(binIndex int) float64 // GetFrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
	GetFFTSize() int                         // GetFFTSize returns the size (number of points) of the FFT.
	GetSampleRate() float64                  // GetSampleRate returns the sample rate used for the FFT analysis.
}
