// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math/cmplx"
	"strings"
	"sync"

	"polysynth/internal/log"
	"polysynth/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

var ErrMagnitudeLength = errors.New("destination length does not match spectrum length")

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

var windowNames = [...]string{
	BartlettHann:    "BartlettHann",
	Blackman:        "Blackman",
	BlackmanNuttall: "BlackmanNuttall",
	Hann:            "Hann",
	Hamming:         "Hamming",
	Lanczos:         "Lanczos",
	Nuttall:         "Nuttall",
}

func (w WindowFunc) String() string {
	if w < 0 || int(w) >= len(windowNames) {
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
	return windowNames[w]
}

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	history   []float64    // Last fftSize samples, circular.
	pos       int          // Next write index into history.
	pending   int          // Samples received since the last transform.
	input     []float64    // Buffer for windowed input signal.
	fftOutput []complex128 // Buffer for FFT complex results.
	magnitude []float64    // Buffer for calculated magnitudes.
	window    []float64    // Pre-calculated window coefficients.
	norm      float64      // Scales a full-scale sine to magnitude 1.
	mu        sync.RWMutex // Protects concurrent access to magnitude buffer.
}

// FFTProcessor keeps a sliding window over the synth output and transforms
// it every half window. Results are read through FFTResultProvider.
type FFTProcessor struct {
	fftCalculator *fourier.FFT // Reusable FFT calculator instance.
	fftSize       int          // Number of points for the FFT (power of 2).
	hop           int          // Samples between transforms.
	sampleRate    float64      // Sample rate of the analysed signal (Hz).
	windowType    WindowFunc
	workspace     fftWorkspace // Pre-allocated buffers.
}

// Compile-time checks for interface implementations.
var _ AudioProcessor = (*FFTProcessor)(nil)
var _ FFTResultProvider = (*FFTProcessor)(nil)
var _ ClosableProcessor = (*FFTProcessor)(nil)

// NewFFTProcessor allocates every buffer up front; Process does not allocate.
func NewFFTProcessor(fftSize int, sampleRate float64, windowType WindowFunc) (*FFTProcessor, error) {
	if !bitint.IsPowerOfTwo(fftSize) || fftSize < 2 {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if !(sampleRate > 0) {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	windowCoeffs := make([]float64, fftSize)
	applyWindow(windowCoeffs, windowType)
	var sum float64
	for _, c := range windowCoeffs {
		sum += c
	}

	// FFT output size for real input is N/2 + 1 complex values.
	magnitudeSize := fftSize/2 + 1

	log.Infof("Analysis: Initializing FFTProcessor (Size: %d, SampleRate: %.1f Hz, Window: %v)", fftSize, sampleRate, windowType)

	return &FFTProcessor{
		fftCalculator: fourier.NewFFT(fftSize),
		fftSize:       fftSize,
		hop:           fftSize / 2,
		sampleRate:    sampleRate,
		windowType:    windowType,
		workspace: fftWorkspace{
			history:   make([]float64, fftSize),
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, magnitudeSize),
			magnitude: make([]float64, magnitudeSize),
			window:    windowCoeffs,
			norm:      2 / sum,
		},
	}, nil
}

// Process appends block to the sliding window and transforms once per hop.
func (p *FFTProcessor) Process(block []float32) {
	ws := &p.workspace
	mask := p.fftSize - 1
	for _, s := range block {
		ws.history[ws.pos] = float64(s)
		ws.pos = (ws.pos + 1) & mask
		ws.pending++
		if ws.pending >= p.hop {
			p.transform()
			ws.pending = 0
		}
	}
}

func (p *FFTProcessor) transform() {
	ws := &p.workspace
	mask := p.fftSize - 1

	// Oldest sample first.
	for i := range p.fftSize {
		ws.input[i] = ws.history[(ws.pos+i)&mask] * ws.window[i]
	}
	p.fftCalculator.Coefficients(ws.fftOutput, ws.input)

	ws.mu.Lock()
	for i, c := range ws.fftOutput {
		ws.magnitude[i] = cmplx.Abs(c) * ws.norm
	}
	ws.mu.Unlock()
}

// GetMagnitudes returns a thread-safe copy of the latest calculated FFT magnitudes.
// For readers wanting to avoid allocation, use GetMagnitudesInto.
func (p *FFTProcessor) GetMagnitudes() []float64 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	magCopy := make([]float64, len(p.workspace.magnitude))
	copy(magCopy, p.workspace.magnitude)
	return magCopy
}

// GetMagnitudesInto copies the latest magnitudes into dest, which must have
// length fftSize/2 + 1.
func (p *FFTProcessor) GetMagnitudesInto(dest []float64) error {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	if len(dest) != len(p.workspace.magnitude) {
		return fmt.Errorf("%w: got %d, want %d", ErrMagnitudeLength, len(dest), len(p.workspace.magnitude))
	}

	copy(dest, p.workspace.magnitude)
	return nil
}

// GetFrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
func (p *FFTProcessor) GetFrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(p.workspace.fftOutput) {
		return 0.0
	}
	return float64(binIndex) * (p.sampleRate / float64(p.fftSize))
}

// GetFFTSize returns the configured FFT size (number of points).
func (p *FFTProcessor) GetFFTSize() int {
	return p.fftSize
}

// GetSampleRate returns the configured sample rate (Hz).
func (p *FFTProcessor) GetSampleRate() float64 {
	return p.sampleRate
}

// PeakFrequency returns the center frequency of the strongest non-DC bin,
// or 0 before the first transform.
func (p *FFTProcessor) PeakFrequency() float64 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	peak, peakMag := 0, 0.0
	for i := 1; i < len(p.workspace.magnitude); i++ {
		if m := p.workspace.magnitude[i]; m > peakMag {
			peak, peakMag = i, m
		}
	}
	return p.GetFrequencyForBin(peak)
}

// Close implements ClosableProcessor. The processor holds no external resources.
func (p *FFTProcessor) Close() error {
	log.Debugf("Analysis: Closing FFTProcessor")
	return nil
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window, Hann if unknown.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// The gonum window funcs scale in place.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		log.Warnf("Analysis: Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
