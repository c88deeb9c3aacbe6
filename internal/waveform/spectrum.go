package waveform

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	fftSize     = 256
	minDecibels = -100
	maxDecibels = -30
)

// analyser mirrors a web audio AnalyserNode without smoothing: a Blackman
// window, an fftSize-point FFT and magnitudes mapped from
// [minDecibels, maxDecibels] onto 0..255. Not safe for concurrent use.
type analyser struct {
	fft    *fourier.FFT
	buf    []float64
	coeffs []complex128
}

func newAnalyser() *analyser {
	return &analyser{
		fft:    fourier.NewFFT(fftSize),
		buf:    make([]float64, fftSize),
		coeffs: make([]complex128, fftSize/2+1),
	}
}

// frequencies returns fftSize/2 byte bins for the window starting at start;
// samples past the end read as silence.
func (a *analyser) frequencies(samples []float32, start int) []byte {
	for i := range a.buf {
		a.buf[i] = 0
		if j := start + i; j >= 0 && j < len(samples) {
			a.buf[i] = float64(samples[j])
		}
	}
	window.Blackman(a.buf)
	a.coeffs = a.fft.Coefficients(a.coeffs, a.buf)

	out := make([]byte, fftSize/2)
	for k := range out {
		mag := cmplx.Abs(a.coeffs[k]) / fftSize
		out[k] = toByte(20 * math.Log10(mag))
	}
	return out
}

func toByte(db float64) byte {
	if math.IsInf(db, -1) || math.IsNaN(db) {
		return 0
	}
	v := 255 * (db - minDecibels) / (maxDecibels - minDecibels)
	return byte(max(0, min(255, math.Floor(v))))
}
