package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// ErrTooShort indicates a series too short for spectral analysis.
var ErrTooShort = errors.New("analysis: series too short")

// PowerSpectrum returns the magnitude of the first half of the DFT of data
// after removing the mean and applying a Hann window.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n < 2 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	windowed := make([]float64, n)
	for i, v := range data {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = (v - mean) * w
	}

	spectrum := fft.FFTReal(windowed)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// Spectrum is the dominant component of a uniformly sampled series.
type Spectrum struct {
	Power     []float64
	BinWidth  float64
	Dominant  float64
	PeakPower float64
}

// DominantFrequency finds the strongest non-DC frequency of samples spaced h apart.
func DominantFrequency(values []float64, h float64) (*Spectrum, error) {
	if len(values) < 4 {
		return nil, ErrTooShort
	}
	ps := PowerSpectrum(values)
	s := &Spectrum{
		Power:    ps,
		BinWidth: 1 / (float64(len(values)) * h),
	}
	peak := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > s.PeakPower {
			s.PeakPower = ps[i]
			peak = i
		}
	}
	s.Dominant = float64(peak) * s.BinWidth
	return s, nil
}
