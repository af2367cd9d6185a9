package analysis

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

var ErrShortSignal = errors.New("analysis: signal too short")

// Spectrum is the one-sided power spectrum of a real signal.
type Spectrum struct {
	Freqs []float64 // Hz
	Power []float64
}

// PowerSpectrum removes the mean of signal, sampled every dt seconds, and
// returns |X(f)|^2 for f from 0 to the Nyquist frequency.
func PowerSpectrum(signal []float64, dt float64) (Spectrum, error) {
	n := len(signal)
	if n < 4 {
		return Spectrum{}, errors.Wrapf(ErrShortSignal, "%d samples", n)
	}
	if dt <= 0 {
		return Spectrum{}, errors.Errorf("analysis: sample time %g must be positive", dt)
	}

	centered := make([]float64, n)
	copy(centered, signal)
	floats.AddConst(-floats.Sum(signal)/float64(n), centered)

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)

	s := Spectrum{Freqs: make([]float64, len(coeff)), Power: make([]float64, len(coeff))}
	for i, c := range coeff {
		s.Freqs[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c)
		s.Power[i] = a * a
	}
	return s, nil
}

// Dominant returns the frequency with the most power, ignoring DC.
func (s Spectrum) Dominant() float64 {
	if len(s.Power) < 2 {
		return 0
	}
	return s.Freqs[1+floats.MaxIdx(s.Power[1:])]
}

// Fraction is the share of total power above cutoff Hz.
func (s Spectrum) Fraction(cutoff float64) float64 {
	total := floats.Sum(s.Power)
	if total == 0 {
		return 0
	}
	high := 0.0
	for i, f := range s.Freqs {
		if f > cutoff {
			high += s.Power[i]
		}
	}
	return high / total
}

// Column extracts column col of rows, padding short rows with NaN.
func Column[R ~[]float64](rows []R, col int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		if col < len(r) {
			out[i] = r[col]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
