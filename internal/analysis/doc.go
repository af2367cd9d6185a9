// Package analysis inspects recorded signals of a run. The power spectrum of
// the joint command exposes chattering: a fabric close to a barrier or with
// too little damping shows power far above the motion bandwidth.
//
//	s, err := analysis.PowerSpectrum(u0, dt)
//	if s.Fraction(5) > 0.2 {
//	    // a fifth of the command power is above 5 Hz
//	}
package analysis
