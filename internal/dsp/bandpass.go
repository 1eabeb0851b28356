package dsp

import "math"

// ButterworthBandpass applies an order-N Butterworth-style bandpass with
// cutoffs (lowHz, highHz), used only on the query path for noise-resistant
// preprocessing per spec.md §4.1. It cascades `order` single-pole
// high-pass and low-pass sections — the same RC topology as the teacher's
// LowPassFilter, run in series on both edges of the band — which
// approximates the steeper roll-off of a true N-th order Butterworth
// without requiring a dedicated filter-design library (see DESIGN.md: no
// pack dependency provides IIR coefficient synthesis).
func ButterworthBandpass(samples []float64, sampleRate, lowHz, highHz float64, order int) []float64 {
	if order < 1 {
		order = 1
	}

	out := make([]float64, len(samples))
	copy(out, samples)

	for i := 0; i < order; i++ {
		out = highPassSection(out, lowHz, sampleRate)
	}
	for i := 0; i < order; i++ {
		out = lowPassSection(out, highHz, sampleRate)
	}
	return out
}

// lowPassSection is a single-pole RC low-pass, as in the teacher's
// LowPassFilter: y[i] = alpha*x[i] + (1-alpha)*y[i-1].
func lowPassSection(input []float64, cutoffHz, sampleRate float64) []float64 {
	rc := 1.0 / (2.0 * math.Pi * cutoffHz)
	dt := 1.0 / sampleRate
	alpha := dt / (rc + dt)

	out := make([]float64, len(input))
	var prev float64
	for i, x := range input {
		if i == 0 {
			out[i] = x * alpha
		} else {
			out[i] = alpha*x + (1-alpha)*prev
		}
		prev = out[i]
	}
	return out
}

// highPassSection is the complementary single-pole RC high-pass:
// y[i] = alpha*(y[i-1] + x[i] - x[i-1]).
func highPassSection(input []float64, cutoffHz, sampleRate float64) []float64 {
	rc := 1.0 / (2.0 * math.Pi * cutoffHz)
	dt := 1.0 / sampleRate
	alpha := rc / (rc + dt)

	out := make([]float64, len(input))
	var prevIn, prevOut float64
	for i, x := range input {
		if i == 0 {
			out[i] = 0
		} else {
			out[i] = alpha * (prevOut + x - prevIn)
		}
		prevIn = x
		prevOut = out[i]
	}
	return out
}
