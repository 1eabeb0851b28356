// Package peaks implements C2, the PeakExtractor: STFT the signal,
// restrict to a frequency band, and select time-frequency local maxima
// above a relative (and optional absolute) amplitude threshold, per
// spec.md §4.2.
package peaks

import (
	"math"
	"sort"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Frame is one column of the magnitude spectrogram: the linear magnitude
// of each frequency bin in [0, Nyquist) at a single point in time.
type Frame struct {
	TimeSec float64
	Mags    []float64 // index i corresponds to frequency i*freqResolution
}

// Spectrogram computes the magnitude STFT of mono PCM at rate sr, using a
// Hann-windowed frame of frameSize samples hopped by hopSize samples.
// Frequency/time mapping follows spec.md §4.2 step 2.
func Spectrogram(mono []float64, sr int, frameSize, hopSize int) []Frame {
	if len(mono) < frameSize {
		return nil
	}

	win := window.Hann(make([]float64, frameSize))

	var frames []Frame
	for start := 0; start+frameSize <= len(mono); start += hopSize {
		buf := make([]float64, frameSize)
		copy(buf, mono[start:start+frameSize])
		for i := range buf {
			buf[i] *= win[i]
		}

		spectrum := fft.FFTReal(buf)
		half := len(spectrum) / 2
		mags := make([]float64, half)
		for i := 0; i < half; i++ {
			mags[i] = cmplxAbs(spectrum[i])
		}

		frameIdx := len(frames)
		frames = append(frames, Frame{
			TimeSec: float64(frameIdx) * float64(hopSize) / float64(sr),
			Mags:    mags,
		})
	}
	return frames
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// medianFilter3 returns a 3-tap median-filtered copy of a mono signal
// (filtered along the time axis), to suppress impulsive noise before STFT, per
// spec.md §4.2 step 1 ("optionally apply a 3-sample median filter").
func medianFilter3(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		if i == 0 || i == len(samples)-1 {
			out[i] = samples[i]
			continue
		}
		window := []float64{samples[i-1], samples[i], samples[i+1]}
		sort.Float64s(window)
		out[i] = window[1]
	}
	return out
}
