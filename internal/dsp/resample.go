// Package dsp implements C1, the Resampler/Normalizer: pure functions that
// turn an arbitrary mono/stereo sample buffer at any rate into a
// peak-normalized mono stream at exactly 16 kHz, with an optional
// Butterworth bandpass for noise-resistant query preprocessing.
package dsp

import (
	"math"

	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
)

const minSignalSeconds = 0.5

// Downmix averages interleaved multi-channel samples down to mono. It is a
// no-op for channels == 1.
func Downmix(samples []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	}
	n := len(samples) / channels
	mono := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// Resample linearly interpolates a mono buffer from srcRate to dstRate.
// It generalizes the teacher's averaging-only Downsample to work for both
// down- and up-sampling, since the contract is "produce exactly 16 kHz"
// regardless of whether the source is above or below that rate.
func Resample(mono []float64, srcRate, dstRate int) ([]float64, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, shazoomerr.WrapMsg(shazoomerr.ErrDecodeFailure, "sample rates must be positive (src=%d dst=%d)", srcRate, dstRate)
	}
	if srcRate == dstRate {
		out := make([]float64, len(mono))
		copy(out, mono)
		return out, nil
	}
	if len(mono) == 0 {
		return []float64{}, nil
	}

	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(float64(len(mono)) / ratio)
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float64, outLen)

	for i := 0; i < outLen; i++ {
		srcIdx := float64(i) * ratio
		lo := int(srcIdx)
		if lo >= len(mono)-1 {
			out[i] = mono[len(mono)-1]
			continue
		}
		frac := srcIdx - float64(lo)
		out[i] = mono[lo]*(1-frac) + mono[lo+1]*frac
	}
	return out, nil
}

// Normalize peak-normalizes a signal so max(|x|) == 1. Per spec.md §4.1, an
// empty or silent input is returned unchanged alongside ErrEmptySignal, and
// one shorter than 0.5s alongside ErrTooShort, so the caller can fail fast.
func Normalize(samples []float64, sampleRate int) ([]float64, error) {
	if len(samples) == 0 {
		return samples, shazoomerr.ErrEmptySignal
	}
	if float64(len(samples))/float64(sampleRate) < minSignalSeconds {
		return samples, shazoomerr.ErrTooShort
	}

	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples, shazoomerr.ErrEmptySignal
	}

	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s / peak
	}
	return out, nil
}

// Prepare runs the full C1 contract: downmix -> resample to dstRate ->
// peak-normalize -> optional bandpass. bandpass should be true only on the
// query path per spec.md §4.1.
func Prepare(samples []float64, channels, srcRate, dstRate int, bandpass bool, lowHz, highHz float64, order int) ([]float64, error) {
	mono := Downmix(samples, channels)

	resampled, err := Resample(mono, srcRate, dstRate)
	if err != nil {
		return nil, err
	}

	normalized, err := Normalize(resampled, dstRate)
	if err != nil {
		return nil, err
	}

	if !bandpass {
		return normalized, nil
	}

	return ButterworthBandpass(normalized, float64(dstRate), lowHz, highHz, order), nil
}
