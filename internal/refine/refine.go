// Package refine implements C6: given a coarse offset from the Matcher,
// cross-correlate the query fragment against the stored track's PCM in a
// window around that offset to sharpen it to sample-level precision.
package refine

import (
	"context"
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/shazoom-engine/shazoom/internal/store"
)

// Result is the Refiner's output per spec.md §4.6. CorrConfidence is
// omitted (left at zero with Refined=false) when refinement fails, since
// refinement failures are non-fatal and the caller should fall back to
// the coarse offset.
type Result struct {
	Offset         float64
	CorrConfidence float64
	Refined        bool
}

// Refine loads a PCM window of len(fragment) samples starting at
// coarseOffset from the stored track and computes the lag that maximizes
// linear cross-correlation with fragment, per spec.md §4.6.
func Refine(ctx context.Context, st store.FingerprintStore, trackID int64, fragment []float64, sampleRate int, coarseOffset float64) Result {
	if len(fragment) == 0 {
		return Result{Offset: coarseOffset}
	}

	startSample := int(coarseOffset * float64(sampleRate))
	if startSample < 0 {
		startSample = 0
	}

	window, err := st.LoadPCMSegment(ctx, trackID, startSample, len(fragment))
	if err != nil {
		return Result{Offset: coarseOffset}
	}

	lag, corrMax, ok := crossCorrelateLag(fragment, window)
	if !ok {
		return Result{Offset: coarseOffset}
	}

	normalization := math.Sqrt(energy(fragment) * energy(window))
	confidence := 0.0
	if normalization > 0 {
		confidence = corrMax / normalization
	}

	refinedOffset := coarseOffset + float64(lag)/float64(sampleRate)
	return Result{
		Offset:         refinedOffset,
		CorrConfidence: confidence,
		Refined:        true,
	}
}

func energy(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return sum
}

// crossCorrelateLag computes the full linear cross-correlation of x and y
// via FFT (zero-padding both to the next power of two at or above their
// combined length) and returns lag = (len(y)-1) - argmax(corr), the offset
// into y at which x best aligns, along with the correlation's peak value.
func crossCorrelateLag(x, y []float64) (lag int, peak float64, ok bool) {
	n := len(x) + len(y) - 1
	if n <= 0 {
		return 0, 0, false
	}
	size := nextPowerOfTwo(n)

	fx := make([]complex128, size)
	for i, v := range x {
		fx[i] = complex(v, 0)
	}
	// cross-correlation via FFT is convolution with the reversed kernel:
	// conv(x, reverse(y))[k] = sum_i x[i]*y[i+(len(y)-1-k)]
	fy := make([]complex128, size)
	for i, v := range y {
		fy[i] = complex(v, 0)
	}
	reverseInPlace(fy[:len(y)])

	X := fft.FFT(fx)
	Y := fft.FFT(fy)

	prod := make([]complex128, size)
	for i := range prod {
		prod[i] = X[i] * Y[i]
	}

	corr := fft.IFFT(prod)

	maxIdx := 0
	maxVal := math.Inf(-1)
	for k := 0; k < n; k++ {
		v := real(corr[k])
		if v > maxVal {
			maxVal = v
			maxIdx = k
		}
	}

	// lag m satisfies k = len(y)-1-m, i.e. m = len(y)-1-k
	return (len(y) - 1) - maxIdx, maxVal, true
}

func reverseInPlace(s []complex128) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
