package peaks_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazoom-engine/shazoom/internal/peaks"
)

func tone(freq float64, sr, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sr))
	}
	return out
}

func defaultParams() peaks.Params {
	return peaks.Params{
		FrameSize: 1024,
		HopSize:   256,
		MinFreq:   100,
		MaxFreq:   4000,
		Threshold: 0.7,
	}
}

func TestExtractPeaksFindsDominantTone(t *testing.T) {
	const sr = 16000
	signal := tone(1000, sr, sr*2)

	result := peaks.ExtractPeaksWithFreqsAmps(signal, sr, defaultParams())

	require.NotEmpty(t, result.Times)
	require.Len(t, result.Freqs, len(result.Times))
	require.Len(t, result.Amps, len(result.Times))

	for _, f := range result.Freqs {
		assert.GreaterOrEqual(t, f, 100.0)
		assert.LessOrEqual(t, f, 4000.0)
	}

	// the dominant peak should cluster near the tone's frequency
	var nearTone int
	for _, f := range result.Freqs {
		if math.Abs(f-1000) < 50 {
			nearTone++
		}
	}
	assert.Greater(t, nearTone, 0)
}

func TestExtractPeaksRespectsMaxPeaksCap(t *testing.T) {
	const sr = 16000
	signal := tone(1000, sr, sr*2)

	p := defaultParams()
	p.Threshold = 0.1
	p.MaxPeaks = 5

	result := peaks.ExtractPeaksWithFreqsAmps(signal, sr, p)
	assert.LessOrEqual(t, len(result.Times), 5)
}

func TestExtractPeaksOnSilenceIsEmpty(t *testing.T) {
	signal := make([]float64, 16000)
	result := peaks.ExtractPeaksWithFreqsAmps(signal, 16000, defaultParams())
	assert.Empty(t, result.Times)
	assert.Empty(t, result.Freqs)
	assert.Empty(t, result.Amps)
}

func TestExtractPeaksOnlyDropsFreqsAndAmps(t *testing.T) {
	const sr = 16000
	signal := tone(1000, sr, sr*2)

	times := peaks.ExtractPeaksOnly(signal, sr, defaultParams())
	assert.NotEmpty(t, times)
}

func TestExtractPeaksWithFreqsDropsAmps(t *testing.T) {
	const sr = 16000
	signal := tone(1000, sr, sr*2)

	times, freqs := peaks.ExtractPeaksWithFreqs(signal, sr, defaultParams())
	assert.Equal(t, len(times), len(freqs))
	assert.NotEmpty(t, times)
}

func TestExtractPeaksTooShortReturnsEmpty(t *testing.T) {
	signal := make([]float64, 10)
	result := peaks.ExtractPeaksWithFreqsAmps(signal, 16000, defaultParams())
	assert.Empty(t, result.Times)
}
