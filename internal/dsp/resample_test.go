package dsp_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazoom-engine/shazoom/internal/dsp"
	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
)

func TestDownmixMono(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3}
	out := dsp.Downmix(in, 1)
	assert.Equal(t, in, out)
}

func TestDownmixStereo(t *testing.T) {
	in := []float64{1, 1, -1, -1, 0.5, 0.5}
	out := dsp.Downmix(in, 2)
	require.Len(t, out, 3)
	assert.InDelta(t, 1.0, out[0], 1e-9)
	assert.InDelta(t, -1.0, out[1], 1e-9)
	assert.InDelta(t, 0.5, out[2], 1e-9)
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float64{1, 2, 3, 4}
	out, err := dsp.Resample(in, 16000, 16000)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResampleDownsampleHalvesLength(t *testing.T) {
	in := make([]float64, 1000)
	for i := range in {
		in[i] = math.Sin(float64(i))
	}
	out, err := dsp.Resample(in, 32000, 16000)
	require.NoError(t, err)
	assert.InDelta(t, 500, len(out), 2)
}

func TestResampleUpsampleDoublesLength(t *testing.T) {
	in := make([]float64, 500)
	for i := range in {
		in[i] = math.Sin(float64(i))
	}
	out, err := dsp.Resample(in, 16000, 32000)
	require.NoError(t, err)
	assert.InDelta(t, 1000, len(out), 2)
}

func TestResampleRejectsNonPositiveRates(t *testing.T) {
	_, err := dsp.Resample([]float64{1, 2}, 0, 16000)
	assert.Error(t, err)
}

func TestNormalizePeakIsOne(t *testing.T) {
	in := make([]float64, 16000) // 1s at 16kHz, above minSignalSeconds
	for i := range in {
		in[i] = math.Sin(float64(i)) * 0.3
	}
	in[100] = 2.0 // set a known peak

	out, err := dsp.Normalize(in, 16000)
	require.NoError(t, err)

	peak := 0.0
	for _, s := range out {
		if math.Abs(s) > peak {
			peak = math.Abs(s)
		}
	}
	assert.InDelta(t, 1.0, peak, 1e-9)
}

func TestNormalizeSilentSignalReturnsEmptySignal(t *testing.T) {
	in := make([]float64, 16000)
	out, err := dsp.Normalize(in, 16000)
	assert.ErrorIs(t, err, shazoomerr.ErrEmptySignal)
	assert.Equal(t, in, out)
}

func TestNormalizeTooShortReturnsTooShort(t *testing.T) {
	in := make([]float64, 100) // well under 0.5s at 16kHz
	for i := range in {
		in[i] = 1.0
	}
	_, err := dsp.Normalize(in, 16000)
	assert.ErrorIs(t, err, shazoomerr.ErrTooShort)
}

func TestPrepareAppliesBandpassOnlyWhenRequested(t *testing.T) {
	in := make([]float64, 16000)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 16000)
	}

	withoutBandpass, err := dsp.Prepare(in, 1, 16000, 16000, false, 100, 4000, 5)
	require.NoError(t, err)

	withBandpass, err := dsp.Prepare(in, 1, 16000, 16000, true, 100, 4000, 5)
	require.NoError(t, err)

	assert.Len(t, withoutBandpass, len(withBandpass))
	assert.NotEqual(t, withoutBandpass, withBandpass)
}
