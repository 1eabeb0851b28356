package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazoom-engine/shazoom/internal/fingerprint"
)

func defaultParams() fingerprint.Params {
	return fingerprint.Params{
		FanValue:      10,
		MinDeltaSec:   0.3,
		MaxDeltaSec:   6,
		TimePrecision: 0.05,
		TargetDensity: 100,
		MaxHashes:     200000,
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	times := []float64{0.1, 0.5, 1.0, 1.5, 2.0}
	freqs := []float64{100, 200, 300, 400, 500}
	amps := []float64{0.5, 0.6, 0.7, 0.8, 0.9}

	a := fingerprint.Generate(times, freqs, amps, defaultParams())
	b := fingerprint.Generate(times, freqs, amps, defaultParams())

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Hash, b[i].Hash)
		assert.Equal(t, a[i].AnchorSec, b[i].AnchorSec)
	}
}

func TestGenerateDiscardsOutOfRangeDeltas(t *testing.T) {
	times := []float64{0, 0.01, 10}
	hashes := fingerprint.Generate(times, nil, nil, defaultParams())
	assert.Empty(t, hashes)
}

func TestGenerateTokenIs12Hex(t *testing.T) {
	times := []float64{0, 0.5}
	hashes := fingerprint.Generate(times, nil, nil, defaultParams())
	require.Len(t, hashes, 1)
	assert.Len(t, hashes[0].Hash, 12)
}

func TestGenerateDeltaOnlyVsFreqOnlyProduceDifferentHashes(t *testing.T) {
	times := []float64{0, 0.5}
	freqs := []float64{100, 200}

	deltaOnly := fingerprint.Generate(times, nil, nil, defaultParams())
	freqOnly := fingerprint.Generate(times, freqs, nil, defaultParams())

	require.Len(t, deltaOnly, 1)
	require.Len(t, freqOnly, 1)
	assert.NotEqual(t, deltaOnly[0].Hash, freqOnly[0].Hash)
}

func TestGenerateRespectsMaxHashesCap(t *testing.T) {
	times := make([]float64, 50)
	for i := range times {
		times[i] = float64(i) * 0.5
	}
	p := defaultParams()
	p.MaxHashes = 3

	hashes := fingerprint.Generate(times, nil, nil, p)
	assert.Len(t, hashes, 3)
}

func TestGenerateOnEmptyPeaksReturnsEmpty(t *testing.T) {
	hashes := fingerprint.Generate(nil, nil, nil, defaultParams())
	assert.Empty(t, hashes)
}

func TestScaledFanShrinksForDenseSignals(t *testing.T) {
	// 1000 peaks across 1 second => density 1000/s, far above target_density
	times := make([]float64, 1000)
	for i := range times {
		times[i] = float64(i) / 1000.0
	}
	p := defaultParams()
	p.FanValue = 10
	p.TargetDensity = 100
	p.MinDeltaSec = 0 // keep every pair inside the fan window

	hashes := fingerprint.Generate(times, nil, nil, p)
	// density is ten times target_density, so the fan shrinks from 10 to 1:
	// each anchor pairs only with its next peak
	assert.Len(t, hashes, len(times)-1)
}
