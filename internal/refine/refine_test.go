package refine_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazoom-engine/shazoom/internal/refine"
	"github.com/shazoom-engine/shazoom/internal/store"
)

func sineWave(freq float64, sr, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sr))
	}
	return out
}

func TestRefineFindsExactAlignment(t *testing.T) {
	const sr = 16000
	full := sineWave(440, sr, sr*4)

	ms := store.NewMemoryStore()
	ctx := context.Background()
	trackID, err := ms.InsertTrack(ctx, "m", "en", "/tmp/t.pcm")
	require.NoError(t, err)
	ms.SetPCM(trackID, full)

	coarseOffsetSec := 2.0
	startSample := int(coarseOffsetSec * sr)
	fragment := full[startSample : startSample+sr] // exactly matches at lag 0

	result := refine.Refine(ctx, ms, trackID, fragment, sr, coarseOffsetSec)
	require.True(t, result.Refined)
	assert.InDelta(t, coarseOffsetSec, result.Offset, 1.0/sr*10)
	assert.Greater(t, result.CorrConfidence, 0.9)
}

func TestRefineNonFatalOnEmptyFragment(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	trackID, _ := ms.InsertTrack(ctx, "m", "en", "/tmp/t.pcm")

	result := refine.Refine(ctx, ms, trackID, nil, 16000, 5.0)
	assert.False(t, result.Refined)
	assert.Equal(t, 5.0, result.Offset)
	assert.Equal(t, 0.0, result.CorrConfidence)
}
