package matcher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazoom-engine/shazoom/internal/matcher"
	"github.com/shazoom-engine/shazoom/internal/models"
	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
	"github.com/shazoom-engine/shazoom/internal/store"
)

func coarseParams() matcher.Params {
	return matcher.Params{
		DeltaTol:            0.5,
		OffsetSlackSec:      3,
		AnomalyVoteMultiple: 100,
		FallbackWeight8:     0.3,
		FallbackWeight6:     0.1,
		ClusterEpsilonSec:   2.0,
		ClusterMinPoints:    3,
	}
}

func seedTrack(t *testing.T, ms *store.MemoryStore, offset float64, count int) int64 {
	ctx := context.Background()
	trackID, err := ms.InsertTrack(ctx, "movie-1", "en", "/tmp/t.pcm")
	require.NoError(t, err)
	require.NoError(t, ms.UpdateTrackDuration(ctx, trackID, 300))

	hashes := make([]models.HashTime, count)
	for i := 0; i < count; i++ {
		hashes[i] = models.HashTime{Hash: hashOf(i), AnchorSec: offset + float64(i)*0.5}
	}
	require.NoError(t, ms.BulkInsertFingerprints(ctx, trackID, hashes))
	return trackID
}

func hashOf(i int) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 12)
	for j := range out {
		out[j] = hexDigits[(i+j)%16]
	}
	return string(out)
}

func TestMatchFindsCorrectOffset(t *testing.T) {
	ms := store.NewMemoryStore()
	trackID := seedTrack(t, ms, 10.0, 20)

	// fragment hashes at anchor times 0,0.5,1,... matching track offsets
	// starting at 10.0 => true offset should be ~10.0
	fragment := make([]models.HashTime, 20)
	for i := 0; i < 20; i++ {
		fragment[i] = models.HashTime{Hash: hashOf(i), AnchorSec: float64(i) * 0.5}
	}

	result, err := matcher.Match(context.Background(), ms, fragment, 10.0, nil, coarseParams())
	require.NoError(t, err)
	assert.Equal(t, trackID, result.TrackID)
	assert.InDelta(t, 10.0, result.Offset, 0.6)
	assert.True(t, result.ValidOffset)
}

func TestMatchTooFewHashesReturnsEmptyQuery(t *testing.T) {
	ms := store.NewMemoryStore()
	_, err := matcher.Match(context.Background(), ms, []models.HashTime{{Hash: "a", AnchorSec: 0}}, 1, nil, coarseParams())
	assert.ErrorIs(t, err, shazoomerr.ErrEmptyQuery)
}

func TestMatchNoRowsReturnsNoMatch(t *testing.T) {
	ms := store.NewMemoryStore()
	fragment := make([]models.HashTime, 10)
	for i := range fragment {
		fragment[i] = models.HashTime{Hash: hashOf(i + 1000), AnchorSec: float64(i)}
	}
	_, err := matcher.Match(context.Background(), ms, fragment, 5, nil, coarseParams())
	assert.ErrorIs(t, err, shazoomerr.ErrNoMatch)
}

func TestMatchWithFineClusteringSelectsDenseCluster(t *testing.T) {
	ms := store.NewMemoryStore()
	trackID := seedTrack(t, ms, 10.0, 30)

	// a 0-0.04s jitter on the anchors spreads the true offset over three
	// adjacent fine bins, which only clustering can pool back together
	fragment := make([]models.HashTime, 30)
	for i := 0; i < 30; i++ {
		fragment[i] = models.HashTime{Hash: hashOf(i), AnchorSec: float64(i)*0.5 + 0.02*float64(i%3)}
	}

	p := coarseParams()
	p.DeltaTol = 0.02
	p.UseFineClustering = true

	result, err := matcher.Match(context.Background(), ms, fragment, 15.0, nil, p)
	require.NoError(t, err)
	assert.Equal(t, trackID, result.TrackID)
	assert.InDelta(t, 10.0, result.Offset, 1.0)
}
