package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazoom-engine/shazoom/internal/models"
	"github.com/shazoom-engine/shazoom/internal/store"
)

func TestMemoryStoreInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()

	trackID, err := ms.InsertTrack(ctx, "movie-1", "en", "/tmp/movie-1.pcm")
	require.NoError(t, err)

	hashes := []models.HashTime{
		{Hash: "abc123abc123", AnchorSec: 1.0},
		{Hash: "def456def456", AnchorSec: 2.0},
	}
	require.NoError(t, ms.BulkInsertFingerprints(ctx, trackID, hashes))

	rows, err := ms.QueryByHashes(ctx, nil, []string{"abc123abc123"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, trackID, rows[0].TrackID)
	assert.InDelta(t, 1.0, rows[0].Offset, 1e-9)
}

func TestMemoryStoreQueryByHashPrefix(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()

	trackID, _ := ms.InsertTrack(ctx, "movie-1", "en", "/tmp/x.pcm")
	require.NoError(t, ms.BulkInsertFingerprints(ctx, trackID, []models.HashTime{
		{Hash: "aaaaaaaaaaaa", AnchorSec: 0},
	}))

	rows, err := ms.QueryByHashPrefix(ctx, nil, []string{"aaaaaaaa"}, 8)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryStoreDurationIsMonotonic(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	trackID, _ := ms.InsertTrack(ctx, "m", "en", "/tmp/x.pcm")

	require.NoError(t, ms.UpdateTrackDuration(ctx, trackID, 100))
	require.NoError(t, ms.UpdateTrackDuration(ctx, trackID, 50)) // must not decrease

	d, err := ms.TrackDuration(ctx, trackID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, d)
}

func TestMemoryStoreLoadPCMSegmentZeroPadsPastEOF(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	trackID, _ := ms.InsertTrack(ctx, "m", "en", "/tmp/x.pcm")
	ms.SetPCM(trackID, []float64{1, 2, 3})

	seg, err := ms.LoadPCMSegment(ctx, trackID, 1, 5)
	require.NoError(t, err)
	require.Len(t, seg, 5)
	assert.Equal(t, []float64{2, 3, 0, 0, 0}, seg)
}

func TestMemoryStoreTrackByMovieLanguageMissReturnsNil(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	track, err := ms.TrackByMovieLanguage(ctx, "nope", "en")
	require.NoError(t, err)
	assert.Nil(t, track)
}
