package ingest_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazoom-engine/shazoom/internal/audio"
	"github.com/shazoom-engine/shazoom/internal/config"
	"github.com/shazoom-engine/shazoom/internal/ingest"
	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
	"github.com/shazoom-engine/shazoom/internal/store"
)

type fakeDecoder struct {
	pcm audio.PCM
	err error
}

func (f *fakeDecoder) Decode(string) (audio.PCM, error) {
	return f.pcm, f.err
}

func richSignal(sr, seconds int) []float64 {
	n := sr * seconds
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sr)
		out[i] = 0.6*math.Sin(2*math.Pi*440*t) + 0.3*math.Sin(2*math.Pi*900*t) + 0.1*math.Sin(2*math.Pi*1800*t)
	}
	return out
}

func TestIngestStoresFingerprints(t *testing.T) {
	cfg := config.Default()
	dec := &fakeDecoder{pcm: audio.PCM{Samples: richSignal(16000, 5), Channels: 1, SampleRate: 16000}}
	st := store.NewMemoryStore()
	ig := ingest.New(dec, st, cfg, filepath.Join(t.TempDir(), "pcm"))

	result, err := ig.Ingest(context.Background(), "movie.wav", "movie-1", "en")
	require.NoError(t, err)
	assert.Greater(t, result.HashCount, 0)
	assert.Greater(t, result.DurationSec, 0.0)

	dur, err := st.TrackDuration(context.Background(), result.TrackID)
	require.NoError(t, err)
	assert.Equal(t, result.DurationSec, dur)
}

func TestIngestRejectsDuplicateTrack(t *testing.T) {
	cfg := config.Default()
	dec := &fakeDecoder{pcm: audio.PCM{Samples: richSignal(16000, 5), Channels: 1, SampleRate: 16000}}
	st := store.NewMemoryStore()
	ig := ingest.New(dec, st, cfg, filepath.Join(t.TempDir(), "pcm"))

	ctx := context.Background()
	_, err := ig.Ingest(ctx, "movie.wav", "movie-1", "en")
	require.NoError(t, err)

	_, err = ig.Ingest(ctx, "movie.wav", "movie-1", "en")
	assert.Error(t, err)
}

func TestIngestFailsOnInsufficientFingerprints(t *testing.T) {
	cfg := config.Default()
	// a silent-ish buffer just above the minimum length will yield very
	// few or no peaks at the default threshold
	dec := &fakeDecoder{pcm: audio.PCM{Samples: make([]float64, 16000), Channels: 1, SampleRate: 16000}}
	for i := range dec.pcm.Samples {
		dec.pcm.Samples[i] = 0.0001
	}
	st := store.NewMemoryStore()
	ig := ingest.New(dec, st, cfg, filepath.Join(t.TempDir(), "pcm"))

	_, err := ig.Ingest(context.Background(), "movie.wav", "movie-2", "en")
	assert.ErrorIs(t, err, shazoomerr.ErrInsufficientFingerprints)
}

func TestIngestPropagatesDecodeFailure(t *testing.T) {
	cfg := config.Default()
	dec := &fakeDecoder{err: shazoomerr.ErrDecodeFailure}
	st := store.NewMemoryStore()
	ig := ingest.New(dec, st, cfg, filepath.Join(t.TempDir(), "pcm"))

	_, err := ig.Ingest(context.Background(), "movie.wav", "movie-3", "en")
	assert.ErrorIs(t, err, shazoomerr.ErrDecodeFailure)
}
