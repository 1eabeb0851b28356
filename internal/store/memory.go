package store

import (
	"context"
	"sync"
	"time"

	"github.com/shazoom-engine/shazoom/internal/models"
	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
)

// MemoryStore is an in-process FingerprintStore, used by tests and by the
// engine's synthetic end-to-end checks in place of a live Postgres
// instance, mirroring the teacher's db/postgres.go contract without the
// database dependency.
type MemoryStore struct {
	mu sync.Mutex

	tracks       map[int64]*models.Track
	nextTrackID  int64
	fingerprints []fingerprintRow
	pcm          map[int64][]float64
}

type fingerprintRow struct {
	Hash    string
	TrackID int64
	Offset  float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tracks: make(map[int64]*models.Track),
		pcm:    make(map[int64][]float64),
	}
}

func (m *MemoryStore) InsertTrack(_ context.Context, movieID, language, pcmPath string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTrackID++
	id := m.nextTrackID
	m.tracks[id] = &models.Track{
		ID:        id,
		MovieID:   movieID,
		Language:  language,
		TrackPath: pcmPath,
		CreatedAt: time.Now(),
	}
	return id, nil
}

func (m *MemoryStore) TrackByMovieLanguage(_ context.Context, movieID, language string) (*models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tracks {
		if t.MovieID == movieID && t.Language == language {
			return t, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateTrackDuration(_ context.Context, trackID int64, seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tracks[trackID]
	if !ok {
		return shazoomerr.WrapMsg(shazoomerr.ErrStoreError, "unknown track %d", trackID)
	}
	if t.Duration == nil || *t.Duration < seconds {
		t.Duration = &seconds
	}
	return nil
}

func (m *MemoryStore) TrackDuration(_ context.Context, trackID int64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tracks[trackID]
	if !ok || t.Duration == nil {
		return 0, nil
	}
	return *t.Duration, nil
}

func (m *MemoryStore) BulkInsertFingerprints(_ context.Context, trackID int64, hashes []models.HashTime) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range hashes {
		m.fingerprints = append(m.fingerprints, fingerprintRow{Hash: h.Hash, TrackID: trackID, Offset: h.AnchorSec})
	}
	return nil
}

func (m *MemoryStore) QueryByHashes(_ context.Context, trackID *int64, hashes []string) ([]HashRow, error) {
	want := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		want[h] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []HashRow
	for _, r := range m.fingerprints {
		if !want[r.Hash] {
			continue
		}
		if trackID != nil && r.TrackID != *trackID {
			continue
		}
		out = append(out, HashRow{Hash: r.Hash, TrackID: r.TrackID, Offset: r.Offset})
	}
	return out, nil
}

func (m *MemoryStore) QueryByHashPrefix(_ context.Context, trackID *int64, prefixes []string, prefixLen int) ([]HashRow, error) {
	want := make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		want[p] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []HashRow
	for _, r := range m.fingerprints {
		if len(r.Hash) < prefixLen {
			continue
		}
		if !want[r.Hash[:prefixLen]] {
			continue
		}
		if trackID != nil && r.TrackID != *trackID {
			continue
		}
		out = append(out, HashRow{Hash: r.Hash, TrackID: r.TrackID, Offset: r.Offset})
	}
	return out, nil
}

func (m *MemoryStore) LoadPCMSegment(_ context.Context, trackID int64, startSample, nSamples int) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]float64, nSamples)
	src, ok := m.pcm[trackID]
	if !ok || startSample < 0 || nSamples <= 0 {
		return out, nil
	}
	for i := 0; i < nSamples; i++ {
		idx := startSample + i
		if idx >= 0 && idx < len(src) {
			out[i] = src[idx]
		}
	}
	return out, nil
}

// SetPCM lets tests seed the stored PCM for a track directly, in place of
// going through the file-backed WritePCMFile path PostgresStore uses.
func (m *MemoryStore) SetPCM(trackID int64, samples []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pcm[trackID] = samples
}
