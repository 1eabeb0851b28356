// Package store implements C4, the FingerprintStore contract: persistence
// for tracks, their fingerprints, and the raw PCM needed for refinement.
package store

import (
	"context"

	"github.com/shazoom-engine/shazoom/internal/models"
)

// FingerprintStore is the external contract of spec.md §4.4. Every
// operation is scoped by a context so a caller can bound or cancel a slow
// query without the store needing to know why.
type FingerprintStore interface {
	InsertTrack(ctx context.Context, movieID, language, pcmPath string) (int64, error)
	BulkInsertFingerprints(ctx context.Context, trackID int64, hashes []models.HashTime) error
	UpdateTrackDuration(ctx context.Context, trackID int64, seconds float64) error

	// QueryByHashes returns matching (hash, trackID, offset) rows. When
	// trackID is non-nil, results are restricted to that track.
	QueryByHashes(ctx context.Context, trackID *int64, hashes []string) ([]HashRow, error)

	// QueryByHashPrefix is the fallback lookup used when an exact-hash
	// query returns no rows: it matches on the first prefixLen hex
	// characters of the stored hash.
	QueryByHashPrefix(ctx context.Context, trackID *int64, prefixes []string, prefixLen int) ([]HashRow, error)

	// LoadPCMSegment returns nSamples samples of the track's stored PCM
	// starting at startSample, zero-padded if the request runs past EOF.
	LoadPCMSegment(ctx context.Context, trackID int64, startSample, nSamples int) ([]float64, error)

	TrackDuration(ctx context.Context, trackID int64) (float64, error)
	TrackByMovieLanguage(ctx context.Context, movieID, language string) (*models.Track, error)
}

// HashRow is one row of a QueryByHashes/QueryByHashPrefix result.
type HashRow struct {
	Hash    string
	TrackID int64
	Offset  float64
}
