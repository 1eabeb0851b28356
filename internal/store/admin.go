package store

import (
	"context"

	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
)

// Stats is a snapshot of store-wide counts, used by the CLI's `stats`
// command — the same aggregate shape as the teacher's GetDatabaseStats.
type Stats struct {
	TotalTracks       int64
	TotalFingerprints int64
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.gormDB.WithContext(ctx).Model(&gormTrack{}).Count(&st.TotalTracks).Error; err != nil {
		return Stats{}, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT count(*) FROM fingerprints")
	if err := row.Scan(&st.TotalFingerprints); err != nil {
		return Stats{}, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	return st, nil
}

// ListTracks returns every ingested track, newest first.
func (s *PostgresStore) ListTracks(ctx context.Context) ([]TrackSummary, error) {
	var recs []gormTrack
	if err := s.gormDB.WithContext(ctx).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}

	out := make([]TrackSummary, len(recs))
	for i, r := range recs {
		out[i] = TrackSummary{ID: r.ID, MovieID: r.MovieID, Language: r.Language, Duration: r.Duration}
	}
	return out, nil
}

// TrackSummary is the row shape ListTracks reports to the CLI.
type TrackSummary struct {
	ID       int64
	MovieID  string
	Language string
	Duration *float64
}

// DeleteAllTracks removes every track and fingerprint, the backing
// operation for the CLI's `clean` command.
func (s *PostgresStore) DeleteAllTracks(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, "DELETE FROM fingerprints"); err != nil {
		return shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	if err := s.gormDB.WithContext(ctx).Exec("DELETE FROM tracks").Error; err != nil {
		return shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	return nil
}
