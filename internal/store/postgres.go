package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/shazoom-engine/shazoom/internal/models"
	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
)

// gormTrack is the low-cardinality side of the store: tracks rarely
// change shape and benefit from GORM's migrations and associations, the
// same split the teacher's two persistence drafts converged on
// independently (raw SQL for the hot fingerprint path, GORM for
// everything else).
type gormTrack struct {
	ID        int64 `gorm:"primaryKey"`
	MovieID   string `gorm:"uniqueIndex:idx_movie_lang"`
	Language  string `gorm:"uniqueIndex:idx_movie_lang"`
	TrackPath string
	Duration  *float64
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (gormTrack) TableName() string { return "tracks" }

// PostgresStore is the production FingerprintStore: raw database/sql over
// the pgx stdlib driver for the append-only, high-volume fingerprints
// table (batch insert, ANY($1) lookup), and GORM for the tracks table.
type PostgresStore struct {
	sqlDB  *sql.DB
	gormDB *gorm.DB
}

const fingerprintBatchSize = 20000

// NewPostgresStore opens both handles against the same DSN and ensures the
// schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}

	if err := gormDB.AutoMigrate(&gormTrack{}); err != nil {
		return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}

	s := &PostgresStore{sqlDB: sqlDB, gormDB: gormDB}
	if err := s.createFingerprintTable(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.sqlDB.Close()
}

func (s *PostgresStore) createFingerprintTable() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS fingerprints (
		hash TEXT NOT NULL,
		track_id BIGINT NOT NULL,
		offset_sec DOUBLE PRECISION NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON fingerprints (hash);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_track_hash ON fingerprints (track_id, hash);
	`
	if _, err := s.sqlDB.Exec(ddl); err != nil {
		return shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	return nil
}

func (s *PostgresStore) InsertTrack(ctx context.Context, movieID, language, pcmPath string) (int64, error) {
	rec := gormTrack{MovieID: movieID, Language: language, TrackPath: pcmPath}
	if err := s.gormDB.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	return rec.ID, nil
}

func (s *PostgresStore) TrackByMovieLanguage(ctx context.Context, movieID, language string) (*models.Track, error) {
	var rec gormTrack
	err := s.gormDB.WithContext(ctx).
		Where("movie_id = ? AND language = ?", movieID, language).
		First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	return toModelTrack(rec), nil
}

func toModelTrack(rec gormTrack) *models.Track {
	return &models.Track{
		ID:        rec.ID,
		MovieID:   rec.MovieID,
		Language:  rec.Language,
		TrackPath: rec.TrackPath,
		Duration:  rec.Duration,
		CreatedAt: rec.CreatedAt,
	}
}

func (s *PostgresStore) UpdateTrackDuration(ctx context.Context, trackID int64, seconds float64) error {
	return s.gormDB.WithContext(ctx).Model(&gormTrack{}).
		Where("id = ? AND (duration IS NULL OR duration < ?)", trackID, seconds).
		Update("duration", seconds).Error
}

func (s *PostgresStore) TrackDuration(ctx context.Context, trackID int64) (float64, error) {
	var rec gormTrack
	if err := s.gormDB.WithContext(ctx).Select("duration").First(&rec, trackID).Error; err != nil {
		return 0, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	if rec.Duration == nil {
		return 0, nil
	}
	return *rec.Duration, nil
}

// BulkInsertFingerprints batches inserts at fingerprintBatchSize rows per
// statement, the same batching threshold the teacher's raw-SQL insert
// path uses, wrapped in a single transaction so the call is atomic.
func (s *PostgresStore) BulkInsertFingerprints(ctx context.Context, trackID int64, hashes []models.HashTime) error {
	if len(hashes) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	defer tx.Rollback()

	for start := 0; start < len(hashes); start += fingerprintBatchSize {
		end := start + fingerprintBatchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]

		valueStrings := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*3)
		paramIdx := 1
		for _, h := range batch {
			valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d)", paramIdx, paramIdx+1, paramIdx+2))
			args = append(args, h.Hash, trackID, h.AnchorSec)
			paramIdx += 3
		}

		query := fmt.Sprintf(
			"INSERT INTO fingerprints (hash, track_id, offset_sec) VALUES %s",
			strings.Join(valueStrings, ","),
		)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	return nil
}

func (s *PostgresStore) QueryByHashes(ctx context.Context, trackID *int64, hashes []string) ([]HashRow, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	query := `SELECT hash, track_id, offset_sec FROM fingerprints WHERE hash = ANY($1)`
	args := []any{hashes}
	if trackID != nil {
		query += " AND track_id = $2"
		args = append(args, *trackID)
	}
	return s.queryRows(ctx, query, args...)
}

func (s *PostgresStore) QueryByHashPrefix(ctx context.Context, trackID *int64, prefixes []string, prefixLen int) ([]HashRow, error) {
	if len(prefixes) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT hash, track_id, offset_sec FROM fingerprints WHERE left(hash, %d) = ANY($1)`, prefixLen)
	args := []any{prefixes}
	if trackID != nil {
		query += " AND track_id = $2"
		args = append(args, *trackID)
	}
	return s.queryRows(ctx, query, args...)
}

func (s *PostgresStore) queryRows(ctx context.Context, query string, args ...any) ([]HashRow, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	defer rows.Close()

	var out []HashRow
	for rows.Next() {
		var r HashRow
		if err := rows.Scan(&r.Hash, &r.TrackID, &r.Offset); err != nil {
			return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadPCMSegment reads the track's stored PCM file and returns nSamples
// float64 samples starting at startSample, zero-padding past EOF per
// spec.md §4.4. PCM is stored as raw little-endian float64 at the track's
// TrackPath, a sidecar file the Ingestor writes once into its PCM directory.
func (s *PostgresStore) LoadPCMSegment(ctx context.Context, trackID int64, startSample, nSamples int) ([]float64, error) {
	var rec gormTrack
	if err := s.gormDB.WithContext(ctx).First(&rec, trackID).Error; err != nil {
		return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	return readPCMSegment(rec.TrackPath, startSample, nSamples)
}
