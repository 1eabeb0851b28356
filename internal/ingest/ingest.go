// Package ingest implements C7: decode a source track, run it through the
// DSP/peak/hash pipeline, and persist the resulting fingerprints.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shazoom-engine/shazoom/internal/audio"
	"github.com/shazoom-engine/shazoom/internal/config"
	"github.com/shazoom-engine/shazoom/internal/dsp"
	"github.com/shazoom-engine/shazoom/internal/fingerprint"
	"github.com/shazoom-engine/shazoom/internal/models"
	"github.com/shazoom-engine/shazoom/internal/peaks"
	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
	"github.com/shazoom-engine/shazoom/internal/store"
)

const minHashesBeforeFail = 5

// Ingestor composes decode -> C1 -> C2 -> C3 -> store, per spec.md §4.7.
type Ingestor struct {
	Decoder audio.Decoder
	Store   store.FingerprintStore
	Config  *config.Config
	// PCMDir is where each track's normalized PCM sidecar is written, so
	// the Refiner (C6) can later load exact-offset segments back out of
	// the store without re-decoding the source file.
	PCMDir string
}

func New(decoder audio.Decoder, st store.FingerprintStore, cfg *config.Config, pcmDir string) *Ingestor {
	return &Ingestor{Decoder: decoder, Store: st, Config: cfg, PCMDir: pcmDir}
}

// Result reports what Ingest actually stored, for CLI/progress reporting.
type Result struct {
	TrackID     int64
	HashCount   int
	DurationSec float64
	Retried     bool
}

// Ingest runs the full ingest pipeline for one source file belonging to
// movieID/language. Duplicate (movieID, language) pairs are rejected.
func (ig *Ingestor) Ingest(ctx context.Context, sourcePath, movieID, language string) (Result, error) {
	existing, err := ig.Store.TrackByMovieLanguage(ctx, movieID, language)
	if err != nil {
		return Result{}, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	if existing != nil {
		return Result{}, shazoomerr.WrapMsg(shazoomerr.ErrStoreError, "track already ingested for movie %q language %q", movieID, language)
	}

	pcm, err := ig.Decoder.Decode(sourcePath)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	cfg := ig.Config
	mono, err := dsp.Prepare(pcm.Samples, pcm.Channels, pcm.SampleRate, cfg.TargetSampleRate, false, cfg.BandpassLowHz, cfg.BandpassHighHz, cfg.BandpassOrder)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	hashes, retried := ig.extractWithRetry(mono, cfg)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(hashes) < minHashesBeforeFail {
		return Result{}, shazoomerr.ErrInsufficientFingerprints
	}

	pcmPath, cleanup, err := ig.writePCMSidecar(movieID, language, mono)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	trackID, err := ig.Store.InsertTrack(ctx, movieID, language, pcmPath)
	if err != nil {
		return Result{}, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}

	if err := ig.Store.BulkInsertFingerprints(ctx, trackID, hashes); err != nil {
		return Result{}, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}

	durationSec := float64(len(mono)) / float64(cfg.TargetSampleRate)
	if err := ig.Store.UpdateTrackDuration(ctx, trackID, durationSec); err != nil {
		return Result{}, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}

	return Result{TrackID: trackID, HashCount: len(hashes), DurationSec: durationSec, Retried: retried}, nil
}

// extractWithRetry runs C2+C3 once at the configured threshold, and once
// more with a relaxed threshold and boosted fan_value if the first pass
// produced too few hashes, per spec.md §4.7.
func (ig *Ingestor) extractWithRetry(mono []float64, cfg *config.Config) ([]models.HashTime, bool) {
	hashes := ig.extractHashes(mono, cfg.IngestFrameSize, cfg.PeakThreshold, cfg.FanValue)
	if len(hashes) >= cfg.MinHashesBeforeRetry {
		return hashes, false
	}

	relaxedThreshold := cfg.PeakThreshold - cfg.RetryThresholdRelaxBy
	if relaxedThreshold < 0 {
		relaxedThreshold = 0.1
	}
	boostedFan := cfg.FanValue + cfg.RetryFanValueBoost

	retried := ig.extractHashes(mono, cfg.IngestFrameSize, relaxedThreshold, boostedFan)
	if len(retried) > len(hashes) {
		return retried, true
	}
	return hashes, true
}

func (ig *Ingestor) extractHashes(mono []float64, frameSize int, threshold float64, fanValue int) []models.HashTime {
	cfg := ig.Config

	peakSet := peaks.ExtractPeaksWithFreqsAmps(mono, cfg.TargetSampleRate, peaks.Params{
		FrameSize:         frameSize,
		HopSize:           cfg.HopSize,
		MinFreq:           cfg.MinFreqHz,
		MaxFreq:           cfg.MaxFreqHz,
		Threshold:         threshold,
		AbsoluteThreshold: cfg.PeakAbsoluteThresh,
		MaxPeaks:          cfg.MaxPeaks,
		MedianFilter:      cfg.UseMedianFilter,
	})

	return fingerprint.Generate(peakSet.Times, peakSet.Freqs, peakSet.Amps, fingerprint.Params{
		FanValue:      fanValue,
		MinDeltaSec:   cfg.MinDeltaSec,
		MaxDeltaSec:   cfg.MaxDeltaSec,
		TimePrecision: cfg.TimePrecision,
		TargetDensity: cfg.TargetDensity,
		MaxHashes:     cfg.MaxHashes,
	})
}

// writePCMSidecar persists the normalized mono signal so the Refiner can
// later reload exact segments. The returned cleanup is a no-op — unlike
// the decode path's temp files, the sidecar is the durable artifact the
// store's TrackPath points at. It is left in place even when a later store
// write fails.
func (ig *Ingestor) writePCMSidecar(movieID, language string, mono []float64) (string, func(), error) {
	if err := os.MkdirAll(ig.PCMDir, 0o755); err != nil {
		return "", func() {}, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	path := filepath.Join(ig.PCMDir, fmt.Sprintf("%s_%s.pcm", movieID, language))
	if err := store.WritePCMFile(path, mono); err != nil {
		return "", func() {}, err
	}
	cleanup := func() {}
	return path, cleanup, nil
}
