// Package query implements C8: the query orchestrator that turns a
// recorded fragment into a match result by running it through C1-C3,
// the Matcher, and optionally the Refiner.
package query

import (
	"context"
	"time"

	"github.com/shazoom-engine/shazoom/internal/audio"
	"github.com/shazoom-engine/shazoom/internal/config"
	"github.com/shazoom-engine/shazoom/internal/dsp"
	"github.com/shazoom-engine/shazoom/internal/fingerprint"
	"github.com/shazoom-engine/shazoom/internal/matcher"
	"github.com/shazoom-engine/shazoom/internal/peaks"
	"github.com/shazoom-engine/shazoom/internal/refine"
	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
	"github.com/shazoom-engine/shazoom/internal/store"
)

// Orchestrator composes decode -> C1(bandpass) -> C2 -> C3 -> C5 -> C6.
type Orchestrator struct {
	Decoder audio.Decoder
	Store   store.FingerprintStore
	Config  *config.Config
}

func New(decoder audio.Decoder, st store.FingerprintStore, cfg *config.Config) *Orchestrator {
	return &Orchestrator{Decoder: decoder, Store: st, Config: cfg}
}

// Result is the full response document shape of spec.md §6's Match
// endpoint, minus the transport envelope.
type Result struct {
	TrackID        int64
	RawOffset      float64
	RawConfidence  float64
	RefinedOffset  float64
	CorrConfidence float64
	Refined        bool
	Score          float64
	TotalChecked   int
	ValidOffset    bool
}

// Query runs the full C8 pipeline against fragmentPath, optionally
// restricted to trackID. It is bounded by Config.QueryTimeoutSec;
// exceeding it surfaces as ErrTimeout rather than a store error.
func (o *Orchestrator) Query(ctx context.Context, fragmentPath string, trackID *int64) (Result, error) {
	cfg := o.Config

	timeout := time.Duration(cfg.QueryTimeoutSec * float64(time.Second))
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	pcm, err := o.Decoder.Decode(fragmentPath)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, shazoomerr.Wrap(shazoomerr.ErrTimeout, err)
	}

	mono, err := dsp.Prepare(pcm.Samples, pcm.Channels, pcm.SampleRate, cfg.TargetSampleRate, true, cfg.BandpassLowHz, cfg.BandpassHighHz, cfg.BandpassOrder)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, shazoomerr.Wrap(shazoomerr.ErrTimeout, err)
	}
	fragmentDuration := float64(len(mono)) / float64(cfg.TargetSampleRate)

	peakSet := peaks.ExtractPeaksWithFreqsAmps(mono, cfg.TargetSampleRate, peaks.Params{
		FrameSize:         cfg.QueryFrameSize,
		HopSize:           cfg.HopSize,
		MinFreq:           cfg.MinFreqHz,
		MaxFreq:           cfg.MaxFreqHz,
		Threshold:         cfg.PeakThreshold,
		AbsoluteThreshold: cfg.PeakAbsoluteThresh,
		MaxPeaks:          cfg.MaxPeaks,
		MedianFilter:      cfg.UseMedianFilter,
	})
	if err := ctx.Err(); err != nil {
		return Result{}, shazoomerr.Wrap(shazoomerr.ErrTimeout, err)
	}

	hashes := fingerprint.Generate(peakSet.Times, peakSet.Freqs, peakSet.Amps, fingerprint.Params{
		FanValue:      cfg.FanValue,
		MinDeltaSec:   cfg.MinDeltaSec,
		MaxDeltaSec:   cfg.MaxDeltaSec,
		TimePrecision: cfg.TimePrecision,
		TargetDensity: cfg.TargetDensity,
		MaxHashes:     cfg.MaxHashes,
	})

	if err := ctx.Err(); err != nil {
		return Result{}, shazoomerr.Wrap(shazoomerr.ErrTimeout, err)
	}

	matchResult, err := matcher.Match(ctx, o.Store, hashes, fragmentDuration, trackID, matcher.Params{
		DeltaTol:            cfg.CoarseDeltaTol,
		OffsetSlackSec:      cfg.OffsetSlackSec,
		AnomalyVoteMultiple: cfg.AnomalyVoteMultiple,
		FallbackWeight8:     cfg.FallbackWeight8,
		FallbackWeight6:     cfg.FallbackWeight6,
		ClusterEpsilonSec:   cfg.ClusterEpsilonSec,
		ClusterMinPoints:    cfg.ClusterMinPoints,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, shazoomerr.Wrap(shazoomerr.ErrTimeout, ctx.Err())
		}
		return Result{}, err
	}

	// per spec.md §4.5 step 7, a sample run at fine Δ_tol may cluster its
	// surviving bins for a tighter offset estimate; an ambiguous coarse
	// consensus is exactly the case that calls for it, so re-run the
	// matcher restricted to the coarse winner at fine resolution and keep
	// whichever result is more confident.
	if matchResult.Confidence < cfg.FineRetryConfidence {
		fineTrackID := matchResult.TrackID
		fineResult, fineErr := matcher.Match(ctx, o.Store, hashes, fragmentDuration, &fineTrackID, matcher.Params{
			DeltaTol:            cfg.FineDeltaTol,
			OffsetSlackSec:      cfg.OffsetSlackSec,
			AnomalyVoteMultiple: cfg.AnomalyVoteMultiple,
			FallbackWeight8:     cfg.FallbackWeight8,
			FallbackWeight6:     cfg.FallbackWeight6,
			ClusterEpsilonSec:   cfg.ClusterEpsilonSec,
			ClusterMinPoints:    cfg.ClusterMinPoints,
			UseFineClustering:   true,
		})
		if fineErr == nil && fineResult.Confidence > matchResult.Confidence {
			matchResult = fineResult
		}
	}

	result := Result{
		TrackID:       matchResult.TrackID,
		RawOffset:     matchResult.Offset,
		RawConfidence: matchResult.Confidence,
		RefinedOffset: matchResult.Offset,
		Score:         matchResult.Score,
		TotalChecked:  matchResult.TotalChecked,
		ValidOffset:   matchResult.ValidOffset,
	}

	refined := refine.Refine(ctx, o.Store, matchResult.TrackID, mono, cfg.TargetSampleRate, matchResult.Offset)
	if refined.Refined {
		result.RefinedOffset = refined.Offset
		result.CorrConfidence = refined.CorrConfidence
		result.Refined = true
	}

	return result, nil
}
