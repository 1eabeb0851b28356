// Package matcher implements C5: given a fragment's hash list, find the
// stored track (and offset) it most plausibly comes from, via offset-
// histogram voting over the FingerprintStore's index.
package matcher

import (
	"context"
	"math"
	"sort"

	"github.com/shazoom-engine/shazoom/internal/models"
	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
	"github.com/shazoom-engine/shazoom/internal/store"
)

const minQueryHashes = 5

// Params bundles the Matcher's contract parameters, per spec.md §4.5.
type Params struct {
	DeltaTol            float64 // 0.02s (refine-quality) or 0.5s (coarse)
	OffsetSlackSec       float64
	AnomalyVoteMultiple  float64
	FallbackWeight8      float64
	FallbackWeight6      float64
	ClusterEpsilonSec    float64
	ClusterMinPoints     int
	UseFineClustering    bool // only meaningful when DeltaTol is the fine value
}

// Result is the Matcher's output per spec.md §4.5.
type Result struct {
	TrackID      int64
	Offset       float64
	Score        float64
	TotalChecked int
	Confidence   float64
	ValidOffset  bool
}

// vote is one (track, offset_bin) accumulator entry.
type vote struct {
	key    models.OffsetVote
	weight float64
}

// Match runs the full C5 procedure against a store for fragment hashes H.
// trackID restricts the search to a single track when non-nil. fragmentDuration
// is D_f, the fragment's length in seconds, used by the plausibility filter.
func Match(ctx context.Context, st store.FingerprintStore, hashes []models.HashTime, fragmentDuration float64, trackID *int64, p Params) (Result, error) {
	if len(hashes) < minQueryHashes {
		return Result{}, shazoomerr.ErrEmptyQuery
	}

	hashSet := make([]string, 0, len(hashes))
	seen := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		if !seen[h.Hash] {
			seen[h.Hash] = true
			hashSet = append(hashSet, h.Hash)
		}
	}

	rows, err := st.QueryByHashes(ctx, trackID, hashSet)
	if err != nil {
		return Result{}, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}

	votes := voteFromRows(hashes, rows, p.DeltaTol, 1.0)

	if len(votes) == 0 {
		votes, err = fallbackVote(ctx, st, hashes, trackID, p, 8, p.FallbackWeight8)
		if err != nil {
			return Result{}, err
		}
	}
	if len(votes) == 0 {
		votes, err = fallbackVote(ctx, st, hashes, trackID, p, 6, p.FallbackWeight6)
		if err != nil {
			return Result{}, err
		}
	}
	if len(votes) == 0 {
		return Result{}, shazoomerr.ErrNoMatch
	}

	votes, err = plausibilityFilter(ctx, st, votes, p.OffsetSlackSec, fragmentDuration)
	if err != nil {
		return Result{}, err
	}
	votes = anomalyFilter(votes, p.AnomalyVoteMultiple, len(hashes))
	if len(votes) == 0 {
		return Result{}, shazoomerr.ErrNoMatch
	}

	selected, group := selectConsensus(votes, p)
	confidence := computeConfidence(group, selected.weight, len(hashes))

	return Result{
		TrackID:      selected.key.TrackID,
		Offset:       selected.key.OffsetBin,
		Score:        selected.weight,
		TotalChecked: len(hashes),
		Confidence:   confidence,
		ValidOffset:  true,
	}, nil
}

// voteFromRows builds the vote table described in spec.md §4.5 steps 2-3:
// for each (h, t1) in the fragment and each (tr, t2) at h in the store,
// bin delta = t2 - t1 by deltaTol and accumulate weight.
func voteFromRows(hashes []models.HashTime, rows []store.HashRow, deltaTol, weight float64) map[models.OffsetVote]float64 {
	byHash := make(map[string][]store.HashRow)
	for _, r := range rows {
		byHash[r.Hash] = append(byHash[r.Hash], r)
	}

	votes := make(map[models.OffsetVote]float64)
	for _, h := range hashes {
		for _, r := range byHash[h.Hash] {
			delta := r.Offset - h.AnchorSec
			bin := math.Round(delta/deltaTol) * deltaTol
			key := models.OffsetVote{TrackID: r.TrackID, OffsetBin: bin}
			votes[key] += weight
		}
	}
	return votes
}

func fallbackVote(ctx context.Context, st store.FingerprintStore, hashes []models.HashTime, trackID *int64, p Params, prefixLen int, weight float64) (map[models.OffsetVote]float64, error) {
	prefixSet := make(map[string]bool)
	for _, h := range hashes {
		if len(h.Hash) >= prefixLen {
			prefixSet[h.Hash[:prefixLen]] = true
		}
	}
	prefixes := make([]string, 0, len(prefixSet))
	for pre := range prefixSet {
		prefixes = append(prefixes, pre)
	}

	rows, err := st.QueryByHashPrefix(ctx, trackID, prefixes, prefixLen)
	if err != nil {
		return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}

	// re-key rows by prefix so voteFromRows can match them against the
	// fragment's truncated hashes
	truncatedHashes := make([]models.HashTime, len(hashes))
	for i, h := range hashes {
		hp := h.Hash
		if len(hp) >= prefixLen {
			hp = hp[:prefixLen]
		}
		truncatedHashes[i] = models.HashTime{Hash: hp, AnchorSec: h.AnchorSec}
	}
	truncatedRows := make([]store.HashRow, len(rows))
	for i, r := range rows {
		hp := r.Hash
		if len(hp) >= prefixLen {
			hp = hp[:prefixLen]
		}
		truncatedRows[i] = store.HashRow{Hash: hp, TrackID: r.TrackID, Offset: r.Offset}
	}

	return voteFromRows(truncatedHashes, truncatedRows, p.DeltaTol, weight), nil
}

// plausibilityFilter drops votes whose offset bin falls outside the
// track's valid range 0 ≤ δ_bin ≤ track_duration - fragmentDuration + slack,
// per spec.md §4.5 step 5.
func plausibilityFilter(ctx context.Context, st store.FingerprintStore, votes map[models.OffsetVote]float64, slack float64, fragmentDuration float64) (map[models.OffsetVote]float64, error) {
	const epsSlack = 3.0
	if slack <= 0 {
		slack = epsSlack
	}

	durations := make(map[int64]float64)
	out := make(map[models.OffsetVote]float64)
	for key, weight := range votes {
		dur, ok := durations[key.TrackID]
		if !ok {
			d, err := st.TrackDuration(ctx, key.TrackID)
			if err != nil {
				return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
			}
			dur = d
			durations[key.TrackID] = dur
		}
		upperBound := dur - fragmentDuration + slack
		if key.OffsetBin < 0 || (dur > 0 && key.OffsetBin > upperBound) {
			continue
		}
		out[key] = weight
	}
	return out, nil
}

// anomalyFilter drops votes with pathologically high counts, per spec.md
// §4.5 step 6.
func anomalyFilter(votes map[models.OffsetVote]float64, multiple float64, fragmentHashCount int) map[models.OffsetVote]float64 {
	if multiple <= 0 {
		multiple = 100
	}
	ceiling := multiple * float64(fragmentHashCount)

	out := make(map[models.OffsetVote]float64, len(votes))
	for k, v := range votes {
		if v > ceiling {
			continue
		}
		out[k] = v
	}
	return out
}

// selectConsensus picks the (track, offset) with maximum weighted vote,
// per spec.md §4.5 step 7, optionally clustering first when UseFineClustering
// is set (only meaningful at fine delta tolerance).
func selectConsensus(votes map[models.OffsetVote]float64, p Params) (vote, []float64) {
	if p.UseFineClustering {
		return selectViaClustering(votes, p)
	}

	var best vote
	group := make([]float64, 0, len(votes))
	for k, w := range votes {
		group = append(group, w)
		if w > best.weight {
			best = vote{key: k, weight: w}
		}
	}
	return best, group
}

// selectViaClustering runs 1-D density clustering (DBSCAN-style, eps in
// seconds, minPts in distinct offset bins) over the surviving offset bins
// grouped by track, and reports the highest-weight cluster's centroid as
// the offset.
func selectViaClustering(votes map[models.OffsetVote]float64, p Params) (vote, []float64) {
	byTrack := make(map[int64][]models.OffsetVote)
	for k := range votes {
		byTrack[k.TrackID] = append(byTrack[k.TrackID], k)
	}

	var best vote
	var bestGroup []float64

	for trackID, keys := range byTrack {
		sort.Slice(keys, func(i, j int) bool { return keys[i].OffsetBin < keys[j].OffsetBin })

		clusters := clusterOffsets(keys, p.ClusterEpsilonSec, p.ClusterMinPoints)
		for _, cluster := range clusters {
			var totalWeight, weightedOffset float64
			group := make([]float64, 0, len(cluster))
			for _, k := range cluster {
				w := votes[models.OffsetVote{TrackID: trackID, OffsetBin: k}]
				totalWeight += w
				weightedOffset += w * k
				group = append(group, w)
			}
			if totalWeight == 0 {
				continue
			}
			centroid := weightedOffset / totalWeight
			if totalWeight > best.weight {
				best = vote{key: models.OffsetVote{TrackID: trackID, OffsetBin: centroid}, weight: totalWeight}
				bestGroup = group
			}
		}
	}

	if best.weight == 0 {
		// no cluster met minPts; fall back to the raw maximum
		return selectConsensus(votes, Params{})
	}
	return best, bestGroup
}

// clusterOffsets groups a sorted slice of offset bins into density-based
// clusters: consecutive bins within eps of each other, each cluster kept
// only if it has at least minPts members.
func clusterOffsets(sortedKeys []models.OffsetVote, eps float64, minPts int) [][]float64 {
	if minPts < 1 {
		minPts = 1
	}

	var clusters [][]float64
	var current []float64

	flush := func() {
		if len(current) >= minPts {
			clusters = append(clusters, current)
		}
		current = nil
	}

	for i, k := range sortedKeys {
		if i == 0 {
			current = []float64{k.OffsetBin}
			continue
		}
		if k.OffsetBin-sortedKeys[i-1].OffsetBin <= eps {
			current = append(current, k.OffsetBin)
		} else {
			flush()
			current = []float64{k.OffsetBin}
		}
	}
	flush()
	return clusters
}

// computeConfidence implements spec.md §4.5 step 8: raw score ratio, with
// an optional entropy adjustment over the surviving vote distribution
// group that down-weights ambiguous (spread out) matches.
func computeConfidence(group []float64, selectedWeight float64, totalChecked int) float64 {
	raw := selectedWeight / float64(totalChecked)
	if raw > 1 {
		raw = 1
	}

	n := len(group)
	if n <= 1 {
		return math.Round(raw*100*100) / 100
	}

	var total float64
	for _, w := range group {
		total += w
	}
	if total == 0 {
		return math.Round(raw*100*100) / 100
	}

	var entropy float64
	for _, w := range group {
		pk := w / total
		if pk > 0 {
			entropy -= pk * math.Log(pk)
		}
	}

	logN := math.Log(float64(n))
	adjusted := raw
	if logN > 0 {
		adjusted = raw * (1 - entropy/logN)
	}
	return math.Round(adjusted*100*100) / 100
}
