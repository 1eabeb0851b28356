// Package fingerprint implements C3, the HashGenerator: it reduces a peak
// set to a deterministic sequence of (hash, anchor_time) tuples by pairing
// each peak with nearby peaks within a fan-out window, per spec.md §4.3.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/shazoom-engine/shazoom/internal/models"
)

// Params bundles the HashGenerator's contract parameters. Ingest and query
// must use the same values for a given installation.
type Params struct {
	FanValue      int
	MinDeltaSec   float64
	MaxDeltaSec   float64
	TimePrecision float64
	TargetDensity float64
	MaxHashes     int
}

// Generate produces hash/anchor-time pairs from parallel peak arrays.
// A nil amps selects the freq-only hashing convention and a nil freqs the
// delta-only convention (see buildHashInput).
func Generate(times, freqs, amps []float64, p Params) []models.HashTime {
	if len(times) == 0 {
		return nil
	}

	quantized := make([]float64, len(times))
	for i, t := range times {
		quantized[i] = quantize(t, p.TimePrecision)
	}

	actualFan := scaledFan(quantized, p)

	var out []models.HashTime
	for i := range quantized {
		for j := i + 1; j <= i+actualFan && j < len(quantized); j++ {
			delta := quantized[j] - quantized[i]
			if delta < p.MinDeltaSec || delta > p.MaxDeltaSec {
				continue
			}

			input := buildHashInput(delta, freqs, amps, i, j)
			out = append(out, models.HashTime{
				Hash:      sha1Token(input),
				AnchorSec: quantized[i],
			})

			if p.MaxHashes > 0 && len(out) >= p.MaxHashes {
				return out
			}
		}
	}
	return out
}

// quantize rounds t to the nearest multiple of precision.
func quantize(t, precision float64) float64 {
	if precision <= 0 {
		return t
	}
	return math.Round(t/precision) * precision
}

// scaledFan implements spec.md §4.3 step 2: estimate peak density over the
// signal's time span and shrink fan_value proportionally so dense signals
// don't explode the hash count.
func scaledFan(times []float64, p Params) int {
	if len(times) < 2 || p.FanValue <= 0 {
		return p.FanValue
	}
	span := times[len(times)-1] - times[0]
	if span <= 0 {
		return p.FanValue
	}
	density := float64(len(times)) / span
	if density <= 0 {
		return p.FanValue
	}

	fan := int(math.Floor(float64(p.FanValue) * p.TargetDensity / density))
	if fan < 1 {
		fan = 1
	}
	if fan > p.FanValue {
		fan = p.FanValue
	}
	return fan
}

// buildHashInput forms the canonical delimited string for a pair, per
// spec.md §4.3 step 4. The fixed convention for the freq-only case uses
// "%.0f" for frequency, resolved against the frequency formatting used by
// the reference fingerprinting routine this component is modeled on.
func buildHashInput(delta float64, freqs, amps []float64, i, j int) string {
	switch {
	case freqs != nil && amps != nil:
		return fmt.Sprintf("%.5f|%.1f|%.1f|%.2f|%.2f", delta, freqs[i], freqs[j], amps[i], amps[j])
	case freqs != nil:
		return fmt.Sprintf("%.5f|%.0f|%.0f", delta, freqs[i], freqs[j])
	default:
		return fmt.Sprintf("%.5f", delta)
	}
}

// sha1Token hashes input and returns the first 12 hex characters, the
// fingerprint token stored and matched against.
func sha1Token(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:12]
}
