package peaks

import "math"

const epsilon = 1e-9

// Params bundles the tunables that are part of C2's contract: they must be
// identical between ingest and query for the same installation, since
// stored fingerprints depend on them.
type Params struct {
	FrameSize          int
	HopSize            int
	MinFreq            float64
	MaxFreq            float64
	Threshold          float64
	AbsoluteThreshold  float64 // 0 disables the absolute gate
	MaxPeaks           int     // 0 disables the cap
	MedianFilter       bool
}

// Peaks is the parallel-array result of extraction: times[i]/freqs[i]/
// amps[i] all describe the same spectral local maximum.
type Peaks struct {
	Times []float64
	Freqs []float64
	Amps  []float64
}

// ExtractPeaksWithFreqsAmps runs the full C2 algorithm and returns times,
// frequencies and amplitudes, per spec.md §4.2.
func ExtractPeaksWithFreqsAmps(mono []float64, sr int, p Params) Peaks {
	if p.MedianFilter {
		mono = medianFilter3(mono)
	}

	frames := Spectrogram(mono, sr, p.FrameSize, p.HopSize)
	if len(frames) == 0 {
		return Peaks{}
	}

	freqRes := float64(sr) / float64(p.FrameSize)
	loBin := int(math.Ceil(p.MinFreq / freqRes))
	hiBin := int(p.MaxFreq / freqRes)
	if loBin < 0 {
		loBin = 0
	}

	var times, freqs, amps []float64

	for col, frame := range frames {
		hi := hiBin
		if hi >= len(frame.Mags) {
			hi = len(frame.Mags) - 1
		}
		if loBin > hi {
			continue
		}

		colMax := epsilon
		for bin := loBin; bin <= hi; bin++ {
			if frame.Mags[bin] > colMax {
				colMax = frame.Mags[bin]
			}
		}

		for bin := loBin; bin <= hi; bin++ {
			amp := frame.Mags[bin]

			if amp <= p.Threshold*colMax {
				continue
			}
			if p.AbsoluteThreshold > 0 && amp <= p.AbsoluteThreshold {
				continue
			}
			if !isLocalMax3x3(frames, col, bin) {
				continue
			}

			times = append(times, frame.TimeSec)
			freqs = append(freqs, float64(bin)*freqRes)
			amps = append(amps, amp)
		}
	}

	if p.MaxPeaks > 0 && len(times) > p.MaxPeaks {
		times, freqs, amps = topByAmplitude(times, freqs, amps, p.MaxPeaks)
	}

	return Peaks{Times: times, Freqs: freqs, Amps: amps}
}

// ExtractPeaksWithFreqs discards amplitude, keeping only (times, freqs) —
// used by the HashGenerator's freq-only hashing convention.
func ExtractPeaksWithFreqs(mono []float64, sr int, p Params) (times, freqs []float64) {
	peaks := ExtractPeaksWithFreqsAmps(mono, sr, p)
	return peaks.Times, peaks.Freqs
}

// ExtractPeaksOnly discards frequency and amplitude, keeping only times —
// used by the HashGenerator's delta-only hashing convention, the coarsest
// and most distortion-tolerant of the three per spec.md §4.3.
func ExtractPeaksOnly(mono []float64, sr int, p Params) []float64 {
	peaks := ExtractPeaksWithFreqsAmps(mono, sr, p)
	return peaks.Times
}

// isLocalMax3x3 checks whether frames[col].Mags[bin] equals the maximum of
// its 3x3 neighborhood across adjacent columns and bins, i.e. the cell
// equals its own 2D maximum filter — spec.md §4.2 step 5.
func isLocalMax3x3(frames []Frame, col, bin int) bool {
	center := frames[col].Mags[bin]
	for dc := -1; dc <= 1; dc++ {
		c := col + dc
		if c < 0 || c >= len(frames) {
			continue
		}
		mags := frames[c].Mags
		for db := -1; db <= 1; db++ {
			b := bin + db
			if b < 0 || b >= len(mags) {
				continue
			}
			if mags[b] > center {
				return false
			}
		}
	}
	return true
}

// topByAmplitude keeps the max_peaks entries with the highest amplitude,
// preserving the index alignment across all three arrays.
func topByAmplitude(times, freqs, amps []float64, maxPeaks int) ([]float64, []float64, []float64) {
	type indexed struct {
		idx int
		amp float64
	}
	ranked := make([]indexed, len(amps))
	for i, a := range amps {
		ranked[i] = indexed{i, a}
	}
	// simple partial selection sort, good enough at the scale of a single
	// signal's peak set (hundreds to low thousands of entries)
	for i := 0; i < maxPeaks; i++ {
		maxJ := i
		for j := i + 1; j < len(ranked); j++ {
			if ranked[j].amp > ranked[maxJ].amp {
				maxJ = j
			}
		}
		ranked[i], ranked[maxJ] = ranked[maxJ], ranked[i]
	}
	ranked = ranked[:maxPeaks]

	outT := make([]float64, maxPeaks)
	outF := make([]float64, maxPeaks)
	outA := make([]float64, maxPeaks)
	for i, r := range ranked {
		outT[i] = times[r.idx]
		outF[i] = freqs[r.idx]
		outA[i] = amps[r.idx]
	}
	return outT, outF, outA
}
