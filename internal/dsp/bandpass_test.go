package dsp_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shazoom-engine/shazoom/internal/dsp"
)

func TestButterworthBandpassAttenuatesOutOfBand(t *testing.T) {
	const sr = 16000
	n := 4000

	low := make([]float64, n)
	high := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sr
		low[i] = math.Sin(2 * math.Pi * 30 * t)   // below the 100-4000Hz band
		high[i] = math.Sin(2 * math.Pi * 1000 * t) // inside the band
	}

	filteredLow := dsp.ButterworthBandpass(low, sr, 100, 4000, 4)
	filteredHigh := dsp.ButterworthBandpass(high, sr, 100, 4000, 4)

	assert.Less(t, rms(filteredLow[n/2:]), rms(low[n/2:]))
	assert.Greater(t, rms(filteredHigh[n/2:]), rms(filteredLow[n/2:]))
}

func TestButterworthBandpassClampsOrder(t *testing.T) {
	in := make([]float64, 100)
	for i := range in {
		in[i] = 1.0
	}
	out := dsp.ButterworthBandpass(in, 16000, 100, 4000, 0)
	assert.Len(t, out, len(in))
}

func rms(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
