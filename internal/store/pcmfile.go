package store

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
)

// WritePCMFile persists a normalized mono PCM buffer as raw little-endian
// float64 samples, the sidecar format LoadPCMSegment reads back for
// refinement. It is a deliberately plain format: there is no codec or
// container concern left once C1 has already produced a canonical mono
// 16kHz stream, so no pack serialization library earns its place here.
func WritePCMFile(path string, samples []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	defer f.Close()

	buf := make([]byte, 8*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(s))
	}
	if _, err := f.Write(buf); err != nil {
		return shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	return nil
}

// readPCMSegment reads nSamples float64 values starting at startSample
// from a file written by WritePCMFile, zero-padding past EOF.
func readPCMSegment(path string, startSample, nSamples int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, shazoomerr.Wrap(shazoomerr.ErrStoreError, err)
	}
	defer f.Close()

	out := make([]float64, nSamples)
	if startSample < 0 || nSamples <= 0 {
		return out, nil
	}

	if _, err := f.Seek(int64(startSample)*8, 0); err != nil {
		return out, nil // past EOF: return the zero buffer
	}

	buf := make([]byte, 8*nSamples)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return out, nil
	}

	full := n / 8
	for i := 0; i < full; i++ {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out, nil
}
