// Package audio implements the AudioDecoder external collaborator
// referenced by spec.md §1/§4.7: something that turns a container file into
// a raw sample stream. It is intentionally dumb about sample rate and
// channel layout — normalizing to mono 16 kHz is internal/dsp's job (C1),
// so a Decoder stays a thin adapter over whichever codec library can read
// the container.
package audio

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"

	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
)

// PCM is the raw decode result: interleaved samples (L,R,L,R... if stereo),
// the channel count, and the file's native sample rate.
type PCM struct {
	Samples    []float64
	Channels   int
	SampleRate int
}

// Decoder turns a container file into PCM.
type Decoder interface {
	Decode(path string) (PCM, error)
}

// BeepDecoder decodes wav/mp3/flac in-process via faiface/beep, without
// shelling out. It dispatches on file extension the same way the teacher's
// fileformat.ConvertToWAV keys off filepath.Ext.
type BeepDecoder struct{}

func NewBeepDecoder() *BeepDecoder { return &BeepDecoder{} }

func (d *BeepDecoder) Decode(path string) (PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return PCM{}, shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}
	defer f.Close()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		return PCM{}, shazoomerr.WrapMsg(shazoomerr.ErrDecodeFailure, "unsupported container %q", filepath.Ext(path))
	}
	if err != nil {
		return PCM{}, shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}
	defer streamer.Close()

	channels := format.NumChannels
	samples := make([]float64, 0, streamer.Len()*channels)
	buf := make([][2]float64, 512)

	for {
		n, ok := streamer.Stream(buf)
		for i := 0; i < n; i++ {
			samples = append(samples, buf[i][0])
			if channels == 2 {
				samples = append(samples, buf[i][1])
			}
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return PCM{}, shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}

	return PCM{
		Samples:    samples,
		Channels:   channels,
		SampleRate: int(format.SampleRate),
	}, nil
}

// FFmpegDecoder shells out to ffmpeg/ffprobe for containers beep cannot
// read (video files, exotic codecs), matching the teacher's
// fileformat.ConvertToWAV/ReformatWav invocation style. It converts to a
// temporary mono 16-bit WAV and hands that to BeepDecoder.
type FFmpegDecoder struct {
	inner *BeepDecoder
}

func NewFFmpegDecoder() *FFmpegDecoder {
	return &FFmpegDecoder{inner: NewBeepDecoder()}
}

func (d *FFmpegDecoder) Decode(path string) (PCM, error) {
	if _, err := os.Stat(path); err != nil {
		return PCM{}, shazoomerr.WrapMsg(shazoomerr.ErrDecodeFailure, "input file does not exist: %v", err)
	}

	tmp, err := os.CreateTemp("", "shazoom-decode-*.wav")
	if err != nil {
		return PCM{}, shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.Command(
		"ffmpeg",
		"-y",
		"-i", path,
		"-vn",
		"-c", "pcm_s16le",
		"-ar", "44100",
		"-ac", "1",
		tmpPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return PCM{}, shazoomerr.WrapMsg(shazoomerr.ErrDecodeFailure, "ffmpeg failed: %v, output: %s", err, string(out))
	}

	return d.inner.Decode(tmpPath)
}
