package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/shazoom-engine/shazoom/internal/shazoomerr"
)

// recordFragment captures seconds of mono audio from the default input
// device and writes it to a temp WAV file, returning its path. The
// caller is responsible for removing it once done.
func recordFragment(seconds float64) (string, error) {
	if err := portaudio.Initialize(); err != nil {
		return "", shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}
	defer portaudio.Terminate()

	inputDevice, err := portaudio.DefaultInputDevice()
	if err != nil {
		return "", shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}

	sampleRate := inputDevice.DefaultSampleRate
	if sampleRate < 44100 {
		sampleRate = 44100
	}

	parameters := portaudio.HighLatencyParameters(inputDevice, nil)
	parameters.Input.Channels = 1
	parameters.SampleRate = sampleRate
	parameters.FramesPerBuffer = 2048

	buffer := make([]int16, 2048)
	stream, err := portaudio.OpenStream(parameters, buffer)
	if err != nil {
		return "", shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return "", shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}

	var samples []int16
	start := time.Now()
	for time.Since(start) < time.Duration(seconds*float64(time.Second)) {
		if err := stream.Read(); err != nil {
			break
		}
		samples = append(samples, buffer...)
	}
	stream.Stop()

	tmp, err := os.CreateTemp("", "shazoom-record-*.wav")
	if err != nil {
		return "", shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}
	path := tmp.Name()
	tmp.Close()

	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	if err := writeWavFile(path, data, int(stream.Info().SampleRate), 1, 16); err != nil {
		os.Remove(path)
		return "", err
	}

	fmt.Printf("recorded %.1fs at %d Hz\n", float64(len(samples))/stream.Info().SampleRate, int(stream.Info().SampleRate))
	return path, nil
}

// writeWavHeader writes a canonical 44-byte PCM WAV header.
func writeWavHeader(f *os.File, dataLen, sampleRate, channels, bitsPerSample int) error {
	bytesPerSample := bitsPerSample / 8
	blockAlign := uint16(bytesPerSample * channels)

	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		BytesPerSec   uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + dataLen),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		BytesPerSec:   uint32(channels * sampleRate * bytesPerSample),
		BlockAlign:    blockAlign,
		BitsPerSample: uint16(bitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataLen),
	}

	return binary.Write(f, binary.LittleEndian, header)
}

func writeWavFile(path string, data []byte, sampleRate, channels, bitsPerSample int) error {
	f, err := os.Create(path)
	if err != nil {
		return shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}
	defer f.Close()

	if err := writeWavHeader(f, len(data), sampleRate, channels, bitsPerSample); err != nil {
		return shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}
	if _, err := f.Write(data); err != nil {
		return shazoomerr.Wrap(shazoomerr.ErrDecodeFailure, err)
	}
	return nil
}
