// Package wavio decodes and encodes WAV files as normalized float samples.
// The noise stage is the only stage that touches waveform data directly; the
// others go through ffmpeg.
package wavio

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWav is returned when the input fails WAV header validation.
var ErrNotWav = errors.New("not a valid wav file")

// Clip limits for normalized samples.
const (
	MinSample = -1.0
	MaxSample = 1.0
)

// Sound is a decoded waveform: samples normalized to [-1, 1], interleaved
// when there is more than one channel.
type Sound struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Read decodes the WAV file at path into normalized float samples.
func Read(path string) (*Sound, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotWav)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav %s: %w", path, err)
	}
	if buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%s: empty wav data", path)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int(1) << (bitDepth - 1))

	s := &Sound{
		Samples:    make([]float64, len(buf.Data)),
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}
	for i, v := range buf.Data {
		s.Samples[i] = float64(v) / scale
	}
	return s, nil
}

// Write encodes s to path as 16-bit PCM, clipping samples to [-1, 1] first.
func Write(path string, s *Sound) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, s.SampleRate, 16, s.Channels, 1)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: s.Channels,
			SampleRate:  s.SampleRate,
		},
		Data:           make([]int, len(s.Samples)),
		SourceBitDepth: 16,
	}
	for i, v := range s.Samples {
		buf.Data[i] = int(math.Round(Clip(v) * 32767.0))
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encode wav %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav %s: %w", path, err)
	}
	return f.Close()
}

// Clip limits v to the valid normalized sample range.
func Clip(v float64) float64 {
	if v > MaxSample {
		return MaxSample
	}
	if v < MinSample {
		return MinSample
	}
	return v
}

// Peak returns the largest absolute sample value, or 0 for empty input.
func Peak(samples []float64) float64 {
	peak := 0.0
	for _, v := range samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}
