// Package augment implements the per-recording transforms applied by the
// augmentation stages: tempo change, random gain, additive noise, and
// low-pass filtering. Each transform reads one source file, writes one
// derived file, and reports the randomly chosen parameter (if any) for
// logging and manifest bookkeeping.
//
// Randomized transforms draw from an injected *rand.Rand so tests can seed
// them and assert parameter ranges.
package augment

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"audioprep/internal/ffmpeg"
	"audioprep/internal/wavio"
)

// Speed changes playback tempo by a fixed multiplier via ffmpeg atempo.
type Speed struct {
	Tempo   float64
	Verbose bool
}

func (s *Speed) Name() string   { return "speed" }
func (s *Speed) Suffix() string { return "_2x" }
func (s *Speed) Column() string { return "augmented_audio_2x" }

func (s *Speed) Apply(ctx context.Context, srcPath, dstPath string) (string, error) {
	args := ffmpeg.TempoArgs(s.Verbose, s.Tempo, srcPath, dstPath)
	if res := ffmpeg.Run(ctx, s.Verbose, args); res.Err != nil {
		return "", &ffmpeg.CommandError{Err: res.Err, Stderr: res.Stderr}
	}
	return fmt.Sprintf("tempo %gx", s.Tempo), nil
}

// Volume applies a random gain drawn uniformly from [MinDB, MaxDB],
// rounded to two decimals, via the ffmpeg volume filter.
type Volume struct {
	MinDB   float64
	MaxDB   float64
	Rand    *rand.Rand
	Verbose bool
}

func (v *Volume) Name() string   { return "volume" }
func (v *Volume) Suffix() string { return "_volume" }
func (v *Volume) Column() string { return "augmented_audio_volume" }

func (v *Volume) Apply(ctx context.Context, srcPath, dstPath string) (string, error) {
	gain := v.pickGain()
	args := ffmpeg.VolumeArgs(v.Verbose, gain, srcPath, dstPath)
	if res := ffmpeg.Run(ctx, v.Verbose, args); res.Err != nil {
		return "", &ffmpeg.CommandError{Err: res.Err, Stderr: res.Stderr}
	}
	return fmt.Sprintf("gain %+.2f dB", gain), nil
}

func (v *Volume) pickGain() float64 {
	g := v.MinDB + v.Rand.Float64()*(v.MaxDB-v.MinDB)
	return math.Round(g*100) / 100
}

// Lowpass applies a low-pass filter with a cutoff drawn uniformly from
// [MinHz, MaxHz] inclusive.
type Lowpass struct {
	MinHz   int
	MaxHz   int
	Rand    *rand.Rand
	Verbose bool
}

func (l *Lowpass) Name() string   { return "lowpass" }
func (l *Lowpass) Suffix() string { return "_lowpass" }
func (l *Lowpass) Column() string { return "augmented_audio_lowpass" }

func (l *Lowpass) Apply(ctx context.Context, srcPath, dstPath string) (string, error) {
	cutoff := l.pickCutoff()
	args := ffmpeg.LowpassArgs(l.Verbose, cutoff, srcPath, dstPath)
	if res := ffmpeg.Run(ctx, l.Verbose, args); res.Err != nil {
		return "", &ffmpeg.CommandError{Err: res.Err, Stderr: res.Stderr}
	}
	return fmt.Sprintf("cutoff %d Hz", cutoff), nil
}

func (l *Lowpass) pickCutoff() int {
	return l.MinHz + l.Rand.IntN(l.MaxHz-l.MinHz+1)
}

// Noise adds Gaussian noise directly to the decoded waveform. The amplitude
// is Level * U(0.5, 1.0) * peak, where peak is the largest absolute sample
// of the source; every sample gets an independent draw and the result is
// clipped to the valid range on re-encode.
type Noise struct {
	Level float64
	Rand  *rand.Rand
}

func (n *Noise) Name() string   { return "noise" }
func (n *Noise) Suffix() string { return "_noise" }
func (n *Noise) Column() string { return "augmented_audio_noise" }

func (n *Noise) Apply(ctx context.Context, srcPath, dstPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	snd, err := wavio.Read(srcPath)
	if err != nil {
		return "", err
	}

	amp := n.Level * (0.5 + 0.5*n.Rand.Float64()) * wavio.Peak(snd.Samples)
	for i := range snd.Samples {
		snd.Samples[i] = wavio.Clip(snd.Samples[i] + amp*n.Rand.NormFloat64())
	}

	if err := wavio.Write(dstPath, snd); err != nil {
		return "", err
	}
	return fmt.Sprintf("noise amp %.4f", amp), nil
}
