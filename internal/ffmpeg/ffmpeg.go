// Package ffmpeg builds and executes the external transcode commands used by
// the pipeline stages. Argument construction is kept separate from execution
// so the generated commands are testable without an ffmpeg binary.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Stderr string
	Err    error
}

// Run executes the argument slice produced by one of the builders. When
// verbose is set, stderr is tee'd to os.Stderr in real time; otherwise it is
// captured silently and surfaced only on failure.
func Run(ctx context.Context, verbose bool, args []string) ExecResult {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stderrBuf bytes.Buffer
	if verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	return ExecResult{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}

// preamble returns the shared ffmpeg prefix: overwrite output, no stdin, and
// error-only log output so captured stderr stays diagnostic.
func preamble(verbose bool) []string {
	args := []string{"ffmpeg", "-hide_banner", "-nostdin", "-y"}
	if verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}
	return args
}

// ConvertArgs builds the container-to-WAV conversion command: 16-bit PCM,
// 16 kHz, mono — the waveform format downstream ASR tooling expects.
func ConvertArgs(verbose bool, inputPath, outputPath string) []string {
	args := preamble(verbose)
	return append(args,
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		outputPath,
	)
}

// TempoArgs builds the speed-change command using the atempo filter.
func TempoArgs(verbose bool, tempo float64, inputPath, outputPath string) []string {
	args := preamble(verbose)
	return append(args,
		"-i", inputPath,
		"-filter:a", "atempo="+strconv.FormatFloat(tempo, 'g', -1, 64),
		outputPath,
	)
}

// LowpassArgs builds the low-pass filter command for the given cutoff in Hz.
func LowpassArgs(verbose bool, cutoffHz int, inputPath, outputPath string) []string {
	args := preamble(verbose)
	return append(args,
		"-i", inputPath,
		"-af", fmt.Sprintf("lowpass=f=%d", cutoffHz),
		outputPath,
	)
}

// VolumeArgs builds the gain command. gainDB carries two decimal places on
// the wire so logs and filter strings agree.
func VolumeArgs(verbose bool, gainDB float64, inputPath, outputPath string) []string {
	args := preamble(verbose)
	return append(args,
		"-i", inputPath,
		"-filter:a", fmt.Sprintf("volume=%.2fdB", gainDB),
		outputPath,
	)
}
