// Package check provides system diagnostics (the check subcommand) and
// pre-stage dependency validation for ffmpeg and ffprobe.
package check

import (
	"errors"
	"os/exec"
	"strings"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrFfmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound = errors.New("ffprobe not found on PATH")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// RunCheck runs the interactive diagnostics flow: ffmpeg and ffprobe
// availability plus a short test encode for each audio filter the stages
// use. Informational only — it does not stop on failure. Returns false when
// any check failed.
func RunCheck(log Logger) bool {
	log.Info("=== System Check ===")

	ok := checkFfmpeg(log)
	ok = checkFfprobe(log) && ok
	ok = checkFilter(log, "atempo", "atempo=2.0") && ok
	ok = checkFilter(log, "lowpass", "lowpass=f=4000") && ok
	ok = checkFilter(log, "volume", "volume=-2.50dB") && ok
	ok = checkWavEncode(log) && ok
	return ok
}

// checkFfmpeg verifies ffmpeg is on PATH and logs its version string.
func checkFfmpeg(log Logger) bool {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		log.Error("ffmpeg not found")
		return false
	}
	cmd := exec.Command("ffmpeg", "-version")
	out, err := cmd.Output()
	if err != nil {
		log.Warn("ffmpeg found but -version failed: %v", err)
		return false
	}
	firstLine := strings.TrimSpace(string(out))
	if idx := strings.Index(firstLine, "\n"); idx > 0 {
		firstLine = firstLine[:idx]
	}
	log.Success("ffmpeg: %s", firstLine)
	return true
}

// checkFfprobe verifies ffprobe is on PATH and logs its version string.
func checkFfprobe(log Logger) bool {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		log.Error("ffprobe not found")
		return false
	}
	cmd := exec.Command("ffprobe", "-version")
	out, err := cmd.Output()
	if err != nil {
		log.Warn("ffprobe found but -version failed: %v", err)
		return false
	}
	firstLine := strings.TrimSpace(string(out))
	if idx := strings.Index(firstLine, "\n"); idx > 0 {
		firstLine = firstLine[:idx]
	}
	log.Success("ffprobe: %s", firstLine)
	return true
}

// checkFilter runs a minimal encode of a generated sine tone through the
// given audio filter.
func checkFilter(log Logger, name, filter string) bool {
	log.Info("Testing %s filter...", name)
	if runSilent("ffmpeg",
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-af", filter,
		"-f", "null", "-",
	) {
		log.Success("%s filter works", name)
		return true
	}
	log.Error("%s filter test failed", name)
	return false
}

// checkWavEncode verifies the pcm_s16le/16kHz/mono target format encodes.
func checkWavEncode(log Logger) bool {
	log.Info("Testing wav encode (pcm_s16le, 16 kHz, mono)...")
	if runSilent("ffmpeg",
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1",
		"-f", "wav", "/dev/null", "-y",
	) {
		log.Success("wav encode works")
		return true
	}
	log.Error("wav encode test failed")
	return false
}

// CheckDeps is the pre-stage validation: ffprobe is always required (the
// duration filter), ffmpeg only by stages that transcode. Returns a sentinel
// error on failure.
func CheckDeps(needFfmpeg bool) error {
	if needFfmpeg {
		if _, err := exec.LookPath("ffmpeg"); err != nil {
			return ErrFfmpegNotFound
		}
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrFfprobeNotFound
	}
	return nil
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}
