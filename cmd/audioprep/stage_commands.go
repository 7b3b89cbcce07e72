package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"audioprep/internal/augment"
	"audioprep/internal/check"
	"audioprep/internal/config"
	"audioprep/internal/pipeline"
)

// errRowFailures marks a stage that completed but had per-recording
// failures. The all command treats it as non-fatal and continues the chain;
// the process still exits non-zero.
var errRowFailures = errors.New("completed with failures")

func newConvertCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert",
		Short: "Convert container audio to normalized WAV and filter by duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := check.CheckDeps(true); err != nil {
				return err
			}
			stats, err := pipeline.RunConvert(cmd.Context(), &a.cfg, a.log)
			if err != nil {
				return err
			}
			if stats.Failed > 0 {
				return fmt.Errorf("convert: %d recordings %w", stats.Failed, errRowFailures)
			}
			return nil
		},
	}
}

func newSpeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "speed",
		Short: "Create speed-changed copies (fixed tempo multiplier)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStage(cmd, a.cfg.Speed.StageIO, 0, true, &augment.Speed{
				Tempo:   a.cfg.Speed.Tempo,
				Verbose: a.cfg.Verbose,
			})
		},
	}
}

func newVolumeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "volume",
		Short: "Create gain-adjusted copies (random gain per recording)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStage(cmd, a.cfg.Volume.StageIO, a.cfg.MaxDurationSec, true, &augment.Volume{
				MinDB:   a.cfg.Volume.GainMinDB,
				MaxDB:   a.cfg.Volume.GainMaxDB,
				Rand:    a.rng,
				Verbose: a.cfg.Verbose,
			})
		},
	}
}

func newNoiseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "noise",
		Short: "Create noise-augmented copies (additive Gaussian noise)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The noise stage decodes waveforms directly; only the duration
			// filter needs an external tool.
			return a.runStage(cmd, a.cfg.Noise.StageIO, a.cfg.MaxDurationSec, false, &augment.Noise{
				Level: a.cfg.Noise.Level,
				Rand:  a.rng,
			})
		},
	}
}

func newLowpassCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lowpass",
		Short: "Create low-pass filtered copies (random cutoff per recording)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStage(cmd, a.cfg.Lowpass.StageIO, a.cfg.MaxDurationSec, true, &augment.Lowpass{
				MinHz:   a.cfg.Lowpass.CutoffMinHz,
				MaxHz:   a.cfg.Lowpass.CutoffMaxHz,
				Rand:    a.rng,
				Verbose: a.cfg.Verbose,
			})
		},
	}
}

func newAllCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run all augmentation stages in chain order (speed, volume, noise, lowpass)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stages := []struct {
				io          config.StageIO
				maxDuration float64
				needFfmpeg  bool
				transform   pipeline.Transform
			}{
				{a.cfg.Speed.StageIO, 0, true, &augment.Speed{Tempo: a.cfg.Speed.Tempo, Verbose: a.cfg.Verbose}},
				{a.cfg.Volume.StageIO, a.cfg.MaxDurationSec, true, &augment.Volume{MinDB: a.cfg.Volume.GainMinDB, MaxDB: a.cfg.Volume.GainMaxDB, Rand: a.rng, Verbose: a.cfg.Verbose}},
				{a.cfg.Noise.StageIO, a.cfg.MaxDurationSec, false, &augment.Noise{Level: a.cfg.Noise.Level, Rand: a.rng}},
				{a.cfg.Lowpass.StageIO, a.cfg.MaxDurationSec, true, &augment.Lowpass{MinHz: a.cfg.Lowpass.CutoffMinHz, MaxHz: a.cfg.Lowpass.CutoffMaxHz, Rand: a.rng, Verbose: a.cfg.Verbose}},
			}

			var failures error
			for _, s := range stages {
				err := a.runStage(cmd, s.io, s.maxDuration, s.needFfmpeg, s.transform)
				if err == nil {
					continue
				}
				// A stage with per-recording failures still wrote its
				// manifest; the chain can continue. Anything else breaks
				// the chain.
				if errors.Is(err, errRowFailures) {
					failures = err
					continue
				}
				return err
			}
			return failures
		},
	}
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run system diagnostics (ffmpeg, ffprobe, audio filters)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !check.RunCheck(a.log) {
				return errors.New("system check failed")
			}
			return nil
		},
	}
}

// runStage validates stage paths and tool availability, then executes the
// manifest-driven pipeline for one transform.
func (a *app) runStage(cmd *cobra.Command, io config.StageIO, maxDuration float64, needFfmpeg bool, tr pipeline.Transform) error {
	if err := check.CheckDeps(needFfmpeg); err != nil {
		return err
	}

	if err := os.MkdirAll(io.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", io.OutputDir, err)
	}
	if err := validateStagePaths(io.SourceDir, io.OutputDir); err != nil {
		return err
	}

	st := pipeline.Stage{
		KeyColumn:      a.cfg.KeyColumn,
		SourceDir:      config.NormalizeDirArg(io.SourceDir),
		OutputDir:      config.NormalizeDirArg(io.OutputDir),
		InputManifest:  io.InputManifest,
		OutputManifest: io.OutputManifest,
		MaxDuration:    maxDuration,
		Transform:      tr,
	}

	stats, err := pipeline.Run(cmd.Context(), &a.cfg, a.log, st)
	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%s: %d recordings %w", tr.Name(), stats.Failed, errRowFailures)
	}
	return nil
}

// validateStagePaths rejects an output directory inside the source
// directory, which would let a stage transform its own output. Resolution
// errors (e.g. source directory absent) are left to the row loop, which
// reports each recording as not found.
func validateStagePaths(sourceDir, outputDir string) error {
	sourceAbs, err := absPath(sourceDir)
	if err != nil {
		return nil
	}
	outputAbs, err := absPath(outputDir)
	if err != nil {
		return nil
	}
	if err := config.ValidatePaths(sourceAbs, outputAbs); err != nil {
		return fmt.Errorf("%w (source %s)", err, sourceDir)
	}
	return nil
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of source vs output directory hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
