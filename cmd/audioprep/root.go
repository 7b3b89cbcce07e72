package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"audioprep/internal/config"
	"audioprep/internal/display"
	"audioprep/internal/logging"
)

// defaultConfigPath is consulted when --config is not given; a missing file
// there is not an error.
const defaultConfigPath = "audioprep.toml"

// app carries the resolved configuration, logger, and random source shared
// by all subcommands. Populated by setup (PersistentPreRunE) before any
// stage runs.
type app struct {
	cfg config.Config
	log *logging.Logger
	rng *rand.Rand

	configPath string
	seedFlag   uint64
	forceColor bool
	noColor    bool
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "audioprep",
		Short:         "Prepare an audio dataset for speech recognition",
		Long: "audioprep converts container recordings to normalized WAV, filters them\n" +
			"by duration, and applies augmentation transforms (speed, volume, noise,\n" +
			"lowpass), chaining CSV manifests between stages.",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Configuration file path (TOML)")
	pf.Uint64Var(&a.seedFlag, "seed", 0, "Seed for randomized parameters (0 = time-derived)")
	pf.BoolVarP(&a.cfg.DryRun, "dry-run", "d", false, "Preview only; do not transform or write manifests")
	pf.BoolVarP(&a.cfg.Verbose, "verbose", "v", false, "Verbose output")
	pf.BoolVar(&a.forceColor, "color", false, "Force colored logs")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colored logs")
	pf.StringVarP(&a.cfg.LogFile, "log", "l", "", "Append logs to file")

	rootCmd.AddCommand(newConvertCommand(a))
	rootCmd.AddCommand(newSpeedCommand(a))
	rootCmd.AddCommand(newVolumeCommand(a))
	rootCmd.AddCommand(newNoiseCommand(a))
	rootCmd.AddCommand(newLowpassCommand(a))
	rootCmd.AddCommand(newAllCommand(a))
	rootCmd.AddCommand(newCheckCommand(a))

	return rootCmd
}

// setup resolves configuration (defaults, optional TOML file, flags),
// validates it, and builds the logger and random source.
func (a *app) setup(cmd *cobra.Command) error {
	// Flag values already bound into a.cfg (dry-run, verbose, log) must
	// survive the overlay, so load into a scratch copy first.
	dryRun, verbose, logFile := a.cfg.DryRun, a.cfg.Verbose, a.cfg.LogFile

	a.cfg = config.DefaultConfig()
	path := a.configPath
	explicit := cmd.Flags().Changed("config")
	if path == "" {
		path = defaultConfigPath
	}
	if err := config.Load(&a.cfg, path, explicit); err != nil {
		return err
	}

	a.cfg.DryRun = dryRun
	a.cfg.Verbose = verbose
	a.cfg.LogFile = logFile
	if a.noColor {
		a.cfg.ColorMode = config.ColorNever
	} else if a.forceColor {
		a.cfg.ColorMode = config.ColorAlways
	}
	if cmd.Flags().Changed("seed") {
		a.cfg.Seed = a.seedFlag
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.NewLogger(&a.cfg)
	if err != nil {
		return err
	}
	a.log = log

	seed := a.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	a.rng = rand.New(rand.NewPCG(seed, seed+1))

	display.PrintBanner()
	a.log.Info("=== audioprep v%s ===", version)
	a.log.Debug(a.cfg.Verbose, "Random seed: %d", seed)
	if a.cfg.DryRun {
		a.log.Warn("DRY RUN")
	}
	fmt.Println()
	return nil
}
