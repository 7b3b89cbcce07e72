// Package config holds runtime configuration: defaults, optional TOML config
// file loading, and validation. Defaults reproduce the legacy script layout
// (webaudios -> wavaudios -> filteredforwhisper -> augmented_*) so a bare
// invocation behaves like the original pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// StageIO is the directory and manifest wiring shared by the augmentation
// stages. Manifest chaining between stages is explicit here rather than a
// filename convention buried in each stage.
type StageIO struct {
	SourceDir      string `toml:"source_dir"`
	OutputDir      string `toml:"output_dir"`
	InputManifest  string `toml:"input_manifest"`
	OutputManifest string `toml:"output_manifest"`
}

// ConvertConfig wires the container-to-WAV conversion stage. It is
// directory-driven: InputDir is scanned for container audio, WavDir receives
// every conversion, KeptDir receives only recordings that pass the duration
// filter, and OutputManifest is the chain's starting manifest.
type ConvertConfig struct {
	InputDir       string `toml:"input_dir"`
	WavDir         string `toml:"wav_dir"`
	KeptDir        string `toml:"kept_dir"`
	OutputManifest string `toml:"output_manifest"`
}

// SpeedConfig wires the tempo-change stage.
type SpeedConfig struct {
	StageIO
	Tempo float64 `toml:"tempo"` // atempo multiplier, default 2.0.
}

// VolumeConfig wires the random-gain stage.
type VolumeConfig struct {
	StageIO
	GainMinDB float64 `toml:"gain_min_db"` // Default: -3.0.
	GainMaxDB float64 `toml:"gain_max_db"` // Default: +3.0.
}

// NoiseConfig wires the additive-noise stage.
type NoiseConfig struct {
	StageIO
	// Level scales the noise amplitude relative to the peak sample:
	// amp = Level * U(0.5, 1.0) * peak. Default: 0.02.
	Level float64 `toml:"level"`
}

// LowpassConfig wires the low-pass filter stage.
type LowpassConfig struct {
	StageIO
	CutoffMinHz int `toml:"cutoff_min_hz"` // Default: 3000.
	CutoffMaxHz int `toml:"cutoff_max_hz"` // Default: 6000.
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// optionally overlaid by [Load], and then mutated by CLI flags before being
// passed (by pointer) to packages that need it.
type Config struct {
	// Manifest key column identifying a recording.
	KeyColumn string `toml:"key_column"`

	// Seed for the randomized stage parameters. 0 means time-derived.
	Seed uint64 `toml:"seed"`

	// Duration filter applied by the convert, volume, noise, and lowpass
	// stages. Recordings longer than this are filtered out. Seconds.
	MaxDurationSec float64 `toml:"max_duration_sec"`

	Convert ConvertConfig `toml:"convert"`
	Speed   SpeedConfig   `toml:"speed"`
	Volume  VolumeConfig  `toml:"volume"`
	Noise   NoiseConfig   `toml:"noise"`
	Lowpass LowpassConfig `toml:"lowpass"`

	// Behavior and display (flags only, never persisted).
	DryRun    bool      `toml:"-"`
	Verbose   bool      `toml:"-"`
	ColorMode ColorMode `toml:"-"`
	LogFile   string    `toml:"-"`
}

// DefaultConfig returns a Config whose stage wiring matches the legacy
// scripts: same directories, same parameter ranges, with the manifest chain
// convert -> speed -> volume -> noise -> lowpass made explicit.
func DefaultConfig() Config {
	return Config{
		KeyColumn:      "Recording Name",
		Seed:           0,
		MaxDurationSec: 30,
		Convert: ConvertConfig{
			InputDir:       "webaudios",
			WavDir:         "wavaudios",
			KeptDir:        "filteredforwhisper",
			OutputManifest: "recordings.csv",
		},
		Speed: SpeedConfig{
			StageIO: StageIO{
				SourceDir:      "filteredforwhisper",
				OutputDir:      "augmented_2x",
				InputManifest:  "recordings.csv",
				OutputManifest: "recordings_speed.csv",
			},
			Tempo: 2.0,
		},
		Volume: VolumeConfig{
			StageIO: StageIO{
				SourceDir:      "filteredforwhisper",
				OutputDir:      "augmented_volume",
				InputManifest:  "recordings_speed.csv",
				OutputManifest: "recordings_volume.csv",
			},
			GainMinDB: -3.0,
			GainMaxDB: 3.0,
		},
		Noise: NoiseConfig{
			StageIO: StageIO{
				SourceDir:      "filteredforwhisper",
				OutputDir:      "augmented_noise",
				InputManifest:  "recordings_volume.csv",
				OutputManifest: "recordings_noise.csv",
			},
			Level: 0.02,
		},
		Lowpass: LowpassConfig{
			StageIO: StageIO{
				SourceDir:      "filteredforwhisper",
				OutputDir:      "augmented_lowpass",
				InputManifest:  "recordings_noise.csv",
				OutputManifest: "recordings_lowpass.csv",
			},
			CutoffMinHz: 3000,
			CutoffMaxHz: 6000,
		},
		DryRun:    false,
		Verbose:   false,
		ColorMode: ColorAuto,
	}
}

// Load overlays cfg with values from the TOML file at path. A missing file
// is an error when explicit is true (user passed --config) and silently
// ignored otherwise, so the default config path is optional.
func Load(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields, stage parameter ranges, and directory wiring.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if strings.TrimSpace(c.KeyColumn) == "" {
		return errors.New("key column must not be empty")
	}
	if c.MaxDurationSec < 0 {
		return errors.New("max duration must not be negative")
	}

	// ffmpeg's atempo filter accepts factors in [0.5, 100].
	if c.Speed.Tempo < 0.5 || c.Speed.Tempo > 100 {
		return fmt.Errorf("tempo %.2f out of range (atempo accepts 0.5-100)", c.Speed.Tempo)
	}
	if c.Volume.GainMinDB > c.Volume.GainMaxDB {
		return fmt.Errorf("gain range inverted (%.2f > %.2f dB)", c.Volume.GainMinDB, c.Volume.GainMaxDB)
	}
	if c.Noise.Level <= 0 {
		return fmt.Errorf("noise level must be positive (got %g)", c.Noise.Level)
	}
	if c.Lowpass.CutoffMinHz <= 0 || c.Lowpass.CutoffMinHz > c.Lowpass.CutoffMaxHz {
		return fmt.Errorf("invalid cutoff range %d-%d Hz", c.Lowpass.CutoffMinHz, c.Lowpass.CutoffMaxHz)
	}

	for _, d := range []struct {
		name, value string
	}{
		{"convert.input_dir", c.Convert.InputDir},
		{"convert.wav_dir", c.Convert.WavDir},
		{"convert.kept_dir", c.Convert.KeptDir},
		{"speed.source_dir", c.Speed.SourceDir},
		{"speed.output_dir", c.Speed.OutputDir},
		{"volume.source_dir", c.Volume.SourceDir},
		{"volume.output_dir", c.Volume.OutputDir},
		{"noise.source_dir", c.Noise.SourceDir},
		{"noise.output_dir", c.Noise.OutputDir},
		{"lowpass.source_dir", c.Lowpass.SourceDir},
		{"lowpass.output_dir", c.Lowpass.OutputDir},
	} {
		if strings.TrimSpace(d.value) == "" {
			return fmt.Errorf("%s must not be empty", d.name)
		}
	}

	for _, m := range []struct {
		name, value string
	}{
		{"convert.output_manifest", c.Convert.OutputManifest},
		{"speed.input_manifest", c.Speed.InputManifest},
		{"speed.output_manifest", c.Speed.OutputManifest},
		{"volume.input_manifest", c.Volume.InputManifest},
		{"volume.output_manifest", c.Volume.OutputManifest},
		{"noise.input_manifest", c.Noise.InputManifest},
		{"noise.output_manifest", c.Noise.OutputManifest},
		{"lowpass.input_manifest", c.Lowpass.InputManifest},
		{"lowpass.output_manifest", c.Lowpass.OutputManifest},
	} {
		if strings.TrimSpace(m.value) == "" {
			return fmt.Errorf("%s must not be empty", m.name)
		}
	}

	return nil
}

// ValidatePaths ensures the resolved output directory is not inside (or equal
// to) the resolved source directory. This prevents a stage from discovering
// or transforming its own output files. Both arguments must be absolute,
// symlink-resolved paths.
func ValidatePaths(sourceAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == sourceAbs || strings.HasPrefix(outputAbs+sep, sourceAbs+sep) {
		return errors.New("output directory must not be inside source directory")
	}
	return nil
}
