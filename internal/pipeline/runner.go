// Package pipeline orchestrates the manifest-driven per-recording transform
// loop shared by all augmentation stages, plus the directory-driven convert
// stage. Processing is strictly sequential and single-pass: load manifest,
// iterate rows in order, transform, save manifest, report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"audioprep/internal/config"
	"audioprep/internal/display"
	"audioprep/internal/ffmpeg"
	"audioprep/internal/logging"
	"audioprep/internal/manifest"
	"audioprep/internal/naming"
	"audioprep/internal/probe"
)

// OriginalColumn records the resolved source path for each processed row.
const OriginalColumn = "original_audio"

// Transform is one per-recording operation. Apply reads srcPath, writes
// dstPath, and returns a short description of the applied parameters for
// logging (e.g. the randomly chosen cutoff).
type Transform interface {
	Name() string
	Suffix() string
	Column() string
	Apply(ctx context.Context, srcPath, dstPath string) (meta string, err error)
}

// Stage wires one manifest-driven run: where sources live, where derived
// files go, which manifests chain in and out, and the transform to apply.
// MaxDuration of 0 disables the duration filter.
type Stage struct {
	KeyColumn      string
	SourceDir      string
	OutputDir      string
	InputManifest  string
	OutputManifest string
	MaxDuration    float64
	Transform      Transform
}

// Run executes one augmentation stage. Per-row failures are logged and
// counted but never abort the run; the only fatal conditions are a
// missing/invalid input manifest, an uncreatable output directory, a failed
// manifest save, and cancellation. A cancelled run writes no output manifest,
// leaving the previous stage's manifest as the authoritative chain state.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, st Stage) (RunStats, error) {
	stats := RunStats{RunID: uuid.NewString()}

	log.Info("=== Augmentation: %s ===", st.Transform.Name())
	log.Info("Run: %s", stats.RunID)
	log.Info("In:  %s (%s)", st.SourceDir, st.InputManifest)
	log.Info("Out: %s (%s)", st.OutputDir, st.OutputManifest)
	if cfg.DryRun {
		log.Warn("DRY RUN — no files or manifests will be written")
	}

	tbl, err := manifest.Load(st.InputManifest)
	if err != nil {
		return stats, err
	}

	keyIdx := tbl.ColumnIndex(st.KeyColumn)
	if keyIdx < 0 {
		return stats, fmt.Errorf("manifest %s has no %q column", st.InputManifest, st.KeyColumn)
	}

	origIdx := tbl.EnsureColumn(OriginalColumn)
	outIdx := tbl.EnsureColumn(st.Transform.Column())

	if err := os.MkdirAll(st.OutputDir, 0o755); err != nil {
		return stats, fmt.Errorf("create output directory %s: %w", st.OutputDir, err)
	}

	stats.Total = tbl.Len()
	log.Info("Loaded manifest: %d rows", stats.Total)
	fmt.Println()

	for i := 0; i < tbl.Len(); i++ {
		stats.Current = i + 1

		if ctx.Err() != nil {
			log.Warn("Interrupted — output manifest not written")
			return stats, ctx.Err()
		}

		processRow(ctx, cfg, log, st, tbl, i, keyIdx, origIdx, outIdx, &stats)
	}

	if !cfg.DryRun {
		if err := tbl.Save(st.OutputManifest); err != nil {
			return stats, err
		}
	}

	logStageSummary(cfg, log, st, &stats)
	return stats, nil
}

// processRow handles one manifest row: validate filename, resolve source,
// apply the duration filter, dispatch the transform, and record the outcome.
func processRow(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	st Stage,
	tbl *manifest.Table,
	row, keyIdx, origIdx, outIdx int,
	stats *RunStats,
) {
	filename := tbl.Get(row, keyIdx)
	log.Info("[%d/%d] %s", stats.Current, stats.Total, filename)

	// --- Validate ---
	if !naming.IsWavName(filename) {
		log.Warn("Skipping %s — not a %s file", filename, naming.WavExt)
		stats.Skipped++
		return
	}
	if !naming.SafeBase(filename) {
		log.Warn("Skipping %s — unsafe file name in manifest", filename)
		stats.Skipped++
		return
	}

	// --- Existence check ---
	srcPath := filepath.Join(st.SourceDir, filename)
	if _, err := os.Stat(srcPath); err != nil {
		log.Warn("%s — not found in %s", filename, st.SourceDir)
		stats.NotFound++
		return
	}

	// --- Duration filter ---
	if st.MaxDuration > 0 {
		dur, err := probe.Duration(ctx, srcPath)
		if err != nil {
			// Legacy behavior: an unreadable duration counts as zero and
			// passes the filter.
			log.Debug(cfg.Verbose, "Duration probe failed for %s: %v", filename, err)
			dur = 0
		}
		if dur > st.MaxDuration {
			log.Info("%s skipped (duration %s > %s)",
				filename, display.FormatDuration(dur), display.FormatDuration(st.MaxDuration))
			stats.FilteredOut++
			return
		}
	}

	tbl.Set(row, origIdx, srcPath)

	outName := naming.DerivedName(filename, st.Transform.Suffix())
	dstPath := filepath.Join(st.OutputDir, outName)

	// --- Dry-run ---
	if cfg.DryRun {
		log.Success("[DRY] Would write %s", outName)
		stats.Succeeded++
		return
	}

	// --- Transform dispatch ---
	meta, err := st.Transform.Apply(ctx, srcPath, dstPath)
	if err != nil {
		log.Error("%s failed: %v", filename, err)
		logStderr(log, err)
		stats.Failed++
		return
	}

	tbl.Set(row, outIdx, dstPath)
	stats.Succeeded++
	if fi, statErr := os.Stat(dstPath); statErr == nil {
		stats.TotalOutputBytes += fi.Size()
	}

	if meta != "" {
		log.Success("%s -> %s (%s)", filename, outName, meta)
	} else {
		log.Success("%s -> %s", filename, outName)
	}
}

// logStderr surfaces the tail of captured ffmpeg stderr after a failure.
func logStderr(log *logging.Logger, err error) {
	var cmdErr *ffmpeg.CommandError
	if !errors.As(err, &cmdErr) {
		return
	}
	tail := ffmpeg.LastLines(cmdErr.Stderr, 5)
	if tail == "" {
		return
	}
	log.Error("Last ffmpeg output:")
	for _, line := range splitLines(tail) {
		log.Error("  %s", line)
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}

// stageDoneLine renders the one-line outcome tally for a stage.
func stageDoneLine(st Stage, stats *RunStats) string {
	filterNote := "filter off"
	if st.MaxDuration > 0 {
		filterNote = ">" + display.FormatDuration(st.MaxDuration)
	}
	return fmt.Sprintf("Done: %d succeeded, %d failed, %d not found, %d filtered out (%s), %d skipped",
		stats.Succeeded, stats.Failed, stats.NotFound, stats.FilteredOut, filterNote, stats.Skipped)
}

func logStageSummary(cfg *config.Config, log *logging.Logger, st Stage, stats *RunStats) {
	fmt.Println()
	log.Info("==============================")
	log.Info("Stage %s complete", st.Transform.Name())
	log.Info("%s", stageDoneLine(st, stats))

	fmt.Println(display.RenderCounters([]display.Counter{
		{Label: "Manifest rows", Value: stats.Total},
		{Label: "Succeeded", Value: stats.Succeeded},
		{Label: "Failed", Value: stats.Failed},
		{Label: "Not found", Value: stats.NotFound},
		{Label: "Filtered out", Value: stats.FilteredOut},
		{Label: "Skipped", Value: stats.Skipped},
	}))

	if cfg.DryRun {
		log.Info("Manifest: not written (dry run)")
		return
	}
	log.Info("Manifest saved: %s", st.OutputManifest)
	log.Info("Derived files in: %s (%s)", st.OutputDir, display.FormatBytes(stats.TotalOutputBytes))
}
