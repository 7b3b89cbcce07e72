package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"audioprep/internal/config"
	"audioprep/internal/display"
	"audioprep/internal/ffmpeg"
	"audioprep/internal/logging"
	"audioprep/internal/manifest"
	"audioprep/internal/naming"
	"audioprep/internal/probe"
)

// webExt is the container extension the convert stage consumes.
const webExt = ".webm"

// DiscoverContainers lists container audio files directly inside inputDir,
// sorted lexicographically for deterministic processing order. The scan is
// intentionally non-recursive: recordings land flat in the upload directory.
func DiscoverContainers(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input directory %s: %w", inputDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), webExt) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// RunConvert executes the conversion stage: every container file is
// transcoded to 16-bit 16 kHz mono WAV, probed for duration, and copied into
// the kept directory when it passes the duration filter. Kept recordings are
// written to the chain's starting manifest.
func RunConvert(ctx context.Context, cfg *config.Config, log *logging.Logger) (ConvertStats, error) {
	stats := ConvertStats{RunID: uuid.NewString()}
	cc := cfg.Convert

	log.Info("=== Conversion: %s -> wav ===", webExt)
	log.Info("Run: %s", stats.RunID)
	log.Info("In:   %s", cc.InputDir)
	log.Info("Wav:  %s", cc.WavDir)
	log.Info("Kept: %s (duration <= %s)", cc.KeptDir, display.FormatDuration(cfg.MaxDurationSec))
	if cfg.DryRun {
		log.Warn("DRY RUN — no files or manifests will be written")
	}

	files, err := DiscoverContainers(cc.InputDir)
	if err != nil {
		return stats, err
	}

	if err := os.MkdirAll(cc.WavDir, 0o755); err != nil {
		return stats, fmt.Errorf("create wav directory %s: %w", cc.WavDir, err)
	}
	if err := os.MkdirAll(cc.KeptDir, 0o755); err != nil {
		return stats, fmt.Errorf("create kept directory %s: %w", cc.KeptDir, err)
	}

	stats.Total = len(files)
	log.Info("Found %d %s files", stats.Total, webExt)
	fmt.Println()

	kept := &manifest.Table{Header: []string{cfg.KeyColumn}}

	for i, name := range files {
		stats.Current = i + 1

		if ctx.Err() != nil {
			log.Warn("Interrupted — manifest not written")
			return stats, ctx.Err()
		}

		convertOne(ctx, cfg, log, name, kept, &stats)
	}

	if !cfg.DryRun {
		if err := kept.Save(cc.OutputManifest); err != nil {
			return stats, err
		}
	}

	logConvertSummary(cfg, log, &stats)
	return stats, nil
}

// convertOne transcodes a single container file and applies the kept-copy
// duration filter.
func convertOne(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	name string,
	kept *manifest.Table,
	stats *ConvertStats,
) {
	cc := cfg.Convert
	log.Info("[%d/%d] %s", stats.Current, stats.Total, name)

	inputPath := filepath.Join(cc.InputDir, name)
	outName := naming.ReplaceExt(name, naming.WavExt)
	wavPath := filepath.Join(cc.WavDir, outName)

	if cfg.DryRun {
		log.Success("[DRY] Would convert to %s", outName)
		stats.Kept++
		return
	}

	args := ffmpeg.ConvertArgs(cfg.Verbose, inputPath, wavPath)
	if res := ffmpeg.Run(ctx, cfg.Verbose, args); res.Err != nil {
		cmdErr := &ffmpeg.CommandError{Err: res.Err, Stderr: res.Stderr}
		log.Error("%s failed: %v", name, cmdErr)
		logStderr(log, cmdErr)
		stats.Failed++
		return
	}

	dur, err := probe.Duration(ctx, wavPath)
	if err != nil {
		log.Error("%s converted but duration probe failed: %v", name, err)
		stats.Failed++
		return
	}

	if dur > cfg.MaxDurationSec {
		log.Info("%s | %s | skipped (too long)", outName, display.FormatDuration(dur))
		stats.FilteredOut++
		return
	}

	keptPath := filepath.Join(cc.KeptDir, outName)
	if err := copyFile(wavPath, keptPath); err != nil {
		log.Error("%s copy to kept directory failed: %v", name, err)
		stats.Failed++
		return
	}

	kept.Rows = append(kept.Rows, []string{outName})
	stats.Kept++
	if fi, statErr := os.Stat(keptPath); statErr == nil {
		stats.TotalOutputBytes += fi.Size()
	}
	log.Success("%s | %s | kept", outName, display.FormatDuration(dur))
}

// copyFile copies src to dst, truncating any existing file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func logConvertSummary(cfg *config.Config, log *logging.Logger, stats *ConvertStats) {
	fmt.Println()
	log.Info("==============================")
	log.Info("Conversion complete")
	log.Info("Done: %d kept, %d too long, %d failed",
		stats.Kept, stats.FilteredOut, stats.Failed)

	fmt.Println(display.RenderCounters([]display.Counter{
		{Label: "Container files", Value: stats.Total},
		{Label: "Kept", Value: stats.Kept},
		{Label: "Too long", Value: stats.FilteredOut},
		{Label: "Failed", Value: stats.Failed},
	}))

	if cfg.DryRun {
		log.Info("Manifest: not written (dry run)")
		return
	}
	log.Info("Manifest saved: %s", cfg.Convert.OutputManifest)
	log.Info("Kept files in: %s (%s)", cfg.Convert.KeptDir, display.FormatBytes(stats.TotalOutputBytes))
}
