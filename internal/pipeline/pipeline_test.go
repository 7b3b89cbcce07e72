package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"audioprep/internal/config"
	"audioprep/internal/logging"
	"audioprep/internal/manifest"
)

// stubTransform stands in for a real transform: it writes a marker file at
// dstPath and records the calls it received.
type stubTransform struct {
	calls  []string
	failOn string
	meta   string
}

func (s *stubTransform) Name() string   { return "stub" }
func (s *stubTransform) Suffix() string { return "_stub" }
func (s *stubTransform) Column() string { return "augmented_audio_stub" }

func (s *stubTransform) Apply(_ context.Context, srcPath, dstPath string) (string, error) {
	s.calls = append(s.calls, filepath.Base(srcPath))
	if filepath.Base(srcPath) == s.failOn {
		return "", errors.New("boom")
	}
	if err := os.WriteFile(dstPath, []byte("derived"), 0o644); err != nil {
		return "", err
	}
	return s.meta, nil
}

func testConfig(t *testing.T) (*config.Config, *logging.Logger) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })
	return &cfg, log
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("RIFFdata"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeManifest(t *testing.T, path string, rows ...string) {
	t.Helper()
	contents := "Recording Name\n"
	for _, r := range rows {
		contents += r + "\n"
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

// testStage builds a Stage over a temp layout: sources in src/, outputs in
// out/, manifests at the dir root. MaxDuration stays 0 so tests run without
// an ffprobe binary.
func testStage(dir string, tr Transform) Stage {
	return Stage{
		KeyColumn:      "Recording Name",
		SourceDir:      filepath.Join(dir, "src"),
		OutputDir:      filepath.Join(dir, "out"),
		InputManifest:  filepath.Join(dir, "in.csv"),
		OutputManifest: filepath.Join(dir, "out.csv"),
		MaxDuration:    0,
		Transform:      tr,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg, log := testConfig(t)

	srcDir := filepath.Join(dir, "src")
	os.MkdirAll(srcDir, 0o755)
	touch(t, srcDir, "a.wav")
	writeManifest(t, filepath.Join(dir, "in.csv"),
		"a.wav",          // exists -> succeeds
		"missing.wav",    // absent -> not found
		"notes.txt",      // wrong extension -> skipped
		"../escape.wav",  // unsafe name -> skipped
	)

	tr := &stubTransform{meta: "stub param"}
	stats, err := Run(context.Background(), cfg, log, testStage(dir, tr))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", stats.Succeeded)
	}
	if stats.NotFound != 1 {
		t.Errorf("NotFound = %d, want 1", stats.NotFound)
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}
	if stats.Failed != 0 {
		t.Errorf("Failed = %d, want 0", stats.Failed)
	}

	// Exactly one derived file, named source + suffix.
	if _, err := os.Stat(filepath.Join(dir, "out", "a_stub.wav")); err != nil {
		t.Errorf("derived file missing: %v", err)
	}

	// Output manifest preserves row count and order, fills columns only for
	// the processed row.
	tbl, err := manifest.Load(filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatalf("load output manifest: %v", err)
	}
	if tbl.Len() != 4 {
		t.Fatalf("output manifest rows = %d, want 4", tbl.Len())
	}
	wantKeys := []string{"a.wav", "missing.wav", "notes.txt", "../escape.wav"}
	for i, want := range wantKeys {
		if got := tbl.Get(i, 0); got != want {
			t.Errorf("row %d key = %q, want %q", i, got, want)
		}
	}
	origCol := tbl.ColumnIndex(OriginalColumn)
	outCol := tbl.ColumnIndex("augmented_audio_stub")
	if origCol < 0 || outCol < 0 {
		t.Fatalf("new columns missing: %v", tbl.Header)
	}
	if got, want := tbl.Get(0, origCol), filepath.Join(dir, "src", "a.wav"); got != want {
		t.Errorf("original_audio = %q, want %q", got, want)
	}
	if got, want := tbl.Get(0, outCol), filepath.Join(dir, "out", "a_stub.wav"); got != want {
		t.Errorf("derived column = %q, want %q", got, want)
	}
	for row := 1; row < 4; row++ {
		if got := tbl.Get(row, outCol); got != "" {
			t.Errorf("row %d derived column = %q, want blank", row, got)
		}
	}
}

func TestRun_TransformFailureIsIsolated(t *testing.T) {
	dir := t.TempDir()
	cfg, log := testConfig(t)

	srcDir := filepath.Join(dir, "src")
	os.MkdirAll(srcDir, 0o755)
	touch(t, srcDir, "bad.wav")
	touch(t, srcDir, "good.wav")
	writeManifest(t, filepath.Join(dir, "in.csv"), "bad.wav", "good.wav")

	tr := &stubTransform{failOn: "bad.wav"}
	stats, err := Run(context.Background(), cfg, log, testStage(dir, tr))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Failed != 1 || stats.Succeeded != 1 {
		t.Errorf("Failed=%d Succeeded=%d, want 1 and 1", stats.Failed, stats.Succeeded)
	}
	if len(tr.calls) != 2 {
		t.Errorf("transform called %d times, want 2 (failure must not abort the run)", len(tr.calls))
	}

	tbl, err := manifest.Load(filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatalf("manifest should still be written: %v", err)
	}
	outCol := tbl.ColumnIndex("augmented_audio_stub")
	if got := tbl.Get(0, outCol); got != "" {
		t.Errorf("failed row derived column = %q, want blank", got)
	}
	origCol := tbl.ColumnIndex(OriginalColumn)
	if got := tbl.Get(0, origCol); got == "" {
		t.Error("failed row should still record its source path")
	}
}

func TestRun_MissingManifestIsFatal(t *testing.T) {
	dir := t.TempDir()
	cfg, log := testConfig(t)

	_, err := Run(context.Background(), cfg, log, testStage(dir, &stubTransform{}))
	if err == nil {
		t.Error("missing input manifest should be fatal")
	}
}

func TestRun_MissingKeyColumnIsFatal(t *testing.T) {
	dir := t.TempDir()
	cfg, log := testConfig(t)
	if err := os.WriteFile(filepath.Join(dir, "in.csv"), []byte("Other Column\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Run(context.Background(), cfg, log, testStage(dir, &stubTransform{}))
	if err == nil {
		t.Error("missing key column should be fatal")
	}
}

func TestRun_DryRun(t *testing.T) {
	dir := t.TempDir()
	cfg, log := testConfig(t)
	cfg.DryRun = true

	srcDir := filepath.Join(dir, "src")
	os.MkdirAll(srcDir, 0o755)
	touch(t, srcDir, "a.wav")
	writeManifest(t, filepath.Join(dir, "in.csv"), "a.wav")

	tr := &stubTransform{}
	stats, err := Run(context.Background(), cfg, log, testStage(dir, tr))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", stats.Succeeded)
	}
	if len(tr.calls) != 0 {
		t.Errorf("transform invoked %d times in dry run, want 0", len(tr.calls))
	}
	if _, err := os.Stat(filepath.Join(dir, "out.csv")); !os.IsNotExist(err) {
		t.Error("dry run must not write the output manifest")
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "a_stub.wav")); !os.IsNotExist(err) {
		t.Error("dry run must not write derived files")
	}
}

func TestRun_CancelledWritesNoManifest(t *testing.T) {
	dir := t.TempDir()
	cfg, log := testConfig(t)

	srcDir := filepath.Join(dir, "src")
	os.MkdirAll(srcDir, 0o755)
	touch(t, srcDir, "a.wav")
	writeManifest(t, filepath.Join(dir, "in.csv"), "a.wav")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, log, testStage(dir, &stubTransform{}))
	if err == nil {
		t.Error("cancelled run should return the context error")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.csv")); !os.IsNotExist(statErr) {
		t.Error("cancelled run must not write the output manifest")
	}
}

func TestStageDoneLine(t *testing.T) {
	stats := &RunStats{Succeeded: 3, Failed: 1, NotFound: 2, FilteredOut: 4, Skipped: 5}

	got := stageDoneLine(Stage{MaxDuration: 30}, stats)
	want := "Done: 3 succeeded, 1 failed, 2 not found, 4 filtered out (>30.0s), 5 skipped"
	if got != want {
		t.Errorf("stageDoneLine = %q, want %q", got, want)
	}

	got = stageDoneLine(Stage{MaxDuration: 0}, stats)
	want = "Done: 3 succeeded, 1 failed, 2 not found, 4 filtered out (filter off), 5 skipped"
	if got != want {
		t.Errorf("stageDoneLine (no filter) = %q, want %q", got, want)
	}

	if strings.Contains(got, "%!") {
		t.Errorf("stageDoneLine left formatting residue: %q", got)
	}
}

// stubTool installs an executable shell script named name into dir.
func stubTool(t *testing.T, dir, name, script string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

// stubProbeScript reports a fixed duration keyed off the probed file name:
// 45 s for *long*, unparsable output for *mystery*, 10 s otherwise.
const stubProbeScript = `#!/bin/sh
for a in "$@"; do p="$a"; done
case "$p" in
  *long*) echo 45.000000 ;;
  *mystery*) echo "N/A" ;;
  *) echo 10.000000 ;;
esac
`

// stubEncodeScript writes a marker file at its final argument, standing in
// for a transcode.
const stubEncodeScript = `#!/bin/sh
for a in "$@"; do p="$a"; done
printf 'RIFF' > "$p"
`

func TestRun_DurationFilter(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub tools are shell scripts")
	}

	dir := t.TempDir()
	cfg, log := testConfig(t)

	bin := t.TempDir()
	stubTool(t, bin, "ffprobe", stubProbeScript)
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	srcDir := filepath.Join(dir, "src")
	os.MkdirAll(srcDir, 0o755)
	touch(t, srcDir, "long.wav")
	touch(t, srcDir, "short.wav")
	touch(t, srcDir, "mystery.wav")
	writeManifest(t, filepath.Join(dir, "in.csv"), "long.wav", "short.wav", "mystery.wav")

	st := testStage(dir, &stubTransform{})
	st.MaxDuration = 30
	stats, err := Run(context.Background(), cfg, log, st)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.FilteredOut != 1 {
		t.Errorf("FilteredOut = %d, want 1", stats.FilteredOut)
	}
	// The unreadable duration resolves to 0 and passes the filter alongside
	// the genuinely short recording.
	if stats.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", stats.Succeeded)
	}

	tbl, err := manifest.Load(filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatalf("load output manifest: %v", err)
	}
	outCol := tbl.ColumnIndex("augmented_audio_stub")
	if got := tbl.Get(0, outCol); got != "" {
		t.Errorf("filtered row derived column = %q, want blank", got)
	}
	for row := 1; row < 3; row++ {
		if got := tbl.Get(row, outCol); got == "" {
			t.Errorf("row %d derived column blank, want a path", row)
		}
	}
}

// --- Convert stage ---

func TestRunConvert_DurationFilter(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub tools are shell scripts")
	}

	dir := t.TempDir()
	cfg, log := testConfig(t)
	cfg.Convert.InputDir = filepath.Join(dir, "webaudios")
	cfg.Convert.WavDir = filepath.Join(dir, "wavaudios")
	cfg.Convert.KeptDir = filepath.Join(dir, "filteredforwhisper")
	cfg.Convert.OutputManifest = filepath.Join(dir, "recordings.csv")

	bin := t.TempDir()
	stubTool(t, bin, "ffmpeg", stubEncodeScript)
	stubTool(t, bin, "ffprobe", stubProbeScript)
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	os.MkdirAll(cfg.Convert.InputDir, 0o755)
	touch(t, cfg.Convert.InputDir, "long.webm")
	touch(t, cfg.Convert.InputDir, "short.webm")

	stats, err := RunConvert(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("RunConvert: %v", err)
	}

	if stats.Kept != 1 || stats.FilteredOut != 1 || stats.Failed != 0 {
		t.Errorf("Kept=%d FilteredOut=%d Failed=%d, want 1, 1, 0",
			stats.Kept, stats.FilteredOut, stats.Failed)
	}

	// Both recordings are converted; only the short one is copied to kept.
	if _, err := os.Stat(filepath.Join(cfg.Convert.WavDir, "long.wav")); err != nil {
		t.Errorf("converted long.wav missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Convert.KeptDir, "short.wav")); err != nil {
		t.Errorf("kept short.wav missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Convert.KeptDir, "long.wav")); !os.IsNotExist(err) {
		t.Error("long.wav must not be copied to the kept directory")
	}

	tbl, err := manifest.Load(cfg.Convert.OutputManifest)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if tbl.Len() != 1 || tbl.Get(0, 0) != "short.wav" {
		t.Errorf("manifest rows = %v, want exactly [short.wav]", tbl.Rows)
	}
}

func TestDiscoverContainers(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.webm")
	touch(t, dir, "a.webm")
	touch(t, dir, "UPPER.WEBM")
	touch(t, dir, "skip.wav")
	touch(t, dir, "notes.txt")
	os.MkdirAll(filepath.Join(dir, "nested"), 0o755)
	touch(t, filepath.Join(dir, "nested"), "deep.webm")

	files, err := DiscoverContainers(dir)
	if err != nil {
		t.Fatalf("DiscoverContainers: %v", err)
	}

	// Non-recursive, extension-filtered (case-insensitive), sorted.
	want := []string{"UPPER.WEBM", "a.webm", "b.webm"}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestDiscoverContainers_MissingDir(t *testing.T) {
	if _, err := DiscoverContainers(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("missing input directory should error")
	}
}

func TestRunConvert_DryRun(t *testing.T) {
	dir := t.TempDir()
	cfg, log := testConfig(t)
	cfg.DryRun = true
	cfg.Convert.InputDir = filepath.Join(dir, "webaudios")
	cfg.Convert.WavDir = filepath.Join(dir, "wavaudios")
	cfg.Convert.KeptDir = filepath.Join(dir, "filteredforwhisper")
	cfg.Convert.OutputManifest = filepath.Join(dir, "recordings.csv")

	os.MkdirAll(cfg.Convert.InputDir, 0o755)
	touch(t, cfg.Convert.InputDir, "a.webm")
	touch(t, cfg.Convert.InputDir, "b.webm")

	stats, err := RunConvert(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("RunConvert: %v", err)
	}

	if stats.Total != 2 || stats.Kept != 2 {
		t.Errorf("Total=%d Kept=%d, want 2 and 2", stats.Total, stats.Kept)
	}
	if _, err := os.Stat(cfg.Convert.OutputManifest); !os.IsNotExist(err) {
		t.Error("dry run must not write the manifest")
	}
	// Output directories are still created so a later real run starts clean.
	if _, err := os.Stat(cfg.Convert.WavDir); err != nil {
		t.Errorf("wav dir not created: %v", err)
	}
}
