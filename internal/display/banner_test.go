package display

import (
	"io"
	"os"
	"strings"
	"testing"

	"audioprep/internal/logging"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()
	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestPrintBanner(t *testing.T) {
	magenta, nc := logging.Magenta, logging.NC
	t.Cleanup(func() { logging.Magenta, logging.NC = magenta, nc })

	logging.Magenta, logging.NC = "", ""
	out := captureStdout(t, PrintBanner)
	if strings.Contains(out, "\033[") {
		t.Errorf("colorless banner contains escape codes: %q", out)
	}
	if !strings.Contains(out, "|_|") {
		t.Errorf("banner art missing: %q", out)
	}

	// The banner color must come from the shared logging palette, not a
	// second copy of the escape code.
	logging.Magenta, logging.NC = "<M>", "<NC>"
	out = captureStdout(t, PrintBanner)
	if !strings.HasPrefix(out, "<M>") {
		t.Errorf("colored banner does not open with logging.Magenta: %q", out[:20])
	}
	if !strings.Contains(out, "<NC>") {
		t.Errorf("colored banner does not reset with logging.NC: %q", out)
	}
}
