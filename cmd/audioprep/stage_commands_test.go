package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateStagePaths(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	nested := filepath.Join(src, "out")
	sibling := filepath.Join(dir, "out")
	for _, d := range []string{src, nested, sibling} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	if err := validateStagePaths(src, sibling); err != nil {
		t.Errorf("sibling output rejected: %v", err)
	}
	if err := validateStagePaths(src, nested); err == nil {
		t.Error("output inside source directory should be rejected")
	}
	if err := validateStagePaths(src, src); err == nil {
		t.Error("output equal to source directory should be rejected")
	}

	// Unresolvable paths are deferred to the row loop, not treated as fatal.
	if err := validateStagePaths(filepath.Join(dir, "absent"), sibling); err != nil {
		t.Errorf("missing source directory should not fail validation: %v", err)
	}
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	want := []string{"convert", "speed", "volume", "noise", "lowpass", "all", "check"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	for _, flag := range []string{"config", "seed", "dry-run", "verbose", "color", "no-color", "log"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s not registered", flag)
		}
	}
}
