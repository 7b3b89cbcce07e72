// Command audioprep prepares an audio dataset for a speech-recognition
// pipeline: container-to-WAV conversion with duration filtering, and four
// manifest-driven augmentation stages (speed, volume, noise, lowpass).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version and commit are injected at build time via -ldflags.
// When built with plain "go build" (no make), these retain their defaults.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Cancel the context on SIGINT/SIGTERM so a stage can stop between
	// recordings without writing a half-updated manifest.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "audioprep: %v\n", err)
		return 1
	}
	return 0
}
