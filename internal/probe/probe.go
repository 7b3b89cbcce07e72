// Package probe wraps ffprobe for duration queries. The duration filter in
// the augmentation stages and the kept-copy decision in the convert stage
// both go through [Duration].
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Duration returns the media duration of path in seconds.
//
// Unparsable ffprobe output is reported as 0 with a nil error, which matches
// the legacy scripts: a recording whose duration cannot be read silently
// passes the 30-second filter. Callers that care can treat 0 as suspect.
func Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	return ParseDuration(string(out)), nil
}

// ParseDuration converts raw ffprobe duration output to seconds, returning 0
// when the output is not a decimal number. Exported for testing without a
// real ffprobe binary.
func ParseDuration(raw string) float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
