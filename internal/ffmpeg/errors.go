package ffmpeg

import "strings"

// CommandError wraps a failed ffmpeg invocation together with its captured
// stderr so callers can log diagnostics without re-running the command.
type CommandError struct {
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	msg := "ffmpeg: " + e.Err.Error()
	if tail := LastLines(e.Stderr, 1); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// LastLines returns the last n non-empty lines of captured stderr joined
// with newlines; "" when there is no diagnostic output.
func LastLines(stderr string, n int) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "\n")
}
