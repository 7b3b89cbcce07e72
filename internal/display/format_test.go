package display

import (
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{5 * 1024 * 1024 * 1024, "5.0 GiB"},
		{int64(1024) * 1024 * 1024 * 1024, "1.0 TiB"},
	}
	for _, c := range cases {
		if got := FormatBytes(c.bytes); got != c.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", c.bytes, got, c.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0.0s"},
		{12.44, "12.4s"},
		{12.46, "12.5s"},
		{30, "30.0s"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.seconds); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestRenderCounters(t *testing.T) {
	out := RenderCounters([]Counter{
		{Label: "Succeeded", Value: 12},
		{Label: "Failed", Value: 0},
	})

	for _, want := range []string{"Outcome", "Count", "Succeeded", "12", "Failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines < 4 {
		t.Errorf("rendered table only %d lines, expected bordered rows:\n%s", lines+1, out)
	}
}
