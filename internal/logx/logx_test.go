package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "WARN", Out: &buf, NoColor: true})
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	log.Info().Msg("hidden")
	log.Warn().Int("records", 3).Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains info line: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "records=3") {
		t.Errorf("output = %q, want warn line with records=3", out)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("New with bad level: want error")
	}
}
