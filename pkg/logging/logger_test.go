package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerFormatsComponent(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, LevelInfo)
	root.Named("backend").Infof("fetched %d rows", 3)

	out := buf.String()
	if !strings.Contains(out, "INFO  | backend    | fetched 3 rows") {
		t.Errorf("Unexpected log line: %q", out)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, LevelWarn)
	child := root.Named("ui")

	child.Infof("hidden")
	child.Debugf("hidden")
	child.Warnf("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("Info/debug lines should be filtered at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("Warn line should be written")
	}

	// Level changes propagate to children.
	root.SetLevel(LevelDebug)
	child.Debugf("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("Child should follow root level change")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Infof("no panic")
}
