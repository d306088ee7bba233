package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriterLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, LogInfo)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Errorf("failed %s", "fit")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected debug line to be filtered, got %q", out)
	}
	if !strings.Contains(out, "INFO: shown 2") {
		t.Errorf("Expected info line, got %q", out)
	}
	if !strings.Contains(out, "ERROR: failed fit") {
		t.Errorf("Expected error line, got %q", out)
	}

	buf.Reset()
	l.SetLogLevel(LogDebug)
	l.Debugf("now visible")
	if !strings.Contains(buf.String(), "DEBUG: now visible") {
		t.Errorf("Expected debug line after lowering level, got %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogDebug, false},
		{"INFO", LogInfo, false},
		{"Error", LogError, false},
		{"verbose", LogInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogLevelString(t *testing.T) {
	if LogError.String() != "ERROR" || LogLevel(7).String() != "LEVEL(7)" {
		t.Errorf("Unexpected level names %v, %v", LogError, LogLevel(7))
	}
}

func TestDiscardSatisfiesLogger(t *testing.T) {
	var l Logger = Discard{}
	l.Errorf("dropped %d", 1)
}
