package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf)

	tests := []struct {
		name    string
		level   Level
		message string
		fields  Fields
		err     error
		want    bool // should log
	}{
		{
			name:    "info message",
			level:   LevelInfo,
			message: "scrape finished",
			fields:  Fields{"source": "sneaky-petes"},
			want:    true,
		},
		{
			name:    "debug below threshold",
			level:   LevelDebug,
			message: "debug message",
			want:    false,
		},
		{
			name:    "warn with err",
			level:   LevelWarn,
			message: "events api unavailable",
			err:     errors.New("connection refused"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			logger.log(tt.level, tt.message, tt.fields, tt.err)

			logged := buf.Len() > 0
			if logged != tt.want {
				t.Fatalf("log() logged = %v, want %v", logged, tt.want)
			}
			if !logged {
				return
			}

			var entry LogEntry
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
			}
			if entry.Message != tt.message {
				t.Errorf("Message = %q, want %q", entry.Message, tt.message)
			}
			if entry.Level != string(tt.level) {
				t.Errorf("Level = %q, want %q", entry.Level, tt.level)
			}
			if tt.err != nil && entry.Error != tt.err.Error() {
				t.Errorf("Error = %q, want %q", entry.Error, tt.err.Error())
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := New(LevelDebug, &buf)
	child := base.With(Fields{"source": "rss", "city": "Edinburgh"})

	child.Info("item skipped", Fields{"city": "Glasgow"})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if entry.Fields["source"] != "rss" {
		t.Errorf("source field = %v, want rss", entry.Fields["source"])
	}
	if entry.Fields["city"] != "Glasgow" {
		t.Errorf("call-site field should win, city = %v", entry.Fields["city"])
	}

	buf.Reset()
	base.Info("no inherited fields", nil)
	if strings.Contains(buf.String(), "source") {
		t.Errorf("parent logger picked up child fields: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" WARN ", LevelWarn, false},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetDefault(New(LevelDebug, &buf))
	defer SetDefault(prev)

	Debug("test debug", nil)
	Info("test info", Fields{"key": "value"})
	Warn("test warning", nil, nil)
	Error("test error", Fields{"component": "test"}, errors.New("test"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Errorf("got %d log lines, want 4", len(lines))
	}
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		minLevel  Level
		logLevel  Level
		shouldLog bool
	}{
		{"debug logs at debug", LevelDebug, LevelDebug, true},
		{"info logs at debug", LevelDebug, LevelInfo, true},
		{"debug doesn't log at info", LevelInfo, LevelDebug, false},
		{"error always logs", LevelDebug, LevelError, true},
		{"warn skipped at error", LevelError, LevelWarn, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(tt.minLevel, &buf)

			logger.log(tt.logLevel, "test", nil, nil)

			if logged := buf.Len() > 0; logged != tt.shouldLog {
				t.Errorf("shouldLog = %v, want %v", logged, tt.shouldLog)
			}
		})
	}
}
