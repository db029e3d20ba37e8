package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf, zerolog.InfoLevel)

	log.Info().Str("wallet", "w1").Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"wallet":"w1"`) {
		t.Errorf("Expected structured wallet field, got: %s", output)
	}
}

// TestNewWithWriter_Level tests level filtering.
//
// WHY: LOG_LEVEL=warn must hide the per-wallet info lines of a recompute run
// while still surfacing shortfall warnings.
func TestNewWithWriter_Level(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf, zerolog.WarnLevel)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("Expected info message to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("Expected warn message, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARN", zerolog.WarnLevel, false},
		{" error ", zerolog.ErrorLevel, false},
		{"verbose", zerolog.NoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		buf := &bytes.Buffer{}
		ctx := WithContext(context.Background(), NewWithWriter(buf, zerolog.InfoLevel))

		log := FromContext(ctx)
		log.Info().Msg("test")

		if buf.Len() == 0 {
			t.Error("Expected log output from retrieved logger")
		}
	})

	t.Run("defaults to disabled logger", func(t *testing.T) {
		log := FromContext(context.Background())
		if log.GetLevel() != zerolog.Disabled {
			t.Errorf("Expected disabled logger, got level %v", log.GetLevel())
		}
	})
}
