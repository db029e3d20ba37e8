package config

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DB_PATH", "LOG_LEVEL", "TAX_DEFAULT_METHOD", "TAX_QUOTE_CURRENCY", "TAX_WORKERS", "TAX_RECOMPUTE_SCHEDULE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "./data/crypto_tax.db" {
		t.Errorf("Expected default DB path, got %q", cfg.Database.Path)
	}
	if cfg.Log.Level != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %v", cfg.Log.Level)
	}
	if len(cfg.Tax.Methods) != len(model.AllMethods) {
		t.Errorf("Expected all methods by default, got %v", cfg.Tax.Methods)
	}
	if cfg.Tax.QuoteCurrency != "USD" {
		t.Errorf("Expected USD, got %q", cfg.Tax.QuoteCurrency)
	}
	if cfg.Tax.Workers != 0 {
		t.Errorf("Expected 0 workers, got %d", cfg.Tax.Workers)
	}
	if cfg.Tax.RecomputeSchedule != "0 3 * * *" {
		t.Errorf("Expected default schedule, got %q", cfg.Tax.RecomputeSchedule)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/tax.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TAX_DEFAULT_METHOD", "lifo,avg")
	t.Setenv("TAX_QUOTE_CURRENCY", "eur")
	t.Setenv("TAX_WORKERS", "4")
	t.Setenv("TAX_RECOMPUTE_SCHEDULE", "*/15 * * * *")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/tax.db" {
		t.Errorf("Expected /tmp/tax.db, got %q", cfg.Database.Path)
	}
	if cfg.Log.Level != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %v", cfg.Log.Level)
	}
	want := []model.Method{model.MethodLIFO, model.MethodAverageCost}
	if len(cfg.Tax.Methods) != len(want) || cfg.Tax.Methods[0] != want[0] || cfg.Tax.Methods[1] != want[1] {
		t.Errorf("Expected %v, got %v", want, cfg.Tax.Methods)
	}
	if cfg.Tax.QuoteCurrency != "EUR" {
		t.Errorf("Expected EUR, got %q", cfg.Tax.QuoteCurrency)
	}
	if cfg.Tax.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Tax.Workers)
	}
}

// TestLoad_Invalid tests that bad values fail fast.
//
// WHY: A typo in TAX_DEFAULT_METHOD would otherwise silently compute nothing.
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown method", "TAX_DEFAULT_METHOD", "hifo"},
		{"negative workers", "TAX_WORKERS", "-1"},
		{"non-numeric workers", "TAX_WORKERS", "many"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad schedule", "TAX_RECOMPUTE_SCHEDULE", "every night"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
