package model

import (
	"errors"
	"testing"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input string
		want  Method
	}{
		{"fifo", MethodFIFO},
		{"FIFO", MethodFIFO},
		{" lifo ", MethodLIFO},
		{"average_cost", MethodAverageCost},
		{"AVERAGE_COST", MethodAverageCost},
		{"average-cost", MethodAverageCost},
		{"avg", MethodAverageCost},
		{"average", MethodAverageCost},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMethod(tt.input)
			if err != nil {
				t.Fatalf("ParseMethod(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMethod(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}

	t.Run("unknown method", func(t *testing.T) {
		_, err := ParseMethod("hifo")
		if !errors.Is(err, apperrors.ErrUnknownMethod) {
			t.Errorf("Expected ErrUnknownMethod, got %v", err)
		}
	})
}

func TestParseMethods(t *testing.T) {
	t.Run("empty means all", func(t *testing.T) {
		got, err := ParseMethods("")
		if err != nil || len(got) != len(AllMethods) {
			t.Errorf("Expected all methods, got %v (%v)", got, err)
		}
	})

	t.Run("list is deduplicated in order", func(t *testing.T) {
		got, err := ParseMethods("lifo, fifo,LIFO")
		if err != nil {
			t.Fatalf("ParseMethods() error = %v", err)
		}
		if len(got) != 2 || got[0] != MethodLIFO || got[1] != MethodFIFO {
			t.Errorf("Expected [lifo fifo], got %v", got)
		}
	})

	t.Run("one bad entry fails the list", func(t *testing.T) {
		if _, err := ParseMethods("fifo,hifo"); !errors.Is(err, apperrors.ErrUnknownMethod) {
			t.Errorf("Expected ErrUnknownMethod, got %v", err)
		}
	})
}

func TestMethod_Predicates(t *testing.T) {
	if !MethodFIFO.UsesLots() || !MethodLIFO.UsesLots() || MethodAverageCost.UsesLots() {
		t.Error("Expected only FIFO and LIFO to use lots")
	}
	if Method("hifo").Valid() || !MethodAverageCost.Valid() {
		t.Error("Unexpected Valid() result")
	}
}
