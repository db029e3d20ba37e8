package lots

import (
	"errors"
	"testing"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
)

// TestAveragePool tests weighted-average disposal.
//
// WHY: The average must be taken over everything held immediately before the
// disposal, and both totals must shrink by the disposed share.
func TestAveragePool(t *testing.T) {
	t.Run("average of two acquisitions", func(t *testing.T) {
		pool := &AveragePool{}
		pool.Acquire(d("10"), d("10"))
		pool.Acquire(d("10"), d("20"))

		consumed, costBasis, unitCost := pool.Dispose(d("15"))

		if !consumed.Equal(d("15")) {
			t.Errorf("Expected consumed 15, got %s", consumed)
		}
		if !unitCost.Equal(d("1.5")) {
			t.Errorf("Expected unit cost 1.5, got %s", unitCost)
		}
		if !costBasis.Equal(d("22.5")) {
			t.Errorf("Expected cost basis 22.5, got %s", costBasis)
		}
		if !pool.TotalQuantity.Equal(d("5")) || !pool.TotalCost.Equal(d("7.5")) {
			t.Errorf("Expected pool 5 @ 7.5, got %s @ %s", pool.TotalQuantity, pool.TotalCost)
		}
	})

	t.Run("average is recomputed after each acquisition", func(t *testing.T) {
		pool := &AveragePool{}
		pool.Acquire(d("10"), d("10"))
		pool.Dispose(d("5"))
		pool.Acquire(d("5"), d("20"))

		_, costBasis, unitCost := pool.Dispose(d("5"))
		// (5 * 1 + 20) / 10 = 2.5
		if !unitCost.Equal(d("2.5")) {
			t.Errorf("Expected unit cost 2.5, got %s", unitCost)
		}
		if !costBasis.Equal(d("12.5")) {
			t.Errorf("Expected cost basis 12.5, got %s", costBasis)
		}
	})

	t.Run("disposal is capped at pool quantity", func(t *testing.T) {
		pool := &AveragePool{}
		pool.Acquire(d("3"), d("10"))

		consumed, costBasis, _ := pool.Dispose(d("5"))
		if !consumed.Equal(d("3")) {
			t.Errorf("Expected consumed 3, got %s", consumed)
		}
		if !costBasis.Equal(d("10")) {
			t.Errorf("Expected full pool cost 10, got %s", costBasis)
		}
		if !pool.TotalQuantity.IsZero() || !pool.TotalCost.IsZero() {
			t.Errorf("Expected empty pool, got %s @ %s", pool.TotalQuantity, pool.TotalCost)
		}
	})

	t.Run("draining leaves no rounding residue", func(t *testing.T) {
		pool := &AveragePool{}
		pool.Acquire(d("3"), d("10"))

		pool.Dispose(d("1"))
		pool.Dispose(d("1"))
		_, last, _ := pool.Dispose(d("1"))

		if !pool.TotalCost.IsZero() {
			t.Errorf("Expected zero residual cost, got %s", pool.TotalCost)
		}
		if last.Sign() <= 0 {
			t.Errorf("Expected positive cost basis for last disposal, got %s", last)
		}
	})

	t.Run("empty pool consumes nothing", func(t *testing.T) {
		pool := &AveragePool{}
		consumed, costBasis, _ := pool.Dispose(d("5"))
		if !consumed.IsZero() || !costBasis.IsZero() {
			t.Errorf("Expected nothing consumed, got %s / %s", consumed, costBasis)
		}
		if _, err := pool.UnitCost(); !errors.Is(err, apperrors.ErrDivisionByZero) {
			t.Errorf("Expected ErrDivisionByZero for empty pool average, got %v", err)
		}
	})
}
