package lots

import (
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/money"
)

// AveragePool is the running aggregate of one (wallet, token) pair under the
// average cost method.
type AveragePool struct {
	TotalQuantity decimal.Decimal
	TotalCost     decimal.Decimal
}

// Acquire adds a received quantity and the full amount paid for it, fees included.
func (p *AveragePool) Acquire(quantity, cost decimal.Decimal) {
	p.TotalQuantity = p.TotalQuantity.Add(quantity)
	p.TotalCost = p.TotalCost.Add(cost)
}

// UnitCost returns the instantaneous average cost per unit, half-even at
// money.PriceScale. An empty pool has no average and returns ErrDivisionByZero.
func (p *AveragePool) UnitCost() (decimal.Decimal, error) {
	return money.DivHalfEven(p.TotalCost, p.TotalQuantity, money.PriceScale)
}

// Dispose removes up to q from the pool at the average cost computed right now.
// It returns the quantity actually consumed, which is less than q when the pool
// holds less. Draining the pool takes the whole remaining cost so no rounding
// residue is left behind.
func (p *AveragePool) Dispose(q decimal.Decimal) (consumed, costBasis, unitCost decimal.Decimal) {
	if !money.IsPositive(p.TotalQuantity) || !money.IsPositive(q) {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}

	// TotalQuantity is positive, so the division cannot fail.
	unitCost, _ = p.UnitCost()
	consumed = money.Min(q, p.TotalQuantity)

	if consumed.Equal(p.TotalQuantity) {
		costBasis = p.TotalCost
	} else {
		costBasis = unitCost.Mul(consumed)
	}

	p.TotalCost = p.TotalCost.Sub(costBasis)
	p.TotalQuantity = p.TotalQuantity.Sub(consumed)
	return consumed, costBasis, unitCost
}
