// Package costbasis matches disposals against acquisitions and produces
// realized gain/loss records under FIFO, LIFO or average cost.
//
// The engine is pure: the same event stream and method always produce the
// same records, and no state survives a call.
package costbasis

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/lots"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/money"
)

// recordNamespace seeds the name-based UUIDs of tax records so reruns over the
// same input reproduce the same IDs.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("crypto-tax-calculator/tax-record"))

// Compute runs method over every partition of the stream, in stream order.
// method must be valid; an unknown method yields no output.
func Compute(stream *model.EventStream, method model.Method) ([]model.TaxRecord, []model.ShortfallWarning) {
	if stream == nil {
		return nil, nil
	}

	var records []model.TaxRecord
	var warnings []model.ShortfallWarning
	for _, p := range stream.Partitions {
		r, w := ComputePartition(p, method)
		records = append(records, r...)
		warnings = append(warnings, w...)
	}
	return records, warnings
}

// ComputePartition runs method over one (wallet, token) stream in a single pass.
func ComputePartition(p model.Partition, method model.Method) ([]model.TaxRecord, []model.ShortfallWarning) {
	switch method {
	case model.MethodFIFO, model.MethodLIFO:
		return computeLots(p, method, lots.NewStore(method))
	case model.MethodAverageCost:
		return computeAverage(p)
	}
	return nil, nil
}

func computeLots(p model.Partition, method model.Method, store lots.Store) ([]model.TaxRecord, []model.ShortfallWarning) {
	var records []model.TaxRecord
	var warnings []model.ShortfallWarning

	for _, event := range p.Events {
		switch e := event.(type) {
		case *model.Acquisition:
			if money.IsPositive(e.Quantity) {
				store.Push(model.NewLot(e))
			}
		case *model.Disposal:
			if !money.IsPositive(e.Quantity) {
				continue
			}

			remaining := e.Quantity
			allocatedFee := decimal.Zero
			ordinal := 0

			for remaining.Sign() > 0 {
				lot, taken, cost := store.PopPartial(remaining)
				if lot == nil {
					break
				}
				remaining = remaining.Sub(taken)

				var share decimal.Decimal
				if remaining.IsZero() {
					share = e.Fee.Sub(allocatedFee)
				} else {
					share = feeShare(e, taken)
				}
				allocatedFee = allocatedFee.Add(share)

				records = append(records, newRecord(method, e, ordinal, match{
					lotTxID:    lot.OriginTxID,
					acquiredAt: lot.AcquiredAt,
					quantity:   taken,
					unitCost:   lot.UnitCost,
					costBasis:  cost,
					feeShare:   share,
				}))
				ordinal++
			}

			if remaining.Sign() > 0 {
				warnings = append(warnings, newShortfall(method, e, remaining))
			}
		}
	}

	return records, warnings
}

func computeAverage(p model.Partition) ([]model.TaxRecord, []model.ShortfallWarning) {
	var records []model.TaxRecord
	var warnings []model.ShortfallWarning
	pool := &lots.AveragePool{}

	for _, event := range p.Events {
		switch e := event.(type) {
		case *model.Acquisition:
			pool.Acquire(e.Quantity, e.TotalCost)
		case *model.Disposal:
			if !money.IsPositive(e.Quantity) {
				continue
			}

			consumed, costBasis, unitCost := pool.Dispose(e.Quantity)
			if money.IsPositive(consumed) {
				share := e.Fee
				if !consumed.Equal(e.Quantity) {
					share = feeShare(e, consumed)
				}
				records = append(records, newRecord(model.MethodAverageCost, e, 0, match{
					quantity:  consumed,
					unitCost:  unitCost,
					costBasis: costBasis,
					feeShare:  share,
				}))
			}

			if unmatched := e.Quantity.Sub(consumed); unmatched.Sign() > 0 {
				warnings = append(warnings, newShortfall(model.MethodAverageCost, e, unmatched))
			}
		}
	}

	return records, warnings
}

// feeShare attributes the disposal fee pro rata to a matched portion,
// half-even at money.AmountScale.
func feeShare(e *model.Disposal, portion decimal.Decimal) decimal.Decimal {
	if e.Fee.IsZero() {
		return decimal.Zero
	}
	// e.Quantity is positive here, so the division cannot fail.
	share, _ := money.MulDivHalfEven(e.Fee, portion, e.Quantity, money.AmountScale)
	return share
}

// match is one disposal portion paired with the cost that covers it.
type match struct {
	lotTxID    string
	acquiredAt time.Time
	quantity   decimal.Decimal
	unitCost   decimal.Decimal
	costBasis  decimal.Decimal
	feeShare   decimal.Decimal
}

func newRecord(method model.Method, e *model.Disposal, ordinal int, m match) model.TaxRecord {
	proceeds := m.quantity.Mul(e.UnitPrice).Sub(m.feeShare)
	name := fmt.Sprintf("%s|%s|%s|%s|%s|%d", method, e.WalletID, e.Token, e.TxID, m.lotTxID, ordinal)

	return model.TaxRecord{
		ID:           uuid.NewSHA1(recordNamespace, []byte(name)).String(),
		WalletID:     e.WalletID,
		Token:        e.Token,
		Method:       method,
		DisposalTxID: e.TxID,
		LotTxID:      m.lotTxID,
		Quantity:     m.quantity,
		Proceeds:     proceeds,
		CostBasis:    m.costBasis,
		GainLoss:     proceeds.Sub(m.costBasis),
		UnitCost:     m.unitCost,
		DisposedAt:   e.Timestamp,
		AcquiredAt:   m.acquiredAt,
		TaxYear:      e.Timestamp.UTC().Year(),
	}
}

func newShortfall(method model.Method, e *model.Disposal, unmatched decimal.Decimal) model.ShortfallWarning {
	return model.ShortfallWarning{
		WalletID:          e.WalletID,
		Token:             e.Token,
		Method:            method,
		DisposalTxID:      e.TxID,
		Requested:         e.Quantity,
		UnmatchedQuantity: unmatched,
	}
}
