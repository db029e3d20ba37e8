package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is an open acquisition held in a FIFO or LIFO store.
// UnitCost never changes after creation; Remaining and RemainingCost only
// decrease. RemainingCost is the exact share of the acquisition cost not yet
// consumed, so draining a lot takes its whole cost with no rounding residue.
type Lot struct {
	OriginTxID    string
	AcquiredAt    time.Time
	Sequence      int64
	Original      decimal.Decimal
	Remaining     decimal.Decimal
	UnitCost      decimal.Decimal
	RemainingCost decimal.Decimal
}

// NewLot opens a lot for an acquisition event.
func NewLot(a *Acquisition) *Lot {
	return &Lot{
		OriginTxID:    a.TxID,
		AcquiredAt:    a.Timestamp,
		Sequence:      a.Sequence,
		Original:      a.Quantity,
		Remaining:     a.Quantity,
		UnitCost:      a.UnitCost,
		RemainingCost: a.TotalCost,
	}
}
