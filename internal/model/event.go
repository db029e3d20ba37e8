package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventMeta carries the fields shared by every normalized event.
type EventMeta struct {
	TxID      string
	WalletID  string
	Token     string
	Timestamp time.Time
	Sequence  int64
}

// Event is a normalized ledger event: either an *Acquisition or a *Disposal.
// The set is closed; no other type implements it.
type Event interface {
	Meta() EventMeta
	isEvent()
}

// Acquisition adds quantity to a (wallet, token) holding at a known cost.
type Acquisition struct {
	EventMeta
	Quantity   decimal.Decimal // quantity received, net of fees paid in the same token
	TotalCost  decimal.Decimal // amount paid plus quote-currency fees, exact
	UnitCost   decimal.Decimal // TotalCost / Quantity, half-even at money.PriceScale
	FeeIgnored bool            // fee was paid in an unrelated token
}

// Disposal removes quantity from a (wallet, token) holding.
type Disposal struct {
	EventMeta
	Quantity   decimal.Decimal // gross quantity leaving the wallet
	UnitPrice  decimal.Decimal
	Fee        decimal.Decimal // fee value in quote currency, deducted from proceeds
	FeeIgnored bool
}

func (a *Acquisition) Meta() EventMeta { return a.EventMeta }
func (d *Disposal) Meta() EventMeta    { return d.EventMeta }

func (*Acquisition) isEvent() {}
func (*Disposal) isEvent()    {}

// Partition is the strictly ordered event stream of one (wallet, token) pair.
type Partition struct {
	Key    PartitionKey
	Events []Event
}

// EventStream is the normalizer's output: independent partitions sorted by
// wallet and then token, each ordered by (timestamp, sequence).
type EventStream struct {
	Partitions []Partition
}

// Len returns the total number of events across all partitions.
func (s *EventStream) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, p := range s.Partitions {
		n += len(p.Events)
	}
	return n
}

// Partition returns the events for key, or false when the pair never appeared.
func (s *EventStream) Partition(key PartitionKey) (Partition, bool) {
	if s == nil {
		return Partition{}, false
	}
	for _, p := range s.Partitions {
		if p.Key == key {
			return p, true
		}
	}
	return Partition{}, false
}
