// Package lots holds open acquisitions between disposals: FIFO and LIFO lot
// stores for the lot-based methods and a running pool for average cost.
package lots

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/money"
)

// Store is an ordered collection of open lots. The "next" lot is the one the
// next disposal consumes: oldest first for FIFO, newest first for LIFO.
type Store interface {
	// Push adds a newly opened lot.
	Push(lot *model.Lot)
	// PeekNext returns the next lot to consume, or nil when the store is empty.
	PeekNext() *model.Lot
	// PopPartial consumes min(q, next.Remaining) from the next lot in place and
	// returns that lot with the quantity taken and its cost. A lot that reaches
	// zero is dropped from the store and its whole remaining cost is returned.
	// Returns nil when the store is empty.
	PopPartial(q decimal.Decimal) (lot *model.Lot, taken, cost decimal.Decimal)
	// Len returns the number of open lots.
	Len() int
	// Remaining returns the total open quantity.
	Remaining() decimal.Decimal
}

// NewStore returns the lot store for a lot-based method, or nil for average cost.
func NewStore(method model.Method) Store {
	switch method {
	case model.MethodFIFO:
		return NewFIFO()
	case model.MethodLIFO:
		return NewLIFO()
	}
	return nil
}

// lotList keeps lots sorted by (acquisition time, sequence) ascending.
type lotList struct {
	lots []*model.Lot
}

func (l *lotList) insert(lot *model.Lot) {
	i := sort.Search(len(l.lots), func(i int) bool {
		other := l.lots[i]
		if !other.AcquiredAt.Equal(lot.AcquiredAt) {
			return other.AcquiredAt.After(lot.AcquiredAt)
		}
		return other.Sequence > lot.Sequence
	})
	l.lots = append(l.lots, nil)
	copy(l.lots[i+1:], l.lots[i:])
	l.lots[i] = lot
}

func (l *lotList) Len() int {
	return len(l.lots)
}

func (l *lotList) Remaining() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots {
		total = total.Add(lot.Remaining)
	}
	return total
}

// take consumes up to q from lot and reports whether the lot is drained.
func take(lot *model.Lot, q decimal.Decimal) (taken, cost decimal.Decimal, drained bool) {
	taken = money.Min(q, lot.Remaining)
	lot.Remaining = lot.Remaining.Sub(taken)
	drained = lot.Remaining.Sign() <= 0

	if drained {
		cost = lot.RemainingCost
	} else {
		cost = taken.Mul(lot.UnitCost)
	}
	lot.RemainingCost = lot.RemainingCost.Sub(cost)
	return taken, cost, drained
}

// FIFO consumes the earliest acquired lot first.
type FIFO struct {
	lotList
}

// NewFIFO creates an empty FIFO queue.
func NewFIFO() *FIFO {
	return &FIFO{}
}

func (f *FIFO) Push(lot *model.Lot) {
	f.insert(lot)
}

func (f *FIFO) PeekNext() *model.Lot {
	if len(f.lots) == 0 {
		return nil
	}
	return f.lots[0]
}

func (f *FIFO) PopPartial(q decimal.Decimal) (*model.Lot, decimal.Decimal, decimal.Decimal) {
	lot := f.PeekNext()
	if lot == nil || q.Sign() <= 0 {
		return nil, decimal.Zero, decimal.Zero
	}
	taken, cost, drained := take(lot, q)
	if drained {
		f.lots[0] = nil
		f.lots = f.lots[1:]
	}
	return lot, taken, cost
}

// LIFO consumes the most recently acquired lot first.
type LIFO struct {
	lotList
}

// NewLIFO creates an empty LIFO stack.
func NewLIFO() *LIFO {
	return &LIFO{}
}

func (s *LIFO) Push(lot *model.Lot) {
	s.insert(lot)
}

func (s *LIFO) PeekNext() *model.Lot {
	if len(s.lots) == 0 {
		return nil
	}
	return s.lots[len(s.lots)-1]
}

func (s *LIFO) PopPartial(q decimal.Decimal) (*model.Lot, decimal.Decimal, decimal.Decimal) {
	lot := s.PeekNext()
	if lot == nil || q.Sign() <= 0 {
		return nil, decimal.Zero, decimal.Zero
	}
	taken, cost, drained := take(lot, q)
	if drained {
		last := len(s.lots) - 1
		s.lots[last] = nil
		s.lots = s.lots[:last]
	}
	return lot, taken, cost
}
