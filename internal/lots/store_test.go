package lots

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func newLot(id string, at time.Time, seq int64, qty, unitCost string) *model.Lot {
	return &model.Lot{
		OriginTxID:    id,
		AcquiredAt:    at,
		Sequence:      seq,
		Original:      d(qty),
		Remaining:     d(qty),
		UnitCost:      d(unitCost),
		RemainingCost: d(qty).Mul(d(unitCost)),
	}
}

// TestFIFO_Ordering tests that the earliest lot is always consumed first.
//
// WHY: FIFO must follow acquisition time even when lots are pushed out of
// order, with the insertion sequence breaking timestamp ties.
func TestFIFO_Ordering(t *testing.T) {
	store := NewFIFO()
	store.Push(newLot("b", day(2), 2, "1", "2"))
	store.Push(newLot("a", day(1), 1, "1", "1"))
	store.Push(newLot("c", day(2), 3, "1", "3"))

	expected := []string{"a", "b", "c"}
	for i, id := range expected {
		lot, taken, _ := store.PopPartial(d("1"))
		if lot == nil {
			t.Fatalf("Expected lot %q at position %d, got nil", id, i)
		}
		if lot.OriginTxID != id {
			t.Errorf("Expected lot %q at position %d, got %q", id, i, lot.OriginTxID)
		}
		if !taken.Equal(d("1")) {
			t.Errorf("Expected to take 1, got %s", taken)
		}
	}

	if store.PeekNext() != nil {
		t.Error("Expected empty store after draining every lot")
	}
}

// TestLIFO_Ordering tests that the most recent lot is always consumed first.
func TestLIFO_Ordering(t *testing.T) {
	store := NewLIFO()
	store.Push(newLot("a", day(1), 1, "1", "1"))
	store.Push(newLot("c", day(3), 3, "1", "3"))
	store.Push(newLot("b", day(2), 2, "1", "2"))

	expected := []string{"c", "b", "a"}
	for i, id := range expected {
		lot, _, _ := store.PopPartial(d("5"))
		if lot == nil || lot.OriginTxID != id {
			t.Fatalf("Expected lot %q at position %d, got %+v", id, i, lot)
		}
	}

	if store.Len() != 0 {
		t.Errorf("Expected 0 lots, got %d", store.Len())
	}
}

// TestPopPartial_MutatesInPlace tests partial consumption.
//
// WHY: A partially consumed lot must be the same object, keep its unit cost,
// and stay at the front of the store. No remainder lot is ever allocated.
func TestPopPartial_MutatesInPlace(t *testing.T) {
	for _, method := range []model.Method{model.MethodFIFO, model.MethodLIFO} {
		t.Run(string(method), func(t *testing.T) {
			store := NewStore(method)
			original := newLot("a", day(1), 1, "10", "1.25")
			store.Push(original)

			lot, taken, cost := store.PopPartial(d("6"))
			if lot != original {
				t.Fatal("Expected PopPartial to return the stored lot pointer")
			}
			if !taken.Equal(d("6")) {
				t.Errorf("Expected to take 6, got %s", taken)
			}
			if !cost.Equal(d("7.5")) {
				t.Errorf("Expected cost 6 * 1.25 = 7.5, got %s", cost)
			}
			if !original.Remaining.Equal(d("4")) {
				t.Errorf("Expected remaining 4, got %s", original.Remaining)
			}
			if !original.UnitCost.Equal(d("1.25")) {
				t.Errorf("Expected unit cost unchanged, got %s", original.UnitCost)
			}
			if store.PeekNext() != original {
				t.Error("Expected partially consumed lot to stay at the front")
			}
			if store.Len() != 1 {
				t.Errorf("Expected 1 lot, got %d", store.Len())
			}

			lot, taken, cost = store.PopPartial(d("100"))
			if lot != original || !taken.Equal(d("4")) {
				t.Errorf("Expected to take remaining 4 from the same lot, got %s", taken)
			}
			if !cost.Equal(d("5")) {
				t.Errorf("Expected remaining cost 5, got %s", cost)
			}
			if store.Len() != 0 {
				t.Errorf("Expected drained lot to be removed, %d left", store.Len())
			}
		})
	}
}

func TestPopPartial_EdgeCases(t *testing.T) {
	t.Run("empty store returns nil", func(t *testing.T) {
		store := NewFIFO()
		lot, taken, _ := store.PopPartial(d("1"))
		if lot != nil || !taken.IsZero() {
			t.Errorf("Expected nil lot and zero taken, got %+v %s", lot, taken)
		}
	})

	t.Run("non-positive quantity takes nothing", func(t *testing.T) {
		store := NewLIFO()
		store.Push(newLot("a", day(1), 1, "1", "1"))
		lot, taken, _ := store.PopPartial(decimal.Zero)
		if lot != nil || !taken.IsZero() {
			t.Errorf("Expected nothing taken, got %+v %s", lot, taken)
		}
		if !store.Remaining().Equal(d("1")) {
			t.Errorf("Expected remaining 1, got %s", store.Remaining())
		}
	})

	t.Run("average cost has no lot store", func(t *testing.T) {
		if NewStore(model.MethodAverageCost) != nil {
			t.Error("Expected nil store for average cost")
		}
	})

	t.Run("remaining sums open lots", func(t *testing.T) {
		store := NewFIFO()
		store.Push(newLot("a", day(1), 1, "1.5", "1"))
		store.Push(newLot("b", day(2), 2, "2.25", "1"))
		if !store.Remaining().Equal(d("3.75")) {
			t.Errorf("Expected 3.75, got %s", store.Remaining())
		}
	})
}

// TestPopPartial_DrainTakesExactCost tests cost on a lot whose unit cost was rounded.
//
// WHY: 3 units bought for 4 have a unit cost of 1.333...; selling all 3 must
// cost exactly 4, matching what the average cost pool charges.
func TestPopPartial_DrainTakesExactCost(t *testing.T) {
	for _, method := range []model.Method{model.MethodFIFO, model.MethodLIFO} {
		t.Run(string(method), func(t *testing.T) {
			store := NewStore(method)
			store.Push(model.NewLot(&model.Acquisition{
				EventMeta: model.EventMeta{TxID: "a", Timestamp: day(1), Sequence: 1},
				Quantity:  d("3"),
				TotalCost: d("4"),
				UnitCost:  d("1.333333333333333333"),
			}))

			_, _, first := store.PopPartial(d("1"))
			_, _, second := store.PopPartial(d("2"))

			if !first.Equal(d("1.333333333333333333")) {
				t.Errorf("Expected partial cost 1.333333333333333333, got %s", first)
			}
			if total := first.Add(second); !total.Equal(d("4")) {
				t.Errorf("Expected total cost 4, got %s", total)
			}
			if store.Len() != 0 {
				t.Errorf("Expected drained store, %d lots left", store.Len())
			}
		})
	}
}
