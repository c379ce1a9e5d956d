package taxlot

import (
	"errors"
	"testing"
)

// mkLot builds an open lot for selector tests.
func mkLot(id, acquired string, seq int64, qty, costPerUnit float64) *Lot {
	on := MustParseDate(acquired)
	return &Lot{
		ID:          id,
		Account:     acct,
		Symbol:      "AAPL",
		Acquired:    on,
		Seq:         seq,
		Holding:     on,
		Original:    Q(qty),
		Remaining:   Q(qty),
		CostPerUnit: USD(costPerUnit),
	}
}

func TestPlan_FIFO(t *testing.T) {
	open := []*Lot{
		mkLot("a", "2025-01-02", 0, 50, 5),
		mkLot("b", "2025-01-07", 0, 50, 7),
	}
	allocations, err := plan(open, Q(60), FIFO, nil)
	if err != nil {
		t.Fatalf("plan() error = %v", err)
	}
	if len(allocations) != 2 {
		t.Fatalf("plan() returned %d allocations, want 2", len(allocations))
	}
	if allocations[0].lot.ID != "a" || !allocations[0].qty.Equal(Q(50)) {
		t.Errorf("first allocation = %s/%s, want a/50", allocations[0].lot.ID, allocations[0].qty)
	}
	if allocations[1].lot.ID != "b" || !allocations[1].qty.Equal(Q(10)) {
		t.Errorf("second allocation = %s/%s, want b/10", allocations[1].lot.ID, allocations[1].qty)
	}
}

func TestPlan_LIFO(t *testing.T) {
	open := []*Lot{
		mkLot("a", "2025-01-02", 0, 50, 5),
		mkLot("b", "2025-01-07", 0, 50, 7),
	}
	allocations, err := plan(open, Q(60), LIFO, nil)
	if err != nil {
		t.Fatalf("plan() error = %v", err)
	}
	if allocations[0].lot.ID != "b" || !allocations[0].qty.Equal(Q(50)) {
		t.Errorf("first allocation = %s/%s, want b/50", allocations[0].lot.ID, allocations[0].qty)
	}
	if allocations[1].lot.ID != "a" || !allocations[1].qty.Equal(Q(10)) {
		t.Errorf("second allocation = %s/%s, want a/10", allocations[1].lot.ID, allocations[1].qty)
	}
}

func TestPlan_Oversell(t *testing.T) {
	open := []*Lot{mkLot("a", "2025-01-02", 0, 50, 5)}
	_, err := plan(open, Q(60), FIFO, nil)
	if !errors.Is(err, ErrInsufficientLots) {
		t.Errorf("plan() error = %v, want ErrInsufficientLots", err)
	}
}

func TestPlan_SpecificID(t *testing.T) {
	open := []*Lot{
		mkLot("a", "2025-01-02", 0, 50, 5),
		mkLot("b", "2025-01-07", 0, 50, 7),
	}

	t.Run("valid plan in caller order", func(t *testing.T) {
		allocations, err := plan(open, Q(60), SpecificID, []LotSlice{
			{LotID: "b", Quantity: Q(40)},
			{LotID: "a", Quantity: Q(20)},
		})
		if err != nil {
			t.Fatalf("plan() error = %v", err)
		}
		if allocations[0].lot.ID != "b" || allocations[1].lot.ID != "a" {
			t.Errorf("allocations do not follow the caller order: %s, %s",
				allocations[0].lot.ID, allocations[1].lot.ID)
		}
	})

	t.Run("exceeds a lot remaining quantity", func(t *testing.T) {
		// 60 units solely from lot b, which only has 50.
		_, err := plan(open, Q(60), SpecificID, []LotSlice{{LotID: "b", Quantity: Q(60)}})
		if !errors.Is(err, ErrAmbiguousSpecificID) {
			t.Errorf("plan() error = %v, want ErrAmbiguousSpecificID", err)
		}
	})

	t.Run("sum mismatch", func(t *testing.T) {
		_, err := plan(open, Q(60), SpecificID, []LotSlice{{LotID: "a", Quantity: Q(50)}})
		if !errors.Is(err, ErrAmbiguousSpecificID) {
			t.Errorf("plan() error = %v, want ErrAmbiguousSpecificID", err)
		}
	})

	t.Run("unknown lot", func(t *testing.T) {
		_, err := plan(open, Q(10), SpecificID, []LotSlice{{LotID: "zzz", Quantity: Q(10)}})
		if !errors.Is(err, ErrAmbiguousSpecificID) {
			t.Errorf("plan() error = %v, want ErrAmbiguousSpecificID", err)
		}
	})

	t.Run("empty plan", func(t *testing.T) {
		_, err := plan(open, Q(10), SpecificID, nil)
		if !errors.Is(err, ErrAmbiguousSpecificID) {
			t.Errorf("plan() error = %v, want ErrAmbiguousSpecificID", err)
		}
	})
}

func TestPlan_DoesNotMutate(t *testing.T) {
	open := []*Lot{mkLot("a", "2025-01-02", 0, 50, 5)}
	if _, err := plan(open, Q(10), FIFO, nil); err != nil {
		t.Fatalf("plan() error = %v", err)
	}
	if !open[0].Remaining.Equal(Q(50)) {
		t.Errorf("plan() mutated the lot: remaining = %s, want 50", open[0].Remaining)
	}
}
