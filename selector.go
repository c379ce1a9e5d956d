package taxlot

import (
	"fmt"
	"slices"
)

// allocation is one slice of a consumption plan: a quantity to take from a
// specific open lot.
type allocation struct {
	lot *Lot
	qty Quantity
}

// plan proposes how a sell of 'requested' shares consumes the open lots under
// the given accounting method. It never mutates the lots; the ledger applies
// the plan afterwards.
//
// For SpecificID, 'explicit' designates the lots in consumption order; the
// plan fails with ErrAmbiguousSpecificID when the designated quantities do
// not sum to the requested total, name an unknown lot, or exceed a lot's
// remaining quantity. Every method fails with ErrInsufficientLots when the
// total open quantity is less than requested.
func plan(open []*Lot, requested Quantity, method Method, explicit []LotSlice) ([]allocation, error) {
	if !requested.IsPositive() {
		return nil, fmt.Errorf("requested quantity %s is not positive", requested)
	}

	var total Quantity
	for _, l := range open {
		total = total.Add(l.Remaining)
	}
	if total.LessThan(requested) {
		return nil, fmt.Errorf("%w: requested %s but only %s open", ErrInsufficientLots, requested, total)
	}

	if method == SpecificID {
		return planSpecific(open, requested, explicit)
	}

	// Open lots are kept in ascending (acquisition date, seq) order; LIFO
	// simply walks them backwards.
	ordered := slices.Clone(open)
	if method == LIFO {
		slices.Reverse(ordered)
	}

	var allocations []allocation
	remaining := requested
	for _, l := range ordered {
		if remaining.IsZero() {
			break
		}
		take := l.Remaining.Min(remaining)
		allocations = append(allocations, allocation{lot: l, qty: take})
		remaining = remaining.Sub(take)
	}
	return allocations, nil
}

func planSpecific(open []*Lot, requested Quantity, explicit []LotSlice) ([]allocation, error) {
	if len(explicit) == 0 {
		return nil, fmt.Errorf("%w: no lots designated", ErrAmbiguousSpecificID)
	}

	byID := make(map[string]*Lot, len(open))
	for _, l := range open {
		byID[l.ID] = l
	}

	var allocations []allocation
	var sum Quantity
	seen := make(map[string]struct{}, len(explicit))
	for _, s := range explicit {
		if !s.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: quantity %s for lot %s is not positive", ErrAmbiguousSpecificID, s.Quantity, s.LotID)
		}
		if _, dup := seen[s.LotID]; dup {
			return nil, fmt.Errorf("%w: lot %s designated twice", ErrAmbiguousSpecificID, s.LotID)
		}
		seen[s.LotID] = struct{}{}
		l, ok := byID[s.LotID]
		if !ok {
			return nil, fmt.Errorf("%w: lot %s is not open", ErrAmbiguousSpecificID, s.LotID)
		}
		if s.Quantity.GreaterThan(l.Remaining) {
			return nil, fmt.Errorf("%w: lot %s has %s remaining, %s designated",
				ErrAmbiguousSpecificID, s.LotID, l.Remaining, s.Quantity)
		}
		allocations = append(allocations, allocation{lot: l, qty: s.Quantity})
		sum = sum.Add(s.Quantity)
	}
	if !sum.Equal(requested) {
		return nil, fmt.Errorf("%w: designated %s does not match requested %s", ErrAmbiguousSpecificID, sum, requested)
	}
	return allocations, nil
}
