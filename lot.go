package taxlot

import (
	"fmt"

	"github.com/google/uuid"
)

// idNamespace seeds the deterministic ids of lots and disposals. Ids are
// derived from the execution ids with uuid.NewSHA1, so re-running
// reconciliation over the same log yields byte-identical records.
var idNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8") // uuid.NameSpaceURL

func lotID(account, executionID string) string {
	return uuid.NewSHA1(idNamespace, []byte("lot:"+account+":"+executionID)).String()
}

func disposalID(account, executionID string, slice int) string {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("disposal:%s:%s:%d", account, executionID, slice))).String()
}

// Lot is a batch of shares acquired by a single buy execution, with its own
// cost basis and acquisition date. Remaining quantity is decremented in place
// as sells consume it; the lot is retired when it reaches zero.
type Lot struct {
	ID      string
	Account string
	Symbol  string

	Acquired Date  // acquisition date, drives the wash-sale window
	Seq      int64 // same-day tie-break inherited from the buy execution

	// Holding is the start of the holding period for term classification.
	// It equals Acquired unless a wash sale tacked the disallowed lot's
	// holding period onto this one.
	Holding Date

	Original    Quantity
	Remaining   Quantity
	CostPerUnit Money

	// WashAdjust is the total disallowed loss deferred onto this lot and not
	// yet consumed by downstream disposals. It raises the lot's effective
	// cost basis.
	WashAdjust Money

	// washUsed counts the shares of this lot already designated as
	// replacement shares; a share absorbs at most one disallowance.
	washUsed Quantity

	// washReceived is the cumulative disallowed loss ever deferred onto this
	// lot. Unlike WashAdjust it is never consumed; the invariant checker uses
	// it to verify cost-basis conservation.
	washReceived Money
}

// Basis returns the lot's total effective cost basis still held:
// remaining shares at per-unit cost plus deferred wash-sale adjustments.
func (l *Lot) Basis() Money {
	return l.CostPerUnit.Mul(l.Remaining).Add(l.WashAdjust)
}

// consume removes qty shares from the lot and returns the cost basis carried
// by them. Deferred wash-sale adjustments are consumed pro-rata over the
// remaining shares, so a lot's original cost plus every disallowed loss it
// received is exactly the basis handed to its downstream disposals.
func (l *Lot) consume(qty Quantity) (Money, error) {
	if qty.GreaterThan(l.Remaining) {
		return Money{}, fmt.Errorf("%w: lot %s has %s remaining, cannot consume %s",
			ErrCorruptedLedgerState, l.ID, l.Remaining, qty)
	}
	var extra Money
	if qty.Equal(l.Remaining) {
		extra = l.WashAdjust
	} else {
		extra = l.WashAdjust.Mul(qty).Div(l.Remaining)
	}
	basis := l.CostPerUnit.Mul(qty).Add(extra)
	l.WashAdjust = l.WashAdjust.Sub(extra)
	l.Remaining = l.Remaining.Sub(qty)
	return basis, nil
}

// replaceable returns the quantity of this lot still able to absorb a
// wash-sale disallowance: shares neither sold away before the loss nor
// already used as replacement shares.
func (l *Lot) replaceable() Quantity {
	avail := l.Remaining.Sub(l.washUsed)
	if avail.IsNegative() {
		return Q(0)
	}
	return avail
}

// MarshalJSON implements the json.Marshaler interface for Lot,
// with a stable field order.
func (l *Lot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", l.ID)
	w.Append("account", l.Account)
	w.Append("symbol", l.Symbol)
	w.Append("acquired", l.Acquired)
	if l.Holding != l.Acquired {
		w.Append("holding", l.Holding)
	}
	w.Append("original", l.Original)
	w.Append("remaining", l.Remaining)
	w.Append("costPerUnit", l.CostPerUnit.Decimal())
	if !l.WashAdjust.IsZero() {
		w.Append("washAdjust", l.WashAdjust.Decimal())
	}
	w.Optional("currency", l.CostPerUnit.Currency())
	return w.MarshalJSON()
}

// book holds the lots of a single (account, symbol) partition: the open set
// in acquisition order, and the retired archive kept for audit and for
// wash-sale backward scans.
type book struct {
	open    []*Lot
	retired []*Lot
}

// openQuantity sums the remaining quantity over open lots.
func (b *book) openQuantity() Quantity {
	var total Quantity
	for _, l := range b.open {
		total = total.Add(l.Remaining)
	}
	return total
}

// find returns the open lot with the given id, or nil.
func (b *book) find(id string) *Lot {
	for _, l := range b.open {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// retire moves lots with zero remaining quantity out of the open set.
func (b *book) retire() {
	kept := b.open[:0]
	for _, l := range b.open {
		if l.Remaining.IsZero() {
			b.retired = append(b.retired, l)
		} else {
			kept = append(kept, l)
		}
	}
	b.open = kept
}

// all iterates open then retired lots; the order is deterministic.
func (b *book) all() []*Lot {
	out := make([]*Lot, 0, len(b.open)+len(b.retired))
	out = append(out, b.open...)
	out = append(out, b.retired...)
	return out
}
