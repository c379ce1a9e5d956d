package taxlot

import (
	"fmt"
)

// Ledger tracks the open lots of a single (account, symbol) partition and
// turns executions into lots and raw disposals.
//
// A Ledger must be fed executions strictly in (date, seq) order. A
// late-arriving out-of-order execution is not patched in incrementally: the
// whole partition is recomputed from the log, which is what Reconciler does
// on every run.
type Ledger struct {
	account string
	symbol  string

	book      book
	disposals []*Disposal

	last    Date
	lastSeq int64
}

// NewLedger creates an empty ledger for one (account, symbol) partition.
func NewLedger(account, symbol string) *Ledger {
	return &Ledger{account: account, symbol: symbol}
}

// Account returns the account of this partition.
func (l *Ledger) Account() string { return l.account }

// Symbol returns the symbol of this partition.
func (l *Ledger) Symbol() string { return l.symbol }

// OpenLots returns the open lots in acquisition order.
func (l *Ledger) OpenLots() []*Lot { return append([]*Lot(nil), l.book.open...) }

// Lots returns all lots, open then retired.
func (l *Ledger) Lots() []*Lot { return l.book.all() }

// Disposals returns the raw disposals emitted so far, in emission order.
func (l *Ledger) Disposals() []*Disposal { return append([]*Disposal(nil), l.disposals...) }

// OpenQuantity returns the total remaining quantity over open lots.
func (l *Ledger) OpenQuantity() Quantity { return l.book.openQuantity() }

// checkOrder enforces the strict per-partition ordering rule.
func (l *Ledger) checkOrder(e Execution) error {
	if e.Account != l.account || e.Symbol != l.symbol {
		return fmt.Errorf("%w: execution %s belongs to %s/%s, not %s/%s",
			ErrCorruptedLedgerState, e.ID, e.Account, e.Symbol, l.account, l.symbol)
	}
	if e.Date.Before(l.last) || (e.Date == l.last && e.Seq < l.lastSeq) {
		return fmt.Errorf("%w: execution %s on %s arrives after %s, partition must be recomputed",
			ErrCorruptedLedgerState, e.ID, e.Date, l.last)
	}
	l.last, l.lastSeq = e.Date, e.Seq
	return nil
}

// ApplyBuy creates exactly one new lot from a buy execution. The per-unit
// cost basis folds the commission in: (price*quantity + commission) / quantity.
func (l *Ledger) ApplyBuy(e Execution) (*Lot, error) {
	if e.Side != Buy {
		return nil, fmt.Errorf("execution %s is not a buy", e.ID)
	}
	if err := l.checkOrder(e); err != nil {
		return nil, err
	}

	costPerUnit := e.Price.Mul(e.Quantity).Add(e.Commission).Div(e.Quantity)
	lot := &Lot{
		ID:          lotID(e.Account, e.ID),
		Account:     e.Account,
		Symbol:      e.Symbol,
		Acquired:    e.Date,
		Seq:         e.Seq,
		Holding:     e.Date,
		Original:    e.Quantity,
		Remaining:   e.Quantity,
		CostPerUnit: costPerUnit,
	}
	l.book.open = append(l.book.open, lot)
	return lot, nil
}

// ApplySell consumes open lots according to the accounting method and emits
// one raw disposal per lot slice. Proceeds and commission are split pro-rata
// across slices. Lots reaching zero remaining quantity are retired from the
// open set but kept in the archive.
//
// A sell exceeding the open position fails with ErrInsufficientLots and
// leaves the ledger untouched.
func (l *Ledger) ApplySell(e Execution, method Method) ([]*Disposal, error) {
	if e.Side != Sell {
		return nil, fmt.Errorf("execution %s is not a sell", e.ID)
	}
	if len(e.Lots) > 0 {
		method = SpecificID
	}
	prevLast, prevSeq := l.last, l.lastSeq
	if err := l.checkOrder(e); err != nil {
		return nil, err
	}

	allocations, err := plan(l.book.open, e.Quantity, method, e.Lots)
	if err != nil {
		l.last, l.lastSeq = prevLast, prevSeq
		return nil, fmt.Errorf("sell %s of %s %s: %w", e.ID, e.Quantity, e.Symbol, err)
	}

	gross := e.Price.Mul(e.Quantity)
	var disposals []*Disposal
	var allocated Quantity
	var proceedsSoFar Money
	for i, a := range allocations {
		// Pro-rata share of proceeds net of commission; the last slice takes
		// the exact remainder so the slices always sum to the sell total.
		var proceeds Money
		allocated = allocated.Add(a.qty)
		if i == len(allocations)-1 {
			proceeds = gross.Sub(e.Commission).Sub(proceedsSoFar)
		} else {
			proceeds = gross.Sub(e.Commission).Mul(a.qty).Div(e.Quantity)
			proceedsSoFar = proceedsSoFar.Add(proceeds)
		}

		basis, err := a.lot.consume(a.qty)
		if err != nil {
			return nil, err
		}

		raw := proceeds.Sub(basis)
		disposals = append(disposals, &Disposal{
			ID:           disposalID(e.Account, e.ID, i),
			Version:      1,
			LotID:        a.lot.ID,
			Account:      e.Account,
			Symbol:       e.Symbol,
			Acquired:     a.lot.Holding,
			Close:        e.Date,
			Seq:          e.Seq,
			Quantity:     a.qty,
			Proceeds:     proceeds,
			CostBasis:    basis,
			RawGain:      raw,
			AdjustedGain: raw,
		})
	}
	l.book.retire()
	l.disposals = append(l.disposals, disposals...)
	return disposals, nil
}

// Check verifies the partition invariants against the execution log:
// the sum of open lot remainders equals the independently computed net
// position, no quantity or basis is negative, and each lot's original cost
// plus received disallowances equals the basis consumed plus the basis still
// held. A violation surfaces as ErrCorruptedLedgerState for this partition.
func (l *Ledger) Check(log *Log) error {
	open := l.OpenQuantity()
	net := log.NetPosition(l.account, l.symbol, l.last)
	if !open.Equal(net) {
		return fmt.Errorf("%w: %s/%s open lots sum to %s but executions net to %s",
			ErrCorruptedLedgerState, l.account, l.symbol, open, net)
	}
	consumed := make(map[string]Money, len(l.disposals))
	for _, d := range l.disposals {
		consumed[d.LotID] = consumed[d.LotID].Add(d.CostBasis)
	}
	for _, lot := range l.book.all() {
		if lot.Remaining.IsNegative() {
			return fmt.Errorf("%w: lot %s has negative remaining quantity %s",
				ErrCorruptedLedgerState, lot.ID, lot.Remaining)
		}
		if lot.CostPerUnit.IsNegative() {
			return fmt.Errorf("%w: lot %s has negative cost basis %s",
				ErrCorruptedLedgerState, lot.ID, lot.CostPerUnit)
		}
		in := lot.CostPerUnit.Mul(lot.Original).Add(lot.washReceived)
		out := consumed[lot.ID].Add(lot.Basis())
		if !in.Equal(out) {
			return fmt.Errorf("%w: lot %s cost basis is not conserved: %s acquired but %s accounted for",
				ErrCorruptedLedgerState, lot.ID, in, out)
		}
	}
	return nil
}
