package taxlot

import (
	"fmt"
	"slices"
)

// WashWindowDays is the span of the wash-sale window on each side of a loss:
// a replacement purchase up to 30 days before or after the sale defers the
// loss onto the replacement lot.
const WashWindowDays = 30

// WashEngine detects wash sales and defers disallowed losses onto
// replacement lots. It runs as a distinct pass after lot matching, because a
// qualifying replacement purchase can occur up to 30 days after the loss.
type WashEngine struct {
	Window int // days on each side of the loss, normally WashWindowDays
}

// NewWashEngine returns an engine with the standard 30-day window.
func NewWashEngine() *WashEngine { return &WashEngine{Window: WashWindowDays} }

// ScanResult is the outcome of scanning one account. Failures are recorded
// per symbol so one corrupted partition does not block the others.
type ScanResult struct {
	Disposals []*Disposal
	Links     []WashSaleLink
	Ledgers   map[string]*Ledger // per symbol
	Errors    map[string]error   // per symbol, needs manual review
}

// Scan replays an account's executions symbol by symbol with wash-sale
// accounting and returns the amended disposals and the wash-sale links.
//
// The scan is a chronological replay rather than an in-place patch: deferring
// a loss raises the replacement lot's basis, which changes the gain of every
// later disposal consuming that lot, which can itself wash. Replaying keeps
// cost basis conserved without fix-point iteration, and makes the scan
// trivially idempotent: the same log always yields the same links.
func (w *WashEngine) Scan(log *Log, account string, method Method) *ScanResult {
	result := &ScanResult{
		Ledgers: make(map[string]*Ledger),
		Errors:  make(map[string]error),
	}
	newest := log.NewestDate(account)
	for symbol := range log.Symbols(account) {
		ledger, links, err := w.scanSymbol(log, account, symbol, method, newest)
		if err != nil {
			result.Errors[symbol] = err
			continue
		}
		result.Ledgers[symbol] = ledger
		result.Disposals = append(result.Disposals, ledger.Disposals()...)
		result.Links = append(result.Links, links...)
	}
	return result
}

// pendingAdjust accumulates disallowances destined for a replacement lot that
// does not exist yet at scan position (a purchase after the loss). It is
// applied the moment the buy creates the lot.
type pendingAdjust struct {
	amount  Money
	used    Quantity
	holding Date
}

// candidate is one replacement purchase able to absorb part of a
// disallowance, ordered earliest-first.
type candidate struct {
	acquired Date
	seq      int64
	avail    Quantity
	lot      *Lot   // nil for a purchase later than the loss
	execID   string // set when lot is nil
}

func (w *WashEngine) scanSymbol(log *Log, account, symbol string, method Method, newest Date) (*Ledger, []WashSaleLink, error) {
	var execs []Execution
	for _, e := range log.Executions(BySymbol(account, symbol)) {
		execs = append(execs, e)
	}

	ledger := NewLedger(account, symbol)
	var links []WashSaleLink
	pending := make(map[string]*pendingAdjust) // by buy execution id
	futureUsed := make(map[string]Quantity)    // replacement shares reserved on future buys

	for idx, e := range execs {
		switch e.Side {
		case Buy:
			lot, err := ledger.ApplyBuy(e)
			if err != nil {
				return nil, nil, err
			}
			if p, ok := pending[e.ID]; ok {
				lot.WashAdjust = lot.WashAdjust.Add(p.amount)
				lot.washReceived = lot.washReceived.Add(p.amount)
				lot.washUsed = lot.washUsed.Add(p.used)
				lot.Holding = lot.Holding.Min(p.holding)
				delete(pending, e.ID)
			}
		case Sell:
			disposals, err := ledger.ApplySell(e, method)
			if err != nil {
				return nil, nil, err
			}
			for _, d := range disposals {
				if d.RawGain.IsNegative() {
					links = append(links, w.disallow(d, ledger, execs, idx, pending, futureUsed)...)
				}
				finalize(d, newest, w.Window)
			}
		}
	}

	if len(pending) > 0 {
		// Every pending adjustment targets a buy in this partition's future,
		// so the replay must have drained them all.
		return nil, nil, fmt.Errorf("%w: %s/%s has undelivered wash-sale adjustments",
			ErrCorruptedLedgerState, account, symbol)
	}
	if err := ledger.Check(log); err != nil {
		return nil, nil, err
	}
	return ledger, links, nil
}

// disallow scans the 61-day window around a loss disposal for replacement
// purchases and defers the loss onto them, earliest-first, pro-rata by the
// quantity each one absorbs.
func (w *WashEngine) disallow(d *Disposal, ledger *Ledger, execs []Execution, idx int,
	pending map[string]*pendingAdjust, futureUsed map[string]Quantity) []WashSaleLink {

	from, to := d.Close.Add(-w.Window), d.Close.Add(w.Window)

	// Replacement purchases on or before the loss date are lots already in
	// the book; the replay guarantees their remaining quantity reflects
	// exactly the shares not sold away before the loss.
	var candidates []candidate
	for _, lot := range ledger.Lots() {
		if lot.Acquired.Before(from) || lot.Acquired.After(to) || lot.Acquired == d.Close {
			continue
		}
		if avail := lot.replaceable(); avail.IsPositive() {
			candidates = append(candidates, candidate{acquired: lot.Acquired, seq: lot.Seq, avail: avail, lot: lot})
		}
	}
	// Purchases after the loss are still executions; a replacement that is
	// itself sold later remains a valid trigger, so its full quantity counts,
	// less any shares already reserved by an earlier loss.
	for _, e := range execs[idx+1:] {
		if e.Date.After(to) {
			break
		}
		if e.Side != Buy || e.Date == d.Close {
			continue
		}
		avail := e.Quantity.Sub(futureUsed[e.ID])
		if avail.IsPositive() {
			candidates = append(candidates, candidate{acquired: e.Date, seq: e.Seq, avail: avail, execID: e.ID})
		}
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		switch {
		case a.acquired != b.acquired:
			if a.acquired.Before(b.acquired) {
				return -1
			}
			return 1
		default:
			return int(a.seq - b.seq)
		}
	})

	var totalAvail Quantity
	for _, c := range candidates {
		totalAvail = totalAvail.Add(c.avail)
	}
	if totalAvail.IsZero() {
		return nil
	}

	disallowQty := d.Quantity.Min(totalAvail)
	var total Money
	if disallowQty.Equal(d.Quantity) {
		total = d.RawGain.Neg() // full disallowance is exact, no per-share rounding
	} else {
		total = d.RawGain.Neg().Mul(disallowQty).Div(d.Quantity)
	}

	var links []WashSaleLink
	var taken Quantity
	var assigned Money
	for _, c := range candidates {
		if taken.Equal(disallowQty) {
			break
		}
		take := c.avail.Min(disallowQty.Sub(taken))
		taken = taken.Add(take)

		var amount Money
		if taken.Equal(disallowQty) {
			amount = total.Sub(assigned) // last slice takes the exact remainder
		} else {
			amount = total.Mul(take).Div(disallowQty)
			assigned = assigned.Add(amount)
		}

		detected := d.Close
		if c.acquired.After(detected) {
			detected = c.acquired
		}

		replacementID := ""
		if c.lot != nil {
			replacementID = c.lot.ID
			c.lot.WashAdjust = c.lot.WashAdjust.Add(amount)
			c.lot.washReceived = c.lot.washReceived.Add(amount)
			c.lot.washUsed = c.lot.washUsed.Add(take)
			c.lot.Holding = c.lot.Holding.Min(d.Acquired)
		} else {
			replacementID = lotID(d.Account, c.execID)
			p, ok := pending[c.execID]
			if !ok {
				p = &pendingAdjust{holding: d.Acquired}
				pending[c.execID] = p
			}
			p.amount = p.amount.Add(amount)
			p.used = p.used.Add(take)
			p.holding = p.holding.Min(d.Acquired)
			futureUsed[c.execID] = futureUsed[c.execID].Add(take)
		}

		links = append(links, WashSaleLink{
			LossDisposalID:   d.ID,
			ReplacementLotID: replacementID,
			Quantity:         take,
			Disallowed:       amount,
			DetectedOn:       detected,
		})
	}

	d.Disallowed = total
	d.AdjustedGain = d.RawGain.Add(total)
	d.WashSale = true
	return links
}
