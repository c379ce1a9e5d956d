package taxlot

import (
	"testing"
)

// scan replays the executions for the test account and fails the test on any
// per-symbol error.
func scan(t *testing.T, execs ...Execution) *ScanResult {
	t.Helper()
	result := NewWashEngine().Scan(mustLog(execs...), acct, FIFO)
	for symbol, err := range result.Errors {
		t.Fatalf("scan of %s failed: %v", symbol, err)
	}
	return result
}

// The canonical wash sale: a loss followed by a repurchase within 30 days is
// fully disallowed and deferred onto the replacement lot's basis.
func TestWashEngine_DefersLossOntoReplacement(t *testing.T) {
	result := scan(t,
		buyExec("b1", "AAPL", "2025-01-02", 100, 10, 0),
		sellExec("s1", "AAPL", "2025-01-12", 100, 8, 0),
		buyExec("b2", "AAPL", "2025-01-17", 100, 9, 0),
	)

	if len(result.Disposals) != 1 {
		t.Fatalf("got %d disposals, want 1", len(result.Disposals))
	}
	d := result.Disposals[0]
	if !d.RawGain.Equal(USD(-200)) {
		t.Errorf("RawGain = %s, want -$200.00", d.RawGain)
	}
	if !d.Disallowed.Equal(USD(200)) {
		t.Errorf("Disallowed = %s, want $200.00", d.Disallowed)
	}
	if !d.AdjustedGain.IsZero() {
		t.Errorf("AdjustedGain = %s, want $0.00", d.AdjustedGain)
	}
	if !d.WashSale {
		t.Error("disposal is not flagged as a wash sale")
	}
	if d.Pending {
		t.Error("a fully disallowed loss must not be pending")
	}

	// The deferred $200 raises the replacement basis from $900 to $1,100.
	open := result.Ledgers["AAPL"].OpenLots()
	if len(open) != 1 {
		t.Fatalf("got %d open lots, want 1", len(open))
	}
	if !open[0].Basis().Equal(USD(1100)) {
		t.Errorf("replacement Basis() = %s, want $1,100.00", open[0].Basis())
	}

	if len(result.Links) != 1 {
		t.Fatalf("got %d links, want 1", len(result.Links))
	}
	link := result.Links[0]
	if link.LossDisposalID != d.ID || link.ReplacementLotID != open[0].ID {
		t.Errorf("link joins %s to %s, want %s to %s",
			link.LossDisposalID, link.ReplacementLotID, d.ID, open[0].ID)
	}
	if !link.Quantity.Equal(Q(100)) || !link.Disallowed.Equal(USD(200)) {
		t.Errorf("link = %s units / %s, want 100 / $200.00", link.Quantity, link.Disallowed)
	}
	if link.DetectedOn != MustParseDate("2025-01-17") {
		t.Errorf("DetectedOn = %s, want the replacement purchase date", link.DetectedOn)
	}
}

func TestWashEngine_WindowBoundary(t *testing.T) {
	testCases := []struct {
		name     string
		rebuy    string
		washSale bool
	}{
		{"30 days after, inside", "2025-02-11", true},
		{"31 days after, outside", "2025-02-12", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := scan(t,
				buyExec("b1", "AAPL", "2025-01-02", 100, 10, 0),
				sellExec("s1", "AAPL", "2025-01-12", 100, 8, 0),
				buyExec("b2", "AAPL", tc.rebuy, 100, 9, 0),
			)
			d := result.Disposals[0]
			if d.WashSale != tc.washSale {
				t.Errorf("WashSale = %v, want %v", d.WashSale, tc.washSale)
			}
			if !tc.washSale && !d.AdjustedGain.Equal(USD(-200)) {
				t.Errorf("AdjustedGain = %s, want the full -$200.00 loss", d.AdjustedGain)
			}
		})
	}
}

// A purchase on the sale date itself is not a replacement.
func TestWashEngine_SameDayExcluded(t *testing.T) {
	result := scan(t,
		buyExec("b1", "AAPL", "2025-01-02", 100, 10, 0),
		sellExec("s1", "AAPL", "2025-01-12", 100, 8, 0),
		buyExec("b2", "AAPL", "2025-01-12", 100, 9, 0),
	)
	if result.Disposals[0].WashSale {
		t.Error("a same-day purchase must not trigger a wash sale")
	}
}

// When the replacement covers only part of the sold quantity, the loss is
// disallowed pro-rata and the rest stays deductible.
func TestWashEngine_PartialReplacement(t *testing.T) {
	result := scan(t,
		buyExec("b1", "AAPL", "2025-01-02", 100, 10, 0),
		sellExec("s1", "AAPL", "2025-01-12", 100, 8, 0),
		buyExec("b2", "AAPL", "2025-01-17", 40, 9, 0),
	)
	d := result.Disposals[0]
	// 40 of 100 shares replaced: $200 * 40/100 = $80 disallowed.
	if !d.Disallowed.Equal(USD(80)) {
		t.Errorf("Disallowed = %s, want $80.00", d.Disallowed)
	}
	if !d.AdjustedGain.Equal(USD(-120)) {
		t.Errorf("AdjustedGain = %s, want -$120.00", d.AdjustedGain)
	}
	// The deductible remainder could still wash against a later purchase, so
	// the disposal stays pending until the forward window has elapsed.
	if !d.Pending {
		t.Error("a partially disallowed loss inside its forward window must be pending")
	}
}

// Several replacement purchases absorb the loss earliest-first.
func TestWashEngine_MultipleReplacementsEarliestFirst(t *testing.T) {
	result := scan(t,
		buyExec("b1", "AAPL", "2025-01-02", 100, 10, 0),
		sellExec("s1", "AAPL", "2025-01-12", 100, 8, 0),
		buyExec("b2", "AAPL", "2025-01-15", 60, 9, 0),
		buyExec("b3", "AAPL", "2025-01-20", 60, 9, 0),
	)
	d := result.Disposals[0]
	if !d.Disallowed.Equal(USD(200)) {
		t.Fatalf("Disallowed = %s, want $200.00", d.Disallowed)
	}
	if len(result.Links) != 2 {
		t.Fatalf("got %d links, want 2", len(result.Links))
	}
	// 60 shares on the Jan 15 lot, the remaining 40 on Jan 20.
	if !result.Links[0].Quantity.Equal(Q(60)) || !result.Links[0].Disallowed.Equal(USD(120)) {
		t.Errorf("first link = %s / %s, want 60 / $120.00",
			result.Links[0].Quantity, result.Links[0].Disallowed)
	}
	if !result.Links[1].Quantity.Equal(Q(40)) || !result.Links[1].Disallowed.Equal(USD(80)) {
		t.Errorf("second link = %s / %s, want 40 / $80.00",
			result.Links[1].Quantity, result.Links[1].Disallowed)
	}

	var withAdjust, without *Lot
	for _, lot := range result.Ledgers["AAPL"].OpenLots() {
		switch lot.Acquired {
		case MustParseDate("2025-01-15"):
			withAdjust = lot
		case MustParseDate("2025-01-20"):
			without = lot
		}
	}
	if !withAdjust.WashAdjust.Equal(USD(120)) {
		t.Errorf("Jan 15 lot WashAdjust = %s, want $120.00", withAdjust.WashAdjust)
	}
	if !without.WashAdjust.Equal(USD(80)) {
		t.Errorf("Jan 20 lot WashAdjust = %s, want $80.00", without.WashAdjust)
	}
}

// Selling the replacement lot later realizes the deferred loss through its
// raised basis, and the holding period tacks back to the original lot: the
// sum of adjusted gains equals the economic result, and the term is computed
// from the original acquisition date.
func TestWashEngine_DeferredLossConservedAndHoldingTacked(t *testing.T) {
	result := scan(t,
		buyExec("b1", "AAPL", "2025-01-02", 100, 10, 0),
		sellExec("s1", "AAPL", "2025-01-12", 100, 8, 0),
		buyExec("b2", "AAPL", "2025-01-17", 100, 9, 0),
		sellExec("s2", "AAPL", "2026-01-10", 100, 12, 0),
	)
	if len(result.Disposals) != 2 {
		t.Fatalf("got %d disposals, want 2", len(result.Disposals))
	}

	var sum Money
	for _, d := range result.Disposals {
		sum = sum.Add(d.AdjustedGain)
	}
	// Paid $1,000 + $900, received $800 + $1,200: $100 economic gain.
	if !sum.Equal(USD(100)) {
		t.Errorf("adjusted gains sum to %s, want the $100.00 economic result", sum)
	}

	final := result.Disposals[1]
	// $1,200 proceeds against the $1,100 adjusted basis.
	if !final.CostBasis.Equal(USD(1100)) {
		t.Errorf("final CostBasis = %s, want $1,100.00", final.CostBasis)
	}
	if final.Acquired != MustParseDate("2025-01-02") {
		t.Errorf("final Acquired = %s, want the tacked 2025-01-02", final.Acquired)
	}
	// Jan 2 2025 to Jan 10 2026 is 373 days: long-term only through tacking.
	if final.Term != Long {
		t.Errorf("final Term = %s, want LONG via the tacked holding period", final.Term)
	}
}

// A loss sale with no surviving position and no repurchase is an ordinary
// deductible loss.
func TestWashEngine_NoReplacementNoWash(t *testing.T) {
	result := scan(t,
		buyExec("b1", "AAPL", "2025-01-02", 100, 10, 0),
		sellExec("s1", "AAPL", "2025-06-01", 100, 8, 0),
	)
	d := result.Disposals[0]
	if d.WashSale {
		t.Error("WashSale = true without any replacement purchase")
	}
	if !d.AdjustedGain.Equal(USD(-200)) {
		t.Errorf("AdjustedGain = %s, want -$200.00", d.AdjustedGain)
	}
}

// The surviving shares of a partially sold lot bought within the window count
// as replacement shares.
func TestWashEngine_RemainderOfSoldLotIsReplacement(t *testing.T) {
	result := scan(t,
		buyExec("b1", "AAPL", "2025-01-02", 100, 10, 0),
		sellExec("s1", "AAPL", "2025-01-12", 50, 8, 0),
	)
	d := result.Disposals[0]
	if !d.WashSale {
		t.Fatal("the 50 surviving shares of the same lot must wash the loss")
	}
	if !d.Disallowed.Equal(USD(100)) {
		t.Errorf("Disallowed = %s, want the full $100.00", d.Disallowed)
	}
	open := result.Ledgers["AAPL"].OpenLots()
	// $500 remaining cost + $100 deferred.
	if !open[0].Basis().Equal(USD(600)) {
		t.Errorf("surviving Basis() = %s, want $600.00", open[0].Basis())
	}
}

// Event-log time must move strictly past close+30 before a loss is final: on
// the last window day a purchase with a higher sequence number could still
// arrive and wash the loss.
func TestWashEngine_PendingUntilWindowPassed(t *testing.T) {
	testCases := []struct {
		name    string
		newest  string
		pending bool
	}{
		{"newest on the last window day", "2025-02-11", true},
		{"newest past the window", "2025-02-12", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := scan(t,
				buyExec("b1", "AAPL", "2025-01-02", 100, 10, 0),
				sellExec("s1", "AAPL", "2025-01-12", 100, 8, 0),
				// an unrelated trade moves the account's event-log time
				buyExec("b2", "MSFT", tc.newest, 10, 50, 0),
			)
			d := result.Disposals[0]
			if d.Pending != tc.pending {
				t.Errorf("Pending = %v with newest execution on %s, want %v", d.Pending, tc.newest, tc.pending)
			}
		})
	}
}

// A gain never washes.
func TestWashEngine_GainIsUntouched(t *testing.T) {
	result := scan(t,
		buyExec("b1", "AAPL", "2025-01-02", 100, 10, 0),
		sellExec("s1", "AAPL", "2025-01-12", 100, 12, 0),
		buyExec("b2", "AAPL", "2025-01-17", 100, 11, 0),
	)
	d := result.Disposals[0]
	if d.WashSale || !d.AdjustedGain.Equal(USD(200)) {
		t.Errorf("gain disposal = wash:%v adjusted:%s, want untouched $200.00 gain",
			d.WashSale, d.AdjustedGain)
	}
}
