package taxlot

import "fmt"

// finalize stamps the externally visible fields of a disposal: its term and
// whether the record is still provisional.
//
// A loss disposal stays pending until event-log time has moved strictly past
// its 30-day forward window: on the last window day a same-day purchase with
// a higher sequence number could still arrive and defer more of the loss. A
// fully disallowed loss is final: there is nothing left to defer.
func finalize(d *Disposal, newest Date, window int) {
	d.Term = Classify(d.Acquired, d.Close)
	if d.RawGain.IsNegative() && d.AdjustedGain.IsNegative() && !newest.After(d.Close.Add(window)) {
		d.Pending = true
	}
}

// GainsReport summarizes the realized, taxable outcome of one account for
// one tax year, after wash-sale adjustment.
type GainsReport struct {
	Account    string
	Year       int
	ShortTerm  Money // net short-term adjusted gain/loss
	LongTerm   Money // net long-term adjusted gain/loss
	Disallowed Money // total losses deferred onto replacement lots
	Disposals  int
	WashSales  int
	Pending    int
}

// Summarize aggregates the disposal table into a per-year gains report.
func Summarize(t *Table, account string, year int) *GainsReport {
	report := &GainsReport{Account: account, Year: year}
	for d := range t.ByYear(year) {
		if d.Account != account {
			continue
		}
		report.Disposals++
		switch d.Term {
		case Long:
			report.LongTerm = report.LongTerm.Add(d.AdjustedGain)
		default:
			report.ShortTerm = report.ShortTerm.Add(d.AdjustedGain)
		}
		report.Disallowed = report.Disallowed.Add(d.Disallowed)
		if d.WashSale {
			report.WashSales++
		}
		if d.Pending {
			report.Pending++
		}
	}
	return report
}

// RequireFinal fails with ErrStaleReplacementWindow when any disposal of the
// tax year is still pending, i.e. its forward wash-sale window has not
// elapsed in event-log time. Callers closing a tax year re-run reconciliation
// later rather than treating this as a failure.
func (t *Table) RequireFinal(year int) error {
	for d := range t.ByYear(year) {
		if d.Pending {
			return fmt.Errorf("%w: disposal %s closed %s", ErrStaleReplacementWindow, d.ID, d.Close)
		}
	}
	return nil
}
