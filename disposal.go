package taxlot

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
)

// Term classifies a realized disposal by holding period.
type Term string

const (
	// Short is a holding period of one year or less (365 days counts as short).
	Short Term = "SHORT"
	// Long is a holding period strictly greater than one year.
	Long Term = "LONG"
)

// Classify returns the term of a holding period from acquisition to close.
// Exactly 365 days is short; 366 or more is long. Days are counted on the
// calendar, so a leap day counts like any other day.
func Classify(acquired, close Date) Term {
	if acquired.DaysUntil(close) > 365 {
		return Long
	}
	return Short
}

// Disposal is the realized record of closing some quantity of a tax lot.
// It is created once per lot slice consumed by a sell, amended only by the
// wash-sale engine, and finalized with its term and adjusted amount.
type Disposal struct {
	ID         string // deterministic, derived from the sell execution id
	Version    int    // starts at 1; bumped when a later run amends the record
	Supersedes string // id of the amended prior version, for audit

	LotID   string
	Account string
	Symbol  string

	Acquired Date  // holding-period start of the source lot
	Close    Date  // sell execution date
	Seq      int64 // sell same-day sequence

	Quantity  Quantity
	Proceeds  Money
	CostBasis Money
	RawGain   Money // Proceeds - CostBasis, before wash-sale adjustment

	Disallowed   Money // wash-sale disallowed loss, zero unless RawGain < 0
	AdjustedGain Money // RawGain + Disallowed
	Term         Term
	WashSale     bool // true when part of the loss was disallowed
	Pending      bool // true while the 30-day forward window is still open
}

// MarshalJSON implements the json.Marshaler interface for Disposal,
// with a stable field order so encoded tables are byte-identical across runs.
func (d *Disposal) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", d.ID)
	if d.Version > 1 {
		w.Append("version", d.Version)
		w.Optional("supersedes", d.Supersedes)
	}
	w.Append("lot", d.LotID)
	w.Append("account", d.Account)
	w.Append("symbol", d.Symbol)
	w.Append("acquired", d.Acquired)
	w.Append("close", d.Close)
	w.Append("quantity", d.Quantity)
	w.Append("proceeds", d.Proceeds.Decimal())
	w.Append("costBasis", d.CostBasis.Decimal())
	w.Append("rawGain", d.RawGain.Decimal())
	if !d.Disallowed.IsZero() {
		w.Append("disallowed", d.Disallowed.Decimal())
	}
	w.Append("adjustedGain", d.AdjustedGain.Decimal())
	w.Append("term", d.Term)
	if d.WashSale {
		w.Append("washSale", true)
	}
	if d.Pending {
		w.Append("pending", true)
	}
	w.Optional("currency", d.Proceeds.Currency())
	return w.MarshalJSON()
}

// WashSaleLink records one (loss disposal, replacement lot) pairing with a
// non-zero disallowed amount.
type WashSaleLink struct {
	LossDisposalID   string
	ReplacementLotID string
	Quantity         Quantity // replacement shares absorbing the disallowance
	Disallowed       Money
	DetectedOn       Date // the event-log date on which the wash became knowable
}

// MarshalJSON implements the json.Marshaler interface for WashSaleLink.
func (l WashSaleLink) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("loss", l.LossDisposalID)
	w.Append("replacement", l.ReplacementLotID)
	w.Append("quantity", l.Quantity)
	w.Append("disallowed", l.Disallowed.Decimal())
	w.Append("detectedOn", l.DetectedOn)
	return w.MarshalJSON()
}

// Table is the finalized disposal table of a reconciliation run, queryable by
// tax year, account and symbol. Superseded versions of amended disposals are
// retained for audit.
type Table struct {
	disposals  []*Disposal
	index      map[string]*Disposal
	links      []WashSaleLink
	amendments []*Disposal // prior versions of amended disposals
	lots       map[string][]*Lot // open lots per "account/symbol", for reporting
}

func newTable() *Table {
	return &Table{
		index: make(map[string]*Disposal),
		lots:  make(map[string][]*Lot),
	}
}

// NewTable builds a sorted table from disposals, mostly useful to callers
// assembling reports outside of a reconciliation run.
func NewTable(disposals ...*Disposal) *Table {
	t := newTable()
	t.insert(disposals...)
	t.sort()
	return t
}

func (t *Table) insert(ds ...*Disposal) {
	for _, d := range ds {
		t.disposals = append(t.disposals, d)
		t.index[d.ID] = d
	}
}

// sort orders disposals deterministically for iteration and encoding.
func (t *Table) sort() {
	slices.SortFunc(t.disposals, func(a, b *Disposal) int {
		switch {
		case a.Account != b.Account:
			return strings.Compare(a.Account, b.Account)
		case a.Symbol != b.Symbol:
			return strings.Compare(a.Symbol, b.Symbol)
		case a.Close != b.Close:
			if a.Close.Before(b.Close) {
				return -1
			}
			return 1
		case a.Seq != b.Seq:
			return int(a.Seq - b.Seq)
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})
}

// Len returns the number of disposals in the table.
func (t *Table) Len() int { return len(t.disposals) }

// Get returns the disposal with the given id, or nil.
func (t *Table) Get(id string) *Disposal { return t.index[id] }

// Links returns all wash-sale links of the table.
func (t *Table) Links() []WashSaleLink { return slices.Clone(t.links) }

// Amendments returns the superseded prior versions kept for audit.
func (t *Table) Amendments() []*Disposal { return slices.Clone(t.amendments) }

// All iterates over every disposal in deterministic order.
func (t *Table) All() iter.Seq[*Disposal] {
	return func(yield func(*Disposal) bool) {
		for _, d := range t.disposals {
			if !yield(d) {
				return
			}
		}
	}
}

// ByYear iterates over disposals closed in the given tax year.
func (t *Table) ByYear(year int) iter.Seq[*Disposal] {
	return func(yield func(*Disposal) bool) {
		for _, d := range t.disposals {
			if d.Close.Year() != year {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// ByAccount iterates over disposals of the given account.
func (t *Table) ByAccount(account string) iter.Seq[*Disposal] {
	return func(yield func(*Disposal) bool) {
		for _, d := range t.disposals {
			if d.Account != account {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// BySymbol iterates over disposals of the given account and symbol.
func (t *Table) BySymbol(account, symbol string) iter.Seq[*Disposal] {
	return func(yield func(*Disposal) bool) {
		for _, d := range t.disposals {
			if d.Account != account || d.Symbol != symbol {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// OpenLots returns the open lots of (account, symbol) after the run,
// in acquisition order.
func (t *Table) OpenLots(account, symbol string) []*Lot {
	return slices.Clone(t.lots[account+"/"+symbol])
}

// Encode writes the disposal table to 'w' in the JSONL format, one disposal
// per line, in deterministic order.
func (t *Table) Encode(w io.Writer) error {
	for d := range t.All() {
		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("cannot encode disposal %q: %w", d.ID, err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("cannot write disposal %q: %w", d.ID, err)
		}
	}
	return nil
}
