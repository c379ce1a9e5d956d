package taxlot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// Reconciler derives the disposal table from the execution log. The log is
// the single source of truth: every run recomputes lots and disposals from
// scratch, so a late-arriving execution never needs an incremental patch and
// two runs over the same log produce byte-identical tables.
//
// A run has two phases. Phase 1 matches lots per (account, symbol) partition;
// partitions share no state and run in parallel. Phase 2 is the wash-sale
// barrier: it runs per account, after every partition of the account has
// settled, because a disposal cannot be final until its 30-day forward
// window has been seen.
type Reconciler struct {
	exlog *Log
	cfg   *Config
	wash  *WashEngine

	mu    sync.RWMutex
	table *Table
}

// NewReconciler creates a reconciler over an execution log.
func NewReconciler(exlog *Log, cfg *Config) *Reconciler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	wash := NewWashEngine()
	if cfg.WashWindowDays > 0 {
		wash.Window = cfg.WashWindowDays
	}
	return &Reconciler{exlog: exlog, cfg: cfg, wash: wash}
}

// Table returns the disposal table of the last successful run, or nil. A
// failed or cancelled run never replaces it: the new table is built aside and
// swapped in atomically on success.
func (r *Reconciler) Table() *Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table
}

// RunReport enumerates the outcome of a reconciliation run. A run returns a
// report rather than failing wholesale: duplicates are skipped, and a
// corrupted symbol partition is flagged for review without blocking the
// others.
type RunReport struct {
	Executions  int               // executions processed from the log
	Duplicates  []string          // execution ids skipped at ingestion
	Disposals   int               // disposal records in the new table
	WashSales   int               // disposals with a disallowed loss
	Pending     int               // disposals awaiting their window close
	NeedsReview map[string]string // "account/symbol" -> reason, halted partitions
}

// partitionKey identifies one (account, symbol) partition.
type partitionKey struct{ account, symbol string }

func (k partitionKey) String() string { return k.account + "/" + k.symbol }

// Run executes a full reconciliation pass over the log and returns the run
// report. On success the new disposal table atomically replaces the previous
// one; on cancellation the previous table stays visible.
func (r *Reconciler) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		Executions:  r.exlog.Len(),
		Duplicates:  r.exlog.Duplicates(),
		NeedsReview: make(map[string]string),
	}

	// Phase 1: per-partition lot matching, embarrassingly parallel. It
	// validates ordering and oversells and gates which partitions enter the
	// wash-sale pass.
	var partitions []partitionKey
	for account := range r.exlog.Accounts() {
		for symbol := range r.exlog.Symbols(account) {
			partitions = append(partitions, partitionKey{account, symbol})
		}
	}

	type phase1Result struct {
		key partitionKey
		err error
	}
	results := make(chan phase1Result, len(partitions))
	var wg sync.WaitGroup
	for _, key := range partitions {
		wg.Add(1)
		go func(key partitionKey) {
			defer wg.Done()
			results <- phase1Result{key: key, err: r.matchLots(key)}
		}(key)
	}
	wg.Wait()
	close(results)

	clean := make(map[partitionKey]bool, len(partitions))
	for res := range results {
		if res.err != nil {
			log.Printf("%s: partition needs review: %v", res.key, res.err)
			report.NeedsReview[res.key.String()] = res.err.Error()
			continue
		}
		clean[res.key] = true
	}

	if err := ctx.Err(); err != nil {
		mtxRuns.WithLabelValues("cancelled").Inc()
		return report, fmt.Errorf("reconciliation cancelled before wash-sale pass: %w", err)
	}

	// Phase 2: the wash-sale barrier. Sequential per account, over the
	// partitions that passed phase 1.
	table := newTable()
	for account := range r.exlog.Accounts() {
		if err := ctx.Err(); err != nil {
			mtxRuns.WithLabelValues("cancelled").Inc()
			return report, fmt.Errorf("reconciliation cancelled during wash-sale pass: %w", err)
		}
		method := r.cfg.MethodFor(account)
		newest := r.exlog.NewestDate(account)
		for symbol := range r.exlog.Symbols(account) {
			key := partitionKey{account, symbol}
			if !clean[key] {
				continue
			}
			ledger, links, err := r.wash.scanSymbol(r.exlog, account, symbol, method, newest)
			if err != nil {
				// The wash replay re-derives the partition; it can trip an
				// invariant phase 1 could not see.
				log.Printf("%s: partition needs review: %v", key, err)
				report.NeedsReview[key.String()] = err.Error()
				continue
			}
			table.insert(ledger.Disposals()...)
			table.links = append(table.links, links...)
			table.lots[key.String()] = ledger.OpenLots()
		}
	}
	table.sort()

	r.amend(table)

	for d := range table.All() {
		report.Disposals++
		if d.WashSale {
			report.WashSales++
		}
		if d.Pending {
			report.Pending++
		}
	}

	r.mu.Lock()
	r.table = table
	r.mu.Unlock()

	mtxRuns.WithLabelValues("ok").Inc()
	mtxDisposals.Add(float64(report.Disposals))
	mtxWashSales.Add(float64(report.WashSales))
	mtxDuplicates.Add(float64(len(report.Duplicates)))
	mtxPending.Set(float64(report.Pending))

	log.Printf("reconciled %d executions into %d disposals (%d wash sales, %d pending, %d need review)",
		report.Executions, report.Disposals, report.WashSales, report.Pending, len(report.NeedsReview))
	return report, nil
}

// matchLots replays one partition without wash-sale accounting. Phase 1 only
// validates; the authoritative amounts come from the phase 2 replay.
func (r *Reconciler) matchLots(key partitionKey) error {
	ledger := NewLedger(key.account, key.symbol)
	method := r.cfg.MethodFor(key.account)
	for _, e := range r.exlog.Executions(BySymbol(key.account, key.symbol)) {
		switch e.Side {
		case Buy:
			if _, err := ledger.ApplyBuy(e); err != nil {
				return err
			}
		case Sell:
			if _, err := ledger.ApplySell(e, method); err != nil {
				return err
			}
		}
	}
	return ledger.Check(r.exlog)
}

// amend compares the new table with the previous run's table. A disposal
// whose amounts changed — typically because a later purchase washed an
// already-reported loss — is not silently rewritten: its version is bumped,
// it references the superseded record, and the old version is archived.
func (r *Reconciler) amend(table *Table) {
	prior := r.Table()
	if prior == nil {
		return
	}
	for d := range table.All() {
		p := prior.Get(d.ID)
		if p == nil {
			continue
		}
		if sameDisposal(d, p) {
			d.Version = p.Version
			d.Supersedes = p.Supersedes
			continue
		}
		d.Version = p.Version + 1
		d.Supersedes = fmt.Sprintf("%s#v%d", p.ID, p.Version)
		table.amendments = append(table.amendments, p)
		log.Printf("%s: amended disposal %s v%d: adjusted %s -> %s",
			d.Close, d.ID, d.Version, p.AdjustedGain, d.AdjustedGain)
	}
	// Amendments of earlier runs stay on the audit trail.
	table.amendments = append(table.amendments, prior.amendments...)
	sortAmendments(table)
}

func sameDisposal(a, b *Disposal) bool {
	return a.Quantity.Equal(b.Quantity) &&
		a.Proceeds.Equal(b.Proceeds) &&
		a.CostBasis.Equal(b.CostBasis) &&
		a.RawGain.Equal(b.RawGain) &&
		a.Disallowed.Equal(b.Disallowed) &&
		a.AdjustedGain.Equal(b.AdjustedGain) &&
		a.Term == b.Term &&
		a.WashSale == b.WashSale &&
		a.Pending == b.Pending
}

func sortAmendments(t *Table) {
	sort.SliceStable(t.amendments, func(i, j int) bool {
		a, b := t.amendments[i], t.amendments[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Version < b.Version
	})
}
