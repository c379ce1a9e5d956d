package taxlot

import "errors"

// Error taxonomy of the reconciliation engine.
//
// These sentinels are always wrapped with context (account, symbol, dates)
// using fmt.Errorf and %w, and matched with errors.Is.
var (
	// ErrInsufficientLots reports an oversell: the sell quantity exceeds the
	// open position. The sell is rejected, never silently clamped.
	ErrInsufficientLots = errors.New("insufficient open lots")

	// ErrAmbiguousSpecificID reports a specific-identification plan whose
	// quantities do not sum to the requested total, reference an unknown lot,
	// or exceed a lot's remaining quantity.
	ErrAmbiguousSpecificID = errors.New("ambiguous specific-identification plan")

	// ErrDuplicateExecution reports an execution id already present in the
	// log. Duplicates are skipped and logged, never fatal.
	ErrDuplicateExecution = errors.New("duplicate execution")

	// ErrStaleReplacementWindow reports a wash-sale scan over a disposal whose
	// 30-day forward window has not yet elapsed in event-log time. The scan
	// result is partial and flagged pending, to be re-run later.
	ErrStaleReplacementWindow = errors.New("replacement window still open")

	// ErrCorruptedLedgerState reports an invariant violation such as a
	// negative remaining quantity. It halts processing for the affected
	// symbol partition only.
	ErrCorruptedLedgerState = errors.New("corrupted ledger state")
)
