// Package taxlot reconciles a chronological stream of security executions
// into tax lots and realized disposals.
//
// The execution log is the single source of truth. A reconciliation run
// derives everything else from it: open cost-basis lots per (account,
// symbol), realized disposals matched under FIFO, LIFO or specific
// identification, IRS-style wash-sale disallowances deferred onto
// replacement lots, and the short/long-term classification of every
// realized gain or loss.
//
// Because a wash sale can be triggered by a purchase up to 30 days after the
// loss, a disposal is not final until event-log time has moved past its
// forward window; until then it is flagged pending, and a later run amends
// it with a new version that references the superseded record.
//
// The package is consumed programmatically; the tlr command in this module
// is a thin shell over it.
package taxlot
