package taxlot

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"slices"
	"sort"
	"strings"
)

// Side identifies the direction of an execution.
type Side string

const (
	// Buy opens or adds to a position.
	Buy Side = "BUY"
	// Sell closes some quantity of the position.
	Sell Side = "SELL"
)

// Execution is a single normalized trade execution, as supplied by the
// ingestion collaborator. It is immutable once appended to the log and
// deduplicated by ID.
type Execution struct {
	ID         string     // unique execution id, the idempotency key
	Account    string     // owning account
	Symbol     string     // security symbol
	Side       Side       // BUY or SELL
	Date       Date       // execution date
	Seq        int64      // same-day tie-break, assigned by ingestion
	Quantity   Quantity   // always positive; Side carries the sign
	Price      Money      // per-unit price
	Commission Money      // total commission for the execution
	Lots       []LotSlice // optional specific-identification plan for a SELL
}

// LotSlice designates a quantity to consume from a specific lot.
// A sell carrying a non-empty plan is matched by specific identification.
type LotSlice struct {
	LotID    string   `json:"lot"`
	Quantity Quantity `json:"quantity"`
}

// NewBuy creates a BUY execution.
func NewBuy(id, account, symbol string, on Date, seq int64, qty Quantity, price, commission Money) Execution {
	return Execution{ID: id, Account: account, Symbol: symbol, Side: Buy, Date: on, Seq: seq,
		Quantity: qty, Price: price, Commission: commission}
}

// NewSell creates a SELL execution.
func NewSell(id, account, symbol string, on Date, seq int64, qty Quantity, price, commission Money) Execution {
	return Execution{ID: id, Account: account, Symbol: symbol, Side: Sell, Date: on, Seq: seq,
		Quantity: qty, Price: price, Commission: commission}
}

// WithLots returns a copy of the execution carrying a specific-identification plan.
func (e Execution) WithLots(lots ...LotSlice) Execution {
	e.Lots = lots
	return e
}

// Validate checks an execution for structural correctness before it is
// accepted into the log.
func (e Execution) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("execution id is missing")
	}
	if strings.TrimSpace(e.Account) == "" {
		return fmt.Errorf("execution %s: account is missing", e.ID)
	}
	if strings.TrimSpace(e.Symbol) == "" {
		return fmt.Errorf("execution %s: symbol is missing", e.ID)
	}
	if e.Side != Buy && e.Side != Sell {
		return fmt.Errorf("execution %s: unknown side %q", e.ID, e.Side)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("execution %s: date is missing", e.ID)
	}
	if !e.Quantity.IsPositive() {
		return fmt.Errorf("execution %s: quantity %s is not positive", e.ID, e.Quantity)
	}
	if e.Price.IsNegative() {
		return fmt.Errorf("execution %s: price %s is negative", e.ID, e.Price)
	}
	if e.Commission.IsNegative() {
		return fmt.Errorf("execution %s: commission %s is negative", e.ID, e.Commission)
	}
	if cc, pc := e.Commission.Currency(), e.Price.Currency(); cc != "" && pc != "" && cc != pc {
		return fmt.Errorf("execution %s: commission currency %s differs from price currency %s", e.ID, cc, pc)
	}
	if e.Side == Buy && len(e.Lots) > 0 {
		return fmt.Errorf("execution %s: a buy cannot carry a lot plan", e.ID)
	}
	return nil
}

// before defines the total chronological order of executions:
// date, then same-day sequence, then id as a last deterministic resort.
func (e Execution) before(f Execution) bool {
	if e.Date != f.Date {
		return e.Date.Before(f.Date)
	}
	if e.Seq != f.Seq {
		return e.Seq < f.Seq
	}
	return e.ID < f.ID
}

// signed returns the execution quantity signed by its side.
func (e Execution) signed() Quantity {
	if e.Side == Sell {
		return e.Quantity.Neg()
	}
	return e.Quantity
}

// MarshalJSON implements the json.Marshaler interface for Execution,
// with a stable field order.
func (e Execution) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", e.ID)
	w.Append("account", e.Account)
	w.Append("symbol", e.Symbol)
	w.Append("side", e.Side)
	w.Append("date", e.Date)
	w.Optional("seq", e.Seq)
	w.Append("quantity", e.Quantity)
	w.Append("price", e.Price.Decimal())
	w.Append("commission", e.Commission.Decimal())
	w.Optional("currency", e.Price.Currency())
	if len(e.Lots) > 0 {
		w.Append("lots", e.Lots)
	}
	return w.MarshalJSON()
}

// Log is the append-only execution log, the single source of truth from
// which lots and disposals are derived.
//
// In a Log executions are always in chronological order.
type Log struct {
	executions []Execution
	byID       map[string]struct{}
	currency   map[string]string // currency per account, set by the first accepted execution
	duplicates []string          // execution ids skipped as duplicates, in arrival order
}

// NewLog creates an empty execution log.
func NewLog() *Log {
	return &Log{
		byID:     make(map[string]struct{}),
		currency: make(map[string]string),
	}
}

// Append validates and appends executions to the log, maintaining the
// chronological order. The whole batch is validated before the log is
// touched, so a rejected batch never leaves the log partially updated or out
// of order. All executions of an account must share one currency: lot
// matching and gain aggregation subtract and sum amounts, never convert them.
// Ingestion is idempotent by execution id: duplicate submissions are skipped
// and logged, not treated as errors. It returns the number of executions
// actually appended.
func (l *Log) Append(execs ...Execution) (int, error) {
	batch := make(map[string]string, len(execs))
	for _, e := range execs {
		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("invalid execution: %w", err)
		}
		cur := e.Price.Currency()
		if cur == "" {
			continue
		}
		want, ok := l.currency[e.Account]
		if !ok {
			want, ok = batch[e.Account]
		}
		if ok && want != cur {
			return 0, fmt.Errorf("invalid execution %s: currency %s differs from %s used by account %s",
				e.ID, cur, want, e.Account)
		}
		batch[e.Account] = cur
	}

	added := 0
	for _, e := range execs {
		if _, ok := l.byID[e.ID]; ok {
			log.Printf("%v: skip execution %q: %v", e.Date, e.ID, ErrDuplicateExecution)
			l.duplicates = append(l.duplicates, e.ID)
			continue
		}
		l.byID[e.ID] = struct{}{}
		if cur := e.Price.Currency(); cur != "" {
			l.currency[e.Account] = cur
		}
		l.executions = append(l.executions, e)
		added++
	}
	if added > 0 {
		l.stableSort()
	}
	return added, nil
}

// stableSort sorts the log chronologically. The sort is stable, and the
// (date, seq, id) key is total, so the order is fully deterministic.
func (l *Log) stableSort() {
	sort.SliceStable(l.executions, func(i, j int) bool {
		return l.executions[i].before(l.executions[j])
	})
}

// Len returns the number of executions in the log.
func (l *Log) Len() int { return len(l.executions) }

// Duplicates returns the execution ids that were skipped as duplicates,
// in arrival order.
func (l *Log) Duplicates() []string { return slices.Clone(l.duplicates) }

// AcceptAll is a predicate that accepts every execution.
func AcceptAll(Execution) bool { return true }

// ByAccount returns a predicate that filters executions by account.
func ByAccount(account string) func(Execution) bool {
	return func(e Execution) bool { return e.Account == account }
}

// BySymbol returns a predicate that filters executions by account and symbol.
func BySymbol(account, symbol string) func(Execution) bool {
	return func(e Execution) bool { return e.Account == account && e.Symbol == symbol }
}

// Executions returns an iterator over executions in chronological order.
// An execution is yielded when at least one filter accepts it.
func (l *Log) Executions(filters ...func(Execution) bool) iter.Seq2[int, Execution] {
	return func(yield func(int, Execution) bool) {
		for i, e := range l.executions {
			accept := false
			for _, filter := range filters {
				if filter(e) {
					accept = true
					break
				}
			}
			if !accept {
				continue
			}
			if !yield(i, e) {
				return
			}
		}
	}
}

// Accounts iterates over all account ids present in the log, sorted.
func (l *Log) Accounts() iter.Seq[string] {
	return func(yield func(string) bool) {
		visited := make(map[string]struct{})
		for _, e := range l.executions {
			visited[e.Account] = struct{}{}
		}
		accounts := slices.Collect(maps.Keys(visited))
		slices.Sort(accounts)
		for _, a := range accounts {
			if !yield(a) {
				return
			}
		}
	}
}

// Symbols iterates over all symbols traded by an account, sorted.
func (l *Log) Symbols(account string) iter.Seq[string] {
	return func(yield func(string) bool) {
		visited := make(map[string]struct{})
		for _, e := range l.executions {
			if e.Account == account {
				visited[e.Symbol] = struct{}{}
			}
		}
		symbols := slices.Collect(maps.Keys(visited))
		slices.Sort(symbols)
		for _, s := range symbols {
			if !yield(s) {
				return
			}
		}
	}
}

// NetPosition computes the signed net position of (account, symbol) on a
// date by summing executed quantities, independently of any lot bookkeeping.
// The invariant checker compares it against the sum of open lot remainders.
func (l *Log) NetPosition(account, symbol string, on Date) Quantity {
	var net Quantity
	for _, e := range l.executions {
		if e.Date.After(on) {
			// The log is sorted by date, so it is safe to break.
			break
		}
		if e.Account == account && e.Symbol == symbol {
			net = net.Add(e.signed())
		}
	}
	return net
}

// NewestDate returns the date of the latest execution for an account, or the
// zero Date if the account has none. It defines "event-log time" for the
// wash-sale forward window.
func (l *Log) NewestDate(account string) Date {
	var newest Date
	for _, e := range l.executions {
		if e.Account == account {
			newest = e.Date // the log is sorted, the last match wins
		}
	}
	return newest
}

// OldestDate returns the date of the earliest execution in the log.
func (l *Log) OldestDate() Date {
	if len(l.executions) == 0 {
		return Date{}
	}
	return l.executions[0].Date
}
