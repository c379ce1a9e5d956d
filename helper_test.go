package taxlot

// test account used across the suite.
const acct = "acct-1"

// USD is a helper for tests to create dollar money from const.
func USD(v float64) Money { return M(v, "USD") }

// buyExec is a helper to create a BUY execution with zero sequence number.
func buyExec(id, symbol, on string, qty, price, commission float64) Execution {
	return NewBuy(id, acct, symbol, MustParseDate(on), 0, Q(qty), USD(price), USD(commission))
}

// sellExec is a helper to create a SELL execution with zero sequence number.
func sellExec(id, symbol, on string, qty, price, commission float64) Execution {
	return NewSell(id, acct, symbol, MustParseDate(on), 0, Q(qty), USD(price), USD(commission))
}

// mustLog builds a log from executions, panicking on error: tests construct
// only valid executions.
func mustLog(execs ...Execution) *Log {
	l := NewLog()
	if _, err := l.Append(execs...); err != nil {
		panic(err.Error())
	}
	return l
}
