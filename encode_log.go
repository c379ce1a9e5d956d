package taxlot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// executionCmd is a specialized struct for decoding an execution line, where
// price and commission are plain decimals sharing a single currency field.
type executionCmd struct {
	ID         string          `json:"id"`
	Account    string          `json:"account"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Date       Date            `json:"date"`
	Seq        int64           `json:"seq"`
	Quantity   Quantity        `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	Currency   string          `json:"currency"`
	Lots       []LotSlice      `json:"lots"`
}

func (c executionCmd) execution() Execution {
	return Execution{
		ID:         c.ID,
		Account:    c.Account,
		Symbol:     c.Symbol,
		Side:       c.Side,
		Date:       c.Date,
		Seq:        c.Seq,
		Quantity:   c.Quantity,
		Price:      M(c.Price, c.Currency),
		Commission: M(c.Commission, c.Currency),
		Lots:       c.Lots,
	}
}

// DecodeLog decodes executions from a stream of JSONL data, one execution per
// line, and returns a sorted, deduplicated Log.
func DecodeLog(r io.Reader) (*Log, error) {
	l := NewLog()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue // Skip empty lines
		}

		var cmd executionCmd
		if err := json.Unmarshal(line, &cmd); err != nil {
			return nil, fmt.Errorf("cannot parse execution line %q: %w", string(line), err)
		}
		if _, err := l.Append(cmd.execution()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read execution log: %w", err)
	}
	return l, nil
}

// EncodeExecution appends a single execution to 'w' in the JSONL format.
func EncodeExecution(w io.Writer, e Execution) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cannot encode execution %q: %w", e.ID, err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("cannot write execution %q: %w", e.ID, err)
	}
	return nil
}

// EncodeLog writes the whole log to 'w' in the JSONL format, one execution
// per line, in chronological order.
func EncodeLog(w io.Writer, l *Log) error {
	for _, e := range l.Executions(AcceptAll) {
		if err := EncodeExecution(w, e); err != nil {
			return err
		}
	}
	return nil
}
