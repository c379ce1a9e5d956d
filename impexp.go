package taxlot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// This file handles the import of broker JSON exports. Brokers disagree on
// everything except being JSON, so the importer is driven by a Mapping of
// jsonpath expressions instead of one struct per broker.

// Mapping tells the importer where execution fields live in a broker export.
// Records selects the array of trade records in the document; the field paths
// are evaluated against each record.
type Mapping struct {
	Records    string `yaml:"records"`
	ID         string `yaml:"id"`
	Symbol     string `yaml:"symbol"`
	Side       string `yaml:"side"`
	Date       string `yaml:"date"`
	Quantity   string `yaml:"quantity"`
	Price      string `yaml:"price"`
	Commission string `yaml:"commission,omitempty"` // optional, defaults to zero
	Currency   string `yaml:"currency,omitempty"`   // fixed currency code, not a path
}

// LoadMapping reads a Mapping from a YAML file.
func LoadMapping(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, fmt.Errorf("cannot read mapping %q: %w", path, err)
	}
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Mapping{}, fmt.Errorf("cannot parse mapping %q: %w", path, err)
	}
	return m, nil
}

// ImportExecutions parses a broker JSON export and returns the executions it
// contains, in document order. Same-day ordering is preserved through the
// sequence number.
func ImportExecutions(r io.Reader, account string, m Mapping) ([]Execution, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("cannot parse broker export: %w", err)
	}

	jrecords, err := jsonpath.Get(m.Records, doc)
	if err != nil {
		return nil, fmt.Errorf("cannot select records with %q: %w", m.Records, err)
	}
	records, ok := jrecords.([]any)
	if !ok {
		return nil, fmt.Errorf("records path %q did not select an array", m.Records)
	}

	currency := m.Currency
	if currency == "" {
		currency = "USD"
	}

	executions := make([]Execution, 0, len(records))
	for i, rec := range records {
		id, err := jsonString(m.ID, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		symbol, err := jsonString(m.Symbol, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, id, err)
		}
		sideStr, err := jsonString(m.Side, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, id, err)
		}
		side, err := parseSide(sideStr)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, id, err)
		}
		dateStr, err := jsonString(m.Date, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, id, err)
		}
		on, err := ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, id, err)
		}
		qty, err := jsonDecimal(m.Quantity, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, id, err)
		}
		price, err := jsonDecimal(m.Price, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, id, err)
		}
		commission := decimal.Zero
		if m.Commission != "" {
			commission, err = jsonDecimal(m.Commission, rec)
			if err != nil {
				return nil, fmt.Errorf("record %d (%s): %w", i, id, err)
			}
		}

		executions = append(executions, Execution{
			ID:         id,
			Account:    account,
			Symbol:     symbol,
			Side:       side,
			Date:       on,
			Seq:        int64(i),
			Quantity:   Q(qty),
			Price:      M(price, currency),
			Commission: M(commission, currency),
		})
	}
	return executions, nil
}

func parseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B", "BOT":
		return Buy, nil
	case "SELL", "S", "SLD":
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// jsonScalar evaluates a jsonpath against one record. Because jsonpath is
// never clear about whether it returns a list of one answer or a single
// answer, a one-element list is unwrapped.
func jsonScalar(path string, rec any) (any, error) {
	jval, err := jsonpath.Get(path, rec)
	if err != nil {
		return nil, fmt.Errorf("cannot evaluate %q: %w", path, err)
	}
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	return jval, nil
}

func jsonString(path string, rec any) (string, error) {
	jval, err := jsonScalar(path, rec)
	if err != nil {
		return "", err
	}
	switch v := jval.(type) {
	case string:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v).String(), nil
	default:
		return "", fmt.Errorf("%q is not a string: %v", path, jval)
	}
}

func jsonDecimal(path string, rec any) (decimal.Decimal, error) {
	jval, err := jsonScalar(path, rec)
	if err != nil {
		return decimal.Zero, err
	}
	switch v := jval.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%q is not a number: %w", path, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("%q is not a number: %v", path, jval)
	}
}
