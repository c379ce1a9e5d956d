package renderer

import (
	"strings"
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/tallybook/taxlot"
)

const acct = "acct-1"

func usd(v float64) taxlot.Money { return taxlot.M(v, "USD") }

// heading1 parses the markdown and returns the text of its first level-1
// heading, making sure the report is well-formed markdown along the way.
func heading1(t *testing.T, source string) string {
	t.Helper()
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader([]byte(source)))

	var title string
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering && h.Level == 1 && title == "" {
			var b strings.Builder
			for c := h.FirstChild(); c != nil; c = c.NextSibling() {
				if txt, ok := c.(*ast.Text); ok {
					b.Write(txt.Segment.Value([]byte(source)))
				}
			}
			title = b.String()
		}
		return ast.WalkContinue, nil
	})
	if title == "" {
		t.Fatalf("report has no level-1 heading:\n%s", source)
	}
	return title
}

func sampleDisposal() *taxlot.Disposal {
	return &taxlot.Disposal{
		ID:           "d-1",
		Version:      1,
		LotID:        "lot-1",
		Account:      acct,
		Symbol:       "AAPL",
		Acquired:     taxlot.MustParseDate("2025-01-02"),
		Close:        taxlot.MustParseDate("2025-02-10"),
		Quantity:     taxlot.Q(10),
		Proceeds:     usd(120),
		CostBasis:    usd(100),
		RawGain:      usd(20),
		AdjustedGain: usd(20),
		Term:         taxlot.Short,
	}
}

func TestDisposalsMarkdown(t *testing.T) {
	table := taxlot.NewTable(sampleDisposal())
	got := DisposalsMarkdown(table, acct)

	if title := heading1(t, got); title != "Disposals for acct-1" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(got, "| AAPL | 2025-01-02 | 2025-02-10 | 10 |") {
		t.Errorf("missing the disposal row:\n%s", got)
	}
	if !strings.Contains(got, "**+$20.00**") {
		t.Errorf("missing the total:\n%s", got)
	}
	if strings.Contains(got, "## Wash Sales") {
		t.Errorf("wash-sale section rendered without any link:\n%s", got)
	}
}

func TestDisposalsMarkdown_Empty(t *testing.T) {
	got := DisposalsMarkdown(taxlot.NewTable(), acct)
	if !strings.Contains(got, "No realized disposals.") {
		t.Errorf("empty table report:\n%s", got)
	}
}

func TestGainsMarkdown(t *testing.T) {
	report := &taxlot.GainsReport{
		Account:    acct,
		Year:       2025,
		ShortTerm:  usd(-100),
		LongTerm:   usd(500),
		Disallowed: usd(200),
		Disposals:  3,
		WashSales:  1,
		Pending:    1,
	}
	got := GainsMarkdown(report)

	if title := heading1(t, got); title != "Realized Gains 2025 for acct-1" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(got, "| **Net** | **+$400.00** |") {
		t.Errorf("missing the net line:\n%s", got)
	}
	if !strings.Contains(got, "still pending") {
		t.Errorf("missing the pending warning:\n%s", got)
	}
}

func TestLotsMarkdown(t *testing.T) {
	lots := []*taxlot.Lot{
		{
			ID:          "lot-1",
			Account:     acct,
			Symbol:      "AAPL",
			Acquired:    taxlot.MustParseDate("2025-01-17"),
			Holding:     taxlot.MustParseDate("2025-01-02"), // tacked by a wash sale
			Original:    taxlot.Q(100),
			Remaining:   taxlot.Q(100),
			CostPerUnit: usd(9),
			WashAdjust:  usd(200),
		},
	}
	got := LotsMarkdown(acct, "AAPL", lots)

	if title := heading1(t, got); title != "Open Lots acct-1 / AAPL" {
		t.Errorf("title = %q", title)
	}
	// The tacked holding date shows, and the basis includes the deferred loss.
	if !strings.Contains(got, "| 2025-01-17 | 2025-01-02 | 100 |") {
		t.Errorf("missing the lot row:\n%s", got)
	}
	if !strings.Contains(got, "$1,100.00") {
		t.Errorf("missing the adjusted basis:\n%s", got)
	}
}

func TestLotsMarkdown_Empty(t *testing.T) {
	got := LotsMarkdown(acct, "AAPL", nil)
	if !strings.Contains(got, "No open position.") {
		t.Errorf("empty position report:\n%s", got)
	}
}
