package renderer

import (
	"fmt"
	"strings"

	"github.com/tallybook/taxlot"
)

// LotsMarkdown renders the open lots of one (account, symbol) position.
func LotsMarkdown(account, symbol string, lots []*taxlot.Lot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Open Lots %s / %s\n\n", account, symbol)
	if len(lots) == 0 {
		fmt.Fprintln(&b, "No open position.")
		return b.String()
	}

	fmt.Fprintln(&b, "| Acquired | Holding Since | Remaining | Cost/Unit | Basis |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|")

	var qty taxlot.Quantity
	var basis taxlot.Money
	for _, l := range lots {
		qty = qty.Add(l.Remaining)
		basis = basis.Add(l.Basis())
		holding := ""
		if l.Holding != l.Acquired {
			// Only a wash sale tacks the holding start before the acquisition.
			holding = l.Holding.String()
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			l.Acquired, holding, l.Remaining, l.CostPerUnit, l.Basis())
	}
	fmt.Fprintf(&b, "| **Total** | | **%s** | | **%s** |\n", qty, basis)
	return b.String()
}
