// Package renderer turns reconciliation results into markdown reports.
package renderer

import (
	"fmt"
	"strings"

	"github.com/tallybook/taxlot"
)

// DisposalsMarkdown renders the realized disposals of an account as a
// markdown report, one row per disposal, followed by the wash-sale pairings
// when there are any.
func DisposalsMarkdown(table *taxlot.Table, account string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Disposals for %s\n\n", account)
	fmt.Fprintln(&b, "| Symbol | Acquired | Closed | Quantity | Proceeds | Cost Basis | Adjusted Gain | Term | Flags |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|---:|---:|:---|:---|")

	var total taxlot.Money
	count := 0
	for d := range table.ByAccount(account) {
		total = total.Add(d.AdjustedGain)
		count++
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			d.Symbol,
			d.Acquired,
			d.Close,
			d.Quantity,
			d.Proceeds,
			d.CostBasis,
			d.AdjustedGain.SignedString(),
			d.Term,
			flags(d),
		)
	}
	if count == 0 {
		fmt.Fprintln(&b, "\nNo realized disposals.")
		return b.String()
	}
	fmt.Fprintf(&b, "| **Total** | | | | | | **%s** | | |\n", total.SignedString())

	links := accountLinks(table, account)
	if len(links) > 0 {
		fmt.Fprint(&b, "\n## Wash Sales\n\n")
		fmt.Fprintln(&b, "| Loss Disposal | Replacement Lot | Quantity | Disallowed | Detected |")
		fmt.Fprintln(&b, "|:---|:---|---:|---:|:---|")
		for _, l := range links {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				l.LossDisposalID, l.ReplacementLotID, l.Quantity, l.Disallowed, l.DetectedOn)
		}
	}

	if amendments := accountAmendments(table, account); len(amendments) > 0 {
		fmt.Fprint(&b, "\n## Amended Records\n\n")
		fmt.Fprintln(&b, "| Disposal | Superseded Version | Prior Adjusted Gain |")
		fmt.Fprintln(&b, "|:---|---:|---:|")
		for _, a := range amendments {
			fmt.Fprintf(&b, "| %s | v%d | %s |\n", a.ID, a.Version, a.AdjustedGain.SignedString())
		}
	}

	return b.String()
}

// flags summarizes the wash-sale and pending markers of a disposal.
func flags(d *taxlot.Disposal) string {
	var f []string
	if d.WashSale {
		f = append(f, "wash")
	}
	if d.Pending {
		f = append(f, "pending")
	}
	if d.Version > 1 {
		f = append(f, fmt.Sprintf("v%d", d.Version))
	}
	return strings.Join(f, ", ")
}

// accountLinks filters the table's wash-sale links down to one account, by
// resolving each loss disposal.
func accountLinks(table *taxlot.Table, account string) []taxlot.WashSaleLink {
	var links []taxlot.WashSaleLink
	for _, l := range table.Links() {
		if d := table.Get(l.LossDisposalID); d != nil && d.Account == account {
			links = append(links, l)
		}
	}
	return links
}

func accountAmendments(table *taxlot.Table, account string) []*taxlot.Disposal {
	var out []*taxlot.Disposal
	for _, a := range table.Amendments() {
		if a.Account == account {
			out = append(out, a)
		}
	}
	return out
}
