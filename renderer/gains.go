package renderer

import (
	"fmt"
	"strings"

	"github.com/tallybook/taxlot"
)

// GainsMarkdown renders the per-year gains summary of an account.
func GainsMarkdown(report *taxlot.GainsReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Realized Gains %d for %s\n\n", report.Year, report.Account)

	fmt.Fprintln(&b, "| | Amount |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Short-term | %s |\n", report.ShortTerm.SignedString())
	fmt.Fprintf(&b, "| Long-term | %s |\n", report.LongTerm.SignedString())
	fmt.Fprintf(&b, "| **Net** | **%s** |\n", report.ShortTerm.Add(report.LongTerm).SignedString())
	fmt.Fprintf(&b, "| Disallowed (wash sales) | %s |\n", report.Disallowed.SignedString())

	fmt.Fprintf(&b, "\n%d disposals, %d wash sales.\n", report.Disposals, report.WashSales)
	if report.Pending > 0 {
		fmt.Fprintf(&b, "\n**%d disposals are still pending**: their 30-day replacement window has not elapsed, amounts may still be amended.\n", report.Pending)
	}
	return b.String()
}
