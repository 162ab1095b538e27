// Package notification delivers analysis results to external channels.
package notification

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/raykavin/factorlab/pkg/analyse"
)

// Notifier receives plain-text messages and errors.
type Notifier interface {
	Notify(text string)
	OnError(err error)
}

// OnReport formats a finished report and pushes it through the notifier.
func OnReport(n Notifier, name string, report *analyse.SummaryReport) {
	n.Notify(FormatReport(name, report))
}

// FormatReport renders a compact text view of a report, one factor per block.
func FormatReport(name string, report *analyse.SummaryReport) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "analysis %q finished: %d factors x %d labels\n",
		name, len(report.Facs), len(report.Labels))
	for _, fs := range report.Facs {
		fmt.Fprintf(&buf, "%s:", fs.Fac)
		for _, label := range report.Labels {
			if fs.IC != nil {
				fmt.Fprintf(&buf, " ic[%s]=%.4f", label, fs.IC[label])
			}
		}
		fmt.Fprintf(&buf, " half_life=%.1f\n", fs.HalfLife)
	}
	return strings.TrimRight(buf.String(), "\n")
}
