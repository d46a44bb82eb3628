package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/relhydro/internal/evolve"
)

// Summary renders the outcome of a finished run.
func Summary(name string, res *evolve.Result, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(Title.Render("relhydro ") + Subtle.Render(name) + "\n\n")
	b.WriteString(row("termination", res.Reason.String()) + "\n")
	b.WriteString(row("steps", fmt.Sprintf("%d", res.Steps)) + "\n")
	b.WriteString(row("final tau [fm]", fmt.Sprintf("%.4f", res.Tau)) + "\n")
	b.WriteString(row("elapsed", elapsed.Round(time.Millisecond).String()) + "\n")

	d := res.Diagnostics
	b.WriteString(row("cells processed", fmt.Sprintf("%d", d.Cells)) + "\n")
	b.WriteString(row("recovery failures", fmt.Sprintf("%d", d.RecoveryFailures)) + "\n")
	b.WriteString(row("regularizations", fmt.Sprintf("%d", d.Regularizations)) + "\n")
	b.WriteString(row("warnings", fmt.Sprintf("%d", d.Warnings)) + "\n")

	if len(res.Surfaces) > 0 {
		b.WriteString("\n")
		for _, s := range res.Surfaces {
			b.WriteString(row(fmt.Sprintf("eps_fo %.4f", s.EpsilonFO), fmt.Sprintf("%d elements", s.Elements)) + "\n")
		}
	}

	if len(res.Series) > 0 {
		names := make([]string, 0, len(res.Series))
		for name := range res.Series {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\n")
		for _, name := range names {
			series := res.Series[name]
			if len(series) == 0 {
				continue
			}
			b.WriteString(row(name, fmt.Sprintf("%.6g", series[len(series)-1])) + "  " + Sparkline(series, 24) + "\n")
		}
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}
