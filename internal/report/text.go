package report

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// maxListed caps the IDs printed per diagnostic list.
const maxListed = 20

// WriteText renders the report for the terminal.
func (r *Report) WriteText(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(w, "RULE\tEXPECTED\tBY_RULE\tBY_RESIDUAL\tUNRESOLVED\t")
	for _, row := range r.Rules {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t\n", row.Rule, row.Expected, row.ByRule, row.ByResidual, row.Unresolved)
	}
	t := r.Totals()
	_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t\n", t.Rule, t.Expected, t.ByRule, t.ByResidual, t.Unresolved)
	if err := w.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "\ncells allocated: %d\n", len(r.Cells))
	if r.Pending > 0 {
		_, _ = fmt.Fprintf(out, "cells not started: %d\n", r.Pending)
	}

	var cells, buildings []string
	for _, s := range r.Skipped {
		if s.Kind == "cell" {
			cells = append(cells, s.ID)
		} else {
			buildings = append(buildings, s.ID)
		}
	}
	writeList(out, "cells skipped", cells)
	writeList(out, "buildings skipped", buildings)

	var under []string
	for _, c := range r.Underfilled() {
		under = append(under, c.CellID)
	}
	writeList(out, "cells without enough buildings", under)

	var mism []string
	for _, m := range r.Mismatches {
		mism = append(mism, fmt.Sprintf("%s (%d vs %d)", m.CellID, m.RuleSum, m.Total))
	}
	writeList(out, "cells whose rule counts differ from the total", mism)
	return nil
}

func writeList(out io.Writer, title string, ids []string) {
	if len(ids) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "%s: %d\n", title, len(ids))
	shown := ids
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	for _, id := range shown {
		_, _ = fmt.Fprintf(out, "  %s\n", id)
	}
	if len(ids) > maxListed {
		_, _ = fmt.Fprintf(out, "  ... and %d more\n", len(ids)-maxListed)
	}
}
