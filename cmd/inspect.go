package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/census-disagg/internal/allocate"
	"github.com/sells-group/census-disagg/internal/model"
	"github.com/sells-group/census-disagg/internal/spatial"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Check inputs without allocating",
	Long:  "Loads cells, buildings and rules, then reports invalid geometries, buildings outside every cell, cells whose rule counts differ from their total and cells with fewer buildings than reported.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		for name, dst := range map[string]*string{
			"cells":     &cfg.Input.Cells,
			"buildings": &cfg.Input.Buildings,
			"rules":     &cfg.Input.Rules,
		} {
			if f.Changed(name) {
				*dst, _ = f.GetString(name)
			}
		}
		if err := cfg.Validate("inspect"); err != nil {
			return err
		}

		in, err := loadInputs(cfg)
		if err != nil {
			return err
		}
		formatInspection(os.Stdout, inspectInputs(in))
		return nil
	},
}

func init() {
	inspectCmd.Flags().String("cells", "", "census cell dataset")
	inspectCmd.Flags().String("buildings", "", "building dataset")
	inspectCmd.Flags().String("rules", "", "building type dictionary")
	rootCmd.AddCommand(inspectCmd)
}

// inspection is the input check of a study area.
type inspection struct {
	Rules            int
	Cells            int
	Buildings        int
	Indexed          int
	Contained        int
	InvalidCells     []string
	InvalidBuildings []string
	Underfilled      []string
	Mismatches       []allocate.TotalMismatch
}

func inspectInputs(in *inputs) inspection {
	x := spatial.NewIntersector(in.buildings)
	ins := inspection{
		Rules:      in.rules.Len(),
		Cells:      len(in.cells),
		Buildings:  len(in.buildings),
		Indexed:    x.Indexed(),
		Mismatches: allocate.CrossCheck(in.cells),
	}
	for _, ge := range x.Skipped() {
		ins.InvalidBuildings = append(ins.InvalidBuildings, ge.ID)
	}

	contained := make(map[string]bool)
	for _, c := range in.cells {
		pool, err := x.Pool(c)
		if err != nil {
			if model.IsGeometryError(err) {
				ins.InvalidCells = append(ins.InvalidCells, c.ID)
			}
			continue
		}
		for _, b := range pool {
			contained[b.ID] = true
		}
		if c.Total > len(pool) {
			ins.Underfilled = append(ins.Underfilled, c.ID)
		}
	}
	ins.Contained = len(contained)
	return ins
}

func formatInspection(out io.Writer, ins inspection) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Rules:\t%d\n", ins.Rules)
	_, _ = fmt.Fprintf(w, "Cells:\t%d\n", ins.Cells)
	_, _ = fmt.Fprintf(w, "  Invalid geometry:\t%d\n", len(ins.InvalidCells))
	_, _ = fmt.Fprintf(w, "  Fewer buildings than reported:\t%d\n", len(ins.Underfilled))
	_, _ = fmt.Fprintf(w, "  Rule counts differ from total:\t%d\n", len(ins.Mismatches))
	_, _ = fmt.Fprintf(w, "Buildings:\t%d\n", ins.Buildings)
	_, _ = fmt.Fprintf(w, "  Invalid geometry:\t%d\n", len(ins.InvalidBuildings))
	_, _ = fmt.Fprintf(w, "  Inside a cell:\t%d\n", ins.Contained)
	_, _ = fmt.Fprintf(w, "  Outside every cell:\t%d\n", ins.Indexed-ins.Contained)
	_ = w.Flush()

	for _, id := range ins.InvalidCells {
		_, _ = fmt.Fprintf(out, "invalid cell: %s\n", id)
	}
	for _, m := range ins.Mismatches {
		_, _ = fmt.Fprintf(out, "count mismatch: %s rules=%d total=%d\n", m.CellID, m.RuleSum, m.Total)
	}
}
