package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/census-disagg/internal/loader"
	"github.com/sells-group/census-disagg/internal/model"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Work with building type dictionaries",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load a rule table and print it in priority order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if f := cmd.Flags(); f.Changed("rules") {
			cfg.Input.Rules, _ = f.GetString("rules")
		}
		if err := cfg.Validate("rules"); err != nil {
			return err
		}

		rs, err := loader.LoadRules(cfg.Input.Rules)
		if err != nil {
			return eris.Wrap(err, "rules validate")
		}
		formatRules(os.Stdout, rs)
		return nil
	},
}

func init() {
	rulesValidateCmd.Flags().String("rules", "", "building type dictionary (csv, xlsx or yaml)")
	rulesCmd.AddCommand(rulesValidateCmd)
	rootCmd.AddCommand(rulesCmd)
}

// formatRules writes the rule table to w, highest priority first.
func formatRules(out io.Writer, rs *model.RuleSet) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "POS\tNAME\tMIN_FLOORS\tMIN_LA\tMAX_LA\tDETACHED")
	_, _ = fmt.Fprintln(w, "---\t----\t----------\t------\t------\t--------")
	for i, r := range rs.Rules() {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			i, r.Name, r.MinFloors, formatArea(r.MinLivingArea), formatArea(r.MaxLivingArea), r.Detached)
	}
	_ = w.Flush()
}

func formatArea(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
