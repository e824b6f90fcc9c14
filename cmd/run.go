package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/census-disagg/internal/allocate"
	"github.com/sells-group/census-disagg/internal/model"
	"github.com/sells-group/census-disagg/internal/report"
	"github.com/sells-group/census-disagg/internal/sink"
	"github.com/sells-group/census-disagg/internal/spatial"
	"github.com/sells-group/census-disagg/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Allocate census cell counts to buildings",
	Long:  "Loads the rule table, cells and buildings, allocates every cell, writes the assignments and prints the shortfall diagnostics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := applyRunFlags(cmd); err != nil {
			return err
		}
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		st, pool, err := initStore(ctx)
		if err != nil {
			return err
		}
		if pool != nil {
			defer pool.Close()
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		return runAllocation(ctx, st, pool, os.Stdout)
	},
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("cells", &cfg.Input.Cells)
	str("buildings", &cfg.Input.Buildings)
	str("rules", &cfg.Input.Rules)
	str("out", &cfg.Output.Assignments)
	str("report", &cfg.Output.Report)
	str("surplus-order", &cfg.Allocate.SurplusOrder)

	if f.Changed("workers") {
		cfg.Allocate.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("seed") {
		cfg.Allocate.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("only") {
		only, err := f.GetStringSlice("only")
		if err != nil {
			return eris.Wrap(err, "read --only")
		}
		cfg.Allocate.RuleFilter = only
	}
	return nil
}

// runAllocation performs one run with the package config. st and pool may
// be nil. A cancelled run still writes the cells it finished.
func runAllocation(ctx context.Context, st store.Store, pool *pgxpool.Pool, stdout io.Writer) error {
	log := zap.L().With(zap.String("component", "cmd.run"))

	in, err := loadInputs(cfg)
	if err != nil {
		return err
	}

	sel, err := allocate.NewSelector(allocate.SurplusOrder(cfg.Allocate.SurplusOrder), cfg.Allocate.Seed)
	if err != nil {
		return err
	}
	alloc := allocate.NewAllocator(in.rules,
		allocate.WithSelector(sel),
		allocate.WithSurplusHook(logSurplus(log)),
	)
	x := spatial.NewIntersector(in.buildings)
	drv := allocate.NewDriver(in.rules, x, alloc, cfg.Allocate.Workers)

	runID := uuid.New().String()
	if st != nil {
		run, err := st.CreateRun(ctx, model.RunConfig{
			Cells:        cfg.Input.Cells,
			Buildings:    cfg.Input.Buildings,
			Rules:        cfg.Input.Rules,
			SurplusOrder: cfg.Allocate.SurplusOrder,
			Seed:         cfg.Allocate.Seed,
			Workers:      cfg.Allocate.Workers,
			RuleNames:    in.rules.Names(),
		})
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		runID = run.ID
	}
	log = log.With(zap.String("run_id", runID))

	res, runErr := drv.Run(ctx, in.cells)
	status := model.RunStatusComplete
	switch {
	case runErr != nil && ctx.Err() != nil:
		status = model.RunStatusCancelled
		log.Warn("run cancelled, writing finished cells", zap.Int("pending", res.Pending))
	case runErr != nil:
		status = model.RunStatusFailed
	}

	// Outputs and bookkeeping must outlive a cancelled run context.
	outCtx := context.WithoutCancel(ctx)

	rep := report.Build(in.rules, in.cells, res, x.Skipped())
	if status != model.RunStatusFailed {
		if err := writeOutputs(outCtx, runID, res, in.buildings, rep, pool); err != nil {
			status, runErr = model.RunStatusFailed, err
		}
	}

	if st != nil {
		if err := st.FinishRun(outCtx, runID, status, rep.Summary(), runErr); err != nil {
			log.Error("failed to record run", zap.Error(err))
		}
	}

	if err := rep.WriteText(stdout); err != nil {
		return eris.Wrap(err, "print report")
	}
	log.Info("run finished",
		zap.String("status", string(status)),
		zap.Int("assignments", len(res.Assignments)),
		zap.Int("unresolved", res.Unresolved()),
	)
	return runErr
}

func writeOutputs(ctx context.Context, runID string, res *allocate.Result, buildings []*model.Building, rep *report.Report, pool *pgxpool.Pool) error {
	if cfg.Output.Assignments != "" {
		if err := sink.WriteCSV(cfg.Output.Assignments, res.Assignments); err != nil {
			return err
		}
	}
	if cfg.Output.Report != "" {
		if err := rep.WriteXLSX(cfg.Output.Report); err != nil {
			return err
		}
	}
	if pool != nil {
		pg := sink.NewPostgres(pool, sink.WithSRID(cfg.Output.SRID), sink.WithBatchSize(cfg.Output.BatchSize))
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		if _, err := pg.Write(ctx, runID, res.Assignments, buildings); err != nil {
			return err
		}
	}
	return nil
}

func logSurplus(log *zap.Logger) allocate.SurplusHook {
	return func(cellID, rule string, discardedIDs []string) {
		log.Debug("surplus buildings left eligible",
			zap.String("cell_id", cellID),
			zap.String("rule", rule),
			zap.Strings("building_ids", discardedIDs),
		)
	}
}

func init() {
	runCmd.Flags().String("cells", "", "census cell dataset (shapefile, zip, GeoJSON or directory)")
	runCmd.Flags().String("buildings", "", "building dataset (shapefile, zip, GeoJSON or directory)")
	runCmd.Flags().String("rules", "", "building type dictionary (csv, xlsx or yaml)")
	runCmd.Flags().String("out", "", "assignment CSV path")
	runCmd.Flags().String("report", "", "diagnostics workbook path (xlsx)")
	runCmd.Flags().Int("workers", 4, "cells allocated concurrently")
	runCmd.Flags().String("surplus-order", "id", "surplus selection order (id, input, random)")
	runCmd.Flags().Uint64("seed", 1, "seed for the random surplus order")
	runCmd.Flags().StringSlice("only", nil, "restrict the run to these rules")
	rootCmd.AddCommand(runCmd)
}
