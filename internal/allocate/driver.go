package allocate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/census-disagg/internal/model"
)

const defaultWorkers = 4

// Pooler returns the containment pool of a cell. *spatial.Intersector
// implements it.
type Pooler interface {
	Pool(cell *model.Cell) ([]*model.Building, error)
}

// SkippedCell is a cell left out of the run because of a geometry error.
type SkippedCell struct {
	CellID string
	Err    error
}

// Result is the outcome of a Driver run.
type Result struct {
	// Cells holds one result per completed cell, in input order.
	Cells []*CellResult

	// Assignments concatenates the cell assignments in input cell order.
	Assignments []model.Assignment

	Skipped []SkippedCell

	// Shortfall is the study-area total of unresolved counts.
	Shortfall model.Tally

	// Pending counts cells never started because the run was cancelled.
	Pending int
}

// Unresolved returns the study-area sum of unresolved counts.
func (r *Result) Unresolved() int {
	return r.Shortfall.Total()
}

// Driver runs the allocation for every cell of a study area.
type Driver struct {
	rules   *model.RuleSet
	pools   Pooler
	alloc   *Allocator
	workers int
}

// NewDriver creates a Driver. workers bounds the number of cells allocated
// concurrently; values below 1 use the default of 4.
func NewDriver(rules *model.RuleSet, pools Pooler, alloc *Allocator, workers int) *Driver {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Driver{rules: rules, pools: pools, alloc: alloc, workers: workers}
}

// Run allocates all cells. Cells are independent and run in parallel; each
// cell either contributes its full result or nothing. Results are reduced in
// input order once all workers finish, and only then written onto the
// buildings' AssignedType, so the output does not depend on scheduling.
//
// Cells with invalid geometry are skipped and listed in Result.Skipped.
// When ctx is cancelled no new cells start, finished cells are kept and the
// partial Result is returned together with the context error.
func (d *Driver) Run(ctx context.Context, cells []*model.Cell) (*Result, error) {
	log := zap.L().With(zap.String("component", "allocate.driver"))

	results := make([]*CellResult, len(cells))
	skipped := make([]error, len(cells))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for i, cell := range cells {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gCtx.Err() != nil {
				return nil
			}
			pool, err := d.pools.Pool(cell)
			if err != nil {
				if model.IsGeometryError(err) {
					log.Warn("skipping cell with invalid geometry",
						zap.String("cell_id", cell.ID),
						zap.Error(err),
					)
					skipped[i] = err
					return nil
				}
				return eris.Wrapf(err, "allocate: pool for cell %s", cell.ID)
			}

			res := d.alloc.Allocate(cell, pool)
			log.Debug("cell allocated",
				zap.String("cell_id", cell.ID),
				zap.Int("pool", res.PoolSize),
				zap.Int("assigned", len(res.Assignments)),
				zap.Int("unresolved", res.Shortfall.Total()),
			)
			results[i] = res
			return nil
		})
	}
	waitErr := g.Wait()

	out := d.reduce(cells, results, skipped)

	log.Info("allocation finished",
		zap.Int("cells", len(out.Cells)),
		zap.Int("skipped", len(out.Skipped)),
		zap.Int("pending", out.Pending),
		zap.Int("assignments", len(out.Assignments)),
		zap.Int("unresolved", out.Unresolved()),
	)

	if waitErr != nil {
		return out, waitErr
	}
	if err := ctx.Err(); err != nil {
		return out, eris.Wrap(err, "allocate: run cancelled")
	}
	return out, nil
}

func (d *Driver) reduce(cells []*model.Cell, results []*CellResult, skipped []error) *Result {
	out := &Result{Shortfall: model.NewTally(d.rules.Len())}
	for i, res := range results {
		switch {
		case res != nil:
			res.commit()
			out.Cells = append(out.Cells, res)
			out.Assignments = append(out.Assignments, res.Assignments...)
			out.Shortfall = Accumulate(out.Shortfall, res.Shortfall)
		case skipped[i] != nil:
			out.Skipped = append(out.Skipped, SkippedCell{CellID: cells[i].ID, Err: skipped[i]})
		default:
			out.Pending++
		}
	}
	return out
}
