package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"walk-ca/internal/app"
	"walk-ca/internal/series"
	"walk-ca/internal/walk"
)

type sweepOptions struct {
	sizes    []int
	steps    int
	runs     int
	workers  int
	baseSeed int64
}

// sweepRun is the outcome of one seeded walk.
type sweepRun struct {
	size     int
	seed     int64
	visited  int
	coverage float64
	// coveredAt is the step on which the last cell was reached, or 0.
	coveredAt int
}

// sweepRow aggregates all runs for one grid size.
type sweepRow struct {
	Size         int
	Runs         int
	MeanCoverage float64
	MinCoverage  float64
	MaxCoverage  float64
	// Covered counts runs that visited every cell.
	Covered       int
	MeanCoveredAt float64
}

func newSweepCmd(cfg *app.Config) *cobra.Command {
	opts := sweepOptions{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run many seeded walks per grid size and summarize coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.baseSeed = cfg.Seed
			if opts.baseSeed == 0 {
				opts.baseSeed = 1
			}
			log := newLogger(cmd, cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sweeping %d sizes x %d runs (%d workers, %d steps)\n",
				len(opts.sizes), opts.runs, opts.workers, opts.steps)

			start := time.Now()
			rows, err := runSweep(cmd.Context(), opts, log)
			if err != nil {
				return err
			}
			printSweep(out, rows)
			fmt.Fprintf(out, "\nelapsed %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&opts.sizes, "sizes", []int{10, 20, 50}, "grid sizes to sweep")
	cmd.Flags().IntVar(&opts.steps, "steps", 2000, "steps per run")
	cmd.Flags().IntVar(&opts.runs, "runs", 8, "seeded runs per size")
	cmd.Flags().IntVar(&opts.workers, "workers", runtime.NumCPU(), "number of parallel workers")
	return cmd
}

// runSweep runs opts.runs walks for every size, seeded baseSeed, baseSeed+1,
// ... per size, and returns one row per distinct normalized size in ascending
// order.
func runSweep(ctx context.Context, opts sweepOptions, log *slog.Logger) ([]sweepRow, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.runs <= 0 {
		return nil, fmt.Errorf("--runs must be positive, got %d", opts.runs)
	}
	if opts.steps < 0 {
		return nil, fmt.Errorf("--steps must not be negative, got %d", opts.steps)
	}
	if opts.workers <= 0 {
		opts.workers = 1
	}

	seen := make(map[int]bool)
	var sizes []int
	for _, s := range opts.sizes {
		n := walk.NormalizeSize(s)
		if !seen[n] {
			seen[n] = true
			sizes = append(sizes, n)
		}
	}
	sort.Ints(sizes)

	results := make([]sweepRun, len(sizes)*opts.runs)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)
	for i, size := range sizes {
		for r := 0; r < opts.runs; r++ {
			idx := i*opts.runs + r
			seed := opts.baseSeed + int64(r)
			g.Go(func() error {
				res, err := runWalk(ctx, size, seed, opts.steps)
				if err != nil {
					return err
				}
				results[idx] = res
				log.Debug("sweep run finished", "size", size, "seed", seed, "coverage", res.coverage)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]sweepRow, 0, len(sizes))
	for i, size := range sizes {
		rows = append(rows, summarize(size, results[i*opts.runs:(i+1)*opts.runs]))
	}
	return rows, nil
}

func runWalk(ctx context.Context, size int, seed int64, steps int) (sweepRun, error) {
	e := walk.New(size, walk.WithSeed(seed))
	run := sweepRun{size: size, seed: seed}
	for i := 0; i < steps; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return run, err
			}
		}
		res := e.Step()
		if run.coveredAt == 0 && res.Visited == res.Total {
			run.coveredAt = res.Steps
		}
	}
	run.visited = e.Visited()
	run.coverage = series.Percentage(run.visited, e.Total())
	return run, nil
}

func summarize(size int, runs []sweepRun) sweepRow {
	row := sweepRow{Size: size, Runs: len(runs)}
	if len(runs) == 0 {
		return row
	}
	row.MinCoverage = runs[0].coverage
	row.MaxCoverage = runs[0].coverage
	var sum, coveredSum float64
	for _, r := range runs {
		sum += r.coverage
		row.MinCoverage = min(row.MinCoverage, r.coverage)
		row.MaxCoverage = max(row.MaxCoverage, r.coverage)
		if r.coveredAt > 0 {
			row.Covered++
			coveredSum += float64(r.coveredAt)
		}
	}
	row.MeanCoverage = sum / float64(len(runs))
	if row.Covered > 0 {
		row.MeanCoveredAt = coveredSum / float64(row.Covered)
	}
	return row
}

func printSweep(w io.Writer, rows []sweepRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "size\truns\tmean%\tmin%\tmax%\tcovered\tmean cover step")
	for _, r := range rows {
		coverStep := "-"
		if r.Covered > 0 {
			coverStep = fmt.Sprintf("%.0f", r.MeanCoveredAt)
		}
		fmt.Fprintf(tw, "%d\t%d\t%.2f\t%.2f\t%.2f\t%d/%d\t%s\n",
			r.Size, r.Runs, r.MeanCoverage, r.MinCoverage, r.MaxCoverage, r.Covered, r.Runs, coverStep)
	}
	tw.Flush()
}
