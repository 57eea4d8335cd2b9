package main

import (
	"fmt"
	"image/png"
	"io"
	"os"

	"github.com/spf13/cobra"

	"walk-ca/internal/app"
	"walk-ca/internal/driver"
	"walk-ca/internal/render"
	"walk-ca/internal/series"
	"walk-ca/internal/walk"
)

func newRunCmd(cfg *app.Config) *cobra.Command {
	var (
		steps       int
		csvPath     string
		pngPath     string
		pngScale    int
		reportEvery int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and report coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 0 {
				return fmt.Errorf("--steps must not be negative, got %d", steps)
			}
			out := cmd.OutOrStdout()
			opts := []driver.Option{driver.WithLogger(newLogger(cmd, cfg))}
			if reportEvery > 0 {
				opts = append(opts, driver.WithObserver(driver.ObserverFuncs{
					Step: func(res walk.StepResult, p series.Point) {
						if res.Steps%reportEvery == 0 {
							fmt.Fprintf(out, "step=%d visited=%d coverage=%.2f%%\n", p.Step, res.Visited, p.Percentage)
						}
					},
				}))
			}
			drv := driver.New(cfg.DriverConfig(), opts...)

			if _, err := drv.Advance(steps); err != nil {
				return err
			}
			st := drv.State()
			fmt.Fprintf(out, "size=%d steps=%d visited=%d/%d coverage=%.2f%% seed=%d\n",
				st.Size, st.Steps, st.Visited, st.Total, drv.Last().Percentage, drv.Seed())

			if csvPath != "" {
				if err := writeFile(csvPath, drv.WriteCSV); err != nil {
					return err
				}
			}
			if pngPath != "" {
				img := render.GridImage(drv.Cells(), st.Size, st.Size, walk.Palette(), pngScale)
				if img == nil {
					return fmt.Errorf("render snapshot: grid %dx%d does not match cell buffer", st.Size, st.Size)
				}
				if err := writeFile(pngPath, func(w io.Writer) error { return png.Encode(w, img) }); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1000, "number of steps to simulate")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write the step,percentage series to this file")
	cmd.Flags().StringVar(&pngPath, "png", "", "write a snapshot of the final grid to this file")
	cmd.Flags().IntVar(&pngScale, "png-scale", 4, "pixels per cell in the PNG snapshot")
	cmd.Flags().IntVar(&reportEvery, "report-every", 0, "print coverage every N steps (0 disables)")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
