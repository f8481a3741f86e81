package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pointctl/internal/calibration"
	"github.com/xkilldash9x/pointctl/internal/config"
	"github.com/xkilldash9x/pointctl/internal/observability"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Report the quality of the learned calibration state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		logger := observability.GetLogger()
		defer observability.Sync()

		store, err := calibration.OpenStore(cfg.Calibration.Path, logger)
		if err != nil {
			return fmt.Errorf("opening calibration store: %w", err)
		}
		defer store.Close()

		system := calibration.New(cfg, store, logger)
		report := system.Quality()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Calibration store: %s\n", cfg.Calibration.Path)
		fmt.Fprintf(out, "Samples:           %d\n", report.Samples)
		if report.Samples == 0 {
			fmt.Fprintln(out, "No calibration data recorded yet.")
			return nil
		}
		fmt.Fprintf(out, "Overall quality:   %.2f\n", report.Quality)
		fmt.Fprintf(out, "Mean confidence:   %.2f\n", report.MeanConfidence)
		fmt.Fprintf(out, "Mean error:        %.1fpx (stddev %.1f)\n", report.MeanErrorPx, report.ErrorStdDev)
		fmt.Fprintf(out, "Zone coverage:     %.0f%% (%d/%d usable)\n",
			report.Coverage*100, report.ZonesUsable, report.ZonesSeen)
		fmt.Fprintf(out, "Distance buckets:  %d/%d usable\n", report.BucketsUsable, report.BucketsSeen)

		fmt.Fprintln(out, "\nPer-zone detail:")
		for _, z := range report.Zones {
			fmt.Fprintf(out, "  tile (%d,%d): confidence %.2f over %d samples\n",
				z.Zone.X, z.Zone.Y, z.Confidence, z.Samples)
		}
		return nil
	},
}
