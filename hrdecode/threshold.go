package main

import (
	"context"
	"errors"
	"fmt"

	decoder "github.com/psi46/hrdecoder_go/pkg"
	"github.com/psi46/hrdecoder_go/pkg/writer"
	"github.com/spf13/cobra"
)

func newThresholdCommand() *cobra.Command {
	var vcalStart, vcalStep, minHits int
	cmd := &cobra.Command{
		Use:   "threshold [dump...]",
		Short: "Rough per pixel VCal threshold from a rising VCal scan",
		Long: "Every dump is one calibration scan at a VCal value, starting at " +
			"--vcal-start and increasing by --vcal-step from one dump to the next.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThreshold(cmd.Context(), inputFiles(args), vcalStart, vcalStep, minHits)
		},
	}
	cmd.Flags().IntVar(&vcalStart, "vcal-start", 0, "VCal of the first dump")
	cmd.Flags().IntVar(&vcalStep, "vcal-step", 4, "VCal increase between dumps")
	cmd.Flags().IntVar(&minHits, "min-hits", 3, "Hits out of the triggers needed to count as above threshold")
	return cmd
}

func runThreshold(ctx context.Context, files []string, vcalStart, vcalStep, minHits int) error {
	if len(files) == 0 {
		return errors.New("no input files")
	}
	nroc := configuration.NRoc
	schedule, err := decoder.NewScanSchedule(decoder.ColumnMajorScan(nroc, nil), configuration.Triggers)
	if err != nil {
		return err
	}

	out, err := openOutputs()
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Error(err.Error())
		}
	}()

	thresholds := decoder.NewThresholdMap(nroc)
	for pass, filename := range files {
		vcal := vcalStart + pass*vcalStep
		efficiency := decoder.NewEfficiencyAggregator(nroc, configuration.Triggers)
		summary, err := decodeDump(filename, schedule, efficiency)
		if err != nil {
			logger.Error(fmt.Sprintf("discarding pass %d (vcal %d): %v", pass, vcal, err))
			continue
		}
		out.recordPass(ctx, "threshold", pass, summary)
		found := thresholds.Update(efficiency.Snapshot(), vcal, minHits)
		if VerbosityLevel > 0 {
			logger.Info(fmt.Sprintf("VCal %d: %d pixels above threshold", vcal, found), "threshold")
		}
	}

	missing := thresholds.Missing(nil)
	if missing > 0 {
		logger.Error(fmt.Sprintf("%d pixels without threshold in the scanned range", missing))
	}
	logger.Info(fmt.Sprintf("Pixels without threshold: %d", missing), "result")

	out.write(func(w *writer.Writer) error {
		return w.WriteThresholds("Threshold", thresholds, nroc)
	})
	return nil
}
