package main

import (
	"context"
	"errors"
	"fmt"

	decoder "github.com/psi46/hrdecoder_go/pkg"
	"github.com/psi46/hrdecoder_go/pkg/writer"
	"github.com/spf13/cobra"
)

func newEfficiencyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "efficiency [dump...]",
		Short: "Pixel efficiency and background rate from calibration scans",
		Long: "Every dump holds one column-major calibration scan of all pixels with " +
			"the configured number of triggers per pixel. Each dump is one pass.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEfficiency(cmd.Context(), inputFiles(args))
		},
	}
}

func runEfficiency(ctx context.Context, files []string) error {
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

	for pass, filename := range files {
		counter := decoder.NewEventCounter()
		efficiency := decoder.NewEfficiencyAggregator(nroc, configuration.Triggers)
		sinks := []decoder.Sink{counter, efficiency}

		var pulseHeight *decoder.PulseHeightAggregator
		if configuration.AnalogReadout {
			pulseHeight = decoder.NewPulseHeightAggregator(nroc)
			if configuration.CalibrationDir != "" {
				// falls back to raw ADC codes, already logged
				_ = pulseHeight.LoadCalibration(nroc, configuration.CalibrationDir)
			}
			sinks = append(sinks, pulseHeight)
		}

		summary, err := decodeDump(filename, schedule, sinks...)
		if err != nil {
			logger.Error(fmt.Sprintf("discarding pass %d: %v", pass, err))
			continue
		}
		reportSummary(summary)
		out.recordPass(ctx, "efficiency", pass, summary)

		snapshot := efficiency.Snapshot()
		for roc := decoder.ModuleIndex; roc < nroc; roc++ {
			label := rocLabel(roc)
			out.recordMeasurement(ctx, fmt.Sprintf("efficiency_%s_%d", label, pass), decoder.OverallEfficiency(snapshot, roc, nil), "%")
			out.recordMeasurement(ctx, fmt.Sprintf("core_efficiency_%s_%d", label, pass), decoder.CoreEfficiency(snapshot, roc, nil), "%")
			out.recordMeasurement(ctx, fmt.Sprintf("background_%s_%d", label, pass), decoder.BackgroundRate(snapshot, roc, nil), "MHz/cm2")
		}

		group := fmt.Sprintf("Efficiency_%d", pass)
		out.write(func(w *writer.Writer) error {
			if pulseHeight != nil {
				return errors.Join(w.WriteEfficiency(group, snapshot), w.WritePulseHeight(group, pulseHeight.Snapshot()))
			}
			return w.WriteEfficiency(group, snapshot)
		})
	}
	return nil
}
