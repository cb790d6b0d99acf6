package main

import (
	"context"
	"errors"
	"fmt"

	decoder "github.com/psi46/hrdecoder_go/pkg"
	"github.com/psi46/hrdecoder_go/pkg/writer"
	"github.com/spf13/cobra"
)

func newPixelMapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pixelmap [dump...]",
		Short: "Hit maps and hit rate from source or beam data",
		Long: "Every dump is one repetition of the configured acquisition time. " +
			"Maps accumulate over all repetitions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPixelMap(cmd.Context(), inputFiles(args))
		},
	}
}

func runPixelMap(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return errors.New("no input files")
	}
	nroc := configuration.NRoc
	repetitions := max(configuration.Repetitions, len(files))

	hitMap := decoder.NewHitMapAggregator(nroc, configuration.AcquisitionTime*float64(repetitions))
	binSeconds := configuration.TimeBinSeconds
	if binSeconds <= 0 {
		binSeconds = configuration.AcquisitionTime * float64(repetitions) / decoder.DEFAULT_TIME_BINS
	}
	hitMap.SetTiming(configuration.TriggerPeriod, binSeconds)
	counter := decoder.NewEventCounter()
	multiplicity := decoder.NewMultiplicityAggregator(nroc)
	sinks := []decoder.Sink{counter, hitMap, multiplicity}

	var pulseHeight *decoder.PulseHeightAggregator
	if configuration.AnalogReadout {
		pulseHeight = decoder.NewPulseHeightAggregator(nroc)
		if configuration.CalibrationDir != "" {
			_ = pulseHeight.LoadCalibration(nroc, configuration.CalibrationDir)
		}
		sinks = append(sinks, pulseHeight)
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

	passes := 0
	for pass, filename := range files {
		summary, err := decodeDump(filename, nil, sinks...)
		if err != nil {
			logger.Error(fmt.Sprintf("discarding pass %d: %v", pass, err))
			continue
		}
		passes++
		reportSummary(summary)
		out.recordPass(ctx, "pixelmap", pass, summary)
	}
	if passes == 0 {
		return errors.New("no pass could be decoded")
	}

	snapshot := hitMap.Snapshot()
	counts := counter.Snapshot()
	logger.Info(fmt.Sprintf("Good events: %d, ROC sequence errors: %d", counts.DataCounter, counts.RocSequenceErrorCounter), "result")
	out.recordMeasurement(ctx, "hit_rate_module", decoder.HitRate(snapshot, counts, configuration.ClockStretch, nil), "MHz/cm2")
	for roc := 0; roc < nroc; roc++ {
		only := decoder.NewTestRange()
		for other := 0; other < decoder.MAX_ROCS; other++ {
			if other != roc {
				only.ExcludeRoc(other)
			}
		}
		out.recordMeasurement(ctx, "hit_rate_"+rocLabel(roc), decoder.HitRate(snapshot, counts, configuration.ClockStretch, only), "MHz/cm2")
		out.recordMeasurement(ctx, "roc_rate_"+rocLabel(roc), decoder.RocHitRate(snapshot.HitMap(roc).Sum(), counts.DataCounter), "MHz/cm2")
	}

	out.write(func(w *writer.Writer) error {
		errs := []error{
			w.WriteHitMap("HitMap", snapshot),
			w.WriteMultiplicity("HitMap", multiplicity.Snapshot()),
		}
		if pulseHeight != nil {
			errs = append(errs, w.WritePulseHeight("HitMap", pulseHeight.Snapshot()))
		}
		return errors.Join(errs...)
	})
	return nil
}
