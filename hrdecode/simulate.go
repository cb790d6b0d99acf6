package main

import (
	"errors"
	"fmt"
	"math/rand/v2"

	decoder "github.com/psi46/hrdecoder_go/pkg"
	"github.com/spf13/cobra"
)

type simulation struct {
	output     string
	efficiency float64
	noise      float64
	phase      int
	seed       uint64
}

func newSimulateCommand() *cobra.Command {
	var sim simulation
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a RAM dump of a simulated calibration scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(sim)
		},
	}
	cmd.Flags().StringVarP(&sim.output, "output", "o", "scan.dat", "Dump file to write")
	cmd.Flags().Float64Var(&sim.efficiency, "efficiency", 1, "Probability that a calibration trigger gives a hit")
	cmd.Flags().Float64Var(&sim.noise, "noise", 0, "Mean number of background hits per event")
	cmd.Flags().IntVar(&sim.phase, "phase", -1, "Deserializer phase, negative for the default")
	cmd.Flags().Uint64Var(&sim.seed, "seed", 1, "Random seed")
	return cmd
}

func runSimulation(sim simulation) error {
	geometry := configuration.Geometry
	schedule, err := decoder.NewScanSchedule(decoder.ColumnMajorScan(geometry.NRoc, nil), configuration.Triggers)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(sim.seed, sim.seed))
	encoder := decoder.NewEventEncoder(&geometry)
	buffer := decoder.NewMemoryBuffer(nil)

	trigger := func() error {
		var words []decoder.RawWord
		var hits []decoder.DecodedHit
		for n := 0; n < schedule.Events(); n++ {
			armed, _ := schedule.ArmedPixel(n)
			hits = simulateEvent(hits[:0], rng, geometry, armed, sim)
			words = encoder.Append(words[:0], hits)
			if err := buffer.Deposit(words...); err != nil {
				return err
			}
		}
		return nil
	}

	opts := decoder.AcquireOptions{CapacityBytes: configuration.CapacityBytes, DeserPhase: sim.phase}
	acquisition, err := decoder.Acquire(buffer, opts, trigger)
	if err != nil {
		return err
	}
	source := acquisition.Source()
	words := make([]decoder.RawWord, 0, source.Len())
	for word, ok := source.Next(); ok; word, ok = source.Next() {
		words = append(words, word)
	}
	if err := errors.Join(source.Err(), acquisition.Close()); err != nil {
		return err
	}

	if err := decoder.WriteDump(sim.output, words); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Wrote %d events (%d words) to %s", schedule.Events(), len(words), sim.output), "simulate")
	return nil
}

// simulateEvent appends the hits of one trigger: the armed pixel on every
// ROC with the given efficiency plus Poisson distributed background.
func simulateEvent(hits []decoder.DecodedHit, rng *rand.Rand, geometry decoder.Geometry, armed decoder.Pixel, sim simulation) []decoder.DecodedHit {
	for roc := 0; roc < geometry.NRoc; roc++ {
		if rng.Float64() < sim.efficiency {
			hits = append(hits, decoder.DecodedHit{
				Roc:         roc,
				Column:      armed.Column,
				Row:         armed.Row,
				PulseHeight: 1000 + rng.IntN(200),
			})
		}
	}
	for n := poisson(rng, sim.noise); n > 0; n-- {
		hit := decoder.DecodedHit{
			Roc:         rng.IntN(geometry.NRoc),
			Column:      rng.IntN(decoder.ROC_NUMCOLS),
			Row:         rng.IntN(decoder.ROC_NUMROWS),
			PulseHeight: 200 + rng.IntN(600),
		}
		if hit.Pixel() == armed {
			continue
		}
		hits = append(hits, hit)
	}
	return hits
}

func poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	n := 0
	for sum := rng.ExpFloat64() / mean; sum < 1; sum += rng.ExpFloat64() / mean {
		n++
	}
	return n
}
