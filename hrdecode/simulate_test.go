package main

import (
	"math/rand/v2"
	"path/filepath"
	"testing"

	decoder "github.com/psi46/hrdecoder_go/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfiguration(t *testing.T, config decoder.Configuration) {
	t.Helper()
	saved := configuration
	t.Cleanup(func() { configuration = saved })
	configuration = config
}

func TestSimulatedScanDecodes(t *testing.T) {
	useConfiguration(t, decoder.Configuration{
		Geometry:      decoder.Geometry{NRoc: 2},
		Triggers:      3,
		CapacityBytes: 1 << 24,
		NoDB:          true,
	})
	dump := filepath.Join(t.TempDir(), "scan.dat")
	require.NoError(t, runSimulation(simulation{output: dump, efficiency: 1, phase: 2, seed: 7}))

	schedule, err := decoder.NewScanSchedule(decoder.ColumnMajorScan(2, nil), 3)
	require.NoError(t, err)
	efficiency := decoder.NewEfficiencyAggregator(2, 3)
	counter := decoder.NewEventCounter()
	summary, err := decodeDump(dump, schedule, counter, efficiency)
	require.NoError(t, err)

	assert.Equal(t, schedule.Events(), summary.Events)
	assert.Zero(t, summary.DecodingErrors)
	assert.Zero(t, summary.LostTriggers)
	assert.Equal(t, schedule.Events(), counter.Snapshot().DataCounter)
	assert.InDelta(t, 100, decoder.OverallEfficiency(efficiency.Snapshot(), decoder.ModuleIndex, nil).Value, 1e-9)
	assert.Zero(t, decoder.BackgroundRate(efficiency.Snapshot(), decoder.ModuleIndex, nil).Value)
}

func TestSimulatedNoiseIsBackground(t *testing.T) {
	useConfiguration(t, decoder.Configuration{
		Geometry:      decoder.Geometry{NRoc: 1},
		Triggers:      2,
		CapacityBytes: 1 << 24,
	})
	dump := filepath.Join(t.TempDir(), "noisy.dat")
	require.NoError(t, runSimulation(simulation{output: dump, efficiency: 0.5, noise: 0.2, phase: -1, seed: 11}))

	schedule, err := decoder.NewScanSchedule(decoder.ColumnMajorScan(1, nil), 2)
	require.NoError(t, err)
	efficiency := decoder.NewEfficiencyAggregator(1, 2)
	_, err = decodeDump(dump, schedule, efficiency)
	require.NoError(t, err)

	s := efficiency.Snapshot()
	overall := decoder.OverallEfficiency(s, 0, nil).Value
	assert.Greater(t, overall, 40.0)
	assert.Less(t, overall, 60.0)
	assert.Positive(t, s.ModuleBackground.Sum())
}

func TestDecodeDumpMissingFile(t *testing.T) {
	useConfiguration(t, decoder.Configuration{Geometry: decoder.Geometry{NRoc: 1}, CapacityBytes: 1 << 20})
	_, err := decodeDump(filepath.Join(t.TempDir(), "missing.dat"), nil, decoder.NewEventCounter())
	var openErr *decoder.ErrOpenFile
	assert.ErrorAs(t, err, &openErr)
}

type failingSink struct{ seen int }

func (s *failingSink) Consume(decoder.DecodeOutcome) {
	s.seen++
	if s.seen == 100 {
		panic("sink failed")
	}
}

func (s *failingSink) Finalize() {}

func TestDecodeDumpPanicDiscardsPass(t *testing.T) {
	useConfiguration(t, decoder.Configuration{
		Geometry:      decoder.Geometry{NRoc: 1},
		Triggers:      1,
		CapacityBytes: 1 << 24,
	})
	dump := filepath.Join(t.TempDir(), "scan.dat")
	require.NoError(t, runSimulation(simulation{output: dump, efficiency: 1, phase: -1, seed: 5}))

	counter := decoder.NewEventCounter()
	hitMap := decoder.NewHitMapAggregator(1, 1)
	summary, err := decodeDump(dump, nil, counter, hitMap, &failingSink{})
	assert.ErrorContains(t, err, "recovered from panic")
	assert.Zero(t, summary.Events)
	assert.Zero(t, counter.DataCounter)

	summary, err = decodeDump(dump, nil, counter, hitMap)
	require.NoError(t, err)
	events := decoder.ROC_NUMCOLS * decoder.ROC_NUMROWS
	assert.Equal(t, events, summary.Events)
	assert.Equal(t, events, counter.Snapshot().DataCounter)
	assert.Equal(t, events, hitMap.Snapshot().Events)
	assert.Equal(t, events, hitMap.Snapshot().HitMap(0).Sum())
}

func TestRunEfficiencyRecordsRunLog(t *testing.T) {
	dir := t.TempDir()
	useConfiguration(t, decoder.Configuration{
		Geometry:      decoder.Geometry{NRoc: 1},
		Triggers:      2,
		CapacityBytes: 1 << 24,
		DBDriver:      "sqlite",
		DBName:        filepath.Join(dir, "runlog.db"),
	})
	dump := filepath.Join(dir, "scan.dat")
	require.NoError(t, runSimulation(simulation{output: dump, efficiency: 1, phase: -1, seed: 3}))

	require.NoError(t, runEfficiency(t.Context(), []string{dump, filepath.Join(dir, "missing.dat")}))
	assert.Error(t, runEfficiency(t.Context(), nil))
}

func TestPoisson(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	assert.Zero(t, poisson(rng, 0))

	total := 0
	for range 10000 {
		total += poisson(rng, 2)
	}
	assert.InDelta(t, 2, float64(total)/10000, 0.1)
}
