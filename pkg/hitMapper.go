package decoder

import (
	"fmt"
	"math"
)

const (
	// 25 ns LHC bunch crossing clock
	CLOCK_PERIOD_SECONDS = 25e-9

	DEFAULT_TRIGGER_PERIOD = 1280
	DEFAULT_TIME_BINS      = 100
)

// HitMapAggregator fills hit maps and hits-vs-time histograms. It keeps
// accumulating over several passes (repetitions) until Reset is called.
type HitMapAggregator struct {
	geometry     Geometry
	duration     float64
	periodClocks int
	binSeconds   float64
	timeBins     int

	hits       *PixelArena[int]
	padded     *Map2D[int]
	dcolVsTime *Map2D[int]
	rocVsTime  *Map2D[int]
	events     int
	padScratch []Pixel

	snapshot *HitMapSnapshot
}

// NewHitMapAggregator prepares maps for nroc ROCs over a run of
// durationSeconds, split into DEFAULT_TIME_BINS time bins.
func NewHitMapAggregator(nroc int, durationSeconds float64) *HitMapAggregator {
	a := &HitMapAggregator{
		geometry:   Geometry{NRoc: nroc},
		duration:   durationSeconds,
		hits:       NewPixelArena[int]("hitmap", "Hit map", nroc),
		padScratch: make([]Pixel, 0, 4),
	}
	cols, rows := a.geometry.PaddedModuleSize()
	a.padded = NewMap2D[int]("hitmap_padded", "Hit map (double sized edges)", cols, rows)

	binSeconds := 0.0
	if durationSeconds > 0 {
		binSeconds = durationSeconds / DEFAULT_TIME_BINS
	}
	a.SetTiming(DEFAULT_TRIGGER_PERIOD, binSeconds)
	return a
}

// SetTiming sets the trigger period in clock cycles and the width of the
// time bins. It clears the time histograms.
func (a *HitMapAggregator) SetTiming(triggerPeriodClocks int, binSeconds float64) {
	if triggerPeriodClocks <= 0 {
		triggerPeriodClocks = DEFAULT_TRIGGER_PERIOD
	}
	a.periodClocks = triggerPeriodClocks
	a.binSeconds = binSeconds
	a.timeBins = 1
	if binSeconds > 0 && a.duration > 0 {
		a.timeBins = max(1, int(math.Ceil(a.duration/binSeconds-1e-9)))
	}

	nroc := a.geometry.NRoc
	a.dcolVsTime = NewMap2D[int]("hits_vs_time_dcol", "Hits vs time per double column", a.timeBins, nroc*ROC_NUMDCOLS)
	a.rocVsTime = NewMap2D[int]("hits_vs_time_roc", "Hits vs time per ROC", a.timeBins, nroc)
}

func (a *HitMapAggregator) timeBin() int {
	if a.binSeconds <= 0 {
		return 0
	}
	t := float64(a.events) * float64(a.periodClocks) * CLOCK_PERIOD_SECONDS
	return min(int(t/a.binSeconds), a.timeBins-1)
}

func (a *HitMapAggregator) Consume(outcome DecodeOutcome) {
	bin := a.timeBin()
	a.events++
	if !outcome.OK() {
		return
	}

	for _, hit := range outcome.Hits {
		if !a.geometry.Contains(hit.Roc, hit.Column, hit.Row) {
			continue
		}
		a.hits.Roc(hit.Roc).Fill(hit.Column, hit.Row, 1)

		a.padScratch = a.geometry.PaddedModuleBins(a.padScratch[:0], hit.Roc, hit.Column, hit.Row)
		for _, bin := range a.padScratch {
			a.padded.Fill(bin.Column, bin.Row, 1)
		}

		a.dcolVsTime.Fill(bin, hit.Roc*ROC_NUMDCOLS+DoubleColumn(hit.Column), 1)
		a.rocVsTime.Fill(bin, hit.Roc, 1)
	}
}

func (a *HitMapAggregator) Finalize() {
	nroc := a.geometry.NRoc
	snapshot := &HitMapSnapshot{
		NRoc:             nroc,
		Events:           a.events,
		Duration:         a.duration,
		Rocs:             a.hits.Clone(),
		Padded:           a.padded.Clone(),
		HitsVsTimeDcol:   a.dcolVsTime.Clone(),
		HitsVsTimeRoc:    a.rocVsTime.Clone(),
		DoubleColumns:    make([]*Dist1D, nroc),
		HitDistributions: make([]*Dist1D, nroc),
	}
	snapshot.Module = moduleMap("hitmap", "Hit map", &a.geometry, snapshot.Rocs)

	for roc, m := range snapshot.Rocs {
		dcols := NewDist1D(fmt.Sprintf("dcolmap_C%d", roc), fmt.Sprintf("Hits per double column C%d", roc), ROC_NUMDCOLS, 0, 1)
		for col := 0; col < ROC_NUMCOLS; col++ {
			for row := 0; row < ROC_NUMROWS; row++ {
				n := m.At(col, row)
				dcols.Counts[DoubleColumn(col)] += int64(n)
				dcols.Entries += int64(n)
			}
		}
		snapshot.DoubleColumns[roc] = dcols

		dist := NewDist1D(fmt.Sprintf("hitdist_C%d", roc), fmt.Sprintf("Hits per pixel C%d", roc), m.Max()+1, 0, 1)
		for _, n := range m.Data {
			dist.Fill(float64(n))
		}
		snapshot.HitDistributions[roc] = dist
	}

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Hit map: %d events, %d hits", a.events, snapshot.Module.Sum())
		logger.Info(message, "hitMapper")
	}
	a.snapshot = snapshot
}

func (a *HitMapAggregator) Snapshot() *HitMapSnapshot {
	return a.snapshot.Clone()
}

// Checkpoint saves the accumulated maps and the event clock. Calling the
// returned function goes back to them, dropping anything consumed since.
func (a *HitMapAggregator) Checkpoint() func() {
	hits, padded, dcolVsTime, rocVsTime := a.hits, a.padded, a.dcolVsTime, a.rocVsTime
	events, snapshot := a.events, a.snapshot
	restore := restoreAll([]func(){
		hits.checkpoint(),
		padded.checkpoint(),
		dcolVsTime.checkpoint(),
		rocVsTime.checkpoint(),
	})
	return func() {
		restore()
		a.hits, a.padded, a.dcolVsTime, a.rocVsTime = hits, padded, dcolVsTime, rocVsTime
		a.events = events
		a.snapshot = snapshot
	}
}

// Reset drops everything accumulated so far, including the event clock.
func (a *HitMapAggregator) Reset() {
	a.hits.Reset()
	a.padded.Reset()
	a.dcolVsTime.Reset()
	a.rocVsTime.Reset()
	a.events = 0
	a.snapshot = nil
}

type HitMapSnapshot struct {
	NRoc     int
	Events   int
	Duration float64

	Rocs   []*Map2D[int]
	Module *Map2D[int]
	Padded *Map2D[int]

	// Time bins along the columns, ROC*26+dcol (or ROC) along the rows
	HitsVsTimeDcol *Map2D[int]
	HitsVsTimeRoc  *Map2D[int]

	DoubleColumns    []*Dist1D
	HitDistributions []*Dist1D
}

// HitMap returns the map of one ROC, the module (-1) or the module with
// double sized edge pixels (-2).
func (s *HitMapSnapshot) HitMap(roc int) *Map2D[int] {
	switch {
	case roc == ModuleIndex:
		return s.Module
	case roc == PaddedModuleIndex:
		return s.Padded
	case roc >= 0 && roc < len(s.Rocs):
		return s.Rocs[roc]
	}
	return nil
}

func (s *HitMapSnapshot) DoubleColumnHits(roc int) *Dist1D {
	if roc < 0 || roc >= len(s.DoubleColumns) {
		return nil
	}
	return s.DoubleColumns[roc]
}

func (s *HitMapSnapshot) HitDistribution(roc int) *Dist1D {
	if roc < 0 || roc >= len(s.HitDistributions) {
		return nil
	}
	return s.HitDistributions[roc]
}

func (s *HitMapSnapshot) Clone() *HitMapSnapshot {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Rocs = cloneMaps(s.Rocs)
	clone.Module = s.Module.Clone()
	clone.Padded = s.Padded.Clone()
	clone.HitsVsTimeDcol = s.HitsVsTimeDcol.Clone()
	clone.HitsVsTimeRoc = s.HitsVsTimeRoc.Clone()
	clone.DoubleColumns = cloneDists(s.DoubleColumns)
	clone.HitDistributions = cloneDists(s.HitDistributions)
	return &clone
}

func cloneDists(dists []*Dist1D) []*Dist1D {
	if dists == nil {
		return nil
	}
	clones := make([]*Dist1D, len(dists))
	for i, d := range dists {
		clones[i] = d.Clone()
	}
	return clones
}
