package decoder

import (
	"fmt"
	"slices"
)

// EfficiencyAggregator counts, per pixel, how many of the calibration
// triggers sent to the armed pixel came back as hits. Hits anywhere else
// are background.
type EfficiencyAggregator struct {
	geometry   Geometry
	ntrig      int
	signal     *PixelArena[int]
	background *PixelArena[int]
	armed      []bool
	overflows  int
	snapshot   *EfficiencySnapshot
}

func NewEfficiencyAggregator(nroc, ntrig int) *EfficiencyAggregator {
	return &EfficiencyAggregator{
		geometry:   Geometry{NRoc: nroc},
		ntrig:      ntrig,
		signal:     NewPixelArena[int]("effmap", "Efficiency map", nroc),
		background: NewPixelArena[int]("bkgmap", "Background map", nroc),
		armed:      make([]bool, ROC_NUMCOLS*ROC_NUMROWS),
	}
}

// ConsumeBatch accounts the hits of one event triggered while armed was
// the pixel under calibration on every ROC. Pass an invalid pixel when
// nothing was armed.
func (a *EfficiencyAggregator) ConsumeBatch(armed Pixel, hits []DecodedHit) {
	if armed.Valid() {
		a.armed[armed.Column*ROC_NUMROWS+armed.Row] = true
	}
	for _, hit := range hits {
		if !a.geometry.Contains(hit.Roc, hit.Column, hit.Row) {
			continue
		}
		if armed.Valid() && hit.Pixel() == armed {
			signal := a.signal.Roc(hit.Roc)
			if signal.At(hit.Column, hit.Row) >= a.ntrig {
				a.overflows++
				continue
			}
			signal.Fill(hit.Column, hit.Row, 1)
			continue
		}
		a.background.Roc(hit.Roc).Fill(hit.Column, hit.Row, 1)
	}
}

func (a *EfficiencyAggregator) Consume(outcome DecodeOutcome) {
	if !outcome.HasArmed {
		a.ConsumeBatch(Pixel{Column: -1, Row: -1}, outcome.Hits)
		return
	}
	a.ConsumeBatch(outcome.Armed, outcome.Hits)
}

func (a *EfficiencyAggregator) Finalize() {
	nroc := a.geometry.NRoc
	snapshot := &EfficiencySnapshot{
		NRoc:         nroc,
		Triggers:     a.ntrig,
		Efficiency:   a.signal.Clone(),
		Background:   a.background.Clone(),
		Distribution: make([]*Dist1D, nroc),
		Overflows:    a.overflows,
	}

	for col := 0; col < ROC_NUMCOLS; col++ {
		for row := 0; row < ROC_NUMROWS; row++ {
			if a.armed[col*ROC_NUMROWS+row] {
				snapshot.Armed = append(snapshot.Armed, Pixel{Column: col, Row: row})
			}
		}
	}

	snapshot.ModuleDistribution = NewDist1D("effdist", "Efficiency distribution", a.ntrig+1, 0, 1)
	for roc := 0; roc < nroc; roc++ {
		dist := NewDist1D(fmt.Sprintf("effdist_C%d", roc), fmt.Sprintf("Efficiency distribution C%d", roc), a.ntrig+1, 0, 1)
		for _, pixel := range snapshot.Armed {
			dist.Fill(float64(snapshot.Efficiency[roc].At(pixel.Column, pixel.Row)))
		}
		snapshot.Distribution[roc] = dist
		snapshot.ModuleDistribution.Add(dist)
	}
	snapshot.ModuleEfficiency = moduleMap("effmap", "Efficiency map", &a.geometry, snapshot.Efficiency)
	snapshot.ModuleBackground = moduleMap("bkgmap", "Background map", &a.geometry, snapshot.Background)

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Efficiency: %d armed pixels, %d signal hits, %d background hits", len(snapshot.Armed), snapshot.ModuleEfficiency.Sum(), snapshot.ModuleBackground.Sum())
		logger.Info(message, "efficiency")
	}
	if a.overflows > 0 {
		logger.Error(fmt.Sprintf("efficiency: %d signal hits above %d triggers ignored", a.overflows, a.ntrig))
	}
	a.snapshot = snapshot
}

// Snapshot returns a copy of the maps as of the last Finalize, or nil
// before the first one.
func (a *EfficiencyAggregator) Snapshot() *EfficiencySnapshot {
	return a.snapshot.Clone()
}

type EfficiencySnapshot struct {
	NRoc     int
	Triggers int

	Efficiency   []*Map2D[int]
	Background   []*Map2D[int]
	Distribution []*Dist1D

	ModuleEfficiency   *Map2D[int]
	ModuleBackground   *Map2D[int]
	ModuleDistribution *Dist1D

	// Pixels armed at least once, column-major
	Armed     []Pixel
	Overflows int
}

// EfficiencyMap returns the signal counts of a ROC, or of the module for -1.
func (s *EfficiencySnapshot) EfficiencyMap(roc int) *Map2D[int] {
	if roc == ModuleIndex {
		return s.ModuleEfficiency
	}
	if roc < 0 || roc >= len(s.Efficiency) {
		return nil
	}
	return s.Efficiency[roc]
}

func (s *EfficiencySnapshot) BackgroundMap(roc int) *Map2D[int] {
	if roc == ModuleIndex {
		return s.ModuleBackground
	}
	if roc < 0 || roc >= len(s.Background) {
		return nil
	}
	return s.Background[roc]
}

func (s *EfficiencySnapshot) EfficiencyDistribution(roc int) *Dist1D {
	if roc == ModuleIndex {
		return s.ModuleDistribution
	}
	if roc < 0 || roc >= len(s.Distribution) {
		return nil
	}
	return s.Distribution[roc]
}

func (s *EfficiencySnapshot) ArmedPixels() int {
	return len(s.Armed)
}

func (s *EfficiencySnapshot) Clone() *EfficiencySnapshot {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Efficiency = cloneMaps(s.Efficiency)
	clone.Background = cloneMaps(s.Background)
	clone.Distribution = cloneDists(s.Distribution)
	clone.ModuleEfficiency = s.ModuleEfficiency.Clone()
	clone.ModuleBackground = s.ModuleBackground.Clone()
	clone.ModuleDistribution = s.ModuleDistribution.Clone()
	clone.Armed = slices.Clone(s.Armed)
	return &clone
}

func cloneMaps[T Number](maps []*Map2D[T]) []*Map2D[T] {
	if maps == nil {
		return nil
	}
	clones := make([]*Map2D[T], len(maps))
	for i, m := range maps {
		clones[i] = m.Clone()
	}
	return clones
}
