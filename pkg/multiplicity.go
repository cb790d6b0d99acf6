package decoder

import "fmt"

const MULTIPLICITY_BINS = 100

// MultiplicityAggregator histograms the number of hits per ROC in every
// good event, empty ROCs included.
type MultiplicityAggregator struct {
	nroc     int
	rocs     []*Dist1D
	module   *Dist1D
	counts   []int
	snapshot *MultiplicitySnapshot
}

func NewMultiplicityAggregator(nroc int) *MultiplicityAggregator {
	a := &MultiplicityAggregator{
		nroc:   nroc,
		rocs:   make([]*Dist1D, nroc),
		module: NewDist1D("multiplicity", "Hits per event", MULTIPLICITY_BINS, 0, 1),
		counts: make([]int, nroc),
	}
	for roc := range a.rocs {
		a.rocs[roc] = NewDist1D(fmt.Sprintf("multiplicity_C%d", roc), fmt.Sprintf("Hits per event C%d", roc), MULTIPLICITY_BINS, 0, 1)
	}
	return a
}

func (a *MultiplicityAggregator) Consume(outcome DecodeOutcome) {
	if !outcome.OK() {
		return
	}
	clear(a.counts)
	total := 0
	for _, hit := range outcome.Hits {
		if hit.Roc < 0 || hit.Roc >= a.nroc {
			continue
		}
		a.counts[hit.Roc]++
		total++
	}
	for roc, n := range a.counts {
		a.rocs[roc].Fill(float64(n))
	}
	a.module.Fill(float64(total))
}

func (a *MultiplicityAggregator) Finalize() {
	a.snapshot = &MultiplicitySnapshot{
		Rocs:   cloneDists(a.rocs),
		Module: a.module.Clone(),
	}
}

func (a *MultiplicityAggregator) Checkpoint() func() {
	restores := make([]func(), 0, len(a.rocs)+1)
	for _, dist := range a.rocs {
		restores = append(restores, dist.checkpoint())
	}
	restores = append(restores, a.module.checkpoint())
	restore := restoreAll(restores)
	snapshot := a.snapshot
	return func() {
		restore()
		a.snapshot = snapshot
	}
}

func (a *MultiplicityAggregator) Snapshot() *MultiplicitySnapshot {
	return a.snapshot.Clone()
}

type MultiplicitySnapshot struct {
	Rocs   []*Dist1D
	Module *Dist1D
}

// Multiplicity returns the distribution of one ROC, or of the module for -1.
func (s *MultiplicitySnapshot) Multiplicity(roc int) *Dist1D {
	if roc == ModuleIndex {
		return s.Module
	}
	if roc < 0 || roc >= len(s.Rocs) {
		return nil
	}
	return s.Rocs[roc]
}

func (s *MultiplicitySnapshot) Clone() *MultiplicitySnapshot {
	if s == nil {
		return nil
	}
	return &MultiplicitySnapshot{
		Rocs:   cloneDists(s.Rocs),
		Module: s.Module.Clone(),
	}
}
