package decoder

import (
	"fmt"
	"math"
)

const (
	PH_RAW_BINS         = 512
	PH_RAW_BIN_WIDTH    = 8
	PH_VCAL_BINS        = 400
	PH_VCAL_BIN_WIDTH   = 5
	PH_NO_CALIBRATION   = "raw ADC"
	PH_WITH_CALIBRATION = "VCal"
)

type pulseHeightAccumulator struct {
	dist *Dist1D
	sum  *PixelArena[float64]
	sum2 *PixelArena[float64]
	n    *PixelArena[int]
}

func newPulseHeightAccumulator(name, title string, nroc int, calibrated bool) *pulseHeightAccumulator {
	var dist *Dist1D
	if calibrated {
		dist = NewDist1D(name+"_dist", title+" ("+PH_WITH_CALIBRATION+")", PH_VCAL_BINS, 0, PH_VCAL_BIN_WIDTH)
	} else {
		dist = NewDist1D(name+"_dist", title+" ("+PH_NO_CALIBRATION+")", PH_RAW_BINS, 0, PH_RAW_BIN_WIDTH)
	}
	return &pulseHeightAccumulator{
		dist: dist,
		sum:  NewPixelArena[float64](name+"_sum", title+" sum", nroc),
		sum2: NewPixelArena[float64](name+"_sum2", title+" sum of squares", nroc),
		n:    NewPixelArena[int](name+"_n", title+" entries", nroc),
	}
}

func (p *pulseHeightAccumulator) fill(roc, col, row int, value float64) {
	p.dist.Fill(value)
	p.sum.Roc(roc).Fill(col, row, value)
	p.sum2.Roc(roc).Fill(col, row, value*value)
	p.n.Roc(roc).Fill(col, row, 1)
}

func (p *pulseHeightAccumulator) checkpoint() func() {
	return restoreAll([]func(){
		p.dist.checkpoint(),
		p.sum.checkpoint(),
		p.sum2.checkpoint(),
		p.n.checkpoint(),
	})
}

func (p *pulseHeightAccumulator) view(name, title string, geometry *Geometry) PulseHeightView {
	view := PulseHeightView{
		Distribution: p.dist.Clone(),
		Mean:         make([]*Map2D[float64], geometry.NRoc),
		Width:        make([]*Map2D[float64], geometry.NRoc),
	}
	for roc := 0; roc < geometry.NRoc; roc++ {
		mean := NewMap2D[float64](fmt.Sprintf("%s_map_C%d", name, roc), fmt.Sprintf("%s mean C%d", title, roc), ROC_NUMCOLS, ROC_NUMROWS)
		width := NewMap2D[float64](fmt.Sprintf("%s_width_C%d", name, roc), fmt.Sprintf("%s width C%d", title, roc), ROC_NUMCOLS, ROC_NUMROWS)
		sum, sum2, n := p.sum.Roc(roc), p.sum2.Roc(roc), p.n.Roc(roc)
		for i, entries := range n.Data {
			if entries == 0 {
				continue
			}
			m := sum.Data[i] / float64(entries)
			mean.Data[i] = m
			width.Data[i] = math.Sqrt(max(sum2.Data[i]/float64(entries)-m*m, 0))
		}
		mean.Entries = n.Entries
		width.Entries = n.Entries
		view.Mean[roc] = mean
		view.Width[roc] = width
	}
	view.ModuleMean = moduleMap(name+"_map", title+" mean", geometry, view.Mean)
	view.ModuleWidth = moduleMap(name+"_width", title+" width", geometry, view.Width)
	return view
}

// PulseHeightAggregator histograms the analog pulse height of hits, split
// into hits of the calibration signal and all other (data) hits. Without a
// calibration table raw ADC codes are used.
type PulseHeightAggregator struct {
	geometry    Geometry
	calibration *CalibrationTable
	data        *pulseHeightAccumulator
	cal         *pulseHeightAccumulator
	snapshot    *PulseHeightSnapshot
}

func NewPulseHeightAggregator(nroc int) *PulseHeightAggregator {
	a := &PulseHeightAggregator{geometry: Geometry{NRoc: nroc}}
	a.allocate()
	return a
}

func (a *PulseHeightAggregator) allocate() {
	calibrated := a.calibration != nil
	a.data = newPulseHeightAccumulator("ph", "Pulse height", a.geometry.NRoc, calibrated)
	a.cal = newPulseHeightAccumulator("ph_cal", "Calibration pulse height", a.geometry.NRoc, calibrated)
}

// LoadCalibration reads the calibration tables of nroc ROCs from dir. On
// failure the error is logged and returned, and the aggregator keeps
// working in raw ADC codes. It clears anything accumulated so far.
func (a *PulseHeightAggregator) LoadCalibration(nroc int, dir string) error {
	a.geometry.NRoc = nroc
	table, err := LoadCalibrationTable(nroc, dir)
	if err != nil {
		logger.Error(fmt.Sprintf("pulse height calibration not loaded, using raw ADC codes: %v", err))
		a.calibration = nil
		a.allocate()
		return err
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Loaded pulse height calibration for %d ROCs from %s", nroc, dir), "pulseHeight")
	}
	a.calibration = table
	a.allocate()
	return nil
}

func (a *PulseHeightAggregator) Calibrated() bool {
	return a.calibration != nil
}

// ConsumeBatch fills the hits of one event; hits on the armed pixel count
// as calibration signal.
func (a *PulseHeightAggregator) ConsumeBatch(armed Pixel, hits []DecodedHit) {
	for _, hit := range hits {
		hit.IsCalibrationSignal = armed.Valid() && hit.Pixel() == armed
		a.fill(hit)
	}
}

func (a *PulseHeightAggregator) Consume(outcome DecodeOutcome) {
	if !outcome.OK() {
		return
	}
	for _, hit := range outcome.Hits {
		a.fill(hit)
	}
}

func (a *PulseHeightAggregator) fill(hit DecodedHit) {
	if !hit.HasPulseHeight || !a.geometry.Contains(hit.Roc, hit.Column, hit.Row) {
		return
	}
	value := float64(hit.PulseHeight)
	if a.calibration != nil {
		value = a.calibration.Calibrate(hit.Roc, hit.Column, hit.Row, hit.PulseHeight)
	}
	if hit.IsCalibrationSignal {
		a.cal.fill(hit.Roc, hit.Column, hit.Row, value)
		return
	}
	a.data.fill(hit.Roc, hit.Column, hit.Row, value)
}

func (a *PulseHeightAggregator) Finalize() {
	a.snapshot = &PulseHeightSnapshot{
		Calibrated:  a.calibration != nil,
		Data:        a.data.view("ph", "Pulse height", &a.geometry),
		Calibration: a.cal.view("ph_cal", "Calibration pulse height", &a.geometry),
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Pulse height: %d data hits, %d calibration hits", a.snapshot.Data.Distribution.Entries, a.snapshot.Calibration.Distribution.Entries)
		logger.Info(message, "pulseHeight")
	}
}

// Checkpoint saves both accumulators. The returned function puts them back,
// together with the calibration that was in use.
func (a *PulseHeightAggregator) Checkpoint() func() {
	calibration, data, cal, snapshot := a.calibration, a.data, a.cal, a.snapshot
	restoreData, restoreCal := data.checkpoint(), cal.checkpoint()
	return func() {
		restoreData()
		restoreCal()
		a.calibration, a.data, a.cal, a.snapshot = calibration, data, cal, snapshot
	}
}

func (a *PulseHeightAggregator) Snapshot() *PulseHeightSnapshot {
	return a.snapshot.Clone()
}

type PulseHeightView struct {
	Distribution *Dist1D
	Mean         []*Map2D[float64]
	Width        []*Map2D[float64]
	ModuleMean   *Map2D[float64]
	ModuleWidth  *Map2D[float64]
}

func (v PulseHeightView) MeanMap(roc int) *Map2D[float64] {
	if roc == ModuleIndex {
		return v.ModuleMean
	}
	if roc < 0 || roc >= len(v.Mean) {
		return nil
	}
	return v.Mean[roc]
}

func (v PulseHeightView) WidthMap(roc int) *Map2D[float64] {
	if roc == ModuleIndex {
		return v.ModuleWidth
	}
	if roc < 0 || roc >= len(v.Width) {
		return nil
	}
	return v.Width[roc]
}

func (v PulseHeightView) clone() PulseHeightView {
	return PulseHeightView{
		Distribution: v.Distribution.Clone(),
		Mean:         cloneMaps(v.Mean),
		Width:        cloneMaps(v.Width),
		ModuleMean:   v.ModuleMean.Clone(),
		ModuleWidth:  v.ModuleWidth.Clone(),
	}
}

type PulseHeightSnapshot struct {
	Calibrated  bool
	Data        PulseHeightView
	Calibration PulseHeightView
}

func (s *PulseHeightSnapshot) Clone() *PulseHeightSnapshot {
	if s == nil {
		return nil
	}
	return &PulseHeightSnapshot{
		Calibrated:  s.Calibrated,
		Data:        s.Data.clone(),
		Calibration: s.Calibration.clone(),
	}
}
