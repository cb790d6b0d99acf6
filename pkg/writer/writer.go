package writer

import (
	"errors"
	"fmt"

	decoder "github.com/psi46/hrdecoder_go/pkg"
	"gonum.org/v1/hdf5"
)

// Writer exports finalized snapshots of a run to one HDF5 file. Every
// snapshot goes to its own group; dataset names repeat between groups.
type Writer struct {
	File             *hdf5.File
	Filename         string
	CompressionLevel int
	RunGroup         *hdf5.Group
	PassTable        *hdf5.Dataset
	PassCounter      int
	groups           map[string]*hdf5.Group
	logger           decoder.Logger
}

var testNames = map[string]int32{
	"efficiency": 0,
	"pixelmap":   1,
	"threshold":  2,
}

func NewWriter(filename string, compressionLevel int, logger decoder.Logger) (*Writer, error) {
	file, err := openFile(filename)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		File:             file,
		Filename:         filename,
		CompressionLevel: compressionLevel,
		groups:           make(map[string]*hdf5.Group),
		logger:           logger,
	}
	w.RunGroup, err = createGroup(file, "Run")
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}
	w.PassTable, err = createTable(w.RunGroup, "passes", PassSummaryHDF5{})
	if err != nil {
		return nil, errors.Join(err, w.RunGroup.Close(), file.Close())
	}
	if w.logger != nil {
		w.logger.Info(fmt.Sprintf("Creating file: %s", filename), "writer")
	}
	return w, nil
}

func (w *Writer) group(name string) (*hdf5.Group, error) {
	if g, ok := w.groups[name]; ok {
		return g, nil
	}
	g, err := createGroup(w.File, name)
	if err != nil {
		return nil, err
	}
	w.groups[name] = g
	return g, nil
}

// WritePassSummary appends the data quality counters of one pass.
func (w *Writer) WritePassSummary(test string, pass int, summary decoder.PassSummary) error {
	entry := PassSummaryHDF5{
		test:               testNames[test],
		pass:               int32(pass),
		events:             int32(summary.Events),
		truncated:          int32(summary.Truncated),
		badAddress:         int32(summary.BadAddress),
		sequenceViolations: int32(summary.SequenceViolations),
		decodingErrors:     int32(summary.DecodingErrors),
		strayWords:         int32(summary.StrayWords),
		lostTriggers:       int32(summary.LostTriggers),
		hits:               int64(summary.Hits),
	}
	if err := writeEntryToTable(w.PassTable, entry, w.PassCounter); err != nil {
		return fmt.Errorf("error writing pass %d summary: %w", pass, err)
	}
	w.PassCounter++
	return nil
}

func (w *Writer) WriteEfficiency(groupName string, s *decoder.EfficiencySnapshot) error {
	g, err := w.group(groupName)
	if err != nil {
		return err
	}
	errs := []error{
		writeMap(g, s.ModuleEfficiency, w.CompressionLevel),
		writeMap(g, s.ModuleBackground, w.CompressionLevel),
		writeDist(g, s.ModuleDistribution, w.CompressionLevel),
	}
	for roc := 0; roc < s.NRoc; roc++ {
		errs = append(errs,
			writeMap(g, s.EfficiencyMap(roc), w.CompressionLevel),
			writeMap(g, s.BackgroundMap(roc), w.CompressionLevel),
			writeDist(g, s.EfficiencyDistribution(roc), w.CompressionLevel),
		)
	}
	return errors.Join(errs...)
}

func (w *Writer) WriteHitMap(groupName string, s *decoder.HitMapSnapshot) error {
	g, err := w.group(groupName)
	if err != nil {
		return err
	}
	errs := []error{
		writeMap(g, s.Module, w.CompressionLevel),
		writeMap(g, s.Padded, w.CompressionLevel),
		writeMap(g, s.HitsVsTimeDcol, w.CompressionLevel),
		writeMap(g, s.HitsVsTimeRoc, w.CompressionLevel),
	}
	for roc := 0; roc < s.NRoc; roc++ {
		errs = append(errs,
			writeMap(g, s.HitMap(roc), w.CompressionLevel),
			writeDist(g, s.DoubleColumnHits(roc), w.CompressionLevel),
			writeDist(g, s.HitDistribution(roc), w.CompressionLevel),
		)
	}
	return errors.Join(errs...)
}

func (w *Writer) WriteMultiplicity(groupName string, s *decoder.MultiplicitySnapshot) error {
	g, err := w.group(groupName)
	if err != nil {
		return err
	}
	errs := []error{writeDist(g, s.Module, w.CompressionLevel)}
	for _, d := range s.Rocs {
		errs = append(errs, writeDist(g, d, w.CompressionLevel))
	}
	return errors.Join(errs...)
}

func (w *Writer) WritePulseHeight(groupName string, s *decoder.PulseHeightSnapshot) error {
	g, err := w.group(groupName)
	if err != nil {
		return err
	}
	var errs []error
	for _, view := range []decoder.PulseHeightView{s.Data, s.Calibration} {
		errs = append(errs,
			writeDist(g, view.Distribution, w.CompressionLevel),
			writeMap(g, view.ModuleMean, w.CompressionLevel),
			writeMap(g, view.ModuleWidth, w.CompressionLevel),
		)
		for roc := range view.Mean {
			errs = append(errs,
				writeMap(g, view.MeanMap(roc), w.CompressionLevel),
				writeMap(g, view.WidthMap(roc), w.CompressionLevel),
			)
		}
	}
	return errors.Join(errs...)
}

func (w *Writer) WriteThresholds(groupName string, t *decoder.ThresholdMap, nroc int) error {
	g, err := w.group(groupName)
	if err != nil {
		return err
	}
	var errs []error
	for roc := 0; roc < nroc; roc++ {
		errs = append(errs, writeMap(g, t.Map(roc), w.CompressionLevel))
	}
	return errors.Join(errs...)
}

func (w *Writer) Close() error {
	if w.logger != nil {
		w.logger.Info(fmt.Sprintf("Closing file %s", w.Filename), "writer")
	}
	var errs []error

	if err := w.PassTable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing pass table: %w", err))
	}
	for name, g := range w.groups {
		if err := g.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s group: %w", name, err))
		}
	}
	if err := w.RunGroup.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing run group: %w", err))
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
