package decoder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Pulse height calibration files, one per ROC
const CALIBRATION_FILE_PATTERN = "phCalibration_C%d.dat"

// PixelCalibration converts an ADC code into VCal units: (code-offset)/gain.
type PixelCalibration struct {
	Gain   float64
	Offset float64
}

type CalibrationTable struct {
	nroc   int
	pixels []PixelCalibration
}

func calibrationIndex(roc, col, row int) int {
	return (roc*ROC_NUMCOLS+col)*ROC_NUMROWS + row
}

func (t *CalibrationTable) NRoc() int {
	return t.nroc
}

func (t *CalibrationTable) Pixel(roc, col, row int) PixelCalibration {
	return t.pixels[calibrationIndex(roc, col, row)]
}

func (t *CalibrationTable) Calibrate(roc, col, row, code int) float64 {
	c := t.pixels[calibrationIndex(roc, col, row)]
	return (float64(code) - c.Offset) / c.Gain
}

func CalibrationFilename(dir string, roc int) string {
	return filepath.Join(dir, fmt.Sprintf(CALIBRATION_FILE_PATTERN, roc))
}

// LoadCalibrationTable reads one calibration file per ROC from dir. Any
// missing, duplicated or unusable pixel rejects the whole table.
func LoadCalibrationTable(nroc int, dir string) (*CalibrationTable, error) {
	table := &CalibrationTable{
		nroc:   nroc,
		pixels: make([]PixelCalibration, nroc*ROC_NUMCOLS*ROC_NUMROWS),
	}
	for roc := 0; roc < nroc; roc++ {
		if err := table.readRoc(roc, CalibrationFilename(dir, roc)); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// readRoc parses lines "gain offset Pix col row". Lines before the first
// pixel line are a free form header.
func (t *CalibrationTable) readRoc(roc int, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return &CalibrationLoadError{Filename: filename, Err: err}
	}
	defer file.Close()

	seen := make([]bool, ROC_NUMCOLS*ROC_NUMROWS)
	nSeen := 0
	inData := false
	lineNumber := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if !inData {
			if len(fields) < 3 || fields[2] != "Pix" {
				continue
			}
			inData = true
		}

		pixel, col, row, err := parseCalibrationLine(fields)
		if err != nil {
			return &CalibrationLoadError{Filename: filename, Line: lineNumber, Err: err}
		}
		i := col*ROC_NUMROWS + row
		if seen[i] {
			return &CalibrationLoadError{Filename: filename, Line: lineNumber, Err: fmt.Errorf("duplicate pixel %d:%d", col, row)}
		}
		seen[i] = true
		nSeen++
		t.pixels[calibrationIndex(roc, col, row)] = pixel
	}
	if err := scanner.Err(); err != nil {
		return &CalibrationLoadError{Filename: filename, Err: err}
	}
	if nSeen != len(seen) {
		return &CalibrationLoadError{Filename: filename, Err: fmt.Errorf("%d of %d pixels calibrated", nSeen, len(seen))}
	}
	return nil
}

func parseCalibrationLine(fields []string) (PixelCalibration, int, int, error) {
	if len(fields) != 5 || fields[2] != "Pix" {
		return PixelCalibration{}, 0, 0, errors.New("expected: gain offset Pix col row")
	}
	gain, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return PixelCalibration{}, 0, 0, fmt.Errorf("invalid gain: %w", err)
	}
	offset, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return PixelCalibration{}, 0, 0, fmt.Errorf("invalid offset: %w", err)
	}
	col, err := strconv.Atoi(fields[3])
	if err != nil {
		return PixelCalibration{}, 0, 0, fmt.Errorf("invalid column: %w", err)
	}
	row, err := strconv.Atoi(fields[4])
	if err != nil {
		return PixelCalibration{}, 0, 0, fmt.Errorf("invalid row: %w", err)
	}
	if !(Pixel{Column: col, Row: row}).Valid() {
		return PixelCalibration{}, 0, 0, fmt.Errorf("pixel %d:%d outside the ROC", col, row)
	}
	if gain <= 0 {
		return PixelCalibration{}, 0, 0, fmt.Errorf("gain %g of pixel %d:%d is not positive", gain, col, row)
	}
	return PixelCalibration{Gain: gain, Offset: offset}, col, row, nil
}

// WriteCalibrationFile stores the calibration of one ROC in the format read
// by LoadCalibrationTable.
func WriteCalibrationFile(filename string, pixels func(col, row int) PixelCalibration) error {
	file, err := os.Create(filename)
	if err != nil {
		return &ErrOpenFile{Filename: filename, Err: err}
	}
	w := bufio.NewWriter(file)
	fmt.Fprintln(w, "Pulse height calibration: vcal = (ph - offset) / gain")
	fmt.Fprintln(w)
	for col := 0; col < ROC_NUMCOLS; col++ {
		for row := 0; row < ROC_NUMROWS; row++ {
			c := pixels(col, row)
			fmt.Fprintf(w, "%.6g %.6g Pix %d %d\n", c.Gain, c.Offset, col, row)
		}
	}
	return errors.Join(w.Flush(), file.Close())
}
