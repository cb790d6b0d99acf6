package decoder

// ArmedSchedule tells which pixel was armed when the given trigger (the
// unwrapped header trigger counter) was sent.
type ArmedSchedule interface {
	ArmedPixel(trigger int) (Pixel, bool)
}

// ScanSchedule arms each pixel in turn and sends Triggers calibration
// triggers to it before moving on.
type ScanSchedule struct {
	Pixels   []Pixel
	Triggers int
}

func NewScanSchedule(pixels []Pixel, triggers int) (*ScanSchedule, error) {
	if len(pixels) == 0 {
		return nil, ErrEmptyScan
	}
	if triggers <= 0 {
		return nil, ErrInvalidTriggers
	}
	return &ScanSchedule{Pixels: pixels, Triggers: triggers}, nil
}

func (s *ScanSchedule) ArmedPixel(trigger int) (Pixel, bool) {
	if trigger < 0 {
		return Pixel{}, false
	}
	i := trigger / s.Triggers
	if i >= len(s.Pixels) {
		return Pixel{}, false
	}
	return s.Pixels[i], true
}

// Events is the number of triggers the scan sends.
func (s *ScanSchedule) Events() int {
	return len(s.Pixels) * s.Triggers
}

// ColumnMajorScan lists the pixels enabled on any ROC of the range, column
// by column and row by row within a column, the order the pattern
// generator arms them in.
func ColumnMajorScan(nroc int, r *TestRange) []Pixel {
	pixels := make([]Pixel, 0, ROC_NUMCOLS*ROC_NUMROWS)
	for col := 0; col < ROC_NUMCOLS; col++ {
		for row := 0; row < ROC_NUMROWS; row++ {
			for roc := 0; roc < nroc; roc++ {
				if r.IncludesPixel(roc, col, row) {
					pixels = append(pixels, Pixel{Column: col, Row: row})
					break
				}
			}
		}
	}
	return pixels
}
