package decoder

import "fmt"

// ThresholdMap records, per pixel, the first VCal of a rising scan at which
// the pixel responded to at least minHits calibration triggers. Pixels not
// yet responding hold -1.
type ThresholdMap struct {
	rocs []*Map2D[int]
}

func NewThresholdMap(nroc int) *ThresholdMap {
	t := &ThresholdMap{rocs: make([]*Map2D[int], nroc)}
	for roc := range t.rocs {
		m := NewMap2D[int](fmt.Sprintf("thr_rough_C%d", roc), fmt.Sprintf("Rough threshold C%d", roc), ROC_NUMCOLS, ROC_NUMROWS)
		for i := range m.Data {
			m.Data[i] = -1
		}
		t.rocs[roc] = m
	}
	return t
}

// Update takes the efficiency snapshot of the scan step at vcal and returns
// how many pixels crossed threshold in this step.
func (t *ThresholdMap) Update(s *EfficiencySnapshot, vcal, minHits int) int {
	found := 0
	for roc, m := range t.rocs {
		eff := s.EfficiencyMap(roc)
		if eff == nil {
			continue
		}
		for _, pixel := range s.Armed {
			if m.At(pixel.Column, pixel.Row) >= 0 {
				continue
			}
			if eff.At(pixel.Column, pixel.Row) >= minHits {
				m.Set(pixel.Column, pixel.Row, vcal)
				m.Entries++
				found++
			}
		}
	}
	return found
}

func (t *ThresholdMap) Threshold(roc, col, row int) int {
	if roc < 0 || roc >= len(t.rocs) {
		return -1
	}
	if !(Pixel{col, row}).Valid() {
		return -1
	}
	return t.rocs[roc].At(col, row)
}

func (t *ThresholdMap) Map(roc int) *Map2D[int] {
	if roc < 0 || roc >= len(t.rocs) {
		return nil
	}
	return t.rocs[roc]
}

// Missing counts the pixels of a range that never crossed threshold.
func (t *ThresholdMap) Missing(r *TestRange) int {
	missing := 0
	for roc, m := range t.rocs {
		for col := 0; col < ROC_NUMCOLS; col++ {
			for row := 0; row < ROC_NUMROWS; row++ {
				if r.IncludesPixel(roc, col, row) && m.At(col, row) < 0 {
					missing++
				}
			}
		}
	}
	return missing
}
