package decoder

// TestRange selects the ROCs and pixels a test runs on. A nil range
// includes everything.
type TestRange struct {
	excludedRocs   [MAX_ROCS]bool
	excludedPixels [MAX_ROCS][ROC_NUMCOLS * ROC_NUMROWS]bool
}

func NewTestRange() *TestRange {
	return &TestRange{}
}

func (r *TestRange) ExcludeRoc(roc int) {
	if roc >= 0 && roc < MAX_ROCS {
		r.excludedRocs[roc] = true
	}
}

func (r *TestRange) ExcludePixel(roc, col, row int) {
	if roc >= 0 && roc < MAX_ROCS && (Pixel{col, row}).Valid() {
		r.excludedPixels[roc][col*ROC_NUMROWS+row] = true
	}
}

func (r *TestRange) IncludesRoc(roc int) bool {
	if roc < 0 || roc >= MAX_ROCS {
		return false
	}
	return r == nil || !r.excludedRocs[roc]
}

// IncludesColumn reports whether any pixel of the column is tested.
func (r *TestRange) IncludesColumn(roc, col int) bool {
	for row := 0; row < ROC_NUMROWS; row++ {
		if r.IncludesPixel(roc, col, row) {
			return true
		}
	}
	return false
}

func (r *TestRange) IncludesPixel(roc, col, row int) bool {
	if !r.IncludesRoc(roc) || !(Pixel{col, row}).Valid() {
		return false
	}
	return r == nil || !r.excludedPixels[roc][col*ROC_NUMROWS+row]
}
