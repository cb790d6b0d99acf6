package decoder

import "fmt"

const (
	ROC_NUMCOLS  = 52
	ROC_NUMROWS  = 80
	ROC_NUMDCOLS = ROC_NUMCOLS / 2
	MAX_ROCS     = 16

	// Module layout: up to 8 ROCs per row of the module
	ROCS_PER_ROW = 8

	// Edge pixels (columns 0 and 51, row 79) are double sized. In the padded
	// maps every ROC occupies 54x81 bins and an edge pixel fills two bins.
	PADDED_NUMCOLS = ROC_NUMCOLS + 2
	PADDED_NUMROWS = ROC_NUMROWS + 1
)

// Special ROC indices used by the aggregators
const (
	ModuleIndex       = -1
	PaddedModuleIndex = -2
)

// Geometry describes the detector variant being read out. It is owned by the
// caller and never modified by the decoding pipeline.
type Geometry struct {
	NRoc               int  `json:"nroc"`
	AnalogReadout      bool `json:"analog_readout"`
	InvertedRowAddress bool `json:"inverted_row_address"`
}

// Pixel is a column/row address inside one ROC.
type Pixel struct {
	Column int
	Row    int
}

func (p Pixel) String() string {
	return fmt.Sprintf("%d:%d", p.Column, p.Row)
}

func (p Pixel) Valid() bool {
	return p.Column >= 0 && p.Column < ROC_NUMCOLS && p.Row >= 0 && p.Row < ROC_NUMROWS
}

func (g *Geometry) Validate() error {
	if g.NRoc <= 0 || g.NRoc > MAX_ROCS {
		return fmt.Errorf("invalid number of ROCs %d, expected 1-%d", g.NRoc, MAX_ROCS)
	}
	return nil
}

func (g *Geometry) Contains(roc, col, row int) bool {
	return roc >= 0 && roc < g.NRoc && Pixel{col, row}.Valid()
}

// ModuleSize returns the number of columns and rows of the module map (-1).
func (g *Geometry) ModuleSize() (int, int) {
	return moduleSize(g.NRoc, ROC_NUMCOLS, ROC_NUMROWS)
}

// ModuleBin maps a ROC pixel into the module map.
func (g *Geometry) ModuleBin(roc, col, row int) (int, int) {
	return moduleLayout(g.NRoc, roc, col, row, ROC_NUMCOLS, ROC_NUMROWS)
}

// PaddedModuleSize returns the size of the module map with double sized edges (-2).
func (g *Geometry) PaddedModuleSize() (int, int) {
	return moduleSize(g.NRoc, PADDED_NUMCOLS, PADDED_NUMROWS)
}

// PaddedModuleBins appends to dst the padded map bins covered by one pixel:
// one bin for inner pixels, two for edge pixels and four for the corners.
func (g *Geometry) PaddedModuleBins(dst []Pixel, roc, col, row int) []Pixel {
	var cols [2]int
	var rows [2]int
	ncols, nrows := 1, 1

	switch col {
	case 0:
		cols[0], cols[1] = 0, 1
		ncols = 2
	case ROC_NUMCOLS - 1:
		cols[0], cols[1] = PADDED_NUMCOLS-2, PADDED_NUMCOLS-1
		ncols = 2
	default:
		cols[0] = col + 1
	}

	rows[0] = row
	if row == ROC_NUMROWS-1 {
		rows[1] = row + 1
		nrows = 2
	}

	for i := 0; i < ncols; i++ {
		for j := 0; j < nrows; j++ {
			x, y := moduleLayout(g.NRoc, roc, cols[i], rows[j], PADDED_NUMCOLS, PADDED_NUMROWS)
			dst = append(dst, Pixel{Column: x, Row: y})
		}
	}
	return dst
}

func moduleSize(nroc, cellCols, cellRows int) (int, int) {
	if nroc <= ROCS_PER_ROW {
		return nroc * cellCols, cellRows
	}
	return ROCS_PER_ROW * cellCols, 2 * cellRows
}

// ROCs 0-7 of a full module sit in the lower half rotated by 180 degrees,
// ROCs 8-15 in the upper half. Smaller assemblies are laid out in one row.
func moduleLayout(nroc, roc, col, row, cellCols, cellRows int) (int, int) {
	if nroc <= ROCS_PER_ROW {
		return roc*cellCols + col, row
	}
	if roc < ROCS_PER_ROW {
		x := ROCS_PER_ROW*cellCols - 1 - (roc*cellCols + col)
		y := cellRows - 1 - row
		return x, y
	}
	return (roc-ROCS_PER_ROW)*cellCols + col, cellRows + row
}

// DoubleColumn returns the double column index of a column.
func DoubleColumn(col int) int {
	return col / 2
}
