package decoder

import (
	"fmt"
	"slices"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/stat"
)

type Number interface {
	constraints.Integer | constraints.Float
}

// Map2D is a column/row histogram stored column-major: the bin (col, row)
// lives at Data[col*Rows+row].
type Map2D[T Number] struct {
	Name    string
	Title   string
	Cols    int
	Rows    int
	Data    []T
	Entries int64
}

func NewMap2D[T Number](name, title string, cols, rows int) *Map2D[T] {
	return &Map2D[T]{
		Name:  name,
		Title: title,
		Cols:  cols,
		Rows:  rows,
		Data:  make([]T, cols*rows),
	}
}

func (m *Map2D[T]) index(col, row int) (int, bool) {
	if col < 0 || col >= m.Cols || row < 0 || row >= m.Rows {
		return 0, false
	}
	return col*m.Rows + row, true
}

func (m *Map2D[T]) At(col, row int) T {
	i, ok := m.index(col, row)
	if !ok {
		return 0
	}
	return m.Data[i]
}

// Fill adds weight to a bin. Out of range bins are ignored.
func (m *Map2D[T]) Fill(col, row int, weight T) {
	i, ok := m.index(col, row)
	if !ok {
		return
	}
	m.Data[i] += weight
	m.Entries++
}

func (m *Map2D[T]) Set(col, row int, value T) {
	if i, ok := m.index(col, row); ok {
		m.Data[i] = value
	}
}

func (m *Map2D[T]) Sum() T {
	var sum T
	for _, v := range m.Data {
		sum += v
	}
	return sum
}

func (m *Map2D[T]) Max() T {
	if len(m.Data) == 0 {
		return 0
	}
	return slices.Max(m.Data)
}

func (m *Map2D[T]) Clone() *Map2D[T] {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Data = slices.Clone(m.Data)
	return &clone
}

func (m *Map2D[T]) Reset() {
	clear(m.Data)
	m.Entries = 0
}

// checkpoint returns a function that puts the bins back to their current
// content.
func (m *Map2D[T]) checkpoint() func() {
	data := slices.Clone(m.Data)
	entries := m.Entries
	return func() {
		copy(m.Data, data)
		m.Entries = entries
	}
}

// PixelArena holds one ROC sized map per ROC in a single allocation.
type PixelArena[T Number] struct {
	data []T
	maps []*Map2D[T]
}

func NewPixelArena[T Number](name, title string, nroc int) *PixelArena[T] {
	size := ROC_NUMCOLS * ROC_NUMROWS
	arena := &PixelArena[T]{
		data: make([]T, nroc*size),
		maps: make([]*Map2D[T], nroc),
	}
	for roc := range arena.maps {
		arena.maps[roc] = &Map2D[T]{
			Name:  fmt.Sprintf("%s_C%d", name, roc),
			Title: fmt.Sprintf("%s C%d", title, roc),
			Cols:  ROC_NUMCOLS,
			Rows:  ROC_NUMROWS,
			Data:  arena.data[roc*size : (roc+1)*size : (roc+1)*size],
		}
	}
	return arena
}

func (a *PixelArena[T]) Roc(roc int) *Map2D[T] {
	if roc < 0 || roc >= len(a.maps) {
		return nil
	}
	return a.maps[roc]
}

func (a *PixelArena[T]) NRoc() int {
	return len(a.maps)
}

// Clone returns the ROC maps as independent copies.
func (a *PixelArena[T]) Clone() []*Map2D[T] {
	maps := make([]*Map2D[T], len(a.maps))
	for i, m := range a.maps {
		maps[i] = m.Clone()
	}
	return maps
}

func (a *PixelArena[T]) Reset() {
	clear(a.data)
	for _, m := range a.maps {
		m.Entries = 0
	}
}

func (a *PixelArena[T]) checkpoint() func() {
	data := slices.Clone(a.data)
	entries := make([]int64, len(a.maps))
	for i, m := range a.maps {
		entries[i] = m.Entries
	}
	return func() {
		copy(a.data, data)
		for i, m := range a.maps {
			m.Entries = entries[i]
		}
	}
}

// moduleMap lays ROC maps out in module coordinates.
func moduleMap[T Number](name, title string, geometry *Geometry, rocs []*Map2D[T]) *Map2D[T] {
	cols, rows := geometry.ModuleSize()
	module := NewMap2D[T](name, title, cols, rows)
	for roc, m := range rocs {
		for col := 0; col < m.Cols; col++ {
			for row := 0; row < m.Rows; row++ {
				x, y := geometry.ModuleBin(roc, col, row)
				module.Set(x, y, m.At(col, row))
			}
		}
		module.Entries += m.Entries
	}
	return module
}

// Dist1D is a histogram of integer valued quantities with unit-less bins
// of equal width starting at Low.
type Dist1D struct {
	Name      string
	Title     string
	Low       float64
	Width     float64
	Counts    []int64
	Underflow int64
	Overflow  int64
	Entries   int64
}

func NewDist1D(name, title string, nbins int, low, width float64) *Dist1D {
	return &Dist1D{
		Name:   name,
		Title:  title,
		Low:    low,
		Width:  width,
		Counts: make([]int64, nbins),
	}
}

func (d *Dist1D) Fill(value float64) {
	d.Entries++
	if value < d.Low {
		d.Underflow++
		return
	}
	bin := int((value - d.Low) / d.Width)
	if bin >= len(d.Counts) {
		d.Overflow++
		return
	}
	d.Counts[bin]++
}

// BinCenter returns the value a bin stands for in mean and spread.
func (d *Dist1D) BinCenter(bin int) float64 {
	if d.Width == 1 {
		return d.Low + float64(bin)
	}
	return d.Low + (float64(bin)+0.5)*d.Width
}

func (d *Dist1D) weighted() ([]float64, []float64, bool) {
	x := make([]float64, 0, len(d.Counts))
	w := make([]float64, 0, len(d.Counts))
	for bin, n := range d.Counts {
		if n == 0 {
			continue
		}
		x = append(x, d.BinCenter(bin))
		w = append(w, float64(n))
	}
	return x, w, len(x) > 0
}

// Mean of the in-range entries.
func (d *Dist1D) Mean() float64 {
	x, w, ok := d.weighted()
	if !ok {
		return 0
	}
	return stat.Mean(x, w)
}

// StdDev is the population standard deviation of the in-range entries.
func (d *Dist1D) StdDev() float64 {
	x, w, ok := d.weighted()
	if !ok {
		return 0
	}
	_, std := stat.PopMeanStdDev(x, w)
	return std
}

func (d *Dist1D) Add(other *Dist1D) {
	for i := range min(len(d.Counts), len(other.Counts)) {
		d.Counts[i] += other.Counts[i]
	}
	d.Underflow += other.Underflow
	d.Overflow += other.Overflow
	d.Entries += other.Entries
}

func (d *Dist1D) Clone() *Dist1D {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Counts = slices.Clone(d.Counts)
	return &clone
}

func (d *Dist1D) Reset() {
	clear(d.Counts)
	d.Underflow = 0
	d.Overflow = 0
	d.Entries = 0
}

func (d *Dist1D) checkpoint() func() {
	saved := d.Clone()
	return func() {
		copy(d.Counts, saved.Counts)
		d.Underflow = saved.Underflow
		d.Overflow = saved.Overflow
		d.Entries = saved.Entries
	}
}

// restoreAll runs checkpoint restore functions, latest first.
func restoreAll(restores []func()) func() {
	return func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
}
