package decoder

import (
	"fmt"
	"math"
)

const (
	// 100x150 um pixels
	PIXEL_AREA_CM2 = 0.01 * 0.015
	// Sensitive area of one ROC used for trim-low rate estimates
	ROC_SENSITIVE_AREA_CM2 = 0.79 * 0.77
	// Bunch crossing frequency in MHz
	CLOCK_FREQUENCY_MHZ = 40.0

	// Core region: no double sized pixels
	CORE_FIRST_COLUMN = 2
	CORE_LAST_COLUMN  = ROC_NUMCOLS - 3
	CORE_LAST_ROW     = ROC_NUMROWS - 2
)

type Measurement struct {
	Value float64
	Error float64
}

// Format prints a measurement the way the test logs list them.
func (m Measurement) Format(name, unit string) string {
	return fmt.Sprintf("%-19s %8.3f +/- %.3f %s", name, m.Value, m.Error, unit)
}

// BinomialError is the standard error of a fraction p measured in n trials.
func BinomialError(p, n float64) float64 {
	if n <= 0 {
		return 0
	}
	return math.Sqrt(p * (1 - p) / n)
}

func rocsOf(nroc, roc int) (int, int) {
	if roc == ModuleIndex {
		return 0, nroc
	}
	return roc, roc + 1
}

func (s *EfficiencySnapshot) efficiency(roc int, r *TestRange, accept func(Pixel) bool) Measurement {
	first, last := rocsOf(s.NRoc, roc)
	var hits, n float64
	for i := first; i < last && i < len(s.Efficiency); i++ {
		for _, pixel := range s.Armed {
			if !accept(pixel) || !r.IncludesPixel(i, pixel.Column, pixel.Row) {
				continue
			}
			hits += float64(s.Efficiency[i].At(pixel.Column, pixel.Row))
			n += float64(s.Triggers)
		}
	}
	if n == 0 {
		return Measurement{}
	}
	p := hits / n
	return Measurement{Value: 100 * p, Error: 100 * BinomialError(p, n)}
}

// OverallEfficiency is the percentage of calibration triggers seen on all
// armed pixels of a ROC, or of the module for -1.
func OverallEfficiency(s *EfficiencySnapshot, roc int, r *TestRange) Measurement {
	return s.efficiency(roc, r, func(Pixel) bool { return true })
}

// CoreEfficiency leaves out the double sized pixels at the ROC edges.
func CoreEfficiency(s *EfficiencySnapshot, roc int, r *TestRange) Measurement {
	return s.efficiency(roc, r, func(p Pixel) bool {
		return p.Column >= CORE_FIRST_COLUMN && p.Column <= CORE_LAST_COLUMN
	})
}

// BackgroundRate is the rate of hits not caused by the calibration signal
// in the core region, in MHz/cm2. Every trigger opens a 25 ns window.
func BackgroundRate(s *EfficiencySnapshot, roc int, r *TestRange) Measurement {
	first, last := rocsOf(s.NRoc, roc)
	hits, pixels := 0, 0
	for i := first; i < last && i < len(s.Background); i++ {
		for col := CORE_FIRST_COLUMN; col <= CORE_LAST_COLUMN; col++ {
			for row := 0; row <= CORE_LAST_ROW; row++ {
				if !r.IncludesPixel(i, col, row) {
					continue
				}
				hits += s.Background[i].At(col, row)
				pixels++
			}
		}
	}
	seconds := float64(s.ArmedPixels()) * float64(s.Triggers) * CLOCK_PERIOD_SECONDS
	return rate(hits, pixels, seconds)
}

// HitRate is the core region hit rate of a pixel map run in MHz/cm2. The
// live time is one clock per good event, stretched by clockStretch.
func HitRate(s *HitMapSnapshot, counts EventCounts, clockStretch int, r *TestRange) Measurement {
	hits, pixels := 0, 0
	for roc, m := range s.Rocs {
		for col := CORE_FIRST_COLUMN; col <= CORE_LAST_COLUMN; col++ {
			for row := 0; row <= CORE_LAST_ROW; row++ {
				if !r.IncludesPixel(roc, col, row) {
					continue
				}
				hits += m.At(col, row)
				pixels++
			}
		}
	}
	seconds := float64(counts.DataCounter) * CLOCK_PERIOD_SECONDS * float64(max(clockStretch, 1))
	return rate(hits, pixels, seconds)
}

// RocHitRate converts the hits counted on one ROC in a number of triggers
// into MHz/cm2 of sensitive area.
func RocHitRate(hits, triggers int) Measurement {
	if triggers <= 0 {
		return Measurement{}
	}
	scale := CLOCK_FREQUENCY_MHZ / float64(triggers) / ROC_SENSITIVE_AREA_CM2
	return Measurement{
		Value: float64(hits) * scale,
		Error: math.Sqrt(float64(hits)) * scale,
	}
}

func rate(hits, pixels int, seconds float64) Measurement {
	area := float64(pixels) * PIXEL_AREA_CM2
	if area == 0 || seconds == 0 {
		return Measurement{}
	}
	scale := 1 / area / seconds / 1e6
	return Measurement{
		Value: float64(hits) * scale,
		Error: math.Sqrt(float64(hits)) * scale,
	}
}
