package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// thresholdStep simulates one VCal step where every listed hit answers
// each of ntrig triggers sent to its pixel.
func thresholdStep(ntrig int, responses map[DecodedHit]int) *EfficiencySnapshot {
	a := NewEfficiencyAggregator(2, ntrig)
	for _, armed := range []Pixel{{3, 3}, {4, 4}} {
		for trigger := 0; trigger < ntrig; trigger++ {
			var hits []DecodedHit
			for h, n := range responses {
				if h.Pixel() == armed && trigger < n {
					hits = append(hits, h)
				}
			}
			a.ConsumeBatch(armed, hits)
		}
	}
	a.Finalize()
	return a.Snapshot()
}

func TestThresholdMap(t *testing.T) {
	thresholds := NewThresholdMap(2)
	assert.Equal(t, -1, thresholds.Threshold(0, 3, 3))

	found := thresholds.Update(thresholdStep(10, map[DecodedHit]int{hit(0, 3, 3): 2}), 10, 3)
	assert.Zero(t, found)

	found = thresholds.Update(thresholdStep(10, map[DecodedHit]int{hit(0, 3, 3): 5, hit(1, 4, 4): 3}), 20, 3)
	assert.Equal(t, 2, found)

	found = thresholds.Update(thresholdStep(10, map[DecodedHit]int{hit(0, 3, 3): 10, hit(0, 4, 4): 3}), 30, 3)
	assert.Equal(t, 1, found)

	assert.Equal(t, 20, thresholds.Threshold(0, 3, 3))
	assert.Equal(t, 30, thresholds.Threshold(0, 4, 4))
	assert.Equal(t, 20, thresholds.Threshold(1, 4, 4))
	assert.Equal(t, -1, thresholds.Threshold(1, 3, 3))
	assert.Equal(t, -1, thresholds.Threshold(2, 3, 3))
	assert.Equal(t, -1, thresholds.Threshold(0, 52, 3))

	m := thresholds.Map(0)
	require.NotNil(t, m)
	assert.Equal(t, "thr_rough_C0", m.Name)
	assert.EqualValues(t, 2, m.Entries)
	assert.Nil(t, thresholds.Map(2))

	assert.Equal(t, 2*ROC_NUMCOLS*ROC_NUMROWS-3, thresholds.Missing(nil))
	r := NewTestRange()
	r.ExcludeRoc(1)
	assert.Equal(t, ROC_NUMCOLS*ROC_NUMROWS-2, thresholds.Missing(r))
}
