package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeasures(t *testing.T) {
	vals := []float64{0.1, -0.1, 0.2, 0.2}
	assert.InDelta(t, 0.1, Mean(vals), 1e-9)
	assert.InDelta(t, 0.75, HitRate(vals), 1e-9)
	assert.Greater(t, IR(vals), 0.0)

	assert.Zero(t, Mean(nil))
	assert.Zero(t, IR([]float64{1}))
	assert.Zero(t, HitRate(nil))
}

func TestBootstrapInterval(t *testing.T) {
	vals := make([]float64, 200)
	for i := range vals {
		vals[i] = float64(i%10) / 10
	}
	interval := Bootstrap(vals, Mean, 500, 0.95)
	assert.Less(t, interval.Lower, interval.Upper)
	assert.InDelta(t, 0.45, interval.Mean, 0.05)
	assert.Greater(t, interval.StdDev, 0.0)

	assert.Zero(t, Bootstrap(nil, Mean, 100, 0.95))
}
