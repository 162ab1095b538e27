package strategy_test

import (
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/param"
	"github.com/raykavin/factorlab/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWork(t *testing.T) {
	w, err := strategy.ParseWork("close_bias_20__boll_(20, 2.0)")
	require.NoError(t, err)
	assert.Equal(t, "close_bias_20", w.Fac)
	assert.Equal(t, "boll_(20, 2)", w.Strategy.Name())
	assert.Empty(t, w.Filters)
	assert.Empty(t, w.StopFilters)
	assert.Equal(t, "close_bias_20__boll_(20, 2.0)", w.Name())

	w, err = strategy.ParseWork("ret_5__fix_time_(10)~trend_20*market_stop_2")
	require.NoError(t, err)
	assert.Equal(t, "ret_5", w.Fac)
	require.Len(t, w.Filters, 1)
	assert.Equal(t, "trend", w.Filters[0].Name)
	require.Len(t, w.StopFilters, 1)
	assert.Equal(t, "market_stop", w.StopFilters[0].Name)

	_, err = strategy.ParseWork("close__boll_20")
	assert.ErrorIs(t, err, core.ErrParse)

	_, err = strategy.ParseWork("close__no_such_strategy_(1)")
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestParseFilterLastUnderscore(t *testing.T) {
	f, err := strategy.ParseFilter("trend_rev_(20,1)")
	require.NoError(t, err)
	assert.Equal(t, "trend_rev", f.Name)
	assert.Equal(t, 2, f.Params.Len())
	assert.Equal(t, int32(20), f.Params.Get(0).AsI32())
}

func TestStickyStop(t *testing.T) {
	df := frame.New(dataframe.New(
		series.New([]float64{0, 1, 0, 0, 0, 1}, series.Float, "open"),
		series.New([]float64{0, 0, 1, 0, 0, 0}, series.Float, "stop"),
	))
	sticky := strategy.Sticky(frame.ColExpr("stop"), frame.ColExpr("open"))
	out := df.WithColumn(sticky.Alias("s"))
	require.NoError(t, out.Err())
	vals, err := out.Floats("s")
	require.NoError(t, err)
	// Once the stop fires it persists until the next open.
	want := []float64{math.NaN(), 0, 1, 1, 1, 0}
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(vals[i]), "index %d", i)
		} else {
			assert.Equal(t, want[i], vals[i], "index %d", i)
		}
	}
}

func TestBollPositions(t *testing.T) {
	b, err := strategy.NewBoll(param.ParseParams("(4,1)"))
	require.NoError(t, err)

	// Flat, spike up, drift back down through zero.
	fac := []float64{1, 1.1, 0.9, 1, 5, 4, 3, 0.5, 0.4}
	pos, err := b.EvalToFac(fac, nil)
	require.NoError(t, err)
	require.Len(t, pos, len(fac))

	assert.Equal(t, 1.0, pos[4], "spike opens a long")
	// The long closes once the score crosses back below the exit level.
	assert.Equal(t, 0.0, pos[6])
	// The slide to the bottom of the band then opens a short.
	assert.Equal(t, -1.0, pos[7])
}

func TestBollLongNeverShort(t *testing.T) {
	long, err := strategy.Build("boll_long", param.ParseParams("(4,1)"))
	require.NoError(t, err)
	fac := []float64{1, 1.1, 0.9, 1, -5, -4, -3, 1, 1}
	pos, err := long.EvalToFac(fac, nil)
	require.NoError(t, err)
	for i, p := range pos {
		assert.GreaterOrEqual(t, p, 0.0, "index %d", i)
	}
}

func TestFixTimeHold(t *testing.T) {
	s, err := strategy.Build("fix_time", param.ParseParams("(2, -0.5, 0.5)"))
	require.NoError(t, err)

	fac := []float64{0, 1, 0, 0, 0, 0, -1, 0, 0, 0}
	pos, err := s.EvalToFac(fac, nil)
	require.NoError(t, err)
	// Each signal holds its position for two bars.
	assert.Equal(t, []float64{0, 1, 1, 0, 0, 0, -1, -1, 0, 0}, pos)
}

func TestNegFixTimeFlipsSides(t *testing.T) {
	s, err := strategy.Build("neg_fix_time", param.ParseParams("(2, -0.5, 0.5)"))
	require.NoError(t, err)
	fac := []float64{1, 0, 0, 0}
	pos, err := s.EvalToFac(fac, nil)
	require.NoError(t, err)
	assert.Equal(t, -1.0, pos[0], "high factor opens a short under the negated map")

	long, err := strategy.Build("neg_fix_time_long", param.ParseParams("(2, -0.5, 0.5)"))
	require.NoError(t, err)
	pos, err = long.EvalToFac(fac, nil)
	require.NoError(t, err)
	for i, p := range pos {
		assert.GreaterOrEqual(t, p, 0.0, "index %d", i)
	}
}

func TestWorkEvalWithMarketStop(t *testing.T) {
	n := 8
	dates := []string{"d1", "d1", "d1", "d1", "d2", "d2", "d2", "d2"}
	close := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	df := frame.New(dataframe.New(
		series.New(close, series.Float, "close"),
		series.New(dates, series.String, "trading_date"),
	))

	w, err := strategy.ParseWork("ret_1__fix_time_(3)*market_stop_1")
	require.NoError(t, err)
	s, err := w.Eval(df)
	require.NoError(t, err)
	pos := s.Float()
	require.Len(t, pos, n)
	// The last bar of each trading day is force-closed.
	assert.Equal(t, 0.0, pos[3])
}
