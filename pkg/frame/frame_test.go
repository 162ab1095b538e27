package frame_test

import (
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatFrame(name string, vals []float64) *frame.Frame {
	return frame.New(dataframe.New(series.New(vals, series.Float, name)))
}

func col(t *testing.T, f *frame.Frame, name string) []float64 {
	t.Helper()
	vals, err := f.Floats(name)
	require.NoError(t, err)
	return vals
}

func assertFloats(t *testing.T, want, got []float64) {
	t.Helper()
	require.Equal(t, len(want), len(got))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: want null, got %v", i, got[i])
		} else {
			assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
		}
	}
}

func TestProtectDiv(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{1, 2, 3}, series.Float, "a"),
		series.New([]float64{2, 0, math.NaN()}, series.Float, "b"),
	))
	out := f.WithColumn(frame.ColExpr("a").ProtectDiv(frame.ColExpr("b")).Alias("q"))
	assertFloats(t, []float64{0.5, math.NaN(), math.NaN()}, col(t, out, "q"))
}

func TestVaddOneSidedNull(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{1, math.NaN(), math.NaN()}, series.Float, "a"),
		series.New([]float64{2, 3, math.NaN()}, series.Float, "b"),
	))
	out := f.WithColumn(frame.ColExpr("a").Vadd(frame.ColExpr("b")).Alias("s"))
	assertFloats(t, []float64{3, 3, math.NaN()}, col(t, out, "s"))
}

func TestImbalanceZeroDenominator(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{1, 0}, series.Float, "a"),
		series.New([]float64{3, 0}, series.Float, "b"),
	))
	out := f.WithColumn(frame.ColExpr("a").Imbalance(frame.ColExpr("b")).Alias("imb"))
	assertFloats(t, []float64{-0.5, math.NaN()}, col(t, out, "imb"))
}

func TestRollingMeanMinPeriods(t *testing.T) {
	f := floatFrame("x", []float64{1, 2, 3, 4, 5})
	out := f.WithColumn(frame.ColExpr("x").RollingMean(frame.Rolling(3)).Alias("ma"))
	// min_periods defaults to 3/2 = 1, so output starts immediately.
	assertFloats(t, []float64{1, 1.5, 2, 3, 4}, col(t, out, "ma"))

	out = f.WithColumn(frame.ColExpr("x").RollingMean(frame.Rolling(4)).Alias("ma"))
	// min_periods 2: the first slot has one observation only.
	assertFloats(t, []float64{math.NaN(), 1.5, 2, 2.5, 3.5}, col(t, out, "ma"))
}

func TestRollingSkipsNulls(t *testing.T) {
	f := floatFrame("x", []float64{1, math.NaN(), 3, 4})
	out := f.WithColumn(frame.ColExpr("x").RollingSum(frame.Rolling(2).WithMinPeriods(1)).Alias("s"))
	assertFloats(t, []float64{1, 1, 3, 7}, col(t, out, "s"))
}

func TestShiftAndDiff(t *testing.T) {
	f := floatFrame("x", []float64{1, 2, 4, 8})
	out := f.
		WithColumn(frame.ColExpr("x").Shift(1).Alias("lag")).
		WithColumn(frame.ColExpr("x").Shift(-1).Alias("lead")).
		WithColumn(frame.ColExpr("x").Diff(1).Alias("d")).
		WithColumn(frame.ColExpr("x").PctChange(1).Alias("r"))
	assertFloats(t, []float64{math.NaN(), 1, 2, 4}, col(t, out, "lag"))
	assertFloats(t, []float64{2, 4, 8, math.NaN()}, col(t, out, "lead"))
	assertFloats(t, []float64{math.NaN(), 1, 2, 4}, col(t, out, "d"))
	assertFloats(t, []float64{math.NaN(), 1, 1, 1}, col(t, out, "r"))
}

func TestWhenOtherwiseNullCondition(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{1, 0, math.NaN()}, series.Float, "c"),
	))
	e := frame.When(frame.ColExpr("c").Gt(frame.Lit(0))).
		Then(frame.Lit(10)).
		Otherwise(frame.Lit(-10)).Alias("v")
	out := f.WithColumn(e)
	assertFloats(t, []float64{10, -10, math.NaN()}, col(t, out, "v"))
}

func TestForwardFill(t *testing.T) {
	f := floatFrame("x", []float64{math.NaN(), 1, math.NaN(), math.NaN(), 2})
	out := f.WithColumn(frame.ColExpr("x").ForwardFill().Alias("ff"))
	assertFloats(t, []float64{math.NaN(), 1, 1, 1, 2}, col(t, out, "ff"))
}

func TestWinsorizeQuantile(t *testing.T) {
	vals := make([]float64, 101)
	for i := range vals {
		vals[i] = float64(i)
	}
	f := floatFrame("x", vals)
	out := f.WithColumn(frame.ColExpr("x").Winsorize(frame.WinsorizeQuantile, 0.01).Alias("w"))
	w := col(t, out, "w")
	assert.InDelta(t, 1, w[0], 1e-9)
	assert.InDelta(t, 99, w[100], 1e-9)
	assert.InDelta(t, 50, w[50], 1e-9)
}

func TestTcutBounds(t *testing.T) {
	f := floatFrame("x", []float64{-5, 0.5, 1.5, 5})
	bins := []float64{0, 1, 2}
	labels := []float64{10, 20}

	out := f.WithColumn(frame.ColExpr("x").Tcut(bins, labels, true, true).Alias("b"))
	assertFloats(t, []float64{10, 10, 20, 20}, col(t, out, "b"))

	out = f.WithColumn(frame.ColExpr("x").Tcut(bins, labels, true, false).Alias("b"))
	assertFloats(t, []float64{math.NaN(), 10, 20, math.NaN()}, col(t, out, "b"))
}

func TestHalfLifeAR1(t *testing.T) {
	// An AR(1) series with coefficient 0.5 decorrelates at lag 1.
	n := 500
	vals := make([]float64, n)
	vals[0] = 1
	x := 1.0
	for i := 1; i < n; i++ {
		// Deterministic pseudo-noise keeps the test reproducible.
		x = math.Mod(x*997+0.123, 1) - 0.5
		vals[i] = 0.5*vals[i-1] + x
	}
	f := floatFrame("x", vals)
	out := f.Select(frame.ColExpr("x").HalfLife(0).Alias("hl"))
	assertFloats(t, []float64{1}, col(t, out, "hl"))

	// Too few observations yield null.
	short := floatFrame("x", []float64{1, math.NaN(), math.NaN(), math.NaN()})
	out = short.Select(frame.ColExpr("x").HalfLife(0).Alias("hl"))
	assertFloats(t, []float64{math.NaN()}, col(t, out, "hl"))
}

func TestGroupByAgg(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]string{"a", "b", "a", "b"}, series.String, "k"),
		series.New([]float64{1, 2, 3, 4}, series.Float, "v"),
	))
	out := f.GroupBy([]string{"k"}, true).Agg(
		frame.ColExpr("v").Mean().Alias("mean"),
		frame.ColExpr("v").Last().Alias("last"),
	)
	require.NoError(t, out.Err())
	assertFloats(t, []float64{2, 3}, col(t, out, "mean"))
	assertFloats(t, []float64{3, 4}, col(t, out, "last"))
}

func TestGroupByDynamicClosed(t *testing.T) {
	// Times 0..5 with a window of 3ms.
	times := []float64{0, 1, 2, 3, 4, 5}
	f := frame.New(dataframe.New(
		series.New(times, series.Float, "time"),
		series.New([]float64{1, 2, 3, 4, 5, 6}, series.Float, "v"),
	))

	left := f.GroupByDynamic("time", 3, core.ClosedLeft, core.LabelLeft).Agg(frame.ColExpr("v").Sum().Alias("s"))
	require.NoError(t, left.Err())
	assertFloats(t, []float64{6, 15}, col(t, left, "s"))

	// Right-closed: the edge point t=3 belongs to the first window.
	right := f.GroupByDynamic("time", 3, core.ClosedRight, core.LabelLeft).Agg(frame.ColExpr("v").Sum().Alias("s"))
	require.NoError(t, right.Err())
	assertFloats(t, []float64{1, 9, 11}, col(t, right, "s"))
}

func TestAlign(t *testing.T) {
	f1 := frame.New(dataframe.New(
		series.New([]float64{1, 2, 3}, series.Float, "time"),
		series.New([]float64{10, 20, 30}, series.Float, "v"),
	))
	f2 := frame.New(dataframe.New(
		series.New([]float64{2, 3, 4}, series.Float, "time"),
		series.New([]float64{200, 300, 400}, series.Float, "v"),
	))
	aligned, err := frame.Align(frame.Frames{f1, f2}, "time")
	require.NoError(t, err)
	require.Len(t, aligned, 2)

	assertFloats(t, []float64{1, 2, 3, 4}, col(t, aligned[0], "time"))
	assertFloats(t, []float64{10, 20, 30, math.NaN()}, col(t, aligned[0], "v"))
	assertFloats(t, []float64{math.NaN(), 200, 300, 400}, col(t, aligned[1], "v"))

	names, err := aligned[0].Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "v"}, names)
}

func TestHorizontalAgg(t *testing.T) {
	f1 := frame.New(dataframe.New(
		series.New([]float64{1, 2}, series.Float, "time"),
		series.New([]float64{1, math.NaN()}, series.Float, "x"),
		series.New([]float64{1, 1}, series.Float, "w"),
	))
	f2 := frame.New(dataframe.New(
		series.New([]float64{1, 2}, series.Float, "time"),
		series.New([]float64{3, 5}, series.Float, "x"),
		series.New([]float64{3, 1}, series.Float, "w"),
	))
	out, err := frame.Frames{f1, f2}.HorizontalAgg(
		[]string{"time"},
		[]frame.HAgg{
			{Col: "x", Method: frame.HAggMean, As: "x_mean"},
			{Col: "x", Method: frame.HAggWeightMean, WeightCol: "w", As: "x_wm"},
		},
	)
	require.NoError(t, err)
	assertFloats(t, []float64{2, 5}, col(t, out, "x_mean"))
	assertFloats(t, []float64{2.5, 5}, col(t, out, "x_wm"))
}

func TestLazyCollect(t *testing.T) {
	f := floatFrame("x", []float64{1, 2, 3}).Lazy().
		WithColumn(frame.ColExpr("x").Mul(frame.Lit(2)).Alias("y")).
		Filter(frame.ColExpr("y").Gt(frame.Lit(2)))
	assert.True(t, f.IsLazy())
	out := f.Collect()
	require.NoError(t, out.Err())
	assertFloats(t, []float64{4, 6}, col(t, out, "y"))
}

func TestRankPct(t *testing.T) {
	f := floatFrame("x", []float64{3, 1, 2, math.NaN()})
	out := f.WithColumn(frame.ColExpr("x").Rank(true).Alias("r"))
	assertFloats(t, []float64{1, 1.0 / 3, 2.0 / 3, math.NaN()}, col(t, out, "r"))
}

func TestTsRegxBetaSlope(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{1, 2, math.NaN(), 4}, series.Float, "x"),
		series.New([]float64{5, 8, 11, 14}, series.Float, "y"),
	))
	out := f.WithColumn(
		frame.ColExpr("y").TsRegxBeta(frame.ColExpr("x"), frame.Rolling(4)).Alias("beta"))
	// y = 3x + 2 wherever both sides are observed; the row with a null x
	// drops out of every window instead of poisoning it
	assertFloats(t, []float64{math.NaN(), 3, 3, 3}, col(t, out, "beta"))
}

func TestTsRegxBetaIdenticalColumns(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{0, 2, 4, 6}, series.Float, "x"),
		series.New([]float64{0, 2, 4, 6}, series.Float, "y"),
	))
	out := f.WithColumn(
		frame.ColExpr("y").TsRegxBeta(frame.ColExpr("x"), frame.Rolling(4)).Alias("beta"))
	assertFloats(t, []float64{math.NaN(), 1, 1, 1}, col(t, out, "beta"))
}

func TestGroupByDynamicBucketOrder(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{200, 1000, 1800}, series.Float, "time"),
		series.New([]float64{1, 2, 3}, series.Float, "v"),
	))
	out := f.GroupByDynamic("time", 800, core.ClosedLeft, core.LabelLeft).
		Agg(frame.ColExpr("v").Last().Alias("v"))
	require.NoError(t, out.Err())
	// numeric keys sort numerically, not lexicographically (800 < 1600)
	assertFloats(t, []float64{0, 800, 1600}, col(t, out, "time"))
	assertFloats(t, []float64{1, 2, 3}, col(t, out, "v"))
}
