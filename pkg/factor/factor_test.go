package factor_test

import (
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/factor"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickFrame() *frame.Frame {
	return frame.New(dataframe.New(
		series.New([]float64{100, 101, 102}, series.Float, "ask1"),
		series.New([]float64{99, 100, 101}, series.Float, "bid1"),
		series.New([]float64{5, 6, 7}, series.Float, "ask1_v"),
		series.New([]float64{10, 6, 3}, series.Float, "bid1_v"),
	))
}

func TestCombinatorNames(t *testing.T) {
	mid := factor.Mid()
	ask, err := factor.ParsePlFactor("ask_1")
	require.NoError(t, err)
	bid, err := factor.ParsePlFactor("bid_1")
	require.NoError(t, err)

	assert.Equal(t, "mid + ask_1", factor.Add(mid, ask).Name())
	assert.Equal(t, "ask_1 / bid_1", factor.Div(ask, bid).Name())
	assert.Equal(t, "close_mean_20", factor.Mean(factor.Close, param.NewI32(20)).Name())
	assert.Equal(t, "close_bias_10", factor.Bias(factor.Close, param.NewI32(10)).Name())
	assert.Equal(t, "bid_1.imb(ask_1)", factor.Imbalance(bid, ask).Name())
	assert.Equal(t, "ask_1.corr(bid_1)_20", factor.Corr(ask, bid, param.NewI32(20)).Name())
	assert.Equal(t, "iif(ask_1 > bid_1,ask_1,bid_1)",
		factor.IIf(factor.Gt(ask, bid), ask, bid).Name())
}

func TestMeanWindowOneIsIdentity(t *testing.T) {
	f := factor.Mean(factor.Close, param.NewI32(1))
	assert.Equal(t, "close", f.Name())
	// None also defaults to the identity window.
	f = factor.Mean(factor.Close, param.NewNone())
	assert.Equal(t, "close", f.Name())
}

func TestParseRoundTrip(t *testing.T) {
	for _, name := range []string{"close", "ma_3", "ret_5", "close_bias_10", "mid", "obi_2"} {
		f, err := factor.ParsePlFactor(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, f.Name())
	}

	_, err := factor.ParsePlFactor("no_such_factor")
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestDuplicateRegistration(t *testing.T) {
	err := factor.RegisterPl("close", func(param.Param) (factor.PlFactor, error) {
		return factor.Close, nil
	})
	assert.ErrorIs(t, err, core.ErrRegistry)
}

func TestMidAndImbalanceEval(t *testing.T) {
	f := tickFrame()
	mid, err := factor.Mid().Expr()
	require.NoError(t, err)
	obi, err := factor.Obi(param.NewI32(1)).Expr()
	require.NoError(t, err)

	out := f.WithColumns(mid, obi)
	require.NoError(t, out.Err())

	mids, err := out.Floats("mid")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{99.5, 100.5, 101.5}, mids, 1e-9)

	obis, err := out.Floats("obi_1")
	require.NoError(t, err)
	// (10-5)/15, (6-6)/12, (3-7)/10
	assert.InDeltaSlice(t, []float64{1.0 / 3, 0, -0.4}, obis, 1e-9)
}

func TestMaEval(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{1, 2, 3, 4}, series.Float, "close"),
	))
	ma, err := factor.Ma(param.NewI32(3)).Expr()
	require.NoError(t, err)
	out := f.WithColumn(ma)
	vals, err := out.Floats("ma_3")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1.5, 2, 3}, vals, 1e-9)
}

func TestRsrsSlope(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{2, 4, 6, 8}, series.Float, "high"),
		series.New([]float64{1, 2, 3, 4}, series.Float, "low"),
	))
	fac, err := factor.ParsePlFactor("rsrs_4")
	require.NoError(t, err)
	e, err := fac.Expr()
	require.NoError(t, err)
	out := f.WithColumn(e)
	require.NoError(t, out.Err())
	vals, err := out.Floats("rsrs_4")
	require.NoError(t, err)
	// high moves 2 for every 1 in low
	assert.InDelta(t, 2.0, vals[3], 1e-9)
}

func TestMarketPlEval(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{1, 2}, series.Float, "close"),
		series.New([]float64{2, 2}, series.Float, "volume"),
		series.New([]float64{4, 4}, series.Float, "amt"),
	))
	mp, err := factor.MarketPl(param.NewI32(2)).Expr()
	require.NoError(t, err)
	out := f.WithColumn(mp)
	vals, err := out.Floats("marketpl_2")
	require.NoError(t, err)
	// avg trade price is 2, so marketpl is close/2
	assert.InDeltaSlice(t, []float64{0.5, 1}, vals, 1e-9)
}

func TestAtTimeSessionMinutes(t *testing.T) {
	f := frame.New(dataframe.New(
		// 10:00 and 13:30 UTC
		series.New([]float64{36_000_000, 48_600_000}, series.Float, "time"),
	))
	at, err := factor.AtTime().Expr()
	require.NoError(t, err)
	out := f.WithColumn(at)
	vals, err := out.Floats("at_time")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{30, 150}, vals, 1e-9)
}

func TestIIfNullCondition(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{1, math.NaN(), 3}, series.Float, "close"),
		series.New([]float64{10, 20, 30}, series.Float, "open"),
	))
	iif := factor.IIf(
		factor.Gt(factor.Close, factor.Lit(2)),
		factor.Open,
		factor.Neg(factor.Open),
	)
	e, err := iif.Expr()
	require.NoError(t, err)
	out := f.WithColumn(e.Alias("v"))
	vals, err := out.Floats("v")
	require.NoError(t, err)
	assert.InDelta(t, -10, vals[0], 1e-9)
	assert.True(t, math.IsNaN(vals[1]))
	assert.InDelta(t, 30, vals[2], 1e-9)
}

func TestTFactorRsi(t *testing.T) {
	n := 40
	close := make([]float64, n)
	for i := range close {
		close[i] = 100 + float64(i%7) - float64(i%3)
	}
	f := frame.New(dataframe.New(series.New(close, series.Float, "close")))

	rsi, err := factor.ParseTFactor("rsi_14")
	require.NoError(t, err)
	assert.Equal(t, "rsi_14", rsi.Name())

	s, err := rsi.Eval(f)
	require.NoError(t, err)
	vals := s.Float()
	require.Len(t, vals, n)
	assert.True(t, math.IsNaN(vals[0]))
	assert.False(t, math.IsNaN(vals[n-1]))
	assert.GreaterOrEqual(t, vals[n-1], 0.0)
	assert.LessOrEqual(t, vals[n-1], 100.0)
}

func TestFactorAggExpr(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{1, 2, 3, 4}, series.Float, "close"),
	))
	agg := factor.NewFactorAgg(factor.Close, factor.AggLast)
	in, err := agg.FacExpr()
	require.NoError(t, err)
	out := f.Select(agg.AggExpr(in))
	vals, err := out.Floats("close")
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, vals)
}
