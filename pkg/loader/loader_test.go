package loader

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

func barsFrame(times []int64, closes []float64, dates []float64) *frame.Frame {
	tf := make([]float64, len(times))
	for i, t := range times {
		tf[i] = float64(t)
	}
	return frame.New(dataframe.New(
		series.New(tf, series.Float, "time"),
		series.New(closes, series.Float, "close"),
		series.New(dates, series.Float, "trading_date"),
	))
}

func testLoader(t *testing.T) *DataLoader {
	t.Helper()
	a := barsFrame(
		[]int64{0, 1000, 2000, 3000},
		[]float64{1, 2, 3, 4},
		[]float64{20230101, 20230101, 20230102, 20230102},
	)
	b := barsFrame(
		[]int64{0, 1000, 2000, 3000},
		[]float64{10, 20, 30, 40},
		[]float64{20230101, 20230101, 20230102, 20230102},
	)
	dl, err := NewFromSymbolDfs("coin", []string{"btc", "eth"}, frame.Frames{a, b})
	require.NoError(t, err)
	return dl
}

func frameFloats(t *testing.T, f *frame.Frame, name string) []float64 {
	t.Helper()
	vals, err := f.Floats(name)
	require.NoError(t, err)
	return vals
}

func TestWithFacsPerSymbol(t *testing.T) {
	dl := testLoader(t)
	out, err := dl.WithFacs([]string{"ma_3"}, core.BackendExpr)
	require.NoError(t, err)

	fa, err := out.FrameBySymbol("btc")
	require.NoError(t, err)
	fb, err := out.FrameBySymbol("eth")
	require.NoError(t, err)

	va := frameFloats(t, fa, "ma_3")
	vb := frameFloats(t, fb, "ma_3")
	assert.InDelta(t, 2.0, va[2], 1e-9)
	assert.InDelta(t, 3.0, va[3], 1e-9)
	// each symbol's rolling state is independent
	assert.InDelta(t, 20.0, vb[2], 1e-9)
	assert.InDelta(t, 30.0, vb[3], 1e-9)
}

func TestWithFacsPrefixedBuilder(t *testing.T) {
	dl := testLoader(t)
	out, err := dl.WithFacs([]string{"close_bias_10"}, core.BackendExpr)
	require.NoError(t, err)

	f, err := out.Frame(0)
	require.NoError(t, err)
	assert.True(t, f.HasColumn("close_bias_10"))
}

func TestWithFacsSkipsExisting(t *testing.T) {
	dl := testLoader(t).WithColumns(frame.Lit(7).Alias("ma_3"))
	out, err := dl.WithFacs([]string{"ma_3"}, core.BackendExpr)
	require.NoError(t, err)

	f, err := out.Frame(0)
	require.NoError(t, err)
	vals := frameFloats(t, f, "ma_3")
	for _, v := range vals {
		assert.InDelta(t, 7.0, v, 1e-9)
	}
}

func TestWithFacsUnknown(t *testing.T) {
	dl := testLoader(t)
	_, err := dl.WithFacs([]string{"no_such_factor_9"}, core.BackendExpr)
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestGroupByTimeDaily(t *testing.T) {
	dl := testLoader(t)
	dl.Freq = "60s"
	require.Equal(t, "trading_date", dl.DailyCol())

	out, err := dl.GroupByTime("daily", GroupByTimeOpt{}).
		Agg(frame.ColExpr("close").Last().Alias("close"))
	require.NoError(t, err)

	f, err := out.FrameBySymbol("btc")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, frameFloats(t, f, "close"))
}

func TestGroupByTimeDuration(t *testing.T) {
	dl := testLoader(t)
	out, err := dl.GroupByTime("2s", GroupByTimeOpt{LastTime: "time"}).
		Agg(frame.ColExpr("close").Last().Alias("close"))
	require.NoError(t, err)

	f, err := out.FrameBySymbol("btc")
	require.NoError(t, err)
	// the bucket label is replaced by the last observed timestamp
	assert.Equal(t, []float64{1000, 3000}, frameFloats(t, f, "time"))
	assert.Equal(t, []float64{2, 4}, frameFloats(t, f, "close"))
}

func TestWithLabelsForwardReturn(t *testing.T) {
	dl := testLoader(t)
	out, err := dl.WithLabels([]string{"ret_1"})
	require.NoError(t, err)

	f, err := out.FrameBySymbol("btc")
	require.NoError(t, err)
	r := frameFloats(t, f, "ret_1")
	require.Len(t, r, 4)
	// each row carries the return realized over the following bar
	assert.InDelta(t, 1.0, r[0], 1e-9)
	assert.InDelta(t, 0.5, r[1], 1e-9)
	assert.InDelta(t, 1.0/3, r[2], 1e-9)
	assert.True(t, math.IsNaN(r[3]))
}

func TestWithLabelsExistingColumnUntouched(t *testing.T) {
	dl := testLoader(t)
	out, err := dl.WithLabels([]string{"close"})
	require.NoError(t, err)

	f, err := out.FrameBySymbol("btc")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, frameFloats(t, f, "close"))
}

func TestWithLabelsUnknown(t *testing.T) {
	dl := testLoader(t)
	_, err := dl.WithLabels([]string{"alpha_5"})
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestGroupByTimeBadRule(t *testing.T) {
	dl := testLoader(t)
	_, err := dl.GroupByTime("fortnightly", GroupByTimeOpt{}).
		Agg(frame.ColExpr("close").Last().Alias("close"))
	assert.ErrorIs(t, err, core.ErrDomain)
}

func TestConcatTagsSymbol(t *testing.T) {
	dl := testLoader(t)
	f, err := dl.Concat()
	require.NoError(t, err)

	h, err := f.Height()
	require.NoError(t, err)
	assert.Equal(t, 8, h)

	s, err := f.Column("symbol")
	require.NoError(t, err)
	recs := s.Records()
	assert.Equal(t, "btc", recs[0])
	assert.Equal(t, "eth", recs[7])
}

func TestMergeRejectsDuplicateSymbol(t *testing.T) {
	dl := testLoader(t)
	_, err := dl.Merge(testLoader(t))
	assert.ErrorIs(t, err, core.ErrShape)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dl := testLoader(t)
	dl.Freq = "1s"
	dl.Start = 0
	dl.End = 3000
	dl.Multiplier = map[string]float64{"btc": 1}

	dir := t.TempDir()
	require.NoError(t, dl.Save(dir))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dl.Typ, got.Typ)
	assert.Equal(t, dl.Symbols, got.Symbols)
	assert.Equal(t, dl.Freq, got.Freq)
	assert.Equal(t, dl.Multiplier, got.Multiplier)

	f, err := got.FrameBySymbol("eth")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 40}, frameFloats(t, f, "close"))
}

func TestLoadRejectsPlainDir(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, core.ErrSchema)
}

func TestWithStrategies(t *testing.T) {
	dl := testLoader(t)
	work := "ret_1__fix_time_(2, -0.1, 0.1)"
	out, err := dl.WithStrategies([]string{work})
	require.NoError(t, err)

	f, err := out.FrameBySymbol("btc")
	require.NoError(t, err)
	assert.True(t, f.HasColumn(work))

	pos := frameFloats(t, f, work)
	for _, v := range pos {
		if !math.IsNaN(v) {
			assert.Contains(t, []float64{-1, 0, 1}, v)
		}
	}
}
