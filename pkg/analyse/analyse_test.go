package analyse

import (
	"bytes"
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/loader"
	"github.com/raykavin/factorlab/pkg/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symbolFrame(fac, label, dates []float64) *frame.Frame {
	times := make([]float64, len(fac))
	for i := range times {
		times[i] = float64(i * 1000)
	}
	return frame.New(dataframe.New(
		series.New(times, series.Float, "time"),
		series.New(dates, series.Float, "trading_date"),
		series.New(fac, series.Float, "f"),
		series.New(label, series.Float, "r_1"),
	))
}

func twoSymbolLoader(t *testing.T) *loader.DataLoader {
	t.Helper()
	fac := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	dates := []float64{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}
	up := make([]float64, len(fac))
	down := make([]float64, len(fac))
	for i, v := range fac {
		up[i] = 2 * v
		down[i] = -v
	}
	dl, err := loader.NewFromSymbolDfs("coin", []string{"a", "b"}, frame.Frames{
		symbolFrame(fac, up, dates),
		symbolFrame(fac, down, dates),
	})
	require.NoError(t, err)
	return dl
}

func TestInferLabelPeriods(t *testing.T) {
	periods, err := inferLabelPeriods([]string{"ret_1", "ret_5"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, periods)

	_, err = inferLabelPeriods([]string{"close"})
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestTsGroupRankBuckets(t *testing.T) {
	f := frame.New(dataframe.New(
		series.New([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, series.Float, "f"),
	))
	out := f.Select(tsGroup(frame.ColExpr("f"), 5).Alias("g"))
	require.NoError(t, out.Err())

	got, err := out.Floats("g")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 2, 2, 3, 3, 4, 4, 5, 5}, got)
}

func TestWithICOverall(t *testing.T) {
	fa, err := New(twoSymbolLoader(t), []string{"f"}, []string{"r_1"}, false)
	require.NoError(t, err)
	fa, err = fa.WithICOverall(core.Pearson)
	require.NoError(t, err)

	require.Len(t, fa.Summary.ICOverall, 1)
	h, err := fa.Summary.ICOverall[0].Height()
	require.NoError(t, err)
	assert.Equal(t, 1, h)

	// one symbol correlates at +1, the other at -1; both clip to 0.3 and the
	// counts match, so the weighted mean cancels out
	vals, err := fa.Summary.ICOverall[0].Floats("r_1")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, vals[0], 1e-9)

	ic, err := fa.Summary.SymbolIC[0].Frame(0)
	require.NoError(t, err)
	icVals, err := ic.Floats("r_1")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, icVals[0], 1e-9)
}

func TestWithTsIC(t *testing.T) {
	fa, err := New(twoSymbolLoader(t), []string{"f"}, []string{"r_1"}, false)
	require.NoError(t, err)
	fa, err = fa.WithTsIC("daily", core.Pearson)
	require.NoError(t, err)

	require.Len(t, fa.Summary.TsIC, 1)
	tsIC := fa.Summary.TsIC[0]
	h, err := tsIC.Height()
	require.NoError(t, err)
	assert.Equal(t, 3, h)

	vals, err := tsIC.Floats("r_1")
	require.NoError(t, err)
	for _, v := range vals {
		assert.InDelta(t, 0.0, v, 1e-9)
	}
}

func TestWithTsGroupRet(t *testing.T) {
	fac := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	ones := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	dates := []float64{1, 1, 2, 2, 1, 1, 2, 2}
	dl, err := loader.NewFromSymbolDfs("coin", []string{"a"}, frame.Frames{
		symbolFrame(fac, ones, dates),
	})
	require.NoError(t, err)

	fa, err := New(dl, []string{"f"}, []string{"r_1"}, false)
	require.NoError(t, err)
	fa, err = fa.WithTsGroupRet(2)
	require.NoError(t, err)

	require.Len(t, fa.Summary.TsGroupRets, 1)
	tgr := fa.Summary.TsGroupRets[0]
	h, err := tgr.Height()
	require.NoError(t, err)
	assert.Equal(t, 4, h) // 2 groups x 2 days

	vals, err := tgr.Floats("r_1")
	require.NoError(t, err)
	for _, v := range vals {
		assert.InDelta(t, 2.0, v, 1e-9)
	}
}

func TestWithGroupRetOverall(t *testing.T) {
	fac := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	dates := []float64{1, 1, 1, 1, 1, 2, 2, 2, 2, 2}
	dl, err := loader.NewFromSymbolDfs("coin", []string{"a"}, frame.Frames{
		symbolFrame(fac, fac, dates),
	})
	require.NoError(t, err)

	fa, err := New(dl, []string{"f"}, []string{"r_1"}, false)
	require.NoError(t, err)
	fa, err = fa.WithGroupRet("", 2)
	require.NoError(t, err)

	require.Len(t, fa.Summary.GroupRets, 1)
	gr := fa.Summary.GroupRets[0]
	groups, err := gr.Floats("group")
	require.NoError(t, err)
	vals, err := gr.Floats("r_1")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, groups)
	assert.InDelta(t, 3.0, vals[0], 1e-9)
	assert.InDelta(t, 8.0, vals[1], 1e-9)
}

func TestWithHalfLife(t *testing.T) {
	n := 16
	alt := make([]float64, n)
	ones := make([]float64, n)
	dates := make([]float64, n)
	for i := range alt {
		alt[i] = 1
		if i%2 == 1 {
			alt[i] = -1
		}
		ones[i] = 1
		dates[i] = float64(1 + i/8)
	}
	dl, err := loader.NewFromSymbolDfs("coin", []string{"a", "b"}, frame.Frames{
		symbolFrame(alt, ones, dates),
		symbolFrame(alt, ones, dates),
	})
	require.NoError(t, err)

	fa, err := New(dl, []string{"f"}, []string{"r_1"}, false)
	require.NoError(t, err)
	fa, err = fa.WithHalfLife()
	require.NoError(t, err)

	require.NotNil(t, fa.Summary.HalfLife)
	vals, err := fa.Summary.HalfLife.Floats("f")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vals[0], 1e-9)
}

func TestFinishReport(t *testing.T) {
	fa, err := New(twoSymbolLoader(t), []string{"f"}, []string{"r_1"}, false)
	require.NoError(t, err)
	fa, err = fa.WithICOverall(core.Pearson)
	require.NoError(t, err)
	fa, err = fa.WithTsIC("daily", core.Pearson)
	require.NoError(t, err)
	fa, err = fa.WithHalfLife()
	require.NoError(t, err)

	report, err := fa.Summary.Finish()
	require.NoError(t, err)

	fs, err := report.Get("f")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, fs.IC["r_1"], 1e-9)
	assert.False(t, math.IsNaN(fs.HalfLife))

	byPos, err := report.At(0)
	require.NoError(t, err)
	assert.Equal(t, fs.Fac, byPos.Fac)
	_, err = report.At(3)
	assert.ErrorIs(t, err, core.ErrShape)
	_, err = report.Get("missing")
	assert.ErrorIs(t, err, core.ErrParse)

	ic := report.IC()
	require.NoError(t, ic.Err())
	facCol, err := ic.Column("fac")
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, facCol.Records())

	overall, err := report.ICOverall()
	require.NoError(t, err)
	assert.True(t, overall.HasColumn("fac"))

	var buf bytes.Buffer
	report.Render(&buf)
	assert.Contains(t, buf.String(), "IC")

	buf.Reset()
	require.NoError(t, report.HistIC(&buf, "f", "r_1", 5))
	assert.NotEmpty(t, buf.String())

	interval, err := report.ICBootstrap("f", "r_1", metric.Mean, 100, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, interval.Mean, 1e-9)
}
