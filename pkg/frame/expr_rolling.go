package frame

import (
	"fmt"
	"math"
	"sort"

	"github.com/raykavin/factorlab/pkg/core"
	"gonum.org/v1/gonum/stat"
)

// RollingOpt configures trailing-window kernels. MinPeriods is the number of
// non-null observations a window needs before it produces a value.
type RollingOpt struct {
	Window     int
	MinPeriods int
}

// Rolling builds the default options for a window: min_periods is half the
// window, and at least 1.
func Rolling(window int) RollingOpt {
	mp := window / 2
	if mp < 1 {
		mp = 1
	}
	return RollingOpt{Window: window, MinPeriods: mp}
}

// WithMinPeriods overrides the observation floor.
func (o RollingOpt) WithMinPeriods(mp int) RollingOpt {
	o.MinPeriods = mp
	return o
}

// rollingApply evaluates a kernel over trailing windows, feeding it only the
// valid (non-null) values of each window.
func (e Expr) rollingApply(name string, opt RollingOpt, kernel func(valid []float64) float64) Expr {
	return NewExpr(name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		n := len(c.Floats)
		out := make([]float64, n)
		valid := make([]float64, 0, opt.Window)
		for i := 0; i < n; i++ {
			lo := i - opt.Window + 1
			if lo < 0 {
				lo = 0
			}
			valid = valid[:0]
			for j := lo; j <= i; j++ {
				if v := c.Floats[j]; !math.IsNaN(v) {
					valid = append(valid, v)
				}
			}
			if len(valid) < opt.MinPeriods {
				out[i] = math.NaN()
				continue
			}
			out[i] = kernel(valid)
		}
		return Col{Floats: out}, nil
	})
}

// RollingMean is the trailing mean over valid observations.
func (e Expr) RollingMean(opt RollingOpt) Expr {
	return e.rollingApply(e.name, opt, func(v []float64) float64 {
		return stat.Mean(v, nil)
	})
}

// RollingSum is the trailing sum.
func (e Expr) RollingSum(opt RollingOpt) Expr {
	return e.rollingApply(e.name, opt, func(v []float64) float64 {
		s := 0.0
		for _, x := range v {
			s += x
		}
		return s
	})
}

// RollingStd is the trailing sample standard deviation; windows with a
// single observation yield null.
func (e Expr) RollingStd(opt RollingOpt) Expr {
	return e.rollingApply(e.name, opt, func(v []float64) float64 {
		if len(v) < 2 {
			return math.NaN()
		}
		return stat.StdDev(v, nil)
	})
}

// RollingMin is the trailing minimum.
func (e Expr) RollingMin(opt RollingOpt) Expr {
	return e.rollingApply(e.name, opt, func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			if x < m {
				m = x
			}
		}
		return m
	})
}

// RollingMax is the trailing maximum.
func (e Expr) RollingMax(opt RollingOpt) Expr {
	return e.rollingApply(e.name, opt, func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			if x > m {
				m = x
			}
		}
		return m
	})
}

// TsEwm is the trailing exponentially weighted mean with alpha 2/(window+1),
// normalized over the valid observations of each window.
func (e Expr) TsEwm(opt RollingOpt) Expr {
	alpha := 2.0 / (float64(opt.Window) + 1)
	return e.rollingApply(e.name, opt, func(v []float64) float64 {
		num, den, w := 0.0, 0.0, 1.0
		// Newest observation carries the largest weight.
		for i := len(v) - 1; i >= 0; i-- {
			num += v[i] * w
			den += w
			w *= 1 - alpha
		}
		return num / den
	})
}

// TsSkew is the trailing sample skewness.
func (e Expr) TsSkew(opt RollingOpt) Expr {
	return e.rollingApply(e.name, opt, func(v []float64) float64 {
		if len(v) < 3 {
			return math.NaN()
		}
		s := stat.Skew(v, nil)
		if math.IsInf(s, 0) {
			return math.NaN()
		}
		return s
	})
}

// TsKurt is the trailing excess kurtosis.
func (e Expr) TsKurt(opt RollingOpt) Expr {
	return e.rollingApply(e.name, opt, func(v []float64) float64 {
		if len(v) < 4 {
			return math.NaN()
		}
		k := stat.ExKurtosis(v, nil)
		if math.IsInf(k, 0) {
			return math.NaN()
		}
		return k
	})
}

// TsRank ranks the current value within its trailing window. With pct the
// rank is scaled to (0, 1]; with rev the ordering is reversed.
func (e Expr) TsRank(opt RollingOpt, pct, rev bool) Expr {
	return e.rollingApply(e.name, opt, func(v []float64) float64 {
		cur := v[len(v)-1]
		rank := 1.0
		for _, x := range v[:len(v)-1] {
			if (!rev && x < cur) || (rev && x > cur) {
				rank++
			} else if x == cur {
				rank += 0.5
			}
		}
		if pct {
			return rank / float64(len(v))
		}
		return rank
	})
}

// TsZscore standardizes the current value against its trailing window.
func (e Expr) TsZscore(opt RollingOpt) Expr {
	return e.rollingApply(e.name, opt, func(v []float64) float64 {
		if len(v) < 2 {
			return math.NaN()
		}
		sd := stat.StdDev(v, nil)
		if sd == 0 {
			return math.NaN()
		}
		return (v[len(v)-1] - stat.Mean(v, nil)) / sd
	})
}

// TsRegxBeta regresses the column on x over trailing windows and returns
// the slope. Rows where either side is null drop out of the window; fewer
// than min_periods joint observations yield null.
func (e Expr) TsRegxBeta(x Expr, opt RollingOpt) Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		yc, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		xc, err := x.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		if len(yc.Floats) != len(xc.Floats) {
			return Col{}, fmt.Errorf("%w: regx_beta over columns of length %d and %d",
				core.ErrShape, len(yc.Floats), len(xc.Floats))
		}
		n := len(yc.Floats)
		out := make([]float64, n)
		xs := make([]float64, 0, opt.Window)
		ys := make([]float64, 0, opt.Window)
		for i := 0; i < n; i++ {
			lo := i - opt.Window + 1
			if lo < 0 {
				lo = 0
			}
			xs, ys = xs[:0], ys[:0]
			for j := lo; j <= i; j++ {
				if !math.IsNaN(yc.Floats[j]) && !math.IsNaN(xc.Floats[j]) {
					xs = append(xs, xc.Floats[j])
					ys = append(ys, yc.Floats[j])
				}
			}
			if len(ys) < opt.MinPeriods || len(ys) < 2 {
				out[i] = math.NaN()
				continue
			}
			_, beta := stat.LinearRegression(xs, ys, nil, false)
			out[i] = beta
		}
		return Col{Floats: out}, nil
	})
}

// Rank ranks the whole column; ties take the average rank. With pct the
// ranks are scaled by the count of valid values.
func (e Expr) Rank(pct bool) Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		n := len(c.Floats)
		idx := make([]int, 0, n)
		for i, v := range c.Floats {
			if !math.IsNaN(v) {
				idx = append(idx, i)
			}
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return c.Floats[idx[a]] < c.Floats[idx[b]]
		})
		out := make([]float64, n)
		for i := range out {
			out[i] = math.NaN()
		}
		for i := 0; i < len(idx); {
			j := i
			for j+1 < len(idx) && c.Floats[idx[j+1]] == c.Floats[idx[i]] {
				j++
			}
			avg := (float64(i) + float64(j)) / 2.0
			for k := i; k <= j; k++ {
				out[idx[k]] = avg + 1
			}
			i = j + 1
		}
		if pct {
			cnt := float64(len(idx))
			for i := range out {
				out[i] /= cnt
			}
		}
		return Col{Floats: out}, nil
	})
}
