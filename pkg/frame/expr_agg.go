package frame

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// agg turns an expression into a length-1 aggregation over its valid values.
func (e Expr) agg(kernel func(valid []float64) float64) Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		valid := make([]float64, 0, len(c.Floats))
		for _, v := range c.Floats {
			if !math.IsNaN(v) {
				valid = append(valid, v)
			}
		}
		if len(valid) == 0 {
			return Col{Floats: []float64{math.NaN()}}, nil
		}
		return Col{Floats: []float64{kernel(valid)}}, nil
	})
}

// Mean aggregates to the mean of valid values.
func (e Expr) Mean() Expr {
	return e.agg(func(v []float64) float64 { return stat.Mean(v, nil) })
}

// Sum aggregates to the sum of valid values.
func (e Expr) Sum() Expr {
	return e.agg(func(v []float64) float64 {
		s := 0.0
		for _, x := range v {
			s += x
		}
		return s
	})
}

// Min aggregates to the minimum.
func (e Expr) Min() Expr {
	return e.agg(func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			if x < m {
				m = x
			}
		}
		return m
	})
}

// Max aggregates to the maximum.
func (e Expr) Max() Expr {
	return e.agg(func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			if x > m {
				m = x
			}
		}
		return m
	})
}

// Median aggregates to the median.
func (e Expr) Median() Expr {
	return e.Quantile(0.5)
}

// Quantile aggregates to the q-th quantile with linear interpolation.
func (e Expr) Quantile(q float64) Expr {
	return e.agg(func(v []float64) float64 {
		s := append([]float64(nil), v...)
		sort.Float64s(s)
		return stat.Quantile(q, stat.LinInterp, s, nil)
	})
}

// Std aggregates to the sample standard deviation; fewer than two valid
// values yield null.
func (e Expr) Std() Expr {
	return e.agg(func(v []float64) float64 {
		if len(v) < 2 {
			return math.NaN()
		}
		return stat.StdDev(v, nil)
	})
}

// Var aggregates to the sample variance.
func (e Expr) Var() Expr {
	return e.agg(func(v []float64) float64 {
		if len(v) < 2 {
			return math.NaN()
		}
		return stat.Variance(v, nil)
	})
}

// Skew aggregates to the sample skewness; undefined values go null.
func (e Expr) Skew() Expr {
	return e.agg(func(v []float64) float64 {
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

// Kurt aggregates to the sample excess kurtosis.
func (e Expr) Kurt() Expr {
	return e.agg(func(v []float64) float64 {
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

// First aggregates to the first value, null included.
func (e Expr) First() Expr {
	return e.Nth(0)
}

// Last aggregates to the last value, null included.
func (e Expr) Last() Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		if c.IsStr() {
			if len(c.Strs) == 0 {
				return Col{Strs: []string{""}}, nil
			}
			return Col{Strs: []string{c.Strs[len(c.Strs)-1]}}, nil
		}
		if len(c.Floats) == 0 {
			return Col{Floats: []float64{math.NaN()}}, nil
		}
		return Col{Floats: []float64{c.Floats[len(c.Floats)-1]}}, nil
	})
}

// Nth aggregates to the i-th value, null included; out of range goes null.
func (e Expr) Nth(i int) Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		if c.IsStr() {
			if i < 0 || i >= len(c.Strs) {
				return Col{Strs: []string{""}}, nil
			}
			return Col{Strs: []string{c.Strs[i]}}, nil
		}
		if i < 0 || i >= len(c.Floats) {
			return Col{Floats: []float64{math.NaN()}}, nil
		}
		return Col{Floats: []float64{c.Floats[i]}}, nil
	})
}

// Count aggregates to the number of valid values.
func (e Expr) Count() Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		n := 0
		if c.IsStr() {
			for _, s := range c.Strs {
				if s != "" {
					n++
				}
			}
		} else {
			for _, v := range c.Floats {
				if !math.IsNaN(v) {
					n++
				}
			}
		}
		return Col{Floats: []float64{float64(n)}}, nil
	})
}

// LenAgg aggregates to the column length, nulls included.
func (e Expr) LenAgg() Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		return Col{Floats: []float64{float64(c.Len())}}, nil
	})
}

// pairedValid extracts the rows where both columns hold valid values.
func pairedValid(a, b Col) ([]float64, []float64) {
	xs := make([]float64, 0, len(a.Floats))
	ys := make([]float64, 0, len(a.Floats))
	for i := range a.Floats {
		x, y := a.Floats[i], b.Floats[i]
		if !math.IsNaN(x) && !math.IsNaN(y) {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

// PearsonCorr aggregates to the Pearson correlation of two expressions over
// their jointly valid rows.
func (e Expr) PearsonCorr(o Expr) Expr {
	return e.corrWith(o, false)
}

// SpearmanCorr aggregates to the rank correlation of two expressions.
func (e Expr) SpearmanCorr(o Expr) Expr {
	return e.corrWith(o, true)
}

func (e Expr) corrWith(o Expr, spearman bool) Expr {
	name := e.name + ".corr(" + o.name + ")"
	return NewExpr(name, func(ctx *Ctx) (Col, error) {
		ca, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		cb, err := o.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		ca, cb, err = broadcast2(ca, cb)
		if err != nil {
			return Col{}, err
		}
		xs, ys := pairedValid(ca, cb)
		if len(xs) < 2 {
			return Col{Floats: []float64{math.NaN()}}, nil
		}
		if spearman {
			xs = ranks(xs)
			ys = ranks(ys)
		}
		return Col{Floats: []float64{stat.Correlation(xs, ys, nil)}}, nil
	})
}

// ranks returns average ranks for a slice, ties averaged.
func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })
	out := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := (float64(i)+float64(j))/2.0 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}
