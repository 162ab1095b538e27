package frame

import (
	"fmt"
	"math"
	"sort"

	"github.com/raykavin/factorlab/pkg/core"
	"gonum.org/v1/gonum/stat"
)

// ProtectDiv divides elementwise but yields null where the divisor is zero.
func (e Expr) ProtectDiv(o Expr) Expr {
	return e.binFloat(e.name+" / "+o.name, o, false, nanGuard(func(a, b float64) float64 {
		if b == 0 {
			return math.NaN()
		}
		return a / b
	}))
}

// Vadd adds elementwise but, unlike Add, a one-sided null yields the
// non-null side instead of null.
func (e Expr) Vadd(o Expr) Expr {
	return e.binFloat(e.name+" + "+o.name, o, false, func(a, b float64) float64 {
		switch {
		case math.IsNaN(a):
			return b
		case math.IsNaN(b):
			return a
		default:
			return a + b
		}
	})
}

// Imbalance is (a-b)/(a+b) with a zero denominator going null.
func (e Expr) Imbalance(o Expr) Expr {
	return e.Sub(o).ProtectDiv(e.Vadd(o)).Alias(e.name + ".imb(" + o.name + ")")
}

// WinsorizeMethod selects how Winsorize derives its bounds.
type WinsorizeMethod int

const (
	// WinsorizeQuantile clips to the [q, 1-q] quantiles.
	WinsorizeQuantile WinsorizeMethod = iota
	// WinsorizeMedian clips to median ± k·MAD.
	WinsorizeMedian
	// WinsorizeSigma clips to mean ± k·std.
	WinsorizeSigma
)

func quantileOf(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	return stat.Quantile(q, stat.LinInterp, sorted, nil)
}

// Winsorize clips outliers using the given method. The parameter defaults to
// 0.01 for the quantile method and 3 for the median and sigma methods when
// NaN is passed.
func (e Expr) Winsorize(method WinsorizeMethod, k float64) Expr {
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
			return c, nil
		}
		var lo, hi float64
		switch method {
		case WinsorizeQuantile:
			q := k
			if math.IsNaN(q) {
				q = 0.01
			}
			sort.Float64s(valid)
			lo, hi = quantileOf(valid, q), quantileOf(valid, 1-q)
		case WinsorizeMedian:
			m := k
			if math.IsNaN(m) {
				m = 3
			}
			sort.Float64s(valid)
			med := quantileOf(valid, 0.5)
			dev := make([]float64, len(valid))
			for i, v := range valid {
				dev[i] = math.Abs(v - med)
			}
			sort.Float64s(dev)
			mad := quantileOf(dev, 0.5)
			lo, hi = med-m*mad, med+m*mad
		case WinsorizeSigma:
			m := k
			if math.IsNaN(m) {
				m = 3
			}
			mean := stat.Mean(valid, nil)
			sd := 0.0
			if len(valid) > 1 {
				sd = stat.StdDev(valid, nil)
			}
			lo, hi = mean-m*sd, mean+m*sd
		default:
			return Col{}, fmt.Errorf("%w: unknown winsorize method %d", core.ErrEngine, method)
		}
		out := make([]float64, len(c.Floats))
		for i, v := range c.Floats {
			switch {
			case math.IsNaN(v):
				out[i] = math.NaN()
			case v < lo:
				out[i] = lo
			case v > hi:
				out[i] = hi
			default:
				out[i] = v
			}
		}
		return Col{Floats: out}, nil
	})
}

// Tcut bins values against ascending bin edges and maps each slot to its
// bin's label. Labels number len(bins)-1. With addBounds, values beyond the
// outermost edges fall into the first and last bins; without it they go
// null.
func (e Expr) Tcut(bins, labels []float64, right, addBounds bool) Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		if len(labels) != len(bins)-1 {
			return Col{}, fmt.Errorf("%w: tcut needs %d labels, got %d", core.ErrShape, len(bins)-1, len(labels))
		}
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		out := make([]float64, len(c.Floats))
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				out[i] = math.NaN()
				continue
			}
			bin := -1
			for j := 0; j+1 < len(bins); j++ {
				lo, hi := bins[j], bins[j+1]
				var in bool
				if right {
					in = v > lo && v <= hi || (j == 0 && v == lo)
				} else {
					in = v >= lo && v < hi || (j+2 == len(bins) && v == hi)
				}
				if in {
					bin = j
					break
				}
			}
			if bin < 0 && addBounds {
				if v < bins[0] {
					bin = 0
				} else {
					bin = len(labels) - 1
				}
			}
			if bin < 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = labels[bin]
		}
		return Col{Floats: out}, nil
	})
}

// VFirst returns the first non-null value as a length-1 column.
func (e Expr) VFirst() Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		for _, v := range c.Floats {
			if !math.IsNaN(v) {
				return Col{Floats: []float64{v}}, nil
			}
		}
		return Col{Floats: []float64{math.NaN()}}, nil
	})
}

// VLast returns the last non-null value as a length-1 column.
func (e Expr) VLast() Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		for i := len(c.Floats) - 1; i >= 0; i-- {
			if v := c.Floats[i]; !math.IsNaN(v) {
				return Col{Floats: []float64{v}}, nil
			}
		}
		return Col{Floats: []float64{math.NaN()}}, nil
	})
}

// HalfLife estimates a series' memory as the smallest lag whose
// autocorrelation drops to 0.5 or below. Fewer than minPeriods valid
// observations yields null; minPeriods <= 0 defaults to half the length.
func (e Expr) HalfLife(minPeriods int) Expr {
	return NewExpr(e.name, func(ctx *Ctx) (Col, error) {
		c, err := e.Eval(ctx)
		if err != nil {
			return Col{}, err
		}
		v := make([]float64, 0, len(c.Floats))
		for _, x := range c.Floats {
			if !math.IsNaN(x) {
				v = append(v, x)
			}
		}
		mp := minPeriods
		if mp <= 0 {
			mp = len(c.Floats) / 2
		}
		if len(v) < mp || len(v) < 2 {
			return Col{Floats: []float64{math.NaN()}}, nil
		}
		for k := 1; k < len(v); k++ {
			if autocorr(v, k) <= 0.5 {
				return Col{Floats: []float64{float64(k)}}, nil
			}
		}
		return Col{Floats: []float64{float64(len(v))}}, nil
	})
}

func autocorr(v []float64, lag int) float64 {
	n := len(v) - lag
	if n < 2 {
		return 0
	}
	c := stat.Correlation(v[:n], v[lag:], nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}
