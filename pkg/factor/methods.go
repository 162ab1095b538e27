package factor

import (
	"math"

	"github.com/raykavin/factorlab/pkg/frame"
	"github.com/raykavin/factorlab/pkg/param"
	"gonum.org/v1/gonum/stat"
)

// extFactor wraps a factor with a named rolling or elementwise method. Its
// name follows the "<fac>_<method>" / "<fac>_<method>_<param>" convention,
// which is what the parser splits back apart.
type extFactor struct {
	fac    PlFactor
	method string
	p      param.Param
	apply  func(x frame.Expr, p param.Param) frame.Expr
}

func (e extFactor) Name() string {
	return FormatName(e.fac.Name()+"_"+e.method, e.p)
}

func (e extFactor) Expr() (frame.Expr, error) {
	x, err := e.fac.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	return e.apply(x, e.p).Alias(e.Name()), nil
}

func ext(f PlFactor, method string, p param.Param, apply func(x frame.Expr, p param.Param) frame.Expr) PlFactor {
	return extFactor{fac: f, method: method, p: p, apply: apply}
}

func rollOpt(p param.Param) frame.RollingOpt {
	return frame.Rolling(p.AsInt())
}

// Mean is the rolling mean; a window of 1 is the identity.
func Mean(f PlFactor, p param.Param) PlFactor {
	if p.AsI32() == 1 {
		return f
	}
	return ext(f, "mean", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.RollingMean(rollOpt(p))
	})
}

// Sum is the rolling sum.
func Sum(f PlFactor, p param.Param) PlFactor {
	return ext(f, "sum", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.RollingSum(rollOpt(p))
	})
}

// Min is the rolling minimum.
func Min(f PlFactor, p param.Param) PlFactor {
	return ext(f, "min", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.RollingMin(rollOpt(p))
	})
}

// Max is the rolling maximum.
func Max(f PlFactor, p param.Param) PlFactor {
	return ext(f, "max", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.RollingMax(rollOpt(p))
	})
}

// Bias is the deviation from the rolling mean: x/mean - 1.
func Bias(f PlFactor, p param.Param) PlFactor {
	return ext(f, "bias", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.ProtectDiv(x.RollingMean(rollOpt(p))).Sub(frame.Lit(1))
	})
}

// Vol is the rolling standard deviation.
func Vol(f PlFactor, p param.Param) PlFactor {
	return ext(f, "vol", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.RollingStd(rollOpt(p))
	})
}

// PureVol is volatility scaled by level: std/mean.
func PureVol(f PlFactor, p param.Param) PlFactor {
	return ext(f, "pure_vol", p, func(x frame.Expr, p param.Param) frame.Expr {
		opt := rollOpt(p)
		return x.RollingStd(opt).ProtectDiv(x.RollingMean(opt))
	})
}

// Zscore standardizes against the rolling window: (x-mean)/std.
func Zscore(f PlFactor, p param.Param) PlFactor {
	return ext(f, "zscore", p, func(x frame.Expr, p param.Param) frame.Expr {
		opt := rollOpt(p)
		return x.Sub(x.RollingMean(opt)).ProtectDiv(x.RollingStd(opt))
	})
}

// Skew is the rolling skewness.
func Skew(f PlFactor, p param.Param) PlFactor {
	return ext(f, "skew", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.TsSkew(rollOpt(p))
	})
}

// Kurt is the rolling excess kurtosis.
func Kurt(f PlFactor, p param.Param) PlFactor {
	return ext(f, "kurt", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.TsKurt(rollOpt(p))
	})
}

// Minmax rescales into [0,1] against the rolling window; a flat window goes
// null.
func Minmax(f PlFactor, p param.Param) PlFactor {
	return ext(f, "minmax", p, func(x frame.Expr, p param.Param) frame.Expr {
		opt := rollOpt(p)
		lo, hi := x.RollingMin(opt), x.RollingMax(opt)
		return frame.When(hi.Gt(lo)).
			Then(x.Sub(lo).Div(hi.Sub(lo))).
			Otherwise(frame.NullLit())
	})
}

// VolRank ranks the rolling volatility inside a five-times-longer window.
func VolRank(f PlFactor, p param.Param) PlFactor {
	return ext(f, "vol_rank", p, func(x frame.Expr, p param.Param) frame.Expr {
		n := p.AsInt()
		return x.RollingStd(frame.Rolling(n)).TsRank(frame.Rolling(5*n), true, false)
	})
}

// Pct is the rolling percentage change over the window.
func Pct(f PlFactor, p param.Param) PlFactor {
	return ext(f, "pct", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.PctChange(p.AsInt())
	})
}

// Lag shifts the factor back by the window.
func Lag(f PlFactor, p param.Param) PlFactor {
	return ext(f, "lag", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.Shift(p.AsInt())
	})
}

// Efficiency is the net move over the gross move: |diff(n)| / sum(|diff(1)|, n).
func Efficiency(f PlFactor, p param.Param) PlFactor {
	return ext(f, "efficiency", p, func(x frame.Expr, p param.Param) frame.Expr {
		n := p.AsInt()
		return x.Diff(n).Abs().ProtectDiv(x.Diff(1).Abs().RollingSum(frame.Rolling(n)))
	})
}

// EfficiencySign is Efficiency keeping the direction of the net move.
func EfficiencySign(f PlFactor, p param.Param) PlFactor {
	return ext(f, "efficiency_sign", p, func(x frame.Expr, p param.Param) frame.Expr {
		n := p.AsInt()
		return x.Diff(n).ProtectDiv(x.Diff(1).Abs().RollingSum(frame.Rolling(n)))
	})
}

// Ewm is the rolling exponentially weighted mean.
func Ewm(f PlFactor, p param.Param) PlFactor {
	return ext(f, "ewm", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.TsEwm(rollOpt(p))
	})
}

// Fill forward-fills nulls; the param is ignored.
func Fill(f PlFactor, p param.Param) PlFactor {
	return ext(f, "fill", p, func(x frame.Expr, _ param.Param) frame.Expr {
		return x.ForwardFill()
	})
}

// CumSum is the running sum; the param is ignored.
func CumSum(f PlFactor, p param.Param) PlFactor {
	return ext(f, "cum_sum", p, func(x frame.Expr, _ param.Param) frame.Expr {
		return x.CumSum()
	})
}

// Diff is the n-lag difference.
func Diff(f PlFactor, p param.Param) PlFactor {
	return ext(f, "diff", p, func(x frame.Expr, p param.Param) frame.Expr {
		return x.Diff(p.AsInt())
	})
}

// Log is the elementwise natural log.
func Log(f PlFactor, p param.Param) PlFactor {
	return ext(f, "log", p, func(x frame.Expr, _ param.Param) frame.Expr {
		return x.Log()
	})
}

// Abs is the elementwise absolute value.
func Abs(f PlFactor, p param.Param) PlFactor {
	return ext(f, "abs", p, func(x frame.Expr, _ param.Param) frame.Expr {
		return x.Abs()
	})
}

// IsNone marks null slots.
func IsNone(f PlFactor, p param.Param) PlFactor {
	return ext(f, "is_none", p, func(x frame.Expr, _ param.Param) frame.Expr {
		return x.IsNull()
	})
}

// corrFactor is the rolling correlation of two factors, named
// "a.corr(b)_n".
type corrFactor struct {
	left, right PlFactor
	p           param.Param
}

func (c corrFactor) Name() string {
	return FormatName(c.left.Name()+".corr("+c.right.Name()+")", c.p)
}

func (c corrFactor) Expr() (frame.Expr, error) {
	a, err := c.left.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	b, err := c.right.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	n := c.p.AsInt()
	name := c.Name()
	return frame.NewExpr(name, func(ctx *frame.Ctx) (frame.Col, error) {
		ca, err := a.Eval(ctx)
		if err != nil {
			return frame.Col{}, err
		}
		cb, err := b.Eval(ctx)
		if err != nil {
			return frame.Col{}, err
		}
		return rollingCorr(ca, cb, frame.Rolling(n)), nil
	}), nil
}

func rollingCorr(a, b frame.Col, opt frame.RollingOpt) frame.Col {
	n := a.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := i - opt.Window + 1
		if lo < 0 {
			lo = 0
		}
		var xs, ys []float64
		for j := lo; j <= i; j++ {
			x, y := a.Floats[j], b.Floats[j]
			if !math.IsNaN(x) && !math.IsNaN(y) {
				xs = append(xs, x)
				ys = append(ys, y)
			}
		}
		if len(xs) < opt.MinPeriods || len(xs) < 2 {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.Correlation(xs, ys, nil)
	}
	return frame.Col{Floats: out}
}

// Corr is the rolling correlation of two factors over the param window.
func Corr(l, r PlFactor, p param.Param) PlFactor {
	return corrFactor{left: l, right: r, p: p}
}

// imbFactor is the order-book style imbalance of two factors, named
// "a.imb(b)".
type imbFactor struct {
	left, right PlFactor
}

func (f imbFactor) Name() string {
	return f.left.Name() + ".imb(" + f.right.Name() + ")"
}

func (f imbFactor) Expr() (frame.Expr, error) {
	a, err := f.left.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	b, err := f.right.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	return a.Imbalance(b).Alias(f.Name()), nil
}

// Imbalance is (a-b)/(a+b) of two factors.
func Imbalance(l, r PlFactor) PlFactor {
	return imbFactor{left: l, right: r}
}

// iifFactor is a conditional factor, named "iif(c,a,b)".
type iifFactor struct {
	cond, then, other PlFactor
}

func (f iifFactor) Name() string {
	return "iif(" + f.cond.Name() + "," + f.then.Name() + "," + f.other.Name() + ")"
}

func (f iifFactor) Expr() (frame.Expr, error) {
	c, err := f.cond.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	a, err := f.then.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	b, err := f.other.Expr()
	if err != nil {
		return frame.Expr{}, err
	}
	return frame.When(c).Then(a).Otherwise(b).Alias(f.Name()), nil
}

// IIf picks then where cond holds, other where it does not, null where the
// condition is null.
func IIf(cond, then, other PlFactor) PlFactor {
	return iifFactor{cond: cond, then: then, other: other}
}

// hsumFactor sums factors horizontally with one-sided null tolerance.
type hsumFactor struct {
	facs []PlFactor
}

func (f hsumFactor) Name() string {
	name := "hsum("
	for i, x := range f.facs {
		if i > 0 {
			name += ","
		}
		name += x.Name()
	}
	return name + ")"
}

func (f hsumFactor) Expr() (frame.Expr, error) {
	var acc frame.Expr
	for i, x := range f.facs {
		e, err := x.Expr()
		if err != nil {
			return frame.Expr{}, err
		}
		if i == 0 {
			acc = e
		} else {
			acc = acc.Vadd(e)
		}
	}
	return acc.Alias(f.Name()), nil
}

// HSum sums factors elementwise; a null contributes nothing instead of
// poisoning the row.
func HSum(facs ...PlFactor) PlFactor {
	return hsumFactor{facs: facs}
}
