package factor

import (
	"fmt"

	"github.com/raykavin/factorlab/pkg/frame"
)

// AggMethod names a whole-group reduction applied when resampling factors.
type AggMethod int

const (
	AggMean AggMethod = iota
	AggSum
	AggMin
	AggMax
	AggMedian
	AggStd
	AggVar
	AggSkew
	AggKurt
	AggQuantile
	AggFirst
	AggLast
	AggNth
	AggCount
)

func (m AggMethod) String() string {
	switch m {
	case AggMean:
		return "mean"
	case AggSum:
		return "sum"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggMedian:
		return "median"
	case AggStd:
		return "std"
	case AggVar:
		return "var"
	case AggSkew:
		return "skew"
	case AggKurt:
		return "kurt"
	case AggQuantile:
		return "quantile"
	case AggFirst:
		return "first"
	case AggLast:
		return "last"
	case AggNth:
		return "nth"
	case AggCount:
		return "count"
	default:
		return fmt.Sprintf("agg(%d)", int(m))
	}
}

// PlAggFactor is a factor paired with its group reduction; the loader's
// resampling path consumes these.
type PlAggFactor interface {
	FacName() string
	// FacExpr is the row-level expression, or nil when the aggregation
	// reads an existing column directly.
	FacExpr() (frame.Expr, error)
	// AggExpr reduces the factor's column within one group.
	AggExpr(input frame.Expr) frame.Expr
}

// FactorAgg pairs a factor with an aggregation method.
type FactorAgg struct {
	Fac    PlFactor
	Method AggMethod
	// Q is the quantile for AggQuantile; N is the index for AggNth.
	Q float64
	N int
}

// NewFactorAgg builds the common case of aggregating a factor by method.
func NewFactorAgg(f PlFactor, m AggMethod) FactorAgg {
	return FactorAgg{Fac: f, Method: m}
}

// FacName returns the underlying factor name.
func (a FactorAgg) FacName() string { return a.Fac.Name() }

// FacExpr returns the row-level factor expression.
func (a FactorAgg) FacExpr() (frame.Expr, error) { return a.Fac.Expr() }

// AggExpr reduces the factor's column with the configured method. Skew and
// kurtosis push undefined results to null.
func (a FactorAgg) AggExpr(input frame.Expr) frame.Expr {
	var out frame.Expr
	switch a.Method {
	case AggMean:
		out = input.Mean()
	case AggSum:
		out = input.Sum()
	case AggMin:
		out = input.Min()
	case AggMax:
		out = input.Max()
	case AggMedian:
		out = input.Median()
	case AggStd:
		out = input.Std()
	case AggVar:
		out = input.Var()
	case AggSkew:
		out = input.Skew()
	case AggKurt:
		out = input.Kurt()
	case AggQuantile:
		out = input.Quantile(a.Q)
	case AggFirst:
		out = input.First()
	case AggLast:
		out = input.Last()
	case AggNth:
		out = input.Nth(a.N)
	case AggCount:
		out = input.Count()
	default:
		out = input.Mean()
	}
	return out.Alias(a.FacName())
}
